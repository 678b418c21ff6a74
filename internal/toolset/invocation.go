package toolset

import (
	"log/slog"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/gofrs/uuid/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Meta keys read from a call's _meta object.
const (
	MetaSessionID  = "sessionID"
	MetaMessageID  = "messageID"
	MetaPermission = "permission"
)

// Invocation carries the per-call identifiers. The call's context.Context is
// the abort signal; it is passed alongside the invocation, never stored.
type Invocation struct {
	Server    string
	Tool      string
	SessionID string
	MessageID string
	CallID    string

	// Extra is the caller supplied _meta object.
	Extra map[string]any

	Logger *slog.Logger
}

// NewID returns a time-ordered opaque identifier with the given prefix.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.Must(uuid.NewV4())
	}
	return prefix + "_" + id.String()
}

func newInvocation(server, tool string, req *mcp.CallToolRequest, logger *slog.Logger) *Invocation {
	inv := &Invocation{
		Server: server,
		Tool:   tool,
		CallID: NewID("call"),
		Extra:  map[string]any{},
	}

	if req != nil && req.Params != nil {
		for k, v := range req.Params.Meta {
			inv.Extra[k] = v
		}
	}
	if req != nil && req.Session != nil {
		inv.SessionID = req.Session.ID()
	}
	if inv.SessionID == "" {
		inv.SessionID = inv.metaString(MetaSessionID)
	}
	inv.MessageID = inv.metaString(MetaMessageID)
	if inv.MessageID == "" {
		inv.MessageID = NewID("msg")
	}

	inv.Logger = logger.With("tool", tool, "callID", inv.CallID)
	return inv
}

func (inv *Invocation) metaString(key string) string {
	if s, ok := inv.Extra[key].(string); ok {
		return s
	}
	return ""
}

// Attachment builds a file part owned by this invocation.
func (inv *Invocation) Attachment(mime string, payload []byte) result.Attachment {
	return result.Attachment{
		ID:        NewID("prt"),
		SessionID: inv.SessionID,
		MessageID: inv.MessageID,
		MIME:      mime,
		Payload:   payload,
	}
}
