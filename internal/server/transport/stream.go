// Package transport connects a compiled MCP server to the outside world: a
// single stream session (stdio) or a streamable HTTP listener.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlanticdynamic/builtinmcp/internal/server/lifecycle"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var ErrMissingServer = errors.New("mcp server is required")

// Stream serves one session over a single MCP transport.
type Stream struct {
	server    *mcp.Server
	transport mcp.Transport
}

var _ lifecycle.Connector = (*Stream)(nil)

// NewStream serves server over t.
func NewStream(server *mcp.Server, t mcp.Transport) *Stream {
	return &Stream{server: server, transport: t}
}

// NewStdio serves server over the process's stdin and stdout.
func NewStdio(server *mcp.Server) *Stream {
	return NewStream(server, &mcp.StdioTransport{})
}

// Connect starts the session. The returned session ends when the peer
// disconnects or Close is called.
func (s *Stream) Connect(ctx context.Context) (lifecycle.Session, error) {
	if s.server == nil {
		return nil, ErrMissingServer
	}
	ss, err := s.server.Connect(ctx, s.transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting session: %w", err)
	}
	return ss, nil
}
