// Package result normalises every tool outcome into one envelope. Success,
// partial success and total failure all leave here with at least one text block,
// and failures never carry structured content or attachments.
package result

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MetaAttachments is the _meta key under which attachments are advertised.
const MetaAttachments = "attachments"

// BlockType identifies the kind of a content block. Text is the only kind.
type BlockType string

const BlockText BlockType = "text"

// Block is one ordered unit of human readable content.
type Block struct {
	Type BlockType
	Text string
}

// Attachment is a file part produced by a tool call.
type Attachment struct {
	ID        string
	SessionID string
	MessageID string
	MIME      string
	Payload   []byte
}

// DataURL encodes the payload as a base64 data URL.
func (a Attachment) DataURL() string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Payload)
}

// Result is the uniform tool result envelope.
type Result struct {
	Content     []Block
	Structured  any
	Attachments []Attachment
	IsError     bool

	// Class is set on failures for logging and metrics. It is not sent to callers.
	Class Class
}

// Text creates a successful result holding only the given text.
func Text(text string) *Result {
	return &Result{Content: []Block{{Type: BlockText, Text: text}}}
}

// Success creates a successful result. The summary becomes the mandatory text
// block; structured content and attachments are optional.
func Success(summary string, structured any, attachments []Attachment) *Result {
	if strings.TrimSpace(summary) == "" {
		summary = "OK"
	}
	return &Result{
		Content:     []Block{{Type: BlockText, Text: summary}},
		Structured:  structured,
		Attachments: attachments,
	}
}

// Failure creates an error result with a single diagnostic text block.
func Failure(err error) *Result {
	class := Classify(err)
	if class == ClassNone {
		class = ClassInternal
	}
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return &Result{
		Content: []Block{{Type: BlockText, Text: fmt.Sprintf("%s: %s", class.Title(), msg)}},
		IsError: true,
		Class:   class,
	}
}

// Failuref wraps a sentinel with a formatted message and returns a failure result.
func Failuref(sentinel error, format string, args ...any) *Result {
	return Failure(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// Normalize enforces the envelope invariants in place: content is never empty
// and error results drop structured content and attachments.
func (r *Result) Normalize() *Result {
	if r == nil {
		return Failure(fmt.Errorf("%w: handler returned no result", ErrInternal))
	}
	if r.IsError {
		r.Structured = nil
		r.Attachments = nil
		if r.Class == ClassNone {
			r.Class = ClassInternal
		}
	}
	if len(r.Content) == 0 {
		text := "OK"
		if r.IsError {
			text = r.Class.Title()
		}
		r.Content = []Block{{Type: BlockText, Text: text}}
	}
	return r
}

// TextContent joins every text block with newlines.
func (r *Result) TextContent() string {
	parts := make([]string, 0, len(r.Content))
	for _, b := range r.Content {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// ToMCP converts the envelope into the protocol result.
func (r *Result) ToMCP() *mcp.CallToolResult {
	r = r.Normalize()

	out := &mcp.CallToolResult{
		Content: make([]mcp.Content, 0, len(r.Content)),
		IsError: r.IsError,
	}
	for _, b := range r.Content {
		out.Content = append(out.Content, &mcp.TextContent{Text: b.Text})
	}
	if r.IsError {
		return out
	}

	if r.Structured != nil {
		out.StructuredContent = r.Structured
	}
	if len(r.Attachments) > 0 {
		parts := make([]map[string]any, 0, len(r.Attachments))
		for _, a := range r.Attachments {
			parts = append(parts, map[string]any{
				"id":        a.ID,
				"sessionID": a.SessionID,
				"messageID": a.MessageID,
				"mime":      a.MIME,
				"url":       a.DataURL(),
			})
		}
		out.Meta = mcp.Meta{MetaAttachments: parts}
	}
	return out
}
