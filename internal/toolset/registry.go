// Package toolset adapts declarative tool definitions to the MCP SDK and
// wraps every handler with argument validation, access gating, error
// containment and observation.
package toolset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler implements a tool. args holds the validated arguments, with
// defaults applied, as a JSON object. The context is cancelled when the caller
// aborts the call.
type Handler func(ctx context.Context, inv *Invocation, args json.RawMessage) (*result.Result, error)

// Bind adapts a typed handler. The validated arguments are decoded into In.
func Bind[In any](fn func(ctx context.Context, inv *Invocation, in In) (*result.Result, error)) Handler {
	return func(ctx context.Context, inv *Invocation, args json.RawMessage) (*result.Result, error) {
		var in In
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("%w: %w", result.ErrValidation, err)
		}
		return fn(ctx, inv, in)
	}
}

// Definition declares one tool. It is immutable once registered.
type Definition struct {
	Name        string
	Title       string
	Description string

	// Capability tags the tool for access gating, e.g. "websearch".
	Capability string

	Input  Schema
	Output *Schema

	Handler Handler
}

// Observation describes one finished call.
type Observation struct {
	Server   string
	Tool     string
	CallID   string
	Class    result.Class
	Duration time.Duration
}

// Success reports whether the call produced a non-error result.
func (o Observation) Success() bool {
	return o.Class == result.ClassNone
}

// Observer receives an Observation after every call.
type Observer interface {
	ObserveInvoke(ctx context.Context, obs Observation)
}

type entry struct {
	def     Definition
	tool    *mcp.Tool
	input   *jsonschema.Resolved
	handler mcp.ToolHandler
}

// Registry holds the tools of one server. Registration is closed by Compile;
// afterwards the registry is read-only and safe for concurrent calls.
type Registry struct {
	server   string
	logger   *slog.Logger
	gate     Gate
	observer Observer

	mu     sync.RWMutex
	closed bool
	order  []string
	tools  map[string]*entry
}

// NewRegistry creates an empty registry for the named server.
func NewRegistry(server string, opts ...Option) (*Registry, error) {
	if server == "" {
		return nil, ErrMissingServerName
	}
	r := &Registry{
		server: server,
		logger: slog.Default().WithGroup("toolset.Registry"),
		tools:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("server", server)
	return r, nil
}

// Register validates and adds a tool. The schema is translated and resolved
// here, once. Duplicate names are rejected.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistryClosed, def.Name)
	}
	if def.Name == "" {
		return ErrMissingToolName
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %s", ErrMissingHandler, def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}

	inputSchema, err := def.Input.JSONSchema()
	if err != nil {
		return fmt.Errorf("%w: %s input: %w", ErrInvalidSchema, def.Name, err)
	}
	resolved, err := inputSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("%w: %s input: %w", ErrInvalidSchema, def.Name, err)
	}

	tool := &mcp.Tool{
		Name:        def.Name,
		Title:       def.Title,
		Description: def.Description,
		InputSchema: inputSchema,
	}
	if def.Output != nil {
		outputSchema, err := def.Output.JSONSchema()
		if err != nil {
			return fmt.Errorf("%w: %s output: %w", ErrInvalidSchema, def.Name, err)
		}
		tool.OutputSchema = outputSchema
	}

	e := &entry{def: def, tool: tool, input: resolved}
	e.handler = r.wrap(e)

	r.tools[def.Name] = e
	r.order = append(r.order, def.Name)
	return nil
}

// RegisterAll registers every definition and joins the failures.
func (r *Registry) RegisterAll(defs ...Definition) error {
	var errs []error
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compile closes registration and returns an MCP server advertising every
// registered tool.
func (r *Registry) Compile(impl *mcp.Implementation, opts *mcp.ServerOptions) (*mcp.Server, error) {
	if impl == nil {
		return nil, ErrMissingServerName
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	server := mcp.NewServer(impl, opts)
	for _, name := range r.order {
		e := r.tools[name]
		server.AddTool(e.tool, e.handler)
	}
	r.logger.Debug("Compiled MCP server", "tools", len(r.order))
	return server, nil
}

// Name returns the owning server name.
func (r *Registry) Name() string {
	return r.server
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Closed reports whether registration has been closed.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Tools returns the advertised tools in registration order.
func (r *Registry) Tools() []*mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].tool)
	}
	return out
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Call invokes a tool in-process through the same wrapper the transport uses.
// meta is passed as the call's _meta object and may be nil.
func (r *Registry) Call(ctx context.Context, name string, args any, meta map[string]any) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool arguments: %w", err)
		}
		raw = b
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Meta:      meta,
			Name:      name,
			Arguments: raw,
		},
	}
	return e.handler(ctx, req)
}

// wrap builds the protocol handler for one entry.
func (r *Registry) wrap(e *entry) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		inv := newInvocation(r.server, e.def.Name, req, r.logger)

		res := r.dispatch(ctx, e, inv, req)

		obs := Observation{
			Server:   r.server,
			Tool:     e.def.Name,
			CallID:   inv.CallID,
			Class:    res.Class,
			Duration: time.Since(start),
		}
		if r.observer != nil {
			r.observer.ObserveInvoke(ctx, obs)
		}
		if res.IsError {
			inv.Logger.Warn("Tool call failed", "class", res.Class, "duration", obs.Duration)
		} else {
			inv.Logger.Debug("Tool call finished", "duration", obs.Duration)
		}
		return res.ToMCP(), nil
	}
}

func (r *Registry) dispatch(ctx context.Context, e *entry, inv *Invocation, req *mcp.CallToolRequest) (res *result.Result) {
	var rawArgs json.RawMessage
	if req != nil && req.Params != nil {
		rawArgs = req.Params.Arguments
	}

	args, err := e.prepare(rawArgs)
	if err != nil {
		return result.Failure(err)
	}

	if r.gate != nil {
		if err := r.gate.Check(ctx, inv, e.def.Capability); err != nil {
			return result.Failure(err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			inv.Logger.Error("Tool handler panicked", "panic", p, "stack", string(debug.Stack()))
			res = result.Failure(fmt.Errorf("%w: %v", result.ErrInternal, p))
		}
	}()

	out, err := e.def.Handler(ctx, inv, args)
	if err != nil {
		return result.Failure(err)
	}
	return out.Normalize()
}

// prepare decodes the raw arguments, applies defaults, and validates the
// result against the resolved input schema.
func (e *entry) prepare(raw json.RawMessage) (json.RawMessage, error) {
	args := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: arguments must be a JSON object: %w", result.ErrValidation, err)
		}
	}
	e.def.Input.Defaults(args)

	normalized, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrValidation, err)
	}

	var instance map[string]any
	if err := json.Unmarshal(normalized, &instance); err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrValidation, err)
	}
	if err := e.input.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrValidation, err)
	}
	return normalized, nil
}
