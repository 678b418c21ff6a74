package servers

import (
	"fmt"
	"log/slog"

	"github.com/atlanticdynamic/builtinmcp/internal/config"
	"github.com/atlanticdynamic/builtinmcp/internal/servers/planner"
	"github.com/atlanticdynamic/builtinmcp/internal/servers/sequential"
	"github.com/atlanticdynamic/builtinmcp/internal/servers/websearch"
	"github.com/atlanticdynamic/builtinmcp/internal/toolset"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Display is what the server reports about itself during initialization.
type Display struct {
	Name         string
	Title        string
	Version      string
	Instructions string
}

// Descriptor is a built server: its identity and a closed-over tool registry.
type Descriptor struct {
	Kind     Kind
	Display  Display
	Registry *toolset.Registry
}

// Deps are the collaborators a server factory needs.
type Deps struct {
	Config   *config.Config
	Handler  slog.Handler
	Observer toolset.Observer
	Version  string

	// Searcher replaces the configured upstream for websearch when set.
	Searcher websearch.Searcher
}

// Build constructs the descriptor for kind and registers all of its tools.
// The registry stays open until Compile.
func Build(kind Kind, deps Deps) (*Descriptor, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.NewDefault()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
		}
	}
	if !cfg.ServerEnabled(kind.String()) {
		return nil, fmt.Errorf("%w: %s", ErrServerDisabled, kind)
	}

	gate, err := cfg.Gate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	opts := []toolset.Option{toolset.WithGate(gate)}
	if deps.Handler != nil {
		opts = append(opts, toolset.WithLogHandler(deps.Handler))
	}
	if deps.Observer != nil {
		opts = append(opts, toolset.WithObserver(deps.Observer))
	}

	reg, err := toolset.NewRegistry(kind.String(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	d := &Descriptor{
		Kind:     kind,
		Registry: reg,
		Display:  Display{Name: kind.String(), Version: deps.Version},
	}

	var defs []toolset.Definition
	switch kind {
	case KindWebSearch:
		searcher := deps.Searcher
		if searcher == nil {
			searcher = websearch.NewClient(cfg.WebSearch, deps.Handler)
		}
		defs = websearch.New(searcher, cfg.WebSearch, deps.Handler).Definitions()
		d.Display.Title = "Web search"
		d.Display.Instructions = websearch.Instructions
	case KindSequential:
		defs = sequential.Definitions()
		d.Display.Title = "Sequential thinking"
		d.Display.Instructions = sequential.Instructions
	case KindPlanner:
		defs = planner.Definitions()
		d.Display.Title = "Planner"
		d.Display.Instructions = planner.Instructions
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownServer, int(kind))
	}

	if err := reg.RegisterAll(defs...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuildFailed, kind, err)
	}
	return d, nil
}

// Compile closes registration and returns the MCP server for the descriptor.
func (d *Descriptor) Compile() (*mcp.Server, error) {
	impl := &mcp.Implementation{
		Name:    "builtinmcp-" + d.Display.Name,
		Title:   d.Display.Title,
		Version: d.Display.Version,
	}
	srv, err := d.Registry.Compile(impl, &mcp.ServerOptions{Instructions: d.Display.Instructions})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuildFailed, d.Kind, err)
	}
	return srv, nil
}
