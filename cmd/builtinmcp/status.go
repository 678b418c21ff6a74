package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/config"
	"github.com/atlanticdynamic/builtinmcp/internal/fancy"
	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/atlanticdynamic/builtinmcp/internal/servers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const probeTimeout = 5 * time.Second

func (a *app) statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Probe every configured server in memory and report its status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			statuses := a.probeAll(ctx)
			_, err := fmt.Fprintln(a.stdout, renderStatus(statuses))
			return err
		},
	}
}

// configured returns the servers named in config plus every builtin kind, so
// an empty config still reports the full set.
func (a *app) configured() map[string]*config.Server {
	out := maps.Clone(a.cfg.Servers)
	if out == nil {
		out = map[string]*config.Server{}
	}
	for _, name := range servers.Names() {
		if _, ok := out[name]; !ok {
			out[name] = nil
		}
	}
	return out
}

// probeAll connects each enabled server over an in-memory session and
// classifies the results.
func (a *app) probeAll(ctx context.Context) map[string]config.Status {
	logger := slog.New(a.handler).WithGroup("status")
	configured := a.configured()
	connected := make(map[string]struct{}, len(configured))

	for name, srv := range configured {
		if !srv.IsEnabled() {
			continue
		}
		if err := a.probe(ctx, name); err != nil {
			logger.Warn("Probe failed", "server", name, "error", err)
			continue
		}
		connected[name] = struct{}{}
	}
	return config.ClassifyStatus(configured, connected)
}

// probe builds the server, lists its tools over an in-memory session and
// dispatches an empty call in library mode, which must fail validation.
func (a *app) probe(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	kind, err := servers.Parse(name)
	if err != nil {
		return err
	}
	desc, err := servers.Build(kind, servers.Deps{Config: a.cfg, Handler: a.handler, Version: Version})
	if err != nil {
		return err
	}
	srv, err := desc.Compile()
	if err != nil {
		return err
	}

	st, ct := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, st, nil)
	if err != nil {
		return fmt.Errorf("connecting server: %w", err)
	}
	defer func() { _ = ss.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "builtinmcp-status", Version: Version}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		return fmt.Errorf("connecting client: %w", err)
	}
	defer func() { _ = cs.Close() }()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}
	if len(tools.Tools) != desc.Registry.Len() {
		return fmt.Errorf("advertised %d tools, registered %d", len(tools.Tools), desc.Registry.Len())
	}

	first := desc.Registry.Definitions()[0].Name
	res, err := desc.Registry.Call(ctx, first, map[string]any{}, nil)
	if err != nil {
		return fmt.Errorf("dispatching %s: %w", first, err)
	}
	if !res.IsError || !strings.HasPrefix(textOf(res), result.Classify(result.ErrValidation).Title()) {
		return fmt.Errorf("dispatching %s: empty arguments were not rejected", first)
	}
	return nil
}

func textOf(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func renderStatus(statuses map[string]config.Status) string {
	root := fancy.Tree("Server status")
	for _, name := range slices.Sorted(maps.Keys(statuses)) {
		root.Child(fmt.Sprintf("%s: %s", fancy.ServerText(name), fancy.StatusText(string(statuses[name]))))
	}
	return root.String()
}
