package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/atlanticdynamic/builtinmcp/internal/config"
	"github.com/atlanticdynamic/builtinmcp/internal/logging"
	"github.com/atlanticdynamic/builtinmcp/internal/server/lifecycle"
	"github.com/atlanticdynamic/builtinmcp/internal/server/transport"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

// connectFunc picks the transport for a compiled server.
type connectFunc func(srv *mcp.Server, listen string, handler slog.Handler) lifecycle.Connector

// app carries what every command shares: loaded config, the log handler and
// the output streams.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	handler slog.Handler
	closer  io.Closer

	connect connectFunc
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, connect: defaultConnector}
}

func defaultConnector(srv *mcp.Server, listen string, handler slog.Handler) lifecycle.Connector {
	if listen != "" {
		return transport.NewHTTP(srv, listen, transport.WithHTTPLogHandler(handler))
	}
	return transport.NewStdio(srv)
}

// before loads the config and installs logging. Flags win over the file.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	format := cfg.Logging.Format
	if cmd.IsSet("log-format") {
		format = cmd.String("log-format")
	}

	handler, closer, err := logging.SetupLogger(level, format, cmd.String("log-output"))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("failed to set up logging: %v", err), 1)
	}
	a.handler = handler
	a.closer = closer
	return ctx, nil
}

func (a *app) after(context.Context, *cli.Command) error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
