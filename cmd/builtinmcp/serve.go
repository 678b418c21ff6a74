package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/server/finitestate"
	"github.com/atlanticdynamic/builtinmcp/internal/server/lifecycle"
	"github.com/atlanticdynamic/builtinmcp/internal/servers"
	"github.com/atlanticdynamic/builtinmcp/internal/telemetry"
	"github.com/robbyt/go-supervisor/supervisor"
	"github.com/urfave/cli/v3"
)

// serve hosts the server named by the first argument until a signal, the peer
// closing the transport, or a transport failure.
func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		fmt.Fprintf(a.stderr, "Usage: %s [global flags] <server>\n\nServers: %s\n",
			cmd.Name, strings.Join(servers.Names(), ", "))
		return cli.Exit("server name required", 1)
	}

	kind, err := servers.Parse(cmd.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := slog.New(a.handler).With("server", kind.String())

	deps := servers.Deps{Config: a.cfg, Handler: a.handler, Version: Version}
	if observer, err := telemetry.NewGlobalToolObserver(); err != nil {
		logger.Warn("Tool telemetry disabled", "error", err)
	} else {
		deps.Observer = observer
	}

	desc, err := servers.Build(kind, deps)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	srv, err := desc.Compile()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl, err := lifecycle.New(
		kind.String(),
		a.connect(srv, cmd.String("listen"), a.handler),
		lifecycle.WithLogHandler(a.handler),
		lifecycle.WithContext(runCtx),
	)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to create controller: %w", err), 1)
	}

	// The supervisor only returns on a signal or context cancellation, so end
	// it when the controller reaches a terminal state on its own.
	states := ctrl.GetStateChan(runCtx)
	go func() {
		for s := range states {
			if finitestate.IsTerminal(s) {
				cancel()
				return
			}
		}
	}()

	super, err := supervisor.New(
		supervisor.WithContext(runCtx),
		supervisor.WithLogHandler(a.handler),
		supervisor.WithRunnables(ctrl),
	)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to create supervisor: %w", err), 1)
	}
	if err := super.Run(); err != nil {
		return cli.Exit(fmt.Errorf("failed to run server: %w", err), 1)
	}

	if code := ctrl.ExitCode(); code != 0 {
		return cli.Exit(fmt.Sprintf("%s: server stopped after %s", kind, lifecycle.ErrTransport), code)
	}
	logger.Info("Server shutdown complete")
	return nil
}
