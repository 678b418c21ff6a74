package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/servers"
	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags
var Version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	err := a.command().Run(ctx, args)
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(stderr, "Error: %s\n", msg)
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) && exitErr.ExitCode() != 0 {
		return exitErr.ExitCode()
	}
	return 1
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "builtinmcp",
		Version:   Version,
		Usage:     "Host one builtin MCP tool server",
		ArgsUsage: "<server>",
		Description: "Serves the named builtin server over stdio, or over streamable HTTP with --listen.\n" +
			"Known servers: " + strings.Join(servers.Names(), ", "),
		Writer:         a.stdout,
		ErrWriter:      a.stderr,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML configuration file",
				Sources: cli.EnvVars("BUILTINMCP_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text, json); overrides the config file",
			},
			&cli.StringFlag{
				Name:  "log-output",
				Usage: "Log destination: stderr or a file path. stdout is reserved for the protocol",
				Value: "stderr",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Serve streamable HTTP on this address instead of stdio",
			},
		},
		Before: a.before,
		After:  a.after,
		Action: a.serve,
		Commands: []*cli.Command{
			a.listCommand(),
			a.statusCommand(),
			versionCmd,
		},
	}
}
