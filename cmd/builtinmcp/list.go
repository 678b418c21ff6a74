package main

import (
	"context"
	"fmt"

	"github.com/atlanticdynamic/builtinmcp/internal/config"
	"github.com/atlanticdynamic/builtinmcp/internal/fancy"
	"github.com/atlanticdynamic/builtinmcp/internal/servers"
	"github.com/urfave/cli/v3"
)

const descriptionWidth = 72

func (a *app) listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List builtin servers and their tools",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out, err := a.renderList()
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			_, err = fmt.Fprintln(a.stdout, out)
			return err
		},
	}
}

// renderList builds every known server with default settings so the tool set
// is shown even for servers the config disables.
func (a *app) renderList() (string, error) {
	root := fancy.Tree("builtinmcp servers")
	for _, kind := range servers.All() {
		desc, err := servers.Build(kind, servers.Deps{Handler: a.handler, Version: Version})
		if err != nil {
			return "", err
		}

		note := desc.Display.Title
		if !a.cfg.ServerEnabled(kind.String()) {
			note += " (" + string(config.StatusDisabled) + ")"
		}
		branch := fancy.BranchNode(fancy.ServerText(kind.String()), note)
		for _, def := range desc.Registry.Definitions() {
			branch.Child(fancy.BranchNode(
				fancy.ToolText(def.Name),
				fancy.TruncateString(def.Description, descriptionWidth),
			))
		}
		root.Child(branch)
	}
	return root.String(), nil
}
