package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/terrafan/terrafan/internal/model"
)

type InitCommand struct {
	Cmd *kingpin.CmdClause
	runCommand
}

// NewInitCommand returns the init command.
func NewInitCommand(rootCmd *RootCommand, app *kingpin.Application) *InitCommand {
	c := &InitCommand{runCommand: runCommand{rootCmd: rootCmd}}

	c.Cmd = app.Command("init", "Initialize the workspaces, warming up the provider plugin cache.")
	c.registerFlags(c.Cmd)

	return c
}

func (c InitCommand) Name() string { return c.Cmd.FullCommand() }

func (c InitCommand) Run(ctx context.Context) error {
	return c.run(ctx, model.ActionInit)
}
