package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/terrafan/terrafan/internal/model"
)

type ApplyCommand struct {
	Cmd *kingpin.CmdClause
	runCommand
}

// NewApplyCommand returns the apply command.
func NewApplyCommand(rootCmd *RootCommand, app *kingpin.Application) *ApplyCommand {
	c := &ApplyCommand{runCommand: runCommand{rootCmd: rootCmd}}

	c.Cmd = app.Command("apply", "Apply the workspaces, reusing saved plan artifacts when present.")
	c.registerFlags(c.Cmd)

	return c
}

func (c ApplyCommand) Name() string { return c.Cmd.FullCommand() }

func (c ApplyCommand) Run(ctx context.Context) error {
	return c.run(ctx, model.ActionApply)
}
