package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/terrafan/terrafan/internal/model"
)

type PlanCommand struct {
	Cmd *kingpin.CmdClause
	runCommand
}

// NewPlanCommand returns the plan command.
func NewPlanCommand(rootCmd *RootCommand, app *kingpin.Application) *PlanCommand {
	c := &PlanCommand{runCommand: runCommand{rootCmd: rootCmd}}

	c.Cmd = app.Command("plan", "Plan the workspaces, saving the plan artifacts for apply.")
	c.registerFlags(c.Cmd)
	c.Cmd.Flag("destroy", "Plan the destruction of all resources.").BoolVar(&c.destroy)

	return c
}

func (c PlanCommand) Name() string { return c.Cmd.FullCommand() }

func (c PlanCommand) Run(ctx context.Context) error {
	return c.run(ctx, model.ActionPlan)
}
