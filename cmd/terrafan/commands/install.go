package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/terrafan/terrafan/internal/terraform"
)

type InstallCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	version     string
	installPath string
}

// NewInstallCommand returns the install command.
func NewInstallCommand(rootCmd *RootCommand, app *kingpin.Application) *InstallCommand {
	c := &InstallCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("install", "Download and install the terraform binary.")
	c.Cmd.Flag("terraform-version", "Terraform version to install.").Envar("TERRAFAN_TERRAFORM_VERSION").Default(DefaultTerraformVersion).StringVar(&c.version)
	c.Cmd.Flag("install-path", "Directory the binary is installed into.").Default(defaultInstallPath()).StringVar(&c.installPath)

	return c
}

func (c InstallCommand) Name() string { return c.Cmd.FullCommand() }

func (c InstallCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	installer, err := terraform.NewInstaller(terraform.InstallerConfig{
		InstallPath: c.installPath,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create installer: %w", err)
	}

	if err := installer.Install(ctx, c.version); err != nil {
		return fmt.Errorf("could not install terraform %s: %w", c.version, err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Installed terraform %s at %s\n", c.version, installer.BinaryPath())

	return nil
}
