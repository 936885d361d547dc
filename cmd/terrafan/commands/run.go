package commands

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/terrafan/terrafan/internal/app/run"
	"github.com/terrafan/terrafan/internal/model"
	"github.com/terrafan/terrafan/internal/orchestrator"
	storageio "github.com/terrafan/terrafan/internal/storage/io"
	"github.com/terrafan/terrafan/internal/storage/sqlite"
	"github.com/terrafan/terrafan/internal/terraform"
)

// runCommand carries the flags and wiring shared by the init, plan and apply
// commands.
type runCommand struct {
	rootCmd *RootCommand

	workspaceDirs     []string
	manifestPath      string
	parallel          bool
	terraformVersion  string
	terraformBin      string
	backendConfigFile string
	pluginCacheDir    string
	memoryPerTaskMB   int
	maxParallel       int
	noHistory         bool
	destroy           bool
}

func (c *runCommand) registerFlags(cmd *kingpin.CmdClause) {
	cmd.Flag("workspace", "Workspace directory to run on. Can be repeated.").Short('w').StringsVar(&c.workspaceDirs)
	cmd.Flag("manifest", "YAML run manifest with workspaces and run settings.").Short('m').StringVar(&c.manifestPath)
	cmd.Flag("parallel", "Run workspaces in parallel under the memory budget.").Short('p').BoolVar(&c.parallel)
	cmd.Flag("terraform-version", "Terraform version the binary was installed with.").Envar("TERRAFAN_TERRAFORM_VERSION").StringVar(&c.terraformVersion)
	cmd.Flag("terraform-bin", "Path to the terraform binary. Defaults to the installed one, then PATH.").StringVar(&c.terraformBin)
	cmd.Flag("backend-config-file", "Backend configuration file passed to init.").StringVar(&c.backendConfigFile)
	cmd.Flag("plugin-cache-dir", "Terraform provider plugin cache directory.").Default(defaultPluginCacheDir()).StringVar(&c.pluginCacheDir)
	cmd.Flag("memory-per-task-mb", "Memory reserved per parallel task in MiB (default 512).").Envar("TERRAFAN_MEMORY_PER_TASK_MB").IntVar(&c.memoryPerTaskMB)
	cmd.Flag("max-parallel", "Hard cap on parallel tasks, overrides the memory budget.").Envar("TERRAFAN_MAX_PARALLEL").IntVar(&c.maxParallel)
	cmd.Flag("no-history", "Do not record the run in the history database.").BoolVar(&c.noHistory)
}

func (c *runCommand) run(ctx context.Context, action model.Action) error {
	logger := c.rootCmd.Logger

	if err := c.applyManifest(ctx); err != nil {
		return err
	}

	if len(c.workspaceDirs) == 0 {
		return fmt.Errorf("at least one workspace is required (--workspace or --manifest)")
	}

	workspaces := make([]model.Workspace, 0, len(c.workspaceDirs))
	for _, dir := range c.workspaceDirs {
		ws, err := model.NewWorkspace(dir)
		if err != nil {
			return fmt.Errorf("invalid workspace %q: %w", dir, err)
		}
		workspaces = append(workspaces, ws)
	}

	binPath, err := c.terraformBinary()
	if err != nil {
		return err
	}
	logger.Debugf("Using terraform binary %s", binPath)

	if c.memoryPerTaskMB < 0 {
		return fmt.Errorf("memory per task must be positive, got %d", c.memoryPerTaskMB)
	}

	budget := 1
	if c.parallel {
		budget, err = orchestrator.NewBudget(orchestrator.BudgetConfig{
			BytesPerTask: uint64(c.memoryPerTaskMB) * 1024 * 1024,
			MaxTasks:     c.maxParallel,
			Logger:       logger,
		})
		if err != nil {
			return fmt.Errorf("could not compute concurrency budget: %w", err)
		}
	}

	svcCfg := run.ServiceConfig{
		NewExecutor: func(ws model.Workspace, capture bool) (run.Executor, error) {
			return terraform.New(terraform.Config{
				WorkDir:        ws.Dir,
				BinaryPath:     binPath,
				PluginCacheDir: c.pluginCacheDir,
				CaptureOutput:  capture,
				Stdout:         c.rootCmd.Stdout,
				Stderr:         c.rootCmd.Stderr,
				Logger:         logger,
			})
		},
		Budget: budget,
		Out:    c.rootCmd.Stdout,
		Logger: logger,
	}

	if !c.noHistory {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer repo.Close()
		svcCfg.Repository = repo
	}

	svc, err := run.NewService(svcCfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	summary, err := svc.Run(ctx, run.Request{
		Action:            action,
		Workspaces:        workspaces,
		BackendConfigFile: c.backendConfigFile,
		Destroy:           c.destroy,
		Parallel:          c.parallel,
	})
	if err != nil {
		return fmt.Errorf("could not run %s: %w", action, err)
	}

	// Exit with the run's aggregate status.
	os.Exit(summary.ExitCode())
	return nil
}

// applyManifest loads the manifest and merges its values under the explicit
// flags: a flag set on the command line always wins.
func (c *runCommand) applyManifest(ctx context.Context) error {
	if c.manifestPath == "" {
		return nil
	}

	abs, err := filepath.Abs(c.manifestPath)
	if err != nil {
		return fmt.Errorf("invalid manifest path: %w", err)
	}

	repo := storageio.NewManifestYAMLRepository(os.DirFS(filepath.Dir(abs)))
	manifest, err := repo.GetManifest(ctx, filepath.Base(abs))
	if err != nil {
		return fmt.Errorf("could not load manifest: %w", err)
	}

	if len(c.workspaceDirs) == 0 {
		// Manifest workspace dirs are relative to the manifest file.
		for _, ws := range manifest.Workspaces {
			dir := ws.Dir
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(filepath.Dir(abs), dir)
			}
			c.workspaceDirs = append(c.workspaceDirs, dir)
		}
	}
	if c.terraformVersion == "" {
		c.terraformVersion = manifest.TerraformVersion
	}
	if c.backendConfigFile == "" {
		c.backendConfigFile = manifest.BackendConfigFile
	}
	if c.memoryPerTaskMB == 0 {
		c.memoryPerTaskMB = manifest.MemoryPerTaskMB
	}
	if c.maxParallel == 0 {
		c.maxParallel = manifest.MaxParallel
	}

	return nil
}

// terraformBinary resolves the binary to run: explicit flag, then the install
// path, then PATH.
func (c *runCommand) terraformBinary() (string, error) {
	if c.terraformBin != "" {
		return c.terraformBin, nil
	}

	installed := filepath.Join(defaultInstallPath(), "terraform")
	if _, err := os.Stat(installed); err == nil {
		return installed, nil
	}

	path, err := osexec.LookPath("terraform")
	if err != nil {
		return "", fmt.Errorf("terraform binary not found, run the install command first: %w", err)
	}

	return path, nil
}
