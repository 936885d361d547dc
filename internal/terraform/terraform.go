package terraform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/terrafan/terrafan/internal/log"
	"github.com/terrafan/terrafan/internal/model"
)

// Config is the configuration for a Terraform executor bound to one workspace.
type Config struct {
	// WorkDir is the workspace directory the commands run in. Empty is allowed
	// only for workspace-independent commands (version).
	WorkDir string
	// BinaryPath is the path to the terraform binary.
	BinaryPath string
	// PluginCacheDir enables the provider plugin cache when set.
	PluginCacheDir string
	// CaptureOutput captures combined stdout/stderr and returns it instead of
	// streaming it to Stdout/Stderr.
	CaptureOutput bool
	// Stdout and Stderr receive the tool output when not capturing.
	Stdout io.Writer
	Stderr io.Writer

	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.BinaryPath == "" {
		return fmt.Errorf("terraform binary path is required")
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "terraform.Terraform", "workspace": workspaceName(c.WorkDir)})
	return nil
}

// Terraform runs terraform CLI commands for a single workspace. Each method
// performs exactly one stage; the only orchestration it knows about is that
// apply implicitly plans first when no plan artifact exists.
type Terraform struct {
	workDir       string
	workspaceName string
	binaryPath    string
	pluginCache   string
	capture       bool
	stdout        io.Writer
	stderr        io.Writer
	logger        log.Logger
}

// New creates a terraform executor for a workspace.
func New(cfg Config) (*Terraform, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.PluginCacheDir != "" {
		if err := os.MkdirAll(cfg.PluginCacheDir, 0755); err != nil {
			return nil, fmt.Errorf("could not create plugin cache directory: %w", err)
		}
	}

	return &Terraform{
		workDir:       cfg.WorkDir,
		workspaceName: workspaceName(cfg.WorkDir),
		binaryPath:    cfg.BinaryPath,
		pluginCache:   cfg.PluginCacheDir,
		capture:       cfg.CaptureOutput,
		stdout:        cfg.Stdout,
		stderr:        cfg.Stderr,
		logger:        cfg.Logger,
	}, nil
}

// WorkspaceName returns the display name of the workspace (final path segment).
func (t *Terraform) WorkspaceName() string { return t.workspaceName }

// PlanFile returns the name of the plan artifact for this workspace.
func (t *Terraform) PlanFile() string { return t.workspaceName + ".tfplan" }

// Init runs terraform init on the workspace. backendConfigFile is optional.
func (t *Terraform) Init(ctx context.Context, backendConfigFile string) (string, error) {
	args := []string{"init", "-input=false", "-no-color"}
	if backendConfigFile != "" {
		args = append(args, fmt.Sprintf("-backend-config=%s", backendConfigFile))
	}
	return t.run(ctx, args)
}

// Plan runs terraform plan on the workspace, saving the plan artifact so a later
// apply can consume it. destroy plans the destruction of all resources.
func (t *Terraform) Plan(ctx context.Context, destroy bool) (string, error) {
	args := []string{"plan", "-input=false", "-no-color", fmt.Sprintf("-out=%s", t.PlanFile())}
	if destroy {
		args = append(args, "-destroy")
	}
	t.logger.Debugf("Planning workspace %s, saving plan to %s", t.workDir, t.PlanFile())
	return t.run(ctx, args)
}

// Apply runs terraform apply on the workspace using the saved plan artifact.
// When no plan artifact exists it performs a plan first.
func (t *Terraform) Apply(ctx context.Context) (string, error) {
	_, err := os.Stat(filepath.Join(t.workDir, t.PlanFile()))
	if err != nil {
		t.logger.Debugf("Plan artifact for %s does not exist, planning first", t.workspaceName)
		planOut, err := t.Plan(ctx, false)
		if err != nil {
			return planOut, err
		}
	}

	t.logger.Debugf("Applying workspace %s, plan file %s", t.workDir, t.PlanFile())
	return t.run(ctx, []string{"apply", "-input=false", "-no-color", t.PlanFile()})
}

// Run executes one action on the workspace. It is the single entry point the
// orchestrator uses.
func (t *Terraform) Run(ctx context.Context, action model.Action, backendConfigFile string, destroy bool) (string, error) {
	switch action {
	case model.ActionInit:
		return t.Init(ctx, backendConfigFile)
	case model.ActionPlan:
		return t.Plan(ctx, destroy)
	case model.ActionApply:
		return t.Apply(ctx)
	default:
		return "", fmt.Errorf("action %q cannot run on a workspace: %w", action, model.ErrNotValid)
	}
}

// Version returns the version of the terraform binary.
func (t *Terraform) Version(ctx context.Context) (string, error) {
	out, err := t.runCaptured(ctx, []string{"version", "-json"})
	if err != nil {
		return "", err
	}

	v := struct {
		TerraformVersion string `json:"terraform_version"`
	}{}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return "", fmt.Errorf("could not parse terraform version output: %w", err)
	}

	return v.TerraformVersion, nil
}

func (t *Terraform) run(ctx context.Context, args []string) (string, error) {
	if t.capture {
		return t.runCaptured(ctx, args)
	}

	cmd := t.command(ctx, args)
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr
	return "", t.wrapRunError(cmd.Run())
}

func (t *Terraform) runCaptured(ctx context.Context, args []string) (string, error) {
	cmd := t.command(ctx, args)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	return buf.String(), t.wrapRunError(err)
}

func (t *Terraform) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	cmd.Dir = t.workDir

	// Child-only environment, the parent process env is never mutated.
	env := append(os.Environ(), "TF_IN_AUTOMATION=1")
	if t.pluginCache != "" {
		env = append(env,
			fmt.Sprintf("TF_PLUGIN_CACHE_DIR=%s", t.pluginCache),
			"CHECKPOINT_DISABLE=true",
		)
	}
	cmd.Env = env

	return cmd
}

// wrapRunError maps exec errors onto the model error taxonomy: a non-zero exit
// is an action failure, anything before an exit status is a setup failure.
func (t *Terraform) wrapRunError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("terraform exited with status %d: %w", exitErr.ExitCode(), model.ErrActionFailed)
	}

	return fmt.Errorf("could not invoke terraform: %v: %w", err, model.ErrSetup)
}

// ExitCode maps an error returned by this package onto a process exit status:
// 0 on nil, the subprocess status is collapsed to 1 for action failures.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func workspaceName(workDir string) string {
	if workDir == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(workDir))
}
