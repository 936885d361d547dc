package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/terrafan/terrafan/internal/log"
	"github.com/terrafan/terrafan/internal/model"
	"github.com/terrafan/terrafan/internal/orchestrator"
	"github.com/terrafan/terrafan/internal/storage"
)

// Executor runs actions for a single workspace.
type Executor interface {
	Run(ctx context.Context, action model.Action, backendConfigFile string, destroy bool) (string, error)
}

// ExecutorFactory creates an executor for a workspace. capture selects whether
// the tool output is captured for serialized printing or streamed directly.
type ExecutorFactory func(ws model.Workspace, capture bool) (Executor, error)

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	// NewExecutor builds the per-workspace executor.
	NewExecutor ExecutorFactory
	// Budget is the maximum number of concurrently running tasks.
	Budget int
	// Repository records run history when set.
	Repository storage.Repository
	// PollInterval overrides the scheduler poll interval (tests).
	PollInterval time.Duration
	// Out receives all run output.
	Out    io.Writer
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.NewExecutor == nil {
		return fmt.Errorf("executor factory is required")
	}
	if c.Budget < 1 {
		return fmt.Errorf("budget must be positive, got %d", c.Budget)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})
	return nil
}

// Service fans one action out over a list of workspaces.
type Service struct {
	newExecutor  ExecutorFactory
	budget       int
	repo         storage.Repository
	pollInterval time.Duration
	out          io.Writer
	logger       log.Logger
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		newExecutor:  cfg.NewExecutor,
		budget:       cfg.Budget,
		repo:         cfg.Repository,
		pollInterval: cfg.PollInterval,
		out:          cfg.Out,
		logger:       cfg.Logger,
	}, nil
}

// Request is a run request.
type Request struct {
	Action            model.Action
	Workspaces        []model.Workspace
	BackendConfigFile string
	Destroy           bool
	Parallel          bool
}

func (r Request) validate() error {
	switch r.Action {
	case model.ActionInit, model.ActionPlan, model.ActionApply:
	default:
		return fmt.Errorf("action %q cannot run on workspaces: %w", r.Action, model.ErrNotValid)
	}
	if len(r.Workspaces) == 0 {
		return fmt.Errorf("at least one workspace is required: %w", model.ErrNotValid)
	}
	return nil
}

// Run executes the request and returns the run summary. A task failure is not
// an error: it is reflected in the summary only. The returned error means the
// run itself could not be carried out.
func (s *Service) Run(ctx context.Context, req Request) (model.RunSummary, error) {
	if err := req.validate(); err != nil {
		return model.RunSummary{}, err
	}

	startedAt := time.Now().UTC()
	reporter := orchestrator.NewConsoleReporter(s.out)
	workspaces := req.Workspaces

	// init warms up the provider plugin cache on the first workspace alone, then
	// seeds the dependency lock file into the others so they don't re-download
	// providers that the cache already holds.
	if req.Action == model.ActionInit {
		res, err := s.warmUpInit(ctx, req)
		if err != nil {
			return model.RunSummary{}, err
		}
		reporter.TaskFinished(*res)
		workspaces = workspaces[1:]
	}

	if !req.Parallel {
		return s.runSerial(ctx, req, reporter, workspaces, startedAt)
	}
	return s.runParallel(ctx, req, reporter, workspaces, startedAt)
}

// warmUpInit inits the first workspace with streamed output and copies its
// dependency lock file into the remaining workspaces.
func (s *Service) warmUpInit(ctx context.Context, req Request) (*model.TaskResult, error) {
	first := req.Workspaces[0]
	s.printHeader(first.Name(), req.Action)

	exec, err := s.newExecutor(first, false)
	if err != nil {
		return nil, fmt.Errorf("could not create executor for %s: %w", first.Name(), err)
	}

	taskStart := time.Now().UTC()
	if _, err := exec.Run(ctx, req.Action, req.BackendConfigFile, false); err != nil {
		return nil, fmt.Errorf("init of %s failed: %w", first.Name(), err)
	}

	lockFile := filepath.Join(first.Dir, ".terraform.lock.hcl")
	for _, ws := range req.Workspaces[1:] {
		if err := copyFile(lockFile, filepath.Join(ws.Dir, ".terraform.lock.hcl")); err != nil {
			return nil, fmt.Errorf("could not seed dependency lock file into %s: %w", ws.Name(), err)
		}
	}

	return &model.TaskResult{
		Workspace:  first,
		Action:     req.Action,
		Status:     model.TaskStatusCompleted,
		StartedAt:  taskStart,
		FinishedAt: time.Now().UTC(),
	}, nil
}

// runSerial executes the workspaces one by one with streamed output, stopping
// at the first failure.
func (s *Service) runSerial(ctx context.Context, req Request, reporter *orchestrator.ConsoleReporter, workspaces []model.Workspace, startedAt time.Time) (model.RunSummary, error) {
	for _, ws := range workspaces {
		s.printHeader(ws.Name(), req.Action)

		exec, err := s.newExecutor(ws, false)
		if err != nil {
			return model.RunSummary{}, fmt.Errorf("could not create executor for %s: %w", ws.Name(), err)
		}

		taskStart := time.Now().UTC()
		_, err = exec.Run(ctx, req.Action, req.BackendConfigFile, req.Destroy)
		res := model.TaskResult{
			Workspace:  ws,
			Action:     req.Action,
			Status:     model.TaskStatusCompleted,
			StartedAt:  taskStart,
			FinishedAt: time.Now().UTC(),
		}
		if err != nil {
			res.Status = model.TaskStatusFailed
			res.ExitCode = 1
			res.Error = err.Error()
			reporter.TaskFinished(res)
			s.record(ctx, req.Action, reporter, startedAt)
			return reporter.Summary(), fmt.Errorf("%s of %s failed: %w", req.Action, ws.Name(), err)
		}
		reporter.TaskFinished(res)
	}

	s.record(ctx, req.Action, reporter, startedAt)
	return reporter.Summary(), nil
}

// runParallel builds one task per workspace and drives them through the
// scheduler under the concurrency budget.
func (s *Service) runParallel(ctx context.Context, req Request, reporter *orchestrator.ConsoleReporter, workspaces []model.Workspace, startedAt time.Time) (model.RunSummary, error) {
	tasks := make([]*orchestrator.Task, 0, len(workspaces))
	for _, ws := range workspaces {
		ws := ws
		tasks = append(tasks, orchestrator.NewTask(ws, req.Action, func(ctx context.Context) (string, error) {
			exec, err := s.newExecutor(ws, true)
			if err != nil {
				return "", fmt.Errorf("could not create executor: %w: %w", err, model.ErrSetup)
			}
			return exec.Run(ctx, req.Action, req.BackendConfigFile, req.Destroy)
		}))
	}

	sched, err := orchestrator.NewScheduler(orchestrator.SchedulerConfig{
		Budget:       s.budget,
		PollInterval: s.pollInterval,
		Reporter:     reporter,
		Logger:       s.logger,
	})
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("could not create scheduler: %w", err)
	}

	if err := sched.Run(ctx, tasks); err != nil {
		return model.RunSummary{}, fmt.Errorf("scheduler failed: %w", err)
	}

	reporter.PrintSummary(req.Action)
	s.record(ctx, req.Action, reporter, startedAt)

	return reporter.Summary(), nil
}

// record stores the run in the history repository. History is best effort, a
// storage problem never fails a finished run.
func (s *Service) record(ctx context.Context, action model.Action, reporter *orchestrator.ConsoleReporter, startedAt time.Time) {
	if s.repo == nil {
		return
	}

	summary := reporter.Summary()
	run := model.Run{
		ID:         ulid.Make().String(),
		Action:     action,
		Total:      summary.Total,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		CreatedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateRun(ctx, run, reporter.Results()); err != nil {
		s.logger.Warningf("Could not store run history: %s", err)
		return
	}
	s.logger.Debugf("Stored run history %s", run.ID)
}

func (s *Service) printHeader(workspace string, action model.Action) {
	header := fmt.Sprintf("%s - %s", workspace, action)
	rule := strings.Repeat("=", len(header))
	fmt.Fprintf(s.out, "\n%s\n%s\n%s\n", rule, header, rule)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
