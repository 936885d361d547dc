package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/terrafan/terrafan/internal/log"
	"github.com/terrafan/terrafan/internal/model"
)

// Reporter consumes task lifecycle transitions. TaskFinished is called exactly
// once per task, always from the scheduler's goroutine.
type Reporter interface {
	TaskStarted(t *Task)
	TaskFinished(res model.TaskResult)
}

// SchedulerConfig is the configuration for the process pool scheduler.
type SchedulerConfig struct {
	// Budget is the maximum number of tasks in the running state at once.
	Budget int
	// PollInterval is the sleep between control loop iterations.
	PollInterval time.Duration
	// ProgressEvery emits a progress line every N iterations.
	ProgressEvery int

	Reporter Reporter
	Logger   log.Logger
}

func (c *SchedulerConfig) defaults() error {
	if c.Budget < 1 {
		return fmt.Errorf("budget must be positive, got %d", c.Budget)
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.ProgressEvery == 0 {
		c.ProgressEvery = 20
	}
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "orchestrator.Scheduler"})
	return nil
}

// Scheduler drives every registered task from waiting to a terminal state while
// never exceeding the concurrency budget. It is single-threaded and cooperative:
// one polling control loop, non-blocking liveness checks, parallelism comes
// entirely from the tasks' own processes.
type Scheduler struct {
	budget        int
	pollInterval  time.Duration
	progressEvery int
	reporter      Reporter
	logger        log.Logger
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Scheduler{
		budget:        cfg.Budget,
		pollInterval:  cfg.PollInterval,
		progressEvery: cfg.ProgressEvery,
		reporter:      cfg.Reporter,
		logger:        cfg.Logger,
	}, nil
}

// Run drives all tasks to completion. The waiting, running and terminal sets
// partition the tasks at all times; the loop ends once waiting and running are
// both empty. Admission scans tasks in registration order, so earlier tasks are
// preferred when capacity frees up, but this is a best-effort scan, not a FIFO
// queue. A failed task never aborts its siblings.
func (s *Scheduler) Run(ctx context.Context, tasks []*Task) error {
	waiting := len(tasks)
	running := 0
	completed := 0
	failed := 0

	loopCount := 0
	for {
		for _, t := range tasks {
			switch t.Status() {
			case model.TaskStatusWaiting:
				if running >= s.budget {
					continue
				}
				s.reporter.TaskStarted(t)
				t.Start(ctx)
				waiting--
				running++
			case model.TaskStatusRunning:
				if !t.Finished() {
					continue
				}
				res := t.finish()
				running--
				if res.Status == model.TaskStatusFailed {
					failed++
				} else {
					completed++
				}
				s.reporter.TaskFinished(res)
			}
		}

		if running == 0 && waiting == 0 {
			break
		}

		if loopCount%s.progressEvery == 0 {
			s.logger.Infof("Running: %d - Waiting: %d - Completed: %d - Failed: %d", running, waiting, completed, failed)
		}
		loopCount++
		time.Sleep(s.pollInterval)
	}

	return nil
}
