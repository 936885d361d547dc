package orchestrator

import (
	"fmt"

	"github.com/terrafan/terrafan/internal/log"
	"github.com/terrafan/terrafan/internal/model"
)

// DefaultBytesPerTask is the default memory estimate reserved per running task.
const DefaultBytesPerTask = 512 * 1024 * 1024

// BudgetConfig is the configuration for the concurrency budget calculator.
type BudgetConfig struct {
	// TotalMemoryBytes is the host physical memory. 0 probes the host.
	TotalMemoryBytes uint64
	// BytesPerTask is the per-task memory estimate. 0 uses DefaultBytesPerTask.
	BytesPerTask uint64
	// MaxTasks overrides the computed budget outright when > 0.
	MaxTasks int

	Logger log.Logger
}

// NewBudget derives the maximum number of simultaneously running tasks from the
// host physical memory and the per-task memory estimate. It is computed once per
// invocation and immutable for its duration.
func NewBudget(cfg BudgetConfig) (int, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Noop
	}

	if cfg.MaxTasks != 0 {
		if cfg.MaxTasks < 0 {
			return 0, fmt.Errorf("max tasks override must be positive, got %d: %w", cfg.MaxTasks, model.ErrNotValid)
		}
		logger.Debugf("Concurrency budget overridden to %d tasks", cfg.MaxTasks)
		return cfg.MaxTasks, nil
	}

	bytesPerTask := cfg.BytesPerTask
	if bytesPerTask == 0 {
		bytesPerTask = DefaultBytesPerTask
	}

	total := cfg.TotalMemoryBytes
	if total == 0 {
		var err error
		total, err = hostTotalMemory()
		if err != nil {
			return 0, fmt.Errorf("could not get host memory: %w", err)
		}
	}

	budget := int(total / bytesPerTask)
	if budget < 1 {
		return 0, fmt.Errorf("budget of %d tasks (memory %d B, %d B per task) is not positive: %w",
			budget, total, bytesPerTask, model.ErrNotValid)
	}

	logger.Debugf("Concurrency budget: %d tasks (%d B memory, %d B per task)", budget, total, bytesPerTask)
	return budget, nil
}
