package storage

import (
	"context"

	"github.com/terrafan/terrafan/internal/model"
)

// Repository is the interface for run history persistence.
type Repository interface {
	// CreateRun stores a finished run with its per-task outcomes.
	CreateRun(ctx context.Context, run model.Run, tasks []model.TaskResult) error
	// GetRun returns a run and its task outcomes by ID.
	GetRun(ctx context.Context, id string) (*model.Run, []model.TaskResult, error)
	// ListRuns returns all stored runs, newest first.
	ListRuns(ctx context.Context) ([]model.Run, error)
}
