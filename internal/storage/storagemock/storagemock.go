package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/terrafan/terrafan/internal/model"
)

// Repository is a testify mock for storage.Repository.
type Repository struct {
	mock.Mock
}

// CreateRun mock.
func (m *Repository) CreateRun(ctx context.Context, run model.Run, tasks []model.TaskResult) error {
	args := m.Called(ctx, run, tasks)
	return args.Error(0)
}

// GetRun mock.
func (m *Repository) GetRun(ctx context.Context, id string) (*model.Run, []model.TaskResult, error) {
	args := m.Called(ctx, id)
	var run *model.Run
	if args.Get(0) != nil {
		run = args.Get(0).(*model.Run)
	}
	var tasks []model.TaskResult
	if args.Get(1) != nil {
		tasks = args.Get(1).([]model.TaskResult)
	}
	return run, tasks, args.Error(2)
}

// ListRuns mock.
func (m *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	args := m.Called(ctx)
	var runs []model.Run
	if args.Get(0) != nil {
		runs = args.Get(0).([]model.Run)
	}
	return runs, args.Error(1)
}
