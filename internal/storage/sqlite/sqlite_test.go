package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafan/terrafan/internal/model"
	"github.com/terrafan/terrafan/internal/storage/sqlite"
)

func newTestRepository(t *testing.T) *sqlite.Repository {
	t.Helper()

	repo, err := sqlite.NewRepository(context.TODO(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "terrafan.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func testRun(action model.Action, total, failed int) model.Run {
	now := time.Now().UTC().Truncate(time.Second)
	return model.Run{
		ID:         ulid.Make().String(),
		Action:     action,
		Total:      total,
		Completed:  total - failed,
		Failed:     failed,
		CreatedAt:  now,
		FinishedAt: now.Add(2 * time.Minute),
	}
}

func TestRepositoryConfigValidation(t *testing.T) {
	_, err := sqlite.NewRepository(context.TODO(), sqlite.RepositoryConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db path is required")
}

func TestRepositoryUsableAfterMigrations(t *testing.T) {
	repo := newTestRepository(t)

	// The migration teardown must leave the shared DB connection open, so reads
	// and writes right after construction work.
	got, err := repo.ListRuns(context.TODO())
	require.NoError(t, err)
	assert.Empty(t, got)

	run := testRun(model.ActionPlan, 1, 0)
	require.NoError(t, repo.CreateRun(context.TODO(), run, nil))

	gotRun, _, err := repo.GetRun(context.TODO(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, *gotRun)
}

func TestCreateAndGetRun(t *testing.T) {
	repo := newTestRepository(t)

	run := testRun(model.ActionApply, 2, 1)
	now := run.CreatedAt
	tasks := []model.TaskResult{
		{
			Workspace:  model.Workspace{Dir: "infra/net"},
			Action:     model.ActionApply,
			Status:     model.TaskStatusCompleted,
			StartedAt:  now,
			FinishedAt: now.Add(time.Minute),
		},
		{
			Workspace:  model.Workspace{Dir: "infra/db"},
			Action:     model.ActionApply,
			Status:     model.TaskStatusFailed,
			ExitCode:   1,
			Error:      "terraform exited with status 1: action failed",
			StartedAt:  now,
			FinishedAt: now.Add(2 * time.Minute),
		},
	}

	err := repo.CreateRun(context.TODO(), run, tasks)
	require.NoError(t, err)

	gotRun, gotTasks, err := repo.GetRun(context.TODO(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, run, *gotRun)
	require.Len(t, gotTasks, 2)
	// Output is not persisted, everything else round-trips in order.
	assert.Equal(t, tasks, gotTasks)
}

func TestCreateRunValidation(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.CreateRun(context.TODO(), model.Run{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestGetRunNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, _, err := repo.GetRun(context.TODO(), "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.ListRuns(context.TODO())
	require.NoError(t, err)
	assert.Empty(t, got)

	old := testRun(model.ActionPlan, 3, 0)
	old.CreatedAt = old.CreatedAt.Add(-time.Hour)
	recent := testRun(model.ActionApply, 3, 1)

	require.NoError(t, repo.CreateRun(context.TODO(), old, nil))
	require.NoError(t, repo.CreateRun(context.TODO(), recent, nil))

	got, err = repo.ListRuns(context.TODO())
	require.NoError(t, err)

	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, recent.ID, got[0].ID)
	assert.Equal(t, old.ID, got[1].ID)
}
