package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/terrafan/terrafan/internal/log"
	"github.com/terrafan/terrafan/internal/model"
	"github.com/terrafan/terrafan/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite run history repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateRun stores a finished run with its per-task outcomes.
func (r *Repository) CreateRun(ctx context.Context, run model.Run, tasks []model.TaskResult) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit.

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, action, total, completed, failed, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Action,
		run.Total,
		run.Completed,
		run.Failed,
		run.CreatedAt.Unix(),
		run.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("could not insert run: %w", err)
	}

	if len(tasks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_tasks (id, run_id, sequence, workspace_dir, action, status, exit_code, error, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("could not prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, t := range tasks {
			_, err := stmt.ExecContext(ctx,
				ulid.Make().String(),
				run.ID,
				i+1,
				t.Workspace.Dir,
				t.Action,
				t.Status,
				t.ExitCode,
				t.Error,
				t.StartedAt.Unix(),
				t.FinishedAt.Unix(),
			)
			if err != nil {
				return fmt.Errorf("could not insert run task: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Stored run %s with %d tasks", run.ID, len(tasks))
	return nil
}

// GetRun returns a run and its task outcomes by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, []model.TaskResult, error) {
	var run model.Run
	var createdAt, finishedAt int64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, action, total, completed, failed, created_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Action, &run.Total, &run.Completed, &run.Failed, &createdAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("could not get run: %w", err)
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.FinishedAt = time.Unix(finishedAt, 0).UTC()

	rows, err := r.db.QueryContext(ctx, `
		SELECT workspace_dir, action, status, exit_code, error, started_at, finished_at
		FROM run_tasks
		WHERE run_id = ?
		ORDER BY sequence ASC
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.TaskResult
	for rows.Next() {
		var t model.TaskResult
		var startedAt, taskFinishedAt int64
		err := rows.Scan(&t.Workspace.Dir, &t.Action, &t.Status, &t.ExitCode, &t.Error, &startedAt, &taskFinishedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("could not scan run task: %w", err)
		}
		t.StartedAt = time.Unix(startedAt, 0).UTC()
		t.FinishedAt = time.Unix(taskFinishedAt, 0).UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("could not iterate run tasks: %w", err)
	}

	return &run, tasks, nil
}

// ListRuns returns all stored runs, newest first.
func (r *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, total, completed, failed, created_at, finished_at
		FROM runs
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var createdAt, finishedAt int64
		err := rows.Scan(&run.ID, &run.Action, &run.Total, &run.Completed, &run.Failed, &createdAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan run: %w", err)
		}
		run.CreatedAt = time.Unix(createdAt, 0).UTC()
		run.FinishedAt = time.Unix(finishedAt, 0).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate runs: %w", err)
	}

	return runs, nil
}
