package orchestrator

import (
	"context"
	"time"

	"github.com/terrafan/terrafan/internal/model"
)

// ExecFunc performs one workspace action out of process and returns the tool's
// captured output. It must only return once the underlying process has exited.
type ExecFunc func(ctx context.Context) (output string, err error)

// Task is one (workspace, action) unit of work. It owns no resources before
// admission; once started it exclusively owns its workspace's tool process until
// that process exits. Its status is mutated only by the scheduler.
type Task struct {
	workspace model.Workspace
	action    model.Action
	exec      ExecFunc

	status     model.TaskStatus
	startedAt  time.Time
	finishedAt time.Time

	// Written by the wait goroutine before done is closed, read only after
	// observing done closed.
	output string
	err    error
	done   chan struct{}
}

// NewTask creates a task in the waiting state.
func NewTask(ws model.Workspace, action model.Action, exec ExecFunc) *Task {
	return &Task{
		workspace: ws,
		action:    action,
		exec:      exec,
		status:    model.TaskStatusWaiting,
		done:      make(chan struct{}),
	}
}

// Workspace returns the task's workspace.
func (t *Task) Workspace() model.Workspace { return t.workspace }

// Action returns the task's action.
func (t *Task) Action() model.Action { return t.action }

// Status returns the task's lifecycle state.
func (t *Task) Status() model.TaskStatus { return t.status }

// Start admits the task: it launches the execution and a single goroutine that
// waits for the process to exit and records the outcome.
func (t *Task) Start(ctx context.Context) {
	t.status = model.TaskStatusRunning
	t.startedAt = time.Now().UTC()

	go func() {
		out, err := t.exec(ctx)
		t.output = out
		t.err = err
		close(t.done)
	}()
}

// Finished reports whether the task's process has exited. It never blocks.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// finish moves the task to its terminal state and returns the result. It must
// only be called after Finished has returned true.
func (t *Task) finish() model.TaskResult {
	t.finishedAt = time.Now().UTC()

	res := model.TaskResult{
		Workspace:  t.workspace,
		Action:     t.action,
		Status:     model.TaskStatusCompleted,
		Output:     t.output,
		StartedAt:  t.startedAt,
		FinishedAt: t.finishedAt,
	}
	if t.err != nil {
		res.Status = model.TaskStatusFailed
		res.ExitCode = 1
		res.Error = t.err.Error()
	}

	t.status = res.Status
	return res
}
