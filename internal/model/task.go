package model

import (
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusWaiting indicates the task is registered but not yet started.
	TaskStatusWaiting TaskStatus = "waiting"
	// TaskStatusRunning indicates the task has been admitted and its process started.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task's process exited with status 0.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task's process exited with a non-zero status,
	// or failed before producing an exit status.
	TaskStatusFailed TaskStatus = "failed"
)

// Terminal returns true when no further transitions can occur.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskResult is the final outcome of one (workspace, action) execution.
type TaskResult struct {
	Workspace  Workspace
	Action     Action
	Status     TaskStatus
	ExitCode   int
	Error      string
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunSummary is the aggregate outcome of a run, computed once all tasks are terminal.
type RunSummary struct {
	Total     int
	Completed int
	Failed    int
	// FailedWorkspaces holds the names of failed workspaces, in the order their
	// failures were observed.
	FailedWorkspaces []string
}

// ExitCode returns the process exit status the invocation should terminate with.
func (s RunSummary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Run represents one recorded invocation of a parallel action.
type Run struct {
	ID         string
	Action     Action
	Total      int
	Completed  int
	Failed     int
	CreatedAt  time.Time
	FinishedAt time.Time
}
