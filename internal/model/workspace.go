package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Workspace represents one independently provisionable unit, identified by the
// directory that holds its terraform configuration.
type Workspace struct {
	// Dir is the workspace directory path.
	Dir string
}

// NewWorkspace creates a workspace from its directory path.
func NewWorkspace(dir string) (Workspace, error) {
	if strings.TrimSpace(dir) == "" {
		return Workspace{}, fmt.Errorf("workspace directory is required: %w", ErrNotValid)
	}
	return Workspace{Dir: dir}, nil
}

// Name returns the workspace display name, derived from the final path segment.
func (w Workspace) Name() string {
	return filepath.Base(filepath.Clean(w.Dir))
}

// Action is a terraform stage that can be executed on a workspace.
type Action string

const (
	// ActionInstall downloads the terraform binary.
	ActionInstall Action = "install"
	// ActionInit initializes a workspace.
	ActionInit Action = "init"
	// ActionPlan creates an execution plan for a workspace.
	ActionPlan Action = "plan"
	// ActionApply applies a workspace's execution plan.
	ActionApply Action = "apply"
)

// ParseAction validates and returns an action from its string form.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(s)); a {
	case ActionInstall, ActionInit, ActionPlan, ActionApply:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q: %w", s, ErrNotValid)
	}
}
