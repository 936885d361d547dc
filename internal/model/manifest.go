package model

import "fmt"

// Manifest is a declarative description of a parallel run: the workspaces to
// fan out over and the run settings normally passed as flags.
type Manifest struct {
	Workspaces        []Workspace
	TerraformVersion  string
	MemoryPerTaskMB   int
	MaxParallel       int
	BackendConfigFile string
}

// Validate checks manifest consistency.
func (m Manifest) Validate() error {
	if len(m.Workspaces) == 0 {
		return fmt.Errorf("at least one workspace is required: %w", ErrNotValid)
	}
	if m.MemoryPerTaskMB < 0 {
		return fmt.Errorf("memory per task must be positive: %w", ErrNotValid)
	}
	if m.MaxParallel < 0 {
		return fmt.Errorf("max parallel must be positive: %w", ErrNotValid)
	}
	return nil
}
