package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrSetup is returned when the terraform binary could not even be invoked
	// (missing binary, bad working directory, environment problems).
	ErrSetup = errors.New("setup failed")
	// ErrActionFailed is returned when terraform ran and exited with a non-zero status.
	ErrActionFailed = errors.New("action failed")
)
