package pipeline

import "errors"

var (
	// ErrStopped is returned by a step to end the run early without
	// failing it, as --dry-run does after planning.
	ErrStopped = errors.New("pipeline stopped")

	// ErrDeclined is returned when the user rejects the modifications a
	// repository needs.
	ErrDeclined = errors.New("modifications declined by user")

	// ErrNotDirectory is returned when a --local path is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)
