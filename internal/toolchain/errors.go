package toolchain

import "errors"

var (
	// ErrToolNotFound is returned when a required executable is not on PATH.
	ErrToolNotFound = errors.New("required tool not found on PATH")

	// ErrEmptyCommand is returned when a Command has no program name.
	ErrEmptyCommand = errors.New("empty command")
)
