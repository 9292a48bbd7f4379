package build

import "errors"

var (
	// ErrUnsupportedProject is returned for trees that are not C or C++.
	ErrUnsupportedProject = errors.New("coverage generation is only implemented for C and C++ projects")

	// ErrBuildFailed is returned when no build path produced binaries.
	ErrBuildFailed = errors.New("build with coverage instrumentation failed")
)
