package gcov

import "errors"

var (
	// ErrNoCoverageData is returned when no gcov command succeeded and no
	// .gcov file exists.
	ErrNoCoverageData = errors.New("no coverage data generated")

	// ErrNoListings is returned by ParseDir when the tree has no .gcov files.
	ErrNoListings = errors.New("no .gcov files found")

	// ErrLcovFailed is returned when lcov or genhtml exits non-zero.
	ErrLcovFailed = errors.New("lcov report generation failed")
)
