// Package main provides the entry point for the covgen CLI.
//
// covgen produces a line coverage report for a C/C++ Git repository. It
// clones the repository, makes the build Gcov compatible when needed,
// builds and runs the tests with coverage instrumentation and renders an
// HTML report.
//
// Usage:
//
//	covgen run [repository-url]
//	covgen generate <repository-url>...
//	covgen generate --local <dir>
//
// See --help for all available options.
package main

// main is the entry point for covgen.
func main() {
	Execute()
}
