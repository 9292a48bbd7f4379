// Package launcher implements the one-command entry point: it prepares a
// reusable environment, runs the generator as a subprocess and opens the
// resulting report in the browser.
//
// The generator runs in a child process so that a crash or an os.Exit deep
// in a build tool never takes the launcher down before it can print the
// failure banner and forward the exit code.
package launcher
