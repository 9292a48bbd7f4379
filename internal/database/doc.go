// Package database provides SQLite-based storage for covgen's run history.
//
// Every finished coverage run is stored as its summary, so the history
// command can show how a repository's coverage changed over time and the
// opener can tell which run produced a report.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// database is a single file in the XDG data directory and the driver needs
// no CGO, which keeps the binary cross-compilable.
package database
