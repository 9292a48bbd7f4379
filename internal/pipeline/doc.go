// Package pipeline runs a coverage run through its steps in sequence.
//
// A run is cloned, analyzed, checked for Gcov compatibility, optionally
// patched, built with instrumentation, exercised, measured with gcov and
// rendered as an HTML report. Each stage is a Step that receives the
// current model.CoverageRun and records its output on it.
//
// Finalizers run after the steps no matter how they ended. The cleanup
// finalizer rolls back temporary modifications and removes the clone, so
// a failed build or an interrupt never leaves a patched tree behind.
//
// BatchProcessor runs several repositories concurrently with errgroup.
package pipeline
