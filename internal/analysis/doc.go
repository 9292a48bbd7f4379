// Package analysis inspects a checked-out repository: which languages and
// build system it uses, where its tests are, and whether it can already be
// built with Gcov instrumentation.
//
// Scanner walks the tree once and produces a model.RepoAnalysis. Checker
// runs a set of Check implementations over that analysis and reports every
// compatibility issue found. A repository with no issues is measured
// directly; otherwise the assist package plans temporary modifications.
package analysis
