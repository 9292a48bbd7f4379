// Package model defines the data structures shared by every stage of a
// coverage run: the run itself, the repository analysis, the modification
// plan proposed for Gcov compatibility, and the parsed coverage results.
//
// The types carry JSON tags because runs are persisted to the history
// database and printed with --json. ModificationPlan keeps the wire shape
// the LLM is asked to answer with, so a model response decodes into it
// directly.
package model
