package model

import (
	"strconv"
	"strings"
)

// Plan sources recorded in CoverageRun.PlanSource.
const (
	PlanSourceBedrock  = "bedrock"
	PlanSourceFallback = "fallback"
)

// ModificationPlan is the set of temporary changes that make a repository
// Gcov compatible. Its JSON shape is the one the LLM is asked to produce:
//
//	{
//	  "modifications": {
//	    "makefile_changes": ["line1"],
//	    "cmake_changes": ["line1"],
//	    "test_compilation": "command",
//	    "gcov_commands": ["cmd1"],
//	    "missing_files": [{"path": "p", "content": "c"}]
//	  },
//	  "explanation": "text"
//	}
type ModificationPlan struct {
	Modifications Modifications `json:"modifications"`
	Explanation   string        `json:"explanation"`
}

// Modifications holds the concrete changes of a plan.
type Modifications struct {
	// MakefileChanges are lines appended to the root Makefile, or the
	// content of a new Makefile when none exists.
	MakefileChanges []string `json:"makefile_changes"`

	// CMakeChanges are lines appended to the root CMakeLists.txt.
	CMakeChanges []string `json:"cmake_changes"`

	// TestCompilation is a shell command that builds the tests with
	// coverage. It is tried before the regular build.
	TestCompilation string `json:"test_compilation"`

	// GcovCommands replace the default per-source gcov invocations.
	GcovCommands []string `json:"gcov_commands"`

	// MissingFiles are created before building and removed afterwards.
	MissingFiles []MissingFile `json:"missing_files"`
}

// MissingFile is a file the plan creates.
type MissingFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewEmptyPlan returns a plan that changes nothing.
func NewEmptyPlan(explanation string) *ModificationPlan {
	return &ModificationPlan{
		Modifications: Modifications{
			MakefileChanges: []string{},
			CMakeChanges:    []string{},
			GcovCommands:    []string{},
			MissingFiles:    []MissingFile{},
		},
		Explanation: explanation,
	}
}

// IsEmpty reports whether applying the plan would touch no file.
func (p *ModificationPlan) IsEmpty() bool {
	if p == nil {
		return true
	}
	m := p.Modifications
	return len(m.MakefileChanges) == 0 && len(m.CMakeChanges) == 0 && len(m.MissingFiles) == 0
}

// Describe returns one line per kind of change, for confirmation prompts.
func (p *ModificationPlan) Describe() []string {
	if p == nil {
		return nil
	}
	var lines []string
	m := p.Modifications
	if n := len(m.MakefileChanges); n > 0 {
		lines = append(lines, "Makefile: "+plural(n, "change"))
	}
	if n := len(m.CMakeChanges); n > 0 {
		lines = append(lines, "CMake: "+plural(n, "change"))
	}
	if n := len(m.MissingFiles); n > 0 {
		lines = append(lines, "New files: "+plural(n, "file"))
	}
	if strings.TrimSpace(m.TestCompilation) != "" {
		lines = append(lines, "Test compilation: "+m.TestCompilation)
	}
	if n := len(m.GcovCommands); n > 0 {
		lines = append(lines, "Gcov: "+plural(n, "command"))
	}
	return lines
}

// AppliedModification records one file touched while applying a plan.
type AppliedModification struct {
	// Path is the modified or created file.
	Path string `json:"path"`

	// BackupPath holds the original content. Empty for created files.
	BackupPath string `json:"backup_path,omitempty"`

	// Created is true when Path did not exist before.
	Created bool `json:"created"`
}

func plural(n int, word string) string {
	s := strconv.Itoa(n) + " " + word
	if n != 1 {
		s += "s"
	}
	return s
}
