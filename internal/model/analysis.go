package model

import "strings"

// BuildSystem is the build tool detected in a repository.
type BuildSystem string

const (
	// BuildSystemCMake means a CMakeLists.txt was found. It wins over make.
	BuildSystemCMake BuildSystem = "cmake"

	// BuildSystemMake means a Makefile or Makefile.am was found.
	BuildSystemMake BuildSystem = "make"

	// BuildSystemSimple means sources exist but no build files at all.
	BuildSystemSimple BuildSystem = "simple"

	// BuildSystemUnknown covers everything else, such as autoconf-only trees.
	BuildSystemUnknown BuildSystem = "unknown"
)

// Language identifiers used in RepoAnalysis.Languages.
const (
	LanguageC   = "c"
	LanguageCPP = "c++"
)

// ProjectTypeUnknown is the project type of a tree without C/C++ sources.
const ProjectTypeUnknown = "unknown"

// RepoAnalysis describes the structure of a checked-out repository.
// All paths are relative to the repository root and use forward slashes.
type RepoAnalysis struct {
	// ProjectType is the detected languages joined with "/", e.g. "c/c++".
	ProjectType string `json:"project_type"`

	// BuildSystem is the detected build tool.
	BuildSystem BuildSystem `json:"build_system"`

	// Languages lists detected languages in first-seen order.
	Languages []string `json:"languages"`

	// SourceFiles lists C and C++ translation units.
	SourceFiles []string `json:"source_files"`

	// BuildFiles lists Makefiles, CMakeLists.txt and autoconf inputs.
	BuildFiles []string `json:"build_files"`

	// TestFiles lists files that look like tests.
	TestFiles []string `json:"test_files"`

	// HeaderFiles lists C and C++ headers. They are not compiled on their
	// own but are shown in the analysis summary.
	HeaderFiles []string `json:"header_files,omitempty"`

	HasMakefile bool `json:"has_makefile"`
	HasCMake    bool `json:"has_cmake"`
	HasTests    bool `json:"has_tests"`
}

// NewRepoAnalysis returns an analysis with no findings.
func NewRepoAnalysis() *RepoAnalysis {
	return &RepoAnalysis{
		ProjectType: ProjectTypeUnknown,
		BuildSystem: BuildSystemUnknown,
		Languages:   []string{},
		SourceFiles: []string{},
		BuildFiles:  []string{},
		TestFiles:   []string{},
	}
}

// AddLanguage records lang once, keeping first-seen order.
func (a *RepoAnalysis) AddLanguage(lang string) {
	for _, l := range a.Languages {
		if l == lang {
			return
		}
	}
	a.Languages = append(a.Languages, lang)
}

// Finalize derives ProjectType and BuildSystem from the collected files.
func (a *RepoAnalysis) Finalize() {
	if len(a.Languages) > 0 {
		a.ProjectType = strings.Join(a.Languages, "/")
	}

	switch {
	case a.HasCMake:
		a.BuildSystem = BuildSystemCMake
	case a.HasMakefile:
		a.BuildSystem = BuildSystemMake
	case len(a.SourceFiles) > 0 && len(a.BuildFiles) == 0:
		a.BuildSystem = BuildSystemSimple
	default:
		a.BuildSystem = BuildSystemUnknown
	}
}

// IsCFamily reports whether the project can be built with gcc/g++.
func (a *RepoAnalysis) IsCFamily() bool {
	if len(a.Languages) == 0 {
		return false
	}
	for _, l := range a.Languages {
		if l != LanguageC && l != LanguageCPP {
			return false
		}
	}
	return true
}

// CompatibilityIssue is one reason a repository cannot be measured as-is.
type CompatibilityIssue struct {
	// Check is the name of the check that raised the issue.
	Check string `json:"check"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// File is the build file the issue refers to, if any.
	File string `json:"file,omitempty"`
}

// IssueMessages returns the messages of issues in order.
func IssueMessages(issues []CompatibilityIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Message
	}
	return out
}
