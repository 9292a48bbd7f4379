package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/covgen/internal/model"
)

// Issue messages. They are shown to the user and sent to the LLM.
const (
	MsgMakefileFlags   = "Makefile missing Gcov coverage flags"
	MsgMakefileLink    = "Makefile missing Gcov linking flags"
	MsgCMakeCoverage   = "CMakeLists.txt missing coverage configuration"
	MsgNoTests         = "No test files found"
	MsgMultipleSources = "Multiple source files without build system"
)

// gccCoverageFlag is gcc's shorthand for -fprofile-arcs -ftest-coverage
// at compile time and -lgcov at link time.
const gccCoverageFlag = "--coverage"

// firstMakefile returns the first build file whose path mentions makefile.
func firstMakefile(a *model.RepoAnalysis) string {
	for _, f := range a.BuildFiles {
		if strings.Contains(strings.ToLower(f), "makefile") {
			return f
		}
	}
	return ""
}

func readBuildFile(root, rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // path comes from our own scan
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MakefileFlagsCheck requires the compile-time coverage flags.
type MakefileFlagsCheck struct{}

// NewMakefileFlagsCheck creates the check.
func NewMakefileFlagsCheck() *MakefileFlagsCheck { return &MakefileFlagsCheck{} }

// Name implements Check.
func (*MakefileFlagsCheck) Name() string { return "makefile_flags" }

// Check implements Check.
func (c *MakefileFlagsCheck) Check(_ context.Context, root string, a *model.RepoAnalysis) ([]model.CompatibilityIssue, error) {
	if !a.HasMakefile {
		return nil, nil
	}
	mf := firstMakefile(a)
	if mf == "" {
		return nil, nil
	}
	content, err := readBuildFile(root, mf)
	if err != nil {
		return nil, err
	}
	if strings.Contains(content, gccCoverageFlag) {
		return nil, nil
	}
	if !strings.Contains(content, "-fprofile-arcs") || !strings.Contains(content, "-ftest-coverage") {
		return []model.CompatibilityIssue{{Check: c.Name(), Message: MsgMakefileFlags, File: mf}}, nil
	}
	return nil, nil
}

// MakefileLinkCheck requires linking against libgcov.
type MakefileLinkCheck struct{}

// NewMakefileLinkCheck creates the check.
func NewMakefileLinkCheck() *MakefileLinkCheck { return &MakefileLinkCheck{} }

// Name implements Check.
func (*MakefileLinkCheck) Name() string { return "makefile_link" }

// Check implements Check.
func (c *MakefileLinkCheck) Check(_ context.Context, root string, a *model.RepoAnalysis) ([]model.CompatibilityIssue, error) {
	if !a.HasMakefile {
		return nil, nil
	}
	mf := firstMakefile(a)
	if mf == "" {
		return nil, nil
	}
	content, err := readBuildFile(root, mf)
	if err != nil {
		return nil, err
	}
	if strings.Contains(content, "-lgcov") || strings.Contains(content, gccCoverageFlag) {
		return nil, nil
	}
	return []model.CompatibilityIssue{{Check: c.Name(), Message: MsgMakefileLink, File: mf}}, nil
}

// CMakeCoverageCheck requires every CMake file to mention coverage or gcov.
type CMakeCoverageCheck struct{}

// NewCMakeCoverageCheck creates the check.
func NewCMakeCoverageCheck() *CMakeCoverageCheck { return &CMakeCoverageCheck{} }

// Name implements Check.
func (*CMakeCoverageCheck) Name() string { return "cmake_coverage" }

// Check implements Check.
func (c *CMakeCoverageCheck) Check(_ context.Context, root string, a *model.RepoAnalysis) ([]model.CompatibilityIssue, error) {
	if !a.HasCMake {
		return nil, nil
	}
	var issues []model.CompatibilityIssue
	for _, f := range a.BuildFiles {
		if !strings.Contains(strings.ToLower(f), "cmake") {
			continue
		}
		content, err := readBuildFile(root, f)
		if err != nil {
			continue
		}
		lower := strings.ToLower(content)
		if !strings.Contains(lower, "coverage") && !strings.Contains(lower, "gcov") {
			issues = append(issues, model.CompatibilityIssue{Check: c.Name(), Message: MsgCMakeCoverage, File: f})
		}
	}
	return issues, nil
}

// TestsPresentCheck requires at least one test file.
type TestsPresentCheck struct{}

// NewTestsPresentCheck creates the check.
func NewTestsPresentCheck() *TestsPresentCheck { return &TestsPresentCheck{} }

// Name implements Check.
func (*TestsPresentCheck) Name() string { return "tests_present" }

// Check implements Check.
func (c *TestsPresentCheck) Check(_ context.Context, _ string, a *model.RepoAnalysis) ([]model.CompatibilityIssue, error) {
	if a.HasTests {
		return nil, nil
	}
	return []model.CompatibilityIssue{{Check: c.Name(), Message: MsgNoTests}}, nil
}

// SimpleBuildCheck flags several sources with nothing describing how to
// link them together.
type SimpleBuildCheck struct{}

// NewSimpleBuildCheck creates the check.
func NewSimpleBuildCheck() *SimpleBuildCheck { return &SimpleBuildCheck{} }

// Name implements Check.
func (*SimpleBuildCheck) Name() string { return "simple_build" }

// Check implements Check.
func (c *SimpleBuildCheck) Check(_ context.Context, _ string, a *model.RepoAnalysis) ([]model.CompatibilityIssue, error) {
	if a.BuildSystem == model.BuildSystemSimple && len(a.SourceFiles) > 1 {
		return []model.CompatibilityIssue{{Check: c.Name(), Message: MsgMultipleSources}}, nil
	}
	return nil, nil
}
