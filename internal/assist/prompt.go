package assist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/covgen/internal/model"
)

// Prompt limits keep requests well inside the model's context window.
const (
	maxPromptSources    = 10
	maxPromptBuildFiles = 3
	maxBuildFileSize    = 10000
	maxBuildFileExcerpt = 1000
)

// BuildFileExcerpt is the content of one build file shown to the model.
type BuildFileExcerpt struct {
	Path    string
	Content string
}

// PromptContext is everything the model sees about the repository.
type PromptContext struct {
	ProjectType string
	BuildSystem string
	SourceFiles []string
	HasTests    bool
	Issues      []string
	BuildFiles  []BuildFileExcerpt
}

// NewPromptContext collects the prompt inputs. Only the first few build
// files under maxBuildFileSize bytes are read.
func NewPromptContext(root string, a *model.RepoAnalysis, issues []model.CompatibilityIssue) PromptContext {
	pc := PromptContext{
		ProjectType: a.ProjectType,
		BuildSystem: string(a.BuildSystem),
		SourceFiles: a.SourceFiles,
		HasTests:    a.HasTests,
		Issues:      model.IssueMessages(issues),
	}
	if len(pc.SourceFiles) > maxPromptSources {
		pc.SourceFiles = pc.SourceFiles[:maxPromptSources]
	}

	for i, rel := range a.BuildFiles {
		if i >= maxPromptBuildFiles {
			break
		}
		p := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(p)
		if err != nil || info.Size() >= maxBuildFileSize {
			continue
		}
		data, err := os.ReadFile(p) //nolint:gosec // path comes from our own scan
		if err != nil {
			continue
		}
		pc.BuildFiles = append(pc.BuildFiles, BuildFileExcerpt{Path: rel, Content: string(data)})
	}
	return pc
}

// BuildPrompt renders the request for build-file modifications.
func BuildPrompt(pc PromptContext) string {
	var b strings.Builder

	b.WriteString("You are a C/C++ build system expert. Help make this repository compatible with Gcov code coverage.\n\n")
	b.WriteString("Repository Analysis:\n")
	fmt.Fprintf(&b, "- Project Type: %s\n", pc.ProjectType)
	fmt.Fprintf(&b, "- Build System: %s\n", pc.BuildSystem)
	fmt.Fprintf(&b, "- Source Files: %s\n", strings.Join(pc.SourceFiles, ", "))
	fmt.Fprintf(&b, "- Has Tests: %t\n\n", pc.HasTests)

	b.WriteString("Compatibility Issues Found:\n")
	for _, issue := range pc.Issues {
		fmt.Fprintf(&b, "- %s\n", issue)
	}

	b.WriteString("\nCurrent Build Files:\n")
	for _, f := range pc.BuildFiles {
		fmt.Fprintf(&b, "\n=== %s ===\n%s...\n", f.Path, truncateRunes(f.Content, maxBuildFileExcerpt))
	}

	b.WriteString(`

Please provide SPECIFIC modifications to make this repository Gcov-compatible:

1. MAKEFILE_CHANGES: Exact lines to add/modify in Makefile (if applicable)
2. CMAKE_CHANGES: Exact lines to add/modify in CMakeLists.txt (if applicable)
3. TEST_COMPILATION: How to compile tests with coverage
4. GCOV_COMMANDS: Exact commands to generate coverage data
5. MISSING_FILES: Any files that need to be created

Respond in JSON format:
{
    "modifications": {
        "makefile_changes": ["line1", "line2"],
        "cmake_changes": ["line1", "line2"],
        "test_compilation": "exact command",
        "gcov_commands": ["cmd1", "cmd2"],
        "missing_files": [{"path": "filename", "content": "file content"}]
    },
    "explanation": "Brief explanation of changes"
}`)

	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
