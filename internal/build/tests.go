package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nao1215/covgen/internal/toolchain"
)

// ProgramPatterns locate programs worth running after a build, relative
// to the repository root.
var ProgramPatterns = []string{"*.exe", "test*", BuildDir + "/*.exe"}

// TestResult summarizes the test programs that ran.
type TestResult struct {
	Programs []string
	Failed   []string
}

// FindPrograms returns the executable files under root matching
// ProgramPatterns, sorted and without duplicates.
func FindPrograms(root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var programs []string

	for _, pattern := range ProgramPatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			info, err := fs.Stat(fsys, m)
			if err != nil || !isExecutable(info) {
				continue
			}
			programs = append(programs, m)
		}
	}
	sort.Strings(programs)
	return programs, nil
}

func isExecutable(info fs.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return filepath.Ext(info.Name()) == ".exe"
	}
	return info.Mode().Perm()&0o111 != 0
}

// RunTests runs every program found by FindPrograms from root. A failing
// program is recorded and the rest still run.
func (b *Builder) RunTests(ctx context.Context, root string) (*TestResult, error) {
	programs, err := FindPrograms(root)
	if err != nil {
		return nil, err
	}

	result := &TestResult{Programs: programs}
	if len(programs) == 0 {
		b.logger.Warn("no executables found to run")
		return result, nil
	}

	for _, p := range programs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		b.logger.Info("running test program", "program", p)
		res, err := b.runner.Run(ctx, toolchain.Command{
			Name:   filepath.Join(root, filepath.FromSlash(p)),
			Dir:    root,
			Stream: b.stream,
		})
		if err != nil && ctx.Err() != nil {
			return result, err
		}
		if err != nil || !res.Success() {
			b.logger.Warn("test program failed, continuing", "program", p)
			result.Failed = append(result.Failed, p)
		}
	}
	return result, nil
}
