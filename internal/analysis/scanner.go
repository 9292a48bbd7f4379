package analysis

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"

	"github.com/nao1215/covgen/internal/model"
)

// DefaultIgnore lists paths never inspected. Patterns use doublestar syntax
// against slash-separated paths relative to the repository root.
var DefaultIgnore = []string{
	"**/.git",
	"**/.hg",
	"**/.svn",
}

// sourceExtensions are compiled as translation units.
var sourceExtensions = map[string]bool{
	".c":   true,
	".cpp": true,
	".cc":  true,
	".cxx": true,
	".c++": true,
}

// headerExtensions are listed but never compiled on their own.
var headerExtensions = map[string]bool{
	".h":   true,
	".hh":  true,
	".hpp": true,
	".hxx": true,
}

// testDirs are directory names whose files count as tests.
var testDirs = map[string]bool{
	"test":  true,
	"tests": true,
}

// Scanner walks a repository and classifies its files.
type Scanner struct {
	ignore []string
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithIgnore adds doublestar patterns to skip.
func WithIgnore(patterns ...string) ScannerOption {
	return func(s *Scanner) {
		s.ignore = append(s.ignore, patterns...)
	}
}

// NewScanner creates a Scanner that skips DefaultIgnore.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{ignore: append([]string(nil), DefaultIgnore...)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and returns its analysis. Paths in the result are
// relative to root and slash-separated.
func (s *Scanner) Scan(ctx context.Context, root string) (*model.RepoAnalysis, error) {
	a := model.NewRepoAnalysis()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if s.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		classify(a, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	a.Finalize()
	return a, nil
}

func (s *Scanner) ignored(rel string) bool {
	for _, pattern := range s.ignore {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// classify records one file. Build files are only build files; any other
// file may be both a source and a test (tests/test_calc.c is both).
func classify(a *model.RepoAnalysis, rel string) {
	name := strings.ToLower(path.Base(rel))
	ext := strings.ToLower(path.Ext(rel))

	switch name {
	case "makefile", "gnumakefile", "makefile.am":
		a.HasMakefile = true
		a.BuildFiles = append(a.BuildFiles, rel)
		return
	case "cmakelists.txt":
		a.HasCMake = true
		a.BuildFiles = append(a.BuildFiles, rel)
		return
	case "configure.ac", "configure.in":
		a.BuildFiles = append(a.BuildFiles, rel)
		return
	}

	switch {
	case sourceExtensions[ext]:
		a.SourceFiles = append(a.SourceFiles, rel)
		a.AddLanguage(languageOf(rel, ext))
	case headerExtensions[ext]:
		a.HeaderFiles = append(a.HeaderFiles, rel)
	}

	if isTest(rel, name) {
		a.TestFiles = append(a.TestFiles, rel)
		a.HasTests = true
	}
}

// languageOf maps a source file to "c" or "c++". enry resolves the
// extension; anything it does not call C is treated as C++ since only
// C-family extensions reach here.
func languageOf(rel, ext string) string {
	switch enry.GetLanguage(path.Base(rel), nil) {
	case "C":
		return model.LanguageC
	case "C++":
		return model.LanguageCPP
	}
	if ext == ".c" {
		return model.LanguageC
	}
	return model.LanguageCPP
}

// isTest applies the naming rules for tests. Vendored code is never the
// project's test suite.
func isTest(rel, lowerName string) bool {
	if enry.IsVendor(rel) {
		return false
	}
	if strings.Contains(lowerName, "test") {
		return true
	}
	parent := strings.ToLower(path.Base(path.Dir(rel)))
	return testDirs[parent]
}
