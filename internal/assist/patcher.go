package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/nao1215/covgen/internal/model"
)

// Markers placed between the original build file and appended lines.
const (
	MakefileMarker = "\n\n# Gcov Coverage Flags\n"
	CMakeMarker    = "\n\n# Gcov Coverage Configuration\n"
)

const (
	makefileName = "Makefile"
	cmakeName    = "CMakeLists.txt"
	backupSuffix = ".bak"
)

// FileChange is the planned new content of one file.
type FileChange struct {
	// Path is relative to the repository root, with forward slashes.
	Path string

	// Before is the current content. Empty when the file does not exist.
	Before string

	// After is the content once the plan is applied.
	After string

	// Exists reports whether Path exists before applying.
	Exists bool
}

// Diff returns a unified diff of the change.
func (c FileChange) Diff() (string, error) {
	from := "a/" + c.Path
	if !c.Exists {
		from = "/dev/null"
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(c.Before),
		B:        difflib.SplitLines(c.After),
		FromFile: from,
		ToFile:   "b/" + c.Path,
		Context:  3,
	})
}

// Patcher applies modification plans to a working tree and undoes them.
type Patcher struct {
	root   string
	logger *slog.Logger
}

// NewPatcher returns a Patcher for the tree at root.
func NewPatcher(root string, logger *slog.Logger) *Patcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Patcher{root: root, logger: logger}
}

// Changes computes the file changes of plan without touching the tree.
//
// Makefile lines are appended to the root Makefile, or form a new Makefile
// when there is none. CMake lines are appended to an existing root
// CMakeLists.txt and ignored otherwise. Missing files are written as given.
func (p *Patcher) Changes(plan *model.ModificationPlan) ([]FileChange, error) {
	if plan.IsEmpty() {
		return nil, nil
	}
	m := plan.Modifications
	var changes []FileChange

	if len(m.MakefileChanges) > 0 {
		before, exists, err := p.read(makefileName)
		if err != nil {
			return nil, err
		}
		after := strings.Join(m.MakefileChanges, "\n")
		if exists {
			after = before + MakefileMarker + after
		}
		changes = append(changes, FileChange{Path: makefileName, Before: before, After: after, Exists: exists})
	}

	if len(m.CMakeChanges) > 0 {
		before, exists, err := p.read(cmakeName)
		if err != nil {
			return nil, err
		}
		if exists {
			after := before + CMakeMarker + strings.Join(m.CMakeChanges, "\n")
			changes = append(changes, FileChange{Path: cmakeName, Before: before, After: after, Exists: true})
		} else {
			p.logger.Debug("no CMakeLists.txt, skipping cmake changes")
		}
	}

	for _, f := range m.MissingFiles {
		rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(f.Path)))
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, f.Path)
		}
		before, exists, err := p.read(rel)
		if err != nil {
			return nil, err
		}
		changes = append(changes, FileChange{Path: rel, Before: before, After: f.Content, Exists: exists})
	}

	return changes, nil
}

// Apply writes plan to the tree and returns every touched file for
// Rollback. Existing files are renamed to a backup first. When applying
// fails halfway, the files already touched are restored before returning.
func (p *Patcher) Apply(plan *model.ModificationPlan) ([]model.AppliedModification, error) {
	changes, err := p.Changes(plan)
	if err != nil {
		return nil, err
	}

	applied := make([]model.AppliedModification, 0, len(changes))
	for _, c := range changes {
		mod, err := p.write(c)
		if err != nil {
			if rbErr := p.Rollback(applied); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return nil, fmt.Errorf("failed to apply %s: %w", c.Path, err)
		}
		applied = append(applied, mod)
		p.logDiff(c)
	}

	p.logger.Debug("modifications applied", "files", len(applied))
	return applied, nil
}

// Rollback undoes Apply in reverse order. Backups replace the modified
// files and created files are removed. Every entry is attempted; the
// failures are joined into the returned error.
func (p *Patcher) Rollback(applied []model.AppliedModification) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		mod := applied[i]
		if mod.Created {
			if err := os.Remove(mod.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", mod.Path, err))
			}
			continue
		}
		if err := os.Remove(mod.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove modified %s: %w", mod.Path, err))
			continue
		}
		if err := os.Rename(mod.BackupPath, mod.Path); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", mod.Path, err))
		}
	}
	if len(errs) == 0 && len(applied) > 0 {
		p.logger.Debug("modifications rolled back", "files", len(applied))
	}
	return errors.Join(errs...)
}

func (p *Patcher) abs(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func (p *Patcher) read(rel string) (string, bool, error) {
	data, err := os.ReadFile(p.abs(rel))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), true, nil
}

func (p *Patcher) write(c FileChange) (model.AppliedModification, error) {
	path := p.abs(c.Path)
	mod := model.AppliedModification{Path: path, Created: !c.Exists}

	if c.Exists {
		backup := backupPath(path)
		if err := os.Rename(path, backup); err != nil {
			return mod, fmt.Errorf("failed to back up: %w", err)
		}
		mod.BackupPath = backup
	} else if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return mod, fmt.Errorf("failed to create parent directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(c.After), 0o644); err != nil { //nolint:gosec // build files must stay readable
		if mod.BackupPath != "" {
			_ = os.Rename(mod.BackupPath, path)
		}
		return mod, err
	}
	return mod, nil
}

// backupPath returns path.bak, or path.bak.N when earlier backups exist.
func backupPath(path string) string {
	candidate := path + backupSuffix
	for i := 1; ; i++ {
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = path + backupSuffix + "." + strconv.Itoa(i)
	}
}

func (p *Patcher) logDiff(c FileChange) {
	if !p.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	diff, err := c.Diff()
	if err != nil {
		p.logger.Debug("could not render diff", "path", c.Path, "error", err)
		return
	}
	p.logger.Debug("modified file", "path", c.Path, "diff", diff)
}
