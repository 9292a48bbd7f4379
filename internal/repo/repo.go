// Package repo fetches the repository a coverage run works on.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	covlog "github.com/nao1215/covgen/internal/log"
	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/toolchain"
)

// ErrCloneFailed is returned when git clone exits non-zero.
var ErrCloneFailed = errors.New("failed to clone repository")

// tempPrefix names the temporary directories holding clones.
const tempPrefix = "covgen-"

// Cloner clones repositories into fresh temporary directories.
type Cloner struct {
	runner  toolchain.Runner
	logger  *slog.Logger
	baseDir string
	stream  io.Writer
}

// Option configures a Cloner.
type Option func(*Cloner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cloner) {
		c.logger = logger
	}
}

// WithBaseDir creates temporary directories under dir instead of the
// system temp directory.
func WithBaseDir(dir string) Option {
	return func(c *Cloner) {
		c.baseDir = dir
	}
}

// WithStream sends git's progress output to w.
func WithStream(w io.Writer) Option {
	return func(c *Cloner) {
		c.stream = w
	}
}

// NewCloner creates a Cloner that runs git through runner.
func NewCloner(runner toolchain.Runner, opts ...Option) *Cloner {
	c := &Cloner{
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone clones url into <tmp>/<repoName> and returns the checkout path and
// the temporary directory. The temporary directory is removed on failure;
// on success the caller owns it and must call Remove.
func (c *Cloner) Clone(ctx context.Context, url, repoName string) (workDir, tempDir string, err error) {
	if err := model.ValidateRepoURL(url); err != nil {
		return "", "", fmt.Errorf("%w: %q", err, covlog.RedactURL(url))
	}

	if c.baseDir != "" {
		if err := os.MkdirAll(c.baseDir, 0o750); err != nil {
			return "", "", fmt.Errorf("failed to create clone directory: %w", err)
		}
	}
	tempDir, err = os.MkdirTemp(c.baseDir, tempPrefix)
	if err != nil {
		return "", "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	workDir = filepath.Join(tempDir, repoName)

	c.logger.Debug("cloning repository", "url", url, "dest", workDir)

	res, err := c.runner.Run(ctx, toolchain.Command{
		Name:   toolchain.Git,
		Args:   []string{"clone", "--", url, workDir},
		Env:    []string{"GIT_TERMINAL_PROMPT=0"},
		Stream: c.stream,
	})
	if err != nil {
		_ = Remove(tempDir)
		return "", "", fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}
	if !res.Success() {
		_ = Remove(tempDir)
		return "", "", fmt.Errorf("%w: %s: exit code %d: %s",
			ErrCloneFailed, covlog.RedactURL(url), res.ExitCode, covlog.RedactURL(lastLine(res.Output)))
	}

	return workDir, tempDir, nil
}

// Remove deletes a temporary clone directory. Empty dir is a no-op.
func Remove(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
