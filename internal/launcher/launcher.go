package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/browser"

	"github.com/nao1215/covgen/internal/config"
	"github.com/nao1215/covgen/internal/toolchain"
)

// Options are the per-invocation settings of the launcher.
type Options struct {
	// URL is forwarded verbatim to the generator. Empty means DefaultURL.
	URL string

	// DefaultURL is repository_url from config.ini.
	DefaultURL string

	// ConfigPath is forwarded as --config when set.
	ConfigPath string

	// OutputDir is the report directory passed to the generator.
	OutputDir string

	// NoBrowser skips opening the report.
	NoBrowser bool

	// Verbose is forwarded to the generator.
	Verbose bool
}

// Launcher prepares the environment, runs `covgen generate` as a child
// process and opens the report when it succeeds.
type Launcher struct {
	runner  toolchain.Runner
	env     *Environment
	exe     string
	out     io.Writer
	logger  *slog.Logger
	delay   time.Duration
	browser func(path string) error
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// WithOutput sets where banners and the generator's output are written.
func WithOutput(w io.Writer) Option {
	return func(l *Launcher) {
		l.out = w
	}
}

// WithOpenDelay sets the pause between a successful generation and
// opening the browser.
func WithOpenDelay(d time.Duration) Option {
	return func(l *Launcher) {
		l.delay = d
	}
}

// WithBrowserFunc replaces the function used to open the report.
func WithBrowserFunc(open func(path string) error) Option {
	return func(l *Launcher) {
		l.browser = open
	}
}

// NewLauncher creates a Launcher that runs exe (normally the covgen binary
// itself) inside env.
func NewLauncher(runner toolchain.Runner, env *Environment, exe string, opts ...Option) *Launcher {
	l := &Launcher{
		runner:  runner,
		env:     env,
		exe:     exe,
		out:     os.Stdout,
		logger:  slog.Default(),
		delay:   config.DefaultOpenDelay,
		browser: browser.OpenFile,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run performs one launch. A generator failure is returned as *ExitError
// carrying the child's exit code.
func (l *Launcher) Run(ctx context.Context, opts Options) error {
	url := opts.URL
	if url == "" {
		url = opts.DefaultURL
	}
	if url == "" {
		return config.ErrNoRepository
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}

	if err := toolchain.Require(l.runner, l.exe, toolchain.Git); err != nil {
		return err
	}

	p := NewPrinter(l.out)
	p.Banner("covgen: C/C++ coverage report")
	p.Info("Repository: %s", url)

	// The lock comes first so two launchers never both create the
	// environment.
	if err := l.env.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := l.env.Unlock(); err != nil {
			l.logger.Warn("failed to unlock environment", "error", err)
		}
	}()

	created, err := l.env.Ensure()
	if err != nil {
		return err
	}
	if created {
		p.Info("Created environment: %s", l.env.Dir())
	} else {
		p.Info("Using existing environment: %s", l.env.Dir())
	}

	p.Info("Refreshing toolchain...")
	tools, err := l.env.Refresh(ctx)
	if err != nil {
		return err
	}
	for _, t := range tools {
		l.logger.Debug("tool", "name", t.Name, "available", t.Available, "version", t.Version)
		if !t.Available {
			p.Warn("  %s: not found", t.Name)
		}
	}

	cmd := toolchain.Command{
		Name:   l.exe,
		Args:   generateArgs(url, outputDir, l.env.CloneDir(), opts),
		Stream: l.out,
	}
	l.logger.Debug("starting generator", "command", cmd.String())

	res, err := l.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to run coverage generator: %w", err)
	}
	if !res.Success() {
		code := res.ExitCode
		if code <= 0 {
			code = 1
		}
		p.Failure(code)
		return &ExitError{Code: code}
	}

	p.Success("Coverage report generated in %s", outputDir)
	if opts.NoBrowser {
		return nil
	}

	if err := l.sleep(ctx, l.delay); err != nil {
		return err
	}
	return NewOpener(generatedFirst(outputDir), l.out, WithBrowser(l.browser)).Open()
}

// generatedFirst puts the report just written to outputDir ahead of the
// default locations, so a stale report elsewhere never wins.
func generatedFirst(outputDir string) []string {
	first := filepath.Join(outputDir, config.ReportIndexFile)
	paths := []string{first}
	for _, c := range Candidates("") {
		if c != first {
			paths = append(paths, c)
		}
	}
	return paths
}

func generateArgs(url, outputDir, cloneDir string, opts Options) []string {
	args := []string{"generate", url, "--output-dir", outputDir, "--clone-dir", cloneDir}
	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
