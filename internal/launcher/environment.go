package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/covgen/internal/toolchain"
)

// Files inside an environment directory.
const (
	ManifestFile  = "environment.yaml"
	ToolchainFile = "toolchain.yaml"
	LockFile      = ".lock"
	CloneDirName  = "clones"
)

// Manifest is written once when the environment is created.
type Manifest struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	OS        string    `yaml:"os"`
	Arch      string    `yaml:"arch"`
}

// ToolchainManifest is rewritten on every launch.
type ToolchainManifest struct {
	ProbedAt time.Time            `yaml:"probed_at"`
	Tools    []toolchain.ToolInfo `yaml:"tools"`
}

// Environment is the launcher's working directory. It is created on the
// first run and reused afterwards; only the toolchain manifest changes.
type Environment struct {
	dir     string
	version string
	runner  toolchain.Runner
	logger  *slog.Logger
	lock    *flock.Flock
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithEnvironmentLogger sets the logger.
func WithEnvironmentLogger(logger *slog.Logger) EnvironmentOption {
	return func(e *Environment) {
		e.logger = logger
	}
}

// WithVersion records the covgen version in new manifests.
func WithVersion(version string) EnvironmentOption {
	return func(e *Environment) {
		e.version = version
	}
}

// NewEnvironment returns the environment rooted at dir. Nothing is created
// until Ensure.
func NewEnvironment(dir string, runner toolchain.Runner, opts ...EnvironmentOption) *Environment {
	e := &Environment{
		dir:     dir,
		version: "dev",
		runner:  runner,
		logger:  slog.Default(),
		lock:    flock.New(filepath.Join(dir, LockFile)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the environment directory.
func (e *Environment) Dir() string {
	return e.dir
}

// CloneDir is where the generator creates its temporary clones.
func (e *Environment) CloneDir() string {
	return filepath.Join(e.dir, CloneDirName)
}

// Exists reports whether the environment has been created.
func (e *Environment) Exists() bool {
	_, err := os.Stat(filepath.Join(e.dir, ManifestFile))
	return err == nil
}

// Ensure creates the environment unless it exists and reports whether it
// was created by this call.
func (e *Environment) Ensure() (bool, error) {
	if e.Exists() {
		e.logger.Debug("reusing environment", "dir", e.dir)
		return false, nil
	}

	if err := os.MkdirAll(e.CloneDir(), 0o750); err != nil {
		return false, fmt.Errorf("failed to create environment: %w", err)
	}
	m := Manifest{
		Version:   e.version,
		CreatedAt: time.Now().UTC(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if err := writeYAML(filepath.Join(e.dir, ManifestFile), m); err != nil {
		return false, err
	}
	e.logger.Debug("environment created", "dir", e.dir)
	return true, nil
}

// Manifest reads environment.yaml.
func (e *Environment) Manifest() (*Manifest, error) {
	var m Manifest
	if err := readYAML(filepath.Join(e.dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Lock takes the environment lock without waiting. It fails with
// ErrEnvironmentBusy when another process holds it.
func (e *Environment) Lock() error {
	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}
	ok, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", e.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrEnvironmentBusy, e.dir)
	}
	return nil
}

// Unlock releases the environment lock.
func (e *Environment) Unlock() error {
	if err := e.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", e.lock.Path(), err)
	}
	return nil
}

// Refresh probes the toolchain and rewrites toolchain.yaml. It runs on
// every launch so the manifest matches what the generator will use.
func (e *Environment) Refresh(ctx context.Context) ([]toolchain.ToolInfo, error) {
	tools, err := toolchain.Probe(ctx, e.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to probe toolchain: %w", err)
	}
	m := ToolchainManifest{ProbedAt: time.Now().UTC(), Tools: tools}
	if err := writeYAML(filepath.Join(e.dir, ToolchainFile), m); err != nil {
		return nil, err
	}
	return tools, nil
}

// Toolchain reads toolchain.yaml.
func (e *Environment) Toolchain() (*ToolchainManifest, error) {
	var m ToolchainManifest
	if err := readYAML(filepath.Join(e.dir, ToolchainFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the environment directory
	if err != nil {
		return fmt.Errorf("failed to read environment file: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
