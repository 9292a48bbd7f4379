package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "covgen"

	// DefaultOutputDir is where a report generated from a cloned repository
	// is written when --output-dir is not given.
	DefaultOutputDir = "coverage_output"

	// DefaultLocalOutputDir is where a report generated from a local checkout
	// (--local) is written. The report opener looks here first.
	DefaultLocalOutputDir = "coverage_output_local"

	// DefaultTestOutputDir is the directory produced by the test harness of
	// the project this tool grew out of. The opener still checks it last.
	DefaultTestOutputDir = "test_coverage_output"

	// ReportIndexFile is the entry point of every HTML report.
	ReportIndexFile = "index.html"

	// DefaultEnvDir is the launcher's workspace environment, created once
	// and reused on every later run.
	DefaultEnvDir = ".covgen-env"

	// DefaultOpenDelay is how long the launcher waits after a successful
	// generation before handing the report to the browser.
	DefaultOpenDelay = 2 * time.Second

	// DefaultBatchSize is the number of repositories processed concurrently
	// when several URLs are given to the generator.
	DefaultBatchSize = 4

	// DefaultCommandTimeout bounds every external build or coverage command.
	// Large C++ projects can take minutes to compile with -O0.
	DefaultCommandTimeout = 10 * time.Minute
)

// Config holds all options for one invocation of the generator or launcher.
// It is populated from CLI flags plus the optional config.ini file and is
// passed down explicitly instead of living in global state.
//
// Design decision: the struct stays flat like the rest of the CLI options.
// Settings that come only from the config file live in File.
type Config struct {
	// RepoURLs are the repositories to generate coverage for. Each URL is
	// used verbatim for git clone.
	RepoURLs []string

	// LocalPath, when set, analyzes an existing checkout in place instead of
	// cloning. Nothing under LocalPath is removed afterwards.
	LocalPath string

	// OutputDir is the report directory. With several URLs every repository
	// gets its own subdirectory named after the repository.
	OutputDir string

	// ConfigFilePath is the path to config.ini. Empty means search.
	ConfigFilePath string

	// File is the parsed configuration file. It is never nil after
	// LoadConfigFile or NewConfig.
	File *File

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of concurrent repositories.
	BatchSize int

	// CommandTimeout bounds each external command.
	CommandTimeout time.Duration

	// ExcludePatterns are doublestar patterns, relative to the repository
	// root, that analysis skips.
	ExcludePatterns []string

	// NoLLM skips AWS Bedrock and always uses the built-in modifications.
	NoLLM bool

	// DryRun stops after planning modifications: the plan and its diff are
	// printed and the tree is restored.
	DryRun bool

	// JSONReport and MarkdownReport select the summary format printed after
	// generation. They are mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// SummaryFile, when set, receives the summary instead of stdout.
	SummaryFile string

	// MetricsFile, when set, receives Prometheus text-format metrics for the
	// run (suitable for the node_exporter textfile collector).
	MetricsFile string

	// DBDir is the directory holding the run history database.
	DBDir string

	// SaveToDB records each run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		BatchSize:      DefaultBatchSize,
		CommandTimeout: DefaultCommandTimeout,
		File:           NewFile(),
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for covgen.
// On Linux: ~/.local/share/covgen
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for covgen.
// On Linux: ~/.config/covgen
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.RepoURLs) == 0 && c.LocalPath == "" {
		return ErrNoRepository
	}
	if len(c.RepoURLs) > 0 && c.LocalPath != "" {
		return ErrLocalWithURL
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CommandTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.File != nil {
		if err := c.File.Bedrock.Validate(); err != nil {
			return err
		}
	}
	return nil
}
