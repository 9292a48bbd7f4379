package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/covgen/internal/assist"
	"github.com/nao1215/covgen/internal/config"
	"github.com/nao1215/covgen/internal/database"
	"github.com/nao1215/covgen/internal/metrics"
	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/pipeline"
	"github.com/nao1215/covgen/internal/report"
	"github.com/nao1215/covgen/internal/toolchain"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [repository-url...]",
		Short: "Generate a coverage report for one or more repositories",
		Long: `Generate clones a C/C++ repository, makes its build Gcov compatible,
runs the tests with coverage instrumentation and writes an HTML report.

Modifications needed to build with coverage are planned by AWS Bedrock
when available and by built-in rules otherwise. They are applied to the
clone only and rolled back when the run ends.

Without a URL, repository_url from the [DEFAULT] section of config.ini is
used.

Examples:
  # Generate a report for one repository
  covgen generate https://github.com/example/calc.git

  # Analyze an existing checkout in place
  covgen generate --local ./calc

  # Several repositories, two at a time
  covgen generate --batch 2 https://github.com/example/a.git https://github.com/example/b.git

  # Show the modifications without building anything
  covgen generate --dry-run https://github.com/example/calc.git

  # Print the summary as JSON
  covgen generate --json https://github.com/example/calc.git`,
		Args: cobra.ArbitraryArgs,
		RunE: runGenerateCmd,
	}

	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Report directory (default "+config.DefaultLocalOutputDir+" with --local)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: config.ini in current or XDG config directory)")
	cmd.Flags().StringP("local", "l", "",
		"Analyze an existing checkout instead of cloning")
	cmd.Flags().String("clone-dir", "",
		"Directory for temporary clones (default: system temp directory)")

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of repositories processed concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultCommandTimeout,
		"Timeout for each build or coverage command")

	cmd.Flags().StringSliceP("exclude", "e", nil,
		"Doublestar patterns skipped during analysis (e.g. third_party/**)")

	cmd.Flags().Bool("no-llm", false,
		"Use the built-in modifications instead of AWS Bedrock")
	cmd.Flags().Bool("dry-run", false,
		"Print the planned modifications and their diff, then stop")
	cmd.Flags().Bool("builtin-report", false,
		"Render the built-in HTML report even when lcov is installed")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("summary", "s", "",
		"Also write the summary to this file (stdout keeps the text summary)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in text format to this file")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// generateOptions are generate flags that do not belong in config.Config.
type generateOptions struct {
	cloneDir      string
	builtinReport bool
}

// runGenerateCmd executes the generate command.
func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildGenerateConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose, false)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runGenerate(ctx, cfg, opts, toolchain.NewExecRunner(cfg.CommandTimeout), cmd.OutOrStdout(), logger)
}

// buildGenerateConfig creates a Config from the generate flags and
// config.ini.
func buildGenerateConfig(cmd *cobra.Command, args []string) (*config.Config, generateOptions, error) {
	cfg := config.NewConfig()
	var opts generateOptions
	var err error

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.OutputDir, err = cmd.Flags().GetString("output-dir"); err != nil {
		return nil, opts, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, opts, err
	}
	if cfg.LocalPath, err = cmd.Flags().GetString("local"); err != nil {
		return nil, opts, err
	}
	if opts.cloneDir, err = cmd.Flags().GetString("clone-dir"); err != nil {
		return nil, opts, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, opts, err
	}
	if cfg.CommandTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, opts, err
	}
	if cfg.ExcludePatterns, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
		return nil, opts, err
	}
	if cfg.NoLLM, err = cmd.Flags().GetBool("no-llm"); err != nil {
		return nil, opts, err
	}
	if cfg.DryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return nil, opts, err
	}
	if opts.builtinReport, err = cmd.Flags().GetBool("builtin-report"); err != nil {
		return nil, opts, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, opts, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, opts, err
	}
	if cfg.SummaryFile, err = cmd.Flags().GetString("summary"); err != nil {
		return nil, opts, err
	}
	if cfg.MetricsFile, err = cmd.Flags().GetString("metrics-file"); err != nil {
		return nil, opts, err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, opts, err
	}
	cfg.SaveToDB = !noHistory
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, opts, err
	}

	if cfg.LocalPath != "" && !cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = config.DefaultLocalOutputDir
	}

	if cfg.File, err = loadConfigFile(cfg.ConfigFilePath); err != nil {
		return nil, opts, err
	}

	cfg.RepoURLs = args
	if len(cfg.RepoURLs) == 0 && cfg.LocalPath == "" && cfg.File.RepositoryURL != "" {
		cfg.RepoURLs = []string{cfg.File.RepositoryURL}
	}

	return cfg, opts, nil
}

// runGenerate executes the coverage pipeline for every target, prints the
// summaries and records them.
func runGenerate(ctx context.Context, cfg *config.Config, opts generateOptions, runner toolchain.Runner, out io.Writer, logger *slog.Logger) error {
	required := []string{toolchain.GCC, toolchain.Gcov}
	if cfg.LocalPath == "" {
		required = append(required, toolchain.Git)
	}
	if err := toolchain.Require(runner, required...); err != nil {
		return err
	}

	runs, err := newRuns(cfg)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	components := pipeline.Components{
		Runner:        runner,
		Assistant:     newAssistant(ctx, cfg, logger),
		Confirmer:     newConfirmer(cfg, len(runs), out),
		Logger:        logger,
		Stream:        out,
		CloneDir:      opts.cloneDir,
		Exclude:       cfg.ExcludePatterns,
		BuiltinReport: opts.builtinReport,
		Observer:      recorder,
	}
	if cfg.DryRun {
		components.DryRunOut = out
	}

	start := time.Now()
	if len(runs) == 1 {
		fmt.Fprintf(out, "Generating coverage for %s...\n", runs[0].RepoName)
		// The error is recorded on the run and reported below.
		_ = pipeline.NewCoveragePipeline(components).Execute(ctx, runs[0])
	} else {
		fmt.Fprintf(out, "Generating coverage for %d repositories (concurrency: %d)...\n", len(runs), cfg.BatchSize)
		bp := pipeline.NewBatchProcessor(
			func() *pipeline.Pipeline { return pipeline.NewCoveragePipeline(components) },
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		if err := bp.ProcessBatch(ctx, runs); err != nil {
			logger.Warn("batch interrupted", "error", err)
		}
	}
	logger.Debug("generation finished", "elapsed", time.Since(start))

	if cfg.DryRun {
		return firstRunError(runs)
	}

	for _, run := range runs {
		recorder.ObserveRun(run.Summary)
	}
	if err := saveRuns(ctx, cfg, runs, logger); err != nil {
		logger.Error("failed to record history", "error", err)
	}
	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}
	if err := outputSummaries(cfg, runs, out); err != nil {
		return err
	}
	return firstRunError(runs)
}

// newRuns creates the runs for --local or the URLs.
func newRuns(cfg *config.Config) ([]*model.CoverageRun, error) {
	if cfg.LocalPath == "" {
		for _, url := range cfg.RepoURLs {
			if err := model.ValidateRepoURL(url); err != nil {
				return nil, fmt.Errorf("invalid repository URL %q: %w", url, err)
			}
		}
		return pipeline.NewRuns(cfg.RepoURLs, cfg.OutputDir), nil
	}

	abs, err := filepath.Abs(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", cfg.LocalPath, err)
	}
	return []*model.CoverageRun{model.NewLocalRun(abs, cfg.OutputDir)}, nil
}

// newAssistant returns an assistant backed by Bedrock unless --no-llm is
// given or the AWS configuration cannot be loaded.
func newAssistant(ctx context.Context, cfg *config.Config, logger *slog.Logger) *assist.Assistant {
	if cfg.NoLLM {
		return assist.NewAssistant(assist.WithLogger(logger))
	}
	invoker, err := assist.NewBedrockInvoker(ctx, cfg.File.Bedrock, logger)
	if err != nil {
		logger.Warn("AWS Bedrock unavailable, using built-in modifications", "error", err)
		return assist.NewAssistant(assist.WithLogger(logger))
	}
	return assist.NewAssistant(assist.WithInvoker(invoker), assist.WithLogger(logger))
}

// newConfirmer asks on the terminal for a single run. Concurrent runs
// cannot share stdin, so a batch applies without asking.
func newConfirmer(cfg *config.Config, runs int, out io.Writer) *assist.Confirmer {
	autoApply := cfg.File.Bedrock.AutoApply
	if runs > 1 && cfg.BatchSize > 1 {
		autoApply = true
	}
	return assist.NewConfirmer(autoApply, assist.WithPrompt(os.Stdin, out, stdinIsTerminal()))
}

// firstRunError returns the error of the first failed run, naming the
// repository.
func firstRunError(runs []*model.CoverageRun) error {
	var errs []error
	for _, run := range runs {
		if run.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", run.RepoName, run.Error))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(runs) > 1 {
		return fmt.Errorf("%d of %d coverage runs failed: %w", len(errs), len(runs), errors.Join(errs...))
	}
	return fmt.Errorf("coverage generation failed for %w", errs[0])
}

// saveRuns records every run in the history database. It is a no-op with
// --no-history.
func saveRuns(ctx context.Context, cfg *config.Config, runs []*model.CoverageRun, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Finalizers run without the cancelled context; so does recording.
	ctx = context.WithoutCancel(ctx)
	for _, run := range runs {
		if err := db.SaveRun(ctx, run.Summary); err != nil {
			return err
		}
		logger.Debug("run recorded", "repo", run.RepoName, "run_id", run.ID)
	}
	return nil
}

// outputSummaries writes the summary of every run in the requested format.
// With --summary the file gets that format and stdout still gets the plain
// text summary.
func outputSummaries(cfg *config.Config, runs []*model.CoverageRun, stdout io.Writer) error {
	w := newSummaryWriter(cfg, stdout)
	if cfg.SummaryFile != "" {
		f, err := createSummaryFile(cfg.SummaryFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = report.NewMultiWriter(
			newSummaryWriter(cfg, f),
			report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)),
		)
	}

	for _, run := range runs {
		if _, err := w.Write(run); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

func newSummaryWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// createSummaryFile creates path and its parent directories. The file is
// private since summaries include repository URLs.
func createSummaryFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to create summary file: %w", err)
	}
	return f, nil
}
