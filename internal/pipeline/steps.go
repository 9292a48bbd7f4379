package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/covgen/internal/analysis"
	"github.com/nao1215/covgen/internal/assist"
	"github.com/nao1215/covgen/internal/build"
	"github.com/nao1215/covgen/internal/gcov"
	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/repo"
	"github.com/nao1215/covgen/internal/report"
)

// CloneStep fetches the repository into a temporary directory. Local runs
// are checked to exist and used in place.
type CloneStep struct {
	cloner *repo.Cloner
	logger *slog.Logger
}

// NewCloneStep creates a clone step.
func NewCloneStep(cloner *repo.Cloner, logger *slog.Logger) *CloneStep {
	return &CloneStep{cloner: cloner, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *CloneStep) Name() string {
	return model.StepClone
}

// Do executes the clone step.
func (s *CloneStep) Do(ctx context.Context, run *model.CoverageRun) error {
	if run.Local {
		info, err := os.Stat(run.WorkDir)
		if err != nil {
			return fmt.Errorf("failed to open local checkout: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, run.WorkDir)
		}
		s.logger.Info("using local checkout", "dir", run.WorkDir)
		return nil
	}

	workDir, tempDir, err := s.cloner.Clone(ctx, run.RepoURL, run.RepoName)
	if err != nil {
		return err
	}
	run.WorkDir = workDir
	run.TempDir = tempDir
	s.logger.Info("repository cloned", "dir", workDir)
	return nil
}

// AnalyzeStep records the repository structure.
type AnalyzeStep struct {
	scanner *analysis.Scanner
	logger  *slog.Logger
}

// NewAnalyzeStep creates an analyze step.
func NewAnalyzeStep(scanner *analysis.Scanner, logger *slog.Logger) *AnalyzeStep {
	return &AnalyzeStep{scanner: scanner, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return model.StepAnalyze
}

// Do executes the analyze step.
func (s *AnalyzeStep) Do(ctx context.Context, run *model.CoverageRun) error {
	a, err := s.scanner.Scan(ctx, run.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to analyze repository: %w", err)
	}
	run.Analysis = a

	s.logger.Info("repository analyzed",
		"project_type", a.ProjectType,
		"build_system", a.BuildSystem,
		"languages", strings.Join(a.Languages, ", "),
		"source_files", len(a.SourceFiles),
		"test_files", len(a.TestFiles),
		"build_files", len(a.BuildFiles),
	)
	return nil
}

// CompatibilityStep decides whether the tree can be measured as-is.
type CompatibilityStep struct {
	checker *analysis.Checker
	logger  *slog.Logger
}

// NewCompatibilityStep creates a compatibility step.
func NewCompatibilityStep(checker *analysis.Checker, logger *slog.Logger) *CompatibilityStep {
	return &CompatibilityStep{checker: checker, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *CompatibilityStep) Name() string {
	return model.StepCompatibility
}

// Do executes the compatibility step.
func (s *CompatibilityStep) Do(ctx context.Context, run *model.CoverageRun) error {
	compatible, issues, err := s.checker.Run(ctx, run.WorkDir, run.Analysis)
	if err != nil {
		return err
	}
	run.Compatible = compatible
	run.Issues = issues

	if compatible {
		s.logger.Info("repository is Gcov compatible")
		return nil
	}
	s.logger.Warn("repository is not Gcov compatible", "issues", len(issues))
	for _, is := range issues {
		s.logger.Warn("compatibility issue", "check", is.Check, "message", is.Message)
	}
	return nil
}

// AssistStep plans, confirms and applies the temporary modifications an
// incompatible repository needs.
type AssistStep struct {
	assistant *assist.Assistant
	confirmer *assist.Confirmer
	logger    *slog.Logger

	// dryRun prints the plan and its diffs to out and stops the run.
	dryRun bool
	out    io.Writer
}

// AssistStepOption configures an AssistStep.
type AssistStepOption func(*AssistStep)

// WithDryRun prints the plan to out instead of applying it.
func WithDryRun(out io.Writer) AssistStepOption {
	return func(s *AssistStep) {
		s.dryRun = true
		s.out = out
	}
}

// NewAssistStep creates an assist step.
func NewAssistStep(assistant *assist.Assistant, confirmer *assist.Confirmer, logger *slog.Logger, opts ...AssistStepOption) *AssistStep {
	s := &AssistStep{
		assistant: assistant,
		confirmer: confirmer,
		logger:    orDefault(logger),
		out:       io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AssistStep) Name() string {
	return model.StepAssist
}

// Applies reports whether the run needs modifications. Dry runs always
// plan so the user sees what would happen.
func (s *AssistStep) Applies(run *model.CoverageRun) bool {
	return !run.Compatible || s.dryRun
}

// Do executes the assist step.
func (s *AssistStep) Do(ctx context.Context, run *model.CoverageRun) error {
	plan, source := s.assistant.Plan(ctx, run.WorkDir, run.Analysis, run.Issues)
	run.Plan = plan
	run.PlanSource = source
	run.Assisted = true

	s.logger.Info("modification plan ready", "source", source, "explanation", plan.Explanation)

	patcher := assist.NewPatcher(run.WorkDir, s.logger)
	if s.dryRun {
		if err := s.printPlan(patcher, plan, source); err != nil {
			return err
		}
		return ErrStopped
	}

	ok, err := s.confirmer.Confirm(plan)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}

	applied, err := patcher.Apply(plan)
	if err != nil {
		return err
	}
	for _, m := range applied {
		run.Record(m)
	}
	s.logger.Info("temporary modifications applied", "files", len(applied))
	return nil
}

func (s *AssistStep) printPlan(patcher *assist.Patcher, plan *model.ModificationPlan, source string) error {
	changes, err := patcher.Changes(plan)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Modification plan (%s)\n", source)
	fmt.Fprintf(&sb, "  Explanation: %s\n", plan.Explanation)
	for _, line := range plan.Describe() {
		sb.WriteString("  " + line + "\n")
	}
	for _, cmd := range plan.Modifications.GcovCommands {
		sb.WriteString("  gcov command: " + cmd + "\n")
	}
	for _, c := range changes {
		diff, err := c.Diff()
		if err != nil {
			return err
		}
		sb.WriteString("\n" + diff)
	}

	_, err = io.WriteString(s.out, sb.String())
	return err
}

// BuildStep compiles the tree with coverage instrumentation.
type BuildStep struct {
	builder *build.Builder
	logger  *slog.Logger
}

// NewBuildStep creates a build step.
func NewBuildStep(builder *build.Builder, logger *slog.Logger) *BuildStep {
	return &BuildStep{builder: builder, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *BuildStep) Name() string {
	return model.StepBuild
}

// Do executes the build step.
func (s *BuildStep) Do(ctx context.Context, run *model.CoverageRun) error {
	method, err := s.builder.Build(ctx, run.WorkDir, run.Analysis, run.Plan)
	if err != nil {
		return err
	}
	run.BuildMethod = method
	s.logger.Info("build succeeded", "method", method)
	return nil
}

// TestStep runs the test programs the build produced.
type TestStep struct {
	builder *build.Builder
	logger  *slog.Logger
}

// NewTestStep creates a test step.
func NewTestStep(builder *build.Builder, logger *slog.Logger) *TestStep {
	return &TestStep{builder: builder, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *TestStep) Name() string {
	return model.StepTest
}

// Do executes the test step. Failing programs are counted, not fatal.
func (s *TestStep) Do(ctx context.Context, run *model.CoverageRun) error {
	res, err := s.builder.RunTests(ctx, run.WorkDir)
	if res != nil {
		run.TestsRun = len(res.Programs)
		run.TestsFailed = len(res.Failed)
	}
	return err
}

// GcovStep turns .gcda/.gcno data into .gcov listings.
type GcovStep struct {
	generator *gcov.Generator
}

// NewGcovStep creates a gcov step.
func NewGcovStep(generator *gcov.Generator) *GcovStep {
	return &GcovStep{generator: generator}
}

// Name returns the step name.
func (s *GcovStep) Name() string {
	return model.StepGcov
}

// Do executes the gcov step.
func (s *GcovStep) Do(ctx context.Context, run *model.CoverageRun) error {
	_, err := s.generator.Generate(ctx, run.WorkDir, run.Analysis, run.Plan)
	return err
}

// ReportStep renders the HTML report. lcov and genhtml are preferred when
// installed; the built-in report is used otherwise and when lcov fails.
type ReportStep struct {
	lcov   *gcov.Lcov
	html   *report.HTMLWriter
	logger *slog.Logger
}

// NewReportStep creates a report step. lcov may be nil to always use the
// built-in report.
func NewReportStep(lcov *gcov.Lcov, html *report.HTMLWriter, logger *slog.Logger) *ReportStep {
	return &ReportStep{lcov: lcov, html: html, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return model.StepReport
}

// Do executes the report step.
func (s *ReportStep) Do(ctx context.Context, run *model.CoverageRun) error {
	outDir, err := filepath.Abs(run.OutputDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if s.lcov != nil && s.lcov.Available() {
		err := s.lcovReport(ctx, run, outDir)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		s.logger.Warn("lcov report failed, using built-in report", "error", err)
	}

	cov, err := gcov.ParseDir(ctx, run.WorkDir)
	if err != nil {
		return err
	}
	run.Coverage = cov

	path, err := s.html.WriteDir(outDir, run)
	if err != nil {
		return err
	}
	run.ReportPath = path
	run.ReportKind = model.ReportKindBuiltin
	s.logger.Info("HTML report generated", "path", path, "coverage", fmt.Sprintf("%.1f%%", cov.Percent()))
	return nil
}

func (s *ReportStep) lcovReport(ctx context.Context, run *model.CoverageRun, outDir string) error {
	tracefile, err := s.lcov.Report(ctx, run.WorkDir, outDir)
	if err != nil {
		return err
	}

	f, err := os.Open(tracefile) //nolint:gosec // written by lcov in the work tree
	if err != nil {
		return err
	}
	defer f.Close()

	cov, err := gcov.ParseTracefile(f)
	if err != nil {
		return err
	}
	run.Coverage = cov
	run.ReportPath = filepath.Join(outDir, report.IndexFile)
	run.ReportKind = model.ReportKindLcov
	return nil
}

// CleanupStep is the finalizer that undoes the run's side effects: it
// rolls back applied modifications, then removes the temporary clone.
type CleanupStep struct {
	logger *slog.Logger
}

// NewCleanupStep creates the cleanup finalizer.
func NewCleanupStep(logger *slog.Logger) *CleanupStep {
	return &CleanupStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *CleanupStep) Name() string {
	return "cleanup"
}

// Do rolls back and removes. Both are attempted even if one fails.
func (s *CleanupStep) Do(_ context.Context, run *model.CoverageRun) error {
	var errs []error

	if len(run.Applied) > 0 {
		s.logger.Info("rolling back temporary modifications", "files", len(run.Applied))
		if err := assist.NewPatcher(run.WorkDir, s.logger).Rollback(run.Applied); err != nil {
			errs = append(errs, err)
		}
		run.Applied = nil
	}

	if run.TempDir != "" && !run.Local {
		if err := repo.Remove(run.TempDir); err != nil {
			errs = append(errs, err)
		} else {
			s.logger.Info("removed temporary directory", "dir", run.TempDir)
		}
		run.TempDir = ""
	}

	return errors.Join(errs...)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
