package pipeline

import (
	"io"
	"log/slog"

	"github.com/nao1215/covgen/internal/analysis"
	"github.com/nao1215/covgen/internal/assist"
	"github.com/nao1215/covgen/internal/build"
	"github.com/nao1215/covgen/internal/gcov"
	"github.com/nao1215/covgen/internal/repo"
	"github.com/nao1215/covgen/internal/report"
	"github.com/nao1215/covgen/internal/toolchain"
)

// Components holds what the coverage steps are built from.
type Components struct {
	// Runner executes git, compilers and coverage tools.
	Runner toolchain.Runner

	// Assistant plans modifications. Without a model it returns the
	// built-in plan.
	Assistant *assist.Assistant

	// Confirmer asks before modifications are applied.
	Confirmer *assist.Confirmer

	Logger *slog.Logger

	// Stream receives the output of external commands. Nil discards it.
	Stream io.Writer

	// CloneDir holds temporary clones. Empty uses the system temp dir.
	CloneDir string

	// DryRunOut, when set, turns the run into a dry run: the plan and its
	// diffs are written there and nothing is built.
	DryRunOut io.Writer

	// Exclude holds doublestar patterns the analyze step skips, such as
	// vendored third-party code.
	Exclude []string

	// BuiltinReport skips lcov even when it is installed.
	BuiltinReport bool

	// Observer receives step timings. Optional.
	Observer Observer
}

// NewCoveragePipeline assembles the coverage steps and the cleanup
// finalizer in their fixed order.
func NewCoveragePipeline(c Components) *Pipeline {
	logger := orDefault(c.Logger)

	opts := []Option{WithLogger(logger)}
	if c.Observer != nil {
		opts = append(opts, WithObserver(c.Observer))
	}
	p := New(opts...)

	assistant := c.Assistant
	if assistant == nil {
		assistant = assist.NewAssistant(assist.WithLogger(logger))
	}
	confirmer := c.Confirmer
	if confirmer == nil {
		confirmer = assist.NewConfirmer(true)
	}
	var assistOpts []AssistStepOption
	if c.DryRunOut != nil {
		assistOpts = append(assistOpts, WithDryRun(c.DryRunOut))
	}

	cloner := repo.NewCloner(c.Runner,
		repo.WithLogger(logger),
		repo.WithBaseDir(c.CloneDir),
		repo.WithStream(c.Stream),
	)
	builder := build.NewBuilder(c.Runner, build.WithLogger(logger), build.WithStream(c.Stream))

	var lcov *gcov.Lcov
	if !c.BuiltinReport {
		lcov = gcov.NewLcov(c.Runner, logger, c.Stream)
	}

	p.AddSteps(
		NewCloneStep(cloner, logger),
		NewAnalyzeStep(analysis.NewScanner(analysis.WithIgnore(c.Exclude...)), logger),
		NewCompatibilityStep(analysis.NewChecker(logger), logger),
		NewAssistStep(assistant, confirmer, logger, assistOpts...),
		NewBuildStep(builder, logger),
		NewTestStep(builder, logger),
		NewGcovStep(gcov.NewGenerator(c.Runner, logger, c.Stream)),
		NewReportStep(lcov, report.NewHTMLWriter(), logger),
	)
	p.AddFinalizer(NewCleanupStep(logger))

	return p
}
