package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/covgen/internal/model"
)

// DefaultConcurrency is the number of runs executed at once when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// BatchProcessor runs several repositories concurrently. Every run gets a
// fresh pipeline from the factory so step state never leaks between runs.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch executes every run, at most concurrency at a time. A failed
// run does not stop the others; its error is recorded on the run. The
// returned error is only non-nil when the batch was cancelled.
//
// Design decision: the goroutines never return a run's error to the
// errgroup. Doing so would cancel the shared context and abort unrelated
// repositories mid-build.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, runs []*model.CoverageRun) error {
	bp.logger.Info("starting batch processing",
		"total_repos", len(runs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, run := range runs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				run.Cancelled = true
				run.Fail(ctx.Err())
				run.Finish()
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing repository",
				"repo", run.RepoName,
				"index", i+1,
				"total", len(runs),
			)

			if err := bp.pipelineFactory().Execute(ctx, run); err != nil {
				bp.logger.Warn("coverage run failed",
					"repo", run.RepoName,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("coverage run completed",
				"repo", run.RepoName,
				"report", run.ReportPath,
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_repos", len(runs),
		"elapsed", time.Since(startTime),
	)

	return err
}

// NewRuns creates one run per URL. A single URL writes its report to
// outputDir itself; with several URLs each report goes to
// outputDir/<repo-name>, with a numeric suffix when two repositories share
// a name.
func NewRuns(urls []string, outputDir string) []*model.CoverageRun {
	runs := make([]*model.CoverageRun, len(urls))
	used := make(map[string]bool, len(urls))

	for i, url := range urls {
		run := model.NewCoverageRun(url, outputDir)
		if len(urls) > 1 {
			dir := run.RepoName
			// A suffixed name may itself be a repository name.
			for n := 2; used[dir]; n++ {
				dir = run.RepoName + "-" + strconv.Itoa(n)
			}
			used[dir] = true
			run.OutputDir = filepath.Join(outputDir, dir)
		}
		runs[i] = run
	}
	return runs
}
