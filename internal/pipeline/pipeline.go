package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/covgen/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the run as
// left by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Non-critical problems should be logged and recorded on the run, with
	// nil returned. Returning ErrStopped ends the run early without failing.
	Do(ctx context.Context, run *model.CoverageRun) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Conditional is implemented by steps that only apply to some runs, such
// as the assist step, which has nothing to do for compatible trees.
type Conditional interface {
	Applies(run *model.CoverageRun) bool
}

// Observer is notified after every step and finalizer.
type Observer interface {
	ObserveStep(name string, elapsed time.Duration, err error)
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps      []Step
	finalizers []Step

	logger   *slog.Logger
	observer Observer

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver reports step timings to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded on the run.
// Coverage steps depend on each other, so the generator leaves this off.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalizers: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalizer appends a step that runs after the regular steps, even
// when one of them failed or the context was cancelled.
func (p *Pipeline) AddFinalizer(step Step) {
	p.finalizers = append(p.finalizers, step)
}

// Execute runs all steps in sequence, then the finalizers, then stamps the
// run as finished.
//
// Cancellation is checked before each step; steps handle their own
// timeouts.
//
// Design decision: finalizers run under context.WithoutCancel(ctx) rather
// than ctx. The cleanup finalizer restores the user's Makefile from its
// backup and removes the temporary clone, and an interrupted run is exactly
// when that has to happen.
//
// The returned error is the first step error, joined with any finalizer
// errors.
func (p *Pipeline) Execute(ctx context.Context, run *model.CoverageRun) error {
	err := p.runSteps(ctx, run)

	if ferr := p.runFinalizers(context.WithoutCancel(ctx), run); ferr != nil {
		run.Fail(ferr)
		err = errors.Join(err, ferr)
	}

	run.Finish()
	return err
}

func (p *Pipeline) runSteps(ctx context.Context, run *model.CoverageRun) error {
	var firstErr error

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"repo", run.RepoName,
				"reason", ctx.Err(),
			)
			run.Cancelled = true
			run.Fail(ctx.Err())
			return ctx.Err()
		default:
		}

		if c, ok := step.(Conditional); ok && !c.Applies(run) {
			p.logger.Debug("step skipped", "step", step.Name(), "repo", run.RepoName)
			continue
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"repo", run.RepoName,
		)

		err := p.do(ctx, step, run)
		if errors.Is(err, ErrStopped) {
			p.logger.Info("pipeline stopped", "step", step.Name(), "repo", run.RepoName)
			run.MarkStep(step.Name())
			return nil
		}
		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"repo", run.RepoName,
				"error", err,
			)

			if ctx.Err() != nil {
				run.Cancelled = true
			}
			run.Fail(err)
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError || run.Cancelled {
				return firstErr
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"repo", run.RepoName,
		)
		run.MarkStep(step.Name())
	}

	return firstErr
}

func (p *Pipeline) runFinalizers(ctx context.Context, run *model.CoverageRun) error {
	var errs []error
	for _, step := range p.finalizers {
		if err := p.do(ctx, step, run); err != nil {
			p.logger.Error("finalizer failed",
				"step", step.Name(),
				"repo", run.RepoName,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) do(ctx context.Context, step Step, run *model.CoverageRun) error {
	start := time.Now()
	err := step.Do(ctx, run)
	if p.observer != nil {
		p.observer.ObserveStep(step.Name(), time.Since(start), err)
	}
	return err
}

// StepCount returns the number of steps in the pipeline, finalizers excluded.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order, followed
// by the finalizers.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps)+len(p.finalizers))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalizers {
		names = append(names, step.Name())
	}
	return names
}
