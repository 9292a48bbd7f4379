package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/covgen/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *model.CoverageRun) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *model.CoverageRun) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// conditionalStep only applies when applies is true.
type conditionalStep struct {
	mockStep
	applies bool
}

func (c *conditionalStep) Applies(*model.CoverageRun) bool {
	return c.applies
}

// recordingObserver collects observed step names.
type recordingObserver struct {
	mu    sync.Mutex
	names []string
	errs  int
}

func (o *recordingObserver) ObserveStep(name string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
	if err != nil {
		o.errs++
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRun() *model.CoverageRun {
	return model.NewCoverageRun("https://github.com/example/calc.git", "out")
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "step1"})
	p.AddSteps(&mockStep{name: "step2"}, &mockStep{name: "step3"})
	p.AddFinalizer(&mockStep{name: "final"})

	if p.StepCount() != 3 {
		t.Errorf("expected 3 steps, got %d", p.StepCount())
	}
	want := []string{"step1", "step2", "step3", "final"}
	if got := p.StepNames(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.CoverageRun) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(step("first"), step("second"))
		p.AddFinalizer(step("final"))

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if want := []string{"first", "second", "final"}; !slices.Equal(order, want) {
			t.Errorf("expected order %v, got %v", want, order)
		}
		if want := []string{"first", "second"}; !slices.Equal(run.PerformedSteps, want) {
			t.Errorf("expected performed steps %v, got %v", want, run.PerformedSteps)
		}
		if run.FinishedAt.IsZero() || run.Summary == nil {
			t.Error("expected run to be finished with a summary")
		}
	})

	t.Run("stops on first error and still runs finalizers", func(t *testing.T) {
		t.Parallel()

		errBuild := errors.New("build failed")
		after := &mockStep{name: "after"}
		final := &mockStep{name: "cleanup"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{name: "build", doFunc: func(context.Context, *model.CoverageRun) error { return errBuild }},
			after,
		)
		p.AddFinalizer(final)

		run := newTestRun()
		err := p.Execute(context.Background(), run)

		if !errors.Is(err, errBuild) {
			t.Errorf("expected build error, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later step to be skipped")
		}
		if final.callCount != 1 {
			t.Error("expected finalizer to run")
		}
		if !errors.Is(run.Error, errBuild) || run.ErrorMessage != "build failed" {
			t.Errorf("expected error on run, got %v", run.Error)
		}
		if run.Summary.Status != model.StatusFailed {
			t.Errorf("expected failed status, got %q", run.Summary.Status)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		errFirst := errors.New("first")
		second := &mockStep{name: "second"}

		p := New(WithLogger(discardLogger()), WithContinueOnError(true))
		p.AddSteps(
			&mockStep{name: "first", doFunc: func(context.Context, *model.CoverageRun) error { return errFirst }},
			second,
		)

		run := newTestRun()
		err := p.Execute(context.Background(), run)

		if !errors.Is(err, errFirst) {
			t.Errorf("expected first error, got %v", err)
		}
		if second.callCount != 1 {
			t.Error("expected second step to run")
		}
		if !run.HasStep("second") || run.HasStep("first") {
			t.Errorf("unexpected performed steps %v", run.PerformedSteps)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		step := &mockStep{name: "never"}
		var finalCtxErr error
		final := &mockStep{name: "cleanup", doFunc: func(ctx context.Context, _ *model.CoverageRun) error {
			finalCtxErr = ctx.Err()
			return nil
		}}

		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "cancel", doFunc: func(context.Context, *model.CoverageRun) error {
			cancel()
			return nil
		}})
		p.AddStep(step)
		p.AddFinalizer(final)

		run := newTestRun()
		err := p.Execute(ctx, run)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step after cancellation to be skipped")
		}
		if final.callCount != 1 || finalCtxErr != nil {
			t.Errorf("expected finalizer with live context, calls=%d err=%v", final.callCount, finalCtxErr)
		}
		if !run.Cancelled || run.Summary.Status != model.StatusCancelled {
			t.Error("expected run to be marked cancelled")
		}
	})

	t.Run("ErrStopped ends the run without error", func(t *testing.T) {
		t.Parallel()

		after := &mockStep{name: "after"}
		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{name: "plan", doFunc: func(context.Context, *model.CoverageRun) error { return ErrStopped }},
			after,
		)

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected pipeline to stop")
		}
		if !run.HasStep("plan") || run.Error != nil {
			t.Errorf("expected plan step recorded without error, got %v / %v", run.PerformedSteps, run.Error)
		}
	})

	t.Run("skips conditional steps that do not apply", func(t *testing.T) {
		t.Parallel()

		skipped := &conditionalStep{mockStep: mockStep{name: "assist"}}
		applied := &conditionalStep{mockStep: mockStep{name: "build"}, applies: true}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(skipped, applied)

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if skipped.callCount != 0 || applied.callCount != 1 {
			t.Errorf("unexpected calls: skipped=%d applied=%d", skipped.callCount, applied.callCount)
		}
		if run.HasStep("assist") {
			t.Error("expected skipped step not to be recorded")
		}
	})

	t.Run("finalizer errors are joined and recorded", func(t *testing.T) {
		t.Parallel()

		errCleanup := errors.New("rollback failed")
		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "ok"})
		p.AddFinalizer(&mockStep{name: "cleanup", doFunc: func(context.Context, *model.CoverageRun) error { return errCleanup }})

		run := newTestRun()
		err := p.Execute(context.Background(), run)
		if !errors.Is(err, errCleanup) {
			t.Errorf("expected cleanup error, got %v", err)
		}
		if !errors.Is(run.Error, errCleanup) {
			t.Errorf("expected cleanup error on run, got %v", run.Error)
		}
	})

	t.Run("observer sees steps and finalizers", func(t *testing.T) {
		t.Parallel()

		obs := &recordingObserver{}
		p := New(WithLogger(discardLogger()), WithObserver(obs))
		p.AddSteps(
			&mockStep{name: "a"},
			&mockStep{name: "b", doFunc: func(context.Context, *model.CoverageRun) error { return errors.New("boom") }},
		)
		p.AddFinalizer(&mockStep{name: "cleanup"})

		_ = p.Execute(context.Background(), newTestRun())

		if want := []string{"a", "b", "cleanup"}; !slices.Equal(obs.names, want) {
			t.Errorf("expected %v, got %v", want, obs.names)
		}
		if obs.errs != 1 {
			t.Errorf("expected 1 error observed, got %d", obs.errs)
		}
	})
}
