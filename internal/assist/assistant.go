package assist

import (
	"context"
	"log/slog"

	"github.com/nao1215/covgen/internal/model"
)

// Assistant produces modification plans for incompatible repositories.
// With no invoker it always returns the built-in plan.
type Assistant struct {
	invoker ModelInvoker
	logger  *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithInvoker sets the model used for planning.
func WithInvoker(inv ModelInvoker) Option {
	return func(a *Assistant) {
		a.invoker = inv
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// NewAssistant creates an Assistant.
func NewAssistant(opts ...Option) *Assistant {
	a := &Assistant{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether a model is configured.
func (a *Assistant) Enabled() bool {
	return a.invoker != nil
}

// Plan asks the model for modifications and returns the plan together with
// its source (model.PlanSourceBedrock or model.PlanSourceFallback).
//
// A failed model call falls back to the built-in plan. A response that
// cannot be parsed yields the empty plan, which is what the model answered
// as far as we can tell.
func (a *Assistant) Plan(ctx context.Context, root string, analysis *model.RepoAnalysis, issues []model.CompatibilityIssue) (*model.ModificationPlan, string) {
	if a.invoker == nil {
		a.logger.Debug("no model configured, using built-in modifications")
		return FallbackPlan(analysis), model.PlanSourceFallback
	}

	prompt := BuildPrompt(NewPromptContext(root, analysis, issues))
	a.logger.Debug("requesting modification plan", "prompt_chars", len(prompt), "issues", len(issues))

	text, err := a.invoker.Invoke(ctx, prompt)
	if err != nil {
		a.logger.Warn("model request failed, using built-in modifications", "error", err)
		return FallbackPlan(analysis), model.PlanSourceFallback
	}

	plan, err := ParsePlan(text)
	if err != nil {
		a.logger.Warn("could not parse model response", "error", err)
	}
	return plan, model.PlanSourceBedrock
}
