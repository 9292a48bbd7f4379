package analysis

import (
	"context"
	"log/slog"

	"github.com/nao1215/covgen/internal/model"
)

// Check is one compatibility rule.
type Check interface {
	// Name identifies the check in issues and logs.
	Name() string

	// Check inspects the repository at root using its analysis.
	Check(ctx context.Context, root string, a *model.RepoAnalysis) ([]model.CompatibilityIssue, error)
}

// Checker coordinates compatibility checks and merges their issues.
//
// Design decision: a coordinator runs every check even when an earlier one
// fails, so the modification plan can address all issues in one pass.
type Checker struct {
	checks []Check
	logger *slog.Logger
}

// NewChecker creates a Checker with the built-in checks registered.
func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checker{logger: logger}

	c.Register(NewMakefileFlagsCheck())
	c.Register(NewMakefileLinkCheck())
	c.Register(NewCMakeCoverageCheck())
	c.Register(NewTestsPresentCheck())
	c.Register(NewSimpleBuildCheck())

	return c
}

// Register adds a check.
func (c *Checker) Register(check Check) {
	c.checks = append(c.checks, check)
}

// Run runs all checks and reports whether the repository is compatible.
// A check that errors is logged and skipped.
func (c *Checker) Run(ctx context.Context, root string, a *model.RepoAnalysis) (bool, []model.CompatibilityIssue, error) {
	var all []model.CompatibilityIssue

	for _, check := range c.checks {
		select {
		case <-ctx.Done():
			return false, all, ctx.Err()
		default:
		}

		issues, err := check.Check(ctx, root, a)
		if err != nil {
			c.logger.Warn("compatibility check failed", "check", check.Name(), "error", err)
			continue
		}
		all = append(all, issues...)
	}

	all = deduplicateIssues(all)
	return len(all) == 0, all, nil
}

// deduplicateIssues drops repeated issues for the same file.
func deduplicateIssues(issues []model.CompatibilityIssue) []model.CompatibilityIssue {
	seen := make(map[string]bool)
	result := make([]model.CompatibilityIssue, 0, len(issues))

	for _, is := range issues {
		key := is.Check + "|" + is.File + "|" + is.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, is)
	}

	return result
}
