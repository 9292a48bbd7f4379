// Package assist makes an incompatible repository measurable.
//
// It asks a model on AWS Bedrock for build-file changes (or falls back to
// built-in ones), validates the answer, applies the changes temporarily,
// and restores every touched file afterwards. Nothing here ever commits or
// pushes; the checkout is left byte-identical after Rollback.
//
// The flow inside one coverage run:
//
//	plan, source := assistant.Plan(ctx, root, analysis, issues)
//	if confirmer.Confirm(plan) {
//	    applied, err := patcher.Apply(root, plan)
//	    defer patcher.Rollback(applied)
//	}
package assist
