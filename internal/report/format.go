package report

import (
	"slices"
	"strconv"

	"github.com/nao1215/covgen/internal/model"
)

// formatPercent renders a percentage with one decimal, e.g. "72.7%".
func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

// leastCovered returns up to n files ordered by ascending coverage, so
// the files that need tests come first. n <= 0 returns all files.
func leastCovered(files []model.FileDigest, n int) []model.FileDigest {
	out := slices.Clone(files)
	slices.SortStableFunc(out, func(a, b model.FileDigest) int {
		switch {
		case a.Percent < b.Percent:
			return -1
		case a.Percent > b.Percent:
			return 1
		default:
			return 0
		}
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
