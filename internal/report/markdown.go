package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/covgen/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format, for pull request
// comments and CI job summaries.
type MarkdownWriter struct {
	baseWriter

	// maxFiles limits the per-file table. Zero means no limit.
	maxFiles int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxFiles limits the per-file table to the n least covered files.
func WithMaxFiles(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxFiles = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run's summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.CoverageRun) (int, error) {
	return w.WriteSummary(summaryOf(run))
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(s *model.CoverageSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeCoverage(md, s)
	w.writeIssues(md, s)
	w.writeFiles(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.CoverageSummary) {
	md.H1("Coverage Report: " + s.RepoName)
	md.PlainText("")

	rows := [][]string{
		{"Repository", "`" + s.RepoURL + "`"},
		{"Date", s.Date.Format("2006-01-02 15:04:05 MST")},
		{"Status", statusText(s)},
	}
	if s.ProjectType != "" {
		rows = append(rows, []string{"Project Type", s.ProjectType})
	}
	if s.BuildSystem != "" {
		rows = append(rows, []string{"Build System", s.BuildSystem})
	}
	if s.BuildMethod != "" {
		rows = append(rows, []string{"Build Method", s.BuildMethod})
	}
	rows = append(rows, []string{"Test Programs", strconv.Itoa(s.TestsRun) + " run, " + strconv.Itoa(s.TestsFailed) + " failed"})
	if s.Assisted {
		rows = append(rows, []string{"Modifications", "applied temporarily (" + s.PlanSource + ")"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(s *model.CoverageSummary) string {
	switch s.Status {
	case model.StatusSuccess:
		return "✅ Complete"
	case model.StatusCancelled:
		return "⚠️ Cancelled"
	default:
		if s.Error != "" {
			return "❌ Failed - " + s.Error
		}
		return "❌ Failed"
	}
}

func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, s *model.CoverageSummary) {
	md.H2("Coverage")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Line Coverage", "**" + formatPercent(s.Percent) + "**"},
			{"Covered Lines", strconv.Itoa(s.CoveredLines)},
			{"Executable Lines", strconv.Itoa(s.ExecutableLines)},
			{"Files", strconv.Itoa(len(s.Files))},
		},
	})
	md.PlainText("")

	if s.ExecutableLines > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Line Coverage"),
			piechart.WithShowData(true),
		)
		chart.LabelAndIntValue("Covered", uint64(s.CoveredLines))      //nolint:gosec // counts are never negative
		chart.LabelAndIntValue("Uncovered", uint64(s.UncoveredLines())) //nolint:gosec // counts are never negative

		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Status != model.StatusSuccess:
		md.Cautionf("No complete coverage data: the run %s.", s.Status)
	case s.ExecutableLines == 0:
		md.Note("No executable lines were found in the gcov output.")
	case s.Level() == model.LevelHigh:
		md.Tip("Coverage is high (" + formatPercent(s.Percent) + ").")
	case s.Level() == model.LevelMedium:
		md.Importantf("Coverage is medium (%s).", formatPercent(s.Percent))
	default:
		md.Warningf("Coverage is low (%s).", formatPercent(s.Percent))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, s *model.CoverageSummary) {
	if len(s.Issues) == 0 {
		return
	}
	md.H2("Compatibility Issues")
	md.PlainText("")
	md.BulletList(s.Issues...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, s *model.CoverageSummary) {
	if len(s.Files) == 0 {
		return
	}
	md.H2("Files")
	md.PlainText("")

	files := leastCovered(s.Files, w.maxFiles)
	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{
			"`" + truncateString(f.Name, 60) + "`",
			strconv.Itoa(f.CoveredLines) + "/" + strconv.Itoa(f.ExecutableLines),
			formatPercent(f.Percent),
			model.LevelFor(f.Percent).String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Lines", "Coverage", "Level"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(files) < len(s.Files) {
		md.PlainTextf("*%d more files not shown.*", len(s.Files)-len(files))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [covgen](https://github.com/nao1215/covgen)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
