package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/covgen/internal/model"
)

// SimpleWriter outputs human-readable text summaries for the terminal.
// Numbers are grouped for readability ("12,345 lines").
type SimpleWriter struct {
	baseWriter

	// verbose adds the per-file table.
	verbose bool

	printer *message.Printer
	title   cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-file table.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
		title:      cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run's summary in human-readable format.
func (w *SimpleWriter) Write(run *model.CoverageRun) (int, error) {
	return w.WriteSummary(summaryOf(run))
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(s *model.CoverageSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeCoverage(&sb, s)
	w.writeIssues(&sb, s)
	if w.verbose {
		w.writeFiles(&sb, s)
	}
	w.writeFooter(&sb, s)

	return io.WriteString(w.output, sb.String())
}

func rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func (w *SimpleWriter) section(sb *strings.Builder, name string) {
	rule(sb, "-")
	sb.WriteString(name + "\n")
	rule(sb, "-")
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.CoverageSummary) {
	sb.WriteString("\n")
	rule(sb, "=")
	sb.WriteString("                      CODE COVERAGE REPORT\n")
	rule(sb, "=")
	sb.WriteString("\n")

	sb.WriteString(w.printer.Sprintf("Repository:     %s\n", s.RepoURL))
	sb.WriteString(w.printer.Sprintf("Date:           %s\n", s.Date.Format("2006-01-02 15:04:05 MST")))
	if s.ProjectType != "" {
		sb.WriteString(w.printer.Sprintf("Project Type:   %s (%s)\n", s.ProjectType, s.BuildSystem))
	}
	if s.BuildMethod != "" {
		sb.WriteString(w.printer.Sprintf("Build Method:   %s\n", s.BuildMethod))
	}
	sb.WriteString(w.printer.Sprintf("Test Programs:  %d run, %d failed\n", s.TestsRun, s.TestsFailed))

	status := w.title.String(s.Status)
	if s.Error != "" {
		status += " - " + s.Error
	}
	sb.WriteString(w.printer.Sprintf("Status:         %s\n\n", status))
}

func (w *SimpleWriter) writeCoverage(sb *strings.Builder, s *model.CoverageSummary) {
	w.section(sb, "COVERAGE")

	sb.WriteString(w.printer.Sprintf("  Overall:  %.1f%% [%s]\n", s.Percent, strings.ToUpper(s.Level().String())))
	sb.WriteString(w.printer.Sprintf("  Lines:    %d of %d executable lines covered\n", s.CoveredLines, s.ExecutableLines))
	sb.WriteString(w.printer.Sprintf("  Files:    %d\n", len(s.Files)))
	if s.ReportPath != "" {
		sb.WriteString(w.printer.Sprintf("  Report:   %s (%s)\n", s.ReportPath, s.ReportKind))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeIssues(sb *strings.Builder, s *model.CoverageSummary) {
	if len(s.Issues) == 0 {
		return
	}
	w.section(sb, "COMPATIBILITY ISSUES")
	for _, issue := range s.Issues {
		sb.WriteString("  [!] " + issue + "\n")
	}
	if s.Assisted {
		sb.WriteString(w.printer.Sprintf("\n  Modifications applied temporarily (%s)\n", s.PlanSource))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFiles(sb *strings.Builder, s *model.CoverageSummary) {
	if len(s.Files) == 0 {
		return
	}
	w.section(sb, "FILES")
	for _, f := range leastCovered(s.Files, 0) {
		sb.WriteString(w.printer.Sprintf("  %6.1f%%  %7d/%-7d  %s\n", f.Percent, f.CoveredLines, f.ExecutableLines, f.Name))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, _ *model.CoverageSummary) {
	rule(sb, "=")
	sb.WriteString("Report generated by covgen\n")
	sb.WriteString("https://github.com/nao1215/covgen\n")
	rule(sb, "=")
}
