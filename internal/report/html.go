package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/yuin/goldmark"

	"github.com/nao1215/covgen/internal/model"
)

// IndexFile is the entry point of the built-in report.
const IndexFile = "index.html"

// DefaultLinesPerFile is how many source lines of each file the report
// shows before summarizing the rest.
const DefaultLinesPerFile = 50

// echartsAsset is loaded by the report page for the coverage chart.
const echartsAsset = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

// HTMLWriter renders the built-in HTML report.
//
// Design decision: this report is the fallback for machines without lcov,
// so it only needs the .gcov listings and html/template. The chart script
// is loaded from the go-echarts asset host; without network access the
// page still shows every table.
type HTMLWriter struct {
	linesPerFile int
	markdown     goldmark.Markdown
}

// HTMLWriterOption configures an HTMLWriter.
type HTMLWriterOption func(*HTMLWriter)

// WithLinesPerFile sets how many lines of each file are listed.
// Zero or less lists every line.
func WithLinesPerFile(n int) HTMLWriterOption {
	return func(w *HTMLWriter) {
		w.linesPerFile = n
	}
}

// NewHTMLWriter creates an HTMLWriter.
func NewHTMLWriter(opts ...HTMLWriterOption) *HTMLWriter {
	w := &HTMLWriter{
		linesPerFile: DefaultLinesPerFile,
		markdown:     goldmark.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type htmlLine struct {
	Number int
	Count  string
	Source string
	Class  string
}

type htmlFile struct {
	Name      string
	Class     string
	Percent   string
	Covered   int
	Total     int
	Lines     []htmlLine
	Remaining int
}

type htmlPage struct {
	RepoName    string
	RepoURL     string
	Percent     string
	Covered     int
	Total       int
	Class       string
	Analysis    *model.RepoAnalysis
	BuildMethod string
	TestsRun    int
	TestsFailed int
	Issues      []string
	Explanation template.HTML
	PlanSource  string
	Chart       template.HTML
	Asset       string
	Files       []htmlFile
	Generated   string
}

// WriteDir renders the report into dir/index.html and returns the path.
func (w *HTMLWriter) WriteDir(dir string, run *model.CoverageRun) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, IndexFile)

	var buf bytes.Buffer
	if err := w.Render(&buf, run); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Render writes the report page for run to out.
func (w *HTMLWriter) Render(out io.Writer, run *model.CoverageRun) error {
	cov := run.Coverage
	if cov == nil {
		cov = model.NewCoverage()
	}

	page := htmlPage{
		RepoName:    run.RepoName,
		RepoURL:     run.RepoURL,
		Percent:     formatPercent(cov.Percent()),
		Covered:     cov.CoveredLines,
		Total:       cov.ExecutableLines,
		Class:       cov.Level().String(),
		Analysis:    run.Analysis,
		BuildMethod: run.BuildMethod,
		TestsRun:    run.TestsRun,
		TestsFailed: run.TestsFailed,
		Issues:      model.IssueMessages(run.Issues),
		PlanSource:  run.PlanSource,
		Asset:       echartsAsset,
		Generated:   run.StartedAt.Format("2006-01-02 15:04:05 MST"),
	}

	if run.Plan != nil && strings.TrimSpace(run.Plan.Explanation) != "" {
		var md bytes.Buffer
		if err := w.markdown.Convert([]byte(run.Plan.Explanation), &md); err != nil {
			return fmt.Errorf("failed to render plan explanation: %w", err)
		}
		page.Explanation = template.HTML(md.String()) //nolint:gosec // goldmark escapes raw HTML by default
	}

	if cov.ExecutableLines > 0 {
		chart, err := coverageChart(cov)
		if err != nil {
			return err
		}
		page.Chart = chart
	}

	for _, f := range cov.Files {
		page.Files = append(page.Files, w.file(f))
	}

	return pageTemplate.Execute(out, page)
}

func (w *HTMLWriter) file(f *model.FileCoverage) htmlFile {
	hf := htmlFile{
		Name:    f.Name,
		Class:   f.Level().String(),
		Percent: formatPercent(f.Percent()),
		Covered: f.CoveredLines,
		Total:   f.ExecutableLines,
	}

	lines := f.Lines
	if w.linesPerFile > 0 && len(lines) > w.linesPerFile {
		hf.Remaining = len(lines) - w.linesPerFile
		lines = lines[:w.linesPerFile]
	}
	for _, l := range lines {
		class := "line-neutral"
		switch l.State {
		case model.LineExecuted:
			class = "line-covered"
		case model.LineUnexecuted:
			class = "line-uncovered"
		case model.LineNonExecutable:
		}
		hf.Lines = append(hf.Lines, htmlLine{Number: l.Number, Count: l.Count, Source: l.Source, Class: class})
	}
	return hf
}

// coverageChart renders a covered/uncovered pie and returns only the chart
// container and its script, without the page echarts wraps it in.
func coverageChart(cov *model.Coverage) (template.HTML, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Line Coverage"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "480px", Height: "320px"}),
	)
	pie.AddSeries("Lines", []opts.PieData{
		{Name: "Covered", Value: cov.CoveredLines, ItemStyle: &opts.ItemStyle{Color: "#28a745"}},
		{Name: "Uncovered", Value: cov.ExecutableLines - cov.CoveredLines, ItemStyle: &opts.ItemStyle{Color: "#dc3545"}},
	}).SetSeriesOptions(
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)

	var buf bytes.Buffer
	if err := pie.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return template.HTML(chartContent(buf.String())), nil //nolint:gosec // generated by go-echarts from numbers only
}

// chartContent cuts the chart container out of a full echarts page.
func chartContent(page string) string {
	start := strings.Index(page, `<div class="container">`)
	end := strings.Index(page, `</body>`)
	if start == -1 || end == -1 || end < start {
		return page
	}
	return page[start:end]
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Code Coverage Report - {{.RepoName}}</title>
    <script src="{{.Asset}}"></script>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { background: #f0f0f0; padding: 20px; border-radius: 5px; }
        .summary { margin: 20px 0; }
        .section { margin: 20px 0; }
        .file { margin: 10px 0; padding: 15px; border: 1px solid #ddd; border-radius: 5px; }
        .coverage-high { background-color: #d4edda; }
        .coverage-medium { background-color: #fff3cd; }
        .coverage-low { background-color: #f8d7da; }
        .line { font-family: monospace; font-size: 12px; white-space: pre; }
        .line-covered { background-color: #d4edda; }
        .line-uncovered { background-color: #f8d7da; }
        .line-number { color: #666; width: 50px; display: inline-block; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Code Coverage Report</h1>
        <h2>Repository: {{.RepoName}}</h2>
        <div class="summary coverage-{{.Class}}">
            <strong>Overall Coverage: {{.Percent}}</strong> ({{.Covered}}/{{.Total}} lines)
        </div>
        <p>{{.RepoURL}} &middot; {{.Generated}}</p>
    </div>
{{- if .Chart}}
    <div class="section chart">{{.Chart}}</div>
{{- end}}
{{- with .Analysis}}
    <div class="section analysis">
        <h3>Analysis</h3>
        <ul>
            <li>Project type: {{.ProjectType}}</li>
            <li>Build system: {{.BuildSystem}}</li>
            <li>Source files: {{len .SourceFiles}}</li>
            <li>Test files: {{len .TestFiles}}</li>
        </ul>
    </div>
{{- end}}
    <div class="section build">
        <p>Build method: {{if .BuildMethod}}{{.BuildMethod}}{{else}}n/a{{end}} &middot; Test programs: {{.TestsRun}} run, {{.TestsFailed}} failed</p>
    </div>
{{- if .Issues}}
    <div class="section issues">
        <h3>Compatibility Issues</h3>
        <ul>{{range .Issues}}
            <li>{{.}}</li>{{end}}
        </ul>
    </div>
{{- end}}
{{- if .Explanation}}
    <div class="section modifications">
        <h3>Temporary Modifications ({{.PlanSource}})</h3>
        {{.Explanation}}
    </div>
{{- end}}
{{- range .Files}}
    <div class="file coverage-{{.Class}}">
        <h3>{{.Name}}</h3>
        <p>Coverage: {{.Percent}} ({{.Covered}}/{{.Total}} lines)</p>
        <div class="code">
{{- range .Lines}}
<div class="line {{.Class}}"><span class="line-number">{{printf "%3d" .Number}}:</span> {{printf "%6s" .Count}} | {{.Source}}</div>
{{- end}}
{{- if .Remaining}}
        <p><em>... and {{.Remaining}} more lines</em></p>
{{- end}}
        </div>
    </div>
{{- end}}
</body>
</html>
`))
