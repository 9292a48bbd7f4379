package launcher

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/pkg/browser"

	"github.com/nao1215/covgen/internal/config"
	"github.com/nao1215/covgen/internal/report"
)

// DefaultReportDirs are searched in order; the first with an index.html
// wins.
var DefaultReportDirs = []string{
	config.DefaultLocalOutputDir,
	config.DefaultOutputDir,
	config.DefaultTestOutputDir,
}

// Candidates returns the index.html paths to try. outputDir, when set and
// not already one of the defaults, is tried first.
func Candidates(outputDir string) []string {
	dirs := slices.Clone(DefaultReportDirs)
	if outputDir != "" && !slices.Contains(dirs, filepath.Clean(outputDir)) {
		dirs = append([]string{outputDir}, dirs...)
	}
	paths := make([]string, len(dirs))
	for i, d := range dirs {
		paths[i] = filepath.Join(d, config.ReportIndexFile)
	}
	return paths
}

// Opener finds the first existing report and shows it in the browser.
type Opener struct {
	candidates []string
	open       func(path string) error
	printer    *Printer
}

// OpenerOption configures an Opener.
type OpenerOption func(*Opener)

// WithBrowser replaces the function that opens a file in the browser.
func WithBrowser(open func(path string) error) OpenerOption {
	return func(o *Opener) {
		o.open = open
	}
}

// NewOpener creates an Opener over candidates, printing to out.
func NewOpener(candidates []string, out io.Writer, opts ...OpenerOption) *Opener {
	o := &Opener{
		candidates: candidates,
		open:       browser.OpenFile,
		printer:    NewPrinter(out),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Find returns the first candidate that exists as a regular file.
func (o *Opener) Find() (string, bool) {
	for _, c := range o.candidates {
		info, err := os.Stat(c)
		if err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}

// Open shows the first existing report. A missing report or a browser that
// cannot be started is reported to the user, not returned as an error.
func (o *Opener) Open() error {
	path, ok := o.Find()
	if !ok {
		o.printGuidance()
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if s, err := report.ReadHTMLSummary(abs); err == nil {
		if s.Title != "" {
			o.printer.Info("Report: %s", s.Title)
		}
		if s.Headline != "" {
			o.printer.Info("%s", s.Headline)
		}
	}

	if err := o.open(abs); err != nil {
		o.printer.Warn("Could not open the browser: %v", err)
		o.printer.Info("Open the report manually: %s", abs)
		return nil
	}
	o.printer.Success("Opened coverage report: %s", abs)
	return nil
}

func (o *Opener) printGuidance() {
	o.printer.Warn("No coverage report found. Looked for:")
	for _, c := range o.candidates {
		o.printer.Info("  - %s", c)
	}
	o.printer.Info("")
	o.printer.Info("Generate a report first:")
	o.printer.Info("  covgen run <repository-url>")
	o.printer.Info("  covgen generate <repository-url>")
	o.printer.Info("  covgen generate --local <dir>")
}
