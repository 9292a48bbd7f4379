package launcher

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const bannerWidth = 60

// Printer writes the launcher's user-facing messages. Colour is used only
// when the destination is a terminal.
type Printer struct {
	out io.Writer

	title   *color.Color
	success *color.Color
	failure *color.Color
	warning *color.Color
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{
		out:     out,
		title:   color.New(color.FgCyan, color.Bold),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow),
	}
	if !isTerminal(out) {
		for _, c := range []*color.Color{p.title, p.success, p.failure, p.warning} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Banner prints a framed title.
func (p *Printer) Banner(title string) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(p.out, rule)
	p.title.Fprintln(p.out, title) //nolint:errcheck // best effort terminal output
	fmt.Fprintln(p.out, rule)
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a highlighted success line.
func (p *Printer) Success(format string, args ...any) {
	p.success.Fprintf(p.out, format+"\n", args...) //nolint:errcheck // best effort terminal output
}

// Warn prints a highlighted warning line.
func (p *Printer) Warn(format string, args ...any) {
	p.warning.Fprintf(p.out, format+"\n", args...) //nolint:errcheck // best effort terminal output
}

// Failure prints the fixed error banner shown when generation fails.
func (p *Printer) Failure(code int) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, rule)
	p.failure.Fprintln(p.out, "ERROR: Coverage report generation failed!") //nolint:errcheck // best effort terminal output
	fmt.Fprintf(p.out, "Generator exit code: %d\n", code)
	fmt.Fprintln(p.out, "Check the output above for details.")
	fmt.Fprintln(p.out, rule)
}
