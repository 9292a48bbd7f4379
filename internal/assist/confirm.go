package assist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/nao1215/covgen/internal/model"
)

// Confirmer decides whether a plan is applied.
type Confirmer struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	autoApply   bool
}

// ConfirmOption configures a Confirmer.
type ConfirmOption func(*Confirmer)

// WithPrompt replaces stdin and stdout. interactive says whether in is a
// terminal that can answer.
func WithPrompt(in io.Reader, out io.Writer, interactive bool) ConfirmOption {
	return func(c *Confirmer) {
		c.in = in
		c.out = out
		c.interactive = interactive
	}
}

// NewConfirmer returns a Confirmer on stdin/stdout. autoApply mirrors
// auto_apply_suggestions in config.ini.
func NewConfirmer(autoApply bool, opts ...ConfirmOption) *Confirmer {
	c := &Confirmer{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		autoApply:   autoApply,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Confirm prints a summary of plan and reports whether to apply it.
// Sessions without a terminal apply without asking.
func (c *Confirmer) Confirm(plan *model.ModificationPlan) (bool, error) {
	fmt.Fprintln(c.out, "  Modifications to be applied:")
	for _, line := range plan.Describe() {
		fmt.Fprintf(c.out, "    - %s\n", line)
	}

	switch {
	case c.autoApply:
		fmt.Fprintln(c.out, "  Auto-applying modifications (configured in config.ini)")
		return true, nil
	case !c.interactive:
		fmt.Fprintln(c.out, "  Applying modifications (non-interactive session)")
		return true, nil
	}

	fmt.Fprint(c.out, "  Apply these modifications? [Y/n] ")
	answer, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
