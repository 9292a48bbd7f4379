package toolchain

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler produces the result of a faked command.
type Handler func(cmd Command) (*Result, error)

// FakeRunner is a scripted Runner for tests. Commands are matched by
// program name, or by "name arg0" when a more specific handler exists.
// Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu       sync.Mutex
	tools    map[string]bool
	handlers map[string]Handler
	calls    []Command
}

// NewFakeRunner creates a FakeRunner where the named tools are on PATH.
func NewFakeRunner(tools ...string) *FakeRunner {
	f := &FakeRunner{
		tools:    make(map[string]bool),
		handlers: make(map[string]Handler),
	}
	for _, t := range tools {
		f.tools[t] = true
	}
	return f
}

// Install puts tools on the fake PATH.
func (f *FakeRunner) Install(tools ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tools {
		f.tools[t] = true
	}
}

// Handle registers a handler for key ("make" or "make clean").
func (f *FakeRunner) Handle(key string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = h
}

// Respond registers a fixed exit code and output for key.
func (f *FakeRunner) Respond(key string, exitCode int, output string) {
	f.Handle(key, func(Command) (*Result, error) {
		return &Result{ExitCode: exitCode, Output: output}, nil
	})
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	h := f.handlers[cmd.Name]
	if len(cmd.Args) > 0 {
		if specific, ok := f.handlers[cmd.Name+" "+cmd.Args[0]]; ok {
			h = specific
		}
	}
	f.mu.Unlock()

	if h == nil {
		return &Result{}, nil
	}
	res, err := h(cmd)
	if res != nil && cmd.Stream != nil && res.Output != "" {
		fmt.Fprint(cmd.Stream, res.Output)
	}
	return res, err
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tools[name] {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// Calls returns the commands run so far.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CommandLines returns Calls rendered as strings.
func (f *FakeRunner) CommandLines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether a command line starting with prefix was run.
func (f *FakeRunner) Ran(prefix string) bool {
	for _, line := range f.CommandLines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
