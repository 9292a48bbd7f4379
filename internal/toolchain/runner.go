package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long output copying may continue after the process
// is killed. Grandchildren (make spawning cc) can hold the pipes open.
const waitDelay = time.Second

// Command describes one external program invocation.
type Command struct {
	// Name is the program, resolved through PATH.
	Name string

	// Args are passed verbatim.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the process environment. Later entries win.
	Env []string

	// Stream, when set, receives combined output as it is produced in
	// addition to it being captured in Result.Output.
	Stream io.Writer
}

// String returns the command line for logs and messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a command that started.
type Result struct {
	// ExitCode is the process exit status. -1 when killed by a signal.
	ExitCode int

	// Output is the combined stdout and stderr.
	Output string

	// Duration is the wall time of the command.
	Duration time.Duration
}

// Success reports whether the command exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes external commands.
//
// Run returns a Result whenever the program started, including when it
// exited non-zero. The error is non-nil only when the program could not be
// started or the context ended first.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
// It is safe for concurrent use.
type ExecRunner struct {
	// Timeout bounds each command. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// NewExecRunner creates an ExecRunner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes cmd and captures its combined output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, ErrEmptyCommand
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // commands are built from analysis results and config
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var buf syncBuffer
	var out io.Writer = &buf
	if cmd.Stream != nil {
		out = io.MultiWriter(&buf, cmd.Stream)
	}
	c.Stdout = out
	c.Stderr = out

	start := time.Now()
	err := c.Run()
	res := &Result{Output: buf.String(), Duration: time.Since(start)}

	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", cmd.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, cmd.Name)
	}
	return nil, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
}

// LookPath resolves name through PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return p, nil
}

// Shell wraps a command line so it runs through the platform shell. Plan
// commands such as "gcov *.gcda" rely on glob expansion.
func Shell(dir, line string, env ...string) Command {
	if runtime.GOOS == "windows" {
		return Command{Name: "cmd", Args: []string{"/C", line}, Dir: dir, Env: env}
	}
	return Command{Name: "sh", Args: []string{"-c", line}, Dir: dir, Env: env}
}

// syncBuffer serializes writes from the stdout and stderr copiers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
