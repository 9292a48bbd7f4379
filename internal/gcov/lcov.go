package gcov

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/toolchain"
)

// TracefileName is the lcov capture written into the repository root.
const TracefileName = "coverage.info"

// Lcov renders reports with lcov and genhtml.
type Lcov struct {
	runner toolchain.Runner
	logger *slog.Logger
	stream io.Writer
}

// NewLcov creates an Lcov driver.
func NewLcov(r toolchain.Runner, logger *slog.Logger, stream io.Writer) *Lcov {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lcov{runner: r, logger: logger, stream: stream}
}

// Available reports whether both lcov and genhtml are installed.
func (l *Lcov) Available() bool {
	return toolchain.HasLcov(l.runner)
}

// Report captures coverage from root and renders HTML into outDir. It
// returns the tracefile path.
func (l *Lcov) Report(ctx context.Context, root, outDir string) (string, error) {
	capture := toolchain.Command{
		Name:   toolchain.Lcov,
		Args:   []string{"--capture", "--directory", ".", "--output-file", TracefileName},
		Dir:    root,
		Stream: l.stream,
	}
	if err := l.run(ctx, capture); err != nil {
		return "", err
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return "", err
	}
	genhtml := toolchain.Command{
		Name:   toolchain.Genhtml,
		Args:   []string{TracefileName, "--output-directory", absOut},
		Dir:    root,
		Stream: l.stream,
	}
	if err := l.run(ctx, genhtml); err != nil {
		return "", err
	}

	l.logger.Info("lcov report generated", "dir", absOut)
	return filepath.Join(root, TracefileName), nil
}

func (l *Lcov) run(ctx context.Context, cmd toolchain.Command) error {
	res, err := l.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLcovFailed, cmd.Name, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: %s exited with %d", ErrLcovFailed, cmd.Name, res.ExitCode)
	}
	return nil
}

// ParseTracefile reads line coverage from an lcov tracefile. Only SF, DA
// and end_of_record entries are used; source text is not available.
func ParseTracefile(r io.Reader) (*model.Coverage, error) {
	cov := model.NewCoverage()
	var cur *model.FileCoverage

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "SF:"):
			cur = &model.FileCoverage{Name: strings.TrimPrefix(line, "SF:")}
		case strings.HasPrefix(line, "DA:") && cur != nil:
			fields := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
			if len(fields) < 2 {
				continue
			}
			num, err1 := strconv.Atoi(fields[0])
			hits, err2 := strconv.ParseInt(fields[1], 10, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			lc := model.LineCoverage{Number: num, Count: fields[1], Hits: hits, State: model.LineUnexecuted}
			if hits > 0 {
				lc.State = model.LineExecuted
			}
			cur.Add(lc)
		case line == "end_of_record" && cur != nil:
			cov.Merge(cur)
			cur = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracefile: %w", err)
	}
	cov.Sort()
	return cov, nil
}
