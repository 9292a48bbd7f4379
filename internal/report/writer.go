package report

import (
	"io"

	"github.com/nao1215/covgen/internal/model"
)

// Writer defines the interface for summary output.
type Writer interface {
	// Write outputs the summary of a finished run. The summary is built
	// from the run when it has none yet.
	Write(run *model.CoverageRun) (int, error)

	// WriteSummary outputs a summary, for example one loaded from history.
	WriteSummary(s *model.CoverageSummary) (int, error)
}

// MultiWriter writes to multiple Writers.
// It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
func (m *MultiWriter) Write(run *model.CoverageRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(s *model.CoverageSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(s)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for summary writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// summaryOf returns the run's summary, building it when missing.
func summaryOf(run *model.CoverageRun) *model.CoverageSummary {
	if run.Summary == nil {
		run.Summary = model.NewCoverageSummary(run)
	}
	return run.Summary
}
