package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/covgen/internal/model"
)

// JSONWriter outputs summaries in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run's summary in JSON format.
func (w *JSONWriter) Write(run *model.CoverageRun) (int, error) {
	return w.writeJSON(summaryOf(run))
}

// WriteSummary outputs the summary in JSON format.
func (w *JSONWriter) WriteSummary(s *model.CoverageSummary) (int, error) {
	return w.writeJSON(s)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a full run with the version that produced it.
type JSONReport struct {
	Version string                 `json:"version"`
	Run     *model.CoverageRun     `json:"run"`
	Summary *model.CoverageSummary `json:"summary,omitempty"`
}

// FullJSONWriter outputs the complete run, analysis and plan included.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for complete runs with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full run wrapped with metadata.
func (w *FullJSONWriter) Write(run *model.CoverageRun) (int, error) {
	return w.writeJSON(&JSONReport{
		Version: w.version,
		Run:     run,
		Summary: summaryOf(run),
	})
}
