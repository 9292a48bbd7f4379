// Package metrics records coverage runs as Prometheus metrics and writes
// them in the text exposition format for the node_exporter textfile
// collector.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/covgen/internal/model"
)

const namespace = "covgen"

// ErrNoPath is returned by WriteTextfile when no file name is given.
var ErrNoPath = errors.New("metrics file path must not be empty")

// Recorder collects step timings and run results. It implements
// pipeline.Observer and is safe for concurrent use by batch runs.
type Recorder struct {
	registry *prometheus.Registry

	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	runs         *prometheus.CounterVec
	percent      *prometheus.GaugeVec
	lines        *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent in each pipeline step.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
		}, []string{"step"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Pipeline steps that returned an error.",
		}, []string{"step"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Coverage runs by final status.",
		}, []string{"status"}),
		percent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_percent",
			Help:      "Line coverage of the last successful run.",
		}, []string{"repo"}),
		lines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_lines",
			Help:      "Executable and covered lines of the last successful run.",
		}, []string{"repo", "kind"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a repository finished.",
		}, []string{"repo"}),
	}
	r.registry.MustRegister(r.stepDuration, r.stepFailures, r.runs, r.percent, r.lines, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep records one step or finalizer.
func (r *Recorder) ObserveStep(name string, elapsed time.Duration, err error) {
	r.stepDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		r.stepFailures.WithLabelValues(name).Inc()
	}
}

// ObserveRun records the outcome of a finished run. Coverage gauges are
// only updated for successful runs so a failure does not report 0%.
func (r *Recorder) ObserveRun(s *model.CoverageSummary) {
	r.runs.WithLabelValues(s.Status).Inc()
	r.lastRun.WithLabelValues(s.RepoName).Set(float64(time.Now().Unix()))
	if s.Status != model.StatusSuccess {
		return
	}
	r.percent.WithLabelValues(s.RepoName).Set(s.Percent)
	r.lines.WithLabelValues(s.RepoName, "executable").Set(float64(s.ExecutableLines))
	r.lines.WithLabelValues(s.RepoName, "covered").Set(float64(s.CoveredLines))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return ErrNoPath
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
