package model

import (
	"time"

	"github.com/google/uuid"
)

// Step names recorded in CoverageRun.PerformedSteps.
const (
	StepClone         = "clone"
	StepAnalyze       = "analyze"
	StepCompatibility = "compatibility"
	StepAssist        = "assist"
	StepBuild         = "build"
	StepTest          = "test"
	StepGcov          = "gcov"
	StepReport        = "report"
)

// ReportKind identifies which renderer produced the HTML report.
type ReportKind string

const (
	// ReportKindLcov means lcov captured a tracefile and genhtml rendered it.
	ReportKindLcov ReportKind = "lcov"

	// ReportKindBuiltin means the report was rendered from parsed .gcov files.
	ReportKindBuiltin ReportKind = "builtin"
)

// CoverageRun is the state of one repository flowing through the pipeline.
// Each step reads what earlier steps produced and records its own output.
//
// Design decision: like a scan report, a run is one flat struct that is
// easy to serialize into the history database. Heavy data (per-line
// coverage) is excluded from JSON and only the summary is persisted.
type CoverageRun struct {
	// ID uniquely identifies the run across the history database.
	ID string `json:"id"`

	// RepoURL is the URL exactly as given by the user.
	RepoURL string `json:"repo_url"`

	// RepoName is derived from RepoURL, or the directory name with --local.
	RepoName string `json:"repo_name"`

	// Local is true when an existing checkout is analyzed in place.
	Local bool `json:"local"`

	// WorkDir is the root of the checkout the steps operate on.
	WorkDir string `json:"-"`

	// TempDir is the directory created for the clone. It is removed when
	// the run finishes. Empty with --local.
	TempDir string `json:"-"`

	// OutputDir is where the HTML report is written.
	OutputDir string `json:"output_dir"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Analysis is the repository structure found by the analyze step.
	Analysis *RepoAnalysis `json:"analysis,omitempty"`

	// Issues lists why the repository is not Gcov compatible.
	Issues []CompatibilityIssue `json:"issues,omitempty"`

	// Compatible is true when no issues were found.
	Compatible bool `json:"compatible"`

	// Assisted is true when modifications were planned for this run.
	Assisted bool `json:"assisted"`

	// PlanSource tells where the plan came from: "bedrock" or "fallback".
	PlanSource string `json:"plan_source,omitempty"`

	// Plan is the modification plan, if one was requested.
	Plan *ModificationPlan `json:"plan,omitempty"`

	// Applied lists the files touched by the plan, in application order.
	// Rollback walks it in reverse.
	Applied []AppliedModification `json:"-"`

	// BuildMethod names the build path that succeeded (make, mingw32-make,
	// cmake, direct, plan).
	BuildMethod string `json:"build_method,omitempty"`

	// TestsRun and TestsFailed count executed test programs.
	TestsRun    int `json:"tests_run"`
	TestsFailed int `json:"tests_failed"`

	// Coverage is the parsed result. Only the summary is serialized.
	Coverage *Coverage `json:"-"`

	// Summary is the persisted digest of Coverage.
	Summary *CoverageSummary `json:"summary,omitempty"`

	// ReportPath is the index.html of the generated report.
	ReportPath string `json:"report_path,omitempty"`

	// ReportKind is the renderer that produced ReportPath.
	ReportKind ReportKind `json:"report_kind,omitempty"`

	// PerformedSteps lists the steps that ran to completion.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled"`

	// Error is the first fatal error of the run.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewCoverageRun creates a run for the given repository URL.
func NewCoverageRun(repoURL, outputDir string) *CoverageRun {
	return &CoverageRun{
		ID:        uuid.NewString(),
		RepoURL:   repoURL,
		RepoName:  RepoNameFromURL(repoURL),
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}
}

// NewLocalRun creates a run that analyzes dir in place.
func NewLocalRun(dir, outputDir string) *CoverageRun {
	r := NewCoverageRun(dir, outputDir)
	r.RepoName = RepoNameFromPath(dir)
	r.Local = true
	r.WorkDir = dir
	return r
}

// MarkStep records that a step completed.
func (r *CoverageRun) MarkStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// HasStep reports whether the named step completed.
func (r *CoverageRun) HasStep(name string) bool {
	for _, s := range r.PerformedSteps {
		if s == name {
			return true
		}
	}
	return false
}

// Fail records err as the run's error unless one is already set.
func (r *CoverageRun) Fail(err error) {
	if err == nil || r.Error != nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Succeeded reports whether the run finished with a report and no error.
func (r *CoverageRun) Succeeded() bool {
	return r.Error == nil && !r.Cancelled && r.ReportPath != ""
}

// Finish stamps the end time and refreshes the summary from Coverage.
func (r *CoverageRun) Finish() {
	r.FinishedAt = time.Now()
	r.Summary = NewCoverageSummary(r)
}

// Duration is the wall time of the run so far.
func (r *CoverageRun) Duration() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.StartedAt)
}

// Record tracks a file touched by a modification plan.
func (r *CoverageRun) Record(m AppliedModification) {
	r.Applied = append(r.Applied, m)
}
