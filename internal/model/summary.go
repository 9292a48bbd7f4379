package model

import "time"

// Run statuses stored in CoverageSummary.Status.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// CoverageSummary is the compact view of a run used by the text, JSON and
// Markdown writers and stored in the history database.
type CoverageSummary struct {
	RunID      string    `json:"run_id"`
	RepoURL    string    `json:"repo_url"`
	RepoName   string    `json:"repo_name"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	DurationMS int64     `json:"duration_ms"`

	ProjectType string   `json:"project_type,omitempty"`
	BuildSystem string   `json:"build_system,omitempty"`
	Issues      []string `json:"issues,omitempty"`
	Assisted    bool     `json:"assisted"`
	PlanSource  string   `json:"plan_source,omitempty"`
	BuildMethod string   `json:"build_method,omitempty"`

	TestsRun    int `json:"tests_run"`
	TestsFailed int `json:"tests_failed"`

	ExecutableLines int          `json:"executable_lines"`
	CoveredLines    int          `json:"covered_lines"`
	Percent         float64      `json:"percent"`
	Files           []FileDigest `json:"files,omitempty"`

	ReportPath string     `json:"report_path,omitempty"`
	ReportKind ReportKind `json:"report_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// FileDigest is one row of the per-file table.
type FileDigest struct {
	Name            string  `json:"name"`
	ExecutableLines int     `json:"executable_lines"`
	CoveredLines    int     `json:"covered_lines"`
	Percent         float64 `json:"percent"`
}

// NewCoverageSummary builds the summary of a run.
func NewCoverageSummary(r *CoverageRun) *CoverageSummary {
	s := &CoverageSummary{
		RunID:       r.ID,
		RepoURL:     r.RepoURL,
		RepoName:    r.RepoName,
		Date:        r.StartedAt,
		DurationMS:  r.Duration().Milliseconds(),
		Assisted:    r.Assisted,
		PlanSource:  r.PlanSource,
		BuildMethod: r.BuildMethod,
		TestsRun:    r.TestsRun,
		TestsFailed: r.TestsFailed,
		ReportPath:  r.ReportPath,
		ReportKind:  r.ReportKind,
		Error:       r.ErrorMessage,
		Issues:      IssueMessages(r.Issues),
	}

	switch {
	case r.Cancelled:
		s.Status = StatusCancelled
	case r.Succeeded():
		s.Status = StatusSuccess
	default:
		s.Status = StatusFailed
	}

	if r.Analysis != nil {
		s.ProjectType = r.Analysis.ProjectType
		s.BuildSystem = string(r.Analysis.BuildSystem)
	}

	if r.Coverage != nil {
		s.ExecutableLines = r.Coverage.ExecutableLines
		s.CoveredLines = r.Coverage.CoveredLines
		s.Percent = r.Coverage.Percent()
		for _, f := range r.Coverage.Files {
			s.Files = append(s.Files, FileDigest{
				Name:            f.Name,
				ExecutableLines: f.ExecutableLines,
				CoveredLines:    f.CoveredLines,
				Percent:         f.Percent(),
			})
		}
	}

	return s
}

// Level returns the band of the overall percentage.
func (s *CoverageSummary) Level() Level {
	return LevelFor(s.Percent)
}

// UncoveredLines is the number of executable lines that never ran.
func (s *CoverageSummary) UncoveredLines() int {
	return s.ExecutableLines - s.CoveredLines
}
