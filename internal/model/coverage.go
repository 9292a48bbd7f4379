package model

import "sort"

// Level is the coverage band a percentage falls into.
type Level int

const (
	// LevelLow is below 50%.
	LevelLow Level = iota

	// LevelMedium is from 50% up to, but excluding, 85%.
	LevelMedium

	// LevelHigh is 85% and above.
	LevelHigh
)

// Band thresholds in percent.
const (
	HighThreshold   = 85.0
	MediumThreshold = 50.0
)

// LevelFor returns the band of a percentage.
func LevelFor(percent float64) Level {
	switch {
	case percent >= HighThreshold:
		return LevelHigh
	case percent >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// String returns the lowercase band name, used as a CSS class suffix.
func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	default:
		return "unknown"
	}
}

// LineState classifies one line of a .gcov listing.
type LineState int

const (
	// LineNonExecutable lines ("-") carry no code.
	LineNonExecutable LineState = iota

	// LineExecuted lines ran at least once.
	LineExecuted

	// LineUnexecuted lines ("#####" or "=====") never ran.
	LineUnexecuted
)

// LineCoverage is one source line with its execution data.
type LineCoverage struct {
	Number int       `json:"number"`
	Count  string    `json:"count"`
	Hits   int64     `json:"hits"`
	Source string    `json:"source"`
	State  LineState `json:"state"`
}

// Executable reports whether the line holds code.
func (l LineCoverage) Executable() bool {
	return l.State != LineNonExecutable
}

// FileCoverage is the coverage of one source file.
type FileCoverage struct {
	// Name is the source path as reported by gcov.
	Name string `json:"name"`

	// Lines holds every numbered line in the listing, executable or not.
	Lines []LineCoverage `json:"-"`

	ExecutableLines int `json:"executable_lines"`
	CoveredLines    int `json:"covered_lines"`
}

// Add appends a line and updates the counters.
func (f *FileCoverage) Add(line LineCoverage) {
	f.Lines = append(f.Lines, line)
	switch line.State {
	case LineExecuted:
		f.ExecutableLines++
		f.CoveredLines++
	case LineUnexecuted:
		f.ExecutableLines++
	case LineNonExecutable:
	}
}

// Percent returns the covered share of executable lines, 0 when there are none.
func (f *FileCoverage) Percent() float64 {
	return percent(f.CoveredLines, f.ExecutableLines)
}

// Level returns the coverage band of the file.
func (f *FileCoverage) Level() Level {
	return LevelFor(f.Percent())
}

// Coverage aggregates per-file results.
type Coverage struct {
	Files           []*FileCoverage `json:"files"`
	ExecutableLines int             `json:"executable_lines"`
	CoveredLines    int             `json:"covered_lines"`
}

// NewCoverage returns an empty aggregate.
func NewCoverage() *Coverage {
	return &Coverage{Files: []*FileCoverage{}}
}

// Merge adds a file's result. A file seen twice (gcov run from two
// directories) keeps the listing with more executed lines.
func (c *Coverage) Merge(f *FileCoverage) {
	if f == nil || f.ExecutableLines == 0 {
		return
	}
	for i, existing := range c.Files {
		if existing.Name != f.Name {
			continue
		}
		if f.CoveredLines > existing.CoveredLines {
			c.ExecutableLines += f.ExecutableLines - existing.ExecutableLines
			c.CoveredLines += f.CoveredLines - existing.CoveredLines
			c.Files[i] = f
		}
		return
	}
	c.Files = append(c.Files, f)
	c.ExecutableLines += f.ExecutableLines
	c.CoveredLines += f.CoveredLines
}

// Sort orders files by name so reports are stable.
func (c *Coverage) Sort() {
	sort.Slice(c.Files, func(i, j int) bool { return c.Files[i].Name < c.Files[j].Name })
}

// Percent returns the overall covered share, 0 when nothing is executable.
func (c *Coverage) Percent() float64 {
	return percent(c.CoveredLines, c.ExecutableLines)
}

// Level returns the overall coverage band.
func (c *Coverage) Level() Level {
	return LevelFor(c.Percent())
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total) * 100
}
