package model

import (
	"math"
	"testing"
)

func TestLevelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		percent float64
		want    Level
	}{
		{percent: 100, want: LevelHigh},
		{percent: 85, want: LevelHigh},
		{percent: 84.9, want: LevelMedium},
		{percent: 50, want: LevelMedium},
		{percent: 49.99, want: LevelLow},
		{percent: 0, want: LevelLow},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.percent); got != tt.want {
			t.Errorf("LevelFor(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	for level, want := range map[Level]string{LevelHigh: "high", LevelMedium: "medium", LevelLow: "low", Level(9): "unknown"} {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestFileCoverage(t *testing.T) {
	t.Parallel()

	t.Run("only executable lines count", func(t *testing.T) {
		t.Parallel()

		f := &FileCoverage{Name: "calc.c"}
		f.Add(LineCoverage{Number: 1, Count: "-", State: LineNonExecutable})
		f.Add(LineCoverage{Number: 2, Count: "3", Hits: 3, State: LineExecuted})
		f.Add(LineCoverage{Number: 3, Count: "#####", State: LineUnexecuted})
		f.Add(LineCoverage{Number: 4, Count: "1*", Hits: 1, State: LineExecuted})

		if f.ExecutableLines != 3 {
			t.Errorf("expected 3 executable lines, got %d", f.ExecutableLines)
		}
		if f.CoveredLines != 2 {
			t.Errorf("expected 2 covered lines, got %d", f.CoveredLines)
		}
		if len(f.Lines) != 4 {
			t.Errorf("expected all 4 lines kept, got %d", len(f.Lines))
		}
		if math.Abs(f.Percent()-66.666) > 0.01 {
			t.Errorf("expected ~66.67%%, got %v", f.Percent())
		}
		if f.Level() != LevelMedium {
			t.Errorf("expected medium, got %v", f.Level())
		}
	})

	t.Run("no executable lines is zero percent", func(t *testing.T) {
		t.Parallel()

		f := &FileCoverage{Name: "empty.h"}
		f.Add(LineCoverage{Number: 1, Count: "-", State: LineNonExecutable})
		if f.Percent() != 0 {
			t.Errorf("expected 0, got %v", f.Percent())
		}
	})
}

func TestCoverageMerge(t *testing.T) {
	t.Parallel()

	file := func(name string, exec, covered int) *FileCoverage {
		return &FileCoverage{Name: name, ExecutableLines: exec, CoveredLines: covered}
	}

	c := NewCoverage()
	c.Merge(file("b.c", 10, 5))
	c.Merge(file("a.c", 10, 10))
	c.Merge(file("b.c", 10, 8))
	c.Merge(file("b.c", 10, 1))
	c.Merge(file("none.h", 0, 0))
	c.Merge(nil)
	c.Sort()

	if len(c.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(c.Files))
	}
	if c.Files[0].Name != "a.c" {
		t.Errorf("expected sorted files, got %q first", c.Files[0].Name)
	}
	if c.ExecutableLines != 20 || c.CoveredLines != 18 {
		t.Errorf("expected 18/20, got %d/%d", c.CoveredLines, c.ExecutableLines)
	}
	if c.Percent() != 90 {
		t.Errorf("expected 90%%, got %v", c.Percent())
	}
	if NewCoverage().Percent() != 0 {
		t.Error("expected empty coverage to be 0%")
	}
}
