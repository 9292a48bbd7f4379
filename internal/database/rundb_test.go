package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/covgen/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSummary(id, url string, started time.Time, percent float64) *model.CoverageSummary {
	return &model.CoverageSummary{
		RunID:           id,
		RepoURL:         url,
		RepoName:        model.RepoNameFromURL(url),
		Date:            started,
		Status:          model.StatusSuccess,
		ExecutableLines: 100,
		CoveredLines:    int(percent),
		Percent:         percent,
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFile)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, DBFile) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("expected existing database to open, got %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveRunAndHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	const url = "https://github.com/example/calc.git"
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range []float64{40, 55, 90} {
		s := testSummary("run-"+string(rune('a'+i)), url, base.Add(time.Duration(i)*time.Hour), p)
		if err := db.SaveRun(ctx, s); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	if err := db.SaveRun(ctx, testSummary("other", "https://github.com/example/json.git", base, 70)); err != nil {
		t.Fatal(err)
	}

	t.Run("history is newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.History(ctx, url, 0)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].Percent != 90 || runs[2].Percent != 40 {
			t.Errorf("unexpected order: %v, %v", runs[0].Percent, runs[2].Percent)
		}
		if !runs[0].Date.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("expected date to round-trip, got %v", runs[0].Date)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.History(ctx, url, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})

	t.Run("latest", func(t *testing.T) {
		t.Parallel()

		s, err := db.Latest(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if s == nil || s.RunID != "run-c" {
			t.Errorf("expected run-c, got %+v", s)
		}
	})

	t.Run("latest of unknown repository is nil", func(t *testing.T) {
		t.Parallel()

		s, err := db.Latest(ctx, "https://github.com/example/none.git")
		if err != nil || s != nil {
			t.Errorf("expected nil, nil; got %v, %v", s, err)
		}
	})

	t.Run("recent spans repositories", func(t *testing.T) {
		t.Parallel()

		runs, err := db.Recent(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 4 {
			t.Errorf("expected 4 runs, got %d", len(runs))
		}
	})

	t.Run("list repositories", func(t *testing.T) {
		t.Parallel()

		stats, err := db.ListRepos(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(stats) != 2 {
			t.Fatalf("expected 2 repositories, got %d", len(stats))
		}
		calc := stats[0]
		if calc.RepoName != "calc" || calc.Runs != 3 || calc.LastPercent != 90 {
			t.Errorf("unexpected stat %+v", calc)
		}
		if calc.LastRecord.IsZero() {
			t.Error("expected a recorded time")
		}
	})
}

func TestSaveRunReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	s := testSummary("same", "https://github.com/example/calc.git", time.Now(), 10)
	if err := db.SaveRun(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.Percent = 80
	s.Status = model.StatusFailed
	if err := db.SaveRun(ctx, s); err != nil {
		t.Fatal(err)
	}

	runs, err := db.History(ctx, s.RepoURL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Percent != 80 || runs[0].Status != model.StatusFailed {
		t.Errorf("expected one updated run, got %+v", runs)
	}
}

func TestDeleteRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	const url = "https://github.com/example/calc.git"
	for _, id := range []string{"a", "b"} {
		if err := db.SaveRun(ctx, testSummary(id, url, time.Now(), 50)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.DeleteRepo(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	if runs, _ := db.History(ctx, url, 0); len(runs) != 0 {
		t.Errorf("expected no runs left, got %d", len(runs))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01 12:30:00", time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-03-01T12:30:00Z", time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"not a time", time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
