package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/covgen/internal/model"
)

// DBFile is the database file name inside the data directory.
const DBFile = "covgen.db"

// ErrDatabaseNotFound is returned by Open when CreateIfNotExists is false
// and there is no database yet.
var ErrDatabaseNotFound = errors.New("history database not found")

// RunDB stores coverage run summaries.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so the history command can read
	// while a batch run writes.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run database in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.dbPath
}

func (r *RunDB) createTables() error {
	schema := `
	-- One row per coverage run. The summary is stored as JSON; the columns
	-- duplicate what the history queries filter and sort on.
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		repo_url TEXT NOT NULL,
		repo_name TEXT NOT NULL,
		status TEXT NOT NULL,
		percent REAL NOT NULL DEFAULT 0,
		started_unix INTEGER NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_repo ON runs(repo_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_unix);
	`

	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a run summary. Saving the same run ID twice replaces the
// earlier row.
func (r *RunDB) SaveRun(ctx context.Context, s *model.CoverageSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	INSERT INTO runs (run_id, repo_url, repo_name, status, percent, started_unix, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		status = excluded.status,
		percent = excluded.percent,
		summary_json = excluded.summary_json,
		recorded_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.ExecContext(ctx, query,
		s.RunID,
		s.RepoURL,
		s.RepoName,
		s.Status,
		s.Percent,
		s.Date.UnixNano(),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Latest returns the most recent run of repoURL, or nil when there is none.
func (r *RunDB) Latest(ctx context.Context, repoURL string) (*model.CoverageSummary, error) {
	runs, err := r.History(ctx, repoURL, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// History returns the runs of repoURL, newest first. limit <= 0 returns all.
func (r *RunDB) History(ctx context.Context, repoURL string, limit int) ([]*model.CoverageSummary, error) {
	query := `
	SELECT summary_json FROM runs
	WHERE repo_url = ?
	ORDER BY started_unix DESC
	LIMIT ?
	`
	return r.summaries(ctx, query, repoURL, sqlLimit(limit))
}

// Recent returns the newest runs across all repositories.
func (r *RunDB) Recent(ctx context.Context, limit int) ([]*model.CoverageSummary, error) {
	query := `
	SELECT summary_json FROM runs
	ORDER BY started_unix DESC
	LIMIT ?
	`
	return r.summaries(ctx, query, sqlLimit(limit))
}

// RepoStat summarizes the history of one repository.
type RepoStat struct {
	RepoURL     string    `json:"repo_url"`
	RepoName    string    `json:"repo_name"`
	Runs        int       `json:"runs"`
	LastPercent float64   `json:"last_percent"`
	LastStatus  string    `json:"last_status"`
	LastRecord  time.Time `json:"last_record"`
}

// ListRepos returns every repository with at least one run, ordered by URL.
func (r *RunDB) ListRepos(ctx context.Context) ([]RepoStat, error) {
	query := `
	SELECT r.repo_url, r.repo_name, c.runs, r.percent, r.status, r.recorded_at
	FROM runs r
	JOIN (
		SELECT repo_url, COUNT(*) AS runs, MAX(started_unix) AS last
		FROM runs GROUP BY repo_url
	) c ON c.repo_url = r.repo_url AND c.last = r.started_unix
	ORDER BY r.repo_url
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var stats []RepoStat
	for rows.Next() {
		var st RepoStat
		var recorded string
		if err := rows.Scan(&st.RepoURL, &st.RepoName, &st.Runs, &st.LastPercent, &st.LastStatus, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		st.LastRecord = parseTimestamp(recorded)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DeleteRepo removes every run of repoURL and returns how many were removed.
func (r *RunDB) DeleteRepo(ctx context.Context, repoURL string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE repo_url = ?`, repoURL)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return res.RowsAffected()
}

func (r *RunDB) summaries(ctx context.Context, query string, args ...any) ([]*model.CoverageSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []*model.CoverageSummary
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var s model.CoverageSummary
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, fmt.Errorf("failed to parse run: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each format in turn and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
