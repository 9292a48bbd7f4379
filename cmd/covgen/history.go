package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/covgen/internal/config"
	"github.com/nao1215/covgen/internal/database"
	"github.com/nao1215/covgen/internal/model"
)

// defaultHistoryLimit is the number of runs shown without --limit.
const defaultHistoryLimit = 20

// noHistoryMessage is printed when nothing has been recorded yet.
const noHistoryMessage = "No coverage runs recorded yet. Run 'covgen generate <repository-url>' first."

// NewHistoryCmd creates the history command.
// It lists coverage runs recorded in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [repository-url]",
		Short: "Show recorded coverage runs",
		Long: `History lists the coverage runs recorded by 'covgen generate'.

Without a URL the most recent runs of every repository are shown. With a
URL only that repository's runs are listed, together with the change in
coverage since its previous run.

Examples:
  # Recent runs
  covgen history

  # Runs of one repository
  covgen history https://github.com/example/calc.git

  # Every repository with its latest coverage
  covgen history --list-repos

  # Machine-readable output
  covgen history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-repos", "L", false,
		"List every repository in the database")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to show (0 for all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listRepos, err := cmd.Flags().GetBool("list-repos")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Reading history never creates the database.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, noHistoryMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listRepos {
		stats, err := db.ListRepos(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, stats)
		}
		return printRepoStats(out, stats)
	}

	var runs []*model.CoverageSummary
	if len(args) == 1 {
		runs, err = db.History(ctx, args[0], limit)
	} else {
		runs, err = db.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, noHistoryMessage)
		return nil
	}

	printRuns(out, runs)
	if len(args) == 1 && len(runs) >= 2 {
		fmt.Fprintf(out, "\nChange since previous run: %s\n", formatDelta(runs[0].Percent-runs[1].Percent))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	return tbl
}

func printRuns(w io.Writer, runs []*model.CoverageSummary) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"When", "Repository", "Status", "Coverage", "Lines", "Duration", "Run ID"})
	for _, r := range runs {
		tbl.AppendRow(table.Row{
			humanize.Time(r.Date),
			r.RepoName,
			r.Status,
			formatCoverage(r),
			humanize.Comma(int64(r.CoveredLines)) + "/" + humanize.Comma(int64(r.ExecutableLines)),
			(time.Duration(r.DurationMS) * time.Millisecond).Round(time.Second).String(),
			shortID(r.RunID),
		})
	}
	tbl.Render()
	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
}

func printRepoStats(w io.Writer, stats []database.RepoStat) error {
	if len(stats) == 0 {
		fmt.Fprintln(w, noHistoryMessage)
		return nil
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Repository", "URL", "Runs", "Last coverage", "Last status", "Last run"})
	for _, s := range stats {
		tbl.AppendRow(table.Row{
			s.RepoName,
			s.RepoURL,
			s.Runs,
			fmt.Sprintf("%.1f%%", s.LastPercent),
			s.LastStatus,
			humanize.Time(s.LastRecord),
		})
	}
	tbl.Render()
	fmt.Fprintf(w, "\nTotal: %d repositories\n", len(stats))
	return nil
}

// formatCoverage shows the percentage only for runs that produced a report.
func formatCoverage(s *model.CoverageSummary) string {
	if s.Status != model.StatusSuccess {
		return "-"
	}
	return fmt.Sprintf("%.1f%% (%s)", s.Percent, s.Level())
}

func formatDelta(d float64) string {
	switch {
	case d > 0:
		return fmt.Sprintf("+%.1f points", d)
	case d < 0:
		return fmt.Sprintf("%.1f points", d)
	default:
		return "unchanged"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
