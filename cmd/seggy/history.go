package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/pks0715/seggy/internal/database"
	"github.com/pks0715/seggy/internal/model"
)

// Constants for comparison direction.
const (
	coverageImproved  = "improved"
	coverageDegraded  = "degraded"
	coverageUnchanged = "unchanged"
)

// NewHistoryCmd creates the history command.
// This command lists and compares runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id...]",
		Short: "List and compare saved analysis runs",
		Long: `History lists runs saved with --save-history and compares two of them.

Only run metadata is stored: file and batch counts, the synthesis path,
timings and the headline figures extracted from the report. A comparison
shows the change in each of these between two runs.

Examples:
  # List the 20 most recent runs
  seggy history --list

  # List runs over the same set of files as a given run
  seggy history --list <run-id>

  # Compare two runs
  seggy history --compare <older-run-id> <newer-run-id>

  # Compare a run with the previous run over the same files
  seggy history --compare <run-id>

  # Output the comparison as Markdown
  seggy history --compare --markdown <id1> <id2>`,
		Args: cobra.MaximumNArgs(2),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List saved runs (optionally those over the same files as a run)")
	cmd.Flags().IntP("limit", "n", database.DefaultListLimit,
		"Maximum number of runs to list")
	cmd.Flags().Bool("compare", false,
		"Compare two runs, or a run with the previous run over the same files")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seggy.yaml in current or home directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	switch {
	case list && compare:
		return errors.New("--list and --compare are mutually exclusive")
	case !list && !compare:
		return errors.New("specify --list or --compare")
	case list && len(args) > 1:
		return errors.New("--list accepts at most one run ID")
	case compare && len(args) == 0:
		return errors.New("--compare requires one or two run IDs (use --list to see available IDs)")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if list {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		return listRuns(ctx, db, args, limit, out)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	previous, current, err := selectRuns(ctx, db, args)
	if err != nil {
		return err
	}

	comparison := compareRuns(previous, current)
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// listRuns prints recent runs, or the runs sharing a file set with args[0].
func listRuns(ctx context.Context, db *database.HistoryDB, args []string, limit int, out io.Writer) error {
	var runs []database.RunRecord
	var err error

	title := "Recent runs"
	if len(args) == 1 {
		ref, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		runs, err = db.RunsByFingerprint(ctx, ref.Fingerprint)
		if err != nil {
			return err
		}
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}
		title = "Runs over the same files as " + ref.ID
	} else {
		runs, err = db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'seggy analyze --save-history' to record runs.")
		return nil
	}

	fmt.Fprintf(out, "%s (%d):\n\n", title, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %5s  %-7s  %-9s  %s\n", "ID", "Date", "Files", "Batches", "Synthesis", "Revenue")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))

	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %5d  %-7s  %-9s  %s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.TotalFiles,
			fmt.Sprintf("%d/%d", r.BatchesSucceeded, r.BatchesProcessed),
			synthesisLabel(r.Synthesized),
			formatRevenue(headlineRevenue(r.Summary)),
		)
	}

	fmt.Fprintln(out, "\nUse 'seggy history --compare <id1> <id2>' to compare two runs.")
	return nil
}

// selectRuns resolves the runs to compare. With one ID, the previous run
// over the same files is used as the baseline.
func selectRuns(ctx context.Context, db *database.HistoryDB, ids []string) (previous, current *database.RunRecord, err error) {
	if len(ids) == 2 {
		if previous, err = db.GetRun(ctx, ids[0]); err != nil {
			return nil, nil, err
		}
		if current, err = db.GetRun(ctx, ids[1]); err != nil {
			return nil, nil, err
		}
		return previous, current, nil
	}

	if current, err = db.GetRun(ctx, ids[0]); err != nil {
		return nil, nil, err
	}
	runs, err := db.RunsByFingerprint(ctx, current.Fingerprint)
	if err != nil {
		return nil, nil, err
	}

	// Runs are newest first; the baseline is the first one older than current.
	for i := range runs {
		if runs[i].ID != current.ID && runs[i].Timestamp.Before(current.Timestamp) {
			return &runs[i], current, nil
		}
	}
	return nil, nil, fmt.Errorf("no earlier run over the same files as %s (found %d run(s) with this file set)", current.ID, len(runs))
}

// ComparisonResult holds the result of comparing two runs.
type ComparisonResult struct {
	// Previous and Current are the compared runs.
	Previous RunSnapshot `json:"previous_run"`
	Current  RunSnapshot `json:"current_run"`

	// SameFiles is true when both runs analyzed the same set of file names.
	SameFiles bool `json:"same_files"`

	// Change holds the deltas between the runs.
	Change RunChange `json:"change"`
}

// RunSnapshot contains the compared fields of one run.
type RunSnapshot struct {
	ID               string        `json:"id"`
	Timestamp        time.Time     `json:"timestamp"`
	TotalFiles       int           `json:"total_files"`
	BatchesProcessed int           `json:"batches_processed"`
	BatchesSucceeded int           `json:"batches_succeeded"`
	Synthesized      bool          `json:"synthesized"`
	ProcessingTime   time.Duration `json:"processing_time_ns"`

	// Revenue is the most recent extracted revenue in $M. Nil when the
	// report carried no revenue figure.
	Revenue *float64 `json:"revenue_musd,omitempty"`
}

// RunChange describes the change between two runs.
type RunChange struct {
	// Coverage is "improved", "degraded" or "unchanged", based on the
	// share of succeeded batches.
	Coverage string `json:"coverage"`

	FilesDelta            int `json:"files_delta"`
	BatchesDelta          int `json:"batches_delta"`
	SucceededBatchesDelta int `json:"succeeded_batches_delta"`

	// RevenueDelta is nil unless both runs carry a revenue figure.
	RevenueDelta *float64 `json:"revenue_delta_musd,omitempty"`
}

// snapshotOf extracts the compared fields of a run.
func snapshotOf(r *database.RunRecord) RunSnapshot {
	s := RunSnapshot{
		ID:               r.ID,
		Timestamp:        r.Timestamp,
		TotalFiles:       r.TotalFiles,
		BatchesProcessed: r.BatchesProcessed,
		BatchesSucceeded: r.BatchesSucceeded,
		Synthesized:      r.Synthesized,
		ProcessingTime:   r.ProcessingTime,
	}
	if v, ok := headlineRevenue(r.Summary); ok {
		s.Revenue = &v
	}
	return s
}

// compareRuns compares two runs and generates a comparison result.
func compareRuns(previous, current *database.RunRecord) *ComparisonResult {
	result := &ComparisonResult{
		Previous:  snapshotOf(previous),
		Current:   snapshotOf(current),
		SameFiles: previous.Fingerprint == current.Fingerprint,
	}

	result.Change = RunChange{
		Coverage:              coverageDirection(result.Previous, result.Current),
		FilesDelta:            current.TotalFiles - previous.TotalFiles,
		BatchesDelta:          current.BatchesProcessed - previous.BatchesProcessed,
		SucceededBatchesDelta: current.BatchesSucceeded - previous.BatchesSucceeded,
	}
	if result.Previous.Revenue != nil && result.Current.Revenue != nil {
		d := *result.Current.Revenue - *result.Previous.Revenue
		result.Change.RevenueDelta = &d
	}

	return result
}

// coverageDirection compares the share of succeeded batches.
func coverageDirection(previous, current RunSnapshot) string {
	share := func(s RunSnapshot) float64 {
		if s.BatchesProcessed == 0 {
			return 0
		}
		return float64(s.BatchesSucceeded) / float64(s.BatchesProcessed)
	}

	p, c := share(previous), share(current)
	switch {
	case c > p:
		return coverageImproved
	case c < p:
		return coverageDegraded
	default:
		return coverageUnchanged
	}
}

// headlineRevenue returns the revenue of the latest extracted year, or
// the last extracted revenue when no years were paired.
func headlineRevenue(s model.FinancialSummary) (float64, bool) {
	if len(s.Revenue) == 0 {
		return 0, false
	}
	if len(s.Years) == len(s.Revenue) {
		i := 0
		for j, y := range s.Years {
			if y > s.Years[i] {
				i = j
			}
		}
		return s.Revenue[i], true
	}
	return s.Revenue[len(s.Revenue)-1], true
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Run Comparison")
	md.PlainText("")
	md.PlainTextf("**Coverage:** %s", formatCoverage(result.Change.Coverage))
	md.PlainText("")
	if !result.SameFiles {
		md.Note("The runs analyzed different sets of files.")
		md.PlainText("")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   comparisonRows(result, "2006-01-02 15:04"),
	})

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintln(out, "Run Comparison")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nCoverage: %s\n", formatCoverage(result.Change.Coverage))
	if !result.SameFiles {
		fmt.Fprintln(out, "Note: the runs analyzed different sets of files.")
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-18s  %-20s  %-20s  %s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))
	for _, row := range comparisonRows(result, "2006-01-02 15:04:05") {
		fmt.Fprintf(out, "  %-18s  %-20s  %-20s  %s\n", row[0], row[1], row[2], row[3])
	}
	return nil
}

// comparisonRows builds the metric rows shared by the text and Markdown output.
func comparisonRows(result *ComparisonResult, dateLayout string) [][]string {
	p, c := result.Previous, result.Current

	revenueChange := "-"
	if result.Change.RevenueDelta != nil {
		revenueChange = formatFloatDelta(*result.Change.RevenueDelta)
	}

	return [][]string{
		{"Run", shortID(p.ID), shortID(c.ID), "-"},
		{"Date", p.Timestamp.Local().Format(dateLayout), c.Timestamp.Local().Format(dateLayout), "-"},
		{"Files", strconv.Itoa(p.TotalFiles), strconv.Itoa(c.TotalFiles), formatDelta(result.Change.FilesDelta)},
		{"Batches", strconv.Itoa(p.BatchesProcessed), strconv.Itoa(c.BatchesProcessed), formatDelta(result.Change.BatchesDelta)},
		{"Succeeded batches", strconv.Itoa(p.BatchesSucceeded), strconv.Itoa(c.BatchesSucceeded), formatDelta(result.Change.SucceededBatchesDelta)},
		{"Synthesis", synthesisLabel(p.Synthesized), synthesisLabel(c.Synthesized), "-"},
		{"Revenue ($M)", formatRevenuePtr(p.Revenue), formatRevenuePtr(c.Revenue), revenueChange},
		{"Processing time", model.FormatProcessingTime(p.ProcessingTime), model.FormatProcessingTime(c.ProcessingTime), "-"},
	}
}

// formatCoverage formats the coverage direction for display.
func formatCoverage(direction string) string {
	switch direction {
	case coverageImproved:
		return "IMPROVED (more batches succeeded)"
	case coverageDegraded:
		return "DEGRADED (fewer batches succeeded)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

// formatFloatDelta formats a $M delta with sign.
func formatFloatDelta(delta float64) string {
	s := strconv.FormatFloat(delta, 'f', 1, 64)
	if delta > 0 {
		return "+" + s
	}
	return s
}

func formatRevenue(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatRevenuePtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatRevenue(*v, true)
}

func synthesisLabel(synthesized bool) string {
	if synthesized {
		return "ai"
	}
	return "fallback"
}

// shortID returns the first segment of a UUID run ID.
func shortID(id string) string {
	if len(id) == 36 && id[8] == '-' {
		return id[:8]
	}
	return id
}
