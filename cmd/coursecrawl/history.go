package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/coursecrawl/internal/config"
	"github.com/nao1215/coursecrawl/internal/database"
	"github.com/nao1215/coursecrawl/internal/model"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id] [run-id]",
		Short: "List recorded crawls and compare their datasets",
		Long: `History reads the crawl history database.

Without arguments it lists the most recent runs. With one run ID it shows
that run and its pages. With --diff and two run IDs it compares the two
datasets by course URL and reports added courses, removed courses and
courses whose rating changed.

Examples:
  # List the 20 most recent runs
  coursecrawl history

  # Show run 3 and its pages
  coursecrawl history 3

  # Compare run 3 (older) with run 5 (newer)
  coursecrawl history --diff 3 5

  # Same comparison as Markdown
  coursecrawl history --diff --markdown 3 5`,
		Args: cobra.MaximumNArgs(2),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("diff", false,
		"Compare the datasets of two runs (older first)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
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

	// Validate arguments before opening the database.
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	if diff && len(args) != 2 {
		return fmt.Errorf("--diff requires two run IDs (got %d)", len(args))
	}
	if !diff && len(args) > 1 {
		return errors.New("more than one run ID given (use --diff to compare runs)")
	}
	ids, err := parseRunIDs(args)
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case diff:
		result, err := compareRuns(ctx, db, ids[0], ids[1])
		if err != nil {
			return err
		}
		switch {
		case jsonOutput:
			return writeJSON(out, result)
		case markdownOutput:
			return outputComparisonMarkdown(out, result)
		default:
			return outputComparisonText(out, result)
		}
	case len(ids) == 1:
		return showRun(ctx, out, db, ids[0], jsonOutput)
	default:
		return listRuns(ctx, out, db, limit, jsonOutput)
	}
}

// parseRunIDs converts the positional arguments to run IDs.
func parseRunIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid run ID %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// listRuns prints the most recent runs, newest first.
func listRuns(ctx context.Context, w io.Writer, db *database.CrawlDB, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		return writeJSON(w, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No crawls recorded yet.")
		fmt.Fprintln(w, "\nUse 'coursecrawl crawl' to crawl the catalog.")
		return nil
	}

	fmt.Fprintf(w, "Recorded crawls (%d):\n\n", len(runs))
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Date", "Pages", "Strategy", "Rows", "Status"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d-%d", r.FirstPage, r.LastPage),
			r.Strategy,
			r.RowCount,
			runStatus(&r),
		})
	}
	tw.Render()

	fmt.Fprintln(w, "\nUse 'coursecrawl history <id>' to see the pages of a run.")
	fmt.Fprintln(w, "Use 'coursecrawl history --diff <old-id> <new-id>' to compare two runs.")
	return nil
}

// newTable returns a plain table writer that renders to w.
func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// runStatus describes how a run ended.
func runStatus(r *database.Run) string {
	switch {
	case !r.Finished():
		return "incomplete"
	case r.Error != "":
		return "failed"
	default:
		return "ok"
	}
}

// runDetail is the JSON shape of a single run.
type runDetail struct {
	Run   *database.Run       `json:"run"`
	Pages []model.PageSummary `json:"pages"`
}

// showRun prints one run and its page summaries.
func showRun(ctx context.Context, w io.Writer, db *database.CrawlDB, id int64, jsonOutput bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", id, err)
	}
	pages, err := db.GetPages(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get pages of run %d: %w", id, err)
	}

	if jsonOutput {
		return writeJSON(w, runDetail{Run: run, Pages: pages})
	}

	fmt.Fprintf(w, "Run %d: %s\n", run.ID, run.SiteURL)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Finished() {
		fmt.Fprintf(w, "Finished:    %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Pages:       %d to %d\n", run.FirstPage, run.LastPage)
	fmt.Fprintf(w, "Strategy:    %s\n", run.Strategy)
	fmt.Fprintf(w, "Rows:        %d\n", run.RowCount)
	if run.Fingerprint != "" {
		fmt.Fprintf(w, "Fingerprint: %s\n", run.Fingerprint)
	}
	fmt.Fprintf(w, "Status:      %s\n", runStatus(run))
	if run.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", run.Error)
	}

	if len(pages) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Page", "Status", "Records", "Dropped", "Error"})
	for _, p := range pages {
		tw.AppendRow(table.Row{p.Index, p.StatusCode, p.Records, p.Dropped, p.Error})
	}
	tw.Render()
	return nil
}

// RatingChange is a course present in both runs whose rating differs.
type RatingChange struct {
	URL      string      `json:"url"`
	Name     model.Value `json:"name"`
	Previous model.Value `json:"previous"`
	Current  model.Value `json:"current"`
}

// ComparisonResult holds the result of comparing the datasets of two runs.
type ComparisonResult struct {
	// PreviousRun and CurrentRun are the compared runs, older first.
	PreviousRun *database.Run `json:"previous_run"`
	CurrentRun  *database.Run `json:"current_run"`

	// Added and Removed are the courses present in only one of the runs.
	Added   []model.Record `json:"added"`
	Removed []model.Record `json:"removed"`

	RatingChanged []RatingChange `json:"rating_changed"`

	// UnchangedCount is the number of courses present in both runs with
	// the same rating.
	UnchangedCount int `json:"unchanged_count"`

	// Unkeyed counts the records of both runs that have no course URL and
	// cannot be matched.
	Unkeyed int `json:"unkeyed"`
}

// compareRuns loads two runs and compares their datasets.
func compareRuns(ctx context.Context, db *database.CrawlDB, previousID, currentID int64) (*ComparisonResult, error) {
	previousRun, err := db.GetRun(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", previousID, err)
	}
	currentRun, err := db.GetRun(ctx, currentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", currentID, err)
	}

	previous, err := db.LoadDataset(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset of run %d: %w", previousID, err)
	}
	current, err := db.LoadDataset(ctx, currentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset of run %d: %w", currentID, err)
	}

	result := compareDatasets(previous, current)
	result.PreviousRun = previousRun
	result.CurrentRun = currentRun
	return result, nil
}

// courseKey returns the course URL of r, or "" when it is missing.
func courseKey(r model.Record) string {
	u, ok := r.Get(model.ColumnURL).AsText()
	if !ok {
		return ""
	}
	return u
}

// indexByURL maps course URLs to records. The first record of a URL wins.
func indexByURL(ds *model.Dataset) (map[string]model.Record, int) {
	index := make(map[string]model.Record, ds.Len())
	unkeyed := 0
	for _, r := range ds.Records() {
		key := courseKey(r)
		if key == "" {
			unkeyed++
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = r
		}
	}
	return index, unkeyed
}

// compareDatasets matches the records of two datasets by course URL.
// Added keeps the order of current, Removed the order of previous.
func compareDatasets(previous, current *model.Dataset) *ComparisonResult {
	prevIndex, prevUnkeyed := indexByURL(previous)
	curIndex, curUnkeyed := indexByURL(current)

	result := &ComparisonResult{
		Added:         make([]model.Record, 0),
		Removed:       make([]model.Record, 0),
		RatingChanged: make([]RatingChange, 0),
		Unkeyed:       prevUnkeyed + curUnkeyed,
	}

	seen := make(map[string]bool, len(curIndex))
	for _, r := range current.Records() {
		key := courseKey(r)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		old, ok := prevIndex[key]
		if !ok {
			result.Added = append(result.Added, r)
			continue
		}
		prevRating, curRating := old.Get(model.ColumnRating), r.Get(model.ColumnRating)
		if prevRating.String() != curRating.String() {
			result.RatingChanged = append(result.RatingChanged, RatingChange{
				URL:      key,
				Name:     r.Get(model.ColumnName),
				Previous: prevRating,
				Current:  curRating,
			})
			continue
		}
		result.UnchangedCount++
	}

	removed := make(map[string]bool, len(prevIndex))
	for _, r := range previous.Records() {
		key := courseKey(r)
		if key == "" || removed[key] {
			continue
		}
		if _, ok := curIndex[key]; !ok {
			removed[key] = true
			result.Removed = append(result.Removed, r)
		}
	}

	return result
}

// outputComparisonText outputs the comparison in human-readable text.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(w, "Run Comparison: %d -> %d\n", result.PreviousRun.ID, result.CurrentRun.ID)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nPrevious run: %s (%d rows)\n",
		result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04:05"), result.PreviousRun.RowCount)
	fmt.Fprintf(w, "Current run:  %s (%d rows)\n",
		result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04:05"), result.CurrentRun.RowCount)

	if len(result.Added) > 0 {
		fmt.Fprintf(w, "\nAdded Courses (%d):\n", len(result.Added))
		for _, r := range result.Added {
			fmt.Fprintf(w, "  [+] %s (%s)\n", r.Get(model.ColumnName), courseKey(r))
		}
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(w, "\nRemoved Courses (%d):\n", len(result.Removed))
		for _, r := range result.Removed {
			fmt.Fprintf(w, "  [-] %s (%s)\n", r.Get(model.ColumnName), courseKey(r))
		}
	}

	if len(result.RatingChanged) > 0 {
		fmt.Fprintf(w, "\nRating Changes (%d):\n", len(result.RatingChanged))
		for _, c := range result.RatingChanged {
			fmt.Fprintf(w, "  [~] %s: %s -> %s\n", c.Name, c.Previous, c.Current)
		}
	}

	fmt.Fprintf(w, "\nUnchanged: %d course(s)\n", result.UnchangedCount)
	if result.Unkeyed > 0 {
		fmt.Fprintf(w, "Without URL: %d record(s) not compared\n", result.Unkeyed)
	}
	return nil
}

// outputComparisonMarkdown outputs the comparison as Markdown.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	doc := markdown.NewMarkdown(w)

	doc.H1(fmt.Sprintf("Run Comparison: %d -> %d", result.PreviousRun.ID, result.CurrentRun.ID))
	doc.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current"},
		Rows: [][]string{
			{"Run", strconv.FormatInt(result.PreviousRun.ID, 10), strconv.FormatInt(result.CurrentRun.ID, 10)},
			{"Date", result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04"), result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04")},
			{"Rows", strconv.Itoa(result.PreviousRun.RowCount), strconv.Itoa(result.CurrentRun.RowCount)},
		},
	})

	if len(result.Added) > 0 {
		doc.H2(fmt.Sprintf("Added Courses (%d)", len(result.Added)))
		doc.BulletList(courseLines(result.Added)...)
	}

	if len(result.Removed) > 0 {
		doc.H2(fmt.Sprintf("Removed Courses (%d)", len(result.Removed)))
		doc.BulletList(courseLines(result.Removed)...)
	}

	if len(result.RatingChanged) > 0 {
		doc.H2(fmt.Sprintf("Rating Changes (%d)", len(result.RatingChanged)))
		rows := make([][]string, 0, len(result.RatingChanged))
		for _, c := range result.RatingChanged {
			rows = append(rows, []string{c.Name.String(), c.Previous.String(), c.Current.String(), c.URL})
		}
		doc.Table(markdown.TableSet{
			Header: []string{"Course", "Previous", "Current", "URL"},
			Rows:   rows,
		})
	}

	doc.HorizontalRule()
	doc.PlainTextf("%d course(s) unchanged", result.UnchangedCount)

	return doc.Build()
}

// courseLines renders records as "name (url)" list items.
func courseLines(records []model.Record) []string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s (%s)", r.Get(model.ColumnName), courseKey(r)))
	}
	return lines
}
