package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/coursecrawl/internal/database"
	"github.com/nao1215/coursecrawl/internal/model"
)

func course(url, name string, rating model.Value) model.Record {
	var r model.Record
	if url != "" {
		r.Set(model.ColumnURL, model.Text(url))
	}
	r.Set(model.ColumnName, model.Text(name))
	r.Set(model.ColumnRating, rating)
	return r
}

func urls(records []model.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, courseKey(r))
	}
	return out
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	for _, name := range []string{"diff", "limit", "json", "markdown", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestParseRunIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    []int64
		wantErr bool
	}{
		{"none", nil, []int64{}, false},
		{"two", []string{"3", "12"}, []int64{3, 12}, false},
		{"not a number", []string{"abc"}, nil, true},
		{"zero", []string{"0"}, nil, true},
		{"negative", []string{"-4"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseRunIDs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRunIDs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompareDatasets(t *testing.T) {
	t.Parallel()

	previous := model.NewDataset([]model.Record{
		course("https://x.test/a", "A", model.Float(4.5)),
		course("https://x.test/b", "B", model.Float(4.0)),
		course("https://x.test/c", "C", model.Missing()),
		course("", "No link", model.Float(3.0)),
	})
	current := model.NewDataset([]model.Record{
		course("https://x.test/d", "D", model.Float(4.9)),
		course("https://x.test/a", "A", model.Float(4.5)),
		course("https://x.test/c", "C", model.Float(4.1)),
		course("https://x.test/d", "D again", model.Float(1.0)),
	})

	result := compareDatasets(previous, current)

	if diff := cmp.Diff([]string{"https://x.test/d"}, urls(result.Added)); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://x.test/b"}, urls(result.Removed)); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if len(result.RatingChanged) != 1 {
		t.Fatalf("expected 1 rating change, got %d", len(result.RatingChanged))
	}
	change := result.RatingChanged[0]
	if change.URL != "https://x.test/c" || !change.Previous.IsMissing() || change.Current.String() != "4.1" {
		t.Errorf("unexpected rating change: %+v", change)
	}
	if result.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged course, got %d", result.UnchangedCount)
	}
	if result.Unkeyed != 1 {
		t.Errorf("expected 1 unkeyed record, got %d", result.Unkeyed)
	}
}

func TestCompareDatasetsIdentical(t *testing.T) {
	t.Parallel()

	ds := model.NewDataset([]model.Record{
		course("https://x.test/a", "A", model.Float(4.5)),
		course("https://x.test/b", "B", model.Float(4.0)),
	})

	result := compareDatasets(ds, ds)
	if len(result.Added)+len(result.Removed)+len(result.RatingChanged) != 0 {
		t.Errorf("expected no differences, got %+v", result)
	}
	if result.UnchangedCount != 2 {
		t.Errorf("expected 2 unchanged courses, got %d", result.UnchangedCount)
	}
}

// recordTwoRuns crawls the fake catalog twice into dbDir. The second crawl
// sees one more course and a new rating.
func recordTwoRuns(t *testing.T, dbDir string) {
	t.Helper()

	first := startCatalog(t, &catalogSite{items: map[int]int{1: 2}, rating: "4.7"})
	second := startCatalog(t, &catalogSite{items: map[int]int{1: 3}, rating: "4.8"})

	for _, siteURL := range []string{first, second} {
		output := filepath.Join(t.TempDir(), "courses.csv")
		if _, _, err := runCLI(t, crawlArgs(t, siteURL, dbDir, "--last-page", "1", "-o", output)...); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	recordTwoRuns(t, dbDir)

	t.Run("lists runs newest first", func(t *testing.T) {
		stdout, _, err := runCLI(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Recorded crawls (2)") {
			t.Errorf("expected two runs, got %q", stdout)
		}
	})

	t.Run("lists runs as JSON", func(t *testing.T) {
		stdout, _, err := runCLI(t, "history", "--db-dir", dbDir, "--json", "--limit", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var runs []database.Run
		if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(runs) != 1 || runs[0].ID != 2 || runs[0].RowCount != 3 {
			t.Errorf("expected only run 2 with 3 rows, got %+v", runs)
		}
	})

	t.Run("shows one run", func(t *testing.T) {
		stdout, _, err := runCLI(t, "history", "--db-dir", dbDir, "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Run 1:", "Rows:        2", "Status:      ok", "Fingerprint:"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output, got %q", want, stdout)
			}
		}
	})

	t.Run("diff as JSON", func(t *testing.T) {
		stdout, _, err := runCLI(t, "history", "--db-dir", dbDir, "--diff", "--json", "1", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Added         []map[string]any `json:"added"`
			Removed       []map[string]any `json:"removed"`
			RatingChanged []struct {
				URL      string  `json:"url"`
				Previous float64 `json:"previous"`
				Current  float64 `json:"current"`
			} `json:"rating_changed"`
			UnchangedCount int `json:"unchanged_count"`
		}
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got.Added) != 1 || got.Added[0][model.ColumnURL.String()] != "https://catalog.test/learn/p1-c2" {
			t.Errorf("expected p1-c2 to be added, got %v", got.Added)
		}
		if len(got.Removed) != 0 {
			t.Errorf("expected nothing removed, got %v", got.Removed)
		}
		if len(got.RatingChanged) != 2 {
			t.Fatalf("expected 2 rating changes, got %d", len(got.RatingChanged))
		}
		if got.RatingChanged[0].Previous != 4.7 || got.RatingChanged[0].Current != 4.8 {
			t.Errorf("expected 4.7 -> 4.8, got %+v", got.RatingChanged[0])
		}
		if got.UnchangedCount != 0 {
			t.Errorf("expected no unchanged courses, got %d", got.UnchangedCount)
		}
	})

	t.Run("diff as text", func(t *testing.T) {
		stdout, _, err := runCLI(t, "history", "--db-dir", dbDir, "--diff", "1", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Run Comparison: 1 -> 2", "Added Courses (1)", "[~] Course 1-0: 4.7 -> 4.8"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output, got %q", want, stdout)
			}
		}
	})

	t.Run("diff as markdown", func(t *testing.T) {
		stdout, _, err := runCLI(t, "history", "--db-dir", dbDir, "--diff", "--markdown", "1", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Run Comparison: 1 -> 2", "## Added Courses (1)", "## Rating Changes (2)"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output, got %q", want, stdout)
			}
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, _, err := runCLI(t, "history", "--db-dir", dbDir, "99")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

func TestHistoryCmdArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"diff needs two runs", []string{"--diff", "1"}, "requires two run IDs"},
		{"two runs need diff", []string{"1", "2"}, "use --diff"},
		{"bad run id", []string{"abc"}, "invalid run ID"},
		{"conflicting formats", []string{"--json", "--markdown"}, "mutually exclusive"},
		{"too many arguments", []string{"--diff", "1", "2", "3"}, "accepts at most 2 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"history", "--db-dir", t.TempDir()}, tt.args...)
			_, _, err := runCLI(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHistoryCmdEmpty(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, "history", "--db-dir", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "No crawls recorded yet.") {
		t.Errorf("expected empty history message, got %q", stdout)
	}
}
