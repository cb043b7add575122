package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/coursecrawl/internal/model"
)

// item describes one listing entry in a fixture page.
// Empty strings leave the corresponding element out.
type item struct {
	href        string
	name        string
	provider    string
	productType string
	rating      string
	count       string
	enrolled    string
	difficulty  string
	noLink      bool
}

// listing renders a catalog page containing the given items.
func listing(items ...item) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><div class="ais-InfiniteHits"><ul class="ais-InfiniteHits-list">`)
	for _, it := range items {
		b.WriteString(`<li class="ais-InfiniteHits-item">`)
		if it.noLink {
			b.WriteString(`<a>`)
		} else {
			fmt.Fprintf(&b, `<a href="%s">`, it.href)
		}
		if it.name != "" {
			fmt.Fprintf(&b, `<h2 class="headline-1-text">%s</h2>`, it.name)
		}
		b.WriteString(`</a>`)
		if it.provider != "" {
			fmt.Fprintf(&b, `<div class="horizontal-box"><span class="partner-name">%s</span></div>`, it.provider)
		}
		if it.productType != "" {
			fmt.Fprintf(&b, `<div class="_jen3vs _1d8rgfy3">%s</div>`, it.productType)
		}
		if it.rating != "" {
			fmt.Fprintf(&b, `<span class="ratings-text">%s</span>`, it.rating)
		}
		if it.count != "" {
			fmt.Fprintf(&b, `<span class="ratings-count">%s</span>`, it.count)
		}
		if it.enrolled != "" {
			fmt.Fprintf(&b, `<span class="enrollment-number">%s</span>`, it.enrolled)
		}
		if it.difficulty != "" {
			fmt.Fprintf(&b, `<span class="difficulty">%s</span>`, it.difficulty)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul></div></body></html>`)
	return []byte(b.String())
}

func fullItem(n int) item {
	return item{
		href:        fmt.Sprintf("/learn/course-%d", n),
		name:        fmt.Sprintf("Course %d", n),
		provider:    "Google",
		productType: "Course",
		rating:      "4.8",
		count:       "(1,234)",
		enrolled:    "120k",
		difficulty:  "Beginner",
	}
}

func page(markup []byte) *model.CatalogPage {
	return &model.CatalogPage{
		Index:  1,
		URL:    "https://www.coursera.org/courses?page=1&index=prod_all_products_term_optimization",
		Markup: markup,
	}
}

// TestColumnExtractor tests the per-column extraction strategy.
func TestColumnExtractor(t *testing.T) {
	t.Parallel()

	t.Run("extracts all eight columns", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors(), WithLinkRoot("https://www.coursera.org/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cs, err := ex.Extract(context.Background(), page(listing(fullItem(1), fullItem(2))))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, c := range model.Columns() {
			if cs.Len(c) != 2 {
				t.Errorf("column %s: got %d values, expected 2", c, cs.Len(c))
			}
		}

		expected := []model.Value{
			model.Text("https://www.coursera.org/learn/course-1"),
			model.Text("Course 1"),
			model.Text("Course"),
			model.Text("Google"),
			model.Float(4.8),
			model.Int(1234),
			model.Text("120k"),
			model.Text("Beginner"),
		}
		for _, c := range model.Columns() {
			if got := cs[c][0]; got != expected[c] {
				t.Errorf("column %s: got %v, expected %v", c, got, expected[c])
			}
		}
	})

	t.Run("columns may differ in length", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		short := fullItem(3)
		short.difficulty = ""
		cs, err := ex.Extract(context.Background(), page(listing(fullItem(1), fullItem(2), short)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cs.Len(model.ColumnDifficulty) != 2 {
			t.Errorf("got %d difficulties, expected 2", cs.Len(model.ColumnDifficulty))
		}
		if cs.Len(model.ColumnName) != 3 {
			t.Errorf("got %d names, expected 3", cs.Len(model.ColumnName))
		}
	})

	t.Run("unparseable rating becomes Missing", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		it := fullItem(1)
		it.rating = "N/A"
		it.count = "no ratings"
		cs, err := ex.Extract(context.Background(), page(listing(it)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cs[model.ColumnRating][0].IsMissing() {
			t.Errorf("got %v, expected Missing", cs[model.ColumnRating][0])
		}
		if !cs[model.ColumnRatedBy][0].IsMissing() {
			t.Errorf("got %v, expected Missing", cs[model.ColumnRatedBy][0])
		}
	})

	t.Run("link without href becomes Missing", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		it := fullItem(1)
		it.noLink = true
		cs, err := ex.Extract(context.Background(), page(listing(it)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cs[model.ColumnURL][0].IsMissing() {
			t.Errorf("got %v, expected Missing", cs[model.ColumnURL][0])
		}
	})

	t.Run("link root defaults to page origin", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		p := page(listing(fullItem(1)))
		p.URL = "http://127.0.0.1:8080/courses?page=1"
		cs, err := ex.Extract(context.Background(), p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := cs[model.ColumnURL][0].String(); got != "http://127.0.0.1:8080/learn/course-1" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("page without items yields empty columns", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cs, err := ex.Extract(context.Background(), page([]byte("<html><body>nothing</body></html>")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cs.MinLen() != 0 || !cs.Equal() {
			t.Errorf("expected empty columns, got lengths %v", cs.Lens())
		}
	})

	t.Run("nil page is an error", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := ex.Extract(context.Background(), nil); !errors.Is(err, ErrNoPage) {
			t.Errorf("got %v, expected ErrNoPage", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ex, err := NewColumnExtractor(DefaultSelectors())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := ex.Extract(ctx, page(listing(fullItem(1)))); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, expected context.Canceled", err)
		}
	})
}

// TestItemExtractor tests the item-anchored extraction strategy.
func TestItemExtractor(t *testing.T) {
	t.Parallel()

	t.Run("absent field becomes Missing and keeps alignment", func(t *testing.T) {
		t.Parallel()

		ex, err := NewItemExtractor(DefaultSelectors(), WithLinkRoot("https://www.coursera.org"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second := fullItem(2)
		second.difficulty = ""
		second.enrolled = ""
		cs, err := ex.Extract(context.Background(), page(listing(fullItem(1), second, fullItem(3))))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cs.Equal() || cs.MinLen() != 3 {
			t.Fatalf("expected three aligned rows, got lengths %v", cs.Lens())
		}
		if !cs[model.ColumnDifficulty][1].IsMissing() {
			t.Errorf("got %v, expected Missing", cs[model.ColumnDifficulty][1])
		}
		if !cs[model.ColumnEnrolled][1].IsMissing() {
			t.Errorf("got %v, expected Missing", cs[model.ColumnEnrolled][1])
		}
		if got := cs[model.ColumnName][2].String(); got != "Course 3" {
			t.Errorf("got %q, expected 'Course 3'", got)
		}
		if got := cs[model.ColumnDifficulty][2].String(); got != "Beginner" {
			t.Errorf("got %q, expected 'Beginner'", got)
		}
	})
}

// TestExtractKeepsDifficultyText tests that both strategies store the
// difficulty exactly as the page shows it.
func TestExtractKeepsDifficultyText(t *testing.T) {
	t.Parallel()

	for _, strategy := range []string{StrategyColumns, StrategyItems} {
		t.Run(strategy, func(t *testing.T) {
			t.Parallel()

			ex, err := New(strategy, DefaultSelectors())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			first, second := fullItem(1), fullItem(2)
			first.difficulty = "Beginner to Intermediate"
			second.difficulty = "Advanced (SQL)"
			cs, err := ex.Extract(context.Background(), page(listing(first, second)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := make([]string, 0, cs.Len(model.ColumnDifficulty))
			for _, v := range cs[model.ColumnDifficulty] {
				got = append(got, v.String())
			}
			if diff := cmp.Diff([]string{"Beginner to Intermediate", "Advanced (SQL)"}, got); diff != "" {
				t.Errorf("difficulty mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestNew tests strategy selection.
func TestNew(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		strategy string
		expected string
		wantErr  error
	}{
		{"", StrategyColumns, nil},
		{"columns", StrategyColumns, nil},
		{"items", StrategyItems, nil},
		{"magic", "", ErrUnknownStrategy},
	}

	for _, tc := range testCases {
		t.Run("strategy "+tc.strategy, func(t *testing.T) {
			t.Parallel()

			ex, err := New(tc.strategy, DefaultSelectors())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("got %v, expected %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ex.Name() != tc.expected {
				t.Errorf("got %q, expected %q", ex.Name(), tc.expected)
			}
		})
	}
}

// TestSelectors tests selector merging and validation.
func TestSelectors(t *testing.T) {
	t.Parallel()

	t.Run("Merge keeps overrides", func(t *testing.T) {
		t.Parallel()

		got := Selectors{Name: "h3.title"}.Merge(DefaultSelectors())
		expected := DefaultSelectors()
		expected.Name = "h3.title"
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("selectors mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid selector is rejected", func(t *testing.T) {
		t.Parallel()

		err := Selectors{Rating: "[[["}.Validate()
		if !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("got %v, expected ErrInvalidSelector", err)
		}
		if _, err := NewColumnExtractor(Selectors{Rating: "[[["}); !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("got %v, expected ErrInvalidSelector", err)
		}
	})

	t.Run("zero selectors use defaults", func(t *testing.T) {
		t.Parallel()

		if err := (Selectors{}).Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
