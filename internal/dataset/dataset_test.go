package dataset

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/coursecrawl/internal/model"
)

// TestAssemble tests zipping columns into records.
func TestAssemble(t *testing.T) {
	t.Parallel()

	t.Run("zips columns by position", func(t *testing.T) {
		t.Parallel()

		var cs model.ColumnSet
		for _, c := range model.Columns() {
			cs.Add(c, model.Text(c.String()+" 0"))
			cs.Add(c, model.Text(c.String()+" 1"))
		}

		ds, err := Assemble(cs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ds.Len() != 2 {
			t.Fatalf("got %d records, expected 2", ds.Len())
		}
		for i := 0; i < ds.Len(); i++ {
			for _, c := range model.Columns() {
				expected := c.String() + " " + string(rune('0'+i))
				if got := ds.Record(i).Get(c).String(); got != expected {
					t.Errorf("record %d column %s: got %q, expected %q", i, c, got, expected)
				}
			}
		}
	})

	t.Run("empty set yields headers only", func(t *testing.T) {
		t.Parallel()

		ds, err := Assemble(model.ColumnSet{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ds.Len() != 0 {
			t.Errorf("got %d records, expected 0", ds.Len())
		}
		if diff := cmp.Diff([][]string{model.ColumnNames()}, ds.Rows()); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unequal columns are rejected", func(t *testing.T) {
		t.Parallel()

		var cs model.ColumnSet
		cs.Add(model.ColumnURL, model.Text("only one"))

		if _, err := Assemble(cs); !errors.Is(err, ErrColumnLengthMismatch) {
			t.Errorf("got %v, expected ErrColumnLengthMismatch", err)
		}
	})
}
