package extract

import (
	"testing"

	"github.com/nao1215/coursecrawl/internal/model"
)

func columnSetWithLens(lens [model.NumColumns]int) model.ColumnSet {
	var cs model.ColumnSet
	for _, c := range model.Columns() {
		for i := 0; i < lens[c]; i++ {
			cs.Add(c, model.Int(int64(i)))
		}
	}
	return cs
}

// TestAlign tests truncation to the shortest column.
func TestAlign(t *testing.T) {
	t.Parallel()

	t.Run("one short column drops the tail of the others", func(t *testing.T) {
		t.Parallel()

		cs := columnSetWithLens([model.NumColumns]int{5, 5, 5, 5, 4, 5, 5, 5})
		aligned, dropped := Align(cs)

		if !aligned.Equal() || aligned.MinLen() != 4 {
			t.Fatalf("expected four aligned rows, got lengths %v", aligned.Lens())
		}
		expected := [model.NumColumns]int{1, 1, 1, 1, 0, 1, 1, 1}
		if dropped != expected {
			t.Errorf("got dropped %v, expected %v", dropped, expected)
		}
		for _, c := range model.Columns() {
			for i, v := range aligned[c] {
				if v.IsMissing() {
					t.Errorf("column %s row %d: unexpected Missing", c, i)
				}
			}
		}
	})

	t.Run("keeps order and prefix", func(t *testing.T) {
		t.Parallel()

		cs := columnSetWithLens([model.NumColumns]int{3, 2, 3, 3, 3, 3, 3, 3})
		aligned, _ := Align(cs)

		for _, c := range model.Columns() {
			for i, v := range aligned[c] {
				if got, _ := v.AsInt(); got != int64(i) {
					t.Errorf("column %s row %d: got %d", c, i, got)
				}
			}
		}
	})

	t.Run("already aligned is unchanged", func(t *testing.T) {
		t.Parallel()

		cs := columnSetWithLens([model.NumColumns]int{2, 2, 2, 2, 2, 2, 2, 2})
		aligned, dropped := Align(cs)

		if aligned.MinLen() != 2 {
			t.Errorf("got %d rows, expected 2", aligned.MinLen())
		}
		if dropped != ([model.NumColumns]int{}) {
			t.Errorf("expected nothing dropped, got %v", dropped)
		}
	})

	t.Run("empty column empties the page", func(t *testing.T) {
		t.Parallel()

		cs := columnSetWithLens([model.NumColumns]int{3, 3, 3, 0, 3, 3, 3, 3})
		aligned, dropped := Align(cs)

		if aligned.MinLen() != 0 || !aligned.Equal() {
			t.Errorf("expected empty set, got lengths %v", aligned.Lens())
		}
		if dropped[model.ColumnURL] != 3 {
			t.Errorf("got %d dropped, expected 3", dropped[model.ColumnURL])
		}
	})

	t.Run("does not alias the input", func(t *testing.T) {
		t.Parallel()

		cs := columnSetWithLens([model.NumColumns]int{1, 1, 1, 1, 1, 1, 1, 1})
		aligned, _ := Align(cs)
		aligned[model.ColumnURL][0] = model.Text("changed")

		if got, _ := cs[model.ColumnURL][0].AsInt(); got != 0 {
			t.Errorf("input was modified")
		}
	})
}
