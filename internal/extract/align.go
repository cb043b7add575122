package extract

import "github.com/nao1215/coursecrawl/internal/model"

// Align truncates every column of cs to the length of the shortest column.
// It returns the aligned set and how many trailing cells were dropped from
// each column. Values are never reordered or duplicated.
//
// When a page omits a field for some item the columns after the gap shift
// relative to each other, so truncation keeps the first n cells of each
// column without trying to realign them.
func Align(cs model.ColumnSet) (model.ColumnSet, [model.NumColumns]int) {
	n := cs.MinLen()

	var (
		aligned model.ColumnSet
		dropped [model.NumColumns]int
	)
	for i := range cs {
		col := make([]model.Value, n)
		copy(col, cs[i][:n])
		aligned[i] = col
		dropped[i] = len(cs[i]) - n
	}
	return aligned, dropped
}
