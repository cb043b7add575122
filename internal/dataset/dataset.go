// Package dataset zips accumulated column sequences into the final table.
package dataset

import (
	"errors"
	"fmt"

	"github.com/nao1215/coursecrawl/internal/model"
)

// ErrColumnLengthMismatch is returned when the accumulated columns do not
// all have the same length. Aligned pages always produce equal columns, so
// this indicates a bug upstream.
var ErrColumnLengthMismatch = errors.New("column lengths differ")

// Assemble builds an immutable Dataset from equally long columns.
// Row i takes the i-th value of every column. An empty set yields an empty
// dataset that still carries the column headers.
func Assemble(cs model.ColumnSet) (*model.Dataset, error) {
	if !cs.Equal() {
		return nil, fmt.Errorf("%w: %v", ErrColumnLengthMismatch, cs.Lens())
	}

	n := cs.MinLen()
	records := make([]model.Record, n)
	for _, c := range model.Columns() {
		for i, v := range cs[c] {
			records[i].Set(c, v)
		}
	}
	return model.NewDataset(records), nil
}
