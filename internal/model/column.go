package model

// Column identifies one of the eight extracted features.
// The numeric order is the output column order.
type Column int

// The eight dataset columns, in output order.
const (
	ColumnURL Column = iota
	ColumnName
	ColumnProductType
	ColumnProvider
	ColumnRating
	ColumnRatedBy
	ColumnEnrolled
	ColumnDifficulty

	// NumColumns is the number of dataset columns.
	NumColumns = int(ColumnDifficulty) + 1
)

var columnNames = [NumColumns]string{
	ColumnURL:         "Course URL",
	ColumnName:        "Course Name",
	ColumnProductType: "Learning Product Type",
	ColumnProvider:    "Course Provided By",
	ColumnRating:      "Course Rating",
	ColumnRatedBy:     "Course Rated By",
	ColumnEnrolled:    "Enrolled Student Count",
	ColumnDifficulty:  "Course Difficulty",
}

// String returns the column's output header.
func (c Column) String() string {
	if c < 0 || int(c) >= NumColumns {
		return "Unknown Column"
	}
	return columnNames[c]
}

// Columns returns all columns in output order.
func Columns() []Column {
	cols := make([]Column, NumColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

// ColumnNames returns the output headers in order.
func ColumnNames() []string {
	names := make([]string, NumColumns)
	copy(names, columnNames[:])
	return names
}

// ColumnSet holds one independently sized sequence of values per column.
//
// ColumnSet is a value type. Append returns the extended set and leaves the
// receiver's length unchanged, so a crawl can thread the accumulation
// through its loop instead of mutating shared state.
type ColumnSet [NumColumns][]Value

// Len returns the length of column c.
func (cs ColumnSet) Len(c Column) int {
	return len(cs[c])
}

// Lens returns the length of every column in output order.
func (cs ColumnSet) Lens() [NumColumns]int {
	var lens [NumColumns]int
	for i := range cs {
		lens[i] = len(cs[i])
	}
	return lens
}

// MinLen returns the length of the shortest column.
func (cs ColumnSet) MinLen() int {
	n := len(cs[0])
	for _, col := range cs[1:] {
		if len(col) < n {
			n = len(col)
		}
	}
	return n
}

// Equal reports whether all columns have the same length.
func (cs ColumnSet) Equal() bool {
	n := len(cs[0])
	for _, col := range cs[1:] {
		if len(col) != n {
			return false
		}
	}
	return true
}

// Add appends v to column c.
func (cs *ColumnSet) Add(c Column, v Value) {
	cs[c] = append(cs[c], v)
}

// Append returns cs extended by other, column by column.
// The columns are copied, so the result never shares storage with cs.
func (cs ColumnSet) Append(other ColumnSet) ColumnSet {
	var out ColumnSet
	for i := range cs {
		col := make([]Value, 0, len(cs[i])+len(other[i]))
		col = append(col, cs[i]...)
		out[i] = append(col, other[i]...)
	}
	return out
}
