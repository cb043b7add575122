package model

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/sha3"
)

// Record is one aligned dataset row.
// All eight values describe the same catalog item.
type Record struct {
	URL         Value
	Name        Value
	ProductType Value
	Provider    Value
	Rating      Value
	RatedBy     Value
	Enrolled    Value
	Difficulty  Value
}

// Get returns the value of column c.
func (r Record) Get(c Column) Value {
	switch c {
	case ColumnURL:
		return r.URL
	case ColumnName:
		return r.Name
	case ColumnProductType:
		return r.ProductType
	case ColumnProvider:
		return r.Provider
	case ColumnRating:
		return r.Rating
	case ColumnRatedBy:
		return r.RatedBy
	case ColumnEnrolled:
		return r.Enrolled
	case ColumnDifficulty:
		return r.Difficulty
	default:
		return Missing()
	}
}

// Set stores v in column c.
func (r *Record) Set(c Column, v Value) {
	switch c {
	case ColumnURL:
		r.URL = v
	case ColumnName:
		r.Name = v
	case ColumnProductType:
		r.ProductType = v
	case ColumnProvider:
		r.Provider = v
	case ColumnRating:
		r.Rating = v
	case ColumnRatedBy:
		r.RatedBy = v
	case ColumnEnrolled:
		r.Enrolled = v
	case ColumnDifficulty:
		r.Difficulty = v
	}
}

// Values returns the record's values in output order.
func (r Record) Values() []Value {
	values := make([]Value, NumColumns)
	for _, c := range Columns() {
		values[c] = r.Get(c)
	}
	return values
}

// Strings returns the record's values rendered for CSV output.
func (r Record) Strings() []string {
	row := make([]string, NumColumns)
	for _, c := range Columns() {
		row[c] = r.Get(c).String()
	}
	return row
}

// MissingCount returns how many of the record's values are Missing.
func (r Record) MissingCount() int {
	n := 0
	for _, v := range r.Values() {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the record as an object keyed by column name.
// Column order is not preserved by JSON objects; use Dataset rows for that.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]Value, NumColumns)
	for _, c := range Columns() {
		obj[c.String()] = r.Get(c)
	}
	return json.Marshal(obj)
}

// Dataset is the immutable, ordered output table.
// Create one with NewDataset; accessors return copies.
type Dataset struct {
	records []Record
}

// NewDataset builds a Dataset from records. The slice is copied.
func NewDataset(records []Record) *Dataset {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Dataset{records: cp}
}

// Columns returns the dataset's column headers in order.
func (d *Dataset) Columns() []string {
	return ColumnNames()
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Record returns the i-th record.
func (d *Dataset) Record(i int) Record {
	return d.records[i]
}

// Records returns a copy of all records.
func (d *Dataset) Records() []Record {
	cp := make([]Record, len(d.records))
	copy(cp, d.records)
	return cp
}

// Column returns a copy of column c.
func (d *Dataset) Column(c Column) []Value {
	col := make([]Value, len(d.records))
	for i, r := range d.records {
		col[i] = r.Get(c)
	}
	return col
}

// Rows returns the header row followed by one row per record, rendered the
// way they are written to CSV.
func (d *Dataset) Rows() [][]string {
	rows := make([][]string, 0, len(d.records)+1)
	rows = append(rows, d.Columns())
	for _, r := range d.records {
		rows = append(rows, r.Strings())
	}
	return rows
}

// Fingerprint returns a hex SHA3-256 digest of the dataset's rows.
// Two datasets with identical serialized output have the same fingerprint.
func (d *Dataset) Fingerprint() string {
	h := sha3.New256()
	for _, row := range d.Rows() {
		for i, cell := range row {
			if i > 0 {
				_, _ = h.Write([]byte{0x1f}) //nolint:errcheck // hash writes never fail
			}
			_, _ = h.Write([]byte(cell)) //nolint:errcheck // hash writes never fail
		}
		_, _ = h.Write([]byte{0x1e}) //nolint:errcheck // hash writes never fail
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalJSON encodes the dataset as an array of records.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.records)
}
