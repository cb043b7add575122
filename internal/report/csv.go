package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/coursecrawl/internal/model"
)

// CSVWriter writes the dataset as CSV: one header row with the eight column
// names followed by one row per record. There is no index column.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the result's dataset.
func (w *CSVWriter) Write(result *model.CrawlResult) (int, error) {
	if result == nil || result.Dataset == nil {
		return 0, ErrNoDataset
	}

	cw := &countingWriter{w: w.output}
	enc := csv.NewWriter(cw)
	if err := enc.WriteAll(result.Dataset.Rows()); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}
