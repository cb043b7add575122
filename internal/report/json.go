package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/coursecrawl/internal/model"
)

// JSONWriter outputs the dataset as a JSON array of records keyed by column
// name. Missing cells are null.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// withSummary wraps the records together with the page summaries.
	withSummary bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithSummary makes the writer emit a Document instead of the bare record
// array.
func WithSummary() JSONWriterOption {
	return func(w *JSONWriter) {
		w.withSummary = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Document is the JSON shape written with WithSummary.
type Document struct {
	SiteURL     string              `json:"site_url"`
	FirstPage   int                 `json:"first_page"`
	LastPage    int                 `json:"last_page"`
	Fingerprint string              `json:"fingerprint"`
	Pages       []model.PageSummary `json:"pages"`
	Records     *model.Dataset      `json:"records"`
}

// Write outputs the result's dataset in JSON format.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	if result == nil || result.Dataset == nil {
		return 0, ErrNoDataset
	}
	if !w.withSummary {
		return w.writeJSON(result.Dataset)
	}
	return w.writeJSON(&Document{
		SiteURL:     result.SiteURL,
		FirstPage:   result.FirstPage,
		LastPage:    result.LastPage,
		Fingerprint: result.Dataset.Fingerprint(),
		Pages:       result.Pages,
		Records:     result.Dataset,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
