package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/coursecrawl/internal/model"
)

// Output formats accepted by NewWriter.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrNoDataset is returned when a crawl result carries no dataset to write.
var ErrNoDataset = errors.New("crawl result has no dataset")

// Writer writes a crawl result in one output format.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *model.CrawlResult) (int, error)
}

// Formats returns the supported output format names.
func Formats() []string {
	return []string{FormatCSV, FormatJSON, FormatMarkdown}
}

// NewWriter returns the Writer for format writing to output.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts the bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
