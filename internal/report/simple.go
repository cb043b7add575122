package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// SimpleWriter outputs a plain text crawl summary for the terminal.
// Unlike the dataset writers it also accepts an aborted crawl with no
// dataset.
type SimpleWriter struct {
	baseWriter

	// verbose lists every page instead of only the failed ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every page in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the crawl summary.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writePages(&sb, result)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Site:     %s\n", result.SiteURL)
	fmt.Fprintf(sb, "Pages:    %d to %d (%d visited)\n", result.FirstPage, result.LastPage, len(result.Pages))
	fmt.Fprintf(sb, "Records:  %d\n", result.Records())
	fmt.Fprintf(sb, "Dropped:  %d cell(s)\n", result.DroppedTotal())
	if result.Dataset != nil {
		fmt.Fprintf(sb, "Missing:  %d cell(s)\n", missingCells(result.Dataset))
	}
	fmt.Fprintf(sb, "Elapsed:  %s\n", result.Elapsed.Round(time.Millisecond))

	switch {
	case result.Dataset == nil:
		sb.WriteString("Status:   ABORTED (no dataset)\n")
	case len(result.FailedPages()) > 0:
		fmt.Fprintf(sb, "Status:   Complete with %d failed page(s)\n", len(result.FailedPages()))
	default:
		sb.WriteString("Status:   Complete\n")
	}
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, result *model.CrawlResult) {
	for _, p := range result.Pages {
		switch {
		case p.Failed():
			fmt.Fprintf(sb, "  [!] page %d: %s\n", p.Index, p.Error)
		case w.verbose:
			fmt.Fprintf(sb, "  [+] page %d: %d record(s), %d dropped\n", p.Index, p.Records, p.Dropped)
		}
	}
}

// missingCells counts the Missing values kept in ds.
func missingCells(ds *model.Dataset) int {
	n := 0
	for _, r := range ds.Records() {
		n += r.MissingCount()
	}
	return n
}
