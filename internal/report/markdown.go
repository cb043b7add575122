package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/coursecrawl/internal/model"
)

// DefaultPreviewRows is how many records the Markdown preview shows.
const DefaultPreviewRows = 10

// MarkdownWriter outputs a crawl report in Markdown: a run summary, the
// per-page table, the product type distribution and a preview of the first
// records.
type MarkdownWriter struct {
	baseWriter

	previewRows int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithPreviewRows sets the number of records in the preview table.
// Zero disables the preview.
func WithPreviewRows(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if n >= 0 {
			w.previewRows = n
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:  newBaseWriter(output),
		previewRows: DefaultPreviewRows,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the crawl report in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	if result == nil || result.Dataset == nil {
		return 0, ErrNoDataset
	}

	cw := &countingWriter{w: w.output}
	md := markdown.NewMarkdown(cw)

	w.writeHeader(md, result)
	w.writeAlert(md, result)
	w.writePages(md, result)
	w.writeProductTypes(md, result.Dataset)
	w.writePreview(md, result.Dataset)
	w.writeFooter(md)

	err := md.Build()
	return cw.n, err
}

// writeHeader writes the run summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Course Catalog Crawl")
	md.PlainText("")

	failed := result.FailedPages()
	failedText := "none"
	if len(failed) > 0 {
		parts := make([]string, len(failed))
		for i, p := range failed {
			parts[i] = strconv.Itoa(p)
		}
		failedText = strings.Join(parts, ", ")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + result.SiteURL + "`"},
			{"Pages", fmt.Sprintf("%d to %d", result.FirstPage, result.LastPage)},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", result.Elapsed.Round(time.Millisecond).String()},
			{"Records", strconv.Itoa(result.Dataset.Len())},
			{"Dropped Cells", strconv.Itoa(result.DroppedTotal())},
			{"Failed Pages", failedText},
			{"Fingerprint", "`" + result.Dataset.Fingerprint() + "`"},
		},
	})
	md.PlainText("")
}

// writeAlert notes failed pages and cells lost to alignment.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.CrawlResult) {
	switch failed := len(result.FailedPages()); {
	case failed > 0:
		md.Cautionf("%d page(s) failed and are missing from the dataset.", failed)
	case result.DroppedTotal() > 0:
		md.Warningf(
			"%d cell(s) were dropped while aligning columns of unequal length.",
			result.DroppedTotal(),
		)
	default:
		md.Tip("Every extracted cell was kept.")
	}
	md.PlainText("")
}

// writePages writes one row per visited page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(result.Pages) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Pages))
	for i, p := range result.Pages {
		status := "ok"
		if p.Failed() {
			status = truncateString(p.Error, 60)
		}
		rows[i] = []string{
			strconv.Itoa(p.Index),
			strconv.Itoa(p.StatusCode),
			strconv.Itoa(p.Records),
			strconv.Itoa(p.Dropped),
			status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "HTTP", "Records", "Dropped", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeProductTypes writes a mermaid pie chart of learning product types.
func (w *MarkdownWriter) writeProductTypes(md *markdown.Markdown, ds *model.Dataset) {
	if ds.Len() == 0 {
		return
	}

	counts := make(map[string]uint64)
	for _, v := range ds.Column(model.ColumnProductType) {
		counts[v.String()]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Learning Product Types"),
		piechart.WithShowData(true),
	)
	for _, label := range labels {
		chart.LabelAndIntValue(label, counts[label])
	}

	md.H2("Product Types")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePreview writes the first records as a table.
func (w *MarkdownWriter) writePreview(md *markdown.Markdown, ds *model.Dataset) {
	if w.previewRows == 0 {
		return
	}

	md.H2("Preview")
	md.PlainText("")

	if ds.Len() == 0 {
		md.PlainText("The dataset is empty.")
		md.PlainText("")
		return
	}

	n := min(w.previewRows, ds.Len())
	rows := make([][]string, n)
	for i := range n {
		cells := ds.Record(i).Strings()
		for j := range cells {
			cells[j] = truncateString(cells[j], 50)
		}
		rows[i] = cells
	}
	md.Table(markdown.TableSet{
		Header: model.ColumnNames(),
		Rows:   rows,
	})
	if ds.Len() > n {
		md.PlainTextf("*%d more record(s) not shown.*", ds.Len()-n)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [coursecrawl](https://github.com/nao1215/coursecrawl)*")
}

// truncateString cuts s to at most maxWidth terminal columns, ending in an
// ellipsis when anything was removed. Wide runes count as two columns.
func truncateString(s string, maxWidth int) string {
	return runewidth.Truncate(s, maxWidth, "...")
}
