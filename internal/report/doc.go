// Package report writes crawl results.
//
// Dataset writers:
//   - CSVWriter: header row plus one row per record, no index column
//   - JSONWriter: records as objects keyed by column name
//   - MarkdownWriter: run summary, per-page table, product type chart and
//     a preview of the first records
//
// SimpleWriter prints a short text summary for the terminal and is the only
// writer that accepts an aborted crawl.
package report
