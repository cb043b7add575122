// Package extract turns the markup of one catalog listing page into
// per-column value sequences.
//
// # Strategies
//
// Two extractors implement the Extractor interface:
//
//   - ColumnExtractor runs eight independent selector passes, one per
//     column. Columns may come back with different lengths when a listing
//     omits a field for some items; Align truncates them to the shortest.
//   - ItemExtractor selects the listing item containers first and reads all
//     eight fields inside each container. A field absent from a container
//     becomes Missing, so the columns are always equally long and Align is a
//     no-op.
//
// ColumnExtractor reproduces the historical output of the scraper and is the
// default. ItemExtractor keeps every item and never misattributes fields
// across items.
//
// # Coercion
//
// Text is trimmed, inner whitespace is collapsed and the result is NFC
// normalized. Ratings parse as floats and rating counts as integers after
// stripping "," "(" and ")". Any parse failure yields model.Missing and is
// never reported as an error.
//
// # Usage
//
//	ex, err := extract.NewColumnExtractor(extract.DefaultSelectors(),
//	    extract.WithLinkRoot("https://www.coursera.org"))
//	cols, err := ex.Extract(ctx, page)
//	aligned, dropped := extract.Align(cols)
package extract
