// Package pipeline runs the per-page processing steps of a crawl.
//
// Every catalog page goes through the same three steps: fetch the markup,
// extract the raw column sequences and align them to equal length. Each step
// implements Step and receives the page's model.PageResult. A Pipeline runs
// the steps of one page in order and stops at the first error.
// WithBeforeStep lets a caller observe or delay each step.
//
// BatchProcessor runs one fresh pipeline per page with bounded concurrency
// using errgroup. Results are stored in index-addressed slots, so merging
// them in page order yields the same dataset as a sequential crawl.
package pipeline
