// Package model defines the core data structures used throughout coursecrawl.
//
// This package contains the following main types:
//   - Value: a single cell, either a typed value or the Missing sentinel
//   - Column and ColumnSet: the eight named per-feature sequences
//   - CatalogPage: a fetched listing page with its raw markup
//   - Record and Dataset: aligned rows and the immutable final table
//   - PageResult and CrawlResult: per-page pipeline state and crawl output
//
// Models live in their own package so that the extract, pipeline, crawler,
// database and report packages can share them without import cycles.
//
// Records and datasets serialize to JSON for report output and database
// storage.
package model
