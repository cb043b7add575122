// Package database provides SQLite storage for crawl history.
//
// The CrawlDB keeps three tables:
//   - runs: one row per crawl with its page range, outcome and the
//     dataset fingerprint
//   - pages: one row per visited page with its raw column counts, aligned
//     record count and error
//   - courses: the dataset records of a run, one SQL column per dataset
//     column, with NULL for missing values
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no cgo. WAL mode is enabled by default.
package database
