// Package main provides the entry point for the coursecrawl CLI.
//
// coursecrawl walks the paginated course catalog listing, extracts one
// record per course and writes the combined dataset as CSV, JSON or
// Markdown.
//
// Usage:
//
//	coursecrawl crawl
//	coursecrawl crawl --first-page 1 --last-page 10 -o courses.csv
//	coursecrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
