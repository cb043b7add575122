package model

import "time"

// PageResult carries one page through the fetch, extract and align steps.
type PageResult struct {
	// Index is the page number being processed.
	Index int

	// URL is the request URL, set by the fetch step.
	URL string

	// Page is the fetched page. Nil until the fetch step succeeds.
	Page *CatalogPage

	// Raw holds the per-column sequences exactly as extracted.
	Raw ColumnSet

	// Aligned holds Raw truncated to equal length.
	Aligned ColumnSet

	// Dropped counts, per column, the cells removed by alignment.
	Dropped [NumColumns]int

	// Err is the error that stopped processing, if any.
	Err error

	// Steps lists the names of the steps that completed, in order.
	Steps []string
}

// NewPageResult creates an empty result for page index.
func NewPageResult(index int) *PageResult {
	return &PageResult{
		Index: index,
		Steps: make([]string, 0, 3),
	}
}

// Records returns the number of aligned records on this page.
func (r *PageResult) Records() int {
	return r.Aligned.MinLen()
}

// DroppedTotal returns the total number of cells removed by alignment.
func (r *PageResult) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// PageSummary is the persisted and reported outcome of one page.
type PageSummary struct {
	Index      int             `json:"index"`
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code,omitempty"`
	Hash       string          `json:"hash,omitempty"`
	RawCounts  [NumColumns]int `json:"raw_counts"`
	Records    int             `json:"records"`
	Dropped    int             `json:"dropped"`
	Error      string          `json:"error,omitempty"`
}

// Failed reports whether the page failed.
func (s PageSummary) Failed() bool {
	return s.Error != ""
}

// Summarize converts a PageResult into a PageSummary.
func (r *PageResult) Summarize() PageSummary {
	s := PageSummary{
		Index:     r.Index,
		URL:       r.URL,
		RawCounts: r.Raw.Lens(),
		Records:   r.Records(),
		Dropped:   r.DroppedTotal(),
	}
	if r.Page != nil {
		s.StatusCode = r.Page.StatusCode
		s.Hash = r.Page.Hash
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
		s.Records = 0
	}
	return s
}

// CrawlResult is the output of one crawl.
type CrawlResult struct {
	// SiteURL is the listing base URL that was crawled.
	SiteURL string `json:"site_url"`

	// FirstPage and LastPage are the requested inclusive page range.
	FirstPage int `json:"first_page"`
	LastPage  int `json:"last_page"`

	// Dataset is the assembled table. Nil when the crawl aborted.
	Dataset *Dataset `json:"dataset,omitempty"`

	// Pages summarizes every page processed, in page order.
	Pages []PageSummary `json:"pages"`

	// StartedAt and Elapsed describe the crawl's timing.
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// FailedPages returns the indices of pages that failed.
func (r *CrawlResult) FailedPages() []int {
	failed := make([]int, 0)
	for _, p := range r.Pages {
		if p.Failed() {
			failed = append(failed, p.Index)
		}
	}
	return failed
}

// DroppedTotal returns the number of cells dropped by alignment across all
// pages.
func (r *CrawlResult) DroppedTotal() int {
	total := 0
	for _, p := range r.Pages {
		total += p.Dropped
	}
	return total
}

// Records returns the dataset row count, or 0 if there is no dataset.
func (r *CrawlResult) Records() int {
	if r.Dataset == nil {
		return 0
	}
	return r.Dataset.Len()
}
