// Package fetch retrieves catalog listing pages over HTTP.
//
// A Fetcher builds the URL of a page by appending the page number and the
// search index token to the listing base URL, issues one logical GET through
// a resty client and returns the markup as a model.CatalogPage.
//
// Transport errors and the statuses 408, 429, 500, 502, 503 and 504 are
// retried with exponential backoff. Any other non-2xx status is returned as
// ErrUnexpectedStatus. Whether a failed page aborts the crawl or is skipped
// is decided by the crawler, not here.
//
// Requests can be routed through a SOCKS5 proxy with WithProxy.
package fetch
