// Package crawler walks a range of catalog listing pages and accumulates
// their records into one dataset.
//
// # Control flow
//
// For every page from the first to the last, inclusive and in ascending
// order, the crawler runs a pipeline of three steps: fetch, extract and
// align. The aligned columns of each page are appended to an accumulator
// that the loop threads through by value. Once the range is exhausted the
// accumulator is assembled into a model.Dataset exactly once.
//
// # Failure policy
//
//   - PolicyAbort (default): the first failed page ends the crawl and no
//     dataset is returned.
//   - PolicySkip: the failed page is logged and recorded in the page
//     summaries and the crawl moves on.
//
// # Concurrency
//
// With WithConcurrency(n > 1) pages are fetched in parallel. Each page is
// aligned inside its own pipeline and the results are merged in page order
// after all workers finish, so the dataset is identical to a sequential
// crawl.
//
// # Usage
//
//	c := crawler.New(fetcher, extractor, 1, 5, crawler.WithDelay(time.Second))
//	result, err := c.Run(ctx)
package crawler
