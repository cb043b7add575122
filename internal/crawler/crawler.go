package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/coursecrawl/internal/dataset"
	"github.com/nao1215/coursecrawl/internal/extract"
	"github.com/nao1215/coursecrawl/internal/model"
	"github.com/nao1215/coursecrawl/internal/pipeline"
)

// ErrPageFailed wraps the error of the page that aborted a crawl.
var ErrPageFailed = errors.New("page failed")

// Crawler visits a range of catalog pages and assembles their records.
//
// A Crawler is meant for one Run at a time; State reports the progress of
// the current run.
type Crawler struct {
	fetcher   pipeline.Fetcher
	extractor extract.Extractor
	firstPage int
	lastPage  int

	concurrency int
	policy      ErrorPolicy
	delay       time.Duration
	logger      *slog.Logger
	onPage      func(model.PageSummary)
	onState     func(page int, state State)

	mu    sync.Mutex
	state State
}

// New creates a Crawler for pages firstPage through lastPage inclusive.
// When firstPage > lastPage, Run visits nothing and returns an empty dataset.
func New(fetcher pipeline.Fetcher, extractor extract.Extractor, firstPage, lastPage int, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:     fetcher,
		extractor:   extractor,
		firstPage:   firstPage,
		lastPage:    lastPage,
		concurrency: 1,
		policy:      PolicyAbort,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the crawler's current state.
func (c *Crawler) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Crawler) setState(page int, s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(page, s)
	}
}

// pageIndices returns the pages to visit in ascending order.
func (c *Crawler) pageIndices() []int {
	if c.firstPage > c.lastPage {
		return nil
	}
	indices := make([]int, 0, c.lastPage-c.firstPage+1)
	for p := c.firstPage; p <= c.lastPage; p++ {
		indices = append(indices, p)
	}
	return indices
}

// stepStates maps pipeline step names to crawler states.
var stepStates = map[string]State{
	pipeline.StepFetch:   StateFetching,
	pipeline.StepExtract: StateExtracting,
	pipeline.StepAlign:   StateAligning,
}

// newPipeline builds the per-page pipeline with state tracking around each
// step.
func (c *Crawler) newPipeline() *pipeline.Pipeline {
	return pipeline.NewPagePipeline(c.fetcher, c.extractor,
		pipeline.WithLogger(c.logger),
		pipeline.WithBeforeStep(c.beforeStep),
	)
}

// beforeStep updates the crawler state and applies the politeness delay
// before every fetch but the first.
func (c *Crawler) beforeStep(ctx context.Context, step pipeline.Step, result *model.PageResult) error {
	state := stepStates[step.Name()]
	if state == StateFetching && c.delay > 0 && result.Index != c.firstPage {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
	}
	c.setState(result.Index, state)
	return nil
}

// Run crawls the page range.
//
// Under PolicyAbort the first failed page stops the crawl: the returned
// result carries the page summaries processed so far but no dataset, and the
// error wraps ErrPageFailed. Under PolicySkip failed pages are recorded and
// left out of the dataset.
func (c *Crawler) Run(ctx context.Context) (*model.CrawlResult, error) {
	start := time.Now()
	result := &model.CrawlResult{
		FirstPage: c.firstPage,
		LastPage:  c.lastPage,
		Pages:     make([]model.PageSummary, 0),
		StartedAt: start,
	}
	defer func() {
		result.Elapsed = time.Since(start)
	}()

	c.logger.Info("starting crawl",
		"first_page", c.firstPage,
		"last_page", c.lastPage,
		"strategy", c.extractor.Name(),
		"concurrency", c.concurrency,
		"on_error", c.policy,
	)

	var (
		acc model.ColumnSet
		err error
	)
	if c.concurrency > 1 {
		acc, err = c.runConcurrent(ctx, result)
	} else {
		acc, err = c.runSequential(ctx, result)
	}
	if err != nil {
		c.setState(0, StateDone)
		return result, err
	}

	ds, err := dataset.Assemble(acc)
	c.setState(0, StateDone)
	if err != nil {
		return result, err
	}
	result.Dataset = ds

	c.logger.Info("crawl complete",
		"pages", len(result.Pages),
		"failed", len(result.FailedPages()),
		"records", ds.Len(),
		"dropped", result.DroppedTotal(),
	)
	return result, nil
}

// runSequential processes one page completely before fetching the next.
// The accumulator is threaded through the loop by value.
func (c *Crawler) runSequential(ctx context.Context, result *model.CrawlResult) (model.ColumnSet, error) {
	var acc model.ColumnSet
	for _, index := range c.pageIndices() {
		pr := model.NewPageResult(index)
		err := c.newPipeline().Execute(ctx, pr)

		next, stop := c.merge(ctx, acc, pr, result)
		if stop != nil {
			return acc, stop
		}
		acc = next

		if err == nil {
			c.logPage(pr)
		}
	}
	return acc, nil
}

func (c *Crawler) logPage(pr *model.PageResult) {
	c.logger.Info("crawled page", "page", pr.Index, "records", pr.Records())
}

// runConcurrent processes pages with bounded parallelism and merges them in
// page order once all workers are done.
func (c *Crawler) runConcurrent(ctx context.Context, result *model.CrawlResult) (model.ColumnSet, error) {
	bp := pipeline.NewBatchProcessor(
		c.newPipeline,
		pipeline.WithConcurrency(c.concurrency),
		pipeline.WithAbortOnError(c.policy == PolicyAbort),
		pipeline.WithBatchLogger(c.logger),
		pipeline.WithResultCallback(func(pr *model.PageResult) {
			if pr.Err == nil {
				c.logPage(pr)
			}
		}),
	)

	results, batchErr := bp.ProcessPages(ctx, c.pageIndices())

	culprit := -1
	if batchErr != nil && ctx.Err() == nil {
		culprit = abortingPage(results)
	}

	var acc model.ColumnSet
	for i, pr := range results {
		if pr == nil {
			continue
		}
		// Pages cancelled because another page aborted the batch are not
		// failures of their own.
		if culprit >= 0 && i != culprit && errors.Is(pr.Err, context.Canceled) {
			continue
		}
		next, stop := c.merge(ctx, acc, pr, result)
		if stop != nil {
			return acc, stop
		}
		acc = next
	}
	if batchErr != nil {
		return acc, batchErr
	}
	return acc, nil
}

// abortingPage returns the position of the first result that failed for a
// reason other than cancellation, or -1.
func abortingPage(results []*model.PageResult) int {
	for i, pr := range results {
		if pr != nil && pr.Err != nil && !errors.Is(pr.Err, context.Canceled) {
			return i
		}
	}
	return -1
}

// merge records the page summary and returns acc extended by the page's
// aligned columns. A non-nil error means the crawl must stop.
func (c *Crawler) merge(ctx context.Context, acc model.ColumnSet, pr *model.PageResult, result *model.CrawlResult) (model.ColumnSet, error) {
	summary := pr.Summarize()
	result.Pages = append(result.Pages, summary)
	if c.onPage != nil {
		c.onPage(summary)
	}

	if pr.Err == nil {
		return acc.Append(pr.Aligned), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return acc, ctxErr
	}
	if c.policy == PolicyAbort {
		return acc, fmt.Errorf("%w: page %d: %w", ErrPageFailed, pr.Index, pr.Err)
	}

	c.logger.Warn("skipping failed page", "page", pr.Index, "error", pr.Err)
	return acc, nil
}
