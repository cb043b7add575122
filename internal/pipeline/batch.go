package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/coursecrawl/internal/model"
)

// BatchProcessor processes several pages concurrently.
// Each page runs in its own pipeline and its result is stored in the slot
// matching its position in the input, so output order never depends on
// completion order.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each page.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of pages in flight.
	concurrency int

	// abortOnError cancels the remaining pages when one fails.
	abortOnError bool

	// onResult is called after each page completes.
	onResult func(result *model.PageResult)

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages processed at once.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithAbortOnError makes the first failed page cancel the batch.
func WithAbortOnError(abort bool) BatchOption {
	return func(b *BatchProcessor) {
		b.abortOnError = abort
	}
}

// WithResultCallback registers fn to be called after each page completes.
// fn is called from worker goroutines and must be safe for concurrent use.
func WithResultCallback(fn func(result *model.PageResult)) BatchOption {
	return func(b *BatchProcessor) {
		b.onResult = fn
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each page so that pipeline
// state never leaks between pages.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessPages runs the pipeline for every page index concurrently.
//
// The returned slice has one entry per index, in input order. Entries for
// pages never started because the batch was cancelled are nil. Under
// abort-on-error the first page error is returned; otherwise page errors
// stay in their results and the error is only set when ctx is cancelled.
func (bp *BatchProcessor) ProcessPages(ctx context.Context, indices []int) ([]*model.PageResult, error) {
	bp.logger.Info("starting batch processing",
		"total_pages", len(indices),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own slot.
	results := make([]*model.PageResult, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, index := range indices {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			result := model.NewPageResult(index)
			err := bp.pipelineFactory().Execute(gctx, result)
			results[i] = result

			if bp.onResult != nil {
				bp.onResult(result)
			}

			if err != nil {
				bp.logger.Warn("page failed",
					"page", index,
					"error", err,
				)
				if bp.abortOnError {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch processing complete",
		"total_pages", len(indices),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
