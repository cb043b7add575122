package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp.concurrency != 4 {
			t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))

		if bp.concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", bp.concurrency)
		}
	})
}

// stepFunc adapts a function to the Step interface.
type stepFunc func(ctx context.Context, result *model.PageResult) error

func (f stepFunc) Do(ctx context.Context, result *model.PageResult) error { return f(ctx, result) }
func (f stepFunc) Name() string { return "func" }

func factory(fn stepFunc) func() *Pipeline {
	return func() *Pipeline {
		p := New(WithLogger(quietLogger()))
		p.AddSteps(fn)
		return p
	}
}

// TestBatchProcessorProcessPages tests concurrent page processing.
func TestBatchProcessorProcessPages(t *testing.T) {
	t.Parallel()

	t.Run("results are ordered by input position", func(t *testing.T) {
		t.Parallel()

		// Later pages finish first.
		slow := stepFunc(func(_ context.Context, r *model.PageResult) error {
			time.Sleep(time.Duration(10-r.Index) * time.Millisecond)
			r.Aligned.Add(model.ColumnURL, model.Int(int64(r.Index)))
			return nil
		})

		bp := NewBatchProcessor(factory(slow), WithConcurrency(4), WithBatchLogger(quietLogger()))
		indices := []int{1, 2, 3, 4, 5, 6}
		results, err := bp.ProcessPages(context.Background(), indices)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i, r := range results {
			if r == nil || r.Index != indices[i] {
				t.Fatalf("slot %d: unexpected result %+v", i, r)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		step := stepFunc(func(_ context.Context, _ *model.PageResult) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})

		bp := NewBatchProcessor(factory(step), WithConcurrency(2), WithBatchLogger(quietLogger()))
		if _, err := bp.ProcessPages(context.Background(), []int{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency %d exceeds limit 2", peak.Load())
		}
	})

	t.Run("failed pages are kept when not aborting", func(t *testing.T) {
		t.Parallel()

		pageErr := errors.New("boom")
		step := stepFunc(func(_ context.Context, r *model.PageResult) error {
			if r.Index == 2 {
				return pageErr
			}
			return nil
		})

		bp := NewBatchProcessor(factory(step), WithBatchLogger(quietLogger()))
		results, err := bp.ProcessPages(context.Background(), []int{1, 2, 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(results[1].Err, pageErr) {
			t.Errorf("got %v, expected %v", results[1].Err, pageErr)
		}
		if results[0].Err != nil || results[2].Err != nil {
			t.Error("other pages should succeed")
		}
	})

	t.Run("abort on error returns the page error", func(t *testing.T) {
		t.Parallel()

		pageErr := errors.New("boom")
		step := stepFunc(func(ctx context.Context, r *model.PageResult) error {
			if r.Index == 1 {
				return pageErr
			}
			<-ctx.Done()
			return ctx.Err()
		})

		bp := NewBatchProcessor(factory(step),
			WithConcurrency(3),
			WithAbortOnError(true),
			WithBatchLogger(quietLogger()),
		)
		_, err := bp.ProcessPages(context.Background(), []int{1, 2, 3})
		if !errors.Is(err, pageErr) {
			t.Errorf("got %v, expected %v", err, pageErr)
		}
	})

	t.Run("callback sees every page", func(t *testing.T) {
		t.Parallel()

		var (
			mu   sync.Mutex
			seen = make(map[int]bool)
		)
		bp := NewBatchProcessor(
			factory(func(_ context.Context, _ *model.PageResult) error { return nil }),
			WithBatchLogger(quietLogger()),
			WithResultCallback(func(r *model.PageResult) {
				mu.Lock()
				seen[r.Index] = true
				mu.Unlock()
			}),
		)

		if _, err := bp.ProcessPages(context.Background(), []int{4, 5, 6}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, i := range []int{4, 5, 6} {
			if !seen[i] {
				t.Errorf("page %d not reported", i)
			}
		}
	})

	t.Run("cancelled context is reported", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(
			factory(func(_ context.Context, _ *model.PageResult) error { return nil }),
			WithBatchLogger(quietLogger()),
		)
		if _, err := bp.ProcessPages(ctx, []int{1, 2}); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, expected context.Canceled", err)
		}
	})
}
