package crawler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// State is the crawler's position in its page loop.
type State int

// Crawler states. A sequential crawl moves through
// Fetching, Extracting and Aligning once per page and ends in Done.
const (
	StateIdle State = iota
	StateFetching
	StateExtracting
	StateAligning
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExtracting:
		return "extracting"
	case StateAligning:
		return "aligning"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ErrorPolicy decides what a failed page does to the crawl.
type ErrorPolicy string

const (
	// PolicyAbort stops the crawl at the first failed page and returns no
	// dataset.
	PolicyAbort ErrorPolicy = "abort"
	// PolicySkip records the failed page and continues with the next one.
	PolicySkip ErrorPolicy = "skip"
)

// ParseErrorPolicy converts a policy name into an ErrorPolicy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (use %q or %q)", s, PolicyAbort, PolicySkip)
	}
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithConcurrency sets how many pages are processed at once.
// 1 keeps the crawl strictly sequential.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithErrorPolicy sets the failed-page policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Crawler) {
		c.policy = p
	}
}

// WithDelay sets the pause before each page fetch after the first.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageHook registers fn to be called with each page summary, in page
// order, as pages are merged.
func WithPageHook(fn func(model.PageSummary)) Option {
	return func(c *Crawler) {
		c.onPage = fn
	}
}

// WithStateHook registers fn to be called on every state change.
// With concurrency above 1 it is called from worker goroutines.
func WithStateHook(fn func(page int, state State)) Option {
	return func(c *Crawler) {
		c.onState = fn
	}
}
