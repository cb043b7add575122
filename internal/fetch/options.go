package fetch

import (
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// Option configures a Fetcher.
type Option func(*options)

type options struct {
	queryToken   string
	timeout      time.Duration
	attempts     int
	retryWait    time.Duration
	retryMaxWait time.Duration
	userAgent    string
	cookie       string
	headers      map[string]string
	proxy        string
	maxBodySize  int64
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		queryToken:   DefaultQueryToken,
		timeout:      DefaultTimeout,
		attempts:     DefaultAttempts,
		retryWait:    DefaultRetryWait,
		retryMaxWait: DefaultRetryMaxWait,
		userAgent:    DefaultUserAgent,
		maxBodySize:  model.MaxPageSize,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithQueryToken sets the search index token appended to every page URL.
func WithQueryToken(token string) Option {
	return func(o *options) {
		if token != "" {
			o.queryToken = token
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRetry sets the total number of attempts per page and the bounds of
// the exponential backoff between them. One attempt disables retries.
func WithRetry(attempts int, wait, maxWait time.Duration) Option {
	return func(o *options) {
		o.attempts = attempts
		o.retryWait = wait
		o.retryMaxWait = maxWait
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithCookie sets a raw Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// WithHeaders adds custom headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithProxy routes requests through a SOCKS5 proxy. addr is either
// "host:port" or a socks5:// URL, optionally with credentials.
func WithProxy(addr string) Option {
	return func(o *options) {
		o.proxy = addr
	}
}

// WithMaxBodySize caps the stored markup of each page.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

// WithLogger sets the logger for request progress and retries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
