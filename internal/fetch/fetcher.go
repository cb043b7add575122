package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nao1215/coursecrawl/internal/model"
)

// DefaultQueryToken is the search index token the catalog expects.
const DefaultQueryToken = "prod_all_products_term_optimization"

// Defaults for request handling.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultAttempts     = 3
	DefaultRetryWait    = 500 * time.Millisecond
	DefaultRetryMaxWait = 10 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (compatible; coursecrawl/1.0; +https://github.com/nao1215/coursecrawl)"
	maxRedirects        = 10
)

var (
	// ErrUnexpectedStatus is returned when the server answers with a non-2xx
	// status after all retries.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNoBaseURL is returned by New when the base URL is empty.
	ErrNoBaseURL = errors.New("base URL is required")
)

// retryableStatus lists the statuses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Fetcher retrieves listing pages.
// It is safe for concurrent use.
type Fetcher struct {
	client      *resty.Client
	baseURL     string
	queryToken  string
	maxBodySize int64
	logger      *slog.Logger
}

// New creates a Fetcher for the listing at baseURL.
func New(baseURL string, opts ...Option) (*Fetcher, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoBaseURL
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	hc := &http.Client{}
	if o.proxy != "" {
		transport, err := proxyTransport(o.proxy)
		if err != nil {
			return nil, err
		}
		hc.Transport = transport
	}

	client := resty.NewWithClient(hc)
	client.SetTimeout(o.timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	client.SetHeader("User-Agent", o.userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	for k, v := range o.headers {
		client.SetHeader(k, v)
	}
	if o.cookie != "" {
		client.SetHeader("Cookie", o.cookie)
	}
	client.SetLogger(newRestyLogger(o.logger))

	retries := o.attempts - 1
	if retries < 0 {
		retries = 0
	}
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(o.retryWait)
	client.SetRetryMaxWaitTime(o.retryMaxWait)
	client.AddRetryCondition(shouldRetry)
	client.AddRetryHook(func(resp *resty.Response, err error) {
		attrs := []any{"error", err}
		if resp != nil && resp.Request != nil {
			attrs = append(attrs, "url", resp.Request.URL, "status", resp.StatusCode())
		}
		o.logger.Warn("retrying page request", attrs...)
		closeBody(resp)
	})

	return &Fetcher{
		client:      client,
		baseURL:     baseURL,
		queryToken:  o.queryToken,
		maxBodySize: o.maxBodySize,
		logger:      o.logger,
	}, nil
}

// shouldRetry retries transport errors and transient statuses.
// A canceled request context stops resty before conditions are consulted.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && retryableStatus[resp.StatusCode()]
}

// PageURL returns the URL of page i.
// The base URL is used verbatim; no URL normalization is applied.
func (f *Fetcher) PageURL(i int) string {
	return f.baseURL + "?page=" + strconv.Itoa(i) + "&index=" + f.queryToken
}

// Fetch retrieves page i.
// The returned error wraps ErrUnexpectedStatus for non-2xx responses.
func (f *Fetcher) Fetch(ctx context.Context, i int) (*model.CatalogPage, error) {
	pageURL := f.PageURL(i)
	f.logger.Debug("fetching page", "page", i, "url", pageURL)

	// The body is streamed so that at most maxBodySize bytes are held.
	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(pageURL)
	defer closeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d (%s): %w", i, pageURL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch page %d (%s): %w: %d", i, pageURL, ErrUnexpectedStatus, resp.StatusCode())
	}

	page := &model.CatalogPage{
		Index:       i,
		URL:         pageURL,
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		FetchedAt:   resp.ReceivedAt(),
	}
	if err := page.ReadMarkup(resp.RawBody(), f.maxBodySize); err != nil {
		return nil, fmt.Errorf("failed to read page %d (%s): %w", i, pageURL, err)
	}
	page.ComputeHash()

	f.logger.Debug("fetched page",
		"page", i,
		"status", page.StatusCode,
		"bytes", len(page.Markup),
		"elapsed", resp.Time(),
	)
	return page, nil
}

// closeBody closes the unparsed body of resp, if any.
func closeBody(resp *resty.Response) {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return
	}
	_ = resp.RawResponse.Body.Close() //nolint:errcheck // Best effort cleanup
}
