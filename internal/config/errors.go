package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSiteURL is returned when no listing URL is configured.
	ErrNoSiteURL = errors.New("no site URL specified")

	// ErrInvalidSiteURL is returned when the site URL is not an absolute
	// http or https URL.
	ErrInvalidSiteURL = errors.New("invalid site URL: must be an absolute http(s) URL")

	// ErrInvalidPage is returned for a negative page number.
	ErrInvalidPage = errors.New("invalid page: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRetry is returned when attempts is below one or the backoff
	// bounds are inconsistent.
	ErrInvalidRetry = errors.New("invalid retry settings: attempts must be at least 1 and 0 <= wait <= max wait")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidStrategy is returned for an unknown extraction strategy.
	ErrInvalidStrategy = errors.New("invalid strategy: use columns or items")

	// ErrInvalidErrorPolicy is returned for an unknown failed-page policy.
	ErrInvalidErrorPolicy = errors.New("invalid error policy: use abort or skip")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: use csv, json or markdown")
)
