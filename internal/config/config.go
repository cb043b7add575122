package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/coursecrawl/internal/crawler"
	"github.com/nao1215/coursecrawl/internal/extract"
	"github.com/nao1215/coursecrawl/internal/fetch"
	"github.com/nao1215/coursecrawl/internal/model"
	"github.com/nao1215/coursecrawl/internal/report"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "coursecrawl"

	// DefaultSiteURL is the catalog listing that is crawled.
	DefaultSiteURL = "https://coursera.org/courses"

	// DefaultFirstPage and DefaultLastPage bound the default page range.
	DefaultFirstPage = 1
	DefaultLastPage  = 5

	// DefaultLinkRoot is prepended to the relative course links.
	DefaultLinkRoot = "https://www.coursera.org"

	// DefaultConcurrency keeps the crawl sequential.
	DefaultConcurrency = 1

	// DefaultCrawlDelay disables the pause between page requests.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultOutputFile is where the dataset is written.
	DefaultOutputFile = "data/coursera-courses-overview.csv"

	// DefaultMaxBodySize limits the markup kept per page.
	DefaultMaxBodySize = model.MaxPageSize

	DefaultTimeout      = fetch.DefaultTimeout
	DefaultAttempts     = fetch.DefaultAttempts
	DefaultRetryWait    = fetch.DefaultRetryWait
	DefaultRetryMaxWait = fetch.DefaultRetryMaxWait
	DefaultQueryToken   = fetch.DefaultQueryToken
	DefaultUserAgent    = fetch.DefaultUserAgent
	DefaultStrategy     = extract.StrategyColumns
	DefaultErrorPolicy  = string(crawler.PolicyAbort)
	DefaultFormat       = report.FormatCSV
)

// Config holds all options of one crawl. It is populated from CLI flags and
// the site file and passed down explicitly.
type Config struct {
	// SiteURL is the listing base URL; the page and index query parameters
	// are appended to it.
	SiteURL string

	// FirstPage and LastPage are the inclusive page range. A range with
	// FirstPage > LastPage visits nothing.
	FirstPage int
	LastPage  int

	// QueryToken is the value of the index query parameter.
	QueryToken string

	// LinkRoot is prepended to relative course links. Empty means the
	// scheme and host of the fetched page.
	LinkRoot string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// CrawlDelay is the pause before each page request after the first.
	CrawlDelay time.Duration

	// Attempts is the number of tries per page, including the first.
	Attempts int

	// RetryWait and RetryMaxWait bound the backoff between attempts.
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	// Concurrency is the number of pages processed at once.
	Concurrency int

	// Strategy selects the extractor: "columns" or "items".
	Strategy string

	// OnError is the failed-page policy: "abort" or "skip".
	OnError string

	// Format is the dataset output format: "csv", "json" or "markdown".
	Format string

	// OutputFile is the dataset path. "-" writes to stdout.
	OutputFile string

	// IncludeSummary wraps JSON output together with the crawl metadata and
	// page summaries. Only valid with the json format.
	IncludeSummary bool

	// Proxy is an optional SOCKS5 proxy, "host:port" or a socks5:// URL.
	Proxy string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the number of markup bytes kept per page.
	MaxBodySize int64

	// Cookie and Headers are sent with every request. They come from the
	// site file only.
	Cookie  string
	Headers map[string]string

	// Selectors override the default field selectors.
	Selectors extract.Selectors

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit site file path. Empty means search the
	// current directory and then the home directory.
	ConfigFilePath string

	// SiteConfigs holds the loaded site file, if any.
	SiteConfigs *File

	// DBDir is the directory holding the history database.
	DBDir string

	// SaveToDB records the crawl in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SiteURL:      DefaultSiteURL,
		FirstPage:    DefaultFirstPage,
		LastPage:     DefaultLastPage,
		QueryToken:   DefaultQueryToken,
		LinkRoot:     DefaultLinkRoot,
		Timeout:      DefaultTimeout,
		CrawlDelay:   DefaultCrawlDelay,
		Attempts:     DefaultAttempts,
		RetryWait:    DefaultRetryWait,
		RetryMaxWait: DefaultRetryMaxWait,
		Concurrency:  DefaultConcurrency,
		Strategy:     DefaultStrategy,
		OnError:      DefaultErrorPolicy,
		Format:       DefaultFormat,
		OutputFile:   DefaultOutputFile,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		Selectors:    extract.DefaultSelectors(),
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for coursecrawl.
// On Linux: ~/.local/share/coursecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for coursecrawl.
// On Linux: ~/.config/coursecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Host returns the host name of SiteURL, or "" if it does not parse.
func (c *Config) Host() string {
	u, err := url.Parse(c.SiteURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return ErrNoSiteURL
	}
	u, err := url.Parse(c.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSiteURL, c.SiteURL)
	}

	if c.FirstPage < 0 || c.LastPage < 0 {
		return ErrInvalidPage
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Attempts < 1 || c.RetryWait < 0 || c.RetryMaxWait < c.RetryWait {
		return ErrInvalidRetry
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Strategy != extract.StrategyColumns && c.Strategy != extract.StrategyItems {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Strategy)
	}

	if c.OnError != string(crawler.PolicyAbort) && c.OnError != string(crawler.PolicySkip) {
		return fmt.Errorf("%w: %q", ErrInvalidErrorPolicy, c.OnError)
	}

	if !slices.Contains(report.Formats(), c.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	if c.IncludeSummary && c.Format != report.FormatJSON {
		return fmt.Errorf("%w: summary output needs %q, got %q", ErrInvalidFormat, report.FormatJSON, c.Format)
	}

	return c.Selectors.Validate()
}

// ApplySiteConfig merges the site file entry sc into c. changed reports
// whether a setting was given explicitly on the command line; explicit
// settings win over the file.
func (c *Config) ApplySiteConfig(sc SiteConfig, changed func(name string) bool) {
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if sc.Cookie != "" {
		c.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(sc.Headers))
		}
		for k, v := range sc.Headers {
			c.Headers[k] = v
		}
	}
	if sc.QueryToken != "" && !changed(FlagQueryToken) {
		c.QueryToken = sc.QueryToken
	}
	if sc.LinkRoot != "" && !changed(FlagLinkRoot) {
		c.LinkRoot = sc.LinkRoot
	}
	c.Selectors = sc.Selectors.Merge(c.Selectors)
}

// Names of the command line settings that the site file can also set.
const (
	FlagQueryToken = "token"
	FlagLinkRoot   = "link-root"
)
