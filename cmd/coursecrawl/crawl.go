package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/coursecrawl/internal/config"
	"github.com/nao1215/coursecrawl/internal/crawler"
	"github.com/nao1215/coursecrawl/internal/database"
	"github.com/nao1215/coursecrawl/internal/extract"
	"github.com/nao1215/coursecrawl/internal/fetch"
	"github.com/nao1215/coursecrawl/internal/model"
	"github.com/nao1215/coursecrawl/internal/report"
)

// stdoutPath selects standard output as the dataset destination.
const stdoutPath = "-"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a range of catalog pages and write the course dataset",
		Long: `Crawl fetches the catalog listing pages from --first-page through
--last-page, extracts every course and writes one combined dataset.

Pages are requested as <site>?page=<n>&index=<token>. Each page yields eight
columns (URL, name, product type, provider, rating, rating count, enrollment,
difficulty). When a page yields columns of different lengths, every column
is cut to the shortest one before the page is added to the dataset.

Examples:
  # Crawl pages 1-5 into data/coursera-courses-overview.csv
  coursecrawl crawl

  # Crawl pages 1-20 with two requests in flight and a one second pause
  coursecrawl crawl --last-page 20 --concurrency 2 --delay 1s

  # Keep going when a page fails and print JSON to stdout
  coursecrawl crawl --on-error skip --format json -o -

  # Group fields by course container instead of truncating columns
  coursecrawl crawl --strategy items

  # Route requests through a SOCKS5 proxy
  coursecrawl crawl --proxy 127.0.0.1:1080

Site file (.coursecrawl) example:
  sites:
    coursera.org:
      cookie: "CAUTH=abc123"
      selectors:
        difficulty: ".product-difficulty"`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Target flags
	cmd.Flags().String("site", config.DefaultSiteURL,
		"Catalog listing URL")
	cmd.Flags().Int("first-page", config.DefaultFirstPage,
		"First page to crawl (inclusive)")
	cmd.Flags().Int("last-page", config.DefaultLastPage,
		"Last page to crawl (inclusive)")
	cmd.Flags().String(config.FlagQueryToken, config.DefaultQueryToken,
		"Value of the index query parameter")
	cmd.Flags().String(config.FlagLinkRoot, config.DefaultLinkRoot,
		"Prefix for relative course links (empty: the page's own host)")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause before each page request after the first")
	cmd.Flags().Int("attempts", config.DefaultAttempts,
		"Attempts per page, including the first")
	cmd.Flags().Duration("retry-wait", config.DefaultRetryWait,
		"Initial wait between attempts")
	cmd.Flags().Duration("retry-max-wait", config.DefaultRetryMaxWait,
		"Maximum wait between attempts")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy, host:port or socks5://[user:pass@]host:port")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Bytes of markup kept per page (0: no limit)")

	// Processing flags
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of pages processed at once")
	cmd.Flags().StringP("strategy", "s", config.DefaultStrategy,
		"Extraction strategy: columns or items")
	cmd.Flags().String("on-error", config.DefaultErrorPolicy,
		"What a failed page does: abort or skip")

	// Output flags
	cmd.Flags().StringP("format", "F", config.DefaultFormat,
		"Dataset format: csv, json or markdown")
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Dataset file path (- for stdout; creates directories if needed)")
	cmd.Flags().Bool("with-summary", false,
		"Wrap JSON output with the crawl metadata and page summaries")

	// Configuration and history
	cmd.Flags().StringP("config", "c", "",
		"Site file path (default: .coursecrawl in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not record the crawl in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cmd.ErrOrStderr())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags and the site file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.SiteURL, err = flags.GetString("site"); err != nil {
		return nil, err
	}
	if cfg.FirstPage, err = flags.GetInt("first-page"); err != nil {
		return nil, err
	}
	if cfg.LastPage, err = flags.GetInt("last-page"); err != nil {
		return nil, err
	}
	if cfg.QueryToken, err = flags.GetString(config.FlagQueryToken); err != nil {
		return nil, err
	}
	if cfg.LinkRoot, err = flags.GetString(config.FlagLinkRoot); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Attempts, err = flags.GetInt("attempts"); err != nil {
		return nil, err
	}
	if cfg.RetryWait, err = flags.GetDuration("retry-wait"); err != nil {
		return nil, err
	}
	if cfg.RetryMaxWait, err = flags.GetDuration("retry-max-wait"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Strategy, err = flags.GetString("strategy"); err != nil {
		return nil, err
	}
	if cfg.OnError, err = flags.GetString("on-error"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.IncludeSummary, err = flags.GetBool("with-summary"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly named site file must exist; otherwise a missing file
	// just means no site settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load site file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.ApplySiteConfig(cfg.SiteConfigs.GetSiteConfig(cfg.Host()), flags.Changed)

	return cfg, nil
}

// newFetcher builds the page fetcher for cfg.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetch.Fetcher, error) {
	opts := []fetch.Option{
		fetch.WithQueryToken(cfg.QueryToken),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRetry(cfg.Attempts, cfg.RetryWait, cfg.RetryMaxWait),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.Cookie != "" {
		opts = append(opts, fetch.WithCookie(cfg.Cookie))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(cfg.Headers))
	}
	if cfg.Proxy != "" {
		opts = append(opts, fetch.WithProxy(cfg.Proxy))
	}
	return fetch.New(cfg.SiteURL, opts...)
}

// runCrawl executes the crawl described by cfg. The dataset goes to
// cfg.OutputFile and a summary to stdout, or to stderr when the dataset
// itself is written to stdout.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	extractor, err := extract.New(cfg.Strategy, cfg.Selectors, extract.WithLinkRoot(cfg.LinkRoot))
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	policy, err := crawler.ParseErrorPolicy(cfg.OnError)
	if err != nil {
		return err
	}

	var (
		db    *database.CrawlDB
		runID int64
	)
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err = db.StartRun(ctx, &database.Run{
			SiteURL:   cfg.SiteURL,
			FirstPage: cfg.FirstPage,
			LastPage:  cfg.LastPage,
			Strategy:  extractor.Name(),
		})
		if err != nil {
			return err
		}
		logger.Info("recording crawl", "run_id", runID, "db", db.Path())
	}

	// Bookkeeping must survive a cancelled crawl.
	dbCtx := context.WithoutCancel(ctx)

	opts := []crawler.Option{
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithErrorPolicy(policy),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithLogger(logger),
	}
	if db != nil {
		opts = append(opts, crawler.WithPageHook(func(page model.PageSummary) {
			if err := db.SavePage(dbCtx, runID, page); err != nil {
				logger.Error("failed to save page", "page", page.Index, "error", err)
			}
		}))
	}

	c := crawler.New(fetcher, extractor, cfg.FirstPage, cfg.LastPage, opts...)
	result, crawlErr := c.Run(ctx)
	result.SiteURL = cfg.SiteURL

	if db != nil {
		if err := saveRun(dbCtx, db, runID, result, crawlErr); err != nil {
			logger.Error("failed to record crawl", "run_id", runID, "error", err)
		}
	}

	summaryOut := stdout
	if cfg.OutputFile == stdoutPath {
		summaryOut = stderr
	}
	if _, err := report.NewSimpleWriter(summaryOut, report.WithVerbose(cfg.Verbose)).Write(result); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	if err := outputDataset(cfg, result, stdout); err != nil {
		return err
	}
	if cfg.OutputFile != stdoutPath {
		fmt.Fprintf(stdout, "Dataset written to %s\n", cfg.OutputFile)
	}
	return nil
}

// saveRun stores the dataset of a successful crawl and closes the run row.
func saveRun(ctx context.Context, db *database.CrawlDB, runID int64, result *model.CrawlResult, crawlErr error) error {
	if crawlErr == nil && result.Dataset != nil {
		if err := db.SaveDataset(ctx, runID, result.Dataset); err != nil {
			return errors.Join(err, db.FinishRun(ctx, runID, nil, err))
		}
	}
	return db.FinishRun(ctx, runID, result.Dataset, crawlErr)
}

// outputDataset writes the dataset in the configured format.
func outputDataset(cfg *config.Config, result *model.CrawlResult, stdout io.Writer) error {
	if cfg.OutputFile == stdoutPath {
		return writeDataset(cfg, result, stdout)
	}

	if dir := filepath.Dir(cfg.OutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	return writeDatasetAndClose(cfg, result, f)
}

// writeDatasetAndClose writes the dataset to wc and closes it. A failed
// close is reported even when the write succeeded.
func writeDatasetAndClose(cfg *config.Config, result *model.CrawlResult, wc io.WriteCloser) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close output file: %w", cerr))
		}
	}()
	return writeDataset(cfg, result, wc)
}

func writeDataset(cfg *config.Config, result *model.CrawlResult, output io.Writer) error {
	w, err := newDatasetWriter(cfg, output)
	if err != nil {
		return err
	}
	if _, err := w.Write(result); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// newDatasetWriter returns the dataset writer for cfg.
func newDatasetWriter(cfg *config.Config, output io.Writer) (report.Writer, error) {
	if cfg.IncludeSummary && cfg.Format == report.FormatJSON {
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithSummary()), nil
	}
	return report.NewWriter(cfg.Format, output)
}
