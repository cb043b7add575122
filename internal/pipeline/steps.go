package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/coursecrawl/internal/extract"
	"github.com/nao1215/coursecrawl/internal/model"
)

// Step names, in execution order.
const (
	StepFetch   = "fetch"
	StepExtract = "extract"
	StepAlign   = "align"
)

// ErrNoPage is returned by steps that need a fetched page when there is
// none.
var ErrNoPage = errors.New("page not fetched")

// Fetcher retrieves one listing page.
type Fetcher interface {
	// PageURL returns the URL requested for page i.
	PageURL(i int) string

	// Fetch retrieves page i.
	Fetch(ctx context.Context, i int) (*model.CatalogPage, error)
}

// FetchStep retrieves the page markup.
type FetchStep struct {
	fetcher Fetcher
}

// NewFetchStep creates a FetchStep.
func NewFetchStep(fetcher Fetcher) *FetchStep {
	return &FetchStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return StepFetch
}

// Do fetches result.Index and stores the page.
func (s *FetchStep) Do(ctx context.Context, result *model.PageResult) error {
	result.URL = s.fetcher.PageURL(result.Index)
	page, err := s.fetcher.Fetch(ctx, result.Index)
	if err != nil {
		return err
	}
	result.Page = page
	return nil
}

// ExtractStep reads the raw column sequences from the fetched page.
type ExtractStep struct {
	extractor extract.Extractor
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(extractor extract.Extractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do extracts the page columns into result.Raw.
func (s *ExtractStep) Do(ctx context.Context, result *model.PageResult) error {
	if result.Page == nil {
		return ErrNoPage
	}
	cs, err := s.extractor.Extract(ctx, result.Page)
	if err != nil {
		return err
	}
	result.Raw = cs
	// The markup is no longer needed once the fields are read.
	result.Page.Markup = nil
	return nil
}

// AlignStep truncates the raw columns to equal length.
type AlignStep struct {
	logger *slog.Logger
}

// NewAlignStep creates an AlignStep.
func NewAlignStep(logger *slog.Logger) *AlignStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlignStep{logger: logger}
}

// Name returns the step name.
func (s *AlignStep) Name() string {
	return StepAlign
}

// Do aligns result.Raw into result.Aligned and records dropped cells.
func (s *AlignStep) Do(_ context.Context, result *model.PageResult) error {
	result.Aligned, result.Dropped = extract.Align(result.Raw)
	if n := result.DroppedTotal(); n > 0 {
		s.logger.Debug("dropped unaligned cells",
			"page", result.Index,
			"dropped", n,
			"raw_counts", result.Raw.Lens(),
			"records", result.Records(),
		)
	}
	return nil
}

// NewPagePipeline builds the fetch, extract and align pipeline for one
// page.
func NewPagePipeline(fetcher Fetcher, extractor extract.Extractor, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewFetchStep(fetcher),
		NewExtractStep(extractor),
		NewAlignStep(p.logger),
	)
	return p
}
