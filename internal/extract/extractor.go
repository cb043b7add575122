package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/coursecrawl/internal/model"
)

// ErrNoPage is returned when Extract is called without a page.
var ErrNoPage = errors.New("no page to extract from")

// Extractor produces the raw column sequences of one page.
type Extractor interface {
	// Extract reads the page markup and returns one sequence per column.
	// Field parse failures become model.Missing and are not errors.
	Extract(ctx context.Context, page *model.CatalogPage) (model.ColumnSet, error)

	// Name returns the extraction strategy name.
	Name() string
}

// Option configures an extractor.
type Option func(*options)

type options struct {
	linkRoot string
}

// WithLinkRoot sets the root prepended to relative item links.
// When unset, the scheme and host of the page URL are used.
func WithLinkRoot(root string) Option {
	return func(o *options) {
		o.linkRoot = strings.TrimSuffix(root, "/")
	}
}

// parseDocument parses the page markup with x/net/html and wraps it for
// selection.
func parseDocument(page *model.CatalogPage) (*goquery.Document, error) {
	if page == nil {
		return nil, ErrNoPage
	}
	root, err := html.Parse(bytes.NewReader(page.Markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %d: %w", page.Index, err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// linkRootFor returns the configured link root, falling back to the page
// origin.
func (o *options) linkRootFor(page *model.CatalogPage) string {
	if o.linkRoot != "" {
		return o.linkRoot
	}
	u, err := url.Parse(page.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// linkValue builds the course URL from the first link inside container.
// Absolute hrefs are kept as they are.
func linkValue(container *goquery.Selection, link goquery.Matcher, root string) model.Value {
	href, ok := container.FindMatcher(link).First().Attr("href")
	if !ok {
		return model.Missing()
	}
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return model.Text(href)
	}
	return model.Text(root + href)
}

// ColumnExtractor extracts each column with its own selector pass over the
// whole page.
type ColumnExtractor struct {
	sel  *compiled
	opts options
}

// NewColumnExtractor creates a ColumnExtractor. Empty selectors fall back to
// the defaults.
func NewColumnExtractor(sel Selectors, opts ...Option) (*ColumnExtractor, error) {
	c, err := sel.compile()
	if err != nil {
		return nil, err
	}
	e := &ColumnExtractor{sel: c}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e, nil
}

// Name returns "columns".
func (e *ColumnExtractor) Name() string {
	return StrategyColumns
}

// Extract runs the eight selector passes over the page.
func (e *ColumnExtractor) Extract(ctx context.Context, page *model.CatalogPage) (model.ColumnSet, error) {
	var cs model.ColumnSet

	doc, err := parseDocument(page)
	if err != nil {
		return cs, err
	}
	if err := ctx.Err(); err != nil {
		return cs, err
	}

	root := e.opts.linkRootFor(page)

	each := func(m goquery.Matcher, c model.Column, parse func(string) model.Value) {
		doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
			cs.Add(c, parse(s.Text()))
		})
	}

	each(e.sel.name, model.ColumnName, ParseText)
	each(e.sel.provider, model.ColumnProvider, ParseText)
	doc.FindMatcher(e.sel.item).Each(func(_ int, s *goquery.Selection) {
		cs.Add(model.ColumnURL, linkValue(s, e.sel.link, root))
	})
	each(e.sel.productType, model.ColumnProductType, ParseText)
	each(e.sel.rating, model.ColumnRating, ParseRating)
	each(e.sel.ratingCount, model.ColumnRatedBy, ParseRatingCount)
	each(e.sel.enrolled, model.ColumnEnrolled, ParseOptionalText)
	each(e.sel.difficulty, model.ColumnDifficulty, ParseText)

	return cs, nil
}

// ItemExtractor extracts all columns from within each listing item.
type ItemExtractor struct {
	sel  *compiled
	opts options
}

// NewItemExtractor creates an ItemExtractor. Empty selectors fall back to
// the defaults.
func NewItemExtractor(sel Selectors, opts ...Option) (*ItemExtractor, error) {
	c, err := sel.compile()
	if err != nil {
		return nil, err
	}
	e := &ItemExtractor{sel: c}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e, nil
}

// Name returns "items".
func (e *ItemExtractor) Name() string {
	return StrategyItems
}

// Extract reads one record per item container. A field absent from a
// container is Missing.
func (e *ItemExtractor) Extract(ctx context.Context, page *model.CatalogPage) (model.ColumnSet, error) {
	var cs model.ColumnSet

	doc, err := parseDocument(page)
	if err != nil {
		return cs, err
	}
	if err := ctx.Err(); err != nil {
		return cs, err
	}

	root := e.opts.linkRootFor(page)

	field := func(item *goquery.Selection, m goquery.Matcher, parse func(string) model.Value) model.Value {
		s := item.FindMatcher(m).First()
		if s.Length() == 0 {
			return model.Missing()
		}
		return parse(s.Text())
	}

	doc.FindMatcher(e.sel.item).Each(func(_ int, item *goquery.Selection) {
		cs.Add(model.ColumnURL, linkValue(item, e.sel.link, root))
		cs.Add(model.ColumnName, field(item, e.sel.name, ParseText))
		cs.Add(model.ColumnProductType, field(item, e.sel.productType, ParseText))
		cs.Add(model.ColumnProvider, field(item, e.sel.provider, ParseText))
		cs.Add(model.ColumnRating, field(item, e.sel.rating, ParseRating))
		cs.Add(model.ColumnRatedBy, field(item, e.sel.ratingCount, ParseRatingCount))
		cs.Add(model.ColumnEnrolled, field(item, e.sel.enrolled, ParseOptionalText))
		cs.Add(model.ColumnDifficulty, field(item, e.sel.difficulty, ParseText))
	})

	return cs, nil
}

// Strategy names accepted by New.
const (
	StrategyColumns = "columns"
	StrategyItems   = "items"
)

// ErrUnknownStrategy is returned by New for an unsupported strategy name.
var ErrUnknownStrategy = errors.New("unknown extraction strategy")

// New returns the extractor for the named strategy.
func New(strategy string, sel Selectors, opts ...Option) (Extractor, error) {
	switch strategy {
	case StrategyColumns, "":
		e, err := NewColumnExtractor(sel, opts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	case StrategyItems:
		e, err := NewItemExtractor(sel, opts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}
