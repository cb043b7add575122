package extract

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
)

// ErrInvalidSelector is returned when a configured CSS selector does not
// compile.
var ErrInvalidSelector = errors.New("invalid CSS selector")

// Default selectors for the catalog listing markup.
const (
	DefaultItemSelector        = ".ais-InfiniteHits > .ais-InfiniteHits-list > .ais-InfiniteHits-item"
	DefaultLinkSelector        = "a"
	DefaultNameSelector        = ".headline-1-text"
	DefaultProviderSelector    = ".horizontal-box > .partner-name"
	DefaultProductTypeSelector = "div._jen3vs._1d8rgfy3"
	DefaultRatingSelector      = ".ratings-text"
	DefaultRatingCountSelector = ".ratings-count"
	DefaultEnrolledSelector    = ".enrollment-number"
	DefaultDifficultySelector  = ".difficulty"
)

// Selectors holds the CSS selector for each extracted field.
// Link is evaluated inside each Item container; the others are evaluated
// against the whole page by ColumnExtractor and inside each Item container by
// ItemExtractor.
type Selectors struct {
	Item        string `yaml:"item,omitempty"`
	Link        string `yaml:"link,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Provider    string `yaml:"provider,omitempty"`
	ProductType string `yaml:"productType,omitempty"`
	Rating      string `yaml:"rating,omitempty"`
	RatingCount string `yaml:"ratingCount,omitempty"`
	Enrolled    string `yaml:"enrolled,omitempty"`
	Difficulty  string `yaml:"difficulty,omitempty"`
}

// DefaultSelectors returns the selectors matching the catalog's markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:        DefaultItemSelector,
		Link:        DefaultLinkSelector,
		Name:        DefaultNameSelector,
		Provider:    DefaultProviderSelector,
		ProductType: DefaultProductTypeSelector,
		Rating:      DefaultRatingSelector,
		RatingCount: DefaultRatingCountSelector,
		Enrolled:    DefaultEnrolledSelector,
		Difficulty:  DefaultDifficultySelector,
	}
}

// Merge returns s with every empty field taken from fallback.
func (s Selectors) Merge(fallback Selectors) Selectors {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return Selectors{
		Item:        pick(s.Item, fallback.Item),
		Link:        pick(s.Link, fallback.Link),
		Name:        pick(s.Name, fallback.Name),
		Provider:    pick(s.Provider, fallback.Provider),
		ProductType: pick(s.ProductType, fallback.ProductType),
		Rating:      pick(s.Rating, fallback.Rating),
		RatingCount: pick(s.RatingCount, fallback.RatingCount),
		Enrolled:    pick(s.Enrolled, fallback.Enrolled),
		Difficulty:  pick(s.Difficulty, fallback.Difficulty),
	}
}

// compiled holds the parsed form of Selectors.
type compiled struct {
	item        cascadia.Selector
	link        cascadia.Selector
	name        cascadia.Selector
	provider    cascadia.Selector
	productType cascadia.Selector
	rating      cascadia.Selector
	ratingCount cascadia.Selector
	enrolled    cascadia.Selector
	difficulty  cascadia.Selector
}

// compile parses every selector, filling empty ones from the defaults.
func (s Selectors) compile() (*compiled, error) {
	s = s.Merge(DefaultSelectors())

	c := &compiled{}
	fields := []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"item", s.Item, &c.item},
		{"link", s.Link, &c.link},
		{"name", s.Name, &c.name},
		{"provider", s.Provider, &c.provider},
		{"productType", s.ProductType, &c.productType},
		{"rating", s.Rating, &c.rating},
		{"ratingCount", s.RatingCount, &c.ratingCount},
		{"enrolled", s.Enrolled, &c.enrolled},
		{"difficulty", s.Difficulty, &c.difficulty},
	}

	for _, f := range fields {
		sel, err := cascadia.Compile(f.src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidSelector, f.name, f.src, err)
		}
		*f.dst = sel
	}
	return c, nil
}

// Validate reports whether every selector compiles.
func (s Selectors) Validate() error {
	_, err := s.compile()
	return err
}
