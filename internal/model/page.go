package model

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"
)

// MaxPageSize is the maximum size of raw markup kept for one page.
// Larger pages are truncated to this size.
const MaxPageSize = 10 * 1024 * 1024 // 10 MB

// CatalogPage is one fetched listing page.
// It is created per fetch and discarded once its fields are extracted.
type CatalogPage struct {
	// Index is the page number that was requested.
	Index int `json:"index"`

	// URL is the full request URL.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response.
	ContentType string `json:"content_type,omitempty"`

	// Markup is the raw response body.
	Markup []byte `json:"-"`

	// Hash is the SHA-256 hash of Markup.
	// Used to spot unchanged pages across runs.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page's markup.
// This should be called after setting the Markup field.
func (p *CatalogPage) ComputeHash() {
	if len(p.Markup) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Markup)
	p.Hash = hex.EncodeToString(hash[:])
}

// ReadMarkup reads at most limit bytes of r into Markup and leaves the
// rest of r unread. A non-positive limit means MaxPageSize.
func (p *CatalogPage) ReadMarkup(r io.Reader, limit int64) error {
	if limit <= 0 {
		limit = MaxPageSize
	}
	markup, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return err
	}
	p.Markup = markup
	return nil
}
