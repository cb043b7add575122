package extract

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/coursecrawl/internal/model"
)

// countReplacer strips the thousands separators and parentheses around
// rating counts, e.g. "(1,234)".
var countReplacer = strings.NewReplacer(",", "", "(", "", ")", "")

// CleanText trims s, collapses runs of whitespace to a single space and
// returns the NFC normalized result.
func CleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// ParseText returns s cleaned as a text value. Empty text is kept.
func ParseText(s string) model.Value {
	return model.Text(CleanText(s))
}

// ParseOptionalText returns s cleaned as a text value, or Missing when
// nothing is left after cleaning.
func ParseOptionalText(s string) model.Value {
	s = CleanText(s)
	if s == "" {
		return model.Missing()
	}
	return model.Text(s)
}

// ParseRating parses a star rating such as "4.8".
// Anything that is not a finite number, "N/A" included, yields Missing.
func ParseRating(s string) model.Value {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Missing()
	}
	return model.Float(f)
}

// ParseRatingCount parses a rating count such as "(1,234)" into 1234.
func ParseRatingCount(s string) model.Value {
	n, err := strconv.ParseInt(strings.TrimSpace(countReplacer.Replace(s)), 10, 64)
	if err != nil {
		return model.Missing()
	}
	return model.Int(n)
}
