// Package normalize provides utilities for normalizing and sanitizing user input.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SearchText folds a search query or indexed field to a comparable form.
// "Café  Corner" -> "cafe corner".
//
// Accents are decomposed and dropped, letters are lowercased and runs of
// whitespace collapse to a single space.
func SearchText(s string) string {
	s = sanitizeString(s)

	// A fresh chain per call: transform.Chain is stateful.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// SetNumber cleans a set number as typed by a user or found in a URL.
// Surrounding whitespace and control characters are removed; the number itself
// is kept verbatim since catalog keys are case-sensitive ("10001-1", "fig-000001").
func SetNumber(raw string) string {
	return strings.TrimSpace(sanitizeString(raw))
}

// Name trims an inventory name or description.
func Name(raw string) string {
	return strings.TrimSpace(sanitizeString(raw))
}

// sanitizeString removes null bytes and other control characters, which can cause
// issues in keys and JSON bodies.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, s)
}
