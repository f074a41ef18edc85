// Package search provides full-text search over catalog sets using Bleve.
// Set names are matched with English stemming, accent folding, fuzzy and prefix
// matching; set numbers are matched by prefix.
package search

import (
	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/normalize"
)

// SetDocument is the indexed form of a catalog set.
// The document ID is the set number.
type SetDocument struct {
	SetNumber string `json:"set_number"`
	Name      string `json:"name"`

	// Folded copies of the text fields, so "cafe" finds "Café Corner".
	SearchName  string `json:"search_name"`
	SearchTheme string `json:"search_theme,omitempty"`

	ThemeID   int    `json:"theme_id,omitempty"`
	ThemeName string `json:"theme_name,omitempty"`
	Year      int    `json:"year,omitempty"`
	NumParts  int    `json:"num_parts,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// ToMap converts the document to a map with the field names used by the mapping.
func (d *SetDocument) ToMap() map[string]any {
	m := map[string]any{
		"set_number":  d.SetNumber,
		"name":        d.Name,
		"search_name": d.SearchName,
	}

	// Optional fields - only add if non-empty
	if d.SearchTheme != "" {
		m["search_theme"] = d.SearchTheme
	}
	if d.ThemeName != "" {
		m["theme_name"] = d.ThemeName
	}
	if d.ImageURL != "" {
		m["image_url"] = d.ImageURL
	}
	if d.ThemeID > 0 {
		m["theme_id"] = d.ThemeID
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}
	if d.NumParts > 0 {
		m["num_parts"] = d.NumParts
	}

	return m
}

// SetToDocument converts catalog set metadata to a SetDocument.
func SetToDocument(set *domain.SetMeta) *SetDocument {
	return &SetDocument{
		SetNumber:   set.SetNumber,
		Name:        set.Name,
		SearchName:  normalize.SearchText(set.Name),
		SearchTheme: normalize.SearchText(set.ThemeName),
		ThemeID:     set.ThemeID,
		ThemeName:   set.ThemeName,
		Year:        set.Year,
		NumParts:    set.NumParts,
		ImageURL:    set.ImageURL,
	}
}
