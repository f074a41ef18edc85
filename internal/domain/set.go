package domain

import "fmt"

// UnknownColorID is the catalog color used for parts whose color is not known.
// Lines in this color sort after every other color.
const UnknownColorID = 9999

// SetMeta describes a LEGO set as known to the reference catalog or an upstream source.
type SetMeta struct {
	SetNumber string `json:"set_number"`
	Name      string `json:"name"`
	Year      int    `json:"year,omitempty"`
	ThemeID   int    `json:"theme_id,omitempty"`
	ThemeName string `json:"theme_name,omitempty"`
	NumParts  int    `json:"num_parts,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	SetURL    string `json:"set_url"`
}

// SetURL returns the public Rebrickable page for a set number.
func SetURL(setNumber string) string {
	return fmt.Sprintf("https://rebrickable.com/sets/%s/", setNumber)
}

// PlaceholderSet returns the synthetic metadata used when no source knows a set.
func PlaceholderSet(setNumber string) SetMeta {
	return SetMeta{
		SetNumber: setNumber,
		Name:      "Set " + setNumber,
		SetURL:    SetURL(setNumber),
	}
}

// Theme is a catalog theme. ParentID is zero for top-level themes.
type Theme struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID int    `json:"parent_id,omitempty"`
}

// Color is a catalog color.
type Color struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	RGB     string `json:"rgb,omitempty"`
	IsTrans bool   `json:"is_trans"`
}

// Part is a catalog part definition.
type Part struct {
	PartNumber string `json:"part_number"`
	Name       string `json:"name"`
	CategoryID int    `json:"category_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Material   string `json:"material,omitempty"`
}

// MinifigRef is a minifigure contained in a set, with how many copies the set holds.
type MinifigRef struct {
	Number        string `json:"minifig_number"`
	Name          string `json:"minifig_name"`
	QuantityInSet int    `json:"quantity_in_set"`
}

// CatalogStats holds row counts per catalog table.
type CatalogStats map[string]int64

// FetchedSet is a set inventory obtained from an upstream source.
// Parts holds set-level lines only; minifigure parts are listed per single figure.
type FetchedSet struct {
	Set      SetMeta          `json:"set"`
	Parts    []PartLine       `json:"parts"`
	Minifigs []FetchedMinifig `json:"minifigs,omitempty"`
}

// FetchedMinifig is a minifigure of a fetched set with its per-figure parts.
type FetchedMinifig struct {
	MinifigRef
	Parts []PartLine `json:"parts"`
}
