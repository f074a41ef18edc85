package domain

// PartLine is one row of a set inventory.
type PartLine struct {
	PartNumber    string `json:"part_number"`
	PartName      string `json:"part_name"`
	ColorID       int    `json:"color_id"`
	ColorName     string `json:"color_name"`
	ColorRGB      string `json:"color_rgb,omitempty"`
	Quantity      int    `json:"quantity"`
	IsSpare       bool   `json:"is_spare"`
	IsMinifigPart bool   `json:"is_minifig_part"`
	ImageURL      string `json:"image_url,omitempty"`
	Category      string `json:"category,omitempty"`
	Notes         string `json:"notes,omitempty"` // from the user's override, never from the catalog

	// MinifigSources lists the minifigures that contributed to Quantity, in encounter order.
	MinifigSources []MinifigSource `json:"minifig_sources,omitempty"`
}

// Key returns the identity key of the line.
func (l *PartLine) Key() PartKey {
	return PartKey{
		PartNumber: l.PartNumber,
		ColorID:    l.ColorID,
		IsSpare:    l.IsSpare,
		IsMinifig:  l.IsMinifigPart,
	}
}

// Clone returns a deep copy of the line.
func (l PartLine) Clone() PartLine {
	if l.MinifigSources != nil {
		l.MinifigSources = append([]MinifigSource(nil), l.MinifigSources...)
	}
	return l
}

// MinifigSource attributes part demand to one minifigure.
// Quantity is the scaled contribution: QuantityInSet copies of the figure,
// each needing PerFigure of the part.
type MinifigSource struct {
	MinifigNumber string `json:"minifig_number"`
	MinifigName   string `json:"minifig_name"`
	Quantity      int    `json:"quantity"`
	QuantityInSet int    `json:"quantity_in_set"`
	PerFigure     int    `json:"per_figure"`
}
