package domain

import "time"

// DefaultInventoryName is the inventory created by the quick add-to-collection path.
const DefaultInventoryName = "Default"

// UserInventory is a user's named personalization of one set's inventory.
// (UserID, SetNumber, Name) is unique.
type UserInventory struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SetNumber   string    `json:"set_number"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (u *UserInventory) Touch() {
	u.UpdatedAt = time.Now()
}

// OverrideRow is a persisted modification of one inventory line,
// with enough descriptive data to render it without a catalog lookup.
type OverrideRow struct {
	PartNumber    string    `json:"part_number"`
	ColorID       int       `json:"color_id"`
	IsSpare       bool      `json:"is_spare"`
	IsMinifigPart bool      `json:"is_minifig_part"`
	Quantity      int       `json:"quantity"`
	PartName      string    `json:"part_name,omitempty"`
	ColorName     string    `json:"color_name,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the identity key of the overridden line.
func (r *OverrideRow) Key() PartKey {
	return PartKey{
		PartNumber: r.PartNumber,
		ColorID:    r.ColorID,
		IsSpare:    r.IsSpare,
		IsMinifig:  r.IsMinifigPart,
	}
}

// Provenance records where a resolved inventory came from.
type Provenance string

// Provenance values.
const (
	ProvenanceCatalog     Provenance = "catalog"
	ProvenanceFallback    Provenance = "fallback"
	ProvenancePlaceholder Provenance = "placeholder"
)
