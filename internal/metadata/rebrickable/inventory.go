package rebrickable

import (
	"context"
	"errors"
	"fmt"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
)

// FetchSetInventory collects a set's metadata, set-level parts and minifigures
// with their per-figure parts.
// The theme name is looked up best-effort; a failure leaves it empty.
func (c *Client) FetchSetInventory(ctx context.Context, setNumber string) (*domain.FetchedSet, error) {
	set, err := c.GetSet(ctx, setNumber)
	if err != nil {
		return nil, err
	}

	meta := set.Meta()
	if set.ThemeID != 0 {
		theme, err := c.GetTheme(ctx, set.ThemeID)
		if err != nil {
			c.logger.Debug("theme lookup failed", "theme_id", set.ThemeID, "error", err)
		} else {
			meta.ThemeName = theme.Name
		}
	}

	// The set exists, so a 404 on a list endpoint means an empty list
	parts, err := c.GetSetParts(ctx, setNumber)
	if err = ignoreNotFound(err); err != nil {
		return nil, err
	}

	figs, err := c.GetSetMinifigs(ctx, setNumber)
	if err = ignoreNotFound(err); err != nil {
		return nil, err
	}

	fetched := &domain.FetchedSet{
		Set:      meta,
		Parts:    partLines(parts),
		Minifigs: make([]domain.FetchedMinifig, 0, len(figs)),
	}
	for _, fig := range figs {
		figParts, err := c.GetMinifigParts(ctx, fig.Number)
		if err = ignoreNotFound(err); err != nil {
			return nil, err
		}
		fetched.Minifigs = append(fetched.Minifigs, domain.FetchedMinifig{
			MinifigRef: domain.MinifigRef{
				Number:        fig.Number,
				Name:          fig.Name,
				QuantityInSet: fig.Quantity,
			},
			Parts: partLines(figParts),
		})
	}

	c.logger.Info("fetched set inventory from rebrickable",
		"set_number", setNumber,
		"parts", len(fetched.Parts),
		"minifigs", len(fetched.Minifigs),
	)
	return fetched, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Meta converts the API set to catalog metadata.
func (s *Set) Meta() domain.SetMeta {
	setURL := s.URL
	if setURL == "" {
		setURL = domain.SetURL(s.SetNumber)
	}
	return domain.SetMeta{
		SetNumber: s.SetNumber,
		Name:      s.Name,
		Year:      s.Year,
		ThemeID:   s.ThemeID,
		NumParts:  s.NumParts,
		ImageURL:  s.ImageURL,
		SetURL:    setURL,
	}
}

// Line converts an API inventory line to a part line.
func (p *InventoryPart) Line() domain.PartLine {
	return domain.PartLine{
		PartNumber: p.Part.PartNumber,
		PartName:   p.Part.Name,
		ColorID:    p.Color.ID,
		ColorName:  p.Color.Name,
		ColorRGB:   p.Color.RGB,
		Quantity:   p.Quantity,
		IsSpare:    p.IsSpare,
		ImageURL:   p.Part.ImageURL,
	}
}

func partLines(parts []InventoryPart) []domain.PartLine {
	lines := make([]domain.PartLine, 0, len(parts))
	for i := range parts {
		lines = append(lines, parts[i].Line())
	}
	return lines
}

// SourceAdapter exposes the client as an inventory source.
type SourceAdapter struct {
	client *Client
}

// NewSourceAdapter wraps a client.
func NewSourceAdapter(client *Client) *SourceAdapter {
	return &SourceAdapter{client: client}
}

// FetchSetInventory maps client errors onto the inventory source contract:
// a 404 means the set does not exist, anything else means the source could not answer.
func (a *SourceAdapter) FetchSetInventory(ctx context.Context, setNumber string) (*domain.FetchedSet, error) {
	fetched, err := a.client.FetchSetInventory(ctx, setNumber)
	switch {
	case err == nil:
		return fetched, nil
	case errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("%w: %w", inventory.ErrSetNotFound, err)
	default:
		return nil, fmt.Errorf("%w: %w", inventory.ErrSourceUnavailable, err)
	}
}
