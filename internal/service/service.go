// Package service holds the business logic between the HTTP API and the stores:
// inventory resolution, personalized user inventories, catalog search and
// building instructions.
package service

import (
	"context"
	"errors"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	domainerrors "github.com/brickcomplete/brickcomplete-server/internal/errors"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/normalize"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
	"github.com/brickcomplete/brickcomplete-server/internal/validation"
)

// Catalog is the read side of the reference catalog used by services.
type Catalog interface {
	inventory.Catalog

	LookupPartImage(ctx context.Context, partNumber string, colorID int) (string, error)
	SearchSets(ctx context.Context, text string, limit int) ([]domain.SetMeta, error)
	SuggestSetNumbers(ctx context.Context, prefix string, limit int) ([]domain.SetMeta, error)
	ListSets(ctx context.Context) ([]domain.SetMeta, error)
	GetPart(ctx context.Context, partNumber string) (*domain.Part, error)
	GetColor(ctx context.Context, colorID int) (*domain.Color, error)
	Stats(ctx context.Context) (domain.CatalogStats, error)
}

// InventoryStore persists user inventories and their override rows.
type InventoryStore interface {
	CreateInventory(ctx context.Context, inv *domain.UserInventory) error
	GetInventory(ctx context.Context, id string) (*domain.UserInventory, error)
	GetInventoryByName(ctx context.Context, userID, setNumber, name string) (*domain.UserInventory, error)
	UpdateInventory(ctx context.Context, inv *domain.UserInventory) error
	DeleteInventory(ctx context.Context, id string) error
	ListInventoriesForSet(ctx context.Context, userID, setNumber string) ([]*domain.UserInventory, error)
	ListInventoriesForUser(ctx context.Context, userID string) ([]*domain.UserInventory, error)

	ListOverrides(ctx context.Context, inventoryID string) ([]domain.OverrideRow, error)
	ReplaceOverrides(ctx context.Context, inventoryID string, rows []domain.OverrideRow) error
	UpsertOverride(ctx context.Context, inventoryID string, row domain.OverrideRow) error
	DeleteOverride(ctx context.Context, inventoryID string, key domain.PartKey) error
}

// cleanSetNumber trims a set number and rejects malformed ones.
func cleanSetNumber(raw string) (string, error) {
	setNumber := normalize.SetNumber(raw)
	if setNumber == "" {
		return "", domainerrors.Validation("set number is required")
	}
	if !validation.IsSetNumber(setNumber) {
		return "", domainerrors.Validationf("invalid set number %q", setNumber)
	}
	return setNumber, nil
}

// ownedInventory loads an inventory and hides other users' inventories behind NotFound.
func ownedInventory(ctx context.Context, s InventoryStore, userID, inventoryID string) (*domain.UserInventory, error) {
	inv, err := s.GetInventory(ctx, inventoryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("inventory %s not found", inventoryID)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load inventory")
	}
	if inv.UserID != userID {
		return nil, domainerrors.NotFoundf("inventory %s not found", inventoryID)
	}
	return inv, nil
}

// modificationsFromRows rebuilds the override map from stored rows,
// keeping the stored descriptors for lines the canonical inventory lacks.
func modificationsFromRows(rows []domain.OverrideRow) inventory.Modifications {
	mods := make(inventory.Modifications, len(rows))
	for i := range rows {
		row := rows[i]
		mods[row.Key()] = inventory.Modification{
			Quantity: row.Quantity,
			Line: &domain.PartLine{
				PartNumber:    row.PartNumber,
				PartName:      row.PartName,
				ColorID:       row.ColorID,
				ColorName:     row.ColorName,
				IsSpare:       row.IsSpare,
				IsMinifigPart: row.IsMinifigPart,
				ImageURL:      row.ImageURL,
				Notes:         row.Notes,
			},
		}
	}
	return mods
}
