package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	domainerrors "github.com/brickcomplete/brickcomplete-server/internal/errors"
	"github.com/brickcomplete/brickcomplete-server/internal/id"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/normalize"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

// MaxInventoryNameLength is the longest accepted inventory name, in characters.
const MaxInventoryNameLength = 100

// CollectionService manages a user's named inventories and their modifications.
type CollectionService struct {
	store       InventoryStore
	inventories *InventoryService
	catalog     Catalog
	logger      *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(store InventoryStore, inventories *InventoryService, catalog Catalog, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		store:       store,
		inventories: inventories,
		catalog:     catalog,
		logger:      logger,
	}
}

// CreateInventoryRequest describes a new named inventory.
type CreateInventoryRequest struct {
	SetNumber   string
	Name        string
	Description string
	IsPublic    bool
}

// CreateInventory creates a named inventory of a set for the user.
// The set must resolve; a placeholder counts, only an unknown set is rejected.
func (s *CollectionService) CreateInventory(ctx context.Context, userID string, req CreateInventoryRequest) (*domain.UserInventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := cleanName(req.Name)
	if err != nil {
		return nil, err
	}

	result, err := s.inventories.ResolveSet(ctx, req.SetNumber)
	if err != nil {
		return nil, err
	}
	setNumber := result.Set.SetNumber

	inventoryID, err := id.Generate(id.PrefixInventory)
	if err != nil {
		return nil, fmt.Errorf("generate inventory ID: %w", err)
	}

	now := time.Now()
	inv := &domain.UserInventory{
		ID:          inventoryID,
		UserID:      userID,
		SetNumber:   setNumber,
		Name:        name,
		Description: normalize.Description(req.Description),
		IsPublic:    req.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateInventory(ctx, inv); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExistsf("inventory %q already exists for set %s", name, setNumber)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create inventory")
	}

	s.logger.Info("inventory created",
		"inventory_id", inv.ID,
		"user_id", userID,
		"set_number", setNumber,
		"name", name,
	)
	return inv, nil
}

// AddToCollection makes sure the user has the default inventory of a set.
// It reports whether the inventory was created by this call.
func (s *CollectionService) AddToCollection(ctx context.Context, userID, rawSetNumber string) (*domain.UserInventory, bool, error) {
	setNumber, err := cleanSetNumber(rawSetNumber)
	if err != nil {
		return nil, false, err
	}

	if inv, err := s.store.GetInventoryByName(ctx, userID, setNumber, domain.DefaultInventoryName); err == nil {
		return inv, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, domainerrors.Wrap(err, domainerrors.CodeInternal, "lookup default inventory")
	}

	inv, err := s.CreateInventory(ctx, userID, CreateInventoryRequest{
		SetNumber: setNumber,
		Name:      domain.DefaultInventoryName,
	})
	if errors.Is(err, domainerrors.ErrAlreadyExists) {
		// Lost a race with a concurrent add of the same set.
		inv, err = s.store.GetInventoryByName(ctx, userID, setNumber, domain.DefaultInventoryName)
		if err != nil {
			return nil, false, domainerrors.Wrap(err, domainerrors.CodeInternal, "lookup default inventory")
		}
		return inv, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return inv, true, nil
}

// GetInventory returns one of the user's inventories.
func (s *CollectionService) GetInventory(ctx context.Context, userID, inventoryID string) (*domain.UserInventory, error) {
	return ownedInventory(ctx, s.store, userID, inventoryID)
}

// ListInventories returns the user's inventories of one set, oldest first.
func (s *CollectionService) ListInventories(ctx context.Context, userID, rawSetNumber string) ([]*domain.UserInventory, error) {
	setNumber, err := cleanSetNumber(rawSetNumber)
	if err != nil {
		return nil, err
	}
	invs, err := s.store.ListInventoriesForSet(ctx, userID, setNumber)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list inventories")
	}
	return invs, nil
}

// CollectionEntry is one set in a user's collection.
type CollectionEntry struct {
	Set         domain.SetMeta
	Inventories []*domain.UserInventory
}

// ListCollection returns every set the user has an inventory of, ordered by
// set number, with the inventories of each set oldest first.
// Set metadata comes from the catalog, or a placeholder when the catalog lacks the set.
func (s *CollectionService) ListCollection(ctx context.Context, userID string) ([]CollectionEntry, error) {
	invs, err := s.store.ListInventoriesForUser(ctx, userID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list collection")
	}

	entries := []CollectionEntry{}
	for _, inv := range invs {
		if n := len(entries); n > 0 && entries[n-1].Set.SetNumber == inv.SetNumber {
			entries[n-1].Inventories = append(entries[n-1].Inventories, inv)
			continue
		}
		entries = append(entries, CollectionEntry{
			Set:         s.setMeta(ctx, inv.SetNumber),
			Inventories: []*domain.UserInventory{inv},
		})
	}
	return entries, nil
}

func (s *CollectionService) setMeta(ctx context.Context, setNumber string) domain.SetMeta {
	meta, err := s.catalog.LookupSet(ctx, setNumber)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("set lookup failed", "set_number", setNumber, "error", err)
		}
		return domain.PlaceholderSet(setNumber)
	}
	return *meta
}

// UpdateInventoryRequest changes inventory attributes. Nil fields are left as they are.
type UpdateInventoryRequest struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// UpdateInventory renames or re-describes an inventory. The new name is checked for
// uniqueness inside the write.
func (s *CollectionService) UpdateInventory(ctx context.Context, userID, inventoryID string, req UpdateInventoryRequest) (*domain.UserInventory, error) {
	inv, err := ownedInventory(ctx, s.store, userID, inventoryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name, err := cleanName(*req.Name)
		if err != nil {
			return nil, err
		}
		inv.Name = name
	}
	if req.Description != nil {
		inv.Description = normalize.Description(*req.Description)
	}
	if req.IsPublic != nil {
		inv.IsPublic = *req.IsPublic
	}

	if err := s.store.UpdateInventory(ctx, inv); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.AlreadyExistsf("inventory %q already exists for set %s", inv.Name, inv.SetNumber)
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFoundf("inventory %s not found", inventoryID)
		case errors.Is(err, store.ErrConflict):
			return nil, domainerrors.Conflict("inventory was modified concurrently, try again")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "update inventory")
	}

	s.logger.Info("inventory updated", "inventory_id", inv.ID, "user_id", userID, "name", inv.Name)
	return inv, nil
}

// DeleteInventory removes an inventory and all of its modifications.
func (s *CollectionService) DeleteInventory(ctx context.Context, userID, inventoryID string) error {
	if _, err := ownedInventory(ctx, s.store, userID, inventoryID); err != nil {
		return err
	}
	if err := s.store.DeleteInventory(ctx, inventoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("inventory %s not found", inventoryID)
		}
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete inventory")
	}

	s.logger.Info("inventory deleted", "inventory_id", inventoryID, "user_id", userID)
	return nil
}

// GetModifications returns an inventory's stored modifications by encoded key.
func (s *CollectionService) GetModifications(ctx context.Context, userID, inventoryID string) (map[string]int, error) {
	if _, err := ownedInventory(ctx, s.store, userID, inventoryID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListOverrides(ctx, inventoryID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list modifications")
	}
	return modificationsFromRows(rows).Encode(), nil
}

func cleanName(raw string) (string, error) {
	name := normalize.Name(raw)
	if name == "" {
		return "", domainerrors.ValidationWithDetails("validation failed", map[string]string{"name": "is required"})
	}
	if utf8.RuneCountInString(name) > MaxInventoryNameLength {
		return "", domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"name": fmt.Sprintf("must not exceed %d characters", MaxInventoryNameLength),
		})
	}
	return name, nil
}

// canonicalIndex maps each canonical key to its line.
func canonicalIndex(lines []domain.PartLine) map[domain.PartKey]*domain.PartLine {
	idx := make(map[domain.PartKey]*domain.PartLine, len(lines))
	for i := range lines {
		idx[lines[i].Key()] = &lines[i]
	}
	return idx
}

// PartDescriptor supplies display data for a line the canonical inventory lacks.
type PartDescriptor struct {
	PartName  string
	ColorName string
	ImageURL  string
}

// SaveInventoryRequest is a batch save. Exactly one of Quantities (the full
// desired inventory) or Modifications (sparse overrides) must be set.
// Both maps and Descriptors are keyed by encoded part key.
type SaveInventoryRequest struct {
	Quantities    map[string]int
	Modifications map[string]int
	Descriptors   map[string]PartDescriptor
}

// SaveInventory replaces all stored modifications of an inventory and returns
// the persisted override map.
func (s *CollectionService) SaveInventory(ctx context.Context, userID, inventoryID string, req SaveInventoryRequest) (map[string]int, error) {
	if (req.Quantities == nil) == (req.Modifications == nil) {
		return nil, domainerrors.Validation("exactly one of quantities or modifications is required")
	}

	inv, err := ownedInventory(ctx, s.store, userID, inventoryID)
	if err != nil {
		return nil, err
	}

	descriptors, err := decodeDescriptors(req.Descriptors)
	if err != nil {
		return nil, err
	}

	result, err := s.resolveForWrite(ctx, inv.SetNumber)
	if err != nil {
		return nil, err
	}
	canonical := result.Inventory

	var mods inventory.Modifications
	if req.Quantities != nil {
		desired, err := decodeKeys("quantities", req.Quantities)
		if err != nil {
			return nil, err
		}
		lines := make([]domain.PartLine, 0, len(desired))
		for key, mod := range desired {
			lines = append(lines, domain.PartLine{
				PartNumber:    key.PartNumber,
				ColorID:       key.ColorID,
				IsSpare:       key.IsSpare,
				IsMinifigPart: key.IsMinifig,
				Quantity:      mod.Quantity,
			})
		}
		mods = inventory.ComputeModifications(canonical, lines)
	} else {
		sparse, err := decodeKeys("modifications", req.Modifications)
		if err != nil {
			return nil, err
		}
		mods = sparse.Normalize(canonical)
	}

	existing, err := s.store.ListOverrides(ctx, inv.ID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list modifications")
	}
	notes := make(map[domain.PartKey]string, len(existing))
	for i := range existing {
		if existing[i].Notes != "" {
			notes[existing[i].Key()] = existing[i].Notes
		}
	}

	index := canonicalIndex(canonical)
	rows := make([]domain.OverrideRow, 0, len(mods))
	for key, mod := range mods {
		row := s.rowFor(ctx, key, mod.Quantity, index[key], descriptors[key])
		row.Notes = notes[key]
		rows = append(rows, row)
	}

	if err := s.store.ReplaceOverrides(ctx, inv.ID, rows); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("inventory %s not found", inventoryID)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "save modifications")
	}

	s.logger.Info("inventory saved",
		"inventory_id", inv.ID,
		"user_id", userID,
		"modifications", len(rows),
	)
	return mods.Encode(), nil
}

// resolveForWrite resolves the canonical inventory that overrides are diffed
// against. A placeholder has no lines, so diffing against it would drop every
// recorded removal; writes wait until the real inventory is available.
func (s *CollectionService) resolveForWrite(ctx context.Context, setNumber string) (*inventory.Result, error) {
	result, err := s.inventories.ResolveSet(ctx, setNumber)
	if err != nil {
		return nil, err
	}
	if result.Provenance == domain.ProvenancePlaceholder {
		s.logger.Warn("refusing inventory write against placeholder", "set_number", setNumber)
		return nil, domainerrors.UpstreamUnavailablef("inventory for set %s is temporarily unavailable", setNumber)
	}
	return result, nil
}

// EditPartRequest sets the quantity of a single line.
type EditPartRequest struct {
	PartNumber    string
	ColorID       int
	IsSpare       bool
	IsMinifigPart bool
	Quantity      int
	// Notes is free text kept with the override. A line without an override
	// has nowhere to keep notes, so they go away with it.
	Notes string
	PartDescriptor
}

// EditPart stores one override and returns the updated override map.
// Setting a line back to its canonical quantity removes the override, as does
// zeroing a line the set does not contain.
func (s *CollectionService) EditPart(ctx context.Context, userID, inventoryID string, req EditPartRequest) (map[string]int, error) {
	partNumber := normalize.Name(req.PartNumber)
	if partNumber == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"part_number": "is required"})
	}
	if req.Quantity < 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"quantity": "must not be negative"})
	}

	inv, err := ownedInventory(ctx, s.store, userID, inventoryID)
	if err != nil {
		return nil, err
	}

	result, err := s.resolveForWrite(ctx, inv.SetNumber)
	if err != nil {
		return nil, err
	}

	key := domain.PartKey{
		PartNumber: partNumber,
		ColorID:    req.ColorID,
		IsSpare:    req.IsSpare,
		IsMinifig:  req.IsMinifigPart,
	}
	canonical := canonicalIndex(result.Inventory)[key]

	unchanged := req.Quantity == 0
	if canonical != nil {
		unchanged = req.Quantity == canonical.Quantity
	}

	if unchanged {
		err = s.store.DeleteOverride(ctx, inv.ID, key)
	} else {
		row := s.rowFor(ctx, key, req.Quantity, canonical, req.PartDescriptor)
		row.Notes = normalize.Description(req.Notes)
		err = s.store.UpsertOverride(ctx, inv.ID, row)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("inventory %s not found", inventoryID)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "edit part")
	}

	s.logger.Debug("inventory part edited",
		"inventory_id", inv.ID,
		"part_key", key.Encode(),
		"quantity", req.Quantity,
		"reverted", unchanged,
	)
	return s.GetModifications(ctx, userID, inventoryID)
}

// rowFor builds a persisted override. Display fields come from the canonical
// line, then the request, then the catalog, then the key itself.
func (s *CollectionService) rowFor(ctx context.Context, key domain.PartKey, qty int, canonical *domain.PartLine, desc PartDescriptor) domain.OverrideRow {
	row := domain.OverrideRow{
		PartNumber:    key.PartNumber,
		ColorID:       key.ColorID,
		IsSpare:       key.IsSpare,
		IsMinifigPart: key.IsMinifig,
		Quantity:      qty,
	}
	if canonical != nil {
		row.PartName = canonical.PartName
		row.ColorName = canonical.ColorName
		row.ImageURL = canonical.ImageURL
	}

	row.PartName = cmp.Or(row.PartName, normalize.Name(desc.PartName))
	row.ColorName = cmp.Or(row.ColorName, normalize.Name(desc.ColorName))
	row.ImageURL = cmp.Or(row.ImageURL, normalize.Name(desc.ImageURL))

	if row.PartName == "" {
		if part, err := s.catalog.GetPart(ctx, key.PartNumber); err == nil {
			row.PartName = part.Name
		}
	}
	if row.ColorName == "" {
		if color, err := s.catalog.GetColor(ctx, key.ColorID); err == nil {
			row.ColorName = color.Name
		}
	}
	if row.ImageURL == "" {
		if url, err := s.catalog.LookupPartImage(ctx, key.PartNumber, key.ColorID); err == nil {
			row.ImageURL = url
		}
	}

	row.PartName = cmp.Or(row.PartName, key.PartNumber)
	row.ColorName = cmp.Or(row.ColorName, fmt.Sprintf("Color %d", key.ColorID))
	return row
}

func decodeKeys(field string, raw map[string]int) (inventory.Modifications, error) {
	mods, err := inventory.DecodeModifications(raw)
	if err != nil {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{field: err.Error()})
	}
	return mods, nil
}

func decodeDescriptors(raw map[string]PartDescriptor) (map[domain.PartKey]PartDescriptor, error) {
	out := make(map[domain.PartKey]PartDescriptor, len(raw))
	for s, desc := range raw {
		key, err := domain.ParsePartKey(s)
		if err != nil {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"descriptors": err.Error()})
		}
		out[key] = desc
	}
	return out, nil
}
