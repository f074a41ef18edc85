package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	domainerrors "github.com/brickcomplete/brickcomplete-server/internal/errors"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/metrics"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = time.Hour
)

// Resolver builds canonical set inventories.
type Resolver interface {
	Resolve(ctx context.Context, setNumber string) (*inventory.Result, error)
}

// CacheOptions sizes the resolution cache.
type CacheOptions struct {
	Size int
	TTL  time.Duration
}

// InventoryService resolves canonical set inventories and combines them with
// a user's stored modifications.
type InventoryService struct {
	resolver Resolver
	store    InventoryStore
	cache    *resolutionCache
	logger   *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(resolver Resolver, store InventoryStore, opts CacheOptions, logger *slog.Logger) *InventoryService {
	if opts.Size <= 0 {
		opts.Size = defaultCacheSize
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultCacheTTL
	}
	return &InventoryService{
		resolver: resolver,
		store:    store,
		cache:    newResolutionCache(opts.Size, opts.TTL),
		logger:   logger,
	}
}

// ResolveSet returns the canonical inventory of a set.
//
// Catalog and fallback results are cached; placeholders are not, so a set whose
// upstream was briefly unavailable resolves properly on the next request.
// The returned result is shared and must not be modified.
func (s *InventoryService) ResolveSet(ctx context.Context, rawSetNumber string) (*inventory.Result, error) {
	setNumber, err := cleanSetNumber(rawSetNumber)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(setNumber); ok {
		metrics.ResolutionCacheHits.Inc()
		return cached, nil
	}

	result, err := s.resolver.Resolve(ctx, setNumber)
	if errors.Is(err, inventory.ErrSetNotFound) {
		return nil, domainerrors.NotFoundf("set %s not found", setNumber)
	}
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInternal, "resolve set %s", setNumber)
	}

	metrics.ResolutionsTotal.WithLabelValues(string(result.Provenance)).Inc()

	if result.Provenance != domain.ProvenancePlaceholder {
		s.cache.Set(setNumber, result)
	}

	s.logger.Debug("set resolved",
		"set_number", setNumber,
		"provenance", result.Provenance,
		"lines", len(result.Inventory),
	)
	return result, nil
}

// Purge drops every cached resolution, e.g. after the catalog was reloaded.
func (s *InventoryService) Purge() {
	s.cache.Purge()
}

// Effective is a user inventory rendered against its set's canonical inventory.
type Effective struct {
	Inventory     *domain.UserInventory
	Resolution    *inventory.Result
	Lines         []domain.PartLine
	Modifications map[string]int
}

// EffectiveInventory applies an inventory's stored modifications to the
// canonical inventory of its set.
func (s *InventoryService) EffectiveInventory(ctx context.Context, userID, inventoryID string) (*Effective, error) {
	inv, err := ownedInventory(ctx, s.store, userID, inventoryID)
	if err != nil {
		return nil, err
	}

	result, err := s.ResolveSet(ctx, inv.SetNumber)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListOverrides(ctx, inv.ID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list modifications")
	}
	mods := modificationsFromRows(rows)

	lines := inventory.ApplyModifications(result.Inventory, mods)
	for i := range lines {
		if mod, ok := mods[lines[i].Key()]; ok && mod.Line != nil {
			lines[i].Notes = mod.Line.Notes
		}
	}

	return &Effective{
		Inventory:     inv,
		Resolution:    result,
		Lines:         lines,
		Modifications: mods.Encode(),
	}, nil
}
