package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/metrics"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

// Sentinel errors for resolution.
var (
	// ErrSetNotFound means neither the catalog nor the upstream source knows the set.
	ErrSetNotFound = errors.New("set not found")

	// ErrSourceUnavailable means the upstream source could not answer.
	ErrSourceUnavailable = errors.New("inventory source unavailable")
)

// Catalog is the read side of the reference catalog.
// Lookups report a missing set with store.ErrNotFound and missing rows as empty slices.
type Catalog interface {
	LookupSet(ctx context.Context, setNumber string) (*domain.SetMeta, error)
	LookupSetParts(ctx context.Context, setNumber string) ([]domain.PartLine, error)
	LookupMinifigsInSet(ctx context.Context, setNumber string) ([]domain.MinifigRef, error)
	LookupMinifigParts(ctx context.Context, minifigNumber string) ([]domain.PartLine, error)
}

// CatalogWriter records inventories discovered upstream so later lookups hit the catalog.
// Implementations must be idempotent for repeated and concurrent calls with the same set.
type CatalogWriter interface {
	PersistFetchedSet(ctx context.Context, set *domain.FetchedSet) error
}

// Source fetches a set inventory from outside the catalog.
// It returns ErrSetNotFound when the set does not exist and ErrSourceUnavailable
// (possibly wrapped) when it cannot answer.
type Source interface {
	FetchSetInventory(ctx context.Context, setNumber string) (*domain.FetchedSet, error)
}

// Result is a resolved set inventory tagged with where it came from.
type Result struct {
	Set        domain.SetMeta
	Inventory  []domain.PartLine
	Provenance domain.Provenance
}

// Resolver builds canonical set inventories from the catalog, falling back to an
// upstream source and finally to a placeholder.
type Resolver struct {
	catalog Catalog
	writer  CatalogWriter
	source  Source
	logger  *slog.Logger
}

// NewResolver creates a resolver. writer and source may be nil: without a writer
// fetched sets are not recorded, without a source every catalog miss yields a placeholder.
func NewResolver(catalog Catalog, writer CatalogWriter, source Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		catalog: catalog,
		writer:  writer,
		source:  source,
		logger:  logger,
	}
}

// Resolve returns the canonical inventory for a set.
//
// A catalog hit requires both the set and at least one set-level part. Otherwise the
// upstream source is asked; a successful fetch is normalized and persisted on a
// best-effort basis. When the source is unavailable the caller still receives a
// well-formed placeholder. ErrSetNotFound is returned only when the catalog has no
// record of the set and the source confirms it does not exist.
func (r *Resolver) Resolve(ctx context.Context, setNumber string) (*Result, error) {
	set, err := r.catalog.LookupSet(ctx, setNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup set %s: %w", setNumber, err)
	}

	if set != nil {
		lines, err := r.fromCatalog(ctx, setNumber)
		if err != nil {
			return nil, err
		}
		if lines != nil {
			return &Result{Set: *set, Inventory: lines, Provenance: domain.ProvenanceCatalog}, nil
		}
	}

	return r.fallback(ctx, setNumber, set)
}

// fromCatalog returns nil when the catalog has no set-level parts for the set.
func (r *Resolver) fromCatalog(ctx context.Context, setNumber string) ([]domain.PartLine, error) {
	parts, err := r.catalog.LookupSetParts(ctx, setNumber)
	if err != nil {
		return nil, fmt.Errorf("lookup parts of %s: %w", setNumber, err)
	}
	if len(parts) == 0 {
		return nil, nil
	}

	figs, err := r.catalog.LookupMinifigsInSet(ctx, setNumber)
	if err != nil {
		return nil, fmt.Errorf("lookup minifigs of %s: %w", setNumber, err)
	}

	records := parts
	for _, fig := range figs {
		figParts, err := r.catalog.LookupMinifigParts(ctx, fig.Number)
		if err != nil {
			return nil, fmt.Errorf("lookup parts of minifig %s: %w", fig.Number, err)
		}
		records = append(records, ExpandMinifig(fig, figParts)...)
	}

	return Aggregate(records), nil
}

func (r *Resolver) fallback(ctx context.Context, setNumber string, known *domain.SetMeta) (*Result, error) {
	if r.source == nil {
		return r.placeholder(setNumber, known), nil
	}

	fetched, err := r.source.FetchSetInventory(ctx, setNumber)
	switch {
	case errors.Is(err, ErrSetNotFound) && known == nil:
		return nil, fmt.Errorf("%w: %s", ErrSetNotFound, setNumber)
	case err != nil:
		r.logger.Warn("inventory source failed, using placeholder",
			"set_number", setNumber,
			"error", err,
		)
		return r.placeholder(setNumber, known), nil
	}

	set := fetched.Set
	if set.SetNumber == "" {
		set.SetNumber = setNumber
	}
	if set.SetURL == "" {
		set.SetURL = domain.SetURL(set.SetNumber)
	}
	if set.Name == "" && known != nil {
		set.Name = known.Name
	}
	fetched.Set = set

	lines := Aggregate(expandFetched(fetched))
	r.persist(ctx, normalizeFetched(fetched))

	return &Result{Set: set, Inventory: lines, Provenance: domain.ProvenanceFallback}, nil
}

// persist records a fetched set in the catalog. Failures are logged and counted,
// never returned: the caller already has its inventory.
func (r *Resolver) persist(ctx context.Context, fetched *domain.FetchedSet) {
	if r.writer == nil {
		return
	}

	err := r.writer.PersistFetchedSet(ctx, fetched)
	if err == nil || errors.Is(err, store.ErrAlreadyExists) {
		return
	}

	metrics.FallbackPersistFailures.Inc()
	r.logger.Warn("failed to persist fetched set",
		"set_number", fetched.Set.SetNumber,
		"error", err,
	)
}

func (r *Resolver) placeholder(setNumber string, known *domain.SetMeta) *Result {
	set := domain.PlaceholderSet(setNumber)
	if known != nil {
		set = *known
	}
	return &Result{
		Set:        set,
		Inventory:  []domain.PartLine{},
		Provenance: domain.ProvenancePlaceholder,
	}
}
