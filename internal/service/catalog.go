package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	domainerrors "github.com/brickcomplete/brickcomplete-server/internal/errors"
	"github.com/brickcomplete/brickcomplete-server/internal/normalize"
	"github.com/brickcomplete/brickcomplete-server/internal/search"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

// Search limits.
const (
	DefaultSearchLimit     = 20
	MaxSearchLimit         = 100
	DefaultSuggestionLimit = 10
	MinSuggestionPrefix    = 2
)

// SetIndex is the full-text index over catalog sets.
type SetIndex interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
	DocumentCount() (uint64, error)
	Reindex(ctx context.Context, sets []domain.SetMeta) error
}

// CatalogService answers read-only questions about the reference catalog.
type CatalogService struct {
	catalog Catalog
	index   SetIndex
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service. index may be nil, in which
// case searches always use the catalog's own text matching.
func NewCatalogService(catalog Catalog, index SetIndex, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		index:   index,
		logger:  logger,
	}
}

// SearchSets finds sets by number, name or theme.
// The search index is used once it holds documents; until then the catalog
// is matched with LIKE.
func (s *CatalogService) SearchSets(ctx context.Context, q string, limit int) ([]domain.SetMeta, error) {
	q = normalize.Name(q)
	if q == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"q": "is required"})
	}
	limit = clampLimit(limit, DefaultSearchLimit, MaxSearchLimit)

	if s.indexReady() {
		params := search.DefaultSearchParams()
		params.Query = q
		params.Limit = limit

		result, err := s.index.Search(ctx, params)
		if err == nil {
			sets := make([]domain.SetMeta, 0, len(result.Hits))
			for i := range result.Hits {
				sets = append(sets, result.Hits[i].Meta())
			}
			return sets, nil
		}
		s.logger.Warn("search index query failed, using catalog", "query", q, "error", err)
	}

	sets, err := s.catalog.SearchSets(ctx, q, limit)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search sets")
	}
	return sets, nil
}

func (s *CatalogService) indexReady() bool {
	if s.index == nil {
		return false
	}
	n, err := s.index.DocumentCount()
	return err == nil && n > 0
}

// SuggestSetNumbers autocompletes a set number prefix.
func (s *CatalogService) SuggestSetNumbers(ctx context.Context, prefix string, limit int) ([]domain.SetMeta, error) {
	prefix = normalize.SetNumber(prefix)
	if len([]rune(prefix)) < MinSuggestionPrefix {
		return []domain.SetMeta{}, nil
	}
	limit = clampLimit(limit, DefaultSuggestionLimit, MaxSearchLimit)

	sets, err := s.catalog.SuggestSetNumbers(ctx, prefix, limit)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "suggest set numbers")
	}
	return sets, nil
}

// Part returns a catalog part.
func (s *CatalogService) Part(ctx context.Context, partNumber string) (*domain.Part, error) {
	partNumber = normalize.Name(partNumber)
	if partNumber == "" {
		return nil, domainerrors.Validation("part number is required")
	}
	part, err := s.catalog.GetPart(ctx, partNumber)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("part %s not found", partNumber)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "get part")
	}
	return part, nil
}

// Color returns a catalog color.
func (s *CatalogService) Color(ctx context.Context, id int) (*domain.Color, error) {
	color, err := s.catalog.GetColor(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("color %d not found", id)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "get color")
	}
	return color, nil
}

// Stats returns row counts per catalog table.
func (s *CatalogService) Stats(ctx context.Context) (domain.CatalogStats, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "catalog stats")
	}
	return stats, nil
}

// Reindex rebuilds the search index from the catalog.
func (s *CatalogService) Reindex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	start := time.Now()

	sets, err := s.catalog.ListSets(ctx)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "list sets")
	}
	if err := s.index.Reindex(ctx, sets); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "reindex sets")
	}

	s.logger.Info("search index rebuilt", "sets", len(sets), "duration", time.Since(start))
	return nil
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
