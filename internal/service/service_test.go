package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

// fakeResolver serves fixed results and counts calls per set.
type fakeResolver struct {
	mu      sync.Mutex
	results map[string]*inventory.Result
	err     error
	calls   map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		results: make(map[string]*inventory.Result),
		calls:   make(map[string]int),
	}
}

func (f *fakeResolver) Resolve(_ context.Context, setNumber string) (*inventory.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[setNumber]++
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[setNumber]; ok {
		return r, nil
	}
	return nil, inventory.ErrSetNotFound
}

func (f *fakeResolver) callCount(setNumber string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[setNumber]
}

// fakeCatalog is an in-memory reference catalog.
type fakeCatalog struct {
	sets   map[string]domain.SetMeta
	parts  map[string]domain.Part
	colors map[int]domain.Color
	images map[string]string
	stats  domain.CatalogStats
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		sets:   make(map[string]domain.SetMeta),
		parts:  make(map[string]domain.Part),
		colors: make(map[int]domain.Color),
		images: make(map[string]string),
		stats:  domain.CatalogStats{},
	}
}

func (f *fakeCatalog) LookupSet(_ context.Context, setNumber string) (*domain.SetMeta, error) {
	if s, ok := f.sets[setNumber]; ok {
		return &s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCatalog) LookupSetParts(context.Context, string) ([]domain.PartLine, error) {
	return nil, nil
}

func (f *fakeCatalog) LookupMinifigsInSet(context.Context, string) ([]domain.MinifigRef, error) {
	return nil, nil
}

func (f *fakeCatalog) LookupMinifigParts(context.Context, string) ([]domain.PartLine, error) {
	return nil, nil
}

func (f *fakeCatalog) LookupPartImage(_ context.Context, partNumber string, _ int) (string, error) {
	return f.images[partNumber], nil
}

func (f *fakeCatalog) SearchSets(_ context.Context, text string, limit int) ([]domain.SetMeta, error) {
	var out []domain.SetMeta
	for _, s := range f.sets {
		if s.Name == text && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) SuggestSetNumbers(_ context.Context, prefix string, limit int) ([]domain.SetMeta, error) {
	var out []domain.SetMeta
	for _, s := range f.sets {
		if len(s.SetNumber) >= len(prefix) && s.SetNumber[:len(prefix)] == prefix && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListSets(context.Context) ([]domain.SetMeta, error) {
	out := make([]domain.SetMeta, 0, len(f.sets))
	for _, s := range f.sets {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeCatalog) GetPart(_ context.Context, partNumber string) (*domain.Part, error) {
	if p, ok := f.parts[partNumber]; ok {
		return &p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCatalog) GetColor(_ context.Context, id int) (*domain.Color, error) {
	if c, ok := f.colors[id]; ok {
		return &c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCatalog) Stats(context.Context) (domain.CatalogStats, error) {
	return f.stats, nil
}

// testEnv wires services over a temporary Badger store.
type testEnv struct {
	store       *store.Store
	resolver    *fakeResolver
	catalog     *fakeCatalog
	inventories *InventoryService
	collection  *CollectionService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "inventories"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.DiscardHandler)
	resolver := newFakeResolver()
	catalog := newFakeCatalog()
	inventories := NewInventoryService(resolver, s, CacheOptions{}, logger)

	return &testEnv{
		store:       s,
		resolver:    resolver,
		catalog:     catalog,
		inventories: inventories,
		collection:  NewCollectionService(s, inventories, catalog, logger),
	}
}

// addSet registers a catalog-resolved set with the given canonical lines.
func (e *testEnv) addSet(setNumber, name string, lines ...domain.PartLine) {
	meta := domain.SetMeta{SetNumber: setNumber, Name: name, SetURL: domain.SetURL(setNumber)}
	e.catalog.sets[setNumber] = meta
	e.resolver.results[setNumber] = &inventory.Result{
		Set:        meta,
		Inventory:  lines,
		Provenance: domain.ProvenanceCatalog,
	}
}

func brick(part string, color, qty int) domain.PartLine {
	return domain.PartLine{
		PartNumber: part,
		PartName:   "Brick " + part,
		ColorID:    color,
		ColorName:  "Color " + part,
		Quantity:   qty,
	}
}
