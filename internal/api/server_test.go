package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/brickcomplete/brickcomplete-server/internal/auth"
	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/metadata/instructions"
	"github.com/brickcomplete/brickcomplete-server/internal/service"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

// fakeResolver serves fixed inventories.
type fakeResolver struct {
	mu      sync.Mutex
	results map[string]*inventory.Result
}

func (f *fakeResolver) Resolve(_ context.Context, setNumber string) (*inventory.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.results[setNumber]; ok {
		return r, nil
	}
	return nil, inventory.ErrSetNotFound
}

// fakeCatalog is an in-memory reference catalog.
type fakeCatalog struct {
	sets   map[string]domain.SetMeta
	parts  map[string]domain.Part
	colors map[int]domain.Color
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

func (f *fakeCatalog) LookupPartImage(context.Context, string, int) (string, error) {
	return "", nil
}

func (f *fakeCatalog) SearchSets(_ context.Context, text string, limit int) ([]domain.SetMeta, error) {
	out := []domain.SetMeta{}
	for _, s := range f.sets {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(text)) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) SuggestSetNumbers(_ context.Context, prefix string, limit int) ([]domain.SetMeta, error) {
	out := []domain.SetMeta{}
	for _, s := range f.sets {
		if strings.HasPrefix(s.SetNumber, prefix) && len(out) < limit {
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
	return domain.CatalogStats{"sets": int64(len(f.sets)), "parts": int64(len(f.parts))}, nil
}

// fakeInstructions answers instruction lookups without network access.
type fakeInstructions struct{}

func (fakeInstructions) CheckAvailability(_ context.Context, setNumber string) *instructions.Availability {
	return &instructions.Availability{
		SetNumber:       setNumber,
		HasInstructions: setNumber == "75192-1",
		StatusCode:      200,
		URL:             "https://www.lego.com/en-us/service/building-instructions/" + setNumber,
	}
}

func (fakeInstructions) FetchImages(_ context.Context, setNumber string) *instructions.Images {
	return &instructions.Images{
		SetNumber: setNumber,
		Success:   true,
		Images:    []string{"https://img.example/1.jpg", "https://img.example/2.jpg"},
		Count:     2,
		URL:       "https://lego.brickinstructions.com/lego_instructions/set/" + setNumber,
	}
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api      humatest.TestAPI
	store    *store.Store
	catalog  *fakeCatalog
	resolver *fakeResolver
	tokens   *auth.TokenService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithOptions(t, Options{})
}

func setupTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "inventories"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens, err := auth.NewTokenService(bytes.Repeat([]byte{0x42}, 32), 15*time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	catalog := &fakeCatalog{
		sets:   make(map[string]domain.SetMeta),
		parts:  make(map[string]domain.Part),
		colors: make(map[int]domain.Color),
	}
	resolver := &fakeResolver{results: make(map[string]*inventory.Result)}

	inventories := service.NewInventoryService(resolver, st, service.CacheOptions{}, logger)
	services := &Services{
		Inventory:    inventories,
		Collection:   service.NewCollectionService(st, inventories, catalog, logger),
		Catalog:      service.NewCatalogService(catalog, nil, logger),
		Instructions: service.NewInstructionService(fakeInstructions{}, logger),
	}

	s := NewServer(services, HealthChecks{UserStore: st}, tokens, opts, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server:   s,
		api:      humatest.Wrap(t, s.api),
		store:    st,
		catalog:  catalog,
		resolver: resolver,
		tokens:   tokens,
	}
}

// addSet registers a catalog-resolved set.
func (ts *testServer) addSet(setNumber, name string, lines ...domain.PartLine) {
	meta := domain.SetMeta{SetNumber: setNumber, Name: name, Year: 2017, SetURL: domain.SetURL(setNumber)}
	ts.catalog.sets[setNumber] = meta
	ts.resolver.mu.Lock()
	ts.resolver.results[setNumber] = &inventory.Result{
		Set:        meta,
		Inventory:  lines,
		Provenance: domain.ProvenanceCatalog,
	}
	ts.resolver.mu.Unlock()
}

// bearer returns an Authorization header for a user.
func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.GenerateAccessToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return "Authorization: Bearer " + token
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

// decode unmarshals a recorded response body.
func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}
