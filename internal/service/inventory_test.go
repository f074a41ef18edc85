package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	domainerrors "github.com/brickcomplete/brickcomplete-server/internal/errors"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
)

func TestResolveSet_CachesCatalogResults(t *testing.T) {
	env := setupServiceTest(t)
	env.addSet("75192-1", "Millennium Falcon", brick("3001", 1, 4))
	ctx := context.Background()

	first, err := env.inventories.ResolveSet(ctx, " 75192-1 ")
	require.NoError(t, err)
	second, err := env.inventories.ResolveSet(ctx, "75192-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, env.resolver.callCount("75192-1"))

	env.inventories.Purge()
	_, err = env.inventories.ResolveSet(ctx, "75192-1")
	require.NoError(t, err)
	assert.Equal(t, 2, env.resolver.callCount("75192-1"))
}

func TestResolveSet_PlaceholderNotCached(t *testing.T) {
	env := setupServiceTest(t)
	env.resolver.results["9999-1"] = &inventory.Result{
		Set:        domain.PlaceholderSet("9999-1"),
		Provenance: domain.ProvenancePlaceholder,
	}
	ctx := context.Background()

	for range 2 {
		result, err := env.inventories.ResolveSet(ctx, "9999-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProvenancePlaceholder, result.Provenance)
	}
	assert.Equal(t, 2, env.resolver.callCount("9999-1"))
}

func TestResolveSet_Errors(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()

	_, err := env.inventories.ResolveSet(ctx, "  ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.inventories.ResolveSet(ctx, "75192/1")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.inventories.ResolveSet(ctx, "12345-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	env.resolver.err = assert.AnError
	_, err = env.inventories.ResolveSet(ctx, "12345-1")
	assert.ErrorIs(t, err, domainerrors.ErrInternal)
}

func TestEffectiveInventory_AppliesModifications(t *testing.T) {
	env := setupServiceTest(t)
	env.addSet("10001-1", "Small set", brick("3001", 1, 4), brick("3002", 5, 2))
	ctx := context.Background()

	inv, err := env.collection.CreateInventory(ctx, "user-1", CreateInventoryRequest{SetNumber: "10001-1", Name: "Spares"})
	require.NoError(t, err)

	_, err = env.collection.SaveInventory(ctx, "user-1", inv.ID, SaveInventoryRequest{
		Modifications: map[string]int{
			"3001_1_regular_normal": 6,
			"3002_5":                0,
		},
	})
	require.NoError(t, err)

	eff, err := env.inventories.EffectiveInventory(ctx, "user-1", inv.ID)
	require.NoError(t, err)

	require.Len(t, eff.Lines, 1)
	assert.Equal(t, "3001", eff.Lines[0].PartNumber)
	assert.Equal(t, 6, eff.Lines[0].Quantity)
	assert.Equal(t, map[string]int{"3001_1_regular_normal": 6, "3002_5_regular_normal": 0}, eff.Modifications)
	assert.Equal(t, domain.ProvenanceCatalog, eff.Resolution.Provenance)

	// The cached canonical inventory is untouched.
	assert.Equal(t, 4, eff.Resolution.Inventory[0].Quantity)
}

func TestEffectiveInventory_OtherUserIsNotFound(t *testing.T) {
	env := setupServiceTest(t)
	env.addSet("10001-1", "Small set", brick("3001", 1, 4))
	ctx := context.Background()

	inv, err := env.collection.CreateInventory(ctx, "user-1", CreateInventoryRequest{SetNumber: "10001-1", Name: "Mine"})
	require.NoError(t, err)

	_, err = env.inventories.EffectiveInventory(ctx, "user-2", inv.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestResolutionCache_EvictsAndExpires(t *testing.T) {
	c := newResolutionCache(2, 50*time.Millisecond)
	a := &inventory.Result{Provenance: domain.ProvenanceCatalog}

	c.Set("1-1", a)
	c.Set("2-1", &inventory.Result{})
	c.Set("3-1", &inventory.Result{})
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("1-1")
	assert.False(t, ok, "least recently used entry evicted")

	c.Set("1-1", a)
	got, ok := c.Get("1-1")
	require.True(t, ok)
	assert.Same(t, a, got)

	time.Sleep(120 * time.Millisecond)
	_, ok = c.Get("1-1")
	assert.False(t, ok, "entry expired")
}
