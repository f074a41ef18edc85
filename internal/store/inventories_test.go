package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "brickcomplete-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

var baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newInventory(id, user, set, name string, age time.Duration) *domain.UserInventory {
	return &domain.UserInventory{
		ID:        id,
		UserID:    user,
		SetNumber: set,
		Name:      name,
		CreatedAt: baseTime.Add(age),
		UpdatedAt: baseTime.Add(age),
	}
}

func TestCreateAndGetInventory(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	inv := newInventory("inv-1", "user-1", "10001-1", "Default", 0)
	inv.Description = "my copy"
	require.NoError(t, s.CreateInventory(ctx, inv))

	got, err := s.GetInventory(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "10001-1", got.SetNumber)
	assert.Equal(t, "Default", got.Name)
	assert.Equal(t, "my copy", got.Description)
	assert.True(t, got.CreatedAt.Equal(inv.CreatedAt))

	byName, err := s.GetInventoryByName(ctx, "user-1", "10001-1", "Default")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", byName.ID)
}

func TestGetInventory_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetInventory(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetInventoryByName(context.Background(), "user-1", "10001-1", "Default")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetInventoryByName_ExactMatchOnly(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-1", "user-1", "10001-1", "Default 2", 0)))

	_, err := s.GetInventoryByName(ctx, "user-1", "10001-1", "Default")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateInventory_UniquePerUserSetName(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-1", "user-1", "10001-1", "Default", 0)))

	err := s.CreateInventory(ctx, newInventory("inv-2", "user-1", "10001-1", "Default", 0))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	// Same name on another set, or for another user, is fine.
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-3", "user-1", "10002-1", "Default", 0)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-4", "user-2", "10001-1", "Default", 0)))
}

func TestUpdateInventory_RenameRechecksUniqueness(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-1", "user-1", "10001-1", "Default", 0)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-2", "user-1", "10001-1", "Spares", time.Minute)))

	clash, err := s.GetInventory(ctx, "inv-2")
	require.NoError(t, err)
	clash.Name = "Default"
	assert.ErrorIs(t, s.UpdateInventory(ctx, clash), store.ErrAlreadyExists)

	renamed, err := s.GetInventory(ctx, "inv-2")
	require.NoError(t, err)
	renamed.Name = "Build 2"
	require.NoError(t, s.UpdateInventory(ctx, renamed))

	// The old name is free again and the new one resolves.
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-3", "user-1", "10001-1", "Spares", 2*time.Minute)))
	got, err := s.GetInventoryByName(ctx, "user-1", "10001-1", "Build 2")
	require.NoError(t, err)
	assert.Equal(t, "inv-2", got.ID)
	assert.True(t, got.UpdatedAt.After(baseTime))
}

func TestUpdateInventory_SameNameKeepsIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	inv := newInventory("inv-1", "user-1", "10001-1", "Default", 0)
	require.NoError(t, s.CreateInventory(ctx, inv))

	inv.Description = "updated"
	require.NoError(t, s.UpdateInventory(ctx, inv))

	got, err := s.GetInventoryByName(ctx, "user-1", "10001-1", "Default")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
}

func TestListInventories(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-c", "user-1", "10001-1", "Third", 3*time.Hour)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-a", "user-1", "10001-1", "First", time.Hour)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-b", "user-1", "10001-1", "Second", 2*time.Hour)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-d", "user-1", "00042-1", "Other", 0)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-e", "user-2", "10001-1", "First", 0)))

	forSet, err := s.ListInventoriesForSet(ctx, "user-1", "10001-1")
	require.NoError(t, err)
	require.Len(t, forSet, 3)
	assert.Equal(t, "First", forSet[0].Name)
	assert.Equal(t, "Second", forSet[1].Name)
	assert.Equal(t, "Third", forSet[2].Name)

	all, err := s.ListInventoriesForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "00042-1", all[0].SetNumber)
	assert.Equal(t, "inv-a", all[1].ID)

	none, err := s.ListInventoriesForUser(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteInventory_CascadesOverrides(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-1", "user-1", "10001-1", "Default", 0)))
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-2", "user-1", "10001-1", "Other", 0)))
	require.NoError(t, s.ReplaceOverrides(ctx, "inv-1", []domain.OverrideRow{{PartNumber: "3001", ColorID: 1, Quantity: 2}}))
	require.NoError(t, s.ReplaceOverrides(ctx, "inv-2", []domain.OverrideRow{{PartNumber: "3001", ColorID: 1, Quantity: 5}}))

	require.NoError(t, s.DeleteInventory(ctx, "inv-1"))

	_, err := s.GetInventory(ctx, "inv-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetOverride(ctx, "inv-1", domain.PartKey{PartNumber: "3001", ColorID: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The sibling inventory keeps its rows and the name is reusable.
	rows, err := s.ListOverrides(ctx, "inv-2")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	require.NoError(t, s.CreateInventory(ctx, newInventory("inv-3", "user-1", "10001-1", "Default", 0)))

	assert.ErrorIs(t, s.DeleteInventory(ctx, "inv-1"), store.ErrNotFound)
}

func TestPing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NoError(t, s.Ping(context.Background()))
}

func TestCanceledContext(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.CreateInventory(ctx, newInventory("inv-1", "u", "s", "n", 0)), context.Canceled)
	_, err := s.GetInventory(ctx, "inv-1")
	assert.ErrorIs(t, err, context.Canceled)
}
