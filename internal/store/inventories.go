package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// initInventories wires the UserInventory entity: a unique (user, set, name) index,
// an owner listing index, and cascading removal of override rows.
func (s *Store) initInventories() {
	s.Inventories = NewEntity[domain.UserInventory](s, inventoryPrefix).
		WithUniqueIndex(indexByName, func(inv *domain.UserInventory) []string {
			return []string{nameIndexValue(inv.UserID, inv.SetNumber, inv.Name)}
		}).
		WithMemberIndex(indexByOwner, func(inv *domain.UserInventory) []string {
			return []string{inv.UserID + ":" + inv.ID}
		}).
		WithCascade(func(txn *badger.Txn, id string) error {
			_, err := deletePrefix(txn, overrideRowsPrefix(id))
			return err
		})
}

func nameIndexValue(userID, setNumber, name string) string {
	return userID + ":" + setNumber + ":" + name
}

// CreateInventory stores a new user inventory.
// Returns ErrAlreadyExists when the user already has an inventory with that name for the set.
func (s *Store) CreateInventory(ctx context.Context, inv *domain.UserInventory) error {
	if err := s.Inventories.Create(ctx, inv.ID, inv); err != nil {
		return fmt.Errorf("create inventory: %w", err)
	}
	return nil
}

// GetInventory returns one inventory by ID.
func (s *Store) GetInventory(ctx context.Context, id string) (*domain.UserInventory, error) {
	return s.Inventories.Get(ctx, id)
}

// GetInventoryByName finds a user's inventory of a set by its exact name.
func (s *Store) GetInventoryByName(ctx context.Context, userID, setNumber, name string) (*domain.UserInventory, error) {
	for inv, err := range s.Inventories.ListByIndex(ctx, indexByName, nameIndexValue(userID, setNumber, name)) {
		if err != nil {
			return nil, err
		}
		if inv.Name == name {
			return inv, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateInventory saves changes to an inventory. A rename is re-checked for uniqueness
// in the same transaction that writes it.
func (s *Store) UpdateInventory(ctx context.Context, inv *domain.UserInventory) error {
	inv.Touch()
	if err := s.Inventories.Update(ctx, inv.ID, inv); err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

// DeleteInventory removes an inventory together with all of its override rows.
func (s *Store) DeleteInventory(ctx context.Context, id string) error {
	if err := s.Inventories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	return nil
}

// ListInventoriesForSet returns a user's inventories of one set, oldest first.
func (s *Store) ListInventoriesForSet(ctx context.Context, userID, setNumber string) ([]*domain.UserInventory, error) {
	return s.collect(ctx, indexByName, userID+":"+setNumber+":")
}

// ListInventoriesForUser returns all inventories of a user ordered by set number,
// then oldest first.
func (s *Store) ListInventoriesForUser(ctx context.Context, userID string) ([]*domain.UserInventory, error) {
	invs, err := s.collect(ctx, indexByOwner, userID+":")
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(invs, func(a, b *domain.UserInventory) int {
		return strings.Compare(a.SetNumber, b.SetNumber)
	})
	return invs, nil
}

// collect lists inventories by index prefix and orders them by creation time.
func (s *Store) collect(ctx context.Context, index, prefix string) ([]*domain.UserInventory, error) {
	var out []*domain.UserInventory
	for inv, err := range s.Inventories.ListByIndex(ctx, index, prefix) {
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}

	slices.SortStableFunc(out, func(a, b *domain.UserInventory) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
