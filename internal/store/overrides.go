package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// ListOverrides returns the override rows of an inventory in encoded key order.
// Returns ErrNotFound if the inventory does not exist.
func (s *Store) ListOverrides(ctx context.Context, inventoryID string) ([]domain.OverrideRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := []domain.OverrideRow{}
	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.requireInventory(txn, inventoryID); err != nil {
			return err
		}

		prefix := overrideRowsPrefix(inventoryID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var row domain.OverrideRow
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal override: %w", err)
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetOverride returns one override row.
func (s *Store) GetOverride(ctx context.Context, inventoryID string, key domain.PartKey) (*domain.OverrideRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := overrideKey(inventoryID, key)
	defer releaseKey(k)

	var row domain.OverrideRow
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, k, &row)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ReplaceOverrides atomically replaces every override row of an inventory
// and bumps the inventory's UpdatedAt.
// Rows sharing an identity key are rejected with ErrInvalidInput.
func (s *Store) ReplaceOverrides(ctx context.Context, inventoryID string, rows []domain.OverrideRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seen := make(map[domain.PartKey]bool, len(rows))
	for i := range rows {
		key := rows[i].Key()
		if seen[key] {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("duplicate override for %s", key))
		}
		seen[key] = true
	}

	now := time.Now()
	return s.update(func(txn *badger.Txn) error {
		if err := s.touchInventory(txn, inventoryID, now); err != nil {
			return err
		}
		if _, err := deletePrefix(txn, overrideRowsPrefix(inventoryID)); err != nil {
			return err
		}
		for _, row := range rows {
			row.UpdatedAt = now
			if err := setJSON(txn, []byte(overridePrefix+inventoryID+":"+row.Key().Encode()), row); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertOverride creates or replaces a single override row.
func (s *Store) UpsertOverride(ctx context.Context, inventoryID string, row domain.OverrideRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	row.UpdatedAt = now
	return s.update(func(txn *badger.Txn) error {
		if err := s.touchInventory(txn, inventoryID, now); err != nil {
			return err
		}
		return setJSON(txn, []byte(overridePrefix+inventoryID+":"+row.Key().Encode()), row)
	})
}

// DeleteOverride removes a single override row. Removing a missing row is not an error.
func (s *Store) DeleteOverride(ctx context.Context, inventoryID string, key domain.PartKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	return s.update(func(txn *badger.Txn) error {
		if err := s.touchInventory(txn, inventoryID, now); err != nil {
			return err
		}
		return txn.Delete([]byte(overridePrefix + inventoryID + ":" + key.Encode()))
	})
}

func (s *Store) requireInventory(txn *badger.Txn, inventoryID string) error {
	ok, err := s.Inventories.existsTxn(txn, inventoryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound.WithMessage("inventory not found")
	}
	return nil
}

// touchInventory bumps UpdatedAt of an inventory inside a write transaction.
// Index entries are unaffected because no indexed field changes.
func (s *Store) touchInventory(txn *badger.Txn, inventoryID string, now time.Time) error {
	inv, err := s.Inventories.getTxn(txn, inventoryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound.WithMessage("inventory not found")
		}
		return err
	}
	inv.UpdatedAt = now
	return setJSON(txn, s.Inventories.key(inventoryID), inv)
}
