// Package store persists user inventories and their override rows in Badger.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Inventories holds UserInventory records with their uniqueness and owner indexes.
	Inventories *Entity[domain.UserInventory]
}

// New creates a new Store instance at the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}
	store.initInventories()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// update runs fn in a read-write transaction.
// A transaction that loses a race is retried once before ErrConflict is returned.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if !errors.Is(err, badger.ErrConflict) {
		return err
	}

	if s.logger != nil {
		s.logger.Debug("retrying conflicting transaction")
	}
	err = s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict.WithCause(err)
	}
	return err
}

// Helper methods for transaction-scoped reads and writes.

// getJSON decodes the value stored under key into dest.
// A missing key is reported as badger.ErrKeyNotFound.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON encodes value and stores it under key.
func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// keysWithPrefix collects every key under prefix. Keys are copied so callers
// may delete them within the same transaction.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// deletePrefix removes every key under prefix and returns how many were removed.
func deletePrefix(txn *badger.Txn, prefix []byte) (int, error) {
	keys := keysWithPrefix(txn, prefix)
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return 0, fmt.Errorf("failed to delete key: %w", err)
		}
	}
	return len(keys), nil
}
