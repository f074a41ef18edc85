package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for a JSON-encoded record type
// with secondary indexes maintained in the same transaction as the record.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
	cascade func(txn *badger.Txn, id string) error
}

// Index defines a secondary index on an entity.
// A unique index rejects a second record producing the same value.
// A member index stores one key per record (the value must embed the record ID)
// and exists for prefix listing.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
	unique bool
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
	}
}

// WithUniqueIndex adds a secondary index whose values may belong to one record only.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen, unique: true})
	return e
}

// WithMemberIndex adds a listing index. keyGen must include the record ID in each value.
func (e *Entity[T]) WithMemberIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithCascade registers a hook that removes dependent keys when a record is deleted.
// It runs inside the delete transaction.
func (e *Entity[T]) WithCascade(fn func(txn *badger.Txn, id string) error) *Entity[T] {
	e.cascade = fn
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

// Create stores a new record with the given ID.
// Returns ErrAlreadyExists if the ID or a unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.key(id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := e.checkUnique(txn, entity, nil); err != nil {
			return err
		}
		if err := setJSON(txn, e.key(id), entity); err != nil {
			return err
		}
		return e.setIndexes(txn, id, entity)
	})
}

// Get retrieves a record by ID.
// Returns ErrNotFound if the record does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (e *Entity[T]) getTxn(txn *badger.Txn, id string) (*T, error) {
	var entity T
	err := getJSON(txn, e.key(id), &entity)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return &entity, nil
}

// Update replaces an existing record and moves its index entries.
// The unique check for new index values runs inside the write transaction.
// Returns ErrNotFound if the record does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		old, err := e.getTxn(txn, id)
		if err != nil {
			return err
		}

		if err := e.checkUnique(txn, entity, old); err != nil {
			return err
		}
		if err := e.deleteIndexes(txn, old); err != nil {
			return err
		}
		if err := setJSON(txn, e.key(id), entity); err != nil {
			return err
		}
		return e.setIndexes(txn, id, entity)
	})
}

// Delete removes a record, its index entries and, through the cascade hook,
// its dependent keys. Deleting a missing record returns ErrNotFound.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		entity, err := e.getTxn(txn, id)
		if err != nil {
			return err
		}

		if err := e.deleteIndexes(txn, entity); err != nil {
			return err
		}
		if e.cascade != nil {
			if err := e.cascade(txn, id); err != nil {
				return fmt.Errorf("failed to delete dependents: %w", err)
			}
		}
		if err := txn.Delete(e.key(id)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
}

// ListByIndex iterates the records whose index value starts with valuePrefix,
// in index key order.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, valuePrefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		prefix := indexKey(e.prefix, indexName, valuePrefix)

		err := e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				var id string
				if err := it.Item().Value(func(val []byte) error {
					id = string(val)
					return nil
				}); err != nil {
					return err
				}

				entity, err := e.getTxn(txn, id)
				if errors.Is(err, ErrNotFound) {
					continue // dangling index entry
				}
				if err != nil {
					return err
				}
				if !yield(entity, nil) {
					return errStopIteration
				}
			}
			return nil
		})

		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

// existsTxn reports whether a record with the given ID exists.
func (e *Entity[T]) existsTxn(txn *badger.Txn, id string) (bool, error) {
	_, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var errStopIteration = errors.New("iteration stopped")

// checkUnique fails with ErrAlreadyExists when a unique index value of entity
// is held by another record. Values already held by old are the record's own.
func (e *Entity[T]) checkUnique(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.indexes {
		if !idx.unique {
			continue
		}

		owned := make(map[string]bool)
		if old != nil {
			for _, v := range idx.keyGen(old) {
				owned[v] = true
			}
		}

		for _, v := range idx.keyGen(entity) {
			if owned[v] {
				continue
			}
			_, err := txn.Get(indexKey(e.prefix, idx.name, v))
			if err == nil {
				return ErrAlreadyExists.WithMessage(fmt.Sprintf("%s %q already exists", idx.name, v))
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) setIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Set(indexKey(e.prefix, idx.name, v), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Delete(indexKey(e.prefix, idx.name, v)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}
