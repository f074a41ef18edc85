package store

import (
	"sync"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// Key layout.
const (
	inventoryPrefix = "inv:" // inv:{id} → UserInventory JSON, inv:idx:{name}:{value} → id
	overridePrefix  = "ovr:" // ovr:{inventoryID}:{encoded part key} → OverrideRow JSON

	indexByName  = "name"  // {userID}:{setNumber}:{name}
	indexByOwner = "owner" // {userID}:{id}
)

// keyPool provides reusable byte slices for building override keys,
// which are built once per row on every batch save.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// buildKey joins parts into a pooled buffer.
// The returned slice is valid until releaseKey is called.
func buildKey(parts ...string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// overrideRowsPrefix is the prefix of all override rows of one inventory.
func overrideRowsPrefix(inventoryID string) []byte {
	return []byte(overridePrefix + inventoryID + ":")
}

// overrideKey is the pooled key of one override row. Callers must releaseKey it.
func overrideKey(inventoryID string, key domain.PartKey) []byte {
	return buildKey(overridePrefix, inventoryID, ":", key.Encode())
}

func indexKey(prefix, index, value string) []byte {
	return []byte(prefix + "idx:" + index + ":" + value)
}
