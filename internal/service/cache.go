package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
)

// resolutionCache keeps recent canonical inventories by set number.
// Entries expire after the TTL and the least recently used entry is evicted when full.
type resolutionCache struct {
	lru *expirable.LRU[string, *inventory.Result]
}

func newResolutionCache(size int, ttl time.Duration) *resolutionCache {
	return &resolutionCache{
		lru: expirable.NewLRU[string, *inventory.Result](size, nil, ttl),
	}
}

func (c *resolutionCache) Get(setNumber string) (*inventory.Result, bool) {
	return c.lru.Get(setNumber)
}

func (c *resolutionCache) Set(setNumber string, result *inventory.Result) {
	c.lru.Add(setNumber, result)
}

func (c *resolutionCache) Purge() {
	c.lru.Purge()
}

func (c *resolutionCache) Len() int {
	return c.lru.Len()
}
