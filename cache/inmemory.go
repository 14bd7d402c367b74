package cache

import (
	"context"
	"sync"
	"time"
)

// inMemoryCacheItem represents a cache item with an optional expiration.
type inMemoryCacheItem struct {
	value      []byte
	expiration time.Time
}

func (i *inMemoryCacheItem) isExpired() bool {
	if i.expiration.IsZero() {
		return false
	}
	return time.Now().After(i.expiration)
}

// InMemoryCache is a process-local cache. Items without a ttl live for the life of the process.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]*inMemoryCacheItem
}

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache() RawCache {
	return &InMemoryCache{
		items: make(map[string]*inMemoryCacheItem),
	}
}

// Get retrieves an item from the cache. Expired items are dropped on read.
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if item.isExpired() {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	return item.value, true, nil
}

// Set stores a copy of value under key.
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := &inMemoryCacheItem{
		value: append([]byte(nil), value...),
	}

	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := c.Get(ctx, key)
	return found, err
}

func (c *InMemoryCache) Flush(_ context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]*inMemoryCacheItem)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored items, including expired ones not yet read.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemoryCache) Close() error {
	return nil
}
