package cache

import (
	"context"
	"time"
)

// RawCache is the low-level cache interface that works with bytes.
// A ttl of zero keeps the item until it is deleted or the cache is flushed.
type RawCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Flush(ctx context.Context) error
	Close() error
}

// Cache is a typed cache interface with automatic serialization.
type Cache[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool, error)
	Set(ctx context.Context, key K, value V, ttl time.Duration) error
	Delete(ctx context.Context, key K) error
	Exists(ctx context.Context, key K) (bool, error)
	Flush(ctx context.Context) error
	Close() error
}

// Manager holds the service's raw caches by name.
type Manager interface {
	AddCache(name string, cache RawCache)
	GetRawCache(name string) (RawCache, bool)
	Names() []string
	RemoveCache(name string) error
	Close() error
}
