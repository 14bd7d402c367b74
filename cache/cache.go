package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type jsonCache[K comparable, V any] struct {
	raw RawCache
	key func(K) string
}

// NewTyped stores V values in raw as JSON under key(k). A nil key formats k with %v.
func NewTyped[K comparable, V any](raw RawCache, key func(K) string) Cache[K, V] {
	if key == nil {
		key = func(k K) string { return fmt.Sprint(k) }
	}
	return &jsonCache[K, V]{raw: raw, key: key}
}

// Get reports a value that no longer decodes as an error, not as a miss.
func (c *jsonCache[K, V]) Get(ctx context.Context, k K) (V, bool, error) {
	var value V

	data, found, err := c.raw.Get(ctx, c.key(k))
	if err != nil || !found {
		return value, found, err
	}
	if err = json.Unmarshal(data, &value); err != nil {
		var zero V
		return zero, false, fmt.Errorf("decode cached %q: %w", c.key(k), err)
	}
	return value, true, nil
}

func (c *jsonCache[K, V]) Set(ctx context.Context, k K, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %q: %w", c.key(k), err)
	}
	return c.raw.Set(ctx, c.key(k), data, ttl)
}

func (c *jsonCache[K, V]) Delete(ctx context.Context, k K) error {
	return c.raw.Delete(ctx, c.key(k))
}

func (c *jsonCache[K, V]) Exists(ctx context.Context, k K) (bool, error) {
	return c.raw.Exists(ctx, c.key(k))
}

func (c *jsonCache[K, V]) Flush(ctx context.Context) error { return c.raw.Flush(ctx) }

func (c *jsonCache[K, V]) Close() error { return c.raw.Close() }
