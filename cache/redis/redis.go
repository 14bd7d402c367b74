package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitabwire/localesync/cache"
)

// Cache is a Redis-backed cache implementation.
type Cache struct {
	client *redis.Client
	opts   *cache.Options
}

const (
	connectionTimeout = 5 * time.Second
	scanBatch         = 100
)

// New creates a new Redis cache from a redis:// or rediss:// URI.
func New(opts ...cache.Option) (cache.RawCache, error) {
	cacheOpts := cache.NewOptions(opts...)

	redisOpts, err := redis.ParseURL(cacheOpts.URI)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, pingErr
	}

	return &Cache{
		client: client,
		opts:   cacheOpts,
	}, nil
}

// Get retrieves an item from the cache.
func (rc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := rc.client.Get(ctx, rc.opts.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set sets an item in the cache with the specified TTL.
func (rc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, rc.opts.Key(key), value, rc.opts.TTL(ttl)).Err()
}

// Delete removes an item from the cache.
func (rc *Cache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, rc.opts.Key(key)).Err()
}

// Exists checks if a key exists in the cache.
func (rc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, rc.opts.Key(key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Flush clears the cache. With a key prefix only the prefixed keys are removed.
func (rc *Cache) Flush(ctx context.Context) error {
	if rc.opts.KeyPrefix == "" {
		return rc.client.FlushDB(ctx).Err()
	}

	iter := rc.client.Scan(ctx, 0, rc.opts.KeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection.
func (rc *Cache) Close() error {
	return rc.client.Close()
}
