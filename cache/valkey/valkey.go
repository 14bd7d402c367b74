package valkey

import (
	"context"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/pitabwire/localesync/cache"
)

// Cache is a Valkey-backed cache implementation using the official Valkey client.
type Cache struct {
	client valkey.Client
	opts   *cache.Options
}

const (
	connectionTimeout = 5 * time.Second
	scanBatch         = 100
)

// New creates a new Valkey cache. The URI may use the valkey:// or redis:// scheme.
func New(opts ...cache.Option) (cache.RawCache, error) {
	cacheOpts := cache.NewOptions(opts...)

	valkeyOpts, err := valkey.ParseURL(normaliseURI(cacheOpts.URI))
	if err != nil {
		return nil, err
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Do(ctx, client.B().Ping().Build()).Error(); pingErr != nil {
		client.Close()
		return nil, pingErr
	}

	return &Cache{
		client: client,
		opts:   cacheOpts,
	}, nil
}

func normaliseURI(uri string) string {
	switch {
	case strings.HasPrefix(uri, "valkeys://"):
		return "rediss://" + strings.TrimPrefix(uri, "valkeys://")
	case strings.HasPrefix(uri, "valkey://"):
		return "redis://" + strings.TrimPrefix(uri, "valkey://")
	default:
		return uri
	}
}

// Get retrieves an item from the cache.
func (vc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := vc.client.B().Get().Key(vc.opts.Key(key)).Build()
	resp := vc.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	val, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}

	return val, true, nil
}

// Set sets an item in the cache with the specified TTL.
func (vc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd valkey.Completed

	ttl = vc.opts.TTL(ttl)
	k := vc.opts.Key(key)

	if ttl > 0 {
		// Ex takes whole seconds
		seconds := int64(ttl.Seconds())
		if seconds == 0 {
			seconds = 1
		}
		cmd = vc.client.B().Set().Key(k).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	} else {
		cmd = vc.client.B().Set().Key(k).Value(valkey.BinaryString(value)).Build()
	}

	return vc.client.Do(ctx, cmd).Error()
}

// Delete removes an item from the cache.
func (vc *Cache) Delete(ctx context.Context, key string) error {
	cmd := vc.client.B().Del().Key(vc.opts.Key(key)).Build()
	return vc.client.Do(ctx, cmd).Error()
}

// Exists checks if a key exists in the cache.
func (vc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	cmd := vc.client.B().Exists().Key(vc.opts.Key(key)).Build()
	resp := vc.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		return false, err
	}

	count, err := resp.AsInt64()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Flush clears the cache. With a key prefix only the prefixed keys are removed.
func (vc *Cache) Flush(ctx context.Context) error {
	if vc.opts.KeyPrefix == "" {
		return vc.client.Do(ctx, vc.client.B().Flushdb().Build()).Error()
	}

	var cursor uint64
	for {
		cmd := vc.client.B().Scan().Cursor(cursor).Match(vc.opts.KeyPrefix + "*").Count(scanBatch).Build()
		entry, err := vc.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return err
		}

		if len(entry.Elements) > 0 {
			del := vc.client.B().Del().Key(entry.Elements...).Build()
			if delErr := vc.client.Do(ctx, del).Error(); delErr != nil {
				return delErr
			}
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the Valkey connection.
func (vc *Cache) Close() error {
	vc.client.Close()
	return nil
}
