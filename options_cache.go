package localesync

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pitabwire/localesync/cache"
	"github.com/pitabwire/localesync/cache/redis"
	"github.com/pitabwire/localesync/cache/valkey"
)

// TranslationsCache is the name the translation cache is registered under.
const TranslationsCache = "translations"

// WithCache registers raw as the translation cache.
func WithCache(raw cache.RawCache) Option {
	return func(_ context.Context, s *Service) {
		s.cacheManager.AddCache(TranslationsCache, raw)
	}
}

// WithCacheURI connects the translation cache to uri.
func WithCacheURI(uri string) Option {
	return func(_ context.Context, s *Service) {
		raw, err := openCache(uri)
		if err != nil {
			s.AddStartupError(err)
			return
		}
		s.cacheManager.AddCache(TranslationsCache, raw)
	}
}

func openCache(uri string) (cache.RawCache, error) {
	if uri == "" {
		return cache.NewInMemoryCache(), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse cache uri: %w", err)
	}

	opts := []cache.Option{cache.WithURI(uri), cache.WithName(TranslationsCache), cache.WithKeyPrefix("localesync:")}
	switch strings.ToLower(u.Scheme) {
	case "", "mem":
		return cache.NewInMemoryCache(), nil
	case "redis", "rediss":
		return redis.New(opts...)
	case "valkey", "valkeys":
		return valkey.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported cache scheme %q", u.Scheme)
	}
}
