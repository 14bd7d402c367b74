package cache

import (
	"time"
)

// Option configures a cache backend.
type Option func(*Options)

// Options holds cache connection configuration.
type Options struct {
	URI       string
	Name      string
	KeyPrefix string
	MaxAge    time.Duration
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Key prefixes key with the configured namespace.
func (o *Options) Key(key string) string {
	return o.KeyPrefix + key
}

// WithURI sets the connection string of the backend, e.g. redis://host:6379/0.
func WithURI(uri string) Option {
	return func(o *Options) {
		o.URI = uri
	}
}

func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithKeyPrefix namespaces every key written through the backend.
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

// WithMaxAge caps the ttl used when callers ask for items that never expire.
// Zero keeps such items until they are deleted.
func WithMaxAge(maxAge time.Duration) Option {
	return func(o *Options) {
		o.MaxAge = maxAge
	}
}

// TTL resolves the effective ttl for a write.
func (o *Options) TTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return o.MaxAge
	}
	return ttl
}
