// Package storage defines the object store that translated resource files are published to and read from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pitabwire/localesync/client"
)

// ErrNotFound is returned by Read when the key has no object.
var ErrNotFound = errors.New("object not found")

// ErrUnsupportedScheme is returned by Open for URLs no backend is registered for.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// WriteOptions describe object metadata attached on upload.
type WriteOptions struct {
	ContentType  string
	CacheControl string
}

// Bucket is a flat key space of objects. Writes are upserts.
type Bucket interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, opts WriteOptions) error
	Close() error
}

// OpenOptions carry the settings a backend may need to connect.
type OpenOptions struct {
	Bucket  string
	Key     string
	Timeout time.Duration
	Invoker client.Manager
}

// Opener connects to the bucket addressed by u.
type Opener func(ctx context.Context, u *url.URL, opts OpenOptions) (Bucket, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

// Register makes a backend available for the given URL scheme.
func Register(scheme string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[strings.ToLower(scheme)] = opener
}

// Schemes lists the registered URL schemes.
func Schemes() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	out := make([]string, 0, len(openers))
	for s := range openers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open resolves rawURL to a registered backend.
func Open(ctx context.Context, rawURL string, opts OpenOptions) (Bucket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse storage url: %w", err)
	}

	openersMu.RLock()
	opener, ok := openers[strings.ToLower(u.Scheme)]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	return opener(ctx, u, opts)
}

// ObjectKey builds the key a (locale, namespace) resource is stored under.
func ObjectKey(prefix, locale, namespace string) string {
	return strings.Trim(prefix, "/") + "/" + locale + "/" + namespace + ".json"
}
