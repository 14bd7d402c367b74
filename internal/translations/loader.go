package translations

import (
	"context"
	"errors"
	"time"

	"github.com/pitabwire/util"
	"golang.org/x/sync/singleflight"

	"github.com/pitabwire/localesync/cache"
	"github.com/pitabwire/localesync/internal/messageformat"
	"github.com/pitabwire/localesync/locale"
	"github.com/pitabwire/localesync/storage"
)

const (
	defaultPrefix  = "locales"
	defaultTimeout = 15 * time.Second
)

// Key identifies one resource file.
type Key struct {
	Locale    string
	Namespace string
}

func (k Key) String() string {
	return k.Locale + "/" + k.Namespace
}

// Loader resolves message maps, reading each (locale, namespace) from storage at most once.
// Missing, unreadable and malformed resources all resolve to an empty map, which is cached too.
type Loader struct {
	bucket  storage.Bucket
	cache   cache.Cache[Key, MessageMap]
	group   singleflight.Group
	prefix  string
	timeout time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache stores loaded maps in raw instead of a private in-memory cache.
func WithCache(raw cache.RawCache) Option {
	return func(l *Loader) {
		l.cache = cache.NewTyped[Key, MessageMap](raw, Key.String)
	}
}

// WithPrefix sets the directory all resource keys live under.
func WithPrefix(prefix string) Option {
	return func(l *Loader) {
		l.prefix = prefix
	}
}

// WithTimeout bounds each storage read.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loader) {
		l.timeout = timeout
	}
}

// NewLoader creates a loader reading from bucket.
func NewLoader(bucket storage.Bucket, opts ...Option) *Loader {
	l := &Loader{
		bucket:  bucket,
		prefix:  defaultPrefix,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = cache.NewTyped[Key, MessageMap](cache.NewInMemoryCache(), Key.String)
	}
	return l
}

// Get returns the messages for locale and namespace. It never fails; problems are logged.
func (l *Loader) Get(ctx context.Context, loc, namespace string) MessageMap {
	key := Key{Locale: locale.Normalize(loc), Namespace: locale.NormalizeNamespace(namespace)}
	log := util.Log(ctx).WithField("locale", key.Locale).WithField("namespace", key.Namespace)

	if cached, found, err := l.cache.Get(ctx, key); err != nil {
		log.WithError(err).Warn("translation cache read failed")
	} else if found {
		return nonNil(cached)
	}

	v, _, _ := l.group.Do(key.String(), func() (any, error) {
		if cached, found, err := l.cache.Get(ctx, key); err == nil && found {
			return nonNil(cached), nil
		}

		messages := l.fetch(ctx, key, log)
		if err := l.cache.Set(ctx, key, messages, 0); err != nil {
			log.WithError(err).Warn("translation cache write failed")
		}
		return messages, nil
	})

	messages, _ := v.(MessageMap)
	return nonNil(messages)
}

// Translator loads the messages for locale and namespace and compiles them.
func (l *Loader) Translator(ctx context.Context, loc, namespace string) *messageformat.Translator {
	return messageformat.Compile(ctx, locale.Normalize(loc), l.Get(ctx, loc, namespace))
}

func (l *Loader) fetch(ctx context.Context, key Key, log *util.LogEntry) MessageMap {
	path := storage.ObjectKey(l.prefix, key.Locale, key.Namespace)
	log = log.WithField("path", path)

	// Detached from the caller: the result is shared with every waiter and cached.
	rctx := context.WithoutCancel(ctx)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, l.timeout)
		defer cancel()
	}

	data, err := l.bucket.Read(rctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Debug("translation resource not found")
		} else {
			log.WithError(err).Error("translation resource download failed")
		}
		return MessageMap{}
	}

	messages, err := Parse(data)
	if err != nil {
		log.WithError(err).Error("translation resource is not valid")
		return MessageMap{}
	}

	log.WithField("messages", len(messages)).Debug("translation resource loaded")
	return messages
}

func nonNil(m MessageMap) MessageMap {
	if m == nil {
		return MessageMap{}
	}
	return m
}
