package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/localesync/cache"
	cacheredis "github.com/pitabwire/localesync/cache/redis"
	cachevalkey "github.com/pitabwire/localesync/cache/valkey"
	"github.com/pitabwire/localesync/internal/testdeps"
)

// CacheTestSuite runs the cache contract against the in-memory cache and, when a server
// is set, the Redis and Valkey backends.
type CacheTestSuite struct {
	suite.Suite
	serverURI string
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestCacheBackends(t *testing.T) {
	suite.Run(t, &CacheTestSuite{serverURI: testdeps.Valkey(t)})
}

func (s *CacheTestSuite) prefix() string {
	return fmt.Sprintf("localesync-test-%d:", time.Now().UnixNano())
}

func (s *CacheTestSuite) backends(prefix string) map[string]cache.RawCache {
	impls := map[string]cache.RawCache{}

	rc, err := cacheredis.New(cache.WithURI(s.serverURI), cache.WithKeyPrefix(prefix))
	s.Require().NoError(err)
	impls["Redis"] = rc

	vc, err := cachevalkey.New(cache.WithURI(s.serverURI), cache.WithKeyPrefix(prefix))
	s.Require().NoError(err)
	impls["Valkey"] = vc

	return impls
}

func (s *CacheTestSuite) implementations() map[string]cache.RawCache {
	if s.serverURI == "" {
		return map[string]cache.RawCache{"InMemory": cache.NewInMemoryCache()}
	}
	return s.backends(s.prefix())
}

func (s *CacheTestSuite) TestFlushKeepsOtherPrefixes() {
	if s.serverURI == "" {
		s.T().Skip("needs a shared cache server")
	}
	ctx := s.T().Context()

	mine, theirs := s.backends(s.prefix()), s.backends(s.prefix())
	for name, raw := range mine {
		s.Run(name, func() {
			other := theirs[name]
			defer func() { s.NoError(raw.Close()) }()
			defer func() { s.NoError(other.Close()) }()

			s.Require().NoError(raw.Set(ctx, "fr/ui", []byte(`{}`), 0))
			s.Require().NoError(other.Set(ctx, "fr/ui", []byte(`{"a":"b"}`), 0))

			s.Require().NoError(raw.Flush(ctx))

			_, found, err := raw.Get(ctx, "fr/ui")
			s.Require().NoError(err)
			s.False(found)

			got, found, err := other.Get(ctx, "fr/ui")
			s.Require().NoError(err)
			s.True(found)
			s.JSONEq(`{"a":"b"}`, string(got))
		})
	}
}

func (s *CacheTestSuite) TestRawOperations() {
	for name, raw := range s.implementations() {
		s.Run(name, func() {
			ctx := s.T().Context()
			defer func() { s.NoError(raw.Close()) }()

			_, found, err := raw.Get(ctx, "missing")
			s.Require().NoError(err)
			s.False(found)

			s.Require().NoError(raw.Set(ctx, "fr/default", []byte(`{"hello":"Bonjour"}`), 0))

			got, found, err := raw.Get(ctx, "fr/default")
			s.Require().NoError(err)
			s.True(found)
			s.JSONEq(`{"hello":"Bonjour"}`, string(got))

			exists, err := raw.Exists(ctx, "fr/default")
			s.Require().NoError(err)
			s.True(exists)

			s.Require().NoError(raw.Delete(ctx, "fr/default"))
			exists, err = raw.Exists(ctx, "fr/default")
			s.Require().NoError(err)
			s.False(exists)

			s.Require().NoError(raw.Set(ctx, "a", []byte("1"), 0))
			s.Require().NoError(raw.Set(ctx, "b", []byte("2"), 0))
			s.Require().NoError(raw.Flush(ctx))

			for _, key := range []string{"a", "b"} {
				_, found, err = raw.Get(ctx, key)
				s.Require().NoError(err)
				s.False(found, key)
			}
		})
	}
}

func (s *CacheTestSuite) TestTTLExpiry() {
	for name, raw := range s.implementations() {
		s.Run(name, func() {
			ctx := s.T().Context()
			defer func() { s.NoError(raw.Close()) }()

			s.Require().NoError(raw.Set(ctx, "short", []byte("x"), time.Second))
			s.Require().Eventually(func() bool {
				_, found, err := raw.Get(ctx, "short")
				return err == nil && !found
			}, 5*time.Second, 100*time.Millisecond)
		})
	}
}

func (s *CacheTestSuite) TestInMemoryCopiesValues() {
	ctx := s.T().Context()
	raw := cache.NewInMemoryCache()

	value := []byte("abc")
	s.Require().NoError(raw.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, found, err := raw.Get(ctx, "k")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("abc", string(got))
}

func (s *CacheTestSuite) TestTypedCache() {
	ctx := s.T().Context()

	type entry struct {
		Messages map[string]string `json:"messages"`
	}

	typed := cache.NewTyped[string, entry](cache.NewInMemoryCache(), nil)

	_, found, err := typed.Get(ctx, "es/default")
	s.Require().NoError(err)
	s.False(found)

	want := entry{Messages: map[string]string{"hello": "Hola"}}
	s.Require().NoError(typed.Set(ctx, "es/default", want, 0))

	got, found, err := typed.Get(ctx, "es/default")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(want, got)
}

func (s *CacheTestSuite) TestTypedCacheDecodeError() {
	ctx := s.T().Context()
	raw := cache.NewInMemoryCache()
	s.Require().NoError(raw.Set(ctx, "7", []byte("not json"), 0))

	typed := cache.NewTyped[int, map[string]string](raw, nil)
	_, found, err := typed.Get(ctx, 7)
	s.Require().Error(err)
	s.False(found)
}

func (s *CacheTestSuite) TestConcurrentAccess() {
	ctx := s.T().Context()
	raw := cache.NewInMemoryCache()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			s.NoError(raw.Set(ctx, key, []byte(key), 0))
			_, _, err := raw.Get(ctx, key)
			s.NoError(err)
		}()
	}
	wg.Wait()

	for i := range 5 {
		exists, err := raw.Exists(ctx, fmt.Sprintf("key-%d", i))
		s.Require().NoError(err)
		s.True(exists)
	}
}

func (s *CacheTestSuite) TestManager() {
	ctx := s.T().Context()
	m := cache.NewManager()

	_, ok := m.GetRawCache("translations")
	s.False(ok)

	m.AddCache("translations", cache.NewInMemoryCache())
	m.AddCache("other", cache.NewInMemoryCache())
	s.Equal([]string{"other", "translations"}, m.Names())

	typed, ok := cache.GetCache[string, string](m, "translations", nil)
	s.Require().True(ok)
	s.Require().NoError(typed.Set(ctx, "k", "v", 0))

	raw, ok := m.GetRawCache("translations")
	s.Require().True(ok)
	got, found, err := raw.Get(ctx, "k")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(`"v"`, string(got))

	s.Require().NoError(m.RemoveCache("translations"))
	_, ok = m.GetRawCache("translations")
	s.False(ok)

	s.Require().NoError(m.RemoveCache("absent"))
	s.Require().NoError(m.Close())
}
