package supabase //nolint:testpackage // exercises isNotFound directly

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/localesync/client"
	"github.com/pitabwire/localesync/storage"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func (f *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer anon-key" || r.Header.Get("Apikey") != "anon-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
			return
		}
		_, _ = w.Write(data)
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.headers[r.URL.Path] = r.Header.Clone()
		_, _ = w.Write([]byte(`{"Key":"ok"}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type SupabaseSuite struct {
	suite.Suite
	fake   *fakeStorage
	server *httptest.Server
	bucket *Bucket
}

func TestSupabaseSuite(t *testing.T) {
	suite.Run(t, new(SupabaseSuite))
}

func (s *SupabaseSuite) SetupTest() {
	s.fake = &fakeStorage{objects: map[string][]byte{}, headers: map[string]http.Header{}}
	s.server = httptest.NewServer(s.fake)

	b, err := New(s.server.URL+"/", "i18ndemo", "anon-key", client.NewManager(s.T().Context()))
	s.Require().NoError(err)
	s.bucket = b
}

func (s *SupabaseSuite) TearDownTest() {
	s.server.Close()
}

func (s *SupabaseSuite) TestWriteThenRead() {
	ctx := s.T().Context()

	err := s.bucket.Write(ctx, "locales/fr/default.json", []byte(`{"hello":"Bonjour"}`), storage.WriteOptions{
		ContentType:  "application/json",
		CacheControl: "max-age=3600",
	})
	s.Require().NoError(err)

	h := s.fake.headers["/storage/v1/object/i18ndemo/locales/fr/default.json"]
	s.Require().NotNil(h)
	s.Equal("true", h.Get("X-Upsert"))
	s.Equal("application/json", h.Get("Content-Type"))
	s.Equal("max-age=3600", h.Get("Cache-Control"))

	data, err := s.bucket.Read(ctx, "locales/fr/default.json")
	s.Require().NoError(err)
	s.JSONEq(`{"hello":"Bonjour"}`, string(data))
}

func (s *SupabaseSuite) TestCallsHonourContextDeadline() {
	stalled := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	s.T().Cleanup(stalled.Close)

	b, err := New(stalled.URL, "i18ndemo", "anon-key", client.NewManager(s.T().Context()))
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.T().Context(), 100*time.Millisecond)
	defer cancel()
	_, err = b.Read(ctx, "locales/fr/default.json")
	s.Require().ErrorIs(err, context.DeadlineExceeded)

	ctx, cancel = context.WithTimeout(s.T().Context(), 100*time.Millisecond)
	defer cancel()
	err = b.Write(ctx, "locales/fr/default.json", []byte(`{}`), storage.WriteOptions{ContentType: "application/json"})
	s.Require().ErrorIs(err, context.DeadlineExceeded)
}

func (s *SupabaseSuite) TestReadMissing() {
	_, err := s.bucket.Read(s.T().Context(), "locales/de/default.json")
	s.Require().ErrorIs(err, storage.ErrNotFound)
}

func (s *SupabaseSuite) TestUnauthorizedIsStatusError() {
	b, err := New(s.server.URL, "i18ndemo", "wrong", client.NewManager(s.T().Context()))
	s.Require().NoError(err)

	_, err = b.Read(s.T().Context(), "locales/fr/default.json")
	var statusErr *StatusError
	s.Require().ErrorAs(err, &statusErr)
	s.Equal(http.StatusUnauthorized, statusErr.StatusCode)
	s.NotErrorIs(err, storage.ErrNotFound)
}

func (s *SupabaseSuite) TestOpenViaRegistry() {
	b, err := storage.Open(s.T().Context(), s.server.URL, storage.OpenOptions{Bucket: "i18ndemo", Key: "anon-key"})
	s.Require().NoError(err)
	s.IsType(&Bucket{}, b)

	_, err = storage.Open(s.T().Context(), s.server.URL, storage.OpenOptions{})
	s.Require().ErrorIs(err, ErrMissingBucket)
}

func (s *SupabaseSuite) TestIsNotFound() {
	s.True(isNotFound(http.StatusNotFound, nil))
	s.True(isNotFound(http.StatusBadRequest, []byte(`{"statusCode":"404"}`)))
	s.True(isNotFound(http.StatusBadRequest, []byte(`Object Not Found`)))
	s.False(isNotFound(http.StatusInternalServerError, []byte(`boom`)))
}
