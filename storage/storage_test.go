package storage_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitabwire/localesync/storage"
)

type stubBucket struct{ storage.Bucket }

func TestOpenDispatchesByScheme(t *testing.T) {
	var got storage.OpenOptions
	storage.Register("stub", func(_ context.Context, u *url.URL, opts storage.OpenOptions) (storage.Bucket, error) {
		assert.Equal(t, "bucket-host", u.Host)
		got = opts
		return stubBucket{}, nil
	})

	b, err := storage.Open(t.Context(), "STUB://bucket-host", storage.OpenOptions{Bucket: "i18ndemo"})
	require.NoError(t, err)
	assert.IsType(t, stubBucket{}, b)
	assert.Equal(t, "i18ndemo", got.Bucket)
	assert.Contains(t, storage.Schemes(), "stub")
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := storage.Open(t.Context(), "gopher://nowhere", storage.OpenOptions{})
	require.ErrorIs(t, err, storage.ErrUnsupportedScheme)

	_, err = storage.Open(t.Context(), "://bad", storage.OpenOptions{})
	require.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "locales/fr/default.json", storage.ObjectKey("locales", "fr", "default"))
	assert.Equal(t, "locales/es/ui.json", storage.ObjectKey("/locales/", "es", "ui"))
}
