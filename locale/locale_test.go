package locale_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitabwire/localesync/locale"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "fr", locale.Normalize("  FR "))
	assert.Equal(t, "", locale.Normalize("   "))
	assert.Equal(t, "ui", locale.NormalizeNamespace(" UI"))
	assert.Equal(t, locale.DefaultNamespace, locale.NormalizeNamespace(""))
	assert.Equal(t, locale.DefaultNamespace, locale.NormalizeNamespace("  "))
}

func TestNewSet(t *testing.T) {
	testCases := []struct {
		name      string
		def       string
		supported []string
		wantErr   error
		want      []string
	}{
		{name: "normalizes and dedupes", def: " EN", supported: []string{"en", "FR ", "fr", ""}, want: []string{"en", "fr"}},
		{name: "default missing", def: "de", supported: []string{"en", "fr"}, wantErr: locale.ErrDefaultUnsupported},
		{name: "empty", def: "en", supported: nil, wantErr: locale.ErrNoSupportedLocales},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := locale.NewSet(tc.def, tc.supported)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, set.Supported())
			assert.Equal(t, "en", set.Default())
		})
	}
}

func TestSetMatch(t *testing.T) {
	set, err := locale.NewSet("en", []string{"fr", "en", "es"})
	require.NoError(t, err)

	assert.True(t, set.IsSupported("ES"))
	assert.False(t, set.IsSupported("de"))

	assert.Equal(t, "fr", set.Match("fr"))
	assert.Equal(t, "fr", set.Match("fr-CA,fr;q=0.9,en;q=0.5"))
	assert.Equal(t, "es", set.Match("", "es-ES"))
	assert.Equal(t, "en", set.Match("de-DE"))
	assert.Equal(t, "en", set.Match())

	req := httptest.NewRequest("GET", "/?lang=es", nil)
	req.Header.Set("Accept-Language", "fr")
	assert.Equal(t, "es", set.MatchRequest(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "fr-FR")
	assert.Equal(t, "fr", set.MatchRequest(req))
}
