// Package api wires the HTTP endpoints of the service.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/internal/messageformat"
	"github.com/pitabwire/localesync/internal/translations"
	"github.com/pitabwire/localesync/locale"
)

const (
	WebhookPath = "/api/lokalise-webhooks"
	UploadPath  = "/api/upload-to-lokalise"
)

// Dependencies are the collaborators behind the routes. Nil handlers are not mounted.
type Dependencies struct {
	Webhook http.Handler
	Upload  http.Handler
	Loader  *translations.Loader
	Locales *locale.Set
}

// NewRouter builds the route table.
func NewRouter(deps Dependencies) *RouteRegistry {
	r := NewRouteRegistry()

	if deps.Webhook != nil {
		r.HandleRoute(http.MethodPost, WebhookPath, "webhook", deps.Webhook)
	}
	if deps.Upload != nil {
		r.HandleRoute(http.MethodPost, UploadPath, "upload", deps.Upload)
	}

	if deps.Loader != nil && deps.Locales != nil {
		t := &translationsAPI{loader: deps.Loader, locales: deps.Locales}
		r.HandleRoute(http.MethodGet, "/api/translations/{locale}/{namespace}", "translations",
			http.HandlerFunc(t.messages))
		r.HandleRoute(http.MethodGet, "/api/translations/{locale}/{namespace}/{key}", "translate",
			http.HandlerFunc(t.translate))
	}

	if deps.Locales != nil {
		l := &localesAPI{locales: deps.Locales}
		r.HandleRoute(http.MethodGet, "/api/locales", "locales", http.HandlerFunc(l.list))
		r.HandleRoute(http.MethodGet, "/api/locales/match", "locale-match", http.HandlerFunc(l.match))
	}

	return r
}

type translationsAPI struct {
	loader  *translations.Loader
	locales *locale.Set
}

func (t *translationsAPI) supported(w http.ResponseWriter, r *http.Request) (string, bool) {
	loc := locale.Normalize(r.PathValue("locale"))
	if !t.locales.IsSupported(loc) {
		writeJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "Unsupported locale"})
		return "", false
	}
	return loc, true
}

func (t *translationsAPI) messages(w http.ResponseWriter, r *http.Request) {
	loc, ok := t.supported(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, t.loader.Get(r.Context(), loc, r.PathValue("namespace")))
}

func (t *translationsAPI) translate(w http.ResponseWriter, r *http.Request) {
	loc, ok := t.supported(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	key := r.PathValue("key")

	values := messageformat.Values{}
	for name, v := range r.URL.Query() {
		if len(v) > 0 {
			values[name] = v[0]
		}
	}

	tr := t.loader.Translator(ctx, loc, r.PathValue("namespace"))
	writeJSON(ctx, w, http.StatusOK, map[string]string{
		"key":     key,
		"locale":  loc,
		"message": tr.Translate(ctx, key, values),
	})
}

type localesAPI struct {
	locales *locale.Set
}

func (l *localesAPI) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"default":   l.locales.Default(),
		"supported": l.locales.Supported(),
	})
}

func (l *localesAPI) match(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"locale": l.locales.MatchRequest(r)})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		util.Log(ctx).WithError(err).Debug("response write failed")
	}
}
