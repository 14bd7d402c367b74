// Package locale normalizes language codes and namespaces and holds the
// process-wide set of supported locales.
package locale

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// DefaultNamespace is used whenever a namespace is not specified.
const DefaultNamespace = "default"

var (
	ErrNoSupportedLocales = errors.New("no supported locales configured")
	ErrDefaultUnsupported = errors.New("default locale must be one of the supported locales")
)

// Normalize trims and lower-cases a language code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NormalizeNamespace trims and lower-cases a namespace, falling back to DefaultNamespace.
func NormalizeNamespace(namespace string) string {
	ns := strings.ToLower(strings.TrimSpace(namespace))
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

// Set is the fixed collection of locales the process serves.
type Set struct {
	def       string
	supported []string
	ordered   []string
	matcher   language.Matcher
}

// NewSet builds a Set. The default locale must belong to supported.
func NewSet(defaultLocale string, supported []string) (*Set, error) {
	def := Normalize(defaultLocale)

	var codes []string
	for _, code := range supported {
		code = Normalize(code)
		if code == "" || slices.Contains(codes, code) {
			continue
		}
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return nil, ErrNoSupportedLocales
	}

	if !slices.Contains(codes, def) {
		return nil, fmt.Errorf("%w: %q not in [%s]", ErrDefaultUnsupported, def, strings.Join(codes, ", "))
	}

	// the matcher falls back to its first tag, so the default leads
	ordered := append([]string{def}, slices.DeleteFunc(slices.Clone(codes), func(c string) bool { return c == def })...)
	tags := make([]language.Tag, 0, len(ordered))
	for _, code := range ordered {
		tags = append(tags, language.Make(code))
	}

	return &Set{
		def:       def,
		supported: codes,
		ordered:   ordered,
		matcher:   language.NewMatcher(tags),
	}, nil
}

// Default returns the default locale.
func (s *Set) Default() string {
	return s.def
}

// Supported returns the supported locales in configured order.
func (s *Set) Supported() []string {
	return slices.Clone(s.supported)
}

// IsSupported reports whether code, once normalized, is a supported locale.
func (s *Set) IsSupported(code string) bool {
	return slices.Contains(s.supported, Normalize(code))
}

// Match resolves the preferred supported locale for the given language preferences,
// each of which may itself be an Accept-Language header value.
func (s *Set) Match(preferences ...string) string {
	var desired []language.Tag
	for _, pref := range preferences {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		if s.IsSupported(pref) {
			desired = append(desired, language.Make(Normalize(pref)))
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		desired = append(desired, tags...)
	}

	if len(desired) == 0 {
		return s.def
	}

	_, index, confidence := s.matcher.Match(desired...)
	if confidence == language.No {
		return s.def
	}
	return s.ordered[index]
}

// MatchRequest resolves the locale for an HTTP request from its lang query
// parameter and its Accept-Language header, in that order of preference.
func (s *Set) MatchRequest(req *http.Request) string {
	return s.Match(req.URL.Query().Get("lang"), req.Header.Get("Accept-Language"))
}
