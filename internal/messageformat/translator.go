// Package messageformat renders ICU MessageFormat templates.
package messageformat

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/pitabwire/util"
)

// ErrUnknownKey is returned by Format for keys without a compiled message.
var ErrUnknownKey = errors.New("no message for key")

// Translator holds the compiled messages of one locale and namespace.
type Translator struct {
	locale   string
	messages map[string]*Message
	failures map[string]error
}

// Compile parses every template. Templates that fail to parse are skipped and reported by Failures.
func Compile(ctx context.Context, locale string, messages map[string]string) *Translator {
	log := util.Log(ctx).WithField("locale", locale)

	t := &Translator{
		locale:   locale,
		messages: make(map[string]*Message, len(messages)),
		failures: map[string]error{},
	}

	for key, template := range messages {
		m, err := Parse(locale, template)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("skipping message that does not compile")
			t.failures[key] = err
			continue
		}
		t.messages[key] = m
	}

	return t
}

func (t *Translator) Locale() string {
	return t.locale
}

// Has reports whether key compiled.
func (t *Translator) Has(key string) bool {
	_, ok := t.messages[key]
	return ok
}

// Failures returns the parse error of every skipped template by key.
func (t *Translator) Failures() map[string]error {
	return maps.Clone(t.failures)
}

// Format renders key, returning an error when it is unknown or cannot be rendered.
func (t *Translator) Format(key string, values Values) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	m, ok := t.messages[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return m.Format(values)
}

// Translate renders key. On any failure it logs and returns the key itself.
func (t *Translator) Translate(ctx context.Context, key string, values Values) string {
	out, err := t.Format(key, values)
	if err != nil {
		log := util.Log(ctx).WithError(err).WithField("key", key)
		if t != nil {
			log = log.WithField("locale", t.locale)
		}
		log.Warn("message could not be rendered")
		return key
	}
	return out
}
