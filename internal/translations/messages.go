// Package translations loads per-(locale, namespace) message maps from object storage
// and keeps them for the life of the process.
package translations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFlatObject is returned by Parse for documents that are not a flat object of strings.
var ErrNotFlatObject = errors.New("translations must be a flat JSON object of strings")

// MessageMap maps a message key to its ICU template.
type MessageMap map[string]string

// Parse decodes a resource file.
func Parse(data []byte) (MessageMap, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotFlatObject
	}

	var m MessageMap
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFlatObject, err)
	}
	if m == nil {
		m = MessageMap{}
	}
	return m, nil
}

// Marshal encodes m the way resource files are stored. Keys are sorted.
func Marshal(m MessageMap) ([]byte, error) {
	if m == nil {
		m = MessageMap{}
	}
	return json.MarshalIndent(m, "", "  ")
}

// Clone returns an independent copy.
func (m MessageMap) Clone() MessageMap {
	out := make(MessageMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
