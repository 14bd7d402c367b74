package cache

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

type manager struct {
	mu     sync.RWMutex
	caches map[string]RawCache
}

// NewManager returns an empty Manager.
func NewManager() Manager {
	return &manager{caches: map[string]RawCache{}}
}

// AddCache registers c under name. A cache previously registered there is replaced, not closed.
func (m *manager) AddCache(name string, c RawCache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

func (m *manager) GetRawCache(name string) (RawCache, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	return c, ok
}

// Names lists the registered caches in sorted order.
func (m *manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RemoveCache unregisters and closes the named cache.
func (m *manager) RemoveCache(name string) error {
	m.mu.Lock()
	c, ok := m.caches[name]
	delete(m.caches, name)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Close()
}

// Close closes and unregisters every cache.
func (m *manager) Close() error {
	m.mu.Lock()
	caches := m.caches
	m.caches = map[string]RawCache{}
	m.mu.Unlock()

	var errs []error
	for name, c := range caches {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// GetCache wraps the named raw cache with JSON encoding.
func GetCache[K comparable, V any](m Manager, name string, key func(K) string) (Cache[K, V], bool) {
	raw, ok := m.GetRawCache(name)
	if !ok {
		return nil, false
	}
	return NewTyped[K, V](raw, key), true
}
