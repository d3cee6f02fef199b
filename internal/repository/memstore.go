package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/castrove/castrove/internal/castrove"
)

// memstore is a generic thread-safe in-memory key-value store backing the
// memory repository adapters.
type memstore[V any] struct {
	mu      sync.RWMutex
	data    map[string]V
	keyFunc func(V) string
}

func newMemstore[V any](keyFunc func(V) string) *memstore[V] {
	return &memstore[V]{
		data:    make(map[string]V),
		keyFunc: keyFunc,
	}
}

// set inserts or replaces the value, using keyFunc to derive the key.
func (s *memstore[V]) set(_ context.Context, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.keyFunc(v)] = v
}

// get returns the value for key, or castrove.ErrNotFound if absent.
func (s *memstore[V]) get(_ context.Context, key string) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		var zero V
		return zero, castrove.ErrNotFound
	}
	return v, nil
}

// delete removes the value for key. Returns castrove.ErrNotFound if absent.
func (s *memstore[V]) delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return castrove.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// has reports whether the key exists.
func (s *memstore[V]) has(_ context.Context, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// filter returns all values for which pred returns true, in ascending key
// order so callers get deterministic results.
func (s *memstore[V]) filter(_ context.Context, pred func(V) bool) []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k, v := range s.data {
		if pred == nil || pred(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.data[k])
	}
	return out
}

// all returns every stored value in ascending key order.
func (s *memstore[V]) all(ctx context.Context) []V {
	return s.filter(ctx, nil)
}
