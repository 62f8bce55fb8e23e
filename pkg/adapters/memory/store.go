package memory

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/aretw0/signaltree/pkg/domain"
)

// Store implements ports.Store in memory. Values live in a nested map
// addressed by dotted paths ("user.profile.name").
// Safe for concurrent use.
type Store struct {
	data map[string]any
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally seeded with data.
func NewStore(seed map[string]any) *Store {
	data := make(map[string]any, len(seed))
	for k, v := range seed {
		data[k] = clone(v)
	}
	return &Store{data: data}
}

// Get returns the value at path. Nested maps are returned as copies so
// callers can't mutate the store through them.
func (s *Store) Get(ctx context.Context, path string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := lookup(s.data, split(path))
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrKeyNotFound)
	}
	return clone(v), nil
}

// Set writes value at path, creating intermediate maps as needed.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	keys := split(path)
	if len(keys) == 0 {
		return fmt.Errorf("memory store: empty path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.data
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = clone(value)
	return nil
}

// Unset removes the value at path. Missing paths are ignored.
func (s *Store) Unset(ctx context.Context, path string) error {
	keys := split(path)
	if len(keys) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := lookup(s.data, keys[:len(keys)-1])
	if !ok {
		return nil
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, keys[len(keys)-1])
	}
	return nil
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data).(map[string]any)
}

func split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func lookup(root map[string]any, keys []string) (any, bool) {
	var cur any = root
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func clone(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := maps.Clone(m)
	for k, inner := range out {
		out[k] = clone(inner)
	}
	return out
}
