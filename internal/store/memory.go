package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/plugboard/plugboard/internal/errors"
	"github.com/plugboard/plugboard/pkg/extension"
)

func init() {
	extension.Default.MustContribute(ProvidersPoint, extension.Extension{
		Source: "internal/store",
		Attributes: map[string]string{
			extension.AliasAttribute: "memory",
			"description":            "in-process map store",
		},
		Factory: func() interface{} { return MemoryProvider{} },
	})
}

// MemoryProvider opens in-process stores. The DSN is ignored.
type MemoryProvider struct{}

// Open creates an empty in-memory store.
func (MemoryProvider) Open(_ context.Context, _ string) (Store, error) {
	return NewMemoryStore(), nil
}

// MemoryStore is a mutex-guarded map store. Intended for development and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, errors.NotFound("key", key)
	}
	return append([]byte(nil), value...), nil
}

// Put stores value under key, replacing any previous value.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// List returns all keys with the given prefix, sorted.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Health reports whether the store is usable.
func (s *MemoryStore) Health(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.Internal("memory store closed")
	}
	return nil
}

// Close marks the store closed and drops its contents.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = make(map[string][]byte)
	return nil
}
