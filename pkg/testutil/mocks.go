// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// MockStore is an in-memory store with injectable failures, for tests that
// exercise store error paths.
type MockStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// HealthErr, when set, is returned by Health.
	HealthErr error

	// PutErr, when set, is returned by Put.
	PutErr error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (m *MockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return append([]byte(nil), v...), nil
}

// Put stores value under key.
func (m *MockStore) Put(_ context.Context, key string, value []byte) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MockStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// List returns the keys with the given prefix, sorted.
func (m *MockStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Health returns HealthErr, or an error after Close.
func (m *MockStore) Health(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store closed")
	}
	return m.HealthErr
}

// Close marks the store closed.
func (m *MockStore) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored entries.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// StaticPlugin is a minimal console plugin with fixed metadata, for tests
// that only need something mountable.
type StaticPlugin struct {
	PluginLabel    string
	PluginTitle    string
	PluginCategory string
	CSS            []string

	// Status is the response code ServeHTTP answers with; 0 means 200.
	Status int
}

// Label returns the plugin label.
func (p *StaticPlugin) Label() string { return p.PluginLabel }

// Title returns the plugin title.
func (p *StaticPlugin) Title() string { return p.PluginTitle }

// Category returns the plugin category.
func (p *StaticPlugin) Category() string { return p.PluginCategory }

// CSSReferences returns the plugin stylesheets.
func (p *StaticPlugin) CSSReferences() []string { return p.CSS }

// ServeHTTP answers every request with Status and the plugin label.
func (p *StaticPlugin) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := p.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(p.PluginLabel))
}
