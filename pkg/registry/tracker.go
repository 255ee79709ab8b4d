package registry

import "sync"

// Tracker follows the service registered under a single name. It is the
// lazily-created lookup handle consumers hold instead of querying the
// registry on every call: Get returns the current instance and stays correct
// as the service comes and goes.
type Tracker struct {
	name     string
	registry *Registry

	mu      sync.RWMutex
	current interface{}
	closed  bool

	removeListener func()
}

// Track opens a tracker on name. The tracker observes the current state
// immediately and every change afterwards until Close.
func (r *Registry) Track(name string) *Tracker {
	t := &Tracker{name: name, registry: r}

	// Snapshot and subscribe under one lock so no event is lost between
	// the two steps.
	r.mu.Lock()
	r.openTrackers++
	if reg, ok := r.services[name]; ok {
		t.current = reg.service
	}
	t.removeListener = r.addListenerLocked(func(ev Event) {
		if ev.Name != name {
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			return
		}
		switch ev.Type {
		case EventRegistered:
			if svc, ok := r.Get(name); ok {
				t.current = svc
			}
		case EventUnregistered:
			t.current = nil
		}
	})
	r.mu.Unlock()

	return t
}

// Name returns the tracked service name.
func (t *Tracker) Name() string {
	return t.name
}

// Get returns the current service instance, or nil when the service is not
// registered or the tracker is closed.
func (t *Tracker) Get() interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil
	}
	return t.current
}

// Close detaches the tracker from the registry. Closing twice is a no-op.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.current = nil
	remove := t.removeListener
	t.removeListener = nil
	t.mu.Unlock()

	if remove != nil {
		remove()
	}
	t.registry.trackerClosed()
}
