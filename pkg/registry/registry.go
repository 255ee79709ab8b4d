// Package registry provides the service registry console plugins register
// with and resolve their dependencies from. It is a single flat namespace:
// one service instance per name, change notification via listeners, and
// lazily-evaluated trackers for consumers.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by mutating operations after Close. Callers tearing
// down during shutdown typically ignore it.
var ErrClosed = errors.New("registry: closed")

// EventType discriminates registry events.
type EventType string

const (
	// EventRegistered fires after a service is added.
	EventRegistered EventType = "registered"

	// EventUnregistered fires after a service is removed.
	EventUnregistered EventType = "unregistered"
)

// Event describes one registry change.
type Event struct {
	Type       EventType
	Name       string
	InstanceID string
	Properties map[string]string
}

// Listener receives registry events. Listeners are invoked outside the
// registry lock and may call back into the registry.
type Listener func(Event)

// ServiceInfo is a point-in-time snapshot of one registration.
type ServiceInfo struct {
	Name       string            `json:"name"`
	InstanceID string            `json:"instance_id"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Registry is the service registry. The zero value is not usable; use New.
type Registry struct {
	mu           sync.RWMutex
	services     map[string]*Registration
	listeners    map[int]Listener
	nextListener int
	openTrackers int
	closed       bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		services:  make(map[string]*Registration),
		listeners: make(map[int]Listener),
	}
}

// Register adds a service under name and returns its registration handle.
// Registering a duplicate name or registering on a closed registry is an
// error. Properties are copied; a nil map is allowed.
func (r *Registry) Register(name string, service interface{}, properties map[string]string) (*Registration, error) {
	if name == "" {
		return nil, fmt.Errorf("registry: empty service name")
	}
	if service == nil {
		return nil, fmt.Errorf("registry: nil service: %s", name)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := r.services[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("registry: service already registered: %s", name)
	}

	reg := &Registration{
		registry:   r,
		name:       name,
		instanceID: uuid.New().String(),
		properties: copyProperties(properties),
		service:    service,
	}
	r.services[name] = reg
	listeners := r.snapshotListeners()
	r.mu.Unlock()

	dispatch(listeners, Event{
		Type:       EventRegistered,
		Name:       name,
		InstanceID: reg.instanceID,
		Properties: reg.Properties(),
	})
	return reg, nil
}

// Get returns the service registered under name.
func (r *Registry) Get(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.services[name]
	if !ok {
		return nil, false
	}
	return reg.service, true
}

// List returns a snapshot of all registrations sorted by name.
func (r *Registry) List() []ServiceInfo {
	r.mu.RLock()
	infos := make([]ServiceInfo, 0, len(r.services))
	for _, reg := range r.services {
		infos = append(infos, ServiceInfo{
			Name:       reg.name,
			InstanceID: reg.instanceID,
			Properties: copyProperties(reg.properties),
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Size returns the number of registered services.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// OpenTrackers returns the number of trackers created by Track and not yet
// closed.
func (r *Registry) OpenTrackers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openTrackers
}

func (r *Registry) trackerClosed() {
	r.mu.Lock()
	r.openTrackers--
	r.mu.Unlock()
}

// AddListener subscribes to registry events and returns a removal function.
func (r *Registry) AddListener(l Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addListenerLocked(l)
}

func (r *Registry) addListenerLocked(l Listener) func() {
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = l

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Close unregisters every service, notifies listeners and marks the registry
// closed. Further Register and Unregister calls return ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true

	removed := make([]*Registration, 0, len(r.services))
	for _, reg := range r.services {
		removed = append(removed, reg)
	}
	r.services = make(map[string]*Registration)
	listeners := r.snapshotListeners()
	r.mu.Unlock()

	sort.Slice(removed, func(i, j int) bool { return removed[i].name < removed[j].name })
	for _, reg := range removed {
		dispatch(listeners, Event{
			Type:       EventUnregistered,
			Name:       reg.name,
			InstanceID: reg.instanceID,
			Properties: reg.Properties(),
		})
	}
}

// Closed reports whether the registry has been shut down.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// unregister removes reg if it is still the current registration for its
// name. Called from Registration.Unregister.
func (r *Registry) unregister(reg *Registration) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	current, ok := r.services[reg.name]
	if !ok || current != reg {
		// Already replaced or removed; nothing to do.
		r.mu.Unlock()
		return nil
	}
	delete(r.services, reg.name)
	listeners := r.snapshotListeners()
	r.mu.Unlock()

	dispatch(listeners, Event{
		Type:       EventUnregistered,
		Name:       reg.name,
		InstanceID: reg.instanceID,
		Properties: reg.Properties(),
	})
	return nil
}

func (r *Registry) snapshotListeners() []Listener {
	listeners := make([]Listener, 0, len(r.listeners))
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, r.listeners[id])
	}
	return listeners
}

func dispatch(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}

func copyProperties(props map[string]string) map[string]string {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// Registration is the handle returned by Register.
type Registration struct {
	registry   *Registry
	name       string
	instanceID string
	properties map[string]string
	service    interface{}
}

// Name returns the service name.
func (reg *Registration) Name() string {
	return reg.name
}

// InstanceID returns the unique ID assigned at registration time.
func (reg *Registration) InstanceID() string {
	return reg.instanceID
}

// Properties returns a copy of the registration properties.
func (reg *Registration) Properties() map[string]string {
	return copyProperties(reg.properties)
}

// Unregister removes the service from the registry. Unregistering twice is a
// no-op; unregistering after the registry has shut down returns ErrClosed.
func (reg *Registration) Unregister() error {
	return reg.registry.unregister(reg)
}
