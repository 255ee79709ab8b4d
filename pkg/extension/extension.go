// Package extension provides the extension registry: named extension points
// that compiled-in packages contribute implementations to, each declared
// under an alias. Consumers resolve a provider by point ID and alias without
// knowing which package supplies it.
package extension

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// AliasAttribute is the attribute every extension must declare.
const AliasAttribute = "alias"

var (
	// ErrPointNotFound is wrapped by lookups against an unknown point.
	ErrPointNotFound = errors.New("extension point not found")

	// ErrAliasNotFound is wrapped by lookups when no extension on the point
	// declares the requested alias.
	ErrAliasNotFound = errors.New("no extension for alias")
)

// Extension is one contribution to an extension point.
type Extension struct {
	// Source names the contributing package or plugin, for diagnostics.
	Source string

	// Attributes carries the declared configuration, including AliasAttribute.
	Attributes map[string]string

	// Factory instantiates the declared implementation.
	Factory func() interface{}
}

// Alias returns the declared alias attribute.
func (e Extension) Alias() string {
	return e.Attributes[AliasAttribute]
}

// Attribute returns a declared attribute value, or "".
func (e Extension) Attribute(key string) string {
	return e.Attributes[key]
}

// Point is an extension point: an ordered list of contributions.
type Point struct {
	id         string
	extensions []Extension
}

// ID returns the point identifier.
func (p *Point) ID() string {
	return p.id
}

// Extensions returns the contributions in contribution order.
func (p *Point) Extensions() []Extension {
	out := make([]Extension, len(p.extensions))
	copy(out, p.extensions)
	return out
}

// Registry holds extension points. Use Default for process-wide
// contributions from init functions, or NewRegistry for isolated instances.
type Registry struct {
	mu        sync.RWMutex
	points    map[string]*Point
	factories map[string]func() interface{}
}

// Default is the process-wide extension registry.
var Default = NewRegistry()

// NewRegistry creates an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{
		points:    make(map[string]*Point),
		factories: make(map[string]func() interface{}),
	}
}

// Contribute adds an extension to the point, creating the point on first
// use. The extension must declare an alias and a factory; a duplicate alias
// on the same point is an error.
func (r *Registry) Contribute(pointID string, ext Extension) error {
	if pointID == "" {
		return fmt.Errorf("extension: empty point ID")
	}
	alias := ext.Alias()
	if alias == "" {
		return fmt.Errorf("extension: point %s: missing %q attribute", pointID, AliasAttribute)
	}
	if ext.Factory == nil {
		return fmt.Errorf("extension: point %s: alias %s: nil factory", pointID, alias)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.points[pointID]
	if !ok {
		p = &Point{id: pointID}
		r.points[pointID] = p
	}
	for _, existing := range p.extensions {
		if existing.Alias() == alias {
			return fmt.Errorf("extension: point %s: alias already contributed: %s", pointID, alias)
		}
	}
	p.extensions = append(p.extensions, ext)
	return nil
}

// MustContribute is Contribute for init functions; it panics on error.
func (r *Registry) MustContribute(pointID string, ext Extension) {
	if err := r.Contribute(pointID, ext); err != nil {
		panic(err)
	}
}

// Point returns the named extension point.
func (r *Registry) Point(pointID string) (*Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.points[pointID]
	if !ok {
		return nil, false
	}
	// Return a snapshot so callers never observe later contributions.
	return &Point{id: p.id, extensions: append([]Extension(nil), p.extensions...)}, true
}

// Points returns all point IDs in sorted order.
func (r *Registry) Points() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.points))
	for id := range r.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProviderForAlias resolves and instantiates the provider declared under
// alias on the given point. The first matching contribution wins; exactly
// one instance is created per call.
func (r *Registry) ProviderForAlias(pointID, alias string) (interface{}, error) {
	p, ok := r.Point(pointID)
	if !ok {
		return nil, fmt.Errorf("extension: %w: %s", ErrPointNotFound, pointID)
	}

	for _, ext := range p.Extensions() {
		if ext.Alias() == alias {
			return ext.Factory(), nil
		}
	}
	return nil, fmt.Errorf("extension: point %s: %w: %s", pointID, ErrAliasNotFound, alias)
}

// RegisterFactory makes a named factory available to manifest-declared
// extensions. Duplicate names are an error.
func (r *Registry) RegisterFactory(name string, factory func() interface{}) error {
	if name == "" || factory == nil {
		return fmt.Errorf("extension: invalid factory registration: %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("extension: factory already registered: %s", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *Registry) factory(name string) (func() interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}
