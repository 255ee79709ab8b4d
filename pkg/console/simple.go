package console

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	gopath "path"
	"strings"
	"sync"
	"time"

	"github.com/plugboard/plugboard/pkg/logger"
	"github.com/plugboard/plugboard/pkg/registry"
)

// SimplePlugin is an embeddable base for console plugins. It registers the
// plugin as a service, hands out lazily-created trackers for the services
// the plugin depends on, and serves bundled static resources under the
// plugin's /label/ namespace.
//
// Concrete plugins embed *SimplePlugin and usually override ServeHTTP,
// falling back to ServeResource for their static assets.
type SimplePlugin struct {
	label    string
	title    string
	category string
	css      []string

	resources fs.FS
	labelRes  string

	log *logger.Logger

	// One mutex serializes Register/Unregister and guards the tracker map.
	mu       sync.Mutex
	host     *registry.Registry
	reg      *registry.Registration
	trackers map[string]*registry.Tracker
}

// NewSimplePlugin creates a plugin base. label and title must be non-empty;
// category, css and resources are optional.
func NewSimplePlugin(label, title, category string, css []string, resources fs.FS) (*SimplePlugin, error) {
	if label == "" {
		return nil, fmt.Errorf("console: empty plugin label")
	}
	if title == "" {
		return nil, fmt.Errorf("console: plugin %s: empty title", label)
	}

	return &SimplePlugin{
		label:     label,
		title:     title,
		category:  category,
		css:       append([]string(nil), css...),
		resources: resources,
		labelRes:  "/" + label + "/",
		log:       logger.NewDefault(label),
		trackers:  make(map[string]*registry.Tracker),
	}, nil
}

// Label returns the URL segment the plugin is mounted under.
func (p *SimplePlugin) Label() string { return p.label }

// Title returns the page title.
func (p *SimplePlugin) Title() string { return p.title }

// Category returns the navigation category, possibly empty.
func (p *SimplePlugin) Category() string { return p.category }

// CSSReferences returns the additional stylesheets for the page.
func (p *SimplePlugin) CSSReferences() []string {
	return append([]string(nil), p.css...)
}

// Logger returns the plugin's logger.
func (p *SimplePlugin) Logger() *logger.Logger { return p.log }

// Register registers the plugin with the service registry under
// ServiceName(label), carrying its label, title and category as
// registration properties. Registering an already-registered plugin is an
// error; call Unregister first.
func (p *SimplePlugin) Register(host *registry.Registry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reg != nil {
		return fmt.Errorf("console: plugin already registered: %s", p.label)
	}

	props := map[string]string{
		PropLabel: p.label,
		PropTitle: p.title,
	}
	if p.category != "" {
		props[PropCategory] = p.category
	}

	reg, err := host.Register(ServiceName(p.label), p, props)
	if err != nil {
		return fmt.Errorf("console: register plugin %s: %w", p.label, err)
	}

	p.host = host
	p.reg = reg
	p.log.WithField("service", reg.Name()).Info("plugin registered")
	return nil
}

// Unregister closes every tracker created by Service and removes the plugin
// from the registry. A registry that has already shut down is tolerated.
// Unregistering an unregistered plugin is a no-op.
func (p *SimplePlugin) Unregister() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, tracker := range p.trackers {
		tracker.Close()
		delete(p.trackers, name)
	}

	if p.reg == nil {
		return nil
	}

	err := p.reg.Unregister()
	p.reg = nil
	p.host = nil
	if err != nil && !errors.Is(err, registry.ErrClosed) {
		return fmt.Errorf("console: unregister plugin %s: %w", p.label, err)
	}
	p.log.Info("plugin unregistered")
	return nil
}

// Registered reports whether the plugin currently holds a registration.
func (p *SimplePlugin) Registered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reg != nil
}

// Service returns the service registered under name, creating and caching a
// tracker on first use. It returns nil while the plugin is unregistered or
// the service is absent.
func (p *SimplePlugin) Service(name string) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.host == nil {
		return nil
	}

	tracker, ok := p.trackers[name]
	if !ok {
		tracker = p.host.Track(name)
		p.trackers[name] = tracker
	}
	return tracker.Get()
}

// Resource resolves a request path against the bundled resources. Only paths
// under the plugin's /label/ namespace resolve; everything else is (nil,
// false). Paths are cleaned first so they cannot escape the bundled files.
func (p *SimplePlugin) Resource(path string) (fs.File, bool) {
	if p.resources == nil || path == "" {
		return nil, false
	}

	cleaned := gopath.Clean(path)
	if !strings.HasPrefix(cleaned, p.labelRes) {
		return nil, false
	}

	rel := strings.TrimPrefix(cleaned, p.labelRes)
	if rel == "" {
		return nil, false
	}

	f, err := p.resources.Open(rel)
	if err != nil {
		return nil, false
	}
	return f, true
}

// ServeResource writes the bundled resource matching the request path and
// reports whether it handled the request.
func (p *SimplePlugin) ServeResource(w http.ResponseWriter, r *http.Request) bool {
	f, ok := p.Resource(r.URL.Path)
	if !ok {
		return false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "failed to read resource", http.StatusInternalServerError)
		return true
	}

	http.ServeContent(w, r, gopath.Base(r.URL.Path), time.Time{}, bytes.NewReader(data))
	return true
}

// ServeHTTP is the default handler: bundled resources only. Concrete plugins
// override this and fall back to ServeResource.
func (p *SimplePlugin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.ServeResource(w, r) {
		return
	}
	http.NotFound(w, r)
}
