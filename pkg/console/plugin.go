// Package console defines the console plugin contract and an embeddable base
// implementation that handles service registration, dependency tracking and
// bundled static resources.
package console

import (
	"net/http"

	"github.com/plugboard/plugboard/pkg/registry"
)

// Registration property keys a console plugin is registered under.
const (
	PropLabel    = "plugin.label"
	PropTitle    = "plugin.title"
	PropCategory = "plugin.category"
)

// ServiceNamePrefix prefixes the registry name of every console plugin.
const ServiceNamePrefix = "console:"

// Plugin is a mountable console page.
type Plugin interface {
	// Label is the URL segment the plugin is mounted under.
	Label() string

	// Title is the human-readable page title.
	Title() string

	// Category groups plugins in the console navigation. May be empty.
	Category() string

	// CSSReferences lists additional stylesheets the page pulls in.
	CSSReferences() []string

	http.Handler
}

// HealthChecker is implemented by plugins that report their own health.
type HealthChecker interface {
	HealthCheck() error
}

// Registrable is implemented by plugins that manage their own registry
// lifecycle; SimplePlugin satisfies it.
type Registrable interface {
	Register(reg *registry.Registry) error
	Unregister() error
}

// ServiceName returns the registry name a plugin with the given label is
// registered under.
func ServiceName(label string) string {
	return ServiceNamePrefix + label
}
