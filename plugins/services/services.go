// Package services provides the console plugin that browses the host's
// service registry.
package services

import (
	"embed"
	"net/http"
	"strings"

	"github.com/plugboard/plugboard/internal/httputil"
	"github.com/plugboard/plugboard/pkg/console"
	"github.com/plugboard/plugboard/pkg/registry"
)

//go:embed assets
var assets embed.FS

const (
	// Label is the URL segment the plugin mounts under.
	Label = "services"

	title    = "Services"
	category = "Runtime"
)

// Plugin lists the registrations of the host registry as JSON and serves its
// bundled assets.
type Plugin struct {
	*console.SimplePlugin

	host *registry.Registry
}

// listing is the wire format of the service listing.
type listing struct {
	Count    int                    `json:"count"`
	Services []registry.ServiceInfo `json:"services"`
}

// New creates the services plugin over the given registry.
func New(host *registry.Registry) (*Plugin, error) {
	base, err := console.NewSimplePlugin(Label, title, category,
		[]string{"/console/" + Label + "/assets/services.css"}, assets)
	if err != nil {
		return nil, err
	}
	return &Plugin{SimplePlugin: base, host: host}, nil
}

// ServeHTTP answers the plugin root with the registry listing and defers to
// the bundled assets for everything else.
func (p *Plugin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.ServeResource(w, r) {
		return
	}

	if isRoot(r.URL.Path) {
		infos := p.host.List()
		httputil.WriteJSON(w, http.StatusOK, listing{
			Count:    len(infos),
			Services: infos,
		})
		return
	}

	http.NotFound(w, r)
}

func isRoot(path string) bool {
	trimmed := strings.TrimSuffix(path, "/")
	return trimmed == "/"+Label || trimmed == ""
}
