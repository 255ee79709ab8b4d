// Package sysinfo provides the console plugin that reports host, memory and
// CPU statistics of the machine running the console.
package sysinfo

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/plugboard/plugboard/internal/httputil"
	"github.com/plugboard/plugboard/internal/store"
	"github.com/plugboard/plugboard/pkg/console"
)

//go:embed assets
var assets embed.FS

const (
	// Label is the URL segment the plugin mounts under.
	Label = "sysinfo"

	title    = "System Information"
	category = "Runtime"

	snapshotKey = "sysinfo/last"
)

// Snapshot is one point-in-time reading of the host.
type Snapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Hostname   string    `json:"hostname"`
	Platform   string    `json:"platform,omitempty"`
	UptimeSecs uint64    `json:"uptime_secs"`

	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`

	MemTotal       uint64  `json:"mem_total"`
	MemUsed        uint64  `json:"mem_used"`
	MemUsedPercent float64 `json:"mem_used_percent"`

	CPUPercent float64 `json:"cpu_percent"`
}

// Plugin serves system snapshots. When a store service is registered it also
// persists the latest snapshot so it survives restarts.
type Plugin struct {
	*console.SimplePlugin
}

// New creates the sysinfo plugin.
func New() (*Plugin, error) {
	base, err := console.NewSimplePlugin(Label, title, category,
		[]string{"/console/" + Label + "/assets/sysinfo.css"}, assets)
	if err != nil {
		return nil, err
	}
	return &Plugin{SimplePlugin: base}, nil
}

// ServeHTTP answers the plugin root with a fresh snapshot and defers to the
// bundled assets for everything else.
func (p *Plugin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.ServeResource(w, r) {
		return
	}

	if !isRoot(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	snap := p.collect(r.Context())
	p.persist(r.Context(), snap)
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// collect gathers a snapshot, tolerating probes that fail on restricted
// platforms.
func (p *Plugin) collect(ctx context.Context) Snapshot {
	snap := Snapshot{
		Timestamp:    time.Now().UTC(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform
		snap.UptimeSecs = info.Uptime
	} else {
		p.Logger().WithError(err).Warn("host probe failed")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemTotal = vm.Total
		snap.MemUsed = vm.Used
		snap.MemUsedPercent = vm.UsedPercent
	} else {
		p.Logger().WithError(err).Warn("memory probe failed")
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	return snap
}

// persist writes the snapshot to the store service when one is registered.
// A missing store is not an error; the plugin works without it.
func (p *Plugin) persist(ctx context.Context, snap Snapshot) {
	svc := p.Service(store.ServiceName)
	if svc == nil {
		return
	}
	st, ok := svc.(store.Store)
	if !ok {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := st.Put(ctx, snapshotKey, data); err != nil {
		p.Logger().WithError(err).Warn("persist snapshot failed")
	}
}

// LastPersisted returns the most recent snapshot written to the store, if a
// store is registered and holds one.
func (p *Plugin) LastPersisted(ctx context.Context) (Snapshot, bool) {
	svc := p.Service(store.ServiceName)
	if svc == nil {
		return Snapshot{}, false
	}
	st, ok := svc.(store.Store)
	if !ok {
		return Snapshot{}, false
	}

	data, err := st.Get(ctx, snapshotKey)
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

func isRoot(path string) bool {
	trimmed := strings.TrimSuffix(path, "/")
	return trimmed == "/"+Label || trimmed == ""
}
