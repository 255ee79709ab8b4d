// Package events provides the console plugin that exposes registry change
// events, both as a bounded backlog and as a live websocket stream.
package events

import (
	"embed"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plugboard/plugboard/internal/httputil"
	"github.com/plugboard/plugboard/pkg/console"
	"github.com/plugboard/plugboard/pkg/registry"
)

//go:embed assets
var assets embed.FS

const (
	// Label is the URL segment the plugin mounts under.
	Label = "events"

	title    = "Registry Events"
	category = "Runtime"

	// backlogSize bounds the retained event history.
	backlogSize = 64

	// subscriberBuffer bounds each websocket's send queue. Slow consumers
	// lose events rather than stalling the registry.
	subscriberBuffer = 32

	writeTimeout = 10 * time.Second
)

// Record is one registry event as seen on the wire.
type Record struct {
	Seq        uint64             `json:"seq"`
	Time       time.Time          `json:"time"`
	Type       registry.EventType `json:"type"`
	Name       string             `json:"name"`
	InstanceID string             `json:"instance_id"`
	Properties map[string]string  `json:"properties,omitempty"`
}

// Plugin records registry events and streams them to websocket clients.
type Plugin struct {
	*console.SimplePlugin

	upgrader websocket.Upgrader

	mu             sync.Mutex
	seq            uint64
	backlog        []Record
	subscribers    map[int]chan Record
	nextSubscriber int
	removeListener func()
}

// New creates the events plugin and starts recording events from host.
func New(host *registry.Registry) (*Plugin, error) {
	base, err := console.NewSimplePlugin(Label, title, category,
		[]string{"/console/" + Label + "/assets/events.css"}, assets)
	if err != nil {
		return nil, err
	}

	p := &Plugin{
		SimplePlugin: base,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		subscribers: make(map[int]chan Record),
	}
	p.removeListener = host.AddListener(p.record)
	return p, nil
}

// Unregister stops recording before releasing the base registration.
func (p *Plugin) Unregister() error {
	p.mu.Lock()
	if p.removeListener != nil {
		p.removeListener()
		p.removeListener = nil
	}
	for id, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, id)
	}
	p.mu.Unlock()

	return p.SimplePlugin.Unregister()
}

// record appends the event to the backlog and fans it out to subscribers.
func (p *Plugin) record(ev registry.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	rec := Record{
		Seq:        p.seq,
		Time:       time.Now().UTC(),
		Type:       ev.Type,
		Name:       ev.Name,
		InstanceID: ev.InstanceID,
		Properties: ev.Properties,
	}

	p.backlog = append(p.backlog, rec)
	if len(p.backlog) > backlogSize {
		p.backlog = p.backlog[len(p.backlog)-backlogSize:]
	}

	for _, ch := range p.subscribers {
		select {
		case ch <- rec:
		default:
			// Queue full: the client is too slow, drop the event.
		}
	}
}

// Backlog returns a copy of the retained events, oldest first.
func (p *Plugin) Backlog() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record(nil), p.backlog...)
}

// subscribe registers a send queue that first replays the backlog.
func (p *Plugin) subscribe() (<-chan Record, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Record, subscriberBuffer+len(p.backlog))
	for _, rec := range p.backlog {
		ch <- rec
	}

	id := p.nextSubscriber
	p.nextSubscriber++
	p.subscribers[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subscribers[id]; ok {
			delete(p.subscribers, id)
			close(ch)
		}
	}
}

// ServeHTTP answers the plugin root with the backlog, upgrades /events/ws to
// a live stream and defers to the bundled assets for everything else.
func (p *Plugin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.ServeResource(w, r) {
		return
	}

	switch {
	case isRoot(r.URL.Path):
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"events": p.Backlog(),
		})
	case strings.TrimSuffix(r.URL.Path, "/") == "/"+Label+"/ws":
		p.serveWebsocket(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (p *Plugin) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.Logger().WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, cancel := p.subscribe()
	defer cancel()

	// Drain client frames so close handshakes are noticed; the stream is
	// one-way otherwise.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func isRoot(path string) bool {
	trimmed := strings.TrimSuffix(path, "/")
	return trimmed == "/"+Label || trimmed == ""
}
