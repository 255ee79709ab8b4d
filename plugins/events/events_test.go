package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plugboard/plugboard/pkg/registry"
)

func TestRecordsRegistryEvents(t *testing.T) {
	host := registry.New()
	p, err := New(host)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	reg, err := host.Register("demo", struct{}{}, nil)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := reg.Unregister(); err != nil {
		t.Fatalf("Unregister() error: %v", err)
	}

	backlog := p.Backlog()
	if len(backlog) != 2 {
		t.Fatalf("backlog length = %d, want 2", len(backlog))
	}
	if backlog[0].Type != registry.EventRegistered || backlog[0].Name != "demo" {
		t.Errorf("first event = %+v, want registered demo", backlog[0])
	}
	if backlog[1].Type != registry.EventUnregistered {
		t.Errorf("second event type = %s, want unregistered", backlog[1].Type)
	}
	if backlog[0].Seq >= backlog[1].Seq {
		t.Error("sequence numbers should increase")
	}
}

func TestBacklogIsBounded(t *testing.T) {
	host := registry.New()
	p, err := New(host)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < backlogSize; i++ {
		reg, err := host.Register("svc", struct{}{}, nil)
		if err != nil {
			t.Fatalf("Register() error: %v", err)
		}
		if err := reg.Unregister(); err != nil {
			t.Fatalf("Unregister() error: %v", err)
		}
	}

	backlog := p.Backlog()
	if len(backlog) != backlogSize {
		t.Errorf("backlog length = %d, want %d", len(backlog), backlogSize)
	}
	// 2*backlogSize events fired; the oldest half was evicted.
	if backlog[0].Seq != uint64(backlogSize)+1 {
		t.Errorf("oldest seq = %d, want %d", backlog[0].Seq, backlogSize+1)
	}
}

func TestBacklogEndpoint(t *testing.T) {
	host := registry.New()
	p, err := New(host)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := host.Register("demo", struct{}{}, nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Events []Record `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].Name != "demo" {
		t.Errorf("events = %+v, want one demo registration", body.Events)
	}
}

func TestWebsocketStream(t *testing.T) {
	host := registry.New()
	p, err := New(host)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// One event before the client connects: it arrives via backlog replay.
	if _, err := host.Register("early", struct{}{}, nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	srv := httptest.NewServer(p)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	read := func() Record {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var rec Record
		if err := conn.ReadJSON(&rec); err != nil {
			t.Fatalf("ReadJSON() error: %v", err)
		}
		return rec
	}

	if got := read(); got.Name != "early" {
		t.Errorf("replayed event name = %s, want early", got.Name)
	}

	if _, err := host.Register("late", struct{}{}, nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if got := read(); got.Name != "late" || got.Type != registry.EventRegistered {
		t.Errorf("live event = %+v, want registered late", got)
	}
}

func TestUnregisterStopsRecording(t *testing.T) {
	host := registry.New()
	p, err := New(host)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := p.Register(host); err != nil {
		t.Fatalf("plugin Register() error: %v", err)
	}
	if err := p.Unregister(); err != nil {
		t.Fatalf("Unregister() error: %v", err)
	}

	before := len(p.Backlog())
	if _, err := host.Register("after", struct{}{}, nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if got := len(p.Backlog()); got != before {
		t.Errorf("backlog grew after Unregister: %d -> %d", before, got)
	}
}
