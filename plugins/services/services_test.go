package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plugboard/plugboard/pkg/registry"
)

func TestListing(t *testing.T) {
	host := registry.New()
	if _, err := host.Register("store:memory", struct{}{}, map[string]string{"kind": "store"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	p, err := New(host)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := p.Register(host); err != nil {
		t.Fatalf("plugin Register() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/services/", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got listing
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2 (store + plugin itself)", got.Count)
	}

	names := map[string]bool{}
	for _, info := range got.Services {
		names[info.Name] = true
	}
	if !names["store:memory"] || !names["console:services"] {
		t.Errorf("listing missing expected services: %v", names)
	}
}

func TestServesBundledAsset(t *testing.T) {
	p, err := New(registry.New())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/services/assets/services.css", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("asset body is empty")
	}
}

func TestUnknownPathNotFound(t *testing.T) {
	p, err := New(registry.New())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/services/nope", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
