package store

import (
	"context"
	"testing"

	"github.com/plugboard/plugboard/internal/errors"
	"github.com/plugboard/plugboard/pkg/extension"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Put(ctx, "config/a", []byte("one")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	value, err := s.Get(ctx, "config/a")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(value) != "one" {
		t.Errorf("Get() = %q, want one", value)
	}

	if err := s.Delete(ctx, "config/a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, "config/a"); !errors.IsNotFound(err) {
		t.Errorf("Get() after delete = %v, want not-found", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, key := range []string{"config/b", "config/a", "other/c"} {
		if err := s.Put(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Put(%s) error: %v", key, err)
		}
	}

	keys, err := s.List(ctx, "config/")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "config/a" || keys[1] != "config/b" {
		t.Errorf("List() = %v, want [config/a config/b]", keys)
	}
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := []byte("one")
	if err := s.Put(ctx, "k", original); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	original[0] = 'X'

	value, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(value) != "one" {
		t.Errorf("Get() = %q, want one", value)
	}
}

func TestMemoryStoreClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Health(ctx); err != nil {
		t.Errorf("Health() error: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Health(ctx); err == nil {
		t.Error("Health() after Close should error")
	}
}

func TestOpenResolvesMemoryProvider(t *testing.T) {
	// The memory provider contributes itself to the default registry in init.
	s, err := Open(context.Background(), extension.Default, "memory", "")
	if err != nil {
		t.Fatalf("Open(memory) error: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Open(memory) = %T, want *MemoryStore", s)
	}
}

func TestOpenUnknownAlias(t *testing.T) {
	if _, err := Open(context.Background(), extension.Default, "s3", ""); err == nil {
		t.Error("Open() with unknown alias should error")
	}
}

func TestOpenRejectsNonProvider(t *testing.T) {
	reg := extension.NewRegistry()
	err := reg.Contribute(ProvidersPoint, extension.Extension{
		Source:     "test",
		Attributes: map[string]string{extension.AliasAttribute: "bogus"},
		Factory:    func() interface{} { return "not a provider" },
	})
	if err != nil {
		t.Fatalf("Contribute() error: %v", err)
	}

	if _, err := Open(context.Background(), reg, "bogus", ""); err == nil {
		t.Error("Open() with non-provider extension should error")
	}
}
