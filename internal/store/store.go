// Package store defines the key-value store contract and resolves store
// providers through the extension registry. Providers are compiled in and
// contribute themselves under an alias; callers open a store knowing only
// the alias and a DSN.
package store

import (
	"context"
	"fmt"

	"github.com/plugboard/plugboard/pkg/extension"
)

// ProvidersPoint is the extension point store providers contribute to.
const ProvidersPoint = "plugboard.store.providers"

// ServiceName is the registry name the host registers the opened store under.
const ServiceName = "store"

// Store is a flat key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Health(ctx context.Context) error
	Close(ctx context.Context) error
}

// Provider opens stores. Implementations contribute an extension on
// ProvidersPoint from their init functions.
type Provider interface {
	Open(ctx context.Context, dsn string) (Store, error)
}

// Open resolves the provider declared under alias and opens a store with it.
func Open(ctx context.Context, reg *extension.Registry, alias, dsn string) (Store, error) {
	v, err := reg.ProviderForAlias(ProvidersPoint, alias)
	if err != nil {
		return nil, fmt.Errorf("store: resolve provider: %w", err)
	}

	provider, ok := v.(Provider)
	if !ok {
		return nil, fmt.Errorf("store: extension %s is not a store provider: %T", alias, v)
	}

	s, err := provider.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", alias, err)
	}
	return s, nil
}
