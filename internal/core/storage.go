package core

import (
	"carecore/internal/blob"
	"carecore/internal/config"
	"carecore/internal/docstore"
	"carecore/internal/state"
	"context"
	"fmt"
)

// Backends holds the remote stores opened from configuration.
type Backends struct {
	Docs  docstore.Store
	Blobs blob.Store
}

// OpenBackends opens the document and blob stores selected by cfg.
func OpenBackends(ctx context.Context, cfg config.Config) (Backends, error) {
	docs, err := docstore.Open(ctx, cfg.Docstore)
	if err != nil {
		return Backends{}, fmt.Errorf("open docstore: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = docs.Close()
		return Backends{}, fmt.Errorf("open blob store: %w", err)
	}
	return Backends{Docs: docs, Blobs: blobs}, nil
}

// Close releases the document store.
func (b Backends) Close() error {
	if b.Docs == nil {
		return nil
	}
	return b.Docs.Close()
}

// Open builds a Service over the backends selected by cfg and an empty local
// store. Callers must Close the returned Backends.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Service, Backends, error) {
	b, err := OpenBackends(ctx, cfg)
	if err != nil {
		return nil, Backends{}, err
	}
	base := []Option{
		WithAssetConcurrency(cfg.Assets.Concurrency),
		WithAssetURLs(cfg.Assets.PublicBaseURL, cfg.Assets.URLExpiry),
	}
	return NewService(state.New(), b.Docs, b.Blobs, append(base, opts...)...), b, nil
}
