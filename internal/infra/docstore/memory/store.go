// Package memory implements the document store in process memory.
package memory

import (
	"carecore/internal/docstore/core"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store implements core.Store with one map of JSON documents per collection.
type Store struct {
	mu   sync.RWMutex
	docs map[core.Collection]map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[core.Collection]map[string][]byte)}
}

// Driver returns the driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Set creates or replaces a document.
func (s *Store) Set(ctx context.Context, collection core.Collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := core.ValidateKey(collection, id); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string][]byte)
	}
	s.docs[collection][id] = b
	return nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection core.Collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return core.NotFound(collection, id)
	}
	merged, err := core.Merge(doc, fields)
	if err != nil {
		return err
	}
	s.docs[collection][id] = merged
	return nil
}

// Delete removes a document if present.
func (s *Store) Delete(ctx context.Context, collection core.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

// Get decodes a document into out.
func (s *Store) Get(ctx context.Context, collection core.Collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	doc, ok := s.docs[collection][id]
	s.mu.RUnlock()
	if !ok {
		return core.NotFound(collection, id)
	}
	return json.Unmarshal(doc, out)
}

// Query returns documents of collection matching filter, ordered by id.
func (s *Store) Query(ctx context.Context, collection core.Collection, filter core.Filter) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out [][]byte
	for _, id := range ids {
		doc := s.docs[collection][id]
		if core.Matches(doc, filter) {
			out = append(out, append([]byte(nil), doc...))
		}
	}
	return out, nil
}

// Len reports how many documents collection holds.
func (s *Store) Len(collection core.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}
