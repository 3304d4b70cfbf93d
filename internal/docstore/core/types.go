// Package core defines the remote document store contract shared by the
// service layer and the drivers under internal/infra/docstore.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Driver identifies a document store backend.
type Driver string

const (
	// DriverMemory keeps documents in process memory (tests).
	DriverMemory Driver = "memory"
	// DriverSQLite stores one row per document in a local SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores documents as JSONB rows.
	DriverPostgres Driver = "postgres"
	// DriverRedis stores JSON values plus id and owner index sets.
	DriverRedis Driver = "redis"
)

// Collection names the remote document collections.
type Collection string

const (
	Recipients        Collection = "recipients"
	Collections       Collection = "collections"
	Sets              Collection = "sets"
	EmergencyContacts Collection = "emergency_contacts"
)

// Filter is an equality match on one top-level string field.
type Filter struct {
	Field string
	Value string
}

// Store is the remote document database.
//
// Set creates or replaces a document. Update merges fields into an existing
// document and fails with ErrNotFound when it is missing. Delete is
// idempotent. Query returns raw JSON documents ordered by id.
type Store interface {
	Set(ctx context.Context, collection Collection, id string, doc any) error
	Update(ctx context.Context, collection Collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection Collection, id string) error
	Get(ctx context.Context, collection Collection, id string, out any) error
	Query(ctx context.Context, collection Collection, filter Filter) ([][]byte, error)
	Driver() Driver
	Close() error
}

// ErrNotFound is returned by Get and Update for missing documents.
var ErrNotFound = errors.New("docstore: document not found")

// NotFound wraps ErrNotFound with the document coordinates.
func NotFound(collection Collection, id string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
}

// ValidateKey rejects empty collection names and ids.
func ValidateKey(collection Collection, id string) error {
	if strings.TrimSpace(string(collection)) == "" || strings.TrimSpace(id) == "" {
		return fmt.Errorf("docstore: collection and id required (got %q/%q)", collection, id)
	}
	return nil
}

// Merge applies fields to the JSON object doc. Nil values remove the key.
func Merge(doc []byte, fields map[string]any) ([]byte, error) {
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for k, v := range fields {
		if v == nil {
			delete(obj, k)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", k, err)
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// Matches reports whether the top-level field of doc equals f.Value.
// An empty filter matches everything.
func Matches(doc []byte, f Filter) bool {
	if f.Field == "" {
		return true
	}
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(doc, &obj); err != nil {
		return false
	}
	raw, ok := obj[f.Field]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s == f.Value
}
