package sqlite

import (
	"carecore/internal/docstore/core"
	"carecore/internal/docstore/docstoretest"
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteContract(t *testing.T) {
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	docstoretest.RunContract(t, s)
}

func TestSQLiteReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "docs.db")
	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Set(ctx, core.Recipients, "r1", map[string]string{"id": "r1", "caregiver_id": "cg"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s, err = New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if s.Path() != path || s.Driver() != core.DriverSQLite {
		t.Fatalf("unexpected store %s %s", s.Path(), s.Driver())
	}
	docs, err := s.Query(ctx, core.Recipients, core.Filter{Field: "caregiver_id", Value: "cg"})
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected persisted document, got %d (%v)", len(docs), err)
	}
}
