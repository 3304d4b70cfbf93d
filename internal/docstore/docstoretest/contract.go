// Package docstoretest holds the shared driver contract and a call recorder
// for document store tests.
package docstoretest

import (
	"carecore/internal/docstore/core"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type doc struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	SetCount    int    `json:"set_count"`
}

// RunContract exercises the full Store contract against s.
func RunContract(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	for _, d := range []doc{
		{ID: "c2", RecipientID: "r1", Title: "Garden"},
		{ID: "c1", RecipientID: "r1", Title: "Family"},
		{ID: "c3", RecipientID: "r2", Title: "Music"},
	} {
		if err := s.Set(ctx, core.Collections, d.ID, d); err != nil {
			t.Fatalf("set %s: %v", d.ID, err)
		}
	}
	if err := s.Set(ctx, core.Collections, "", doc{}); err == nil {
		t.Fatal("expected error for empty id")
	}

	var got doc
	if err := s.Get(ctx, core.Collections, "c1", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Family" {
		t.Fatalf("unexpected doc %+v", got)
	}

	if err := s.Update(ctx, core.Collections, "c1", map[string]any{"set_count": 2, "title": "Kin"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got = doc{}
	if err := s.Get(ctx, core.Collections, "c1", &got); err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.SetCount != 2 || got.Title != "Kin" || got.RecipientID != "r1" {
		t.Fatalf("update did not merge: %+v", got)
	}
	if err := s.Update(ctx, core.Collections, "missing", map[string]any{"title": "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	raw, err := s.Query(ctx, core.Collections, core.Filter{Field: "recipient_id", Value: "r1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if ids := decodeIDs(t, raw); len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Fatalf("unexpected query result %v", ids)
	}
	raw, err = s.Query(ctx, core.Collections, core.Filter{})
	if err != nil || len(raw) != 3 {
		t.Fatalf("unfiltered query: %d docs, %v", len(raw), err)
	}
	raw, err = s.Query(ctx, core.Sets, core.Filter{Field: "recipient_id", Value: "r1"})
	if err != nil || len(raw) != 0 {
		t.Fatalf("empty collection query: %d docs, %v", len(raw), err)
	}

	if err := s.Delete(ctx, core.Collections, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, core.Collections, "c1"); err != nil {
		t.Fatalf("second delete must be idempotent: %v", err)
	}
	if err := s.Get(ctx, core.Collections, "c1", &got); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	raw, _ = s.Query(ctx, core.Collections, core.Filter{Field: "recipient_id", Value: "r1"})
	if ids := decodeIDs(t, raw); len(ids) != 1 || ids[0] != "c2" {
		t.Fatalf("unexpected query after delete %v", ids)
	}
}

func decodeIDs(t *testing.T, raw [][]byte) []string {
	t.Helper()
	ids := make([]string, 0, len(raw))
	for _, b := range raw {
		var d doc
		if err := json.Unmarshal(b, &d); err != nil {
			t.Fatalf("decode: %v", err)
		}
		ids = append(ids, d.ID)
	}
	return ids
}
