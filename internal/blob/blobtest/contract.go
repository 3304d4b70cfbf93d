// Package blobtest holds the behaviour every blob backend must share.
package blobtest

import (
	"carecore/internal/blob/core"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// RunContract exercises put, overwrite, head, get, list and delete against s.
func RunContract(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	info, err := s.Put(ctx, "recipients/r1/avatar/image/a.jpg", strings.NewReader("one"), core.PutOptions{
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"recipient": "r1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 3 || info.Key != "recipients/r1/avatar/image/a.jpg" {
		t.Fatalf("unexpected put info: %+v", info)
	}
	if _, err := s.Put(ctx, "recipients/r1/avatar/image/a.jpg", strings.NewReader("second"), core.PutOptions{ContentType: "image/jpeg"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := s.Put(ctx, "recipients/r2/cover/image/c.jpg", strings.NewReader("cover"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}

	head, err := s.Head(ctx, "recipients/r1/avatar/image/a.jpg")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != 6 {
		t.Fatalf("expected overwritten size 6, got %d", head.Size)
	}

	_, rc, err := s.Get(ctx, "recipients/r1/avatar/image/a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "second" {
		t.Fatalf("unexpected body %q", body)
	}

	list, err := s.List(ctx, "recipients/r1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "recipients/r1/avatar/image/a.jpg" {
		t.Fatalf("unexpected list: %+v", list)
	}
	all, err := s.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 objects, got %d (%v)", len(all), err)
	}
	if all[0].Key > all[1].Key {
		t.Fatalf("list not ordered: %+v", all)
	}

	existed, err := s.Delete(ctx, "recipients/r1/avatar/image/a.jpg")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, "recipients/r1/avatar/image/a.jpg")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
	if _, err := s.Head(ctx, "recipients/r1/avatar/image/a.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing get, got %v", err)
	}
}
