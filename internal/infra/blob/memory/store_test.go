package memory

import (
	"bytes"
	"carecore/internal/blob/blobtest"
	"carecore/internal/blob/core"
	"context"
	"errors"
	"testing"
)

func TestMemoryContract(t *testing.T) {
	blobtest.RunContract(t, New())
}

func TestMemoryRejectsEmptyKeyAndCancelledContext(t *testing.T) {
	s := New()
	if _, err := s.Put(context.Background(), "  ", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Delete(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMemoryMetadataIsCopied(t *testing.T) {
	s := New()
	md := map[string]string{"a": "1"}
	if _, err := s.Put(context.Background(), "k", bytes.NewReader([]byte("x")), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["a"] = "2"
	info, _ := s.Head(context.Background(), "k")
	if info.Metadata["a"] != "1" {
		t.Fatalf("metadata aliased caller map: %v", info.Metadata)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 object, got %d", s.Len())
	}
}
