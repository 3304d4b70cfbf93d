package fs

import (
	"carecore/internal/blob/blobtest"
	"carecore/internal/blob/core"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesystemContract(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	blobtest.RunContract(t, s)
}

func TestFilesystemRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "/abs", "../up", "a/../../b", "x.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestFilesystemWritesSidecar(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Put(context.Background(), "recipients/r1/set/audio/s1.m4a", strings.NewReader("abc"), core.PutOptions{ContentType: "audio/mp4"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	data := filepath.Join(root, "recipients", "r1", "set", "audio", "s1.m4a")
	if _, err := os.Stat(data + metaSuffix); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	info, err := s.Head(context.Background(), "recipients/r1/set/audio/s1.m4a")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.ContentType != "audio/mp4" || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
	url, err := s.PresignURL(context.Background(), "recipients/r1/set/audio/s1.m4a", core.SignedURLOptions{})
	if err != nil || url != "http://local.blob/recipients/r1/set/audio/s1.m4a" {
		t.Fatalf("unexpected url %q (%v)", url, err)
	}
}

func TestFilesystemCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	s, _ := New(root)
	if _, err := s.Put(context.Background(), "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "k"+metaSuffix), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Head(context.Background(), "k"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
