package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLocalStoreSaveAndRead(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	data := []byte("%PDF-1.4 contenido")
	path, err := store.Save(ctx, data, "oficio 1234 (copia).pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.ContainsAny(path, " ()") {
		t.Errorf("stored name not sanitized: %q", path)
	}
	if strings.Contains(path, "/") {
		t.Errorf("expected relative flat path, got %q", path)
	}

	got, err := store.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestLocalStoreUniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	a, _ := store.Save(ctx, []byte("a"), "same.pdf")
	b, _ := store.Save(ctx, []byte("b"), "same.pdf")
	if a == b {
		t.Errorf("two saves of the same filename collided: %q", a)
	}
}

func TestLocalStoreReadMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "no-such-file.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
