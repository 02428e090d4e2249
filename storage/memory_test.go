package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put("bundle", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("bundle")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("got %q, want %q", got, "payload")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put("bundle", []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("bundle", []byte("v2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("bundle")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Errorf("got %q, want %q", got, "v2")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put("bundle", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete("bundle"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("bundle"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}

	// Deleting an absent key is fine.
	if err := store.Delete("bundle"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()

	value := []byte("payload")
	if err := store.Put("bundle", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value[0] = 'X'

	got, err := store.Get("bundle")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Error("store shared the caller's buffer on Put")
	}

	got[0] = 'Y'
	again, err := store.Get("bundle")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(again, []byte("payload")) {
		t.Error("store shared its internal buffer on Get")
	}
}
