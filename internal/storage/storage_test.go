package storage

import (
	"bytes"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	key := []byte("tb/4k3-8-8-8")
	val := []byte(`{"wdl":2,"dtz":13}`)

	if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get on empty store: %v, want ErrNotFound", err)
	}
	if err := s.Set(key, val); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, val) {
		t.Errorf("get = %q, want %q", got, val)
	}
}

func TestStoreOverwrite(t *testing.T) {
	s := openTestStore(t)

	key := []byte("k")
	if err := s.Set(key, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(key, []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("get = %q, want %q", got, "two")
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)

	key := []byte("k")
	if err := s.Set(key, []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(key); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}

	// Deleting a missing key is fine.
	if err := s.Delete([]byte("missing")); err != nil {
		t.Errorf("delete missing key: %v", err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("get after reopen = %q, want %q", got, "v")
	}
}

func TestNilStoreClose(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Errorf("nil store close: %v", err)
	}
}
