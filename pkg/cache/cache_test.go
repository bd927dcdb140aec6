package cache

import (
	"path/filepath"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get("missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
			}

			if err := store.Put("k", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}

			v, ok, err := store.Get("k")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !ok || string(v) != `{"a":1}` {
				t.Errorf("Get = %q, ok=%v", v, ok)
			}
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("k", []byte("old")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put("k", []byte("new")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			v, ok, err := store.Get("k")
			if err != nil || !ok {
				t.Fatalf("Get = ok=%v err=%v", ok, err)
			}
			if string(v) != "new" {
				t.Errorf("Get = %q, want new", v)
			}
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := first.Put("k", []byte("survives")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	v, ok, err := second.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok=%v err=%v", ok, err)
	}
	if string(v) != "survives" {
		t.Errorf("Get = %q, want survives", v)
	}
}
