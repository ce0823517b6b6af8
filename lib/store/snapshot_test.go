package store_test

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/stree"
	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/ValentinKolb/nvKV/lib/store/lstore"
)

func newStore(t *testing.T, name string) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".pool")
	s, err := lstore.NewLocalStore(func() (kv.Engine, error) {
		cfg := config.New().
			PutString("path", path).
			PutUint64("size", 1<<30)
		return kv.Open("stree", cfg)
	})
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExportImportRoundtrip(t *testing.T) {
	src := newStore(t, "src")
	dst := newStore(t, "dst")

	const numEntries = 500
	for i := 0; i < numEntries; i++ {
		key := []byte(fmt.Sprintf("snapshot-key-%04d", i))
		value := []byte(fmt.Sprintf("snapshot-value-%04d", i))
		if err := src.Put(key, value); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := store.Export(src, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if err := store.Import(dst, &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}

	total, err := dst.CountAll()
	if err != nil || total != numEntries {
		t.Fatalf("CountAll after Import = %d (%v), want %d", total, err, numEntries)
	}

	for i := 0; i < numEntries; i++ {
		key := []byte(fmt.Sprintf("snapshot-key-%04d", i))
		want := fmt.Sprintf("snapshot-value-%04d", i)
		value, found, err := dst.Get(key)
		if err != nil || !found {
			t.Fatalf("Get(%s) after Import: found=%v err=%v", key, found, err)
		}
		if string(value) != want {
			t.Errorf("Get(%s) = %q, want %q", key, value, want)
		}
	}
}

func TestExportEmptyStore(t *testing.T) {
	src := newStore(t, "empty-src")
	dst := newStore(t, "empty-dst")

	var buf bytes.Buffer
	if err := store.Export(src, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := store.Import(dst, &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}

	total, _ := dst.CountAll()
	if total != 0 {
		t.Errorf("CountAll = %d, want 0", total)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	dst := newStore(t, "garbage-dst")

	err := store.Import(dst, bytes.NewReader([]byte("definitely not a snapshot")))
	if err == nil {
		t.Fatalf("Import accepted garbage input")
	}
}

func TestImportRejectsTruncated(t *testing.T) {
	src := newStore(t, "trunc-src")
	dst := newStore(t, "trunc-dst")

	for i := 0; i < 100; i++ {
		if err := src.Put([]byte(fmt.Sprintf("k%03d", i)), bytes.Repeat([]byte("x"), 100)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := store.Export(src, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()/2]
	if err := store.Import(dst, bytes.NewReader(truncated)); err == nil {
		t.Fatalf("Import accepted a truncated snapshot")
	}
}
