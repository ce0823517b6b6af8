package lstore

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/stree"
	"github.com/ValentinKolb/nvKV/lib/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.pool")
	s, err := NewLocalStore(func() (kv.Engine, error) {
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

func TestPutGetRemove(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	value, found, err := s.Get([]byte("key"))
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if !bytes.Equal(value, []byte("value")) {
		t.Errorf("Get returned %q, want %q", value, "value")
	}

	exists, err := s.Exists([]byte("key"))
	if err != nil || !exists {
		t.Errorf("Exists: %v %v", exists, err)
	}

	if err := s.Remove([]byte("key")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, found, err = s.Get([]byte("key"))
	if err != nil || found {
		t.Errorf("key still present after Remove (err=%v)", err)
	}

	// removing again stays silent
	if err := s.Remove([]byte("key")); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value, _, _ := s.Get([]byte("key"))
	value[0] = 'X'

	fresh, _, _ := s.Get([]byte("key"))
	if !bytes.Equal(fresh, []byte("value")) {
		t.Errorf("Get must return a copy, store now holds %q", fresh)
	}
}

func TestCountsAndIteration(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 20; i++ {
		if err := s.Put([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	total, err := s.CountAll()
	if err != nil || total != 20 {
		t.Fatalf("CountAll = %d (%v), want 20", total, err)
	}
	above, _ := s.CountAbove([]byte("k15"))
	if above != 5 {
		t.Errorf("CountAbove(k15) = %d, want 5", above)
	}
	between, _ := s.CountBetween([]byte("k05"), []byte("k10"))
	if between != 4 {
		t.Errorf("CountBetween(k05,k10) = %d, want 4", between)
	}

	var keys []string
	err = s.EachAbove([]byte("k15"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	if err != nil {
		t.Fatalf("EachAbove: %v", err)
	}
	want := []string{"k16", "k17", "k18", "k19", "k20"}
	if len(keys) != len(want) {
		t.Fatalf("EachAbove visited %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("EachAbove visited %v, want %v", keys, want)
			break
		}
	}

	// early stop is not an error at the store level
	visited := 0
	err = s.Each(func(k, v []byte) bool {
		visited++
		return visited < 3
	})
	if err != nil {
		t.Errorf("Each with early stop: %v", err)
	}
	if visited != 3 {
		t.Errorf("Each visited %d, want 3", visited)
	}
}

func TestBounds(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 10; i++ {
		if err := s.Put([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	pair, err := s.UpperBound([]byte("k05"))
	if err != nil || !pair.Found || string(pair.Key) != "k06" {
		t.Errorf("UpperBound(k05) = %+v (%v), want k06", pair, err)
	}
	pair, _ = s.LowerBound([]byte("k05"))
	if !pair.Found || string(pair.Key) != "k05" {
		t.Errorf("LowerBound(k05) = %+v, want k05", pair)
	}
	pair, _ = s.First()
	if !pair.Found || string(pair.Key) != "k01" {
		t.Errorf("First = %+v, want k01", pair)
	}
	pair, _ = s.Prev([]byte("k01"))
	if pair.Found {
		t.Errorf("Prev(k01) = %+v, want empty", pair)
	}
}

func TestInfo(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	info, err := s.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Engine != "stree" {
		t.Errorf("Info.Engine = %q, want stree", info.Engine)
	}
	if info.Records != 1 {
		t.Errorf("Info.Records = %d, want 1", info.Records)
	}
	if info.Stats == nil {
		t.Errorf("Info.Stats missing for stree engine")
	}
}

// TestConcurrentAccess exercises the reader-writer guard: the engine core
// is single-writer, the store must serialize for us.
func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := []byte(fmt.Sprintf("w%d-k%03d", worker, i))
				if err := s.Put(key, []byte("v")); err != nil {
					t.Errorf("Put: %v", err)
					return
				}
				if _, _, err := s.Get(key); err != nil {
					t.Errorf("Get: %v", err)
					return
				}
				if _, err := s.CountAll(); err != nil {
					t.Errorf("CountAll: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	total, err := s.CountAll()
	if err != nil || total != 8*200 {
		t.Errorf("CountAll = %d (%v), want %d", total, err, 8*200)
	}
}
