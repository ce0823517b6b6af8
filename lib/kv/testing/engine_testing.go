package testing

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
)

// Factory opens an engine over the given pool path. The same path is
// passed again to reopen the pool after a close, so recovery behavior is
// testable through the factory.
type Factory func(t testing.TB, path string) kv.Engine

// RunEngineTests runs the shared test suite for a persistent kv.Engine
// implementation.
func RunEngineTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("PutGet", func(t *testing.T) {
			testPutGet(t, factory)
		})

		t.Run("EdgeCaseRecords", func(t *testing.T) {
			testEdgeCaseRecords(t, factory)
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory)
		})

		t.Run("Counts", func(t *testing.T) {
			testCounts(t, factory)
		})

		t.Run("RangeIteration", func(t *testing.T) {
			testRangeIteration(t, factory)
		})

		t.Run("CallbackStop", func(t *testing.T) {
			testCallbackStop(t, factory)
		})

		t.Run("Bounds", func(t *testing.T) {
			testBounds(t, factory)
		})

		t.Run("LeafSplit", func(t *testing.T) {
			testLeafSplit(t, factory)
		})

		t.Run("InnerSplit", func(t *testing.T) {
			testInnerSplit(t, factory)
		})

		t.Run("RemoveBetween", func(t *testing.T) {
			testRemoveBetween(t, factory)
		})

		t.Run("Recovery", func(t *testing.T) {
			testRecovery(t, factory)
		})

		t.Run("Defrag", func(t *testing.T) {
			testDefrag(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func openEngine(t testing.TB, factory Factory) kv.Engine {
	t.Helper()
	engine := factory(t, filepath.Join(t.TempDir(), "engine.pool"))
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func mustPut(t testing.TB, engine kv.Engine, key, value string) {
	t.Helper()
	if st := engine.Put([]byte(key), []byte(value)); st != kv.StatusOK {
		t.Fatalf("Put(%q) = %v, want OK", key, st)
	}
}

func getValue(t testing.TB, engine kv.Engine, key string) ([]byte, bool) {
	t.Helper()
	var value []byte
	st := engine.Get([]byte(key), func(v []byte) {
		value = append([]byte(nil), v...)
	})
	switch st {
	case kv.StatusOK:
		return value, true
	case kv.StatusNotFound:
		return nil, false
	default:
		t.Fatalf("Get(%q) = %v", key, st)
		return nil, false
	}
}

// fill inserts records k%02d -> v%02d for i in [1, n].
func fill(t testing.TB, engine kv.Engine, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		mustPut(t, engine, fmt.Sprintf("k%02d", i), fmt.Sprintf("v%02d", i))
	}
}

func collectKeys(t testing.TB, st kv.Status, keys [][]byte) []string {
	t.Helper()
	if st != kv.StatusOK {
		t.Fatalf("iteration status = %v, want OK", st)
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if _, found := getValue(t, engine, testKey); found {
		t.Errorf("expected %q to be absent before Put", testKey)
	}
	if st := engine.Exists([]byte(testKey)); st != kv.StatusNotFound {
		t.Errorf("Exists before Put = %v, want not-found", st)
	}

	mustPut(t, engine, testKey, string(testValue1))

	result, found := getValue(t, engine, testKey)
	if !found {
		t.Fatalf("expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("expected value %s, got %s", testValue1, result)
	}
	if st := engine.Exists([]byte(testKey)); st != kv.StatusOK {
		t.Errorf("Exists after Put = %v, want OK", st)
	}

	// last write wins
	mustPut(t, engine, testKey, string(testValue2))

	result, found = getValue(t, engine, testKey)
	if !found {
		t.Fatalf("expected key %s to exist after update", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("expected value %s, got %s", testValue2, result)
	}

	cnt, st := engine.CountAll()
	if st != kv.StatusOK || cnt != 1 {
		t.Errorf("CountAll after update = %d (%v), want 1", cnt, st)
	}
}

func testEdgeCaseRecords(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	// empty key and empty value are legal records, distinct from absence
	mustPut(t, engine, "", "value for empty key")
	result, found := getValue(t, engine, "")
	if !found || string(result) != "value for empty key" {
		t.Errorf("empty key roundtrip failed: found=%v value=%q", found, result)
	}

	mustPut(t, engine, "empty-value-key", "")
	result, found = getValue(t, engine, "empty-value-key")
	if !found {
		t.Errorf("key with empty value not found after Put")
	}
	if len(result) != 0 {
		t.Errorf("empty value mismatch: got %q", result)
	}

	// embedded NUL bytes in keys and values survive byte-identical
	nulKey := "nul\x00key"
	nulValue := "nul\x00value\x00"
	mustPut(t, engine, nulKey, nulValue)
	result, found = getValue(t, engine, nulKey)
	if !found || string(result) != nulValue {
		t.Errorf("embedded NUL roundtrip failed: found=%v value=%q", found, result)
	}
	if st := engine.Exists([]byte("nul")); st != kv.StatusNotFound {
		t.Errorf("prefix of NUL key must not exist, got %v", st)
	}
}

func testRemove(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	mustPut(t, engine, "delete-test-key", "delete-test-value")

	if st := engine.Remove([]byte("delete-test-key")); st != kv.StatusOK {
		t.Errorf("Remove = %v, want OK", st)
	}
	if st := engine.Exists([]byte("delete-test-key")); st != kv.StatusNotFound {
		t.Errorf("Exists after Remove = %v, want not-found", st)
	}

	// remove is idempotent: absent keys and double removes succeed
	if st := engine.Remove([]byte("delete-test-key")); st != kv.StatusOK {
		t.Errorf("second Remove = %v, want OK", st)
	}
	if st := engine.Remove([]byte("never-existed")); st != kv.StatusOK {
		t.Errorf("Remove of absent key = %v, want OK", st)
	}

	// a removed record can be reinserted
	mustPut(t, engine, "delete-test-key", "new-value")
	result, found := getValue(t, engine, "delete-test-key")
	if !found || string(result) != "new-value" {
		t.Errorf("reinsert after Remove failed: found=%v value=%q", found, result)
	}
}

func testCounts(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)
	fill(t, engine, 20)

	total, st := engine.CountAll()
	if st != kv.StatusOK || total != 20 {
		t.Fatalf("CountAll = %d (%v), want 20", total, st)
	}

	above, _ := engine.CountAbove([]byte("k15"))
	if above != 5 {
		t.Errorf("CountAbove(k15) = %d, want 5", above)
	}
	equalAbove, _ := engine.CountEqualAbove([]byte("k15"))
	if equalAbove != 6 {
		t.Errorf("CountEqualAbove(k15) = %d, want 6", equalAbove)
	}
	below, _ := engine.CountBelow([]byte("k15"))
	if below != 14 {
		t.Errorf("CountBelow(k15) = %d, want 14", below)
	}
	equalBelow, _ := engine.CountEqualBelow([]byte("k15"))
	if equalBelow != 15 {
		t.Errorf("CountEqualBelow(k15) = %d, want 15", equalBelow)
	}

	// between is exclusive on both ends
	between, _ := engine.CountBetween([]byte("k05"), []byte("k10"))
	if between != 4 {
		t.Errorf("CountBetween(k05,k10) = %d, want 4", between)
	}

	// complement laws hold for present and absent pivots
	for _, pivot := range []string{"k01", "k10", "k20", "k10x", "a", "z", ""} {
		above, _ := engine.CountAbove([]byte(pivot))
		equalBelow, _ := engine.CountEqualBelow([]byte(pivot))
		if above+equalBelow != total {
			t.Errorf("pivot %q: count_above + count_equal_below = %d, want %d",
				pivot, above+equalBelow, total)
		}
		below, _ := engine.CountBelow([]byte(pivot))
		equalAbove, _ := engine.CountEqualAbove([]byte(pivot))
		if below+equalAbove != total {
			t.Errorf("pivot %q: count_below + count_equal_above = %d, want %d",
				pivot, below+equalAbove, total)
		}
	}
}

func testRangeIteration(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)
	fill(t, engine, 20)

	var keys [][]byte
	collect := func(k, v []byte) int {
		keys = append(keys, append([]byte(nil), k...))
		wantValue := "v" + string(k[1:])
		if string(v) != wantValue {
			t.Errorf("key %s carries value %q, want %q", k, v, wantValue)
		}
		return 0
	}

	st := engine.GetAll(collect)
	all := collectKeys(t, st, keys)
	if len(all) != 20 {
		t.Fatalf("GetAll visited %d keys, want 20", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Errorf("GetAll order violation: %q before %q", all[i-1], all[i])
		}
	}

	keys = nil
	st = engine.GetAbove([]byte("k15"), collect)
	if got, want := collectKeys(t, st, keys), []string{"k16", "k17", "k18", "k19", "k20"}; !equalStrings(got, want) {
		t.Errorf("GetAbove(k15) visited %v, want %v", got, want)
	}

	keys = nil
	st = engine.GetEqualAbove([]byte("k18"), collect)
	if got, want := collectKeys(t, st, keys), []string{"k18", "k19", "k20"}; !equalStrings(got, want) {
		t.Errorf("GetEqualAbove(k18) visited %v, want %v", got, want)
	}

	keys = nil
	st = engine.GetBelow([]byte("k03"), collect)
	if got, want := collectKeys(t, st, keys), []string{"k01", "k02"}; !equalStrings(got, want) {
		t.Errorf("GetBelow(k03) visited %v, want %v", got, want)
	}

	keys = nil
	st = engine.GetEqualBelow([]byte("k03"), collect)
	if got, want := collectKeys(t, st, keys), []string{"k01", "k02", "k03"}; !equalStrings(got, want) {
		t.Errorf("GetEqualBelow(k03) visited %v, want %v", got, want)
	}

	keys = nil
	st = engine.GetBetween([]byte("k05"), []byte("k09"), collect)
	if got, want := collectKeys(t, st, keys), []string{"k06", "k07", "k08"}; !equalStrings(got, want) {
		t.Errorf("GetBetween(k05,k09) visited %v, want %v", got, want)
	}
}

func testCallbackStop(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)
	fill(t, engine, 10)

	visited := 0
	st := engine.GetAll(func(k, v []byte) int {
		visited++
		if visited == 2 {
			return 1
		}
		return 0
	})
	if st != kv.StatusStoppedByCallback {
		t.Errorf("GetAll with stopping callback = %v, want stopped-by-callback", st)
	}
	if visited != 2 {
		t.Errorf("callback ran %d times, want 2", visited)
	}
}

func testBounds(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)
	fill(t, engine, 20)

	k, v, ok := engine.UpperBound([]byte("k06"))
	if !ok || string(k) != "k07" || string(v) != "v07" {
		t.Errorf("UpperBound(k06) = (%q,%q,%v), want (k07,v07,true)", k, v, ok)
	}

	k, v, ok = engine.LowerBound([]byte("k09"))
	if !ok || string(k) != "k09" || string(v) != "v09" {
		t.Errorf("LowerBound(k09) = (%q,%q,%v), want (k09,v09,true)", k, v, ok)
	}

	k, v, ok = engine.GetBegin()
	if !ok || string(k) != "k01" || string(v) != "v01" {
		t.Errorf("GetBegin = (%q,%q,%v), want (k01,v01,true)", k, v, ok)
	}

	k, _, ok = engine.GetNext([]byte("k10"))
	if !ok || string(k) != "k11" {
		t.Errorf("GetNext(k10) = (%q,%v), want (k11,true)", k, ok)
	}

	k, _, ok = engine.GetPrev([]byte("k10"))
	if !ok || string(k) != "k09" {
		t.Errorf("GetPrev(k10) = (%q,%v), want (k09,true)", k, ok)
	}

	// misses yield the empty sentinel
	if _, _, ok := engine.UpperBound([]byte("k20")); ok {
		t.Errorf("UpperBound(k20) should find nothing")
	}
	if _, _, ok := engine.GetPrev([]byte("k01")); ok {
		t.Errorf("GetPrev(k01) should find nothing")
	}
	if _, _, ok := engine.GetNext([]byte("k20")); ok {
		t.Errorf("GetNext(k20) should find nothing")
	}
}

// testLeafSplit inserts one key more than a leaf can hold and checks that
// the split preserved every record.
func testLeafSplit(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	const leafKeys = 48
	for i := 0; i < leafKeys+1; i++ {
		mustPut(t, engine, fmt.Sprintf("key-%03d", i), fmt.Sprintf("val-%03d", i))
	}

	cnt, st := engine.CountAll()
	if st != kv.StatusOK || cnt != leafKeys+1 {
		t.Fatalf("CountAll after split = %d (%v), want %d", cnt, st, leafKeys+1)
	}

	for i := 0; i < leafKeys+1; i++ {
		key := fmt.Sprintf("key-%03d", i)
		result, found := getValue(t, engine, key)
		if !found {
			t.Errorf("key %s lost by split", key)
			continue
		}
		if want := fmt.Sprintf("val-%03d", i); string(result) != want {
			t.Errorf("key %s carries %q after split, want %q", key, result, want)
		}
	}
}

// testInnerSplit grows the tree until inner nodes split and checks order
// and completeness.
func testInnerSplit(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	const numKeys = 48 * 6 // leafKeys * (innerKeys + 2)
	for i := 0; i < numKeys; i++ {
		mustPut(t, engine, fmt.Sprintf("key-%04d", i), fmt.Sprintf("val-%04d", i))
	}

	cnt, st := engine.CountAll()
	if st != kv.StatusOK || cnt != numKeys {
		t.Fatalf("CountAll = %d (%v), want %d", cnt, st, numKeys)
	}

	var prev []byte
	visited := 0
	st = engine.GetAll(func(k, v []byte) int {
		if prev != nil && bytes.Compare(prev, k) >= 0 {
			t.Errorf("order violation: %q before %q", prev, k)
		}
		prev = append(prev[:0], k...)
		visited++
		return 0
	})
	if st != kv.StatusOK || visited != numKeys {
		t.Errorf("GetAll visited %d (%v), want %d", visited, st, numKeys)
	}

	for _, i := range []int{0, 1, 47, 48, 95, 100, numKeys - 2, numKeys - 1} {
		key := fmt.Sprintf("key-%04d", i)
		if _, found := getValue(t, engine, key); !found {
			t.Errorf("key %s not found after inner splits", key)
		}
	}
}

func testRemoveBetween(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	for i := 1; i <= 100; i++ {
		mustPut(t, engine, fmt.Sprintf("k%03d", i), fmt.Sprintf("v%03d", i))
	}

	if st := engine.Remove([]byte("k050")); st != kv.StatusOK {
		t.Fatalf("Remove(k050) = %v", st)
	}
	if st := engine.Exists([]byte("k050")); st != kv.StatusNotFound {
		t.Errorf("Exists(k050) after Remove = %v, want not-found", st)
	}

	cnt, _ := engine.CountAll()
	if cnt != 99 {
		t.Errorf("CountAll after Remove = %d, want 99", cnt)
	}

	var keys []string
	st := engine.GetBetween([]byte("k048"), []byte("k052"), func(k, v []byte) int {
		keys = append(keys, string(k))
		return 0
	})
	if st != kv.StatusOK {
		t.Fatalf("GetBetween = %v", st)
	}
	if want := []string{"k049", "k051"}; !equalStrings(keys, want) {
		t.Errorf("GetBetween(k048,k052) visited %v, want %v", keys, want)
	}
}

// testRecovery closes and reopens the pool and verifies that lookup,
// counting, and iteration semantics survive.
func testRecovery(t *testing.T, factory Factory) {
	path := filepath.Join(t.TempDir(), "recovery.pool")

	engine := factory(t, path)
	const numKeys = 200
	for i := 0; i < numKeys; i++ {
		mustPut(t, engine, fmt.Sprintf("key-%04d", i), fmt.Sprintf("val-%04d", i))
	}
	// punch some holes so recovery sees partially filled leaves
	for i := 0; i < numKeys; i += 10 {
		if st := engine.Remove([]byte(fmt.Sprintf("key-%04d", i))); st != kv.StatusOK {
			t.Fatalf("Remove = %v", st)
		}
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	engine = factory(t, path)
	defer engine.Close()

	wantCount := uint64(numKeys - numKeys/10)
	cnt, st := engine.CountAll()
	if st != kv.StatusOK || cnt != wantCount {
		t.Fatalf("CountAll after reopen = %d (%v), want %d", cnt, st, wantCount)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("key-%04d", i)
		result, found := getValue(t, engine, key)
		if i%10 == 0 {
			if found {
				t.Errorf("removed key %s reappeared after reopen", key)
			}
			continue
		}
		if !found {
			t.Errorf("key %s lost by reopen", key)
			continue
		}
		if want := fmt.Sprintf("val-%04d", i); string(result) != want {
			t.Errorf("key %s carries %q after reopen, want %q", key, result, want)
		}
	}

	var prev []byte
	st = engine.GetAll(func(k, v []byte) int {
		if prev != nil && bytes.Compare(prev, k) >= 0 {
			t.Errorf("order violation after reopen: %q before %q", prev, k)
		}
		prev = append(prev[:0], k...)
		return 0
	})
	if st != kv.StatusOK {
		t.Errorf("GetAll after reopen = %v", st)
	}

	// writes keep working against the recovered tree
	mustPut(t, engine, "post-recovery", "value")
	if _, found := getValue(t, engine, "post-recovery"); !found {
		t.Errorf("Put after reopen not visible")
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// an empty-string key is a live record and must not be mistaken for
	// an empty leaf during recovery
	emptyKeyPath := filepath.Join(t.TempDir(), "empty-key.pool")
	engine = factory(t, emptyKeyPath)
	mustPut(t, engine, "", "value for empty key")
	mustPut(t, engine, "other-key", "other-value")
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	engine = factory(t, emptyKeyPath)
	result, found := getValue(t, engine, "")
	if !found || string(result) != "value for empty key" {
		t.Errorf("empty key lost by reopen: found=%v value=%q", found, result)
	}
	if cnt, st := engine.CountAll(); st != kv.StatusOK || cnt != 2 {
		t.Errorf("CountAll after reopen = %d (%v), want 2", cnt, st)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// a leaf emptied down to only the empty-string key must survive as
	// well, rather than land on the free list
	lonePath := filepath.Join(t.TempDir(), "lone-empty-key.pool")
	engine = factory(t, lonePath)
	mustPut(t, engine, "", "lone value")
	for i := 1; i <= 10; i++ {
		mustPut(t, engine, fmt.Sprintf("k%02d", i), fmt.Sprintf("v%02d", i))
	}
	for i := 1; i <= 10; i++ {
		if st := engine.Remove([]byte(fmt.Sprintf("k%02d", i))); st != kv.StatusOK {
			t.Fatalf("Remove = %v", st)
		}
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	engine = factory(t, lonePath)
	defer engine.Close()
	result, found = getValue(t, engine, "")
	if !found || string(result) != "lone value" {
		t.Errorf("lone empty key lost by reopen: found=%v value=%q", found, result)
	}
	if cnt, st := engine.CountAll(); st != kv.StatusOK || cnt != 1 {
		t.Errorf("CountAll after reopen = %d (%v), want 1", cnt, st)
	}
}

func testDefrag(t *testing.T, factory Factory) {
	engine := openEngine(t, factory)

	if st := engine.Defrag(0, 100); st != kv.StatusNotSupported && st != kv.StatusOK {
		t.Errorf("Defrag(0,100) = %v, want OK or not-supported", st)
	}
	if st := engine.Defrag(101, 50); st != kv.StatusInvalidArgument {
		t.Errorf("Defrag(101,50) = %v, want invalid-argument", st)
	}
	if st := engine.Defrag(50, 101); st != kv.StatusInvalidArgument {
		t.Errorf("Defrag(50,101) = %v, want invalid-argument", st)
	}
}
