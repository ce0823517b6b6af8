package stree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	"github.com/ValentinKolb/nvKV/lib/kv/engines/stree/internal"
	"github.com/ValentinKolb/nvKV/lib/pmem"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "stree.pool")
}

func TestOpenUnknownOption(t *testing.T) {
	cfg := config.New().
		PutString("path", tempPath(t)).
		PutUint64("bogus", 1)
	_, err := kv.Open(EngineName, cfg)
	require.Error(t, err)
	require.Equal(t, kv.StatusConfigParsingError, kv.StatusOf(err))
}

func TestOpenMissingPath(t *testing.T) {
	_, err := kv.Open(EngineName, config.New().PutUint64("size", 1<<20))
	require.Error(t, err)
	require.Equal(t, kv.StatusConfigParsingError, kv.StatusOf(err))
}

func TestOpenTypeMismatch(t *testing.T) {
	cfg := config.New().PutUint64("path", 42)
	_, err := kv.Open(EngineName, cfg)
	require.Error(t, err)
	require.Equal(t, kv.StatusConfigTypeError, kv.StatusOf(err))

	cfg = config.New().
		PutString("path", tempPath(t)).
		PutString("size", "huge")
	_, err = kv.Open(EngineName, cfg)
	require.Error(t, err)
	require.Equal(t, kv.StatusConfigTypeError, kv.StatusOf(err))
}

func TestOpenNilConfig(t *testing.T) {
	_, err := kv.Open(EngineName, nil)
	require.Error(t, err)
	require.Equal(t, kv.StatusInvalidArgument, kv.StatusOf(err))
}

func TestOpenForeignPool(t *testing.T) {
	// a pool tagged for another engine must be rejected cleanly
	path := tempPath(t)
	pool, err := pmem.Create(path, "otherengine", pmem.MinPoolSize)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	_, err = kv.Open(EngineName, config.New().PutString("path", path))
	require.Error(t, err)
	require.Equal(t, kv.StatusWrongEngineName, kv.StatusOf(err))
}

func TestReopenOwnPool(t *testing.T) {
	path := tempPath(t)
	engine := factory(t, path)
	require.Equal(t, kv.StatusOK, engine.Put([]byte("k"), []byte("v")))
	require.NoError(t, engine.Close())

	reopened, err := kv.Open(EngineName, config.New().PutString("path", path))
	require.NoError(t, err)
	require.Equal(t, kv.StatusOK, reopened.Exists([]byte("k")))
	require.NoError(t, reopened.Close())
}

func TestEmptyEngineQueries(t *testing.T) {
	engine := factory(t, tempPath(t))
	defer engine.Close()

	cnt, st := engine.CountAll()
	require.Equal(t, kv.StatusOK, st)
	require.Zero(t, cnt)

	require.Equal(t, kv.StatusNotFound, engine.Exists([]byte("k")))
	require.Equal(t, kv.StatusOK, engine.Remove([]byte("k")))

	visited := 0
	require.Equal(t, kv.StatusOK, engine.GetAll(func(k, v []byte) int {
		visited++
		return 0
	}))
	require.Zero(t, visited)

	_, _, ok := engine.GetBegin()
	require.False(t, ok)
	_, _, ok = engine.UpperBound([]byte("k"))
	require.False(t, ok)
}

// TestLeafSplitShape checks the structural outcome of the first split:
// two leaves under one inner node with a single separator.
func TestLeafSplitShape(t *testing.T) {
	engine := factory(t, tempPath(t))
	defer engine.Close()

	impl := engine.(interface{ Stats() Stats })

	for i := 0; i < internal.LeafKeys; i++ {
		st := engine.Put([]byte(fmt.Sprintf("key-%03d", i)), []byte("v"))
		require.Equal(t, kv.StatusOK, st)
	}
	stats := impl.Stats()
	require.Equal(t, 1, stats.Leaves)
	require.Equal(t, 0, stats.InnerNodes)
	require.Equal(t, 1, stats.Depth)

	// one more record forces exactly one split
	st := engine.Put([]byte(fmt.Sprintf("key-%03d", internal.LeafKeys)), []byte("v"))
	require.Equal(t, kv.StatusOK, st)

	stats = impl.Stats()
	require.Equal(t, 2, stats.Leaves)
	require.Equal(t, 1, stats.InnerNodes)
	require.Equal(t, 2, stats.Depth)
	require.Equal(t, uint64(internal.LeafKeys+1), stats.Records)
}

// TestFreeLeafRecycling verifies that leaves found empty during recovery
// land on the free list and are reused before new allocations.
func TestFreeLeafRecycling(t *testing.T) {
	path := tempPath(t)

	engine := factory(t, path)
	const n = internal.LeafKeys + 1 // two persistent leaves
	for i := 0; i < n; i++ {
		st := engine.Put([]byte(fmt.Sprintf("key-%03d", i)), []byte("v"))
		require.Equal(t, kv.StatusOK, st)
	}
	for i := 0; i < n; i++ {
		st := engine.Remove([]byte(fmt.Sprintf("key-%03d", i)))
		require.Equal(t, kv.StatusOK, st)
	}
	require.NoError(t, engine.Close())

	engine = factory(t, path)
	defer engine.Close()
	impl := engine.(interface{ Stats() Stats })

	stats := impl.Stats()
	require.Zero(t, stats.Records)
	require.Zero(t, stats.Leaves)
	require.Equal(t, 2, stats.FreeLeaves)

	// the next put draws from the free list instead of allocating
	require.Equal(t, kv.StatusOK, engine.Put([]byte("reborn"), []byte("v")))
	stats = impl.Stats()
	require.Equal(t, 1, stats.Leaves)
	require.Equal(t, 1, stats.FreeLeaves)
}

// TestSplitSurvivesReopen pairs the split boundary with recovery: the two
// persistent leaves must both be found again.
func TestSplitSurvivesReopen(t *testing.T) {
	path := tempPath(t)

	engine := factory(t, path)
	for i := 0; i <= internal.LeafKeys; i++ {
		st := engine.Put([]byte(fmt.Sprintf("key-%03d", i)), []byte(fmt.Sprintf("val-%03d", i)))
		require.Equal(t, kv.StatusOK, st)
	}
	require.NoError(t, engine.Close())

	engine = factory(t, path)
	defer engine.Close()
	impl := engine.(interface{ Stats() Stats })

	stats := impl.Stats()
	require.Equal(t, 2, stats.Leaves)
	require.Equal(t, uint64(internal.LeafKeys+1), stats.Records)

	for i := 0; i <= internal.LeafKeys; i++ {
		var got []byte
		st := engine.Get([]byte(fmt.Sprintf("key-%03d", i)), func(v []byte) {
			got = append([]byte(nil), v...)
		})
		require.Equal(t, kv.StatusOK, st)
		require.Equal(t, fmt.Sprintf("val-%03d", i), string(got))
	}
}

// TestUpdateDoesNotGrow verifies in-place updates reuse the slot.
func TestUpdateDoesNotGrow(t *testing.T) {
	engine := factory(t, tempPath(t))
	defer engine.Close()
	impl := engine.(interface{ Stats() Stats })

	for i := 0; i < 1000; i++ {
		st := engine.Put([]byte("hot-key"), []byte(fmt.Sprintf("value-%d", i)))
		require.Equal(t, kv.StatusOK, st)
	}

	stats := impl.Stats()
	require.Equal(t, uint64(1), stats.Records)
	require.Equal(t, 1, stats.Leaves)

	var got []byte
	st := engine.Get([]byte("hot-key"), func(v []byte) { got = append([]byte(nil), v...) })
	require.Equal(t, kv.StatusOK, st)
	require.Equal(t, "value-999", string(got))
}
