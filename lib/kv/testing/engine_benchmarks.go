package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
)

// RunEngineBenchmarks runs all benchmarks for a kv.Engine implementation.
// Engines are single-writer, so the benchmarks run sequentially.
func RunEngineBenchmarks(b *testing.B, name string, factory Factory) {
	b.Run(name+"/Put", func(b *testing.B) {
		benchmarkPut(b, factory)
	})

	b.Run(name+"/PutExisting", func(b *testing.B) {
		benchmarkPutExisting(b, factory)
	})

	b.Run(name+"/PutLargeValue", func(b *testing.B) {
		benchmarkPutLargeValue(b, factory)
	})

	b.Run(name+"/Get", func(b *testing.B) {
		benchmarkGet(b, factory)
	})

	b.Run(name+"/Exists", func(b *testing.B) {
		benchmarkExists(b, factory)
	})

	b.Run(name+"/Exists(not)", func(b *testing.B) {
		benchmarkExistsMiss(b, factory)
	})

	b.Run(name+"/Remove", func(b *testing.B) {
		benchmarkRemove(b, factory)
	})

	b.Run(name+"/GetAll", func(b *testing.B) {
		benchmarkGetAll(b, factory)
	})

	b.Run(name+"/Reopen", func(b *testing.B) {
		benchmarkReopen(b, factory)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkPut(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if st := engine.Put(key, value); st != kv.StatusOK {
			b.Fatalf("Put = %v", st)
		}
	}
}

func benchmarkPutExisting(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		mustPut(b, engine, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%numKeys))
		value := []byte(fmt.Sprintf("updated-value-%d", i))
		if st := engine.Put(key, value); st != kv.StatusOK {
			b.Fatalf("Put = %v", st)
		}
	}
}

func benchmarkPutLargeValue(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)
	largeValue := make([]byte, 64*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%64))
		if st := engine.Put(key, largeValue); st != kv.StatusOK {
			b.Fatalf("Put = %v", st)
		}
	}
}

func benchmarkGet(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		mustPut(b, engine, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%numKeys))
		engine.Get(key, func([]byte) {})
	}
}

func benchmarkExists(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		mustPut(b, engine, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Exists([]byte(fmt.Sprintf("test-key-%d", i%numKeys)))
	}
}

func benchmarkExistsMiss(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)
	key := []byte("test-key")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Exists(key)
	}
}

func benchmarkRemove(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)

	numKeys := 10000
	keys := make([][]byte, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = []byte(fmt.Sprintf("test-key-%d", i))
		mustPut(b, engine, string(keys[i]), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if st := engine.Remove(keys[i%numKeys]); st != kv.StatusOK {
			b.Fatalf("Remove = %v", st)
		}
	}
}

func benchmarkGetAll(b *testing.B, factory Factory) {
	engine := openEngine(b, factory)

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		mustPut(b, engine, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		visited := 0
		engine.GetAll(func(k, v []byte) int {
			visited++
			return 0
		})
		if visited != numKeys {
			b.Fatalf("GetAll visited %d, want %d", visited, numKeys)
		}
	}
}

// benchmarkReopen measures recovery time for a populated pool.
func benchmarkReopen(b *testing.B, factory Factory) {
	path := filepath.Join(b.TempDir(), "reopen.pool")

	engine := factory(b, path)
	for i := 0; i < 10000; i++ {
		mustPut(b, engine, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}
	if err := engine.Close(); err != nil {
		b.Fatalf("Close: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine = factory(b, path)
		b.StopTimer()
		if err := engine.Close(); err != nil {
			b.Fatalf("Close: %v", err)
		}
		b.StartTimer()
	}
}
