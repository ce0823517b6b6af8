package stree

import (
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	enginetest "github.com/ValentinKolb/nvKV/lib/kv/testing"
)

func factory(t testing.TB, path string) kv.Engine {
	cfg := config.New().
		PutString("path", path).
		PutUint64("size", 1<<30)
	engine, err := kv.Open(EngineName, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return engine
}

func Test(t *testing.T) {
	enginetest.RunEngineTests(t, "stree", factory)
}

func Benchmark(b *testing.B) {
	enginetest.RunEngineBenchmarks(b, "stree", factory)
}
