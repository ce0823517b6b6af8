// Package testing provides standardised tests and benchmarks for storage
// engines that satisfy the kv.Engine interface.
//
// The package contains:
//   - testing: A conformance suite covering point operations, range and
//     boundary queries, split behavior, and close/reopen recovery
//   - benchmark: Performance tests for measuring throughput of common
//     engine operations
//
// Engines are opened through a Factory that receives the pool path, so
// the suite can close a pool and reopen it to exercise recovery.
//
// Example usage:
//
//	// Creating a factory function for your engine
//	factory := func(t testing.TB, path string) kv.Engine {
//		cfg := config.New().PutString("path", path).PutUint64("size", 1<<30)
//		engine, err := kv.Open("myengine", cfg)
//		if err != nil {
//			t.Fatalf("open: %v", err)
//		}
//		return engine
//	}
//
//	// Running the standard test suite
//	enginetest.RunEngineTests(t, "myengine", factory)
//
//	// Running performance benchmarks
//	enginetest.RunEngineBenchmarks(b, "myengine", factory)
package testing
