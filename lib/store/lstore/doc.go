// Package lstore implements a local, single-node key-value store based on
// the store.Store interface. It provides a thin wrapper around any
// kv.Engine with concurrency guarding and operation metrics.
//
// Key Features:
//   - Direct integration with kv.Engine implementations
//   - Reader-writer locking so the single-writer engine core is safe for
//     concurrent callers
//   - Status-to-error conversion at the interface boundary
//   - Per-operation Prometheus-style counters via VictoriaMetrics/metrics
//
// Implementation Details:
//
//   - Locking: reads take the shared lock, writes the exclusive lock. The
//     engine core itself defines no behavior under concurrent mutation, so
//     the guard lives here rather than in the engine.
//
//   - Composition Architecture: an EngineFactory injects the underlying
//     kv.Engine, so the store works with any registered engine without
//     modification.
//
//   - Metrics: every operation bumps a counter labeled with the engine
//     name and operation, exported through the process-global metrics set.
package lstore
