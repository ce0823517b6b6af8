// Package store provides the high-level interface for nvKV key-value
// operations with unified error handling. It serves as an abstraction
// layer over the lower-level kv.Engine implementations, adding concurrency
// guarding, operation metrics, and snapshot streaming.
//
// The package focuses on:
//   - A unified interface (Store) for key-value, range, and boundary
//     operations across different backends
//   - Error reporting through *kv.Error values carrying the wire status
//   - Snapshot export and import for backups and data migration
//
// Key Components:
//
//   - Store Interface: The core abstraction defining point operations
//     (Put, Get, Exists, Remove), range counts and iteration in ascending
//     key order, and cursor-style boundary queries. All implementations
//     share this common interface, allowing applications to switch between
//     a local engine and a remote store without code changes. Misses are
//     reported through return values; only real failures become errors.
//
//   - Snapshot Streams: Export walks every record into an s2-compressed,
//     length-prefixed stream with a magic header; Import replays such a
//     stream through Put. Snapshots are fuzzy when writers run
//     concurrently, exactly like the iteration they are built on.
//
// Implementations:
//
//	The package includes one local implementation of the Store interface:
//
//	- Local Store (lstore): wraps a kv.Engine opened in-process, adds a
//	  reader-writer guard (the engine core is single-writer by contract)
//	  and per-operation metrics counters.
//	  Available in the "github.com/ValentinKolb/nvKV/lib/store/lstore" package.
//
//	A remote implementation with the same interface is provided by the
//	rpc/client package, backed by the rpc binding surface.
package store
