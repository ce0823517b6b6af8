// Package pmem provides the persistent memory pool that backs the nvKV
// storage engines. A pool is a single memory-mapped file containing a
// layout-tagged header, an undo log, and a byte-addressable heap managed
// by a first-fit free-list allocator.
//
// The package exposes three cooperating pieces:
//
//   - Pool: the mapped file. A pool is created with a layout tag (the name
//     of the engine that owns it); opening a pool with a different tag
//     fails, which keeps engine and on-media format honest with each other.
//     Pools are opened exclusively: a second open of the same path, from
//     this process or another, is rejected.
//
//   - PPtr: a pool-relative offset, the only pointer type that may be
//     stored inside the pool. PPtr values remain valid across process
//     restarts; Go heap pointers must never be written to pool memory.
//
//   - Tx: an all-or-nothing unit of pool mutation. Before a byte range is
//     modified it is snapshotted into a persistent undo log; commit
//     discards the log, abort (or a crash at any point) restores every
//     snapshotted range. Allocations made inside an aborted transaction
//     are released, frees are deferred to commit, so a transaction either
//     happens entirely or not at all.
//
// Durability is provided by msync on the shared mapping. Opening a pool
// whose undo log is non-empty rolls the interrupted transaction back
// before the pool is handed to the engine.
package pmem
