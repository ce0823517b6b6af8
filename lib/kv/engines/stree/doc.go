// Package stree implements the nvKV hybrid B+-tree engine: a persistent
// key-value store whose record payloads live in a memory-mapped pool while
// the index that finds them is rebuilt in DRAM on every open.
//
// The tree has two strata:
//
//   - Persistent leaves: fixed-capacity slot arrays allocated from the
//     pool and chained into a singly-linked list anchored at the pool
//     root. A slot carries the full packed key/value payload, the explicit
//     sizes, and a one-byte Pearson fingerprint of the key. Zero is
//     reserved as the empty-slot sentinel, which is why the hash function
//     never returns it. List order is allocation order, not key order.
//
//   - Volatile index: inner nodes with up to four separator keys, plus
//     one descriptor per live leaf mirroring its hash array and key
//     strings for cache-friendly search. The index is never persisted; it
//     is derived state and is reconstructed from the leaf chain at open.
//
// Point lookups descend the volatile index and scan the target leaf in
// reverse slot order, comparing keys only where the one-byte fingerprint
// matches. Updates prefer the slot already holding the key, then the last
// empty slot seen; a full leaf triggers a split.
//
// Every persistent mutation runs inside a single pool transaction. A
// split obtains the new leaf (free list first, else a fresh allocation
// prepended to the chain), moves every slot sorting strictly above the
// lower-median key into it, and places the incoming record - all in one
// transaction. The descriptor mirrors and the inner-node rebalance are
// applied only after commit: inner nodes are rebuilt on open anyway, so a
// crash between commit and rebalance loses nothing.
//
// Recovery walks the leaf chain, mirrors each surviving leaf into a
// descriptor, pushes fully empty leaves onto a volatile free list, sorts
// the rest by their maximum key, and threads them through the same
// propagation routine a split uses. The result is a balanced index whose
// separators equal each leaf's maximum key.
//
// The engine is registered under the name "stree"; the pool layout tag
// carries the same name so opening a foreign pool fails cleanly.
//
// Thread-safety: an engine instance is single-writer, single-reader.
// Callbacks run synchronously and may re-enter read-only operations, but
// must not mutate the engine. The store package provides a guarded
// wrapper for concurrent callers.
package stree
