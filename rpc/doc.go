// Package rpc provides the language-neutral binding surface of nvKV. It
// mirrors every store operation over a compact message protocol, enabling
// clients (in Go or any other language speaking the wire format) to
// operate on remote stores.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the RPC system, including
//     the Message protocol and configuration structures. Statuses on the
//     wire are the stable kv.Status integers.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB) for converting between Message objects and byte
//     arrays.
//
//   - client: An RPC client implementing the store.Store interface,
//     allowing applications to interact with remote stores transparently.
//     Iteration operations are paged in batches under the hood.
//
//   - server: RPC server components that host one or more engine-backed
//     stores, routed by store ID.
package rpc
