// Package common provides core data structures shared across the nvKV RPC
// system. It defines fundamental types, configuration structures, and
// protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a
//     flexible field set that adapts to different operation types. Keys
//     and values are raw byte blobs so embedded NUL bytes survive every
//     serializer, and every response carries the wire-stable kv.Status of
//     the operation. Includes factory methods for creating the various
//     request and response messages.
//
//   - MessageType: Enumeration defining all supported operations: point
//     operations, counts, batched iteration, boundary queries, and store
//     metadata.
//
//   - ServerConfig: Configuration for the RPC server: hosted stores (one
//     engine instance per store ID), transport settings, optional metrics
//     endpoint, and logging.
//
//   - ClientConfig: Configuration for client components, controlling
//     connection parameters, timeouts, retry behavior, and iteration
//     batch sizes.
package common
