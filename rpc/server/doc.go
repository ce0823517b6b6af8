// Package server implements the RPC server for nvKV. It hosts one or
// more engine-backed stores and routes incoming requests to them by
// store ID.
//
// The package focuses on:
//   - Server-side RPC request handling for every store operation
//   - Adapter pattern to decouple store logic from RPC mechanisms
//   - Hosting multiple stores, each over its own engine and pool file
//   - Optional metrics endpoint exposing per-operation counters
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server
//     adapters, with the Handle method that processes incoming requests
//     against a store.Store.
//
//   - NewStoreServerAdapter: Factory function creating the adapter for
//     key-value store operations, translating RPC requests to store.Store
//     method calls. Iteration requests are answered as bounded batches.
//
//   - NewRPCServer: Factory function creating a configured server with
//     the specified transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Stores: []common.StoreConfig{
//	    {StoreID: 100, Engine: "stree", Path: "/mnt/pmem/db.pool", Size: 1 << 30},
//	  },
//	  Transport: common.TransportConfig{
//	    Endpoint:      "0.0.0.0:8080",
//	    TimeoutSecond: 5,
//	  },
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
