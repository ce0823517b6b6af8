// Package client implements the RPC client for nvKV. It provides an
// implementation of the store.Store interface that communicates with
// remote servers via RPC.
//
// The package focuses on:
//   - Transparent RPC access to remote stores
//   - Integration with the transport and serialization layers
//   - Error handling carrying wire statuses back as *kv.Error values
//   - Paged iteration: range scans are fetched in bounded batches and
//     resumed after the last delivered key, so the server stays stateless
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the
//     store.Store interface. This client forwards all operations to remote
//     servers via the configured transport layer.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	// Create a serializer
//	serializer := serializer.NewBinarySerializer()
//
//	// Create store client
//	store, _ := client.NewRPCStore(1, config, tcp.NewTCPClientTransport(), serializer)
//
//	// Use the store
//	store.Put([]byte("mykey"), []byte("myvalue"))
//	value, found, _ := store.Get([]byte("mykey"))
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from multiple
//	goroutines without additional synchronization.
package client
