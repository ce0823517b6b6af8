package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// StoreConfig describes one store served by the RPC server. Every store
// wraps its own engine instance over its own pool; store IDs route
// requests.
type StoreConfig struct {
	// StoreID is the routing ID clients address this store with
	StoreID uint64
	// Engine is the registered engine name (e.g. "stree", "blackhole")
	Engine string
	// Path is the pool file backing the engine
	Path string
	// Size is the pool size in bytes used when the pool is created
	Size uint64
	// ForceCreate recreates the pool even if the file exists
	ForceCreate bool
}

// TransportConfig holds the settings of the server transport layer.
type TransportConfig struct {
	// Endpoint to listen on (address:port or socket path)
	Endpoint string
	// TimeoutSecond is the per-request read/write deadline
	TimeoutSecond int64

	// TCP tuning knobs, ignored by non-TCP transports
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	ReadBufferSize  int
	WriteBufferSize int
}

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// Stores served by this server
	Stores []StoreConfig

	// Transport settings
	Transport TransportConfig

	// MetricsEndpoint optionally exposes the metrics set over HTTP
	// (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.Transport.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Stores
	addSection("Stores")
	for _, store := range c.Stores {
		detail := store.Engine
		if store.Path != "" {
			detail = fmt.Sprintf("%s (%s, %d bytes)", store.Engine, store.Path, store.Size)
		}
		addField(strconv.FormatUint(store.StoreID, 10), detail)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int

	// BatchLimit bounds iteration batches requested from the server
	// (0 = client default)
	BatchLimit uint64
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	connections := c.ConnectionsPerEndpoint
	if connections < 1 {
		connections = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connections))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
