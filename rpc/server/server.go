package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	"github.com/ValentinKolb/nvKV/lib/logging"
	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/ValentinKolb/nvKV/lib/store/lstore"
	"github.com/ValentinKolb/nvKV/rpc/common"
	"github.com/ValentinKolb/nvKV/rpc/serializer"
	"github.com/ValentinKolb/nvKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logging.GetLogger("rpc")

// serverStore is one store hosted by the RPC server: the wrapped engine
// plus the adapter that translates requests for it.
type serverStore struct {
	Store   store.Store
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create stores map
	storeMap := xsync.NewMapOf[uint64, serverStore]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		stores:     storeMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	stores     *xsync.MapOf[uint64, serverStore]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(storeId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate store
		hosted, ok := s.stores.Load(storeId)

		// Case store does not exist -> error
		if !ok {
			respMsg = *common.NewErrorResponse(fmt.Sprintf("store %d not found", storeId))
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = *common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
			} else {
				// Let the adapter handle the request
				respMsg = *hosted.Adapter.Handle(&msg, hosted.Store)
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %s", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse("failed to serialize response"))
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init loggers
	if level, err := logging.ParseLevel(s.config.LogLevel); err == nil {
		logging.SetLevelAll(level)
	}

	// CREATE STORES

	/*
		Note: A single RPC Server can host any number of stores, each over
		its own engine instance and pool file. The following loop opens
		all engines and wires them up for routing by store ID.
	*/

	for _, storeConfig := range s.config.Stores {
		localStore, err := lstore.NewLocalStore(func() (kv.Engine, error) {
			cfg := config.New()
			if storeConfig.Path != "" {
				cfg.PutString("path", storeConfig.Path)
			}
			if storeConfig.Size > 0 {
				cfg.PutUint64("size", storeConfig.Size)
			}
			if storeConfig.ForceCreate {
				cfg.PutUint64("force_create", 1)
			}
			return kv.Open(storeConfig.Engine, cfg)
		})
		if err != nil {
			return fmt.Errorf("failed to open engine %q for store %d: %w",
				storeConfig.Engine, storeConfig.StoreID, err)
		}

		s.stores.Store(storeConfig.StoreID, serverStore{
			Store:   localStore,
			Adapter: NewStoreServerAdapter(),
		})
		Logger.Infof("created %s store for id %d", storeConfig.Engine, storeConfig.StoreID)
	}

	Logger.Infof("nvKV setup completed successfully")

	// Optionally expose the metrics set
	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// serveMetrics exposes the process metrics set in Prometheus text format.
func (s *rpcServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	Logger.Infof("Starting metrics endpoint on %s", s.config.MetricsEndpoint)
	if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
		Logger.Errorf("metrics endpoint failed: %v", err)
	}
}

// Serve starts the RPC server
// This function will also initialize the server plus the stores and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close releases every hosted store and its engine.
func (s *rpcServer) Close() error {
	var firstErr error
	s.stores.Range(func(id uint64, hosted serverStore) bool {
		if err := hosted.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}
