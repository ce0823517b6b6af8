package serve

import (
	"fmt"
	"strconv"
	"strings"

	cmdUtil "github.com/ValentinKolb/nvKV/cmd/util"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/blackhole"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/stree"
	"github.com/ValentinKolb/nvKV/rpc/common"
	"github.com/ValentinKolb/nvKV/rpc/serializer"
	"github.com/ValentinKolb/nvKV/rpc/server"
	"github.com/ValentinKolb/nvKV/rpc/transport"
	"github.com/ValentinKolb/nvKV/rpc/transport/http"
	"github.com/ValentinKolb/nvKV/rpc/transport/tcp"
	"github.com/ValentinKolb/nvKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the nvKV server",
		Long:    `Start the nvKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is NVKV_<flag> (e.g. NVKV_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "stores"
	ServeCmd.PersistentFlags().String(key, "100=stree:nvkv.pool", cmdUtil.WrapString("Comma-separated list of stores to serve. Format: ID=ENGINE[:POOLPATH[:POOLSIZE]] e.g. 100=stree:/mnt/pmem/db.pool:1073741824 or 200=blackhole"))

	key = "force-create"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Recreate pool files even if they exist (destroys existing data)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Per-request timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/nvkv.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address for the Prometheus metrics endpoint (empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (only for tcp)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse stores
	storesConfig := viper.GetString("stores")
	serveCmdConfig.Stores = []common.StoreConfig{}
	for _, storeConfig := range strings.Split(storesConfig, ",") {
		parts := strings.SplitN(storeConfig, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid store format: %s (expected ID=ENGINE[:POOLPATH[:POOLSIZE]])", storeConfig)
		}

		// Parse store ID
		storeID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid store ID %s: %v", parts[0], err)
		}

		// Parse engine spec
		spec := strings.Split(strings.TrimSpace(parts[1]), ":")
		cfg := common.StoreConfig{
			StoreID:     storeID,
			Engine:      spec[0],
			ForceCreate: viper.GetBool("force-create"),
		}
		if len(spec) > 1 {
			cfg.Path = spec[1]
		}
		if len(spec) > 2 {
			size, err := strconv.ParseUint(spec[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pool size %s: %v", spec[2], err)
			}
			cfg.Size = size
		}

		serveCmdConfig.Stores = append(serveCmdConfig.Stores, cfg)
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Transport.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.Transport.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the nvKV server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("nvkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
