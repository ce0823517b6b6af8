package kv

import (
	"github.com/ValentinKolb/nvKV/cmd/util"
	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/ValentinKolb/nvKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Set default store ID for key value operations
	KeyValueCommands.PersistentFlags().Int("store", 100, util.WrapString("ID of the store to connect to"))

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(countCmd)
	KeyValueCommands.AddCommand(scanCmd)
	KeyValueCommands.AddCommand(boundCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(exportCmd)
	KeyValueCommands.AddCommand(importCmd)
	KeyValueCommands.AddCommand(benchCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	storeId := util.GetStoreID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the KV store client
	rpcStore, err = client.NewRPCStore(
		storeId,
		*config,
		t,
		s,
	)

	return err
}
