package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/nvKV/cmd/kv"
	"github.com/ValentinKolb/nvKV/cmd/serve"
	"github.com/ValentinKolb/nvKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "nvkv",
		Short: "persistent key-value store for non-volatile memory",
		Long: fmt.Sprintf(`nvKV (v%s)

A persistent key-value storage engine for byte-addressable
non-volatile memory, with a hybrid B+-tree index, crash-consistent
transactional updates, and rebuild-on-open recovery.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of nvKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nvKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
