package kv

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Stores the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Put([]byte(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := rpcStore.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", args[0], found, value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Removes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Remove([]byte(args[0])); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := rpcStore.Exists([]byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [mode] [key] [key2]",
		Short: "Counts records: all, above, equal-above, below, equal-below, or between two keys",
		Long: `Counts records. Modes:
  count all
  count above [key]        keys strictly greater
  count equal-above [key]  keys greater or equal
  count below [key]        keys strictly less
  count equal-below [key]  keys less or equal
  count between [k1] [k2]  keys strictly between both (exclusive)`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cnt uint64
				err error
			)
			switch args[0] {
			case "all":
				cnt, err = rpcStore.CountAll()
			case "above":
				cnt, err = rpcStore.CountAbove(keyArg(args, 1))
			case "equal-above":
				cnt, err = rpcStore.CountEqualAbove(keyArg(args, 1))
			case "below":
				cnt, err = rpcStore.CountBelow(keyArg(args, 1))
			case "equal-below":
				cnt, err = rpcStore.CountEqualBelow(keyArg(args, 1))
			case "between":
				if len(args) != 3 {
					return fmt.Errorf("between requires two keys")
				}
				cnt, err = rpcStore.CountBetween([]byte(args[1]), []byte(args[2]))
			default:
				return fmt.Errorf("unknown count mode %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("count=%d\n", cnt)
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [mode] [key] [key2]",
		Short: "Lists records in ascending key order: all, above, equal-above, below, equal-below, between",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			print := func(k, v []byte) bool {
				fmt.Printf("%s=%s\n", k, v)
				return true
			}
			switch args[0] {
			case "all":
				return rpcStore.Each(print)
			case "above":
				return rpcStore.EachAbove(keyArg(args, 1), print)
			case "equal-above":
				return rpcStore.EachEqualAbove(keyArg(args, 1), print)
			case "below":
				return rpcStore.EachBelow(keyArg(args, 1), print)
			case "equal-below":
				return rpcStore.EachEqualBelow(keyArg(args, 1), print)
			case "between":
				if len(args) != 3 {
					return fmt.Errorf("between requires two keys")
				}
				return rpcStore.EachBetween([]byte(args[1]), []byte(args[2]), print)
			default:
				return fmt.Errorf("unknown scan mode %q", args[0])
			}
		},
	}
	boundCmd = &cobra.Command{
		Use:   "bound [mode] [key]",
		Short: "Boundary queries: upper, lower, begin, next, prev",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				pair store.Pair
				err  error
			)
			switch args[0] {
			case "upper":
				pair, err = rpcStore.UpperBound(keyArg(args, 1))
			case "lower":
				pair, err = rpcStore.LowerBound(keyArg(args, 1))
			case "begin":
				pair, err = rpcStore.First()
			case "next":
				pair, err = rpcStore.Next(keyArg(args, 1))
			case "prev":
				pair, err = rpcStore.Prev(keyArg(args, 1))
			default:
				return fmt.Errorf("unknown bound mode %q", args[0])
			}
			if err != nil {
				return err
			}
			if !pair.Found {
				fmt.Println("no matching record")
				return nil
			}
			fmt.Printf("%s=%s\n", pair.Key, pair.Value)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints store metadata and engine statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.Info()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Writes a compressed snapshot of the store to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			if err := store.Export(rpcStore, file); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", args[0])
			return nil
		},
	}
	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Replays a snapshot file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			if err := store.Import(rpcStore, file); err != nil {
				return err
			}
			fmt.Printf("imported from %s\n", args[0])
			return nil
		},
	}
)

// keyArg returns argument i as a key, or nil when absent.
func keyArg(args []string, i int) []byte {
	if i >= len(args) {
		return nil
	}
	return []byte(args[i])
}
