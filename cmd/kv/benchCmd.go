package kv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/nvKV/cmd/util"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	benchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for nvKV servers",
		RunE:    runBench,
		PreRunE: processBenchConfig,
	}
	benchKeyPrefix        = "__bench"
	benchOps              = 10_000
	benchLargeValueSizeKB = 100
	benchKeySpread        = 100
	benchSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "ops"
	benchCmd.Flags().Int(key, 10_000, util.WrapString("Number of operations per benchmark"))
	key = "large-value-size"
	benchCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	benchCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	benchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchOps = viper.GetInt("ops")
	benchLargeValueSizeKB = viper.GetInt("large-value-size")
	benchKeySpread = viper.GetInt("keys")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func shouldSkip(name string) bool {
	for _, skip := range benchSkip {
		if strings.TrimSpace(skip) == name {
			return true
		}
	}
	return false
}

func benchKey(i int) []byte {
	return []byte(fmt.Sprintf("%s-%d", benchKeyPrefix, i%benchKeySpread))
}

// measure runs op benchOps times and records per-call latency in a timer.
func measure(name string, op func(i int) error) metrics.Timer {
	timer := metrics.NewTimer()
	for i := 0; i < benchOps; i++ {
		start := time.Now()
		if err := op(i); err != nil {
			fmt.Printf("(%s) - error: %v\n", name, err)
		}
		timer.UpdateSince(start)
	}
	return timer
}

func printTimer(name string, timer metrics.Timer) {
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-12s  %8d ops  %10.2f ops/sec  mean %8.2f µs  p50 %8.2f µs  p95 %8.2f µs  p99 %8.2f µs\n",
		name,
		timer.Count(),
		timer.RateMean(),
		timer.Mean()/1000,
		ps[0]/1000,
		ps[1]/1000,
		ps[2]/1000,
	)
}

func runBench(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for nvKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Operations per benchmark: %d\n", benchOps)
	fmt.Printf("Key spread: %d\n", benchKeySpread)
	fmt.Println()

	fmt.Println("starting benchmarks...")

	results := make(map[string]metrics.Timer)
	largeValue := make([]byte, benchLargeValueSizeKB*1024)
	smallValue := []byte("test")

	cleanup := func() {
		for i := 0; i < benchKeySpread; i++ {
			if err := rpcStore.Remove(benchKey(i)); err != nil {
				fmt.Printf("(cleanup) - error removing key: %v\n", err)
			}
		}
	}

	if !shouldSkip("put") {
		timer := measure("put", func(i int) error {
			return rpcStore.Put(benchKey(i), smallValue)
		})
		results["put"] = timer
		printTimer("put", timer)
	}

	if !shouldSkip("put-large") {
		timer := measure("put-large", func(i int) error {
			return rpcStore.Put(benchKey(i), largeValue)
		})
		results["put-large"] = timer
		printTimer("put-large", timer)
		// shrink the values again so the remaining benchmarks read
		// realistic payloads
		for i := 0; i < benchKeySpread; i++ {
			if err := rpcStore.Put(benchKey(i), smallValue); err != nil {
				return err
			}
		}
	}

	if !shouldSkip("get") {
		timer := measure("get", func(i int) error {
			_, _, err := rpcStore.Get(benchKey(i))
			return err
		})
		results["get"] = timer
		printTimer("get", timer)
	}

	if !shouldSkip("exists") {
		timer := measure("exists", func(i int) error {
			_, err := rpcStore.Exists(benchKey(i))
			return err
		})
		results["exists"] = timer
		printTimer("exists", timer)
	}

	if !shouldSkip("count") {
		timer := measure("count", func(i int) error {
			_, err := rpcStore.CountAll()
			return err
		})
		results["count"] = timer
		printTimer("count", timer)
	}

	if !shouldSkip("scan") {
		timer := measure("scan", func(i int) error {
			return rpcStore.Each(func(k, v []byte) bool { return true })
		})
		results["scan"] = timer
		printTimer("scan", timer)
	}

	if !shouldSkip("remove") {
		timer := measure("remove", func(i int) error {
			return rpcStore.Remove(benchKey(i))
		})
		results["remove"] = timer
		printTimer("remove", timer)
	}

	cleanup()

	// Optionally write the results as CSV
	if path := viper.GetString("csv"); path != "" {
		if err := writeCSV(path, results); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", path)
	}

	return nil
}

// writeCSV saves the benchmark timers to a CSV file.
func writeCSV(path string, results map[string]metrics.Timer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"benchmark", "ops", "ops_per_sec", "mean_us", "p50_us", "p95_us", "p99_us"}); err != nil {
		return err
	}
	for name, timer := range results {
		ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
		record := []string{
			name,
			strconv.FormatInt(timer.Count(), 10),
			strconv.FormatFloat(timer.RateMean(), 'f', 2, 64),
			strconv.FormatFloat(timer.Mean()/1000, 'f', 2, 64),
			strconv.FormatFloat(ps[0]/1000, 'f', 2, 64),
			strconv.FormatFloat(ps[1]/1000, 'f', 2, 64),
			strconv.FormatFloat(ps[2]/1000, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
