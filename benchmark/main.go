// Package main provides a performance benchmarking tool for the peakbase CLI.
// It generates synthetic experiments of increasing size, then measures the
// execution time of import, edit, view, export and recompute against a fresh
// SQLite store, running each command multiple times, treating the first
// successful run as cold and averaging the rest as warm, and writes a CSV
// with the results.
//
// Prerequisites:
// - peakbase binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for generated CSVs and the benchmark database (default: a temp dir)
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the cold time and the average of warm runs for one command.
type BenchmarkResult struct {
	Samples  int
	Command  string
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir  string
	Timeout  time.Duration
	Workers  int
	Runs     int
	Channels int
	Sizes    []int
}

func main() {
	if len(os.Args) > 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}
	workDir := ""
	if len(os.Args) == 2 {
		workDir = os.Args[1]
	} else {
		dir, err := os.MkdirTemp("", "peakbase-benchmark-*")
		if err != nil {
			fmt.Printf("Failed to create work dir: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		workDir = dir
	}

	config := BenchmarkConfig{
		WorkDir:  workDir,
		Timeout:  5 * time.Minute,
		Workers:  8,
		Runs:     4,
		Channels: 8,
		Sizes:    []int{1_000, 10_000, 100_000},
	}

	if _, err := exec.LookPath("peakbase"); err != nil {
		fmt.Printf("Prerequisites check failed: peakbase binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results, config.Sizes)
}

// runBenchmarks executes the command suite for every configured size.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: sizes %v, %d channels, %v timeout, %d workers, %d runs\n",
		config.Sizes, config.Channels, config.Timeout, config.Workers, config.Runs)

	for _, n := range config.Sizes {
		fmt.Printf("Benchmarking %d samples\n", n)

		csvPath := filepath.Join(config.WorkDir, fmt.Sprintf("synthetic_%d.csv", n))
		if err := writeSynthetic(csvPath, n, config.Channels); err != nil {
			fmt.Printf("  Failed to generate data: %v\n", err)
			continue
		}
		dbPath := filepath.Join(config.WorkDir, fmt.Sprintf("bench_%d.db", n))
		_ = os.Remove(dbPath)
		env := []string{
			"PEAKBASE_STORE_BACKEND=sqlite",
			"PEAKBASE_STORE_DB_CONNECT=" + dbPath,
			"PEAKBASE_WORKERS=" + strconv.Itoa(config.Workers),
		}

		results = append(results, runBenchmarkSuite(config, n, env, "import", []string{"experiment", "import", csvPath}))

		// Every import creates a new experiment; keep the last one for the rest
		expID, channelID, err := lastImport(env)
		if err != nil {
			fmt.Printf("  Failed to read imported experiment: %v\n", err)
			continue
		}

		last := n - 1
		edit := []string{"channel", "edit", channelID,
			"--baseline", fmt.Sprintf("0,%d,%d", last/2, last),
			"--integrals", fmt.Sprintf("%d:%d:peak,%d:%d", last/10, last*4/10, last/2, last*9/10)}
		results = append(results, runBenchmarkSuite(config, n, env, "edit", edit))
		results = append(results, runBenchmarkSuite(config, n, env, "show", []string{"channel", "show", channelID, "--points", "500"}))
		results = append(results, runBenchmarkSuite(config, n, env, "export", []string{"experiment", "export", expID, "--kind", "filtered", "--output", "csv"}))
		results = append(results, runBenchmarkSuite(config, n, env, "recompute", []string{"experiment", "recompute", expID}))
	}

	return results
}

// writeSynthetic writes a time column and channels with a Gaussian peak on a sloped baseline.
func writeSynthetic(path string, n, channels int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	header := []string{"time"}
	for c := range channels {
		header = append(header, fmt.Sprintf("CH%d", c+1))
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	row := make([]string, channels+1)
	for i := range n {
		t := float64(i)
		row[0] = strconv.Itoa(i)
		for c := range channels {
			center := float64(n) * float64(c+1) / float64(channels+1)
			width := float64(n) / 40
			y := 0.002*t + float64(c) + 5*math.Exp(-((t-center)*(t-center))/(2*width*width))
			row[c+1] = strconv.FormatFloat(y, 'f', 6, 64)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// lastImport returns the newest experiment id and the id of its first channel.
func lastImport(env []string) (expID, channelID string, err error) {
	out, err := peakbase(env, "experiment", "list", "--output", "json")
	if err != nil {
		return "", "", err
	}
	var list []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out, &list); err != nil || len(list) == 0 {
		return "", "", fmt.Errorf("no experiments listed: %v", err)
	}
	expID = list[0].ID

	out, err = peakbase(env, "experiment", "show", expID, "--output", "json")
	if err != nil {
		return "", "", err
	}
	var exp struct {
		Channels []struct {
			ID string `json:"id"`
		} `json:"channels"`
	}
	if err := json.Unmarshal(out, &exp); err != nil || len(exp.Channels) == 0 {
		return "", "", fmt.Errorf("no channels shown: %v", err)
	}
	return expID, exp.Channels[0].ID, nil
}

func peakbase(env []string, args ...string) ([]byte, error) {
	cmd := exec.Command("peakbase", args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.Output()
}

// runBenchmarkSuite times one command and summarizes its cold and warm runs.
func runBenchmarkSuite(config BenchmarkConfig, n int, env []string, command string, args []string) BenchmarkResult {
	fmt.Printf("  %s (%d runs)\n", command, config.Runs)
	cold, warm := runBenchmark(config, env, args)

	coldStr, warmStr := "TIMEOUT", "TIMEOUT"
	if cold > 0 {
		coldStr = fmt.Sprintf("%.3fs", cold)
	}
	if len(warm) > 0 {
		var sum float64
		for _, t := range warm {
			sum += t
		}
		warmStr = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
	}
	fmt.Printf("    Cold time: %s, Warm average: %s\n", coldStr, warmStr)

	return BenchmarkResult{Samples: n, Command: command, ColdTime: coldStr, WarmTime: warmStr}
}

// runBenchmark executes a peakbase command multiple times and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, env, args []string) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		start := time.Now()

		cmd := exec.Command("peakbase", args...)
		cmd.Env = append(os.Environ(), env...)

		done := make(chan error, 1)
		if err := cmd.Start(); err != nil {
			continue
		}
		go func() { done <- cmd.Wait() }()

		select {
		case err := <-done:
			if err == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("peakbase_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"samples", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{strconv.Itoa(result.Samples), result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult, sizes []int) {
	fmt.Printf("Benchmark complete\n")
	for _, n := range sizes {
		fmt.Printf("%d samples:\n", n)
		for _, result := range results {
			if result.Samples == n {
				fmt.Printf("  %-10s: Cold: %s, Warm: %s\n", result.Command, result.ColdTime, strings.TrimSpace(result.WarmTime))
			}
		}
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
