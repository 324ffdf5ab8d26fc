// Package main provides a performance benchmarking tool for the Hotswarm CLI.
// It measures how long the knowledge base takes to learn from repositories of
// different sizes and how fast predictions and searches run against it,
// running each test multiple times and treating the first successful run as cold,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - hotswarm binary installed and available in PATH
// - Test repositories cloned to the specified base directory
// - Git repositories: csv-parser, fd, git, kubernetes
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing test repositories
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of one command on one repository.
type BenchmarkResult struct {
	Repository string
	Command    string
	ColdTime   string
	WarmTime   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase   string
	Timeout    time.Duration
	Runs       int
	MaxCommits int
	TestRepos  []string
	Queries    map[string]string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}
	repoBase := os.Args[1]

	config := BenchmarkConfig{
		RepoBase:   repoBase,
		Timeout:    5 * time.Minute,
		Runs:       4,
		MaxCommits: 2000,
		TestRepos:  []string{"csv-parser", "fd", "git", "kubernetes"},
		Queries: map[string]string{
			"csv-parser": "Fix quoted field parsing",
			"fd":         "Add option to follow symlinks",
			"git":        "Fix memory leak in add",
			"kubernetes": "Update cloud controller manager flags",
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that hotswarm binary and test repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("hotswarm"); err != nil {
		return fmt.Errorf("hotswarm binary not found in PATH")
	}
	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured repositories.
// Each repository learns into its own scratch swarm directory.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d runs, %d commits\n",
		len(config.TestRepos), config.Timeout, config.Runs, config.MaxCommits)

	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		repoPath := filepath.Join(config.RepoBase, repo)

		swarmDir, err := os.MkdirTemp("", "hotswarm-bench-"+repo+"-*")
		if err != nil {
			fmt.Printf("  Skipping %s: %v\n", repo, err)
			continue
		}

		bootstrapArgs := []string{"kb", "bootstrap", "--max-commits", strconv.Itoa(config.MaxCommits)}
		results = append(results, runBenchmarkSuite(config, repo, repoPath, swarmDir, "bootstrap", bootstrapArgs, func() {
			_ = os.RemoveAll(swarmDir)
		}))

		query := config.Queries[repo]
		results = append(results, runBenchmarkSuite(config, repo, repoPath, swarmDir, "predict",
			[]string{"kb", "predict", "--title", query}, nil))
		results = append(results, runBenchmarkSuite(config, repo, repoPath, swarmDir, "search",
			[]string{"kb", "search", query}, nil))

		_ = os.RemoveAll(swarmDir)
	}

	return results
}

// runBenchmarkSuite runs a command config.Runs times. reset, if set, runs before every run.
func runBenchmarkSuite(config BenchmarkConfig, repo, repoPath, swarmDir, command string, args []string, reset func()) BenchmarkResult {
	fmt.Printf("  Running %s (%d runs)\n", command, config.Runs)

	args = append(args, "--swarm-dir", swarmDir, "--output", "json")
	coldTime, warmTimes := runBenchmark(config, repoPath, args, reset)

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	warmAvg := "TIMEOUT"
	if len(warmTimes) > 0 {
		var sum float64
		for _, t := range warmTimes {
			sum += t
		}
		warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(warmTimes)))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", coldTimeStr, warmAvg)

	return BenchmarkResult{
		Repository: repo,
		Command:    command,
		ColdTime:   coldTimeStr,
		WarmTime:   warmAvg,
	}
}

// runBenchmark executes a hotswarm command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, repoPath string, args []string, reset func()) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		if reset != nil {
			reset()
		}
		start := time.Now()

		cmd := exec.Command("hotswarm", args...)
		cmd.Dir = repoPath

		done := make(chan bool)
		var cmdErr error

		go func() {
			_, cmdErr = cmd.Output()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil {
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
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("hotswarm_benchmark_%s.csv", timestamp))

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

	if err := writer.Write([]string{"repo", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "bootstrap", "Knowledge Base Bootstrap:")
	printCommandSummary(results, "predict", "File Prediction:")
	printCommandSummary(results, "search", "Pattern Search:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-12s cold %-10s warm %s\n", result.Repository, result.ColdTime, strings.TrimSpace(result.WarmTime))
		}
	}
}
