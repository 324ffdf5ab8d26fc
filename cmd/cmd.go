// Package cmd defines the command-line interface for hotswarm.
package cmd

import (
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the kb subcommands to the parent kb command
	kbCmd.AddCommand(kbStatsCmd)
	kbCmd.AddCommand(kbBootstrapCmd)
	kbCmd.AddCommand(kbRebuildCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbPredictCmd)
	kbCmd.AddCommand(kbExportCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Add the worker subcommands to the parent worker command
	workerCmd.AddCommand(workerStartPlanningCmd)
	workerCmd.AddCommand(workerStartExecutingCmd)
	workerCmd.AddCommand(workerProgressCmd)
	workerCmd.AddCommand(workerCompleteCmd)
	workerCmd.AddCommand(workerFailCmd)
	workerCmd.AddCommand(workerHeartbeatCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default <swarm-dir>/config.json)")
	rootCmd.PersistentFlags().String("repo", ".", "Path inside the Git repository to orchestrate")
	rootCmd.PersistentFlags().String("swarm-dir", contract.DefaultSwarmDir, "Shared orchestrator directory, relative to the repo root")
	rootCmd.PersistentFlags().String("worktree-base", "", "Directory for worker worktrees (default <repo-parent>/<repo-name>-worktrees)")
	rootCmd.PersistentFlags().Int("max-workers", contract.DefaultMaxWorkers, "Maximum number of parallel workers")
	rootCmd.PersistentFlags().String("heartbeat-interval", contract.DefaultHeartbeatInterval.String(), "How often workers refresh their heartbeat")
	rootCmd.PersistentFlags().String("heartbeat-timeout", contract.DefaultHeartbeatTimeout.String(), "Heartbeat age after which a worker times out")
	rootCmd.PersistentFlags().String("branch-prefix", contract.DefaultBranchPrefix, "Prefix of worker branch names")
	rootCmd.PersistentFlags().String("commit-prefix", contract.DefaultCommitPrefix, "Prefix of merge commit messages")
	rootCmd.PersistentFlags().Int("min-similar-patterns", contract.DefaultMinSimilarPatterns, "Similar patterns needed before predictions count as learned")
	rootCmd.PersistentFlags().Int("overlap-risk-threshold", contract.DefaultOverlapRiskThreshold, "Shared predicted files that make a pair risky")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().String("tracker", string(schema.NoneTracker), "Issue tracker: github or file or none")
	rootCmd.PersistentFlags().String("tracker-repo", "", "GitHub repository in owner/name form")
	rootCmd.PersistentFlags().String("tracker-token", "", "GitHub token (prefer HOTSWARM_TRACKER_TOKEN)")
	rootCmd.PersistentFlags().String("tracker-file", "", "YAML items file for the file tracker")
	rootCmd.PersistentFlags().String("user", "", "Tracker login used to prefer your own items")
	rootCmd.PersistentFlags().String("review-status", contract.DefaultReviewStatus, "Tracker status set when a worker branch is merged")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of suggestCmd to Viper
	suggestCmd.Flags().Int("batches", contract.DefaultNumBatches, "Maximum number of batches to suggest")
	suggestCmd.Flags().Int("batch-size", contract.DefaultMaxBatchSize, "Maximum number of items per batch")
	suggestCmd.Flags().Float64("min-compatibility", contract.DefaultMinCompatibility, "Minimum average compatibility (0 to 1) to join a batch")
	if err := viper.BindPFlags(suggestCmd.Flags()); err != nil {
		contract.LogFatal("Error binding suggest flags", err)
	}

	// Bind all flags of kbBootstrapCmd to Viper
	kbBootstrapCmd.Flags().Int("max-commits", contract.DefaultMaxCommits, "Number of recent commits to learn from")
	kbBootstrapCmd.Flags().Int("min-files-changed", contract.DefaultMinFilesChanged, "Skip commits that changed fewer files")
	if err := viper.BindPFlags(kbBootstrapCmd.Flags()); err != nil {
		contract.LogFatal("Error binding kb bootstrap flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}

	// Command-local flags that are not configuration
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	abortCmd.Flags().String("reason", "aborted by operator", "Reason recorded on the swarm")
	kbSearchCmd.Flags().Int("limit", 10, "Maximum number of patterns to show")
	kbPredictCmd.Flags().String("title", "", "Title of an ad-hoc item to predict")
	kbPredictCmd.Flags().String("description", "", "Description of the ad-hoc item")

	workerCmd.PersistentFlags().String("worktree", ".", "Worktree of the worker (where worker.json lives)")
	workerStartExecutingCmd.Flags().Int("steps", 0, "Total number of planned steps")
	workerProgressCmd.Flags().Int("completed", 0, "Steps completed so far")
	workerProgressCmd.Flags().Int("total", 0, "Total number of steps")
	workerCompleteCmd.Flags().String("summary", "", "Short summary of the change")
	workerCompleteCmd.Flags().String("files", "", "Comma-separated list of changed files")
}
