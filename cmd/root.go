package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// deps holds the knowledge base, tracker and history store opened by sharedSetup.
var deps *core.Deps

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "hotswarm",
	Short: "Run many coding agents on one repository without stepping on each other.",
	Long: `Hotswarm plans, launches and merges parallel work items on a Git repository.

It predicts which files each item will touch, groups compatible items into batches,
gives every worker its own worktree and branch, and merges finished branches back
while learning from every conflict it sees.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig sets the environment binding and defaults.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("HOTSWARM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("swarm-dir", contract.DefaultSwarmDir)
	viper.SetDefault("max-workers", contract.DefaultMaxWorkers)
	viper.SetDefault("heartbeat-interval", contract.DefaultHeartbeatInterval.String())
	viper.SetDefault("heartbeat-timeout", contract.DefaultHeartbeatTimeout.String())
	viper.SetDefault("branch-prefix", contract.DefaultBranchPrefix)
	viper.SetDefault("commit-prefix", contract.DefaultCommitPrefix)
	viper.SetDefault("min-similar-patterns", contract.DefaultMinSimilarPatterns)
	viper.SetDefault("overlap-risk-threshold", contract.DefaultOverlapRiskThreshold)
	viper.SetDefault("batches", contract.DefaultNumBatches)
	viper.SetDefault("batch-size", contract.DefaultMaxBatchSize)
	viper.SetDefault("min-compatibility", contract.DefaultMinCompatibility)
	viper.SetDefault("max-commits", contract.DefaultMaxCommits)
	viper.SetDefault("min-files-changed", contract.DefaultMinFilesChanged)
	viper.SetDefault("tracker", schema.NoneTracker)
	viper.SetDefault("review-status", contract.DefaultReviewStatus)
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
}

// loadConfigFile reads --config, or config.json in the swarm directory of repoPath.
// A missing file is fine; we'll use defaults/env/flags.
func loadConfigFile(repoPath string) error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		swarmDir := viper.GetString("swarm-dir")
		if !filepath.IsAbs(swarmDir) {
			swarmDir = filepath.Join(repoPath, swarmDir)
		}
		viper.SetConfigName(strings.TrimSuffix(contract.ConfigFileName, filepath.Ext(contract.ConfigFileName)))
		viper.SetConfigType("json")
		viper.AddConfigPath(swarmDir)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// configSetup merges config file, env and flags and validates them into cfg.
// It opens no stores, so migrations can run against a fresh database.
func configSetup(ctx context.Context) error {
	repoPath := viper.GetString("repo")
	if repoPath == "" {
		repoPath = "."
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(repoPath); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	input.RepoPathStr = repoPath

	// 3. Run all validation and complex parsing.
	client := contract.NewLocalGitClient()
	return contract.ProcessAndValidate(ctx, cfg, client, input)
}

// sharedSetup validates the configuration and opens the shared dependencies.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	if err := configSetup(ctx); err != nil {
		return err
	}
	opened, err := core.OpenDeps(ctx, cfg, contract.NewLocalGitClient())
	if err != nil {
		return err
	}
	deps = opened
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper wraps configSetup for commands that open their stores themselves.
func configSetupWrapper(_ *cobra.Command, _ []string) error {
	return configSetup(rootCtx)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Close releases the dependencies opened by the last command.
func Close() error {
	return deps.Close()
}
