package cmd

import (
	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyCmd focused on run history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the run history database",
	Long: `Manage the database that records every swarm run and worker outcome.

When enabled, Hotswarm stores:
- Run metadata (swarm id, base branch, item count, configuration, duration, final phase)
- Worker outcomes (item, status, files changed, minutes, conflicts)

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show run history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Remove all recorded runs and worker outcomes",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryClear(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
	},
}

// historyStatusCmd shows run history statistics.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show run history statistics",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryStatus(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Failed to get run history status", err)
		}
	},
}

// historyExportCmd exports the run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored runs and worker outcomes to Parquet files.

Writes <output-file>.swarm_runs.parquet and <output-file>.worker_outcomes.parquet.

Requires: --output-file parameter

Examples:
  # Export all data
  hotswarm history export --output-file hotswarm-data

  # Use with DuckDB for analysis
  duckdb -c "SELECT status, avg(actual_minutes) FROM read_parquet('hotswarm-data.worker_outcomes.parquet') GROUP BY 1"`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryExport(rootCtx, cfg, deps, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  hotswarm history migrate --history-backend sqlite

  # Migrate to specific version
  hotswarm history migrate --target-version 2

  # Rollback to initial state
  hotswarm history migrate --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: configSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := core.ExecuteHistoryMigrate(rootCtx, cfg, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
