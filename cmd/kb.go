package cmd

import (
	"strings"

	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/spf13/cobra"
)

// kbCmd focused on knowledge base management.
var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect and maintain the learned knowledge base",
	Long: `Manage the knowledge base that powers file predictions and conflict risk.

The knowledge base lives in <swarm-dir>/kb and stores:
- Patterns: one record per completed item with predictions, outcome and scores
- Keyword to file associations with recency
- File pairs with co-modification and conflict counts

Subcommands:
  stats     - Summarize the learned data and prediction accuracy
  bootstrap - Learn associations from the Git history
  rebuild   - Rebuild the index and compact every log
  search    - Find past items similar to a query
  predict   - Predict the footprint of items
  export    - Export patterns and conflict pairs to Parquet`,
}

// kbStatsCmd prints knowledge base statistics.
var kbStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Summarize the knowledge base",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteKBStats(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Cannot read knowledge base", err)
		}
	},
}

// kbBootstrapCmd learns from the commit history.
var kbBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Learn file associations from the Git history",
	Long: `Seed the knowledge base from recent commits so predictions work on day one.

Keywords of every commit message are associated with the files it changed,
and every pair of files changed together counts as one co-modification.

Examples:
  # Learn from the last 500 commits
  hotswarm kb bootstrap

  # Learn from a longer history, ignoring generated code
  hotswarm kb bootstrap --max-commits 2000 --exclude gen/,*.pb.go`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteKBBootstrap(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Cannot bootstrap knowledge base", err)
		}
	},
}

// kbRebuildCmd rebuilds the index and compacts the logs.
var kbRebuildCmd = &cobra.Command{
	Use:     "rebuild",
	Short:   "Rebuild the index, refresh metrics and compact the logs",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteKBRebuild(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Cannot rebuild knowledge base", err)
		}
	},
}

// kbSearchCmd finds similar patterns.
var kbSearchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Find past items similar to the query",
	Long: `Rank learned patterns by how many keywords of the query they share.

Examples:
  hotswarm kb search login redirect
  hotswarm kb search "database migration" --limit 3`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		if err := core.ExecuteKBSearch(rootCtx, cfg, deps, strings.Join(args, " "), limit); err != nil {
			contract.LogFatal("Cannot search knowledge base", err)
		}
	},
}

// kbPredictCmd predicts item footprints.
var kbPredictCmd = &cobra.Command{
	Use:   "predict [item-id]...",
	Short: "Predict files, layers and complexity of items",
	Long: `Show what the engine expects an item to touch.

Items are fetched from the tracker by id. Use --title to predict an item
that is not tracked anywhere.

Examples:
  hotswarm kb predict 12 15
  hotswarm kb predict --title "Fix login redirect loop"`,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		if err := core.ExecuteKBPredict(rootCtx, cfg, deps, args, title, description); err != nil {
			contract.LogFatal("Cannot predict items", err)
		}
	},
}

// kbExportCmd exports the knowledge base to Parquet files.
var kbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export patterns and conflict pairs to Parquet",
	Long: `Write <output-file>.patterns.parquet and <output-file>.conflict_pairs.parquet.

Requires: --output-file parameter

Examples:
  hotswarm kb export --output-file kb
  duckdb -c "SELECT * FROM read_parquet('kb.conflict_pairs.parquet') ORDER BY conflict_rate DESC"`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteKBExport(rootCtx, cfg, deps, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export knowledge base", err)
		}
	},
}
