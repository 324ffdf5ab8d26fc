package cmd

import (
	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/spf13/cobra"
)

// initCmd writes a default config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.json into the swarm directory",
	Long: `Create <swarm-dir>/config.json with the default run settings.

Edit the file to change worker limits, heartbeat timing, branch naming,
learning thresholds, the issue tracker or the run history backend.

Examples:
  # Create the default config
  hotswarm init

  # Reset an existing config
  hotswarm init --force`,
	Args:    cobra.NoArgs,
	PreRunE: configSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		force, _ := cmd.Flags().GetBool("force")
		if err := core.ExecuteInit(rootCtx, cfg, force); err != nil {
			contract.LogFatal("Cannot write config", err)
		}
	},
}

// suggestCmd groups items into compatible batches.
var suggestCmd = &cobra.Command{
	Use:   "suggest [item-id]...",
	Short: "Suggest batches of items that can run in parallel",
	Long: `Predict the footprint of each item and group compatible items into batches.

Each pair of items is scored on predicted file overlap, architectural layers,
complexity balance, priority and past conflicts between their files. Batches
are built greedily from the most urgent item and ranked by average score.

Without item ids, the open items of the configured tracker are used.

Examples:
  # Batch the open GitHub issues
  hotswarm suggest --tracker github --tracker-repo acme/web

  # Batch specific items, at most 3 per batch
  hotswarm suggest 12 15 18 21 --batch-size 3

  # Only accept very safe combinations
  hotswarm suggest --min-compatibility 0.8 --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteSuggest(rootCtx, cfg, deps, args); err != nil {
			contract.LogFatal("Cannot suggest batches", err)
		}
	},
}

// startCmd prepares one worktree per item.
var startCmd = &cobra.Command{
	Use:   "start <item-id>...",
	Short: "Start a swarm with one worker per item",
	Long: `Analyze overlap between the items, then create a branch and worktree per item.

Each worktree receives a worker.json describing its item, branch and heartbeat
interval. The swarm state is written to <swarm-dir>/state.json.

The working tree must be clean and no other swarm may be running.

Examples:
  # Start three workers
  hotswarm start 12 15 18`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteStart(rootCtx, cfg, deps, args); err != nil {
			contract.LogFatal("Cannot start swarm", err)
		}
	},
}

// monitorCmd shows the swarm state.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show worker status and time out silent workers",
	Long: `Print the status of every worker of the current swarm.

Workers that are executing but missed their heartbeat for longer than
--heartbeat-timeout are marked as timed out.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMonitor(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Cannot monitor swarm", err)
		}
	},
}

// mergeCmd merges completed worker branches.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge completed worker branches into the base branch",
	Long: `Merge the branch of every completed worker into the base branch.

Merging stops at the first conflict. The conflicting blocks are written to
<swarm-dir>/pending-conflicts.json; resolve and commit them, then run merge again.
Every merge feeds the knowledge base with the files that changed and collided.

Examples:
  # Merge everything that is done
  hotswarm merge

  # Inspect the conflict that stopped the merge
  hotswarm conflicts`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMerge(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Cannot merge swarm", err)
		}
	},
}

// conflictsCmd prints the pending conflict report.
var conflictsCmd = &cobra.Command{
	Use:     "conflicts",
	Short:   "Show the conflict that stopped the last merge",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteConflicts(rootCtx, cfg, deps); err != nil {
			contract.LogFatal("Cannot read conflicts", err)
		}
	},
}

// abortCmd abandons the current swarm.
var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abandon the current swarm and remove its worktrees",
	Long: `Mark the current swarm as failed, remove its worktrees and clear pending conflicts.

Worker branches are kept so no work is lost.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		reason, _ := cmd.Flags().GetString("reason")
		if err := core.ExecuteAbort(rootCtx, cfg, deps, reason); err != nil {
			contract.LogFatal("Cannot abort swarm", err)
		}
	},
}
