package cmd

import (
	"errors"
	"strings"

	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/worker"
	"github.com/huangsam/hotswarm/schema"
	"github.com/spf13/cobra"
)

// workerCmd groups the status updates a worker reports.
//
// Note: Worker subcommands skip sharedSetup. They only need the worker.json of
// the worktree, which points at the shared swarm directory.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Report worker status from inside a swarm worktree",
	Long: `Update this worker's entry in the shared swarm state.

Agents that cannot link Go code call these commands from their worktree.
Every update also refreshes the worker heartbeat; call heartbeat at least
once per --heartbeat-interval while working.

Examples:
  hotswarm worker start-planning
  hotswarm worker start-executing --steps 4
  hotswarm worker progress "write tests" --completed 2 --total 4
  hotswarm worker heartbeat
  hotswarm worker complete --summary "Fix redirect" --files src/auth/login.ts
  hotswarm worker fail "tests do not build"`,
}

// worktreeFlag returns the --worktree value.
func worktreeFlag(cmd *cobra.Command) string {
	worktree, _ := cmd.Flags().GetString("worktree")
	return worktree
}

var workerStartPlanningCmd = &cobra.Command{
	Use:   "start-planning",
	Short: "Mark the worker as planning",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		err := core.ExecuteWorkerUpdate(worktreeFlag(cmd), func(c *worker.Client) error {
			return c.StartPlanning()
		})
		if err != nil {
			contract.LogFatal("Cannot update worker", err)
		}
	},
}

var workerStartExecutingCmd = &cobra.Command{
	Use:   "start-executing",
	Short: "Mark the worker as executing",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		steps, _ := cmd.Flags().GetInt("steps")
		err := core.ExecuteWorkerUpdate(worktreeFlag(cmd), func(c *worker.Client) error {
			return c.StartExecuting(rootCtx, steps)
		})
		if err != nil {
			contract.LogFatal("Cannot update worker", err)
		}
	},
}

var workerProgressCmd = &cobra.Command{
	Use:   "progress <step>",
	Short: "Record the current step",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		completed, _ := cmd.Flags().GetInt("completed")
		total, _ := cmd.Flags().GetInt("total")
		err := core.ExecuteWorkerUpdate(worktreeFlag(cmd), func(c *worker.Client) error {
			return c.ReportProgress(args[0], completed, total)
		})
		if err != nil {
			contract.LogFatal("Cannot update worker", err)
		}
	},
}

var workerHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Refresh the worker heartbeat",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		err := core.ExecuteWorkerUpdate(worktreeFlag(cmd), func(c *worker.Client) error {
			return c.Heartbeat()
		})
		if err != nil {
			contract.LogFatal("Cannot update worker", err)
		}
	},
}

var workerCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark the worker as completed",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		summary, _ := cmd.Flags().GetString("summary")
		filesStr, _ := cmd.Flags().GetString("files")
		var files []string
		for f := range strings.SplitSeq(filesStr, ",") {
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				files = append(files, trimmed)
			}
		}
		err := core.ExecuteWorkerUpdate(worktreeFlag(cmd), func(c *worker.Client) error {
			return c.Complete(schema.WorkerResult{Summary: summary, FilesChanged: files})
		})
		if err != nil {
			contract.LogFatal("Cannot update worker", err)
		}
	},
}

var workerFailCmd = &cobra.Command{
	Use:   "fail <reason>",
	Short: "Mark the worker as failed",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cause := errors.New(strings.Join(args, " "))
		err := core.ExecuteWorkerUpdate(worktreeFlag(cmd), func(c *worker.Client) error {
			return c.Fail(cause)
		})
		if err != nil {
			contract.LogFatal("Cannot update worker", err)
		}
	},
}
