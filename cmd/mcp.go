package cmd

import (
	"github.com/huangsam/hotswarm/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Hotswarm MCP server",
	Long:  `Launch an MCP server that lets AI agents suggest batches, predict files and watch the swarm via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Headers are suppressed by the handlers so stdio stays clean for the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, deps)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
