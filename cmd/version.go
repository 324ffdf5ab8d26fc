package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hotswarm.",
	Long: `Display version information including build details.

Workers and the orchestrator share state files on disk, so mixing binaries
built from different versions is not supported. Compare this output across
machines when a worker reports unexpected state.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("hotswarm CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
