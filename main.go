// main is the entry point of the hotswarm CLI.
package main

import (
	"github.com/huangsam/hotswarm/cmd"
	"github.com/huangsam/hotswarm/internal/contract"
)

func main() {
	err := cmd.Execute()
	if cerr := cmd.Close(); cerr != nil {
		contract.LogWarn("Failed to close run history", cerr)
	}
	if err != nil {
		contract.LogFatal("Error executing command", err)
	}
}
