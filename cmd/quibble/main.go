// Package main is the entrypoint for the Quibble CLI.
package main

import (
	"fmt"
	"os"

	"github.com/quibble-dev/quibble/cmd/quibble/commands"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
