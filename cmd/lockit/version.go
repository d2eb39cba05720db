package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is the current lockit version (overridden by ldflags at build time)
	Version = "0.3.0"
	// Build is the build type: "release" or "dev" (overridden by ldflags)
	Build = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			fmt.Printf("{\"version\":%q,\"build\":%q}\n", Version, Build)
			return
		}
		fmt.Printf("lockit version %s (%s)\n", Version, Build)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
