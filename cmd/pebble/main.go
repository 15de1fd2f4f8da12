// Command pebble lexes, parses, type-checks and lowers a pebble source file
// to MIR, then tree-walks it to completion.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pebble-lang/pebble/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "pebble",
	Short: "pebble toolchain: lex, parse, check, lower, interpret",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetLevel(logging.LevelInfo)
		if verbose {
			logging.SetLevel(logging.LevelDebug)
		}
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
