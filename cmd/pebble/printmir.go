package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pebble-lang/pebble/internal/diag"
	"github.com/pebble-lang/pebble/internal/mir"
)

func init() {
	rootCmd.AddCommand(printMirCmd)
}

var printMirCmd = &cobra.Command{
	Use:   "print-mir [file]",
	Short: "Lower a pebble source file and print its MIR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveSource(args)
		if err != nil {
			return err
		}
		m, err := lowerFile(path)
		if err != nil {
			diag.Print(err)
			return errors.New("build failed")
		}
		mir.Fprint(cmd.OutOrStdout(), m)
		return nil
	},
}
