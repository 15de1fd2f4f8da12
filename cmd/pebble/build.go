package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pebble-lang/pebble/internal/cache"
	"github.com/pebble-lang/pebble/internal/diag"
	"github.com/pebble-lang/pebble/internal/logging"
)

var buildForce bool

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "skip the build cache even if the source is unchanged")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Lower a pebble source file and report whether it built clean",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveSource(args)
		if err != nil {
			return err
		}
		return runBuild(cmd, path)
	},
}

func runBuild(cmd *cobra.Command, path string) error {
	logger := logging.Logger()

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	key := cache.HashSource(string(src))

	diskCache, err := cache.Open("pebble")
	if err != nil {
		logger.ErrorFields("could not open build cache, continuing uncached", logging.Error("error", err))
	}

	if !buildForce {
		var payload cache.Payload
		if hit, err := diskCache.Get(key, &payload); err == nil && hit && !payload.Broken {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: up to date (cached)\n", path)
			return nil
		}
	}

	m, err := lowerFile(path)
	if err != nil {
		diag.Print(err)
		if putErr := diskCache.Put(key, &cache.Payload{SourcePath: path, Broken: true}); putErr != nil {
			logger.ErrorFields("failed to write build cache", logging.Error("error", putErr))
		}
		return errors.New("build failed")
	}

	payload := &cache.Payload{
		SourcePath:    path,
		Bodies:        len(m.Bodies),
		HasMain:       m.HasMain,
		NumIntrinsics: m.NumIntrinsics,
	}
	if err := diskCache.Put(key, payload); err != nil {
		logger.ErrorFields("failed to write build cache", logging.Error("error", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: built %d bodies (main: %v)\n", path, payload.Bodies, payload.HasMain)
	return nil
}
