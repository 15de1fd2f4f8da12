package main

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pebble-lang/pebble/internal/diag"
	"github.com/pebble-lang/pebble/internal/interp"
	"github.com/pebble-lang/pebble/internal/logging"
)

var runWatch bool

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "rerun on source file change")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Lower and interpret a pebble source file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveSource(args)
		if err != nil {
			return err
		}
		if runWatch {
			return watchAndRun(path)
		}
		return runOnce(path)
	},
}

func runOnce(path string) error {
	m, err := lowerFile(path)
	if err != nil {
		diag.Print(err)
		return errors.New("build failed")
	}
	interp.Run(m, interp.Options{})
	return nil
}

// watchAndRun reruns runOnce whenever path's containing directory reports a
// change to it, debouncing bursts of filesystem events into one rerun.
func watchAndRun(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	logger := logging.Logger()
	logger.InfoFields("watching file for changes", logging.String("file", abs))

	runQuiet := func() {
		if err := runOnce(path); err != nil {
			logger.ErrorString(err.Error())
		}
	}
	runQuiet()

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	for {
		select {
		case evt := <-watcher.Events:
			if filepath.Base(evt.Name) != base {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(250 * time.Millisecond)
		case <-debounce.C:
			runQuiet()
			debounce.Stop()
		case err := <-watcher.Errors:
			logger.ErrorFields("watch error", logging.Error("error", err))
		}
	}
}
