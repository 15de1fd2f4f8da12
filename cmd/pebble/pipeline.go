package main

import (
	"fmt"
	"os"

	"github.com/pebble-lang/pebble/internal/check"
	"github.com/pebble-lang/pebble/internal/config"
	"github.com/pebble-lang/pebble/internal/hir"
	"github.com/pebble-lang/pebble/internal/logging"
	"github.com/pebble-lang/pebble/internal/mir"
	"github.com/pebble-lang/pebble/internal/mir/builder"
	"github.com/pebble-lang/pebble/internal/parser"
)

// resolveSource finds the source file to act on: the single positional
// argument if given, otherwise [run].main from a pebble.toml discovered by
// walking up from the current directory.
func resolveSource(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	manifest, ok, err := config.Load(".")
	if err != nil {
		return "", fmt.Errorf("load pebble.toml: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("no source file given and no pebble.toml found")
	}
	return manifest.MainPath(), nil
}

// lowerFile runs the whole front end (lex, parse, check, HIR, MIR) on the
// file at path and returns the resulting mir.Mir.
func lowerFile(path string) (*mir.Mir, error) {
	logger := logging.Logger()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	logger.DebugString("parsing " + path)
	tree, err := parser.Parse(string(src))
	if err != nil {
		return nil, err
	}

	logger.DebugString("type checking " + path)
	result, err := check.Check(tree)
	if err != nil {
		return nil, err
	}

	logger.DebugString("lowering to HIR")
	h := hir.Lower(tree, result)

	logger.DebugString("lowering to MIR")
	m := builder.Build(h, result.Ctx.Interner())

	return m, nil
}
