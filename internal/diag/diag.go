// Package diag renders the errors.Join'd diagnostics produced by
// internal/lexer, internal/parser and internal/check to a terminal,
// colorizing the "error:" tag the way omni-lang-omni's lexer.Diagnostic
// formats a severity tag, but using fatih/color instead of hand-rolled
// ANSI escapes.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var errorTag = color.New(color.FgRed, color.Bold).SprintFunc()

// Print renders err (joined or singular, nil-safe) to os.Stderr.
func Print(err error) {
	Render(os.Stderr, err)
}

// Render writes one "error: <message>" line per leaf error found by
// unwrapping err. A plain error renders as a single line; an error built
// by errors.Join renders one line per joined error, in order. Render is a
// no-op for a nil err.
func Render(w io.Writer, err error) {
	if err == nil {
		return
	}
	for _, leaf := range flatten(err) {
		fmt.Fprintf(w, "%s %s\n", errorTag("error:"), leaf.Error())
	}
}

// flatten recovers the individual errors passed to errors.Join, recursing
// through nested joins. A non-joined error flattens to itself.
func flatten(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}

// Count reports how many leaf errors err carries, for a summary line such
// as "3 errors".
func Count(err error) int {
	if err == nil {
		return 0
	}
	return len(flatten(err))
}

// Join is errors.Join re-exported so callers building up diagnostics don't
// need a second import alongside this package.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
