package diag_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pebble-lang/pebble/internal/diag"
)

func TestRenderFlattensJoinedErrors(t *testing.T) {
	err := diag.Join(errors.New("first"), errors.New("second"))

	var buf bytes.Buffer
	diag.Render(&buf, err)

	out := buf.String()
	if strings.Count(out, "error:") != 2 {
		t.Fatalf("expected 2 error lines, got: %q", out)
	}
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Fatalf("missing a joined message: %q", out)
	}
}

func TestRenderNilIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	diag.Render(&buf, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for a nil error, got %q", buf.String())
	}
}

func TestCountNestedJoins(t *testing.T) {
	inner := diag.Join(errors.New("a"), errors.New("b"))
	outer := diag.Join(inner, errors.New("c"))
	if got := diag.Count(outer); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
}

func TestCountSingularError(t *testing.T) {
	if got := diag.Count(errors.New("solo")); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
}
