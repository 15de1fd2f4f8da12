package interp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pebble-lang/pebble/internal/check"
	"github.com/pebble-lang/pebble/internal/hir"
	"github.com/pebble-lang/pebble/internal/interp"
	"github.com/pebble-lang/pebble/internal/mir/builder"
	"github.com/pebble-lang/pebble/internal/parser"
)

func run(t *testing.T, src string, opts interp.Options) string {
	t.Helper()
	tree, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := check.Check(tree)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	h := hir.Lower(tree, res)
	m := builder.Build(h, res.Ctx.Interner())

	var out bytes.Buffer
	opts.Stdout = &out
	interp.Run(m, opts)
	return out.String()
}

func TestRunPrintsLiteral(t *testing.T) {
	got := run(t, `fn main() { print("hello") }`, interp.Options{})
	if strings.TrimRight(got, "\n") != "hello" {
		t.Fatalf("output = %q, want %q", got, "hello")
	}
}

func TestRunWhileLoopAccumulates(t *testing.T) {
	got := run(t, `
fn main() {
    let i = 0;
    let total = 0;
    while i < 5 {
        total = total + i;
        i = i + 1;
    }
    print(int_to_string(total))
}`, interp.Options{})
	if strings.TrimRight(got, "\n") != "10" {
		t.Fatalf("output = %q, want %q", got, "10")
	}
}

func TestRunStructFieldRoundTrip(t *testing.T) {
	got := run(t, `
struct Point(int, int)
fn main() {
    let p = Point(3, 4);
    print(int_to_string(p.0 + p.1))
}`, interp.Options{})
	if strings.TrimRight(got, "\n") != "7" {
		t.Fatalf("output = %q, want %q", got, "7")
	}
}

func TestRunStructInterpolationFormatsAllFields(t *testing.T) {
	got := run(t, `
struct Point(int, int)
fn main() {
    let p = Point(3, 4);
    print("${p}")
}`, interp.Options{})
	if strings.TrimRight(got, "\n") != "(3, 4)" {
		t.Fatalf("output = %q, want %q", got, "(3, 4)")
	}
}

func TestRunAbortPanicsInTestMode(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Abort to panic in TestMode")
		}
		if _, ok := r.(interp.AbortError); !ok {
			t.Fatalf("recovered %v (%T), want interp.AbortError", r, r)
		}
	}()
	run(t, `fn main() { abort }`, interp.Options{TestMode: true})
}

func TestRunArrayRepeatLiteralElementsAreIndependent(t *testing.T) {
	got := run(t, `
struct Counter(int)
fn main() {
    let cs = [Counter(0); 2];
    cs[0].0 = 5;
    print(int_to_string(cs[0].0 + cs[1].0))
}`, interp.Options{})
	if strings.TrimRight(got, "\n") != "5" {
		t.Fatalf("output = %q, want %q", got, "5")
	}
}
