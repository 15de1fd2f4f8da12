package builder_test

import (
	"testing"

	"github.com/pebble-lang/pebble/internal/check"
	"github.com/pebble-lang/pebble/internal/hir"
	"github.com/pebble-lang/pebble/internal/mir"
	"github.com/pebble-lang/pebble/internal/mir/builder"
	"github.com/pebble-lang/pebble/internal/parser"
)

func lower(t *testing.T, src string) *mir.Mir {
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
	return builder.Build(h, res.Ctx.Interner())
}

func TestBuildMarksMain(t *testing.T) {
	m := lower(t, `fn main() { print("hi") }`)
	if !m.HasMain {
		t.Fatal("expected HasMain")
	}
	body := m.Bodies[m.MainBody]
	if len(body.Blocks) == 0 {
		t.Fatal("main body has no blocks")
	}
}

func TestBuildEveryBlockIsTerminated(t *testing.T) {
	m := lower(t, `
fn main() {
    let i = 0;
    while i < 10 {
        i = i + 1;
    }
    print(int_to_string(i))
}`)
	for bi, body := range m.Bodies {
		for ci, block := range body.Blocks {
			if block.Terminator == nil {
				t.Fatalf("body %d block %d has no terminator", bi, ci)
			}
		}
	}
}

func TestBuildIfElseProgramRecognizesIntrinsics(t *testing.T) {
	m := lower(t, `
fn pick(cond: bool) -> int {
    if cond { return 1 } else { return 2 }
}
fn main() {
    print(int_to_string(pick(true)))
}`)
	if m.NumIntrinsics == 0 {
		t.Fatal("expected at least one recognized intrinsic (print, int_to_string)")
	}
}

func TestBuildStructInitAndFieldAccess(t *testing.T) {
	m := lower(t, `
struct Point(int, int)
fn main() {
    let p = Point(1, 2);
    print(int_to_string(p.0))
}`)
	if !m.HasMain {
		t.Fatal("expected HasMain")
	}
}

func TestBuildArrayLiteralWithRepeat(t *testing.T) {
	m := lower(t, `
fn main() {
    let xs = [0; 3];
    print(int_to_string(xs[0]))
}`)
	if !m.HasMain {
		t.Fatal("expected HasMain")
	}
}
