package mir_test

import (
	"fmt"
	"testing"

	"github.com/pebble-lang/pebble/internal/check"
	"github.com/pebble-lang/pebble/internal/hir"
	"github.com/pebble-lang/pebble/internal/mir"
	"github.com/pebble-lang/pebble/internal/mir/builder"
	"github.com/pebble-lang/pebble/internal/parser"
)

// validateCFG checks the structural invariants spec.md §3 states for a
// finished Mir: every block is terminated, every Goto/Branch target is a
// valid block index in the same body, and no Placeholder block ID survives
// lowering.
func validateCFG(m *mir.Mir) error {
	for bi, body := range m.Bodies {
		numBlocks := mir.BlockID(len(body.Blocks))
		checkTarget := func(target mir.BlockID) error {
			if target == mir.Placeholder {
				return fmt.Errorf("body %d: unpatched placeholder terminator", bi)
			}
			if target >= numBlocks {
				return fmt.Errorf("body %d: terminator targets out-of-range block %d (have %d)", bi, target, numBlocks)
			}
			return nil
		}
		for ci, block := range body.Blocks {
			switch t := block.Terminator.(type) {
			case nil:
				return fmt.Errorf("body %d block %d: missing terminator", bi, ci)
			case mir.Goto:
				if err := checkTarget(t.Target); err != nil {
					return err
				}
			case mir.Branch:
				if err := checkTarget(t.IfTrue); err != nil {
					return err
				}
				if err := checkTarget(t.IfFalse); err != nil {
					return err
				}
			case mir.Return, mir.Abort, mir.Unreachable:
				// no block reference to validate
			default:
				return fmt.Errorf("body %d block %d: unrecognized terminator %T", bi, ci, t)
			}
		}
	}
	return nil
}

func compile(t *testing.T, src string) *mir.Mir {
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

func TestCFGInvariantsHoldForControlFlowHeavyProgram(t *testing.T) {
	m := compile(t, `
fn classify(n: int) -> int {
    if n < 0 {
        return 0 - 1
    } else if n == 0 {
        return 0
    } else {
        return 1
    }
}

fn main() {
    let i = 0;
    while i < 3 {
        if classify(i) == 1 {
            print("positive");
        }
        i = i + 1;
    }
}`)
	if err := validateCFG(m); err != nil {
		t.Fatal(err)
	}
}

func TestCFGInvariantsHoldForShortCircuitBooleans(t *testing.T) {
	m := compile(t, `
fn main() {
    let a = true;
    let b = false;
    if a and b or !a {
        print("x")
    }
}`)
	if err := validateCFG(m); err != nil {
		t.Fatal(err)
	}
}

func TestCFGInvariantsHoldForBreakInLoop(t *testing.T) {
	m := compile(t, `
fn main() {
    let i = 0;
    while true {
        if i == 5 {
            break;
        }
        i = i + 1;
    }
}`)
	if err := validateCFG(m); err != nil {
		t.Fatal(err)
	}
}
