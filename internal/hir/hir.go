// Package hir defines the high-level IR that AST→HIR lowering produces: a
// typed expression arena with `while` desugared to Loop+If+Break and every
// node annotated with its resolved types.Ty.
package hir

import (
	"github.com/pebble-lang/pebble/internal/ast"
	"github.com/pebble-lang/pebble/internal/symbol"
	"github.com/pebble-lang/pebble/internal/types"
)

// ExprID indexes into Hir.Exprs.
type ExprID uint32

// Hir is the lowered program: a flat expression arena plus the top-level
// declarations, in source order.
type Hir struct {
	Exprs []Expr
	Root  []ExprID
}

// Push appends e to the arena and returns its ID.
func (h *Hir) Push(e Expr) ExprID {
	h.Exprs = append(h.Exprs, e)
	return ExprID(len(h.Exprs) - 1)
}

// Unit pushes a fresh `()`-typed unit literal, used wherever lowering must
// synthesize a value out of thin air (a bare `return;`, a block that falls
// through without a trailing expression).
func (h *Hir) Unit(interner *types.Interner) ExprID {
	return h.Push(Expr{Ty: interner.Unit(), Kind: Literal{Lit: UnitLit{}}})
}

// Expr is one arena slot: its fully-resolved type and its kind.
type Expr struct {
	Ty   *types.Ty
	Kind ExprKind
}

// ExprKind is the lowered counterpart of ast.ExprKind. While and surface
// If-as-loop-condition forms are gone; Loop/Break model all repetition.
type ExprKind interface{ exprKind() }

type (
	Binary struct {
		Lhs, Rhs ExprID
		Op       ast.BinaryOp
	}
	Unary struct {
		Op   ast.UnaryOp
		Expr ExprID
	}
	Literal struct{ Lit Lit }
	// Block is a sequence of expressions evaluated for effect, the last one
	// (if the source list wasn't unit-terminated) supplying the block's
	// value.
	Block struct{ Exprs []ExprID }
	// Loop runs Body forever; only an enclosed Break (conditionally, via an
	// If) can leave it. While-loops desugar to this.
	Loop struct{ Body []ExprID }
	Break struct{}
	If struct {
		Arms []IfArm
		Els  []ExprID
	}
	Let struct {
		Ident symbol.Symbol
		Expr  ExprID
	}
	Assignment struct{ Lhs, Expr ExprID }
	FnDecl     struct {
		Ident  symbol.Symbol
		Params []Param
		Ret    *types.Ty
		Body   []ExprID
	}
	FnCall struct {
		Function ExprID
		Args     []ExprID
	}
	Index struct{ Expr, Index ExprID }
	Ident struct{ Name symbol.Symbol }
	Field struct {
		Expr  ExprID
		Index uint32
	}
	// StructInit builds a struct value from its field expressions, in
	// declaration order. It only ever appears as the sole body expression
	// of the synthetic FnDecl a StructDecl lowers to.
	StructInit struct{ Args []ExprID }
	// PrintStr is the literal-argument fast path for `print("...")`: a
	// call whose sole argument is a source string literal lowers directly
	// here instead of through the general FnCall->intrinsic path.
	PrintStr struct{ Value symbol.Symbol }
	Return   struct{ Expr ExprID }
	Abort    struct{}
	Unreachable struct{}
)

func (Binary) exprKind()      {}
func (Unary) exprKind()       {}
func (Literal) exprKind()     {}
func (Block) exprKind()       {}
func (Loop) exprKind()        {}
func (Break) exprKind()       {}
func (If) exprKind()          {}
func (Let) exprKind()         {}
func (Assignment) exprKind()  {}
func (FnDecl) exprKind()      {}
func (FnCall) exprKind()      {}
func (Index) exprKind()       {}
func (Ident) exprKind()       {}
func (Field) exprKind()       {}
func (StructInit) exprKind()  {}
func (PrintStr) exprKind()    {}
func (Return) exprKind()      {}
func (Abort) exprKind()       {}
func (Unreachable) exprKind() {}

// IfArm is one condition+body pair; body is already a flat expression list
// (the HIR has no separate Block type for arm bodies).
type IfArm struct {
	Condition ExprID
	Body      []ExprID
}

// Param is a lowered function parameter: a name plus its resolved type.
type Param struct {
	Ident symbol.Symbol
	Ty    *types.Ty
}

// Lit mirrors ast.Lit. FStrLit's segments carry straight
// through from the AST unchanged: deciding between a direct format and a
// StrJoin RValue is HIR->MIR lowering's job (it needs MIR's RValue
// vocabulary), not this pass's.
type Lit interface{ litKind() }

type (
	UnitLit   struct{}
	BoolLit   struct{ Value bool }
	IntLit    struct{ Value int64 }
	CharLit   struct{ Value rune }
	StringLit struct{ Value symbol.Symbol }
	ArrayLit  struct{ Segments []ArraySeg }
	FStrLit   struct{ Segments []ExprID }
)

func (UnitLit) litKind()   {}
func (BoolLit) litKind()   {}
func (IntLit) litKind()    {}
func (CharLit) litKind()   {}
func (StringLit) litKind() {}
func (ArrayLit) litKind()  {}
func (FStrLit) litKind()   {}

// ArraySeg mirrors ast.ArraySeg at the HIR level.
type ArraySeg struct {
	Expr     ExprID
	Repeated *ExprID
}
