package hir

import (
	"github.com/pebble-lang/pebble/internal/ast"
	"github.com/pebble-lang/pebble/internal/check"
	"github.com/pebble-lang/pebble/internal/symbol"
	"github.com/pebble-lang/pebble/internal/types"
)

// Lower runs AST->HIR lowering over tree using the side tables check.Check
// already computed. It assumes tree type-checked successfully; a
// structurally invalid AST (e.g. an expr_id with no recorded type) is a
// programmer error and panics rather than returning an error, matching the
// rest of the pipeline's failure discipline for internal invariants.
func Lower(tree *ast.AST, res *check.Result) *Hir {
	l := &lowering{ast: tree, res: res, hir: &Hir{}}
	for _, id := range tree.TopLevel {
		l.hir.Root = append(l.hir.Root, l.lower(id))
	}
	return l.hir
}

type lowering struct {
	ast *ast.AST
	res *check.Result
	hir *Hir
}

func (l *lowering) interner() *types.Interner { return l.res.Ctx.Interner() }

func (l *lowering) tyOf(id ast.ExprID) *types.Ty {
	ty := l.res.ExprTypes[id]
	if ty == nil {
		panic("hir: expression has no resolved type, checker must run first")
	}
	return l.res.Ctx.ResolveDeep(ty)
}

func (l *lowering) lower(id ast.ExprID) ExprID {
	return l.hir.Push(l.lowerInner(id))
}

func (l *lowering) lowerInner(id ast.ExprID) Expr {
	e := l.ast.Exprs[id]
	switch k := e.Kind.(type) {
	case ast.Binary:
		return Expr{Ty: l.tyOf(id), Kind: Binary{Lhs: l.lower(k.Lhs), Op: k.Op, Rhs: l.lower(k.Rhs)}}
	case ast.Unary:
		return Expr{Ty: l.tyOf(id), Kind: Unary{Op: k.Op, Expr: l.lower(k.Expr)}}
	case ast.Literal:
		return l.lowerLiteral(k.Lit, id)
	case ast.BlockExpr:
		ty, exprs := l.lowerBlock(k.Block)
		return Expr{Ty: ty, Kind: Block{Exprs: exprs}}
	case ast.While:
		return l.lowerWhile(k)
	case ast.If:
		return l.lowerIf(k, id)
	case ast.Break:
		return Expr{Ty: l.interner().Unit(), Kind: Break{}}
	case ast.Return:
		var inner ExprID
		if k.Has {
			inner = l.lower(k.Expr)
		} else {
			inner = l.hir.Unit(l.interner())
		}
		return Expr{Ty: l.interner().Never(), Kind: Return{Expr: inner}}
	case ast.Let:
		return Expr{Ty: l.interner().Unit(), Kind: Let{Ident: k.Ident, Expr: l.lower(k.Expr)}}
	case ast.Assignment:
		return Expr{Ty: l.interner().Unit(), Kind: Assignment{Lhs: l.lower(k.Lhs), Expr: l.lower(k.Expr)}}
	case ast.FnDecl:
		return l.lowerFnDecl(k, id)
	case ast.FnCall:
		return l.lowerFnCall(k, id)
	case ast.Index:
		return Expr{Ty: l.tyOf(id), Kind: Index{Expr: l.lower(k.Expr), Index: l.lower(k.Index)}}
	case ast.Ident:
		return Expr{Ty: l.tyOf(id), Kind: Ident{Name: k.Name}}
	case ast.Field:
		return Expr{Ty: l.tyOf(id), Kind: Field{Expr: l.lower(k.Expr), Index: k.Index}}
	case ast.StructDecl:
		return l.lowerStructDecl(k, id)
	case ast.Abort:
		return Expr{Ty: l.interner().Never(), Kind: Abort{}}
	case ast.Unreachable:
		return Expr{Ty: l.interner().Never(), Kind: Unreachable{}}
	}
	panic("hir: unhandled ast.ExprKind")
}

// lowerFnCall lowers a call, recognizing the `print("literal")` fast path:
// a call to the `print` intrinsic whose sole argument is a source string
// literal lowers directly to PrintStr instead of through the ordinary
// FnCall->intrinsic-table mechanism. Any other call to `print` (a variable,
// an interpolated string, ...) lowers as a normal FnCall and reaches the
// print intrinsic via the MIR builder's intrinsic table instead.
func (l *lowering) lowerFnCall(k ast.FnCall, id ast.ExprID) Expr {
	if ident, ok := l.ast.Exprs[k.Function].Kind.(ast.Ident); ok && ident.Name.String() == "print" && len(k.Args) == 1 {
		if lit, ok := l.ast.Exprs[k.Args[0]].Kind.(ast.Literal); ok {
			if str, ok := lit.Lit.(ast.StringLit); ok {
				return Expr{Ty: l.interner().Unit(), Kind: PrintStr{Value: str.Value}}
			}
		}
	}
	function := l.lower(k.Function)
	args := make([]ExprID, len(k.Args))
	for i, a := range k.Args {
		args[i] = l.lower(a)
	}
	return Expr{Ty: l.tyOf(id), Kind: FnCall{Function: function, Args: args}}
}

func (l *lowering) lowerFnDecl(k ast.FnDecl, _ ast.ExprID) Expr {
	params := make([]Param, len(k.Params))
	for i, p := range k.Params {
		params[i] = Param{Ident: p.Ident, Ty: l.res.Ctx.ResolveDeep(l.res.TypeTypes[p.Type])}
	}
	ret := l.interner().Unit()
	if k.Ret != nil {
		ret = l.res.Ctx.ResolveDeep(l.res.TypeTypes[*k.Ret])
	}
	_, body := l.lowerBlock(k.Block)
	return Expr{Ty: l.interner().Unit(), Kind: FnDecl{Ident: k.Ident, Params: params, Ret: ret, Body: body}}
}

// lowerStructDecl lowers a struct declaration to an ordinary FnDecl whose
// body is exactly the synthetic StructInit expression, so HIR->MIR lowering
// needs no special case for struct construction beyond what it already does
// for any other FnDecl/FnCall pair: `P(1, 2)` parses as a plain FnCall and
// dispatches to this synthesized constructor.
func (l *lowering) lowerStructDecl(k ast.StructDecl, _ ast.ExprID) Expr {
	def := l.res.StructDefs[k.Ident]
	params := make([]Param, len(def.FieldTypes))
	args := make([]ExprID, len(def.FieldTypes))
	for i, fty := range def.FieldTypes {
		name := symbol.Intern(paramName(i))
		params[i] = Param{Ident: name, Ty: fty}
		args[i] = l.hir.Push(Expr{Ty: fty, Kind: Ident{Name: name}})
	}
	body := l.hir.Push(Expr{Ty: def.Ty, Kind: StructInit{Args: args}})
	return Expr{Ty: l.interner().Unit(), Kind: FnDecl{
		Ident: k.Ident, Params: params, Ret: def.Ty, Body: []ExprID{body},
	}}
}

func paramName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "f" + string(rune('0'+i))
}

// lowerWhile desugars `while c { body }` to `loop { if !c { break }; body }`,
// matching the reference lowering exactly: the negated condition is
// evaluated fresh every iteration rather than modeled as a loop-level
// invariant.
func (l *lowering) lowerWhile(k ast.While) Expr {
	cond := l.lower(k.Condition)
	negated := l.hir.Push(Expr{Ty: l.interner().Bool(), Kind: Unary{Op: ast.Not, Expr: cond}})
	brk := l.hir.Push(Expr{Ty: l.interner().Unit(), Kind: Break{}})
	guard := l.hir.Push(Expr{Ty: l.interner().Unit(), Kind: If{
		Arms: []IfArm{{Condition: negated, Body: []ExprID{brk}}},
	}})
	_, bodyExprs := l.lowerBlock(k.Block)
	loopBody := append([]ExprID{guard}, bodyExprs...)
	return Expr{Ty: l.interner().Unit(), Kind: Loop{Body: loopBody}}
}

func (l *lowering) lowerIf(k ast.If, id ast.ExprID) Expr {
	arms := make([]IfArm, len(k.Arms))
	for i, arm := range k.Arms {
		cond := l.lower(arm.Condition)
		_, body := l.lowerBlock(arm.Body)
		arms[i] = IfArm{Condition: cond, Body: body}
	}
	var els []ExprID
	if k.Els != nil {
		_, els = l.lowerBlock(*k.Els)
	}
	return Expr{Ty: l.tyOf(id), Kind: If{Arms: arms, Els: els}}
}

func (l *lowering) lowerLiteral(lit ast.Lit, id ast.ExprID) Expr {
	switch v := lit.(type) {
	case ast.UnitLit:
		return Expr{Ty: l.interner().Unit(), Kind: Literal{Lit: UnitLit{}}}
	case ast.BoolLit:
		return Expr{Ty: l.interner().Bool(), Kind: Literal{Lit: BoolLit{Value: v.Value}}}
	case ast.IntLit:
		return Expr{Ty: l.interner().Int(), Kind: Literal{Lit: IntLit{Value: v.Value}}}
	case ast.CharLit:
		return Expr{Ty: l.interner().Char(), Kind: Literal{Lit: CharLit{Value: v.Value}}}
	case ast.StringLit:
		return Expr{Ty: l.interner().Str(), Kind: Literal{Lit: StringLit{Value: v.Value}}}
	case ast.ArrayLit:
		segs := make([]ArraySeg, len(v.Segments))
		for i, s := range v.Segments {
			seg := ArraySeg{Expr: l.lower(s.Expr)}
			if s.Repeated != nil {
				r := l.lower(*s.Repeated)
				seg.Repeated = &r
			}
			segs[i] = seg
		}
		return Expr{Ty: l.tyOf(id), Kind: Literal{Lit: ArrayLit{Segments: segs}}}
	case ast.FStrLit:
		segs := make([]ExprID, len(v.Segments))
		for i, s := range v.Segments {
			segs[i] = l.lower(s)
		}
		return Expr{Ty: l.interner().Str(), Kind: Literal{Lit: FStrLit{Segments: segs}}}
	}
	panic("hir: unhandled ast.Lit")
}

// lowerBlock lowers a block's statement list, appending a synthetic unit
// literal when the source block has no trailing expression and its last
// statement has a non-unit type (so such a block evaluates to unit,
// matching the reference lowering's block_needs_terminating_unit rule).
func (l *lowering) lowerBlock(id ast.BlockID) (*types.Ty, []ExprID) {
	b := l.ast.Blocks[id]
	blockTy := l.interner().Unit()
	if b.IsExpr && len(b.Stmts) > 0 {
		blockTy = l.tyOf(b.Stmts[len(b.Stmts)-1])
	}
	needsUnit := l.blockNeedsTerminatingUnit(b)
	exprs := make([]ExprID, 0, len(b.Stmts)+1)
	for _, s := range b.Stmts {
		exprs = append(exprs, l.lower(s))
	}
	if needsUnit {
		exprs = append(exprs, l.hir.Unit(l.interner()))
	}
	return blockTy, exprs
}

func (l *lowering) blockNeedsTerminatingUnit(b ast.Block) bool {
	if b.IsExpr {
		return false
	}
	if len(b.Stmts) == 0 {
		return false
	}
	last := b.Stmts[len(b.Stmts)-1]
	return !l.tyOf(last).IsUnit()
}
