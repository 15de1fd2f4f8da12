// Package check implements a minimal type checker over an ast.AST. It
// produces the expr/type side tables that HIR lowering needs (spec.md
// treats checking as an external contract; this is a real but intentionally
// small implementation sufficient to drive the rest of the pipeline
// end-to-end).
package check

import (
	"errors"
	"fmt"

	"github.com/pebble-lang/pebble/internal/ast"
	"github.com/pebble-lang/pebble/internal/mir/intrinsics"
	"github.com/pebble-lang/pebble/internal/symbol"
	"github.com/pebble-lang/pebble/internal/types"
)

// Result is the output of Check: resolved types for every AST expression and
// type annotation, plus the Ctx used to resolve them (so callers can
// ResolveDeep on demand).
type Result struct {
	Ctx        *types.Ctx
	ExprTypes  []*types.Ty
	TypeTypes  []*types.Ty
	StructDefs map[symbol.Symbol]*StructDef
}

// StructDef records a declared struct's field layout, needed by HIR
// lowering to synthesize the constructor body.
type StructDef struct {
	Ty           *types.Ty
	FieldSymbols []symbol.Symbol
	FieldTypes   []*types.Ty
}

type funcSig struct {
	params []*types.Ty
	ret    *types.Ty
}

// Checker walks an ast.AST bottom-up, assigning a types.Ty to every
// expression and type annotation.
type Checker struct {
	tree     *ast.AST
	interner *types.Interner
	ctx      *types.Ctx

	exprTypes []*types.Ty
	typeTypes []*types.Ty

	scopes []map[symbol.Symbol]*types.Ty
	funcs  map[symbol.Symbol]*funcSig
	structs map[symbol.Symbol]*StructDef

	loopDepth int
	diags     []error
}

// Check type-checks tree and returns the resolved side tables, or an
// aggregated diagnostic error if checking failed.
func Check(tree *ast.AST) (*Result, error) {
	interner := types.NewInterner()
	c := &Checker{
		tree:      tree,
		interner:  interner,
		ctx:       types.NewCtx(interner),
		exprTypes: make([]*types.Ty, len(tree.Exprs)),
		typeTypes: make([]*types.Ty, len(tree.Types)),
		funcs:     make(map[symbol.Symbol]*funcSig),
		structs:   make(map[symbol.Symbol]*StructDef),
	}
	c.pushScope()
	c.collectSignatures()
	for _, id := range tree.TopLevel {
		c.checkExpr(id)
	}
	c.popScope()

	res := &Result{Ctx: c.ctx, ExprTypes: c.exprTypes, TypeTypes: c.typeTypes, StructDefs: c.structs}
	if len(c.diags) == 0 {
		return res, nil
	}
	return res, errors.Join(c.diags...)
}

func (c *Checker) errorf(format string, args ...any) {
	c.diags = append(c.diags, fmt.Errorf(format, args...))
}

func (c *Checker) pushScope() { c.scopes = append(c.scopes, map[symbol.Symbol]*types.Ty{}) }
func (c *Checker) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Checker) define(name symbol.Symbol, ty *types.Ty) {
	c.scopes[len(c.scopes)-1][name] = ty
}

func (c *Checker) lookup(name symbol.Symbol) (*types.Ty, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if ty, ok := c.scopes[i][name]; ok {
			return ty, true
		}
	}
	return nil, false
}

// resolveTypeExpr converts a parsed type annotation into a types.Ty,
// recording the result in typeTypes.
func (c *Checker) resolveTypeExpr(id ast.TypeID) *types.Ty {
	if ty := c.typeTypes[id]; ty != nil {
		return ty
	}
	te := c.tree.Types[id]
	var ty *types.Ty
	switch k := te.Kind.(type) {
	case ast.NamedType:
		ty = c.namedType(k.Name)
	case ast.ArrayType:
		ty = c.interner.NewArray(c.resolveTypeExpr(k.Elem))
	case ast.RefType:
		ty = c.interner.NewRef(c.resolveTypeExpr(k.Elem))
	}
	c.typeTypes[id] = ty
	return ty
}

func (c *Checker) namedType(name symbol.Symbol) *types.Ty {
	switch name.String() {
	case "unit":
		return c.interner.Unit()
	case "bool":
		return c.interner.Bool()
	case "int":
		return c.interner.Int()
	case "char":
		return c.interner.Char()
	case "str":
		return c.interner.Str()
	case "never":
		return c.interner.Never()
	}
	if def, ok := c.structs[name]; ok {
		return def.Ty
	}
	c.errorf("unknown type %q", name)
	return c.interner.Never()
}

// collectSignatures does a shallow pre-pass over top-level declarations so
// forward references (a function calling one declared later) resolve.
func (c *Checker) collectSignatures() {
	for _, id := range c.tree.TopLevel {
		switch k := c.tree.Exprs[id].Kind.(type) {
		case ast.StructDecl:
			var fieldSyms []symbol.Symbol
			var fieldTys []*types.Ty
			for i, fid := range k.Fields {
				fieldSyms = append(fieldSyms, symbol.Intern(fmt.Sprintf("%d", i)))
				fieldTys = append(fieldTys, c.resolveTypeExpr(fid))
			}
			st := c.interner.NewStruct(k.Ident, fieldSyms, fieldTys)
			c.structs[k.Ident] = &StructDef{Ty: st, FieldSymbols: fieldSyms, FieldTypes: fieldTys}
		}
	}
	for _, id := range c.tree.TopLevel {
		switch k := c.tree.Exprs[id].Kind.(type) {
		case ast.FnDecl:
			var params []*types.Ty
			for _, p := range k.Params {
				params = append(params, c.resolveTypeExpr(p.Type))
			}
			ret := c.interner.Unit()
			if k.Ret != nil {
				ret = c.resolveTypeExpr(*k.Ret)
			}
			c.funcs[k.Ident] = &funcSig{params: params, ret: ret}
		case ast.StructDecl:
			params := c.structs[k.Ident].FieldTypes
			c.funcs[k.Ident] = &funcSig{params: params, ret: c.structs[k.Ident].Ty}
		}
	}
}

func (c *Checker) set(id ast.ExprID, ty *types.Ty) *types.Ty {
	c.exprTypes[id] = ty
	return ty
}

func (c *Checker) checkExpr(id ast.ExprID) *types.Ty {
	e := c.tree.Exprs[id]
	switch k := e.Kind.(type) {
	case ast.Literal:
		return c.set(id, c.checkLit(k.Lit))
	case ast.Binary:
		return c.set(id, c.checkBinary(k))
	case ast.Unary:
		return c.set(id, c.checkUnary(k))
	case ast.BlockExpr:
		return c.set(id, c.checkBlock(k.Block))
	case ast.While:
		c.expect(k.Condition, c.interner.Bool())
		c.loopDepth++
		c.checkBlock(k.Block)
		c.loopDepth--
		return c.set(id, c.interner.Unit())
	case ast.If:
		var joined *types.Ty
		for _, arm := range k.Arms {
			c.expect(arm.Condition, c.interner.Bool())
			bodyTy := c.checkBlock(arm.Body)
			if joined == nil {
				joined = bodyTy
			} else if mismatch, ok := c.ctx.Unify(joined, bodyTy); !ok {
				c.errorf("if-arm type mismatch: %s vs %s", mismatch[0], mismatch[1])
			}
		}
		if k.Els != nil {
			elseTy := c.checkBlock(*k.Els)
			if joined == nil {
				joined = elseTy
			} else if mismatch, ok := c.ctx.Unify(joined, elseTy); !ok {
				c.errorf("if/else type mismatch: %s vs %s", mismatch[0], mismatch[1])
			}
		} else {
			joined = c.interner.Unit()
		}
		return c.set(id, joined)
	case ast.Break:
		if c.loopDepth == 0 {
			c.errorf("break outside of loop")
		}
		return c.set(id, c.interner.Never())
	case ast.Return:
		if k.Has {
			c.checkExpr(k.Expr)
		}
		return c.set(id, c.interner.Never())
	case ast.Let:
		valTy := c.checkExpr(k.Expr)
		if k.Type != nil {
			declTy := c.resolveTypeExpr(*k.Type)
			if mismatch, ok := c.ctx.Subtype(valTy, declTy); !ok {
				c.errorf("let %q: expected %s, found %s", k.Ident, mismatch[1], mismatch[0])
			}
			valTy = declTy
		}
		c.define(k.Ident, valTy)
		return c.set(id, c.interner.Unit())
	case ast.Assignment:
		lhsTy := c.checkExpr(k.Lhs)
		rhsTy := c.checkExpr(k.Expr)
		if mismatch, ok := c.ctx.Subtype(rhsTy, lhsTy); !ok {
			c.errorf("assignment: expected %s, found %s", mismatch[1], mismatch[0])
		}
		return c.set(id, c.interner.Unit())
	case ast.FnDecl:
		sig := c.funcs[k.Ident]
		c.pushScope()
		for i, p := range k.Params {
			c.define(p.Ident, sig.params[i])
		}
		bodyTy := c.checkBlock(k.Block)
		if mismatch, ok := c.ctx.Subtype(bodyTy, sig.ret); !ok {
			c.errorf("function %q: body type %s does not match return type %s", k.Ident, mismatch[0], mismatch[1])
		}
		c.popScope()
		return c.set(id, c.interner.Unit())
	case ast.FnCall:
		return c.set(id, c.checkCall(k))
	case ast.Index:
		arrTy := c.checkExpr(k.Expr)
		c.expect(k.Index, c.interner.Int())
		resolved := c.ctx.ResolveShallowSafe(arrTy)
		if resolved != nil && resolved.Kind == types.Array {
			return c.set(id, resolved.Elem)
		}
		c.errorf("cannot index non-array type %s", arrTy)
		return c.set(id, c.interner.Never())
	case ast.Ident:
		if ty, ok := c.lookup(k.Name); ok {
			return c.set(id, ty)
		}
		c.errorf("undefined identifier %q", k.Name)
		return c.set(id, c.interner.Never())
	case ast.Field:
		base := c.checkExpr(k.Expr)
		resolved := c.ctx.ResolveShallowSafe(base)
		if resolved != nil && resolved.Kind == types.Struct && int(k.Index) < len(resolved.FieldTypes) {
			return c.set(id, resolved.FieldTypes[k.Index])
		}
		c.errorf("field .%d: not a struct or out of range", k.Index)
		return c.set(id, c.interner.Never())
	case ast.StructDecl:
		return c.set(id, c.interner.Unit())
	case ast.Abort:
		return c.set(id, c.interner.Never())
	case ast.Unreachable:
		return c.set(id, c.interner.Never())
	}
	c.errorf("check: unhandled expression kind %T", e.Kind)
	return c.set(id, c.interner.Never())
}

func (c *Checker) expect(id ast.ExprID, want *types.Ty) {
	got := c.checkExpr(id)
	if mismatch, ok := c.ctx.Subtype(got, want); !ok {
		c.errorf("expected %s, found %s", mismatch[1], mismatch[0])
	}
}

func (c *Checker) checkBlock(id ast.BlockID) *types.Ty {
	b := c.tree.Blocks[id]
	c.pushScope()
	defer c.popScope()
	var last *types.Ty = c.interner.Unit()
	for i, stmt := range b.Stmts {
		ty := c.checkExpr(stmt)
		if i == len(b.Stmts)-1 && b.IsExpr {
			last = ty
		}
	}
	return last
}

func (c *Checker) checkLit(lit ast.Lit) *types.Ty {
	switch lit.(type) {
	case ast.UnitLit:
		return c.interner.Unit()
	case ast.BoolLit:
		return c.interner.Bool()
	case ast.IntLit:
		return c.interner.Int()
	case ast.CharLit:
		return c.interner.Char()
	case ast.StringLit:
		return c.interner.Str()
	case ast.ArrayLit:
		return c.checkArrayLit(lit.(ast.ArrayLit))
	case ast.FStrLit:
		for _, seg := range lit.(ast.FStrLit).Segments {
			c.checkExpr(seg)
		}
		return c.interner.Str()
	}
	c.errorf("check: unhandled literal kind %T", lit)
	return c.interner.Never()
}

func (c *Checker) checkArrayLit(lit ast.ArrayLit) *types.Ty {
	if len(lit.Segments) == 0 {
		return c.interner.NewArray(c.ctx.NewVar())
	}
	var elemTy *types.Ty
	for _, seg := range lit.Segments {
		ty := c.checkExpr(seg.Expr)
		if seg.Repeated != nil {
			c.expect(*seg.Repeated, c.interner.Int())
		}
		if elemTy == nil {
			elemTy = ty
		} else if mismatch, ok := c.ctx.Unify(elemTy, ty); !ok {
			c.errorf("array literal: element type mismatch %s vs %s", mismatch[0], mismatch[1])
		}
	}
	return c.interner.NewArray(elemTy)
}

func (c *Checker) checkUnary(u ast.Unary) *types.Ty {
	inner := c.checkExpr(u.Expr)
	switch u.Op {
	case ast.Not:
		return c.interner.Bool()
	case ast.Neg:
		return c.interner.Int()
	case ast.Ref:
		return c.interner.NewRef(inner)
	case ast.Deref:
		resolved := c.ctx.ResolveShallowSafe(inner)
		if resolved != nil && resolved.Kind == types.Ref {
			return resolved.Elem
		}
		c.errorf("cannot dereference non-reference type %s", inner)
		return c.interner.Never()
	}
	return c.interner.Never()
}

func (c *Checker) checkBinary(b ast.Binary) *types.Ty {
	lhs := c.checkExpr(b.Lhs)
	rhs := c.checkExpr(b.Rhs)
	switch b.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		if mismatch, ok := c.ctx.Unify(lhs, rhs); !ok {
			c.errorf("arithmetic operand mismatch: %s vs %s", mismatch[0], mismatch[1])
		}
		return lhs
	case ast.Less, ast.Greater, ast.LessEq, ast.GreaterEq:
		if mismatch, ok := c.ctx.Unify(lhs, rhs); !ok {
			c.errorf("comparison operand mismatch: %s vs %s", mismatch[0], mismatch[1])
		}
		return c.interner.Bool()
	case ast.Eq, ast.Neq:
		if mismatch, ok := c.ctx.Unify(lhs, rhs); !ok {
			c.errorf("equality operand mismatch: %s vs %s", mismatch[0], mismatch[1])
		}
		return c.interner.Bool()
	case ast.And, ast.Or:
		c.expectTy(lhs, c.interner.Bool(), "logical")
		c.expectTy(rhs, c.interner.Bool(), "logical")
		return c.interner.Bool()
	case ast.Range, ast.RangeInclusive:
		c.expectTy(lhs, c.interner.Int(), "range bound")
		c.expectTy(rhs, c.interner.Int(), "range bound")
		return c.interner.Range()
	}
	return c.interner.Never()
}

func (c *Checker) expectTy(got, want *types.Ty, what string) {
	if mismatch, ok := c.ctx.Subtype(got, want); !ok {
		c.errorf("%s: expected %s, found %s", what, mismatch[1], mismatch[0])
	}
}

func (c *Checker) checkCall(k ast.FnCall) *types.Ty {
	ident, ok := c.tree.Exprs[k.Function].Kind.(ast.Ident)
	if !ok {
		c.errorf("call target must be a named function")
		for _, a := range k.Args {
			c.checkExpr(a)
		}
		return c.interner.Never()
	}
	if ty, handled := c.checkIntrinsicCall(ident.Name.String(), k.Args); handled {
		// The callee itself is never lowered to a real place (HIR lowering
		// reads only its Name), but every ExprID still needs a resolved
		// type on file, intrinsic or not.
		c.set(k.Function, c.interner.NewFunction(nil, ty))
		return ty
	}
	sig, ok := c.funcs[ident.Name]
	if !ok {
		c.set(k.Function, c.interner.Never())
		c.errorf("call to undefined function %q", ident.Name)
		for _, a := range k.Args {
			c.checkExpr(a)
		}
		return c.interner.Never()
	}
	c.set(k.Function, c.interner.NewFunction(sig.params, sig.ret))
	for i, a := range k.Args {
		argTy := c.checkExpr(a)
		if i < len(sig.params) {
			if mismatch, ok := c.ctx.Subtype(argTy, sig.params[i]); !ok {
				c.errorf("call to %q: argument %d: expected %s, found %s", ident.Name, i, mismatch[1], mismatch[0])
			}
		}
	}
	return sig.ret
}

// checkIntrinsicCall type-checks a call against the fixed builtin table
// (internal/mir/intrinsics), returning (ty, true) if name names a builtin.
// push is the one intrinsic with an element-generic signature, so its
// argument types are cross-checked manually rather than via a fixed
// Signature arity entry.
func (c *Checker) checkIntrinsicCall(name string, args []ast.ExprID) (*types.Ty, bool) {
	_, sig, ok := intrinsics.Lookup(name)
	if !ok {
		return nil, false
	}
	if len(args) != sig.Arity {
		c.errorf("%s: expected %d argument(s), found %d", name, sig.Arity, len(args))
	}
	argTy := func(i int) *types.Ty {
		if i < len(args) {
			return c.checkExpr(args[i])
		}
		return c.interner.Never()
	}
	switch name {
	case "print":
		c.expectTy(argTy(0), c.interner.Str(), "print")
		return c.interner.Unit(), true
	case "print_char":
		c.expectTy(argTy(0), c.interner.Char(), "print_char")
		return c.interner.Unit(), true
	case "int_to_string":
		c.expectTy(argTy(0), c.interner.Int(), "int_to_string")
		return c.interner.Str(), true
	case "bool_to_string":
		c.expectTy(argTy(0), c.interner.Bool(), "bool_to_string")
		return c.interner.Str(), true
	case "char_to_string":
		c.expectTy(argTy(0), c.interner.Char(), "char_to_string")
		return c.interner.Str(), true
	case "str_len":
		c.expectTy(argTy(0), c.interner.Str(), "str_len")
		return c.interner.Int(), true
	case "str_find", "str_rfind":
		c.expectTy(argTy(0), c.interner.Str(), name)
		c.expectTy(argTy(1), c.interner.Str(), name)
		return c.interner.Int(), true
	case "chr":
		c.expectTy(argTy(0), c.interner.Int(), "chr")
		return c.interner.Char(), true
	case "str_join":
		arrTy := argTy(0)
		resolved := c.ctx.ResolveShallowSafe(arrTy)
		if resolved == nil || resolved.Kind != types.Array {
			c.errorf("str_join: expected an array of strings, found %s", arrTy)
			return c.interner.Str(), true
		}
		c.expectTy(resolved.Elem, c.interner.Str(), "str_join element")
		return c.interner.Str(), true
	case "push":
		refTy := argTy(0)
		elemTy := argTy(1)
		resolved := c.ctx.ResolveShallowSafe(refTy)
		if resolved == nil || resolved.Kind != types.Ref {
			c.errorf("push: first argument must be a reference to an array, found %s", refTy)
			return c.interner.Unit(), true
		}
		arr := c.ctx.ResolveShallowSafe(resolved.Elem)
		if arr == nil || arr.Kind != types.Array {
			c.errorf("push: first argument must reference an array, found %s", resolved.Elem)
			return c.interner.Unit(), true
		}
		c.expectTy(elemTy, arr.Elem, "push element")
		return c.interner.Unit(), true
	}
	return c.interner.Never(), true
}
