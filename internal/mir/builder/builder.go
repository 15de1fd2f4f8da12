// Package builder implements HIR->MIR lowering: turning a typed expression
// tree into three-address-code basic blocks. Blocks whose jump targets
// aren't known yet (a branch's false arm, a break's destination) are
// emitted with mir.Placeholder and patched once the target block exists.
package builder

import (
	"fmt"

	"github.com/pebble-lang/pebble/internal/ast"
	"github.com/pebble-lang/pebble/internal/hir"
	"github.com/pebble-lang/pebble/internal/mir"
	"github.com/pebble-lang/pebble/internal/mir/intrinsics"
	"github.com/pebble-lang/pebble/internal/symbol"
	"github.com/pebble-lang/pebble/internal/types"
)

// Build lowers h into a whole mir.Mir.
func Build(h *hir.Hir, interner *types.Interner) *mir.Mir {
	out := &mir.Mir{}
	rootBody := out.PushBody(mir.NewBody(0))
	b := &builder{
		hir:             h,
		out:             out,
		interner:        interner,
		bodies:          []*bodyInfo{newBodyInfo(rootBody)},
		structBodies:    map[types.StructID]mir.BodyID{},
		intrinsicBodies: map[mir.BodyID]intrinsics.ID{},
	}
	for _, id := range h.Root {
		b.lower(id)
	}
	if len(out.Bodies[rootBody].Blocks) != 0 {
		panic("builder: only function and struct declarations are allowed at top level")
	}
	return out
}

type scope struct{ variables map[symbol.Symbol]mir.Local }

func newScope() *scope { return &scope{variables: map[symbol.Symbol]mir.Local{}} }

// bodyInfo tracks the lowering state for one in-progress body: its pending
// statement buffer, the blocks its enclosed loop's breaks still need
// patched, and its lexical scope stack.
type bodyInfo struct {
	body      mir.BodyID
	functions map[symbol.Symbol]mir.BodyID
	stmts     []mir.Statement
	breaks    []mir.BlockID
	scopes    []*scope
}

func newBodyInfo(body mir.BodyID) *bodyInfo {
	return &bodyInfo{body: body, functions: map[symbol.Symbol]mir.BodyID{}, scopes: []*scope{newScope()}}
}

func (bi *bodyInfo) scope() *scope { return bi.scopes[len(bi.scopes)-1] }

type builder struct {
	hir      *hir.Hir
	out      *mir.Mir
	interner *types.Interner

	bodies          []*bodyInfo
	structBodies    map[types.StructID]mir.BodyID
	intrinsicBodies map[mir.BodyID]intrinsics.ID
}

func (b *builder) current() *bodyInfo        { return b.bodies[len(b.bodies)-1] }
func (b *builder) bodyRef() *mir.Body        { return &b.out.Bodies[b.current().body] }
func (b *builder) currentBlock() mir.BlockID { return mir.BlockID(len(b.bodyRef().Blocks)) }

func (b *builder) finishWith(t mir.Terminator) mir.BlockID {
	cur := b.current()
	block := mir.Block{Statements: cur.stmts, Terminator: t}
	cur.stmts = nil
	return b.bodyRef().PushBlock(block)
}

func (b *builder) finishNext() {
	next := b.currentBlock() + 1
	b.finishWith(mir.Goto{Target: next})
}

// complete patches whichever Placeholder slot a previously-emitted
// terminator still has (a Goto's sole target, or a Branch's still-open
// arm), matching the single forward reference every such terminator is
// built with.
func (b *builder) complete(blockID, target mir.BlockID) {
	blk := &b.bodyRef().Blocks[blockID]
	switch t := blk.Terminator.(type) {
	case mir.Goto:
		if t.Target != mir.Placeholder {
			panic("builder: goto target already patched")
		}
		blk.Terminator = mir.Goto{Target: target}
	case mir.Branch:
		switch {
		case t.IfFalse == mir.Placeholder:
			t.IfFalse = target
		case t.IfTrue == mir.Placeholder:
			t.IfTrue = target
		default:
			panic("builder: branch has no placeholder left to patch")
		}
		blk.Terminator = t
	default:
		panic("builder: terminator has no forward reference to patch")
	}
}

func (b *builder) newLocal() mir.Local { return b.bodyRef().NewLocal() }

func (b *builder) lower(id hir.ExprID) mir.Operand {
	rv := b.lowerRValue(id)
	return b.process(rv, b.hir.Exprs[id].Ty)
}

func (b *builder) lowerLocal(id hir.ExprID) mir.Local {
	return b.processToLocal(b.lowerRValue(id))
}

func (b *builder) processToLocal(rv mir.RValue) mir.Local {
	if use, ok := rv.(mir.Use); ok {
		if po, ok := use.Operand.(mir.PlaceOperand); ok && len(po.Place.Projections) == 0 {
			return po.Place.Local
		}
	}
	return b.assignNew(rv)
}

func (b *builder) processToPlace(rv mir.RValue) mir.Place {
	if use, ok := rv.(mir.Use); ok {
		if po, ok := use.Operand.(mir.PlaceOperand); ok {
			return po.Place
		}
	}
	return mir.LocalPlace(b.assignNew(rv))
}

func (b *builder) refOf(rv mir.RValue) mir.Operand {
	if use, ok := rv.(mir.Use); ok {
		if po, ok := use.Operand.(mir.PlaceOperand); ok {
			return mir.RefOperand{Place: po.Place}
		}
	}
	return mir.RefOperand{Place: mir.LocalPlace(b.assignNew(rv))}
}

func (b *builder) process(rv mir.RValue, ty *types.Ty) mir.Operand {
	if use, ok := rv.(mir.Use); ok {
		return use.Operand
	}
	if ty.IsUnit() {
		b.assignNew(rv)
		return mir.UnitOperand
	}
	return mir.OperandLocal(b.assignNew(rv))
}

func (b *builder) assign(place mir.Place, rv mir.RValue) {
	cur := b.current()
	cur.stmts = append(cur.stmts, mir.Statement{Place: place, RValue: rv})
}

func (b *builder) assignNew(rv mir.RValue) mir.Local {
	local := b.newLocal()
	b.assign(mir.LocalPlace(local), rv)
	return local
}

func one() mir.Operand { return mir.ConstantOperand{Value: mir.ConstInt{Value: 1}} }

func strConst(s string) mir.Operand {
	return mir.ConstantOperand{Value: mir.ConstStr{Value: symbol.Intern(s)}}
}

func (b *builder) lowerRValue(id hir.ExprID) mir.RValue {
	expr := b.hir.Exprs[id]
	switch k := expr.Kind.(type) {
	case hir.Unreachable:
		b.finishWith(mir.Unreachable{})
		return mir.Use{Operand: mir.UnitOperand}
	case hir.Abort:
		b.finishWith(mir.Abort{})
		return mir.Use{Operand: mir.UnitOperand}
	case hir.Field:
		local := b.lowerLocal(k.Expr)
		return mir.Use{Operand: mir.PlaceOperand{Place: mir.Place{
			Local: local, Projections: []mir.Projection{mir.Field{Index: k.Index}},
		}}}
	case hir.StructInit:
		return b.lowerStructInit(k)
	case hir.PrintStr:
		return mir.UnaryExpr{Op: mir.PrintStr, Operand: strConst(k.Value.String())}
	case hir.Literal:
		return b.litRValue(k.Lit, expr.Ty)
	case hir.Unary:
		return b.unaryOp(k)
	case hir.FnDecl:
		return b.lowerFnDecl(k)
	case hir.Let:
		rv := b.lowerRValue(k.Expr)
		local := b.assignNew(rv)
		b.current().scope().variables[k.Ident] = local
		return mir.Use{Operand: mir.UnitOperand}
	case hir.Return:
		op := b.lower(k.Expr)
		b.finishWith(mir.Return{Value: op})
		return mir.Use{Operand: mir.UnitOperand}
	case hir.Loop:
		return b.lowerLoop(k)
	case hir.If:
		return b.lowerIf(k, expr.Ty)
	case hir.Assignment:
		rv := b.lowerRValue(k.Expr)
		place := b.lowerPlace(k.Lhs)
		b.assign(place, rv)
		return mir.Use{Operand: mir.UnitOperand}
	case hir.Binary:
		return b.binaryOp(k)
	case hir.Ident:
		return b.loadIdent(k.Name)
	case hir.FnCall:
		return b.lowerFnCall(k)
	case hir.Break:
		block := b.finishWith(mir.Goto{Target: mir.Placeholder})
		b.current().breaks = append(b.current().breaks, block)
		return mir.Use{Operand: mir.UnitOperand}
	case hir.Index:
		return b.lowerIndex(k)
	case hir.Block:
		return b.blockExpr(k.Exprs)
	}
	panic(fmt.Sprintf("builder: unhandled hir.ExprKind %T", expr.Kind))
}

func (b *builder) unaryOp(k hir.Unary) mir.RValue {
	switch k.Op {
	case ast.Ref:
		return mir.Use{Operand: b.refExpr(k.Expr)}
	case ast.Deref:
		rv := b.lowerRValue(k.Expr)
		return mir.Use{Operand: b.derefOperand(rv)}
	case ast.Not:
		return mir.UnaryExpr{Op: mir.BoolNot, Operand: b.lower(k.Expr)}
	case ast.Neg:
		return mir.UnaryExpr{Op: mir.IntNeg, Operand: b.lower(k.Expr)}
	}
	panic("builder: unhandled ast.UnaryOp")
}

func (b *builder) lowerStructInit(k hir.StructInit) mir.RValue {
	nparams := len(k.Args)
	local := b.assignNew(mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstUninitStruct{Size: uint32(nparams)}}})
	for i := 0; i < nparams; i++ {
		field := mir.Field{Index: uint32(i)}
		b.assign(mir.Place{Local: local, Projections: []mir.Projection{field}}, mir.Use{Operand: mir.OperandLocal(mir.Local(i))})
	}
	return mir.Use{Operand: mir.OperandLocal(local)}
}

// lowerFnDecl emits a fresh body for k, recursing into its own fresh
// bodyInfo and restoring the caller's once done. A declaration whose name
// names a builtin intrinsic gets an empty body (the interpreter never
// actually runs it — call sites resolving to it are rewritten to the
// matching dedicated RValue in lowerFnCall) purely so every call site
// still resolves a Constant::Func to a real BodyID.
func (b *builder) lowerFnDecl(k hir.FnDecl) mir.RValue {
	if len(b.current().stmts) != 0 {
		panic("builder: function declared mid-expression")
	}
	bodyID := b.out.PushBody(mir.NewBody(len(k.Params)))
	b.out.Bodies[bodyID].Name = k.Ident
	b.current().functions[k.Ident] = bodyID
	b.bodies = append(b.bodies, newBodyInfo(bodyID))

	isRoot := len(b.bodies) == 2
	if isRoot && k.Ident.String() == "main" {
		b.out.MainBody = bodyID
		b.out.HasMain = true
	}

	if id, _, ok := intrinsics.Lookup(k.Ident.String()); isRoot && ok {
		b.intrinsicBodies[bodyID] = id
		b.out.NumIntrinsics++
	} else {
		for i, p := range k.Params {
			b.current().scope().variables[p.Ident] = mir.Local(i)
		}
		var last mir.Operand = mir.UnitOperand
		for _, e := range k.Body {
			last = b.lower(e)
		}
		b.finishWith(mir.Return{Value: last})
	}
	b.bodies = b.bodies[:len(b.bodies)-1]
	return mir.Use{Operand: mir.UnitOperand}
}

func (b *builder) lowerFnCall(k hir.FnCall) mir.RValue {
	function := b.lower(k.Function)
	args := make([]mir.Operand, len(k.Args))
	for i, a := range k.Args {
		args[i] = b.lower(a)
	}
	if co, ok := function.(mir.ConstantOperand); ok {
		if cf, ok := co.Value.(mir.ConstFunc); ok {
			if id, ok := b.intrinsicBodies[cf.Body]; ok {
				return b.callIntrinsic(id, args)
			}
		}
	}
	return mir.Call{Function: function, Args: args}
}

func (b *builder) callIntrinsic(id intrinsics.ID, args []mir.Operand) mir.RValue {
	switch id {
	case intrinsics.PrintStr:
		return mir.UnaryExpr{Op: mir.PrintStr, Operand: args[0]}
	case intrinsics.PrintChar:
		return mir.UnaryExpr{Op: mir.PrintChar, Operand: args[0]}
	case intrinsics.IntToString:
		return mir.UnaryExpr{Op: mir.IntToStr, Operand: args[0]}
	case intrinsics.BoolToString:
		return mir.UnaryExpr{Op: mir.BoolToStr, Operand: args[0]}
	case intrinsics.CharToString:
		return mir.UnaryExpr{Op: mir.CharToStr, Operand: args[0]}
	case intrinsics.StrLen:
		return mir.UnaryExpr{Op: mir.StrLen, Operand: args[0]}
	case intrinsics.StrFind:
		return mir.BinaryExpr{Lhs: args[0], Op: mir.StrFind, Rhs: args[1]}
	case intrinsics.StrRFind:
		return mir.BinaryExpr{Lhs: args[0], Op: mir.StrRFind, Rhs: args[1]}
	case intrinsics.Chr:
		return mir.UnaryExpr{Op: mir.Chr, Operand: args[0]}
	case intrinsics.Push:
		ro, ok := args[0].(mir.RefOperand)
		if !ok {
			panic("builder: push's first argument must be a reference operand")
		}
		return mir.Extend{Array: ro.Place.Local, Value: args[1], Repeat: one()}
	case intrinsics.StrJoin:
		return mir.StrJoin{Array: args[0]}
	}
	panic("builder: unhandled intrinsic")
}

func (b *builder) lowerLoop(k hir.Loop) mir.RValue {
	b.finishNext()
	loopBlock := b.currentBlock()

	prevBreaks := b.current().breaks
	b.current().breaks = nil
	for _, e := range k.Body {
		b.lower(e)
	}
	breaks := b.current().breaks
	b.current().breaks = prevBreaks

	afterLoopBlock := b.finishWith(mir.Goto{Target: loopBlock})
	afterLoop := afterLoopBlock + 1
	for _, blk := range breaks {
		b.complete(blk, afterLoop)
	}
	return mir.Use{Operand: mir.UnitOperand}
}

func (b *builder) lowerIf(k hir.If, ty *types.Ty) mir.RValue {
	isUnit := ty.IsUnit()
	var jumpToEnds []mir.BlockID
	outLocal := b.newLocal()

	for _, arm := range k.Arms {
		cond := b.lower(arm.Condition)
		toFix := b.finishWith(mir.Branch{Condition: cond, IfFalse: mir.Placeholder, IfTrue: b.currentBlock() + 1})
		blockOut := b.blockExpr(arm.Body)
		if isUnit {
			b.process(blockOut, ty)
		} else {
			b.assign(mir.LocalPlace(outLocal), blockOut)
		}
		jumpToEnds = append(jumpToEnds, b.finishWith(mir.Goto{Target: mir.Placeholder}))
		b.complete(toFix, b.currentBlock())
	}

	elsOut := b.blockExpr(k.Els)
	if isUnit {
		b.process(elsOut, ty)
	} else {
		b.assign(mir.LocalPlace(outLocal), elsOut)
	}
	b.finishNext()

	cur := b.currentBlock()
	for _, blk := range jumpToEnds {
		b.complete(blk, cur)
	}
	if isUnit {
		return mir.Use{Operand: mir.UnitOperand}
	}
	return mir.Use{Operand: mir.OperandLocal(outLocal)}
}

func (b *builder) blockExpr(exprs []hir.ExprID) mir.RValue {
	b.current().scopes = append(b.current().scopes, newScope())
	var rv mir.RValue = mir.Use{Operand: mir.UnitOperand}
	for i, e := range exprs {
		if i == len(exprs)-1 {
			rv = b.lowerRValue(e)
		} else {
			b.lower(e)
		}
	}
	b.current().scopes = b.current().scopes[:len(b.current().scopes)-1]
	return rv
}

func (b *builder) binaryOp(k hir.Binary) mir.RValue {
	if k.Op == ast.And || k.Op == ast.Or {
		return b.logicalOp(k)
	}
	lhsTy := b.hir.Exprs[k.Lhs].Ty
	rhsTy := b.hir.Exprs[k.Rhs].Ty

	lhsRV := b.lowerRValue(k.Lhs)
	rhsRV := b.lowerRValue(k.Rhs)
	lhsRV, lhsTy = b.fullyDeref(lhsRV, lhsTy)
	rhsRV, rhsTy = b.fullyDeref(rhsRV, rhsTy)

	op := resolveBinaryOp(lhsTy, k.Op)
	lhsOp := b.process(lhsRV, lhsTy)
	rhsOp := b.process(rhsRV, rhsTy)
	return mir.BinaryExpr{Lhs: lhsOp, Op: op, Rhs: rhsOp}
}

func resolveBinaryOp(ty *types.Ty, op ast.BinaryOp) mir.BinaryOp {
	switch ty.Kind {
	case types.Int:
		switch op {
		case ast.Add:
			return mir.IntAdd
		case ast.Sub:
			return mir.IntSub
		case ast.Mul:
			return mir.IntMul
		case ast.Div:
			return mir.IntDiv
		case ast.Mod:
			return mir.IntMod
		case ast.Less:
			return mir.IntLess
		case ast.Greater:
			return mir.IntGreater
		case ast.LessEq:
			return mir.IntLessEq
		case ast.GreaterEq:
			return mir.IntGreaterEq
		case ast.Eq:
			return mir.IntEq
		case ast.Neq:
			return mir.IntNeq
		case ast.Range:
			return mir.IntRange
		case ast.RangeInclusive:
			return mir.IntRangeInclusive
		}
	case types.Char:
		switch op {
		case ast.Eq:
			return mir.CharEq
		case ast.Neq:
			return mir.CharNeq
		}
	case types.Str:
		switch op {
		case ast.Eq:
			return mir.StrEq
		case ast.Neq:
			return mir.StrNeq
		case ast.Add:
			return mir.StrAdd
		}
	case types.Bool:
		switch op {
		case ast.Eq:
			return mir.BoolEq
		case ast.Neq:
			return mir.BoolNeq
		}
	}
	panic(fmt.Sprintf("builder: no binary opcode for %s on operator %d", ty, op))
}

func (b *builder) logicalOp(k hir.Binary) mir.RValue {
	lhsTy := b.hir.Exprs[k.Lhs].Ty
	rhsTy := b.hir.Exprs[k.Rhs].Ty
	output := b.newLocal()

	lhsRV := b.lowerRValue(k.Lhs)
	lhsRV, _ = b.fullyDeref(lhsRV, lhsTy)
	b.assign(mir.LocalPlace(output), lhsRV)

	next := b.currentBlock() + 1
	cond := mir.OperandLocal(output)
	var term mir.Terminator
	if k.Op == ast.And {
		term = mir.Branch{Condition: cond, IfFalse: mir.Placeholder, IfTrue: next}
	} else {
		term = mir.Branch{Condition: cond, IfFalse: next, IfTrue: mir.Placeholder}
	}
	toFix := b.finishWith(term)

	rhsRV := b.lowerRValue(k.Rhs)
	rhsRV, _ = b.fullyDeref(rhsRV, rhsTy)
	b.assign(mir.LocalPlace(output), rhsRV)
	b.finishNext()

	b.complete(toFix, b.currentBlock())
	return mir.Use{Operand: mir.OperandLocal(output)}
}

func (b *builder) fullyDeref(rv mir.RValue, ty *types.Ty) (mir.RValue, *types.Ty) {
	for ty.Kind == types.Ref {
		rv = mir.Use{Operand: b.derefOperand(rv)}
		ty = ty.Elem
	}
	return rv, ty
}

func (b *builder) derefOperand(rv mir.RValue) mir.Operand {
	if use, ok := rv.(mir.Use); ok {
		switch o := use.Operand.(type) {
		case mir.PlaceOperand:
			proj := append(append([]mir.Projection{}, o.Place.Projections...), mir.Deref{})
			return mir.PlaceOperand{Place: mir.Place{Local: o.Place.Local, Projections: proj}}
		case mir.RefOperand:
			return mir.PlaceOperand{Place: o.Place}
		}
	}
	local := b.assignNew(rv)
	return mir.PlaceOperand{Place: mir.Place{Local: local, Projections: []mir.Projection{mir.Deref{}}}}
}

func (b *builder) lowerIndex(k hir.Index) mir.RValue {
	exprTy := b.hir.Exprs[k.Expr].Ty
	rv := b.lowerRValue(k.Expr)
	rv, _ = b.fullyDeref(rv, exprTy)
	place := b.processToPlace(rv)

	var proj mir.Projection
	if lit, ok := b.hir.Exprs[k.Index].Kind.(hir.Literal); ok {
		if il, ok := lit.Lit.(hir.IntLit); ok && il.Value >= 0 {
			proj = mir.ConstantIndex{Index: uint32(il.Value)}
		}
	}
	if proj == nil {
		proj = mir.Index{Index: b.lowerLocal(k.Index)}
	}
	place.Projections = append(place.Projections, proj)
	return mir.Use{Operand: mir.PlaceOperand{Place: place}}
}

func (b *builder) readIdent(name symbol.Symbol) mir.Local {
	cur := b.current()
	for i := len(cur.scopes) - 1; i >= 0; i-- {
		if local, ok := cur.scopes[i].variables[name]; ok {
			return local
		}
	}
	panic(fmt.Sprintf("builder: unresolved identifier %q used as a place", name))
}

func (b *builder) lowerPlace(id hir.ExprID) mir.Place {
	var proj []mir.Projection
	local := b.lowerPlaceInner(id, &proj)
	return mir.Place{Local: local, Projections: proj}
}

func (b *builder) lowerPlaceInner(id hir.ExprID, proj *[]mir.Projection) mir.Local {
	switch k := b.hir.Exprs[id].Kind.(type) {
	case hir.Ident:
		return b.readIdent(k.Name)
	case hir.Index:
		indexLocal := b.lowerLocal(k.Index)
		local := b.lowerPlaceInner(k.Expr, proj)
		*proj = append(*proj, mir.Index{Index: indexLocal})
		return local
	case hir.Field:
		local := b.lowerPlaceInner(k.Expr, proj)
		*proj = append(*proj, mir.Field{Index: k.Index})
		return local
	case hir.Unary:
		switch k.Op {
		case ast.Deref:
			local := b.lowerPlaceInner(k.Expr, proj)
			*proj = append(*proj, mir.Deref{})
			return local
		case ast.Ref:
			rv := mir.Use{Operand: b.refExpr(k.Expr)}
			return b.processToLocal(rv)
		}
	}
	rv := b.lowerRValue(id)
	return b.processToLocal(rv)
}

// refExpr takes the address of an l-value expression, collapsing `&*x` to
// plain `x` rather than emitting a needless deref-then-ref round trip.
func (b *builder) refExpr(id hir.ExprID) mir.Operand {
	place := b.lowerPlace(id)
	if n := len(place.Projections); n > 0 {
		if _, ok := place.Projections[n-1].(mir.Deref); ok {
			place.Projections = place.Projections[:n-1]
			return mir.PlaceOperand{Place: place}
		}
	}
	return mir.RefOperand{Place: place}
}

func (b *builder) loadIdent(name symbol.Symbol) mir.RValue {
	cur := b.current()
	for i := len(cur.scopes) - 1; i >= 0; i-- {
		if local, ok := cur.scopes[i].variables[name]; ok {
			return mir.Use{Operand: mir.OperandLocal(local)}
		}
	}
	for i := len(b.bodies) - 1; i >= 0; i-- {
		if bodyID, ok := b.bodies[i].functions[name]; ok {
			return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstFunc{Body: bodyID}}}
		}
	}
	if bodyID, ok := b.synthesizeIntrinsic(name); ok {
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstFunc{Body: bodyID}}}
	}
	panic(fmt.Sprintf("builder: unresolved identifier %q", name))
}

// synthesizeIntrinsic registers name as an intrinsic the first time it's
// named as a call target with no matching source declaration: checkIntrinsicCall
// accepts intrinsic calls without requiring a `fn` stub, so loadIdent must be
// able to resolve one on its own. The synthesized body is empty and never
// runs (lowerFnCall rewrites the call site to a dedicated RValue before any
// mir.Call naming this body is emitted); it only exists so the call's callee
// Ident resolves to a real BodyID, the same role an explicit empty `fn`
// declaration plays in lowerFnDecl.
func (b *builder) synthesizeIntrinsic(name symbol.Symbol) (mir.BodyID, bool) {
	id, _, ok := intrinsics.Lookup(name.String())
	if !ok {
		return 0, false
	}
	bodyID := b.out.PushBody(mir.NewBody(0))
	b.out.Bodies[bodyID].Name = name
	b.intrinsicBodies[bodyID] = id
	b.out.NumIntrinsics++
	b.bodies[0].functions[name] = bodyID
	return bodyID, true
}

func (b *builder) litRValue(lit hir.Lit, ty *types.Ty) mir.RValue {
	switch v := lit.(type) {
	case hir.UnitLit:
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstUnit{}}}
	case hir.BoolLit:
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstBool{Value: v.Value}}}
	case hir.IntLit:
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstInt{Value: v.Value}}}
	case hir.CharLit:
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstChar{Value: v.Value}}}
	case hir.StringLit:
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstStr{Value: v.Value}}}
	case hir.ArrayLit:
		return b.lowerArrayLit(v.Segments)
	case hir.FStrLit:
		return b.lowerFStrings(v.Segments)
	}
	panic(fmt.Sprintf("builder: unhandled hir.Lit %T for type %s", lit, ty))
}

func (b *builder) lowerArrayLit(segments []hir.ArraySeg) mir.RValue {
	if len(segments) == 0 {
		return mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstEmptyArray{}}}
	}
	anyRepeat := false
	for _, s := range segments {
		if s.Repeated != nil {
			anyRepeat = true
		}
	}
	if !anyRepeat {
		elems := make([]mir.Operand, len(segments))
		for i, s := range segments {
			elems[i] = b.lower(s.Expr)
		}
		return mir.BuildArray{Elements: elems}
	}

	arrLocal := b.assignNew(mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstEmptyArray{}}})
	for _, s := range segments {
		val := b.lower(s.Expr)
		repeat := one()
		if s.Repeated != nil {
			repeat = b.lower(*s.Repeated)
		}
		b.process(mir.Extend{Array: arrLocal, Value: val, Repeat: repeat}, b.interner.Unit())
	}
	return mir.Use{Operand: mir.OperandLocal(arrLocal)}
}

func (b *builder) lowerFStrings(segments []hir.ExprID) mir.RValue {
	if len(segments) == 1 {
		return b.formatExpr(segments[0])
	}
	parts := make([]mir.Operand, len(segments))
	for i, seg := range segments {
		rv := b.formatExpr(seg)
		parts[i] = b.process(rv, b.interner.Str())
	}
	arr := b.assignNew(mir.BuildArray{Elements: parts})
	return mir.StrJoin{Array: mir.OperandLocal(arr)}
}

func (b *builder) formatExpr(id hir.ExprID) mir.RValue {
	ty := b.hir.Exprs[id].Ty
	rv := b.lowerRValue(id)
	return b.formatRValue(rv, ty)
}

// formatRValue turns a value of any type into a str RValue, recursing
// through Ref and dispatching to the memoized struct formatter for
// Struct-typed values.
func (b *builder) formatRValue(rv mir.RValue, ty *types.Ty) mir.RValue {
	rv, ty = b.fullyDeref(rv, ty)
	if ty.Kind == types.Str {
		return rv
	}
	operand := b.process(rv, ty)
	switch ty.Kind {
	case types.Never:
		return mir.Use{Operand: strConst("!")}
	case types.Unit:
		return mir.Use{Operand: strConst("()")}
	case types.Bool:
		return mir.UnaryExpr{Op: mir.BoolToStr, Operand: operand}
	case types.Int:
		return mir.UnaryExpr{Op: mir.IntToStr, Operand: operand}
	case types.Char:
		return mir.UnaryExpr{Op: mir.CharToStr, Operand: operand}
	case types.Struct:
		return b.formatStruct(ty, operand)
	}
	panic(fmt.Sprintf("builder: don't know how to format a %s", ty))
}

func (b *builder) formatStruct(ty *types.Ty, val mir.Operand) mir.RValue {
	bodyID := b.generateStructFunc(ty)
	refStruct := b.refOf(mir.Use{Operand: val})
	return mir.Call{Function: mir.ConstantOperand{Value: mir.ConstFunc{Body: bodyID}}, Args: []mir.Operand{refStruct}}
}

// generateStructFunc lazily builds, and memoizes by StructID, the one MIR
// body that renders a struct value as `(field, field, ...)`, with no
// leading struct-name prefix.
func (b *builder) generateStructFunc(ty *types.Ty) mir.BodyID {
	if id, ok := b.structBodies[ty.StructID]; ok {
		return id
	}

	previous := b.current()
	b.bodies = b.bodies[:len(b.bodies)-1]
	bodyID := b.out.PushBody(mir.NewBody(1))
	b.out.Bodies[bodyID].Name = ty.StructName
	b.bodies = append(b.bodies, newBodyInfo(bodyID))
	local := mir.Local(0)

	strings := b.assignNew(mir.Use{Operand: mir.ConstantOperand{Value: mir.ConstEmptyArray{}}})
	b.process(mir.Extend{Array: strings, Value: strConst("("), Repeat: one()}, b.interner.Unit())
	for i, fty := range ty.FieldTypes {
		if i != 0 {
			b.process(mir.Extend{Array: strings, Value: strConst(", "), Repeat: one()}, b.interner.Unit())
		}
		fieldPlace := mir.Place{Local: local, Projections: []mir.Projection{mir.Deref{}, mir.Field{Index: uint32(i)}}}
		fieldRV := mir.Use{Operand: mir.PlaceOperand{Place: fieldPlace}}
		formatted := b.formatRValue(fieldRV, fty)
		rhs := b.process(formatted, b.interner.Str())
		b.process(mir.Extend{Array: strings, Value: rhs, Repeat: one()}, b.interner.Unit())
	}
	b.process(mir.Extend{Array: strings, Value: strConst(")"), Repeat: one()}, b.interner.Unit())

	out := b.assignNew(mir.StrJoin{Array: mir.OperandLocal(strings)})
	b.finishWith(mir.Return{Value: mir.OperandLocal(out)})

	b.structBodies[ty.StructID] = bodyID
	b.bodies = b.bodies[:len(b.bodies)-1]
	b.bodies = append(b.bodies, previous)
	return bodyID
}
