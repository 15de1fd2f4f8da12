package types

import "fmt"

// Ctx generates fresh inference variables and resolves them transitively.
// It is owned by the checker and threaded through lowering so HIR can
// assert every expression ends up with a fully-resolved (non-Infer) type.
type Ctx struct {
	interner *Interner
	subs     []*Ty // subs[v] is the current substitution for VarID v, or the
	// variable's own Ty while unresolved.
}

// NewCtx builds a type context backed by the given interner.
func NewCtx(interner *Interner) *Ctx {
	return &Ctx{interner: interner}
}

func (c *Ctx) Interner() *Interner { return c.interner }

// NewVar allocates a fresh inference variable.
func (c *Ctx) NewVar() *Ty {
	id := VarID(len(c.subs))
	t := &Ty{Kind: Infer, Var: id}
	c.subs = append(c.subs, t)
	return t
}

// ResolveShallow follows one level of substitution chains without
// recursing into structural children. Panics (programmer error) if the
// variable was never constrained.
func (c *Ctx) ResolveShallow(t *Ty) *Ty {
	for t.Kind == Infer {
		sub := c.subs[t.Var]
		if sub == t {
			panic(fmt.Sprintf("types: failed to infer %s", t))
		}
		t = sub
	}
	return t
}

// ResolveShallowSafe is ResolveShallow without the panic: it returns nil if
// the variable has no binding yet, for callers that want to defer the
// decision rather than assert it (e.g. the checker probing a receiver's
// shape before it's fully inferred).
func (c *Ctx) ResolveShallowSafe(t *Ty) *Ty {
	for t.Kind == Infer {
		sub := c.subs[t.Var]
		if sub == t {
			return nil
		}
		t = sub
	}
	return t
}

// ResolveDeep resolves t and recursively resolves any Array/Ref element
// types, producing a type with no remaining Infer nodes anywhere in it.
func (c *Ctx) ResolveDeep(t *Ty) *Ty {
	t = c.ResolveShallow(t)
	switch t.Kind {
	case Array:
		return c.interner.NewArray(c.ResolveDeep(t.Elem))
	case Ref:
		return c.interner.NewRef(c.ResolveDeep(t.Elem))
	default:
		return t
	}
}

// Unify asserts lhs and rhs denote the same type, binding inference
// variables as needed. Returns the two resolved types on mismatch.
func (c *Ctx) Unify(lhs, rhs *Ty) ([2]*Ty, bool) {
	if lhs.Kind == Infer && rhs.Kind == Infer && lhs.Var == rhs.Var {
		return [2]*Ty{}, true
	}
	if lhs.Kind == Infer {
		return c.bind(lhs.Var, rhs)
	}
	if rhs.Kind == Infer {
		return c.bind(rhs.Var, lhs)
	}
	if lhs.Kind == Array && rhs.Kind == Array {
		return c.Unify(lhs.Elem, rhs.Elem)
	}
	if lhs.Kind == Ref && rhs.Kind == Ref {
		return c.Unify(lhs.Elem, rhs.Elem)
	}
	if lhs.Kind == Function && rhs.Kind == Function {
		if len(lhs.Params) != len(rhs.Params) {
			return [2]*Ty{lhs, rhs}, false
		}
		for i := range lhs.Params {
			if _, ok := c.Unify(lhs.Params[i], rhs.Params[i]); !ok {
				return [2]*Ty{lhs, rhs}, false
			}
		}
		return c.Unify(lhs.RetTy, rhs.RetTy)
	}
	if lhs == rhs {
		return [2]*Ty{}, true
	}
	return [2]*Ty{lhs, rhs}, false
}

// Subtype asserts lhs is a subtype of rhs; Never is a subtype of everything.
func (c *Ctx) Subtype(lhs, rhs *Ty) ([2]*Ty, bool) {
	mismatch, ok := c.Unify(lhs, rhs)
	if ok {
		return [2]*Ty{}, true
	}
	if mismatch[0].IsNever() {
		return [2]*Ty{}, true
	}
	return mismatch, false
}

func (c *Ctx) bind(v VarID, t *Ty) ([2]*Ty, bool) {
	if sub := c.subs[v]; sub != nil {
		if sub.Kind == Infer && sub.Var == v {
			c.subs[v] = t
			return [2]*Ty{}, true
		}
		return c.Unify(sub, t)
	}
	if c.occursIn(v, t) {
		panic(fmt.Sprintf("types: infinite type ?%d = %s", v, t))
	}
	c.subs[v] = t
	return [2]*Ty{}, true
}

func (c *Ctx) occursIn(v VarID, t *Ty) bool {
	if t.Kind != Infer {
		return false
	}
	if sub := c.subs[t.Var]; sub != nil && !(sub.Kind == Infer && sub.Var == t.Var) {
		return c.occursIn(v, sub)
	}
	return t.Var == v
}
