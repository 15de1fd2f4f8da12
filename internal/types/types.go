// Package types owns the interned type structures shared by every stage of
// the pipeline: the parser's type annotations, the checker's inference
// variables, and the fully-resolved types HIR and MIR lowering consume.
// Types are interned so that pointer identity implies semantic equality,
// mirroring the arena-interned Ty<'tcx> of the reference implementation.
package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pebble-lang/pebble/internal/symbol"
)

// Kind tags the variant held by a Ty.
type Kind uint8

const (
	Unit Kind = iota
	Bool
	Int
	Char
	Str
	Never
	Array
	Ref
	RangeKind
	Struct
	Infer
	Function
)

// StructID identifies a struct type declaration; stable for the lifetime of
// a compilation and used to memoize one formatter body per struct shape.
type StructID uint32

// Ty is an interned type. Two Ty values denote the same type iff they are
// the same pointer.
type Ty struct {
	Kind Kind

	// Array, Ref
	Elem *Ty

	// Struct
	StructID      StructID
	FieldSymbols  []symbol.Symbol
	FieldTypes    []*Ty
	StructName    symbol.Symbol

	// Infer
	Var VarID

	// Function
	Params []*Ty
	RetTy  *Ty
}

// VarID names an inference variable.
type VarID uint32

func (t *Ty) IsUnit() bool  { return t.Kind == Unit }
func (t *Ty) IsNever() bool { return t.Kind == Never }
func (t *Ty) IsStr() bool   { return t.Kind == Str }
func (t *Ty) IsRange() bool { return t.Kind == RangeKind }

func (t *Ty) String() string {
	switch t.Kind {
	case Unit:
		return "()"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Char:
		return "char"
	case Str:
		return "str"
	case Never:
		return "!"
	case Array:
		return "[" + t.Elem.String() + "]"
	case Ref:
		return "&" + t.Elem.String()
	case RangeKind:
		return "range"
	case Struct:
		if t.StructName != "" {
			return t.StructName.String()
		}
		return fmt.Sprintf("struct#%d", t.StructID)
	case Infer:
		return fmt.Sprintf("?%d", t.Var)
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + t.RetTy.String()
	default:
		return "<bad-ty>"
	}
}

// Interner caches scalar and structural Ty nodes by shape so that
// constructing the same shape twice returns the same pointer.
type Interner struct {
	mu        sync.Mutex
	scalars   [Function + 1]*Ty
	arrays    map[*Ty]*Ty
	refs      map[*Ty]*Ty
	functions map[string]*Ty
	structs   []*Ty
}

// NewInterner builds an interner pre-seeded with the scalar singletons.
func NewInterner() *Interner {
	in := &Interner{
		arrays:    make(map[*Ty]*Ty),
		refs:      make(map[*Ty]*Ty),
		functions: make(map[string]*Ty),
	}
	for _, k := range []Kind{Unit, Bool, Int, Char, Str, Never, RangeKind} {
		in.scalars[k] = &Ty{Kind: k}
	}
	return in
}

func (in *Interner) Unit() *Ty  { return in.scalars[Unit] }
func (in *Interner) Bool() *Ty  { return in.scalars[Bool] }
func (in *Interner) Int() *Ty   { return in.scalars[Int] }
func (in *Interner) Char() *Ty  { return in.scalars[Char] }
func (in *Interner) Str() *Ty   { return in.scalars[Str] }
func (in *Interner) Never() *Ty { return in.scalars[Never] }
func (in *Interner) Range() *Ty { return in.scalars[RangeKind] }

func (in *Interner) NewArray(elem *Ty) *Ty {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.arrays[elem]; ok {
		return t
	}
	t := &Ty{Kind: Array, Elem: elem}
	in.arrays[elem] = t
	return t
}

func (in *Interner) NewRef(elem *Ty) *Ty {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.refs[elem]; ok {
		return t
	}
	t := &Ty{Kind: Ref, Elem: elem}
	in.refs[elem] = t
	return t
}

func (in *Interner) NewFunction(params []*Ty, ret *Ty) *Ty {
	in.mu.Lock()
	defer in.mu.Unlock()
	key := functionKey(params, ret)
	if t, ok := in.functions[key]; ok {
		return t
	}
	t := &Ty{Kind: Function, Params: params, RetTy: ret}
	in.functions[key] = t
	return t
}

func functionKey(params []*Ty, ret *Ty) string {
	var b strings.Builder
	for _, p := range params {
		fmt.Fprintf(&b, "%p,", p)
	}
	fmt.Fprintf(&b, "->%p", ret)
	return b.String()
}

// NewStruct allocates a fresh struct type with its own StructID; struct
// types are nominal (declared once) so they are never deduplicated by shape.
func (in *Interner) NewStruct(name symbol.Symbol, fieldSymbols []symbol.Symbol, fieldTypes []*Ty) *Ty {
	in.mu.Lock()
	defer in.mu.Unlock()
	id := StructID(len(in.structs))
	t := &Ty{
		Kind:         Struct,
		StructID:     id,
		StructName:   name,
		FieldSymbols: fieldSymbols,
		FieldTypes:   fieldTypes,
	}
	in.structs = append(in.structs, t)
	return t
}
