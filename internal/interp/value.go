package interp

import "github.com/pebble-lang/pebble/internal/mir"

// Value is a runtime value. Scalars and Fn are plain Go values; Array, Ref
// and Struct hold pointers and so carry the aliasing rules described below.
type Value interface{ value() }

type (
	UnitValue  struct{}
	BoolValue  struct{ Value bool }
	IntValue   struct{ Value int64 }
	CharValue  struct{ Value rune }
	StrValue   struct{ Value string }
	RangeValue struct{ Start, End int64 }
	FnValue    struct{ Body mir.BodyID }
	// ArrayValue is always shared: copying an ArrayValue copies the
	// pointer, so every alias observes the same Extend calls. This is what
	// lets `push(&arr, x)` be visible through a plain (non-ref) later read
	// of `arr` too, matching a growable-array-as-reference-type model.
	ArrayValue struct{ Array *Array }
	// StructValue is copy-on-read: every time a struct value is read out of
	// an Allocation (see cloneValue), each field gets its own
	// fresh Allocation holding an independent copy of that field's current
	// value. Struct values behave like records, not shared objects; only an
	// explicit reference (&s) aliases the original cells.
	StructValue struct{ Fields []*Allocation }
	RefValue    struct{ Alloc *Allocation }
)

func (UnitValue) value()   {}
func (BoolValue) value()   {}
func (IntValue) value()    {}
func (CharValue) value()   {}
func (StrValue) value()    {}
func (RangeValue) value()  {}
func (FnValue) value()     {}
func (ArrayValue) value()  {}
func (StructValue) value() {}
func (RefValue) value()    {}

// Allocation is a shared mutable cell: the interpreter's stand-in for
// Rc<RefCell<Value>>. Two Allocation pointers denote the same storage iff
// they are the same pointer; Go's GC retires the need for the reference
// count half of that pairing.
type Allocation struct{ v Value }

func NewAllocation(v Value) *Allocation { return &Allocation{v: v} }
func (a *Allocation) Get() Value        { return a.v }
func (a *Allocation) Set(v Value)       { a.v = v }

// Array is a growable, shared element vector. Extend mutates the
// backing slice in place so every ArrayValue wrapping this pointer, and
// every Ref into one of its elements, observes the growth.
type Array struct{ elems []*Allocation }

func NewArray() *Array { return &Array{} }

func (a *Array) Len() int                { return len(a.elems) }
func (a *Array) Get(index int) *Allocation { return a.elems[index] }

// Extend appends value, repeated `repeat` times (repeat is 1 for a plain
// single-element push and the evaluated count for the `[x; n]` array
// literal repeat form). Each repetition is independently cloneValue'd, so
// `[s; 3]` with a struct s produces three independently-mutable cells, not
// three aliases of one.
func (a *Array) Extend(value Value, repeat int64) {
	for i := int64(0); i < repeat; i++ {
		a.elems = append(a.elems, NewAllocation(cloneValue(value)))
	}
}

// cloneValue severs a Struct value's field identity so reading or copying
// it produces an independent record; every other kind of Value already
// carries pointer (Array, Ref) or plain scalar semantics that copying
// Go-struct-by-value already gets right.
func cloneValue(v Value) Value {
	sv, ok := v.(StructValue)
	if !ok {
		return v
	}
	fields := make([]*Allocation, len(sv.Fields))
	for i, f := range sv.Fields {
		fields[i] = NewAllocation(cloneValue(f.Get()))
	}
	return StructValue{Fields: fields}
}
