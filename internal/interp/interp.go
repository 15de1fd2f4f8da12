// Package interp tree-walks a lowered mir.Mir: for each basic block it
// executes every statement then follows its terminator, recursing into
// Call the same way.
package interp

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pebble-lang/pebble/internal/mir"
)

// AbortError is the panic payload Abort raises in TestMode, so tests can
// recover and assert on it rather than the process exiting outright.
type AbortError struct{}

func (AbortError) Error() string { return "assertion failed" }

// Options configures a Run.
type Options struct {
	// Stdout receives print/print_char output; os.Stdout if nil.
	Stdout io.Writer
	// TestMode makes Abort panic(AbortError{}) instead of os.Exit(1), so a
	// test harness's own recover() sees it rather than killing the test
	// binary.
	TestMode bool
}

// Run executes m's main body to completion and returns its result. It does
// nothing if m has no main function.
func Run(m *mir.Mir, opts Options) Value {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if !m.HasMain {
		return UnitValue{}
	}
	it := &interpreter{mir: m, stdout: opts.Stdout, testMode: opts.TestMode}
	return it.runBody(m.MainBody, nil)
}

type interpreter struct {
	mir      *mir.Mir
	stdout   io.Writer
	testMode bool
}

func (it *interpreter) runBody(body mir.BodyID, args []Value) Value {
	b := &it.mir.Bodies[body]
	locals := make([]*Allocation, b.Locals)
	for i := range locals {
		locals[i] = NewAllocation(UnitValue{})
	}
	for i, a := range args {
		locals[i] = NewAllocation(a)
	}

	blockID := mir.BlockID(0)
	for {
		block := &b.Blocks[blockID]
		for _, stmt := range block.Statements {
			v := it.rvalue(stmt.RValue, locals)
			it.loadPlace(stmt.Place, locals).Set(v)
		}
		switch t := block.Terminator.(type) {
		case mir.Goto:
			blockID = t.Target
		case mir.Branch:
			if it.operand(t.Condition, locals).(BoolValue).Value {
				blockID = t.IfTrue
			} else {
				blockID = t.IfFalse
			}
		case mir.Return:
			return it.operand(t.Value, locals)
		case mir.Abort:
			if it.testMode {
				panic(AbortError{})
			}
			os.Exit(1)
		case mir.Unreachable:
			panic("interp: reached a block the builder marked unreachable")
		default:
			panic(fmt.Sprintf("interp: unhandled mir.Terminator %T", t))
		}
	}
}

func (it *interpreter) rvalue(rv mir.RValue, locals []*Allocation) Value {
	switch v := rv.(type) {
	case mir.Use:
		return it.operand(v.Operand, locals)
	case mir.BinaryExpr:
		return it.binary(v.Op, it.operand(v.Lhs, locals), it.operand(v.Rhs, locals))
	case mir.UnaryExpr:
		return it.unary(v.Op, it.operand(v.Operand, locals))
	case mir.Call:
		body := it.operand(v.Function, locals).(FnValue).Body
		args := make([]Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = it.operand(a, locals)
		}
		return it.runBody(body, args)
	case mir.BuildArray:
		arr := NewArray()
		for _, e := range v.Elements {
			arr.Extend(it.operand(e, locals), 1)
		}
		return ArrayValue{Array: arr}
	case mir.StrJoin:
		arr := it.operand(v.Array, locals).(ArrayValue).Array
		var sb strings.Builder
		for i := 0; i < arr.Len(); i++ {
			sb.WriteString(arr.Get(i).Get().(StrValue).Value)
		}
		return StrValue{Value: sb.String()}
	case mir.Extend:
		value := it.operand(v.Value, locals)
		repeat := it.operand(v.Repeat, locals).(IntValue).Value
		locals[v.Array].Get().(ArrayValue).Array.Extend(value, repeat)
		return UnitValue{}
	}
	panic(fmt.Sprintf("interp: unhandled mir.RValue %T", rv))
}

func (it *interpreter) binary(op mir.BinaryOp, lhs, rhs Value) Value {
	switch op {
	case mir.IntAdd:
		return IntValue{lhs.(IntValue).Value + rhs.(IntValue).Value}
	case mir.IntSub:
		return IntValue{lhs.(IntValue).Value - rhs.(IntValue).Value}
	case mir.IntMul:
		return IntValue{lhs.(IntValue).Value * rhs.(IntValue).Value}
	case mir.IntDiv:
		return IntValue{lhs.(IntValue).Value / rhs.(IntValue).Value}
	case mir.IntMod:
		return IntValue{lhs.(IntValue).Value % rhs.(IntValue).Value}
	case mir.IntLess:
		return BoolValue{lhs.(IntValue).Value < rhs.(IntValue).Value}
	case mir.IntGreater:
		return BoolValue{lhs.(IntValue).Value > rhs.(IntValue).Value}
	case mir.IntLessEq:
		return BoolValue{lhs.(IntValue).Value <= rhs.(IntValue).Value}
	case mir.IntGreaterEq:
		return BoolValue{lhs.(IntValue).Value >= rhs.(IntValue).Value}
	case mir.IntEq:
		return BoolValue{lhs.(IntValue).Value == rhs.(IntValue).Value}
	case mir.IntNeq:
		return BoolValue{lhs.(IntValue).Value != rhs.(IntValue).Value}
	case mir.IntRange:
		return RangeValue{Start: lhs.(IntValue).Value, End: rhs.(IntValue).Value}
	case mir.IntRangeInclusive:
		return RangeValue{Start: lhs.(IntValue).Value, End: rhs.(IntValue).Value + 1}
	case mir.CharEq:
		return BoolValue{lhs.(CharValue).Value == rhs.(CharValue).Value}
	case mir.CharNeq:
		return BoolValue{lhs.(CharValue).Value != rhs.(CharValue).Value}
	case mir.StrEq:
		return BoolValue{lhs.(StrValue).Value == rhs.(StrValue).Value}
	case mir.StrNeq:
		return BoolValue{lhs.(StrValue).Value != rhs.(StrValue).Value}
	case mir.StrAdd:
		return StrValue{lhs.(StrValue).Value + rhs.(StrValue).Value}
	case mir.StrFind:
		return IntValue{int64(strings.Index(lhs.(StrValue).Value, rhs.(StrValue).Value))}
	case mir.StrRFind:
		return IntValue{int64(strings.LastIndex(lhs.(StrValue).Value, rhs.(StrValue).Value))}
	case mir.BoolEq:
		return BoolValue{lhs.(BoolValue).Value == rhs.(BoolValue).Value}
	case mir.BoolNeq:
		return BoolValue{lhs.(BoolValue).Value != rhs.(BoolValue).Value}
	}
	panic(fmt.Sprintf("interp: unhandled mir.BinaryOp %d", op))
}

func (it *interpreter) unary(op mir.UnaryOp, operand Value) Value {
	switch op {
	case mir.Deref:
		return operand.(RefValue).Alloc.Get()
	case mir.BoolNot:
		return BoolValue{!operand.(BoolValue).Value}
	case mir.IntNeg:
		return IntValue{-operand.(IntValue).Value}
	case mir.IntToStr:
		return StrValue{strconv.FormatInt(operand.(IntValue).Value, 10)}
	case mir.BoolToStr:
		return StrValue{strconv.FormatBool(operand.(BoolValue).Value)}
	case mir.CharToStr:
		return StrValue{string(operand.(CharValue).Value)}
	case mir.Chr:
		return CharValue{rune(operand.(IntValue).Value)}
	case mir.PrintChar:
		fmt.Fprint(it.stdout, string(operand.(CharValue).Value))
		return UnitValue{}
	case mir.PrintStr:
		fmt.Fprintln(it.stdout, operand.(StrValue).Value)
		return UnitValue{}
	case mir.StrLen:
		return IntValue{int64(len(operand.(StrValue).Value))}
	}
	panic(fmt.Sprintf("interp: unhandled mir.UnaryOp %d", op))
}

func (it *interpreter) operand(op mir.Operand, locals []*Allocation) Value {
	switch o := op.(type) {
	case mir.ConstantOperand:
		return it.constant(o.Value)
	case mir.RefOperand:
		return RefValue{Alloc: it.loadPlace(o.Place, locals)}
	case mir.PlaceOperand:
		return cloneValue(it.loadPlace(o.Place, locals).Get())
	case mir.UnreachableOperand:
		panic("interp: observed an operand flagged unreachable by construction")
	}
	panic(fmt.Sprintf("interp: unhandled mir.Operand %T", op))
}

func (it *interpreter) constant(c mir.Constant) Value {
	switch v := c.(type) {
	case mir.ConstUnit:
		return UnitValue{}
	case mir.ConstEmptyArray:
		return ArrayValue{Array: NewArray()}
	case mir.ConstBool:
		return BoolValue{v.Value}
	case mir.ConstInt:
		return IntValue{v.Value}
	case mir.ConstChar:
		return CharValue{v.Value}
	case mir.ConstStr:
		return StrValue{v.Value.String()}
	case mir.ConstFunc:
		return FnValue{Body: v.Body}
	case mir.ConstUninitStruct:
		fields := make([]*Allocation, v.Size)
		for i := range fields {
			fields[i] = NewAllocation(UnitValue{})
		}
		return StructValue{Fields: fields}
	}
	panic(fmt.Sprintf("interp: unhandled mir.Constant %T", c))
}

// loadPlace walks place's projection chain, following Allocation pointers
// at each step (Deref and Field both alias the original cell; only the
// eventual terminal read in operand() decides whether to clone).
func (it *interpreter) loadPlace(place mir.Place, locals []*Allocation) *Allocation {
	alloc := locals[place.Local]
	for _, proj := range place.Projections {
		switch pr := proj.(type) {
		case mir.Deref:
			alloc = alloc.Get().(RefValue).Alloc
		case mir.Field:
			alloc = alloc.Get().(StructValue).Fields[pr.Index]
		case mir.Index:
			idx := locals[pr.Index].Get().(IntValue).Value
			alloc = alloc.Get().(ArrayValue).Array.Get(int(idx))
		case mir.ConstantIndex:
			alloc = alloc.Get().(ArrayValue).Array.Get(int(pr.Index))
		}
	}
	return alloc
}
