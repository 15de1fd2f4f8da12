package mir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint renders m in a textual form close to MIR-dump debuggers (`fn _0()
// { bb0: { _1 = ...; goto bb1 } }`), used by the `print-mir` CLI subcommand.
func Fprint(w io.Writer, m *Mir) {
	for id, body := range m.Bodies {
		fmt.Fprintf(w, "fn _%d() {\n", id)
		for bid, block := range body.Blocks {
			fmt.Fprintf(w, "    bb%d: {\n", bid)
			for _, stmt := range block.Statements {
				fmt.Fprintf(w, "        %s = %s\n", placeString(stmt.Place), rvalueString(stmt.RValue))
			}
			fmt.Fprintf(w, "        %s\n", terminatorString(block.Terminator))
			fmt.Fprintln(w, "    }")
		}
		fmt.Fprintln(w, "}")
	}
}

// String renders m the same way Fprint does.
func (m *Mir) String() string {
	var b strings.Builder
	Fprint(&b, m)
	return b.String()
}

func placeString(p Place) string {
	var b strings.Builder
	fmt.Fprintf(&b, "_%d", p.Local)
	for _, proj := range p.Projections {
		switch pr := proj.(type) {
		case Deref:
			b.WriteString(".*")
		case Field:
			fmt.Fprintf(&b, ".%d", pr.Index)
		case Index:
			fmt.Fprintf(&b, "[_%d]", pr.Index)
		case ConstantIndex:
			fmt.Fprintf(&b, "[%d]", pr.Index)
		}
	}
	return b.String()
}

func operandString(op Operand) string {
	switch o := op.(type) {
	case ConstantOperand:
		return "const " + constantString(o.Value)
	case RefOperand:
		return "&" + placeString(o.Place)
	case PlaceOperand:
		return placeString(o.Place)
	case UnreachableOperand:
		return "unreachable"
	}
	return "?"
}

func constantString(c Constant) string {
	switch v := c.(type) {
	case ConstUnit:
		return "()"
	case ConstEmptyArray:
		return "[]"
	case ConstBool:
		return strconv.FormatBool(v.Value)
	case ConstInt:
		return strconv.FormatInt(v.Value, 10)
	case ConstChar:
		return strconv.QuoteRune(v.Value)
	case ConstStr:
		return strconv.Quote(v.Value.String())
	case ConstFunc:
		return fmt.Sprintf("function _%d", v.Body)
	case ConstUninitStruct:
		return fmt.Sprintf("uninit-struct(%d)", v.Size)
	}
	return "?"
}

func rvalueString(r RValue) string {
	switch v := r.(type) {
	case Use:
		return operandString(v.Operand)
	case BinaryExpr:
		return fmt.Sprintf("%s(%s, %s)", binaryOpString(v.Op), operandString(v.Lhs), operandString(v.Rhs))
	case UnaryExpr:
		return fmt.Sprintf("%s(%s)", unaryOpString(v.Op), operandString(v.Operand))
	case Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = operandString(a)
		}
		return fmt.Sprintf("call %s(%s)", operandString(v.Function), strings.Join(args, ", "))
	case BuildArray:
		elems := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = operandString(e)
		}
		return fmt.Sprintf("[%s]", strings.Join(elems, ", "))
	case StrJoin:
		return fmt.Sprintf("str_join(%s)", operandString(v.Array))
	case Extend:
		return fmt.Sprintf("extend(_%d, %s, %s)", v.Array, operandString(v.Value), operandString(v.Repeat))
	}
	return "?"
}

func terminatorString(t Terminator) string {
	switch v := t.(type) {
	case Goto:
		return fmt.Sprintf("goto bb%d", v.Target)
	case Branch:
		return fmt.Sprintf("branch %s [false: bb%d, true: bb%d]", operandString(v.Condition), v.IfFalse, v.IfTrue)
	case Return:
		return fmt.Sprintf("return %s", operandString(v.Value))
	case Abort:
		return "abort"
	case Unreachable:
		return "unreachable"
	}
	return "?"
}

func binaryOpString(op BinaryOp) string {
	names := [...]string{
		"IntAdd", "IntSub", "IntMul", "IntDiv", "IntMod",
		"IntLess", "IntGreater", "IntLessEq", "IntGreaterEq", "IntEq", "IntNeq",
		"IntRange", "IntRangeInclusive",
		"CharEq", "CharNeq",
		"StrEq", "StrNeq", "StrAdd", "StrFind", "StrRFind",
		"BoolEq", "BoolNeq",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "BinaryOp(?)"
}

func unaryOpString(op UnaryOp) string {
	names := [...]string{
		"not", "neg", "int_to_str", "bool_to_str", "char_to_str",
		"chr", "print_char", "print_str", "str_len", "deref",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "UnaryOp(?)"
}
