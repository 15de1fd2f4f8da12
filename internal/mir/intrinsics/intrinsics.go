// Package intrinsics defines the fixed table of builtin operations the
// toolchain recognizes by name at call sites: primitive-to-string
// conversions, string inspection, and the array/string builders that the
// MIR builder lowers to dedicated RValues instead of ordinary Call
// instructions.
package intrinsics

// ID names one builtin operation.
type ID uint8

const (
	PrintStr ID = iota
	PrintChar
	IntToString
	BoolToString
	CharToString
	StrLen
	StrFind
	StrRFind
	Chr
	Push     // array push, lowered to mir.Extend
	StrJoin  // array-of-str join, lowered to mir.RValue StrJoin
)

// Signature describes a builtin's arity, used by the checker to type-check
// call sites without needing a generic function-signature system.
type Signature struct {
	Name    string
	Arity   int
	IsVoid  bool // true if the call's static type is unit
}

var table = map[string]struct {
	ID ID
	Signature
}{
	"print":          {PrintStr, Signature{"print", 1, true}},
	"print_char":     {PrintChar, Signature{"print_char", 1, true}},
	"int_to_string":  {IntToString, Signature{"int_to_string", 1, false}},
	"bool_to_string":  {BoolToString, Signature{"bool_to_string", 1, false}},
	"char_to_string": {CharToString, Signature{"char_to_string", 1, false}},
	"str_len":        {StrLen, Signature{"str_len", 1, false}},
	"str_find":       {StrFind, Signature{"str_find", 2, false}},
	"str_rfind":      {StrRFind, Signature{"str_rfind", 2, false}},
	"chr":            {Chr, Signature{"chr", 1, false}},
	"push":           {Push, Signature{"push", 2, true}},
	"str_join":       {StrJoin, Signature{"str_join", 1, false}},
}

// Lookup returns the intrinsic registered under name, if any.
func Lookup(name string) (ID, Signature, bool) {
	e, ok := table[name]
	if !ok {
		return 0, Signature{}, false
	}
	return e.ID, e.Signature, true
}
