// Package value implements the ground term model of the VM: arbitrary
// precision integers, strings, and functor terms, plus the StackItem
// union that also admits unbound logic variables.
//
// Values are immutable. Every operation that would "change" a Value
// instead builds and returns a new one; nothing in this package ever
// mutates a Value or StackItem in place. Equality is structural:
// functors compare by name and then by their argument sequence,
// recursively.
package value

import (
	"fmt"
	"math/big"
	"strings"
)

// Kind distinguishes the three shapes a Value can take.
type Kind int

const (
	// KindInt is an arbitrary-precision integer.
	KindInt Kind = iota
	// KindString is a string constant.
	KindString
	// KindFunctor is a named tuple of StackItems.
	KindFunctor
)

// Value is the tagged union described in SPEC_FULL.md §3: an integer, a
// string, or a functor over a sequence of StackItems. Only one of the
// three fields is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Int    *big.Int
	String string
	Name   string
	Args   []StackItem
}

// Int64 constructs an integer Value from a machine int64. Used by
// callers (tests, the assembler) that don't need the full big.Int API.
func Int64(i int64) Value {
	return Value{Kind: KindInt, Int: big.NewInt(i)}
}

// Int constructs an integer Value from a big.Int. The big.Int is not
// copied; callers must not mutate it afterwards.
func Int(i *big.Int) Value {
	return Value{Kind: KindInt, Int: i}
}

// Str constructs a string Value.
func Str(s string) Value {
	return Value{Kind: KindString, String: s}
}

// Functor constructs a functor Value with the given name and arguments.
func Functor(name string, args []StackItem) Value {
	return Value{Kind: KindFunctor, Name: name, Args: args}
}

// IsInt reports whether v is an integer.
func (v Value) IsInt() bool { return v.Kind == KindInt }

// IsString reports whether v is a string.
func (v Value) IsString() bool { return v.Kind == KindString }

// IsFunctor reports whether v is a functor.
func (v Value) IsFunctor() bool { return v.Kind == KindFunctor }

// Equal reports structural equality between two values: integers and
// strings compare by natural equality, functors compare by name and
// then pairwise over their arguments (including arity).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int.Cmp(other.Int) == 0
	case KindString:
		return v.String == other.String
	case KindFunctor:
		if v.Name != other.Name || len(v.Args) != len(other.Args) {
			return false
		}
		for i := range v.Args {
			if !v.Args[i].Equal(other.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the value the way the VM's `print` and `printstack`
// instructions do: integers and strings print bare, functors print as
// "name(arg1, arg2)".
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return v.Int.String()
	case KindString:
		return v.String
	case KindFunctor:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", v.Name, strings.Join(parts, ", "))
	default:
		return "<invalid value>"
	}
}

// ItemKind distinguishes the two shapes a StackItem can take.
type ItemKind int

const (
	// ItemVariable is an unbound (or store-bound) logic variable.
	ItemVariable ItemKind = iota
	// ItemValue is a ground Value.
	ItemValue
)

// StackItem is either a logic variable (by name) or a ground Value, as
// described in SPEC_FULL.md §3. It is what actually lives on the
// operand stack and inside functor argument lists.
type StackItem struct {
	Kind ItemKind
	Var  string
	Val  Value
}

// Variable constructs a StackItem referring to the named logic variable.
func Variable(name string) StackItem {
	return StackItem{Kind: ItemVariable, Var: name}
}

// Item constructs a StackItem wrapping a ground Value.
func Item(v Value) StackItem {
	return StackItem{Kind: ItemValue, Val: v}
}

// IsVariable reports whether the item is a variable reference.
func (s StackItem) IsVariable() bool { return s.Kind == ItemVariable }

// IsValue reports whether the item is a ground value.
func (s StackItem) IsValue() bool { return s.Kind == ItemValue }

// Equal reports structural equality: two variable references are equal
// iff their names match; two values are equal iff Value.Equal holds;
// a variable and a value are never equal to each other.
func (s StackItem) Equal(other StackItem) bool {
	if s.Kind != other.Kind {
		return false
	}
	if s.Kind == ItemVariable {
		return s.Var == other.Var
	}
	return s.Val.Equal(other.Val)
}

// String renders the item: a variable renders as its bare name, a
// value renders via Value.String.
func (s StackItem) String() string {
	if s.Kind == ItemVariable {
		return s.Var
	}
	return s.Val.String()
}

// Unescape turns the source-level escapes `\n`, `\t`, `\r`, `\"` inside
// a quoted string literal into their real characters. It is the
// inverse of Escape and is used by the assembler when it parses a
// `str "..."` token.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			case '"':
				b.WriteByte('"')
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Escape is the inverse of Unescape: it turns the real control
// characters recognised by the assembler back into their `\n`/`\t`/
// `\r`/`\"` source form, used when an Instr is rendered back to text
// (disassembly and the assembler round-trip property in SPEC_FULL.md
// §8).
func Escape(s string) string {
	r := strings.NewReplacer(
		"\n", "\\n",
		"\r", "\\r",
		"\t", "\\t",
		"\"", "\\\"",
	)
	return r.Replace(s)
}
