// Package bytecode defines the VM's instruction set: the Opcode byte
// values, the Instr tagged union that pairs an opcode with its operand
// (if any), and the textual rendering that the assembler, the
// disassembler, and the macro expander all share.
package bytecode

import (
	"fmt"
	"math/big"

	"github.com/kristofer/tarski/pkg/value"
)

// Opcode identifies one VM instruction. The numeric values are not
// part of any stability contract on their own — they only need to
// agree between an Encode and the matching Decode within one run — but
// they are kept stable across a build so a .tvmc cache written by one
// invocation of the tool can be read back by the next.
type Opcode byte

const (
	// === Literal and control-flow operations ===

	// OpInt pushes a literal arbitrary-precision integer.
	OpInt Opcode = iota
	// OpStr pushes a literal string.
	OpStr
	// OpVar pushes a reference to the named logic variable.
	OpVar
	// OpGoto pops an integer and jumps to that instruction index.
	OpGoto
	// OpGotoChoice pops an integer and installs a choicepoint that
	// resumes at that index if a later instruction fails. Unlike OpGoto
	// it does not itself redirect control flow — execution falls
	// through to the next instruction on success; the popped index is
	// only ever jumped to on backtrack.
	OpGotoChoice
	// OpFail unconditionally fails the current branch of execution.
	OpFail

	// === Stack shuffling ===

	// OpDup duplicates the top of the operand stack.
	OpDup
	// OpPop discards the top of the operand stack.
	OpPop
	// OpSwap exchanges the top two items.
	OpSwap
	// OpOver duplicates the second item onto the top.
	OpOver
	// OpRot rotates the top three items.
	OpRot
	// OpDestroy clears every constraint record from the store; the
	// operand stack is left untouched.
	OpDestroy

	// === Constraint engine ===

	// OpUnify pops the top two items and records them as unified.
	OpUnify
	// OpDisunify pops the top two items and records them as disunified.
	OpDisunify

	// === Terms ===

	// OpFunctor pops a name, a count, and that many arguments, and
	// pushes the resulting functor.
	OpFunctor
	// OpProject pops an index and a functor and pushes that argument.
	OpProject
	// OpNameOf pops a functor and pushes its name as a string.
	OpNameOf
	// OpFresh mints a new logic variable and pushes a reference to it.
	OpFresh

	// === Arithmetic ===

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow

	// === Comparison guards ===

	OpLt
	OpGt
	OpLte
	OpGte

	// === Diagnostics ===

	// OpPrint pops the top of the operand stack and renders it, printing
	// a bound variable as its value.
	OpPrint
	// OpPrintStack renders the entire operand stack.
	OpPrintStack
	// OpPrintUnification renders the constraint record of the named
	// variable (its operand is the variable name, like OpVar).
	OpPrintUnification
)

var opcodeNames = map[Opcode]string{
	OpInt:              "int",
	OpStr:              "str",
	OpVar:              "var",
	OpGoto:             "goto",
	OpGotoChoice:       "gotochoice",
	OpFail:             "fail",
	OpDup:              "dup",
	OpPop:              "pop",
	OpSwap:             "swap",
	OpOver:             "over",
	OpRot:              "rot",
	OpDestroy:          "destroy",
	OpUnify:            "unify",
	OpDisunify:         "disunify",
	OpFunctor:          "functor",
	OpProject:          "project",
	OpNameOf:           "nameof",
	OpFresh:            "fresh",
	OpAdd:              "add",
	OpSub:              "sub",
	OpMul:              "mul",
	OpDiv:              "div",
	OpPow:              "pow",
	OpLt:               "lt",
	OpGt:               "gt",
	OpLte:              "lte",
	OpGte:              "gte",
	OpPrint:            "print",
	OpPrintStack:       "printstack",
	OpPrintUnification: "printunification",
}

var namesToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// String returns the mnemonic the assembler uses for this opcode.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", byte(op))
}

// Lookup returns the Opcode for a mnemonic, as produced by the
// assembler's tokenizer.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := namesToOpcode[mnemonic]
	return op, ok
}

// HasOperand reports whether op carries an operand (int, string, or
// variable name) that must follow it in the instruction stream.
func (op Opcode) HasOperand() bool {
	switch op {
	case OpInt, OpStr, OpVar, OpPrintUnification:
		return true
	default:
		return false
	}
}

// Instr is one instruction: an opcode plus whichever operand it needs.
// Only the field matching Op is meaningful, mirroring how pkg/value's
// Value keeps a single tagged union rather than one struct per opcode.
type Instr struct {
	Op  Opcode
	Int *big.Int
	Str string
	Var string
}

// Simple constructs a bare instruction with no operand.
func Simple(op Opcode) Instr { return Instr{Op: op} }

// IntInstr constructs an `int` instruction.
func IntInstr(i *big.Int) Instr { return Instr{Op: OpInt, Int: i} }

// StrInstr constructs a `str` instruction.
func StrInstr(s string) Instr { return Instr{Op: OpStr, Str: s} }

// VarInstr constructs a `var` instruction.
func VarInstr(name string) Instr { return Instr{Op: OpVar, Var: name} }

// PrintUnificationInstr constructs a `printunification` instruction.
func PrintUnificationInstr(name string) Instr {
	return Instr{Op: OpPrintUnification, Var: name}
}

// String renders the instruction exactly as the assembler expects to
// read it back: "int 3", `str "hi\n"`, "var X", or a bare mnemonic for
// operand-less opcodes. The debugger's instruction listing uses it.
func (i Instr) String() string {
	switch i.Op {
	case OpInt:
		return fmt.Sprintf("int %s", i.Int.String())
	case OpStr:
		return fmt.Sprintf("str \"%s\"", value.Escape(i.Str))
	case OpVar:
		return fmt.Sprintf("var %s", i.Var)
	case OpPrintUnification:
		return fmt.Sprintf("printunification %s", i.Var)
	default:
		return i.Op.String()
	}
}

// Substitute returns a copy of i with its variable operand rewritten
// from old to new, if i is a `var` or `printunification` instruction
// referring to old; otherwise it returns i unchanged.
func (i Instr) Substitute(old, new string) Instr {
	if (i.Op == OpVar || i.Op == OpPrintUnification) && i.Var == old {
		i.Var = new
	}
	return i
}
