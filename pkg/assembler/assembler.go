// Package assembler turns the VM's plain-text instruction syntax into
// a resolved []bytecode.Instr stream, per SPEC_FULL.md §4.F.
//
// Source syntax, one item per line:
//
//	; a full-line comment, ignored
//	# also a full-line comment, ignored
//	int 42                 literal integer (arbitrary precision)
//	str "hi\n"             literal string, with \n \t \r \" escapes
//	var X                  reference to logic variable X
//	:loop                  marks the current instruction index as "loop"
//	position loop          pushes the resolved index of label "loop"
//	goto                   bare opcode; pops its target off the stack
//	dup / unify / add ...  any other opcode, bare
//	printunification X     the one opcode that takes a variable operand
//
// `:loop` is zero-width: it doesn't itself become an instruction, it
// just names the index of whatever instruction comes next. `position`
// is a real instruction slot that resolves, at assembly time, to `int
// <resolved index>` — the idiom for a jump is therefore
//
//	position loop
//	goto
//
// which pushes loop's resolved index and then jumps to it.
//
// Because a `position` reference can name a `:label` that appears
// later in the source, resolving it is a two-pass process: the first
// pass walks every line to build the name -> resolved-index table (and
// reports every malformed line it finds along the way, rather than
// stopping at the first one); the second pass walks the source again
// and emits the final instruction stream, now that every label has a
// known target.
package assembler

import (
	"bufio"
	"fmt"
	"math/big"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/kristofer/tarski/pkg/bytecode"
	"github.com/kristofer/tarski/pkg/value"
)

type itemKind int

const (
	itemInstr itemKind = iota
	// itemPositionRef is a `position <name>` line: a real instruction
	// slot that resolves to `int <resolved index>`.
	itemPositionRef
	// itemLabelDecl is a `:<name>` line: a zero-width marker naming the
	// index of whatever instruction comes next.
	itemLabelDecl
)

type item struct {
	kind  itemKind
	instr bytecode.Instr
	name  string
	line  int
}

// Assemble parses source and returns its fully resolved instruction
// stream. If any line is malformed or any label is undefined, it
// returns a *multierror.Error collecting every problem found, not just
// the first.
func Assemble(source string) ([]bytecode.Instr, error) {
	items, err := tokenize(source)
	if err != nil {
		return nil, err
	}

	positions, err := resolvePositions(items)
	if err != nil {
		return nil, err
	}

	return emit(items, positions)
}

func tokenize(source string) ([]item, error) {
	var items []item
	var errs *multierror.Error

	scanner := bufio.NewScanner(strings.NewReader(source))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		mnemonic, rest := splitFirst(line)
		it, err := parseLine(mnemonic, rest, lineNo)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		items = append(items, it)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return items, nil
}

func splitFirst(line string) (first, rest string) {
	fields := strings.SplitN(line, " ", 2)
	first = fields[0]
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}
	return first, rest
}

func parseLine(mnemonic, rest string, lineNo int) (item, error) {
	if strings.HasPrefix(mnemonic, ":") {
		name := strings.TrimPrefix(mnemonic, ":")
		if name == "" {
			return item{}, fmt.Errorf("line %d: label declaration requires a name", lineNo)
		}
		return item{kind: itemLabelDecl, name: name, line: lineNo}, nil
	}

	switch mnemonic {
	case "position":
		if rest == "" {
			return item{}, fmt.Errorf("line %d: position requires a name", lineNo)
		}
		return item{kind: itemPositionRef, name: rest, line: lineNo}, nil
	case "int":
		n, ok := new(big.Int).SetString(rest, 10)
		if !ok {
			return item{}, fmt.Errorf("line %d: malformed integer literal %q", lineNo, rest)
		}
		return item{kind: itemInstr, instr: bytecode.IntInstr(n), line: lineNo}, nil
	case "str":
		s, err := parseStringLiteral(rest)
		if err != nil {
			return item{}, fmt.Errorf("line %d: %s", lineNo, err)
		}
		return item{kind: itemInstr, instr: bytecode.StrInstr(s), line: lineNo}, nil
	case "var":
		if rest == "" {
			return item{}, fmt.Errorf("line %d: var requires a variable name", lineNo)
		}
		return item{kind: itemInstr, instr: bytecode.VarInstr(rest), line: lineNo}, nil
	case "printunification":
		if rest == "" {
			return item{}, fmt.Errorf("line %d: printunification requires a variable name", lineNo)
		}
		return item{kind: itemInstr, instr: bytecode.PrintUnificationInstr(rest), line: lineNo}, nil
	default:
		op, ok := bytecode.Lookup(mnemonic)
		if !ok {
			return item{}, fmt.Errorf("line %d: unknown opcode %q", lineNo, mnemonic)
		}
		if op.HasOperand() {
			return item{}, fmt.Errorf("line %d: %q requires an operand", lineNo, mnemonic)
		}
		return item{kind: itemInstr, instr: bytecode.Simple(op), line: lineNo}, nil
	}
}

func parseStringLiteral(rest string) (string, error) {
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", fmt.Errorf("malformed string literal %q", rest)
	}
	return value.Unescape(rest[1 : len(rest)-1]), nil
}

func resolvePositions(items []item) (map[string]int, error) {
	positions := make(map[string]int)
	var errs *multierror.Error

	idx := 0
	for _, it := range items {
		switch it.kind {
		case itemLabelDecl:
			if _, dup := positions[it.name]; dup {
				errs = multierror.Append(errs, fmt.Errorf("line %d: label %q redefined", it.line, it.name))
				continue
			}
			positions[it.name] = idx
		default:
			idx++
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return positions, nil
}

func emit(items []item, positions map[string]int) ([]bytecode.Instr, error) {
	var prog []bytecode.Instr
	var errs *multierror.Error

	for _, it := range items {
		switch it.kind {
		case itemLabelDecl:
			continue
		case itemPositionRef:
			idx, ok := positions[it.name]
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("line %d: undefined position %q", it.line, it.name))
				continue
			}
			prog = append(prog, bytecode.IntInstr(big.NewInt(int64(idx))))
		default:
			prog = append(prog, it.instr)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return prog, nil
}
