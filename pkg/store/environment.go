package store

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/kristofer/tarski/pkg/errs"
	"github.com/kristofer/tarski/pkg/value"
)

// choicepoint is the VM's single backtracking slot: a saved resume
// program counter plus a full snapshot of the Environment taken at the
// moment the choicepoint was set. Only one choicepoint is live at a
// time, but the snapshot carries whatever choicepoint was pending when
// it was taken, so setting a new one chains the old one behind it and
// a Backtrack makes the old one live again.
type choicepoint struct {
	resumePC int
	snapshot *Environment
}

// Environment is the constraint store threaded through a running
// program: the operand stack, the variable constraint map, the pending
// choicepoint, and the fresh-variable counter. It is deliberately the
// one mutable piece of state the interpreter carries — every method on
// it either mutates it in place or reports an *errs.Error describing
// why it couldn't.
type Environment struct {
	stack        []value.StackItem
	vars         map[string]*Record
	cp           *choicepoint
	freshCounter uint64

	// Out receives the textual output of print/printstack/
	// printunification. Defaults to io.Discard so tests don't need a
	// writer; cmd/tarski wires it to os.Stdout.
	Out io.Writer
}

// New returns an empty Environment. out may be nil, in which case
// output-producing instructions are silently discarded.
func New(out io.Writer) *Environment {
	if out == nil {
		out = io.Discard
	}
	return &Environment{
		vars: make(map[string]*Record),
		Out:  out,
	}
}

// Len reports the number of items currently on the operand stack.
func (e *Environment) Len() int { return len(e.stack) }

// Items returns a copy of the operand stack, bottom first, for
// diagnostic display; callers must not rely on it reflecting later
// mutation of the Environment.
func (e *Environment) Items() []value.StackItem {
	return append([]value.StackItem{}, e.stack...)
}

// VarNames returns the names of every variable with a constraint
// record, sorted, for diagnostic display.
func (e *Environment) VarNames() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Push places item on top of the operand stack.
func (e *Environment) Push(item value.StackItem) {
	e.stack = append(e.stack, item)
}

// Pop removes and returns the top of the operand stack.
func (e *Environment) Pop() (value.StackItem, error) {
	if len(e.stack) == 0 {
		return value.StackItem{}, errs.New(errs.KindEmptyStack, "pop: no items on stack")
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return top, nil
}

// Peek returns the top of the operand stack without removing it.
func (e *Environment) Peek() (value.StackItem, error) {
	if len(e.stack) == 0 {
		return value.StackItem{}, errs.New(errs.KindEmptyStack, "peek: no items on stack")
	}
	return e.stack[len(e.stack)-1], nil
}

// Dup duplicates the top of the operand stack: (a -- a a).
func (e *Environment) Dup() error {
	top, err := e.Peek()
	if err != nil {
		return errors.Wrap(err, "dup")
	}
	e.Push(top)
	return nil
}

// Swap exchanges the top two items: (a b -- b a).
func (e *Environment) Swap() error {
	b, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "swap")
	}
	a, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "swap")
	}
	e.Push(b)
	e.Push(a)
	return nil
}

// Over duplicates the second item onto the top: (a b -- a b a).
func (e *Environment) Over() error {
	b, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "over")
	}
	a, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "over")
	}
	e.Push(a)
	e.Push(b)
	e.Push(a)
	return nil
}

// Rot rotates the top three items, moving the top one to the bottom of
// the three: (a b c -- c a b).
func (e *Environment) Rot() error {
	c, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "rot")
	}
	b, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "rot")
	}
	a, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "rot")
	}
	e.Push(c)
	e.Push(a)
	e.Push(b)
	return nil
}

// NameOf pops a functor (or a variable bound to one) and pushes its
// name as a string value: (f(...) -- "f"). Popping anything but a
// functor is a type error.
func (e *Environment) NameOf() error {
	item, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "nameof")
	}
	v, err := e.resolveValue(item)
	if err != nil {
		return err
	}
	if !v.IsFunctor() {
		return errs.New(errs.KindTypeMismatch, "nameof: top of stack is not a functor")
	}
	e.Push(value.Item(value.Str(v.Name)))
	return nil
}

// Fresh pushes a reference to a new logic variable named T_<k>, where k
// is the fresh counter before the call, and then increments the
// counter. The counter is part of a choicepoint snapshot, so a branch
// re-run after a backtrack gets the same names again.
func (e *Environment) Fresh() string {
	name := fmt.Sprintf("T_%d", e.freshCounter)
	e.freshCounter++
	e.Push(value.Variable(name))
	return name
}

// Destroy clears every constraint record from the store, leaving the
// variable map empty. The operand stack is left untouched — this is the
// VM's only explicit memory reclamation operation; nothing does it
// automatically.
func (e *Environment) Destroy() error {
	e.vars = make(map[string]*Record)
	return nil
}

// popInt pops the top of the stack and resolves it to an integer:
// directly if it's already an integer value, or by following its
// variable binding (via VarValue) if it's a variable. Anything else —
// an unbound variable, a string, a functor — is an error.
func (e *Environment) popInt() (*big.Int, error) {
	item, err := e.Pop()
	if err != nil {
		return nil, errors.Wrap(err, "pop int")
	}
	v, err := e.resolveValue(item)
	if err != nil {
		return nil, err
	}
	if !v.IsInt() {
		return nil, errs.New(errs.KindTypeMismatch, "expected integer, got %s", v.String())
	}
	return v.Int, nil
}

// PopInt pops the top of the stack and resolves it to an integer, the
// same way every arithmetic instruction does. Exported for the
// interpreter's `goto`/`gotochoice`, which need a target index.
func (e *Environment) PopInt() (*big.Int, error) {
	return e.popInt()
}

// PopIndex pops an integer and checks it is representable as a
// non-negative machine int. Exported for the same reason as PopInt.
func (e *Environment) PopIndex() (int, error) {
	return e.popIndex()
}

// popIndex pops an integer and checks it is representable as a
// non-negative machine int, for use as a count or an index.
func (e *Environment) popIndex() (int, error) {
	n, err := e.popInt()
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 {
		return 0, errs.New(errs.KindIndexOutOfRange, "index %s is negative", n.String())
	}
	if !n.IsInt64() || n.Int64() > int64(^uint(0)>>1) {
		return 0, errs.New(errs.KindIndexOutOfRange, "index %s is out of range", n.String())
	}
	return int(n.Int64()), nil
}

// resolveValue returns the ground Value an item denotes: itself if
// it's already a value, or the value its variable resolves to
// (transitively, via VarValue) if it's a variable.
func (e *Environment) resolveValue(item value.StackItem) (value.Value, error) {
	if item.IsValue() {
		return item.Val, nil
	}
	v, ok := e.VarValue(item.Var)
	if !ok {
		return value.Value{}, errs.New(errs.KindUnboundVariable, "variable %s is not bound to a value", item.Var)
	}
	return v, nil
}

// arith applies op to the two popped integer operands, in the
// convention the whole instruction set shares: the first popped value
// is the right-hand operand, the second popped is the left-hand one,
// so `sub`/`div`/`pow` compute left-hand OP right-hand.
func (e *Environment) arith(name string, op func(lhs, rhs *big.Int) (*big.Int, error)) error {
	rhs, err := e.popInt()
	if err != nil {
		return errors.Wrap(err, name)
	}
	lhs, err := e.popInt()
	if err != nil {
		return errors.Wrap(err, name)
	}
	result, err := op(lhs, rhs)
	if err != nil {
		return err
	}
	e.Push(value.Item(value.Int(result)))
	return nil
}

// Add computes left + right: (a b -- a+b).
func (e *Environment) Add() error {
	return e.arith("add", func(l, r *big.Int) (*big.Int, error) {
		return new(big.Int).Add(l, r), nil
	})
}

// Sub computes left - right: (a b -- a-b).
func (e *Environment) Sub() error {
	return e.arith("sub", func(l, r *big.Int) (*big.Int, error) {
		return new(big.Int).Sub(l, r), nil
	})
}

// Mul computes left * right: (a b -- a*b).
func (e *Environment) Mul() error {
	return e.arith("mul", func(l, r *big.Int) (*big.Int, error) {
		return new(big.Int).Mul(l, r), nil
	})
}

// Div computes the truncating integer division left / right:
// (a b -- a/b). Dividing by zero is an ArithDomain error.
func (e *Environment) Div() error {
	return e.arith("div", func(l, r *big.Int) (*big.Int, error) {
		if r.Sign() == 0 {
			return nil, errs.New(errs.KindArithDomain, "division by zero")
		}
		return new(big.Int).Quo(l, r), nil
	})
}

// Pow computes left ** right: (base exp -- base^exp). A negative
// exponent is an ArithDomain error — this VM has no rational type to
// hold the result.
func (e *Environment) Pow() error {
	exp, err := e.popInt()
	if err != nil {
		return errors.Wrap(err, "pow")
	}
	base, err := e.popInt()
	if err != nil {
		return errors.Wrap(err, "pow")
	}
	if exp.Sign() < 0 {
		return errs.New(errs.KindArithDomain, "negative exponent %s", exp.String())
	}
	result := new(big.Int).Exp(base, exp, nil)
	e.Push(value.Item(value.Int(result)))
	return nil
}

// cmp pops two integers and asserts cmp(left, right) holds, per the
// shared left/right convention; if it doesn't, the instruction fails
// with a ComparisonFailed error rather than pushing a boolean — in this
// VM, comparisons are guards, not predicates that produce a value.
func (e *Environment) cmp(name string, ok func(c int) bool) error {
	rhs, err := e.popInt()
	if err != nil {
		return errors.Wrap(err, name)
	}
	lhs, err := e.popInt()
	if err != nil {
		return errors.Wrap(err, name)
	}
	if !ok(lhs.Cmp(rhs)) {
		return errs.New(errs.KindComparisonFailed, "%s: %s %s %s does not hold", name, lhs, name, rhs)
	}
	return nil
}

// Lt asserts left < right.
func (e *Environment) Lt() error { return e.cmp("lt", func(c int) bool { return c < 0 }) }

// Gt asserts left > right.
func (e *Environment) Gt() error { return e.cmp("gt", func(c int) bool { return c > 0 }) }

// Lte asserts left <= right.
func (e *Environment) Lte() error { return e.cmp("lte", func(c int) bool { return c <= 0 }) }

// Gte asserts left >= right.
func (e *Environment) Gte() error { return e.cmp("gte", func(c int) bool { return c >= 0 }) }

// MakeFunctor pops a name, then a count, then that many items (in the
// order they come off the stack — topmost popped becomes Args[0], it
// is not reversed back into push order), and pushes the resulting
// functor value.
func (e *Environment) MakeFunctor() error {
	nameItem, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "functor")
	}
	nameVal, err := e.resolveValue(nameItem)
	if err != nil {
		return err
	}
	if !nameVal.IsString() {
		return errs.New(errs.KindTypeMismatch, "functor: name is not a string")
	}
	n, err := e.popIndex()
	if err != nil {
		return errors.Wrap(err, "functor")
	}
	args := make([]value.StackItem, n)
	for i := 0; i < n; i++ {
		item, err := e.Pop()
		if err != nil {
			return errors.Wrap(err, "functor")
		}
		args[i] = item
	}
	e.Push(value.Item(value.Functor(nameVal.String, args)))
	return nil
}

// Project pops an index, then a functor value, and pushes the
// functor's argument at that index. An out-of-range index or a
// non-functor top of stack is an error.
func (e *Environment) Project() error {
	idx, err := e.popIndex()
	if err != nil {
		return errors.Wrap(err, "project")
	}
	item, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "project")
	}
	v, err := e.resolveValue(item)
	if err != nil {
		return err
	}
	if !v.IsFunctor() {
		return errs.New(errs.KindTypeMismatch, "project: top of stack is not a functor")
	}
	if idx >= len(v.Args) {
		return errs.New(errs.KindIndexOutOfRange, "project: index %d out of range for %s/%d", idx, v.Name, len(v.Args))
	}
	e.Push(v.Args[idx])
	return nil
}

// Print pops the top of the operand stack and writes its rendering to
// Out with no trailing newline. A variable is resolved through the
// store first: it prints as its bound value if it has one, otherwise
// as its name.
func (e *Environment) Print() error {
	top, err := e.Pop()
	if err != nil {
		return errors.Wrap(err, "print")
	}
	if top.IsVariable() {
		if v, ok := e.VarValue(top.Var); ok {
			top = value.Item(v)
		}
	}
	fmt.Fprint(e.Out, top.String())
	return nil
}

// PrintStack renders the entire operand stack to Out, top first.
func (e *Environment) PrintStack() {
	fmt.Fprintln(e.Out, "--- stack ---")
	for i := len(e.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(e.Out, "%d: %s\n", len(e.stack)-1-i, e.stack[i].String())
	}
}

// PrintUnification renders the constraint record for the named
// variable to Out.
func (e *Environment) PrintUnification(name string) {
	rec, ok := e.vars[name]
	if !ok {
		fmt.Fprintf(e.Out, "%s: no constraints\n", name)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", name)
	for v := range rec.VarUnify {
		fmt.Fprintf(&b, "  = %s\n", v)
	}
	for v := range rec.VarDisunify {
		fmt.Fprintf(&b, "  != %s\n", v)
	}
	if rec.ValueUnify != nil {
		fmt.Fprintf(&b, "  = %s\n", rec.ValueUnify.String())
	}
	for _, v := range rec.ValueDisunify {
		fmt.Fprintf(&b, "  != %s\n", v.String())
	}
	fmt.Fprint(e.Out, b.String())
}

// SetChoicepoint snapshots the current Environment and records
// resumePC as where execution should continue from if this
// choicepoint is later invoked by a failure. The new choicepoint
// becomes the live one; the previously pending one is kept inside the
// snapshot and becomes live again after a Backtrack.
func (e *Environment) SetChoicepoint(resumePC int) {
	e.cp = &choicepoint{resumePC: resumePC, snapshot: e.clone()}
}

// HasChoicepoint reports whether a choicepoint is currently pending.
func (e *Environment) HasChoicepoint() bool { return e.cp != nil }

// Backtrack restores the Environment to the state captured by the
// pending choicepoint and consumes it (clearing the slot), returning
// the resume program counter. ok is false if no choicepoint was
// pending, in which case the Environment is left untouched.
func (e *Environment) Backtrack() (resumePC int, ok bool) {
	if e.cp == nil {
		return 0, false
	}
	snap := e.cp.snapshot
	e.stack = snap.stack
	e.vars = snap.vars
	e.freshCounter = snap.freshCounter
	resumePC = e.cp.resumePC
	e.cp = snap.cp
	return resumePC, true
}

// clone returns a deep copy of e, used both by SetChoicepoint and
// (recursively) to copy an Environment that itself already carries a
// pending choicepoint.
func (e *Environment) clone() *Environment {
	cp := &Environment{
		stack:        append([]value.StackItem{}, e.stack...),
		vars:         make(map[string]*Record, len(e.vars)),
		freshCounter: e.freshCounter,
		Out:          e.Out,
	}
	for k, v := range e.vars {
		cp.vars[k] = v.clone()
	}
	if e.cp != nil {
		cp.cp = &choicepoint{resumePC: e.cp.resumePC, snapshot: e.cp.snapshot.clone()}
	}
	return cp
}
