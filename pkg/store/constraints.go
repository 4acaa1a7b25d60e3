package store

import (
	"github.com/kristofer/tarski/pkg/errs"
	"github.com/kristofer/tarski/pkg/value"
)

// accessUnified returns the Record for name, creating an empty one and
// registering it in the store if this is the first time name has been
// touched. Every constraint-recording path goes through this so a
// variable with zero recorded constraints is still indistinguishable
// from one that was never mentioned, except that it now has an entry.
func (e *Environment) accessUnified(name string) *Record {
	rec, ok := e.vars[name]
	if !ok {
		rec = NewRecord()
		e.vars[name] = rec
	}
	return rec
}

// getUnified returns the Record for name without creating one.
func (e *Environment) getUnified(name string) (*Record, bool) {
	rec, ok := e.vars[name]
	return rec, ok
}

// VarValue follows name's var-unify closure breadth-first and returns
// the first ground value it finds recorded against any variable in
// that closure. It is how a variable that has only ever been unified
// with other variables, one of which was in turn unified with a
// value, resolves to that value.
func (e *Environment) VarValue(name string) (value.Value, bool) {
	visited := map[string]struct{}{}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		rec, ok := e.getUnified(cur)
		if !ok {
			continue
		}
		if rec.ValueUnify != nil {
			return *rec.ValueUnify, true
		}
		for next := range rec.VarUnify {
			if _, seen := visited[next]; !seen {
				queue = append(queue, next)
			}
		}
	}
	return value.Value{}, false
}

// closure returns the set of variables transitively reachable from
// name via recorded var-unify edges, including name itself.
func (e *Environment) closure(name string) map[string]struct{} {
	visited := map[string]struct{}{name: {}}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		rec, ok := e.getUnified(cur)
		if !ok {
			continue
		}
		for next := range rec.VarUnify {
			if _, seen := visited[next]; !seen {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// IsUnified reports whether v1 and v2 are known to denote the same
// value: either they're the same name, or connected by a chain of
// direct var-unify edges.
func (e *Environment) IsUnified(v1, v2 string) bool {
	if v1 == v2 {
		return true
	}
	_, reached := e.closure(v1)[v2]
	return reached
}

// IsDisunified reports whether v1 and v2 are known to denote different
// values: some variable in v1's unify-closure carries a direct
// var-disunify edge to some variable in v2's unify-closure.
func (e *Environment) IsDisunified(v1, v2 string) bool {
	c1 := e.closure(v1)
	c2 := e.closure(v2)
	for a := range c1 {
		rec, ok := e.getUnified(a)
		if !ok {
			continue
		}
		for b := range rec.VarDisunify {
			if _, in := c2[b]; in {
				return true
			}
		}
	}
	return false
}

// IsUnifiedValue reports whether name is known to be unified with val.
// It walks name's unify-closure breadth-first and decides based on the
// first record it reaches that carries any recorded value-unify
// constraint at all — it does not keep searching the rest of the
// closure for a better match, matching the constraint engine's
// original short-circuiting behaviour.
func (e *Environment) IsUnifiedValue(name string, val value.Value) bool {
	visited := map[string]struct{}{}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		rec, ok := e.getUnified(cur)
		if !ok {
			continue
		}
		if rec.ValueUnify != nil {
			return rec.ValueUnify.Equal(val)
		}
		for next := range rec.VarUnify {
			if _, seen := visited[next]; !seen {
				queue = append(queue, next)
			}
		}
	}
	return false
}

// IsDisunifiedValue reports whether name is known to be disunified
// from val: some variable in name's unify-closure lists val among its
// value-disunify constraints, or is bound to a value other than val.
func (e *Environment) IsDisunifiedValue(name string, val value.Value) bool {
	visited := map[string]struct{}{}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		rec, ok := e.getUnified(cur)
		if !ok {
			continue
		}
		for _, v := range rec.ValueDisunify {
			if v.Equal(val) {
				return true
			}
		}
		if rec.ValueUnify != nil && !rec.ValueUnify.Equal(val) {
			return true
		}
		for next := range rec.VarUnify {
			if _, seen := visited[next]; !seen {
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Unify pops the top two items of the operand stack and records that
// they denote the same value, per SPEC_FULL.md §4.D. Unifying two
// functors requires an exact arity match; a mismatch is a
// UnifyConflict, not a silent partial unification.
func (e *Environment) Unify() error {
	b, err := e.Pop()
	if err != nil {
		return err
	}
	a, err := e.Pop()
	if err != nil {
		return err
	}
	return e.unifyItems(a, b)
}

func (e *Environment) unifyItems(a, b value.StackItem) error {
	switch {
	case a.IsVariable() && b.IsVariable():
		return e.unifyVars(a.Var, b.Var)
	case a.IsVariable() && b.IsValue():
		return e.unifyVarValue(a.Var, b.Val)
	case a.IsValue() && b.IsVariable():
		return e.unifyVarValue(b.Var, a.Val)
	default:
		return e.unifyValues(a.Val, b.Val)
	}
}

func (e *Environment) unifyVars(v1, v2 string) error {
	if v1 == v2 {
		return nil
	}
	if e.IsDisunified(v1, v2) {
		return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s: already disunified", v1, v2)
	}
	e.accessUnified(v1)
	e.accessUnified(v2)
	val1, ok1 := e.VarValue(v1)
	val2, ok2 := e.VarValue(v2)
	switch {
	case ok1 && ok2:
		if err := e.unifyValues(val1, val2); err != nil {
			return err
		}
		if val1.IsFunctor() {
			return nil
		}
	case ok1 && e.IsDisunifiedValue(v2, val1):
		return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s: already disunified", v2, val1.String())
	case ok2 && e.IsDisunifiedValue(v1, val2):
		return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s: already disunified", v1, val2.String())
	}
	e.accessUnified(v1).AddVarUnify(v2)
	e.accessUnified(v2).AddVarUnify(v1)
	return nil
}

func (e *Environment) unifyVarValue(v string, val value.Value) error {
	if existing, ok := e.VarValue(v); ok {
		return e.unifyValues(existing, val)
	}
	if e.IsDisunifiedValue(v, val) {
		return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s: already disunified", v, val.String())
	}
	e.accessUnified(v).SetValueUnify(val)
	return nil
}

func (e *Environment) unifyValues(a, b value.Value) error {
	if a.Kind != b.Kind {
		return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s", a.String(), b.String())
	}
	switch a.Kind {
	case value.KindInt:
		if a.Int.Cmp(b.Int) != 0 {
			return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s", a.String(), b.String())
		}
		return nil
	case value.KindString:
		if a.String != b.String {
			return errs.New(errs.KindUnifyConflict, "cannot unify %q with %q", a.String, b.String)
		}
		return nil
	default: // KindFunctor
		if a.Name != b.Name {
			return errs.New(errs.KindUnifyConflict, "cannot unify %s with %s", a.String(), b.String())
		}
		return e.unifyFunctorArgs(a, b)
	}
}

func (e *Environment) unifyFunctorArgs(a, b value.Value) error {
	if len(a.Args) != len(b.Args) {
		return errs.New(errs.KindUnifyConflict, "arity mismatch: %s/%d vs %s/%d", a.Name, len(a.Args), b.Name, len(b.Args))
	}
	for i := range a.Args {
		if err := e.unifyItems(a.Args[i], b.Args[i]); err != nil {
			return err
		}
	}
	return nil
}

// Disunify pops the top two items of the operand stack and records
// that they denote different values, per SPEC_FULL.md §4.D. Unlike
// Unify, disunifying functors uses a shorter-zip rule with no arity
// check: arguments are compared pairwise up to the shorter argument
// list, and any remaining unmatched arguments on the longer side are
// vacuously disunified, since a functor is trivially distinguishable
// from anything with a different arity or name.
func (e *Environment) Disunify() error {
	b, err := e.Pop()
	if err != nil {
		return err
	}
	a, err := e.Pop()
	if err != nil {
		return err
	}
	return e.disunifyItems(a, b)
}

func (e *Environment) disunifyItems(a, b value.StackItem) error {
	switch {
	case a.IsVariable() && b.IsVariable():
		if a.Var == b.Var {
			return errs.New(errs.KindDisunifyConflict, "cannot disunify %s from itself", a.Var)
		}
		return e.disunifyVars(a.Var, b.Var)
	case a.IsVariable() && b.IsValue():
		return e.disunifyVarValue(a.Var, b.Val)
	case a.IsValue() && b.IsVariable():
		return e.disunifyVarValue(b.Var, a.Val)
	default:
		return e.disunifyValues(a.Val, b.Val)
	}
}

func (e *Environment) disunifyVars(v1, v2 string) error {
	if e.IsUnified(v1, v2) {
		return errs.New(errs.KindDisunifyConflict, "cannot disunify %s from %s: already unified", v1, v2)
	}
	e.accessUnified(v1)
	e.accessUnified(v2)
	val1, ok1 := e.VarValue(v1)
	val2, ok2 := e.VarValue(v2)
	if ok1 && ok2 {
		return e.disunifyValues(val1, val2)
	}
	e.accessUnified(v1).AddVarDisunify(v2)
	e.accessUnified(v2).AddVarDisunify(v1)
	return nil
}

func (e *Environment) disunifyVarValue(v string, val value.Value) error {
	if e.IsUnifiedValue(v, val) {
		return errs.New(errs.KindDisunifyConflict, "cannot disunify %s from %s: already unified", v, val.String())
	}
	if existing, ok := e.VarValue(v); ok {
		return e.disunifyValues(existing, val)
	}
	e.accessUnified(v).AddValueDisunify(val)
	return nil
}

func (e *Environment) disunifyValues(a, b value.Value) error {
	if a.Kind != b.Kind {
		return nil
	}
	switch a.Kind {
	case value.KindInt:
		if a.Int.Cmp(b.Int) == 0 {
			return errs.New(errs.KindDisunifyConflict, "cannot disunify %s from %s", a.String(), b.String())
		}
		return nil
	case value.KindString:
		if a.String == b.String {
			return errs.New(errs.KindDisunifyConflict, "cannot disunify %q from %q", a.String, b.String)
		}
		return nil
	default: // KindFunctor
		if a.Name != b.Name {
			return nil
		}
		return e.disunifyFunctorArgsShorterZip(a, b)
	}
}

func (e *Environment) disunifyFunctorArgsShorterZip(a, b value.Value) error {
	n := len(a.Args)
	if len(b.Args) < n {
		n = len(b.Args)
	}
	for i := 0; i < n; i++ {
		if err := e.disunifyItems(a.Args[i], b.Args[i]); err != nil {
			return err
		}
	}
	return nil
}
