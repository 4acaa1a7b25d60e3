// Package store implements the constraint store the VM threads through
// a program: the operand stack, the variable-to-constraint map, the
// single-slot choicepoint, and the transitive unify/disunify queries
// defined over that map.
package store

import "github.com/kristofer/tarski/pkg/value"

// Record is the set of constraints recorded against a single logic
// variable, per SPEC_FULL.md §3: which other variables it has been
// unified or disunified with directly, and which value (if any) it has
// been unified or disunified with directly. Transitive consequences
// are not stored here — they are computed on demand by the queries in
// constraints.go.
//
// A zero Record denotes a variable with no constraints at all yet and
// can be read, but AddVarUnify and AddVarDisunify need the maps that
// NewRecord allocates.
type Record struct {
	VarUnify      map[string]struct{}
	VarDisunify   map[string]struct{}
	ValueUnify    *value.Value
	ValueDisunify []value.Value
}

// NewRecord returns an empty Record ready for use.
func NewRecord() *Record {
	return &Record{
		VarUnify:    make(map[string]struct{}),
		VarDisunify: make(map[string]struct{}),
	}
}

// AddVarUnify records a direct var-var unification edge to other.
func (r *Record) AddVarUnify(other string) {
	r.VarUnify[other] = struct{}{}
}

// AddVarDisunify records a direct var-var disunification edge to other.
func (r *Record) AddVarDisunify(other string) {
	r.VarDisunify[other] = struct{}{}
}

// SetValueUnify records a direct var-value unification. It overwrites
// any previously recorded value, matching the original's last-write
// semantics — the VM never calls this more than once per variable in
// practice, since a bound variable is resolved through before being
// unified again.
func (r *Record) SetValueUnify(v value.Value) {
	cp := v
	r.ValueUnify = &cp
}

// AddValueDisunify appends a direct var-value disunification.
func (r *Record) AddValueDisunify(v value.Value) {
	r.ValueDisunify = append(r.ValueDisunify, v)
}

// clone returns a deep copy of r, used when the environment snapshots
// itself into a choicepoint.
func (r *Record) clone() *Record {
	cp := &Record{
		VarUnify:    make(map[string]struct{}, len(r.VarUnify)),
		VarDisunify: make(map[string]struct{}, len(r.VarDisunify)),
	}
	for k := range r.VarUnify {
		cp.VarUnify[k] = struct{}{}
	}
	for k := range r.VarDisunify {
		cp.VarDisunify[k] = struct{}{}
	}
	if r.ValueUnify != nil {
		v := *r.ValueUnify
		cp.ValueUnify = &v
	}
	if len(r.ValueDisunify) > 0 {
		cp.ValueDisunify = append([]value.Value{}, r.ValueDisunify...)
	}
	return cp
}
