// Package vm implements the fetch-execute interpreter: the loop that
// walks a resolved instruction stream, dispatches each opcode to the
// constraint store, and rolls back to the last choicepoint on failure
// instead of propagating it, per SPEC_FULL.md §4.E.
//
// Execution trace example, for the three-instruction program
// `int 1`, `int 2`, `add`:
//
//	pc=0  int 1        stack: [1]
//	pc=1  int 2        stack: [1, 2]
//	pc=2  add          stack: [3]
//	halt (pc == len(program))
//
// A failing instruction (`fail`, a blocked `unify`, a guard like `lt`
// that doesn't hold) doesn't stop the VM by itself — Run asks the
// Environment to roll back to its last choicepoint and, if one
// existed, resumes there instead. Only a failure with no choicepoint
// left to try escapes Run as an error.
package vm

import (
	"github.com/hashicorp/go-hclog"

	"github.com/kristofer/tarski/pkg/bytecode"
	"github.com/kristofer/tarski/pkg/errs"
	"github.com/kristofer/tarski/pkg/store"
	"github.com/kristofer/tarski/pkg/value"
)

// VM couples a resolved instruction stream with the constraint store
// it operates on and a program counter. It has no notion of functions,
// call frames, or message sends — SPEC_FULL.md's VM is flat.
type VM struct {
	// Program is the instruction stream being executed. It is never
	// mutated by Run.
	Program []bytecode.Instr
	// Env is the constraint store Program operates on.
	Env *store.Environment

	pc       int
	logger   hclog.Logger
	debugger *Debugger
}

// New returns a VM ready to run program against env. A nil logger is
// replaced with hclog.NewNullLogger(), so callers that don't pass
// --debug get a VM with logging compiled in but costing nothing.
func New(program []bytecode.Instr, env *store.Environment, logger hclog.Logger) *VM {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &VM{Program: program, Env: env, logger: logger}
}

// AttachDebugger wires an interactive Debugger into the VM's fetch
// loop. Passing nil detaches whatever debugger was attached.
func (vm *VM) AttachDebugger(d *Debugger) {
	vm.debugger = d
	if d != nil {
		d.vm = vm
	}
}

// PC reports the current program counter, for the debugger's display.
func (vm *VM) PC() int { return vm.pc }

// Run executes Program from instruction 0 until the program counter
// runs past the end of the stream (a normal halt) or a failure reaches
// the top level with no choicepoint left to roll back to (an error).
func (vm *VM) Run() error {
	vm.pc = 0
	for vm.pc < len(vm.Program) {
		if vm.debugger != nil && vm.debugger.enabled {
			vm.debugger.ShouldPause()
		}

		instr := vm.Program[vm.pc]
		vm.logger.Trace("exec", "pc", vm.pc, "instr", instr.String(), "stack_depth", vm.Env.Len())

		if err := vm.step(instr); err != nil {
			resumePC, ok := vm.Env.Backtrack()
			if !ok {
				return annotate(err, vm.pc, instr.String())
			}
			vm.logger.Debug("backtrack", "failed_at", vm.pc, "resume_pc", resumePC, "cause", err)
			vm.pc = resumePC
			continue
		}
		vm.pc++
	}
	return nil
}

// step executes a single instruction. It may set vm.pc directly (only
// `goto` does — `gotochoice` only records where to jump on a future
// backtrack, it never redirects the current pc itself); Run always
// advances vm.pc by one afterwards, so a plain instruction that leaves
// vm.pc untouched naturally falls through to the next one.
func (vm *VM) step(instr bytecode.Instr) error {
	switch instr.Op {
	case bytecode.OpInt:
		vm.Env.Push(value.Item(value.Int(instr.Int)))
		return nil
	case bytecode.OpStr:
		vm.Env.Push(value.Item(value.Str(instr.Str)))
		return nil
	case bytecode.OpVar:
		vm.Env.Push(value.Variable(instr.Var))
		return nil

	case bytecode.OpGoto:
		idx, err := vm.Env.PopIndex()
		if err != nil {
			return err
		}
		vm.pc = idx - 1
		return nil
	case bytecode.OpGotoChoice:
		idx, err := vm.Env.PopIndex()
		if err != nil {
			return err
		}
		vm.Env.SetChoicepoint(idx)
		return nil
	case bytecode.OpFail:
		return errs.New(errs.KindUserFail, "fail")

	case bytecode.OpDup:
		return vm.Env.Dup()
	case bytecode.OpPop:
		_, err := vm.Env.Pop()
		return err
	case bytecode.OpSwap:
		return vm.Env.Swap()
	case bytecode.OpOver:
		return vm.Env.Over()
	case bytecode.OpRot:
		return vm.Env.Rot()
	case bytecode.OpDestroy:
		return vm.Env.Destroy()

	case bytecode.OpUnify:
		return vm.Env.Unify()
	case bytecode.OpDisunify:
		return vm.Env.Disunify()

	case bytecode.OpFunctor:
		return vm.Env.MakeFunctor()
	case bytecode.OpProject:
		return vm.Env.Project()
	case bytecode.OpNameOf:
		return vm.Env.NameOf()
	case bytecode.OpFresh:
		vm.Env.Fresh()
		return nil

	case bytecode.OpAdd:
		return vm.Env.Add()
	case bytecode.OpSub:
		return vm.Env.Sub()
	case bytecode.OpMul:
		return vm.Env.Mul()
	case bytecode.OpDiv:
		return vm.Env.Div()
	case bytecode.OpPow:
		return vm.Env.Pow()

	case bytecode.OpLt:
		return vm.Env.Lt()
	case bytecode.OpGt:
		return vm.Env.Gt()
	case bytecode.OpLte:
		return vm.Env.Lte()
	case bytecode.OpGte:
		return vm.Env.Gte()

	case bytecode.OpPrint:
		return vm.Env.Print()
	case bytecode.OpPrintStack:
		vm.Env.PrintStack()
		return nil
	case bytecode.OpPrintUnification:
		vm.Env.PrintUnification(instr.Var)
		return nil

	default:
		return errs.New(errs.KindOther, "unknown opcode %v", instr.Op)
	}
}
