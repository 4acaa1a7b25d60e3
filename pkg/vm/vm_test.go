package vm

import (
	"math/big"
	"strings"
	"testing"

	"github.com/kristofer/tarski/pkg/bytecode"
	"github.com/kristofer/tarski/pkg/errs"
	"github.com/kristofer/tarski/pkg/store"
)

func run(t *testing.T, program []bytecode.Instr) (*VM, error) {
	t.Helper()
	env := store.New(nil)
	machine := New(program, env, nil)
	return machine, machine.Run()
}

func TestVMArithmeticProgram(t *testing.T) {
	program := []bytecode.Instr{
		bytecode.IntInstr(big.NewInt(1)),
		bytecode.IntInstr(big.NewInt(2)),
		bytecode.Simple(bytecode.OpAdd),
	}
	machine, err := run(t, program)
	if err != nil {
		t.Fatalf("VM error: %v", err)
	}
	top, err := machine.Env.Pop()
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if top.Val.String() != "3" {
		t.Errorf("expected 3, got %s", top.Val.String())
	}
}

func TestVMGoto(t *testing.T) {
	// goto 3; int 99 (skipped); int 1
	program := []bytecode.Instr{
		bytecode.IntInstr(big.NewInt(3)),
		bytecode.Simple(bytecode.OpGoto),
		bytecode.IntInstr(big.NewInt(99)),
		bytecode.IntInstr(big.NewInt(1)),
	}
	machine, err := run(t, program)
	if err != nil {
		t.Fatalf("VM error: %v", err)
	}
	if machine.Env.Len() != 1 {
		t.Fatalf("expected exactly one item on the stack, got %d", machine.Env.Len())
	}
	top, _ := machine.Env.Pop()
	if top.Val.String() != "1" {
		t.Errorf("expected 1, got %s", top.Val.String())
	}
}

func TestVMFailWithNoChoicepointIsError(t *testing.T) {
	program := []bytecode.Instr{
		bytecode.Simple(bytecode.OpFail),
	}
	_, err := run(t, program)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.Is(err, errs.KindUserFail) {
		t.Errorf("expected KindUserFail, got %v", err)
	}
}

func TestVMGotoChoiceBacktracksOnFailure(t *testing.T) {
	// pc0-1: gotochoice pops 3 (the retry target) and installs a
	// choicepoint resuming at pc3, then falls through to pc2 on its own
	// success path — it does not jump itself.
	// pc2: fail, reached immediately via fall-through; triggers
	// backtrack to the installed choicepoint.
	// pc3: the retry path, reached only via backtrack: pushes 7 and
	// halts (pc4 == len(program)).
	program := []bytecode.Instr{
		bytecode.IntInstr(big.NewInt(3)),       // pc0: retry target for gotochoice
		bytecode.Simple(bytecode.OpGotoChoice), // pc1
		bytecode.Simple(bytecode.OpFail),       // pc2
		bytecode.IntInstr(big.NewInt(7)),       // pc3: retry path
	}
	machine, err := run(t, program)
	if err != nil {
		t.Fatalf("VM error: %v", err)
	}
	if machine.Env.Len() != 1 {
		t.Fatalf("expected exactly one item on the stack, got %d", machine.Env.Len())
	}
	top, err := machine.Env.Pop()
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if top.Val.String() != "7" {
		t.Errorf("expected 7, got %s", top.Val.String())
	}
}

func TestVMUnifyConflictPropagatesWithFrame(t *testing.T) {
	program := []bytecode.Instr{
		bytecode.IntInstr(big.NewInt(1)),
		bytecode.IntInstr(big.NewInt(2)),
		bytecode.Simple(bytecode.OpUnify),
	}
	_, err := run(t, program)
	if err == nil {
		t.Fatal("expected unify conflict")
	}
	if !errs.Is(err, errs.KindUnifyConflict) {
		t.Errorf("expected KindUnifyConflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "pc=2") {
		t.Errorf("expected error to be annotated with pc=2, got: %v", err)
	}
}

func TestVMUnifyThenQuery(t *testing.T) {
	program := []bytecode.Instr{
		bytecode.VarInstr("X"),
		bytecode.VarInstr("Y"),
		bytecode.Simple(bytecode.OpUnify),
	}
	machine, err := run(t, program)
	if err != nil {
		t.Fatalf("VM error: %v", err)
	}
	if !machine.Env.IsUnified("X", "Y") {
		t.Errorf("expected X and Y to be unified")
	}
}
