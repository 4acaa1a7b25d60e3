// Package vm - debugger support
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Debugger provides interactive debugging capabilities for the VM,
// paused at breakpoints or single-stepped, with the program's operand
// stack and constraint store on display instead of a Smalltalk call
// stack.
type Debugger struct {
	vm          *VM          // The VM being debugged
	breakpoints map[int]bool // Instruction positions where execution should pause
	stepMode    bool         // If true, pause after each instruction
	enabled     bool         // If true, debugger is active
}

// NewDebugger creates a new debugger instance. Attach it to a VM with
// VM.AttachDebugger.
func NewDebugger() *Debugger {
	return &Debugger{
		breakpoints: make(map[int]bool),
	}
}

// Enable activates the debugger.
func (d *Debugger) Enable() { d.enabled = true }

// Disable deactivates the debugger.
func (d *Debugger) Disable() { d.enabled = false }

// SetStepMode enables or disables step mode. In step mode, execution
// pauses after each instruction.
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint adds a breakpoint at the specified instruction position.
func (d *Debugger) AddBreakpoint(pc int) { d.breakpoints[pc] = true }

// RemoveBreakpoint removes a breakpoint at the specified instruction position.
func (d *Debugger) RemoveBreakpoint(pc int) { delete(d.breakpoints, pc) }

// ClearBreakpoints removes all breakpoints.
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause checks whether execution should pause at the current
// instruction — because step mode is on or because the current
// program counter has a breakpoint — and if so, runs the interactive
// prompt right there.
func (d *Debugger) ShouldPause() {
	if !d.enabled {
		return
	}
	if d.stepMode || d.breakpoints[d.vm.PC()] {
		if !d.InteractivePrompt() {
			d.Disable()
		}
	}
}

// ShowCurrentInstruction displays the current instruction being executed.
func (d *Debugger) ShowCurrentInstruction() {
	pc := d.vm.PC()
	if pc >= len(d.vm.Program) {
		fmt.Println("No current instruction")
		return
	}
	fmt.Printf("  %4d: %s\n", pc, d.vm.Program[pc].String())
}

// ShowStack displays the current operand stack, top first.
func (d *Debugger) ShowStack() {
	items := d.vm.Env.Items()
	fmt.Println("Stack (top to bottom):")
	if len(items) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(items) - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", len(items)-1-i, items[i].String())
	}
}

// ShowVariables displays the constraint record of every variable that
// has one.
func (d *Debugger) ShowVariables() {
	names := d.vm.Env.VarNames()
	fmt.Println("Variables:")
	if len(names) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, name := range names {
		d.vm.Env.PrintUnification(name)
	}
}

// InteractivePrompt prints the paused state and reads commands from
// stdin until one of them resumes execution (continue/step/next) or
// ends it (quit). It reports whether execution should continue.
func (d *Debugger) InteractivePrompt() (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== Debugger Paused ===")
	d.ShowCurrentInstruction()

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()

		case "continue", "c":
			d.SetStepMode(false)
			return true

		case "step", "s":
			d.SetStepMode(true)
			return true

		case "next", "n":
			return true

		case "stack", "st":
			d.ShowStack()

		case "vars", "v":
			d.ShowVariables()

		case "instruction", "i":
			d.ShowCurrentInstruction()

		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <instruction_number>")
				continue
			}
			pc, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.AddBreakpoint(pc)
			fmt.Printf("Breakpoint added at instruction %d\n", pc)

		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <instruction_number>")
				continue
			}
			pc, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.RemoveBreakpoint(pc)
			fmt.Printf("Breakpoint removed at instruction %d\n", pc)

		case "list", "ls":
			d.listInstructions()

		case "quit", "q":
			return false

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

// printHelp displays available debugger commands.
func (d *Debugger) printHelp() {
	fmt.Println("Debugger Commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s              Enable step mode (pause after each instruction)")
	fmt.Println("  next, n              Execute next instruction")
	fmt.Println("  stack, st            Show operand stack")
	fmt.Println("  vars, v              Show variable constraint records")
	fmt.Println("  instruction, i       Show current instruction")
	fmt.Println("  breakpoint <n>, b    Add breakpoint at instruction n")
	fmt.Println("  delete <n>, d        Remove breakpoint at instruction n")
	fmt.Println("  list, ls             List all instructions")
	fmt.Println("  quit, q              Quit debugging (abort execution)")
}

// listInstructions displays every instruction in the program.
func (d *Debugger) listInstructions() {
	fmt.Println("Instructions:")
	for i, instr := range d.vm.Program {
		marker := "  "
		if i == d.vm.PC() {
			marker = "->"
		} else if d.breakpoints[i] {
			marker = "*"
		}
		fmt.Printf("%s %4d: %s\n", marker, i, instr.String())
	}
}
