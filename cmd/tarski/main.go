// Command tarski is the CLI front end for the VM: it dispatches on file
// extension, wires the macro expander, assembler, and interpreter
// together, and renders errors with colorized output.
//
// Usage:
//
//	tarski [--debug] [--compile-cache] <file>
//
// File extensions:
//
//	.menvm   macro source; expanded and printed to standard output as
//	         plain assembler text (no assembly or execution)
//	.tvmc    a pre-assembled binary instruction cache (see
//	         pkg/bytecode.Decode); loaded and run directly
//	anything else is assembler source: assembled, then run
//
// --debug turns on structured hclog tracing of every fetched
// instruction and attaches the interactive step debugger.
// --compile-cache writes a .tvmc cache alongside the source file after
// a successful assembly, so a later run of the same file can skip
// straight to loading bytecode.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"

	"github.com/kristofer/tarski/pkg/assembler"
	"github.com/kristofer/tarski/pkg/bytecode"
	"github.com/kristofer/tarski/pkg/macro"
	"github.com/kristofer/tarski/pkg/store"
	"github.com/kristofer/tarski/pkg/vm"
)

func main() {
	var debug, compileCache bool
	var path string

	for _, arg := range os.Args[1:] {
		switch arg {
		case "--debug":
			debug = true
		case "--compile-cache":
			compileCache = true
		case "-h", "--help", "help":
			printUsage()
			return
		default:
			if strings.HasPrefix(arg, "-") {
				color.Red("tarski: unrecognized flag %q", arg)
				os.Exit(1)
			}
			path = arg
		}
	}

	if path == "" {
		printUsage()
		os.Exit(1)
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".menvm":
		expandFile(path)
	case ".tvmc":
		runBytecodeFile(path, debug)
	default:
		runSourceFile(path, debug, compileCache)
	}
}

func printUsage() {
	fmt.Println("tarski - a unification-VM assembler, macro expander, and interpreter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tarski [--debug] [--compile-cache] <file>")
	fmt.Println()
	fmt.Println("File extensions:")
	fmt.Println("  .menvm   macro source; expanded and printed as assembler text")
	fmt.Println("  .tvmc    pre-assembled bytecode cache; loaded and run directly")
	fmt.Println("  *        assembler source; assembled and run")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --debug           trace every fetched instruction, attach the step debugger")
	fmt.Println("  --compile-cache   write a .tvmc cache alongside the source after assembly")
}

// expandFile macro-expands a .menvm file and prints the resulting
// assembler text to standard output. It never assembles or runs it.
func expandFile(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		color.Red("tarski: reading %s: %s", path, err)
		os.Exit(1)
	}

	ex := macro.New()
	expanded, err := ex.Expand(string(src))
	if err != nil {
		color.Red("tarski: macro expansion failed: %s", err)
		os.Exit(1)
	}

	fmt.Print(expanded)
}

// runSourceFile assembles and runs a plain assembler-syntax file,
// optionally writing a .tvmc cache of the assembled instructions
// alongside it.
func runSourceFile(path string, debug, compileCache bool) {
	src, err := os.ReadFile(path)
	if err != nil {
		color.Red("tarski: reading %s: %s", path, err)
		os.Exit(1)
	}

	logger := newLogger(debug)
	logger.Debug("assembling", "file", path)

	prog, err := assembler.Assemble(string(src))
	if err != nil {
		color.Red("tarski: assembly failed: %s", err)
		os.Exit(1)
	}

	if compileCache {
		cachePath := strings.TrimSuffix(path, filepath.Ext(path)) + ".tvmc"
		writeCache(cachePath, prog)
	}

	execute(prog, logger, debug)
}

// runBytecodeFile loads a pre-assembled .tvmc cache directly, skipping
// assembly entirely.
func runBytecodeFile(path string, debug bool) {
	f, err := os.Open(path)
	if err != nil {
		color.Red("tarski: reading %s: %s", path, err)
		os.Exit(1)
	}
	defer f.Close()

	prog, err := bytecode.Decode(f)
	if err != nil {
		color.Red("tarski: loading bytecode cache failed: %s", err)
		os.Exit(1)
	}

	execute(prog, newLogger(debug), debug)
}

func writeCache(cachePath string, prog []bytecode.Instr) {
	out, err := os.Create(cachePath)
	if err != nil {
		color.Yellow("tarski: could not write cache %s: %s", cachePath, err)
		return
	}
	defer out.Close()

	if err := bytecode.Encode(prog, out); err != nil {
		color.Yellow("tarski: could not write cache %s: %s", cachePath, err)
		return
	}
	fmt.Printf("wrote %s\n", cachePath)
}

// execute runs an assembled instruction stream to completion, printing
// any uncaught error (colorized, with its pc trace) and exiting
// nonzero on failure.
func execute(prog []bytecode.Instr, logger hclog.Logger, debug bool) {
	env := store.New(os.Stdout)
	machine := vm.New(prog, env, logger)

	if debug {
		d := vm.NewDebugger()
		d.Enable()
		machine.AttachDebugger(d)
	}

	if err := machine.Run(); err != nil {
		color.Red("tarski: %s", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) hclog.Logger {
	if !debug {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "tarski",
		Level: hclog.Trace,
	})
}
