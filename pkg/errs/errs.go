// Package errs defines the single error type shared by every layer of
// the VM (store, interpreter, assembler, macro expander), per
// SPEC_FULL.md §7: one concrete error kind carrying a message, an
// optional wrapped cause, and (for runtime errors) a captured call
// stack trace.
package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is one of the conceptual sub-kinds from SPEC_FULL.md §7. It
// exists for tests and callers that want to branch on the failure
// category without string-matching messages; it carries no behaviour
// of its own.
type Kind int

const (
	// KindOther covers causes that don't fit a more specific bucket
	// (e.g. malformed input from outside the VM proper).
	KindOther Kind = iota
	// KindEmptyStack is returned by pop on an empty operand stack.
	KindEmptyStack
	// KindTypeMismatch is returned when an operation needed an
	// integer/string/functor and found something else.
	KindTypeMismatch
	// KindIndexOutOfRange is returned by pop_index/project on a bad index.
	KindIndexOutOfRange
	// KindUnifyConflict is returned when unify is blocked.
	KindUnifyConflict
	// KindDisunifyConflict is returned when disunify is blocked.
	KindDisunifyConflict
	// KindArithDomain is returned for negative pow exponents and
	// division by zero.
	KindArithDomain
	// KindComparisonFailed is returned when lt/gt/lte/gte doesn't hold.
	KindComparisonFailed
	// KindUserFail is returned by the `fail` instruction.
	KindUserFail
	// KindUnboundVariable is returned when pop_int/print needed a
	// bound value and found none.
	KindUnboundVariable
	// KindParseError is returned by the assembler/macro expander.
	KindParseError
)

func (k Kind) String() string {
	switch k {
	case KindEmptyStack:
		return "EmptyStack"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindIndexOutOfRange:
		return "IndexOutOfRange"
	case KindUnifyConflict:
		return "UnifyConflict"
	case KindDisunifyConflict:
		return "DisunifyConflict"
	case KindArithDomain:
		return "ArithDomain"
	case KindComparisonFailed:
		return "ComparisonFailed"
	case KindUserFail:
		return "UserFail"
	case KindUnboundVariable:
		return "UnboundVariable"
	case KindParseError:
		return "ParseError"
	default:
		return "Other"
	}
}

// Frame is one entry of a captured call/instruction trace, recorded at
// the point a Error was raised. It mirrors the teacher's
// pkg/vm.StackFrame, trimmed to what this VM actually has: there are
// no call frames or message selectors, only a program counter and an
// optional description of what was being attempted.
type Frame struct {
	PC   int
	Note string
}

// Error is the VM's single error type. Message is always set; Kind
// classifies it; Trace is populated by the interpreter as the error
// unwinds (empty for errors raised directly by the assembler/macro
// expander, which have no program counter yet).
type Error struct {
	Kind    Kind
	Message string
	Trace   []Frame
	cause   error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and an additional message to an existing error,
// preserving it as the cause so errors.Cause/errors.Is keep working.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.Wrap(cause, ""),
	}
}

// Error implements the error interface, rendering the message plus,
// when present, a "  at pc=N: note" trace line per frame, innermost
// first.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.Trace) - 1; i >= 0; i-- {
		f := e.Trace[i]
		fmt.Fprintf(&b, "\n  at pc=%d", f.PC)
		if f.Note != "" {
			fmt.Fprintf(&b, ": %s", f.Note)
		}
	}
	return b.String()
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e.cause == nil {
		return nil
	}
	return errors.Cause(e.cause)
}

// WithFrame returns a copy of e with an additional trace frame
// appended. Used by the interpreter to annotate an error with the
// program counter it was executing when the error surfaced.
func (e *Error) WithFrame(pc int, note string) *Error {
	cp := *e
	cp.Trace = append(append([]Frame{}, e.Trace...), Frame{PC: pc, Note: note})
	return &cp
}

// Is reports whether err is an *Error of the given kind, unwrapping
// plain wrapped errors along the way.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
