// Package vm - error annotation.
package vm

import (
	"github.com/pkg/errors"

	"github.com/kristofer/tarski/pkg/errs"
)

// annotate attaches the program counter and the offending instruction
// text to err, if err carries an *errs.Error underneath (it always
// should, for anything raised by the store or by step itself). A
// Backtrack that consumes this error's choicepoint throws the
// annotation away along with everything else about the failed
// attempt; only the error that finally escapes Run keeps a trace, and
// that trace accumulates one frame per VM that wrapped it, innermost
// (deepest call) last.
func annotate(err error, pc int, instrText string) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return e.WithFrame(pc, instrText)
	}
	return err
}
