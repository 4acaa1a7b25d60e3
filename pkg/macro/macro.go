// Package macro implements the macro expander: `macro`/`endmacro`
// definitions, `$name` invocation, scoped `call`/`endcall` blocks, and
// `quote` passthrough, all expanded to a fixed point of plain
// assembler text, per SPEC_FULL.md §4.G.
//
// Source syntax, layered on top of pkg/assembler's line syntax:
//
//	macro twice X
//	  var X
//	  var X
//	endmacro
//
//	$twice Y
//
// expands (substituting the macro's formal parameter X with the call
// site's actual argument Y) to:
//
//	var Y
//	var Y
//
// `call`/`endcall` brackets a block that should be run once as an
// isolated unit: a macro call expands into a fresh label/`goto` pair
// wrapping the block so a failure inside it can still backtrack to a
// choicepoint set before the call, without the caller having to
// hand-place labels itself:
//
//	call
//	  ... block ...
//	endcall
//
// expands to
//
//	:<fresh>
//	  ... block ...
//	:<fresh_end>
//	position <fresh_end>
//	goto
//	position <fresh>
//
// `quote` passes its body through unexpanded — it exists so a macro
// can emit literal text that looks like another macro invocation
// without that invocation actually firing. Inside a macro body, the
// macro's formal parameters are still substituted in a quote's body.
//
// Expansion runs to a fixed point: each pass rewrites every macro call
// and call/endcall block it finds one level deep, and passes repeat
// until a whole pass makes no further change, which is how a macro
// that itself invokes another macro bottoms out.
package macro

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// stmt is one parsed line of macro-aware source, before fixed-point
// expansion has resolved it down to plain assembler text.
type stmt struct {
	kind stmtKind
	text string   // kindPlain: the raw assembler line, verbatim
	name string   // kindCall: the macro name being invoked
	args []string // kindCall: the actual arguments
	body []stmt   // kindQuote, kindCallBlock: the nested statements
}

type stmtKind int

const (
	kindPlain stmtKind = iota
	kindCall
	kindQuote
	kindCallBlock
)

// def is one `macro ... endmacro` definition.
type def struct {
	params []string
	body   []stmt
}

// Expander holds macro definitions accumulated from one or more
// source texts and expands $-invocations against them.
type Expander struct {
	defs  map[string]def
	fresh int
}

// New returns an empty Expander.
func New() *Expander {
	return &Expander{defs: make(map[string]def)}
}

// Expand parses source (which may itself define new macros) and
// returns the fully expanded, macro-free assembler text: every
// `$name ...` invocation substituted and inlined, every `call`/
// `endcall` block rewritten to its position/goto expansion, and every
// `quote` block emitted as literal text, repeated to a fixed point.
func (ex *Expander) Expand(source string) (string, error) {
	stmts, err := ex.parse(source)
	if err != nil {
		return "", err
	}

	for {
		expanded, changed, err := ex.expandOnce(stmts)
		if err != nil {
			return "", err
		}
		if !changed {
			return render(expanded), nil
		}
		stmts = expanded
	}
}

// parse splits source into statements, peeling off macro definitions
// into ex.defs as it goes (a definition is consumed entirely and
// leaves no trace in the returned statement list).
func (ex *Expander) parse(source string) ([]stmt, error) {
	lines := splitLines(source)
	stmts, rest, err := ex.parseBlock(lines, "")
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected trailing input after top level: %q", rest[0])
	}
	return stmts, nil
}

// parseBlock parses lines until it sees terminator (endmacro, endcall,
// or "" for end of input), returning the parsed statements and
// whatever lines remain after the terminator.
func (ex *Expander) parseBlock(lines []string, terminator string) ([]stmt, []string, error) {
	var out []stmt
	for len(lines) > 0 {
		line := strings.TrimSpace(lines[0])
		lines = lines[1:]

		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if terminator != "" && line == terminator {
			return out, lines, nil
		}

		switch {
		case strings.HasPrefix(line, "macro "):
			name, params := parseMacroHeader(line)
			body, remaining, err := ex.parseBlock(lines, "endmacro")
			if err != nil {
				return nil, nil, errors.Wrapf(err, "macro %s", name)
			}
			ex.defs[name] = def{params: params, body: body}
			lines = remaining

		case line == "quote":
			body, remaining, err := ex.parseBlock(lines, "endquote")
			if err != nil {
				return nil, nil, errors.Wrap(err, "quote")
			}
			out = append(out, stmt{kind: kindQuote, body: body})
			lines = remaining

		case line == "call":
			body, remaining, err := ex.parseBlock(lines, "endcall")
			if err != nil {
				return nil, nil, errors.Wrap(err, "call")
			}
			out = append(out, stmt{kind: kindCallBlock, body: body})
			lines = remaining

		case strings.HasPrefix(line, "$"):
			name, args := parseInvocation(line)
			out = append(out, stmt{kind: kindCall, name: name, args: args})

		default:
			out = append(out, stmt{kind: kindPlain, text: line})
		}
	}
	if terminator != "" {
		return nil, nil, fmt.Errorf("unterminated block: expected %q", terminator)
	}
	return out, nil, nil
}

func parseMacroHeader(line string) (name string, params []string) {
	fields := strings.Fields(strings.TrimPrefix(line, "macro "))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func parseInvocation(line string) (name string, args []string) {
	fields := strings.Fields(line)
	name = strings.TrimPrefix(fields[0], "$")
	return name, fields[1:]
}

func splitLines(source string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(source))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// expandOnce rewrites every kindCall and kindCallBlock statement in
// stmts one level deep and flattens every kindQuote to plain text,
// reporting whether anything changed. It does not recurse: statements
// spliced in from a macro or call-block body are left for the next
// pass.
func (ex *Expander) expandOnce(stmts []stmt) ([]stmt, bool, error) {
	var out []stmt
	changed := false

	for _, s := range stmts {
		switch s.kind {
		case kindCall:
			d, ok := ex.defs[s.name]
			if !ok {
				return nil, false, fmt.Errorf("undefined macro %q", s.name)
			}
			if len(d.params) != len(s.args) {
				return nil, false, fmt.Errorf("macro %q expects %d argument(s), got %d", s.name, len(d.params), len(s.args))
			}
			substituted := substituteAll(d.body, d.params, s.args)
			out = append(out, substituted...)
			changed = true

		case kindCallBlock:
			start := ex.freshLabel()
			end := ex.freshLabel()
			out = append(out,
				stmt{kind: kindPlain, text: fmt.Sprintf(":%s", start)},
			)
			out = append(out, s.body...)
			out = append(out,
				stmt{kind: kindPlain, text: fmt.Sprintf(":%s", end)},
				stmt{kind: kindPlain, text: fmt.Sprintf("position %s", end)},
				stmt{kind: kindPlain, text: "goto"},
				stmt{kind: kindPlain, text: fmt.Sprintf("position %s", start)},
			)
			changed = true

		case kindQuote:
			// quote's body is emitted as literal plain text and never
			// expanded; parameter substitution, if any, already
			// happened when the enclosing macro body was inlined.
			out = append(out, flattenQuoted(s.body)...)
			changed = true

		default:
			out = append(out, s)
		}
	}

	if !changed {
		return stmts, false, nil
	}

	// a single pass may have produced new calls nested inside what a
	// macro body expanded to; let the outer loop in Expand re-scan.
	return out, true, nil
}

// flattenQuoted renders a quote block's body back to plain statements
// without ever treating a `$name` line inside it as an invocation.
func flattenQuoted(body []stmt) []stmt {
	out := make([]stmt, 0, len(body))
	for _, s := range body {
		switch s.kind {
		case kindCall:
			out = append(out, stmt{kind: kindPlain, text: renderInvocationText(s)})
		case kindQuote:
			out = append(out, flattenQuoted(s.body)...)
		case kindCallBlock:
			out = append(out, stmt{kind: kindPlain, text: "call"})
			out = append(out, flattenQuoted(s.body)...)
			out = append(out, stmt{kind: kindPlain, text: "endcall"})
		default:
			out = append(out, s)
		}
	}
	return out
}

func renderInvocationText(s stmt) string {
	if len(s.args) == 0 {
		return "$" + s.name
	}
	return "$" + s.name + " " + strings.Join(s.args, " ")
}

// substituteAll returns a copy of body with every formal parameter
// name rewritten to its actual argument, applied line by line via
// simple token replacement: every whitespace-separated token equal to
// a formal parameter is replaced, whatever its place in the line
// (variable names, label names and `position` operands alike).
func substituteAll(body []stmt, params, args []string) []stmt {
	replacements := make(map[string]string, len(params))
	for i, p := range params {
		replacements[p] = args[i]
	}

	out := make([]stmt, len(body))
	for i, s := range body {
		switch s.kind {
		case kindPlain:
			out[i] = stmt{kind: kindPlain, text: substituteTokens(s.text, replacements)}
		case kindCall:
			newArgs := make([]string, len(s.args))
			for j, a := range s.args {
				newArgs[j] = substituteToken(a, replacements)
			}
			out[i] = stmt{kind: kindCall, name: s.name, args: newArgs}
		case kindQuote, kindCallBlock:
			out[i] = stmt{kind: s.kind, body: substituteAll(s.body, params, args)}
		default:
			out[i] = s
		}
	}
	return out
}

func substituteTokens(line string, replacements map[string]string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		fields[i] = substituteToken(f, replacements)
	}
	return strings.Join(fields, " ")
}

func substituteToken(token string, replacements map[string]string) string {
	if replacement, ok := replacements[token]; ok {
		return replacement
	}
	return token
}

func (ex *Expander) freshLabel() string {
	ex.fresh++
	return fmt.Sprintf("macro_%d", ex.fresh)
}

// render turns a fully expanded (macro-free) statement list back into
// assembler source text.
func render(stmts []stmt) string {
	var b strings.Builder
	for _, s := range stmts {
		if s.kind != kindPlain {
			continue
		}
		b.WriteString(s.text)
		b.WriteByte('\n')
	}
	return b.String()
}
