package macro

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandSimpleMacroInvocation(t *testing.T) {
	src := `
macro twice X
  var X
  var X
endmacro

$twice Y
`
	ex := New()
	out, err := ex.Expand(src)
	require.NoError(t, err)
	require.Equal(t, "var Y\nvar Y\n", out)
}

func TestExpandNestedMacroInvocation(t *testing.T) {
	src := `
macro one X
  var X
endmacro

macro pair X Y
  $one X
  $one Y
endmacro

$pair A B
`
	ex := New()
	out, err := ex.Expand(src)
	require.NoError(t, err)
	require.Equal(t, "var A\nvar B\n", out)
}

func TestExpandUndefinedMacroIsError(t *testing.T) {
	ex := New()
	_, err := ex.Expand("$nope\n")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}

func TestExpandArityMismatchIsError(t *testing.T) {
	src := `
macro one X
  var X
endmacro

$one A B
`
	ex := New()
	_, err := ex.Expand(src)
	require.Error(t, err)
}

func TestExpandCallBlockWrapsInPositionGoto(t *testing.T) {
	src := `
call
  int 1
  fail
endcall
`
	ex := New()
	out, err := ex.Expand(src)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, ":macro_1", lines[0])
	require.Equal(t, "int 1", lines[1])
	require.Equal(t, "fail", lines[2])
	require.Equal(t, ":macro_2", lines[3])
	require.Equal(t, "position macro_2", lines[4])
	require.Equal(t, "goto", lines[5])
	require.Equal(t, "position macro_1", lines[6])
}

func TestExpandQuotePassesThroughWithoutInvoking(t *testing.T) {
	src := `
quote
  $notreal arg
endquote
`
	ex := New()
	out, err := ex.Expand(src)
	require.NoError(t, err)
	require.Equal(t, "$notreal arg\n", out)
}

func TestExpandQuoteStillSubstitutesMacroParams(t *testing.T) {
	src := `
macro wrap X
quote
  var X
endquote
endmacro

$wrap Z
`
	ex := New()
	out, err := ex.Expand(src)
	require.NoError(t, err)
	require.Equal(t, "var Z\n", out)
}
