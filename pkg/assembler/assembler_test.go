package assembler

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tarski/pkg/bytecode"
)

func TestAssembleSimpleProgram(t *testing.T) {
	src := `
; push 1 and 2, add them
int 1
int 2
add
`
	prog, err := Assemble(src)
	require.NoError(t, err)
	require.Equal(t, []bytecode.Instr{
		bytecode.IntInstr(big.NewInt(1)),
		bytecode.IntInstr(big.NewInt(2)),
		bytecode.Simple(bytecode.OpAdd),
	}, prog)
}

func TestAssembleForwardPositionReference(t *testing.T) {
	src := `
position done
gotochoice
int 1
:done
int 2
`
	prog, err := Assemble(src)
	require.NoError(t, err)
	require.Len(t, prog, 4)
	require.Equal(t, bytecode.OpInt, prog[0].Op)
	require.Equal(t, "3", prog[0].Int.String(), "done resolves to the index of `int 2`, past the skipped `int 1`")
	require.Equal(t, bytecode.OpGotoChoice, prog[1].Op)
	require.Equal(t, "2", prog[3].Int.String())
}

func TestAssembleBackwardPositionReference(t *testing.T) {
	src := `
:top
int 1
position top
goto
`
	prog, err := Assemble(src)
	require.NoError(t, err)
	require.Len(t, prog, 3)
	require.Equal(t, "0", prog[1].Int.String())
}

func TestAssembleStringLiteralEscapes(t *testing.T) {
	src := `str "line one\nline two"`
	prog, err := Assemble(src)
	require.NoError(t, err)
	require.Equal(t, "line one\nline two", prog[0].Str)
}

func TestAssembleUnknownOpcodeAccumulates(t *testing.T) {
	src := `
bogus
alsobogus
int 1
`
	_, err := Assemble(src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bogus")
	require.Contains(t, err.Error(), "alsobogus")
}

func TestAssembleUndefinedPositionIsError(t *testing.T) {
	src := `
position nowhere
gotochoice
`
	_, err := Assemble(src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nowhere")
}
