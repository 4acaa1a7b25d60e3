package bytecode

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := []Instr{
		IntInstr(big.NewInt(42)),
		StrInstr("hello\nworld"),
		VarInstr("X"),
		PrintUnificationInstr("Y"),
		Simple(OpDup),
		Simple(OpUnify),
		IntInstr(new(big.Int).Neg(big.NewInt(7))),
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(original, &buf))
	require.NotZero(t, buf.Len())

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, len(original))

	for i := range original {
		require.Equal(t, original[i].Op, decoded[i].Op, "instruction %d opcode", i)
		require.Equal(t, original[i].String(), decoded[i].String(), "instruction %d rendering", i)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("NOPE1234")))
	require.Error(t, err)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(tvmcMagic)
	buf.Write([]byte{0, 0, 0, 99}) // version 99
	buf.Write([]byte{0, 0, 0, 0})  // zero instructions, never reached
	_, err := Decode(&buf)
	require.Error(t, err)
}

func TestInstrStringRendering(t *testing.T) {
	require.Equal(t, "int 3", IntInstr(big.NewInt(3)).String())
	require.Equal(t, `str "hi\n"`, StrInstr("hi\n").String())
	require.Equal(t, "var X", VarInstr("X").String())
	require.Equal(t, "dup", Simple(OpDup).String())
	require.Equal(t, "printunification X", PrintUnificationInstr("X").String())
}

func TestSubstitute(t *testing.T) {
	v := VarInstr("X")
	require.Equal(t, "Y", v.Substitute("X", "Y").Var)
	require.Equal(t, "X", v.Substitute("Z", "Y").Var)

	pu := PrintUnificationInstr("X")
	require.Equal(t, "Y", pu.Substitute("X", "Y").Var)

	plain := Simple(OpAdd)
	require.Equal(t, plain, plain.Substitute("X", "Y"))
}
