// Package bytecode also provides serialization and deserialization for
// .tvmc bytecode cache files.
//
// File Format Specification:
//
// The .tvmc file format is a binary cache of an already-assembled
// instruction stream. Assembling a large source file repeatedly is
// wasted work once the source stops
// changing, so the CLI can write out the resolved instruction stream
// once and load it directly on later runs (see SPEC_FULL.md §4.H and
// §6). It is not a source format: it has no labels, no macros, nothing
// that isn't already a plain Instr.
//
// Binary Format Layout:
//
//	[Header]
//	  Magic Number (4 bytes): "TVM1"
//	  Version (4 bytes): Format version number (currently 1)
//
//	[Instructions Section]
//	  Count (4 bytes): Number of instructions
//	  For each instruction:
//	    Opcode (1 byte)
//	    Operand, present only when the opcode needs one:
//	      int:              1 byte sign (0 positive, 1 negative) +
//	                        4-byte big-endian byte count + magnitude bytes
//	      str, var,
//	      printunification: 4-byte big-endian length + UTF-8 bytes
//
// Design rationale:
//
// Length-prefixed fields throughout, rather than delimiters, keep
// decoding a single forward linear scan with no backtracking — the
// same choice the teacher's .sg format makes, for the same reason.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

const (
	tvmcMagic   = "TVM1"
	tvmcVersion = uint32(1)
)

// Encode writes prog to w in .tvmc format.
func Encode(prog []Instr, w io.Writer) error {
	if _, err := w.Write([]byte(tvmcMagic)); err != nil {
		return errors.Wrap(err, "write magic")
	}
	if err := binary.Write(w, binary.BigEndian, tvmcVersion); err != nil {
		return errors.Wrap(err, "write version")
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(prog))); err != nil {
		return errors.Wrap(err, "write instruction count")
	}
	for i, instr := range prog {
		if err := encodeInstr(w, instr); err != nil {
			return errors.Wrapf(err, "encode instruction %d", i)
		}
	}
	return nil
}

func encodeInstr(w io.Writer, instr Instr) error {
	if _, err := w.Write([]byte{byte(instr.Op)}); err != nil {
		return err
	}
	switch instr.Op {
	case OpInt:
		return encodeBigInt(w, instr.Int)
	case OpStr:
		return encodeString(w, instr.Str)
	case OpVar, OpPrintUnification:
		return encodeString(w, instr.Var)
	default:
		return nil
	}
}

func encodeBigInt(w io.Writer, n *big.Int) error {
	sign := byte(0)
	if n.Sign() < 0 {
		sign = 1
	}
	if _, err := w.Write([]byte{sign}); err != nil {
		return err
	}
	mag := new(big.Int).Abs(n).Bytes()
	if err := binary.Write(w, binary.BigEndian, uint32(len(mag))); err != nil {
		return err
	}
	_, err := w.Write(mag)
	return err
}

func encodeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// Decode reads a .tvmc stream from r and returns its instructions.
func Decode(r io.Reader) ([]Instr, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, errors.Wrap(err, "read magic")
	}
	if !bytes.Equal(magic, []byte(tvmcMagic)) {
		return nil, fmt.Errorf("not a .tvmc file: bad magic %q", magic)
	}
	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, errors.Wrap(err, "read version")
	}
	if version != tvmcVersion {
		return nil, fmt.Errorf(".tvmc version %d is not supported (want %d)", version, tvmcVersion)
	}
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read instruction count")
	}
	prog := make([]Instr, count)
	for i := range prog {
		instr, err := decodeInstr(r)
		if err != nil {
			return nil, errors.Wrapf(err, "decode instruction %d", i)
		}
		prog[i] = instr
	}
	return prog, nil
}

func decodeInstr(r io.Reader) (Instr, error) {
	var opByte [1]byte
	if _, err := io.ReadFull(r, opByte[:]); err != nil {
		return Instr{}, err
	}
	op := Opcode(opByte[0])
	switch op {
	case OpInt:
		n, err := decodeBigInt(r)
		if err != nil {
			return Instr{}, err
		}
		return IntInstr(n), nil
	case OpStr:
		s, err := decodeString(r)
		if err != nil {
			return Instr{}, err
		}
		return StrInstr(s), nil
	case OpVar:
		s, err := decodeString(r)
		if err != nil {
			return Instr{}, err
		}
		return VarInstr(s), nil
	case OpPrintUnification:
		s, err := decodeString(r)
		if err != nil {
			return Instr{}, err
		}
		return PrintUnificationInstr(s), nil
	default:
		if _, ok := opcodeNames[op]; !ok {
			return Instr{}, fmt.Errorf("unknown opcode %d", op)
		}
		return Simple(op), nil
	}
}

func decodeBigInt(r io.Reader) (*big.Int, error) {
	var sign [1]byte
	if _, err := io.ReadFull(r, sign[:]); err != nil {
		return nil, err
	}
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	mag := make([]byte, length)
	if _, err := io.ReadFull(r, mag); err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(mag)
	if sign[0] == 1 {
		n.Neg(n)
	}
	return n, nil
}

func decodeString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
