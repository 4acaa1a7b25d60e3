package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/tarski/pkg/errs"
	"github.com/kristofer/tarski/pkg/value"
)

func TestStackOps(t *testing.T) {
	e := New(nil)
	e.Push(value.Item(value.Int64(1)))
	e.Push(value.Item(value.Int64(2)))

	require.NoError(t, e.Dup())
	top, err := e.Pop()
	require.NoError(t, err)
	require.True(t, top.Equal(value.Item(value.Int64(2))))

	require.NoError(t, e.Swap())
	a, err := e.Pop()
	require.NoError(t, err)
	b, err := e.Pop()
	require.NoError(t, err)
	require.True(t, a.Equal(value.Item(value.Int64(1))))
	require.True(t, b.Equal(value.Item(value.Int64(2))))
}

func TestPopEmptyStack(t *testing.T) {
	e := New(nil)
	_, err := e.Pop()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindEmptyStack))
}

func TestArithmeticConventions(t *testing.T) {
	e := New(nil)

	e.Push(value.Item(value.Int64(10)))
	e.Push(value.Item(value.Int64(3)))
	require.NoError(t, e.Sub())
	top, err := e.Pop()
	require.NoError(t, err)
	require.Equal(t, "7", top.Val.String())

	e.Push(value.Item(value.Int64(2)))
	e.Push(value.Item(value.Int64(10)))
	require.NoError(t, e.Pow())
	top, err = e.Pop()
	require.NoError(t, err)
	require.Equal(t, "1024", top.Val.String())

	e.Push(value.Item(value.Int64(7)))
	e.Push(value.Item(value.Int64(0)))
	err = e.Div()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindArithDomain))
}

func TestComparisonGuards(t *testing.T) {
	e := New(nil)
	e.Push(value.Item(value.Int64(1)))
	e.Push(value.Item(value.Int64(2)))
	require.NoError(t, e.Lt())

	e.Push(value.Item(value.Int64(5)))
	e.Push(value.Item(value.Int64(2)))
	err := e.Lt()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindComparisonFailed))
}

func TestFunctorAndProject(t *testing.T) {
	e := New(nil)
	e.Push(value.Item(value.Int64(1)))
	e.Push(value.Item(value.Int64(2)))
	e.Push(value.Item(value.Int64(2)))
	e.Push(value.Item(value.Str("pair")))
	require.NoError(t, e.MakeFunctor())

	top, err := e.Pop()
	require.NoError(t, err)
	require.True(t, top.IsValue())
	require.True(t, top.Val.IsFunctor())
	require.Equal(t, "pair", top.Val.Name)
	require.Equal(t, "2", top.Val.Args[0].Val.String())
	require.Equal(t, "1", top.Val.Args[1].Val.String())

	e.Push(top)
	e.Push(value.Item(value.Int64(1)))
	require.NoError(t, e.Project())
	proj, err := e.Pop()
	require.NoError(t, err)
	require.Equal(t, "1", proj.Val.String())
}

func TestUnifyVarsDirectEdge(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.unifyVars("X", "Y"))
	require.True(t, e.IsUnified("X", "Y"))
	require.True(t, e.IsUnified("Y", "X"))
	require.False(t, e.IsUnified("X", "Z"))
}

func TestUnifyVarValueThenConflict(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.unifyVarValue("X", value.Int64(3)))
	v, ok := e.VarValue("X")
	require.True(t, ok)
	require.True(t, v.Equal(value.Int64(3)))

	err := e.unifyVarValue("X", value.Int64(4))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindUnifyConflict))
}

func TestUnifyFunctorArityMismatchConflicts(t *testing.T) {
	e := New(nil)
	f1 := value.Functor("f", []value.StackItem{value.Item(value.Int64(1))})
	f2 := value.Functor("f", []value.StackItem{value.Item(value.Int64(1)), value.Item(value.Int64(2))})
	err := e.unifyValues(f1, f2)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindUnifyConflict))
}

func TestDisunifyFunctorShorterZipVacuous(t *testing.T) {
	e := New(nil)
	short := value.Functor("f", []value.StackItem{value.Item(value.Int64(1))})
	long := value.Functor("f", []value.StackItem{value.Item(value.Int64(2)), value.Item(value.Int64(3))})
	// same name, mismatched arity: the one shared position (1 vs 2) is
	// disunified, and the extra argument past the shorter list is
	// vacuously satisfied.
	require.NoError(t, e.disunifyValues(short, long))
}

func TestDisunifyFunctorDifferentNameVacuous(t *testing.T) {
	e := New(nil)
	f := value.Functor("f", []value.StackItem{value.Item(value.Int64(1))})
	g := value.Functor("g", []value.StackItem{value.Item(value.Int64(1))})
	require.NoError(t, e.disunifyValues(f, g))
}

func TestDisunifySameValueConflicts(t *testing.T) {
	e := New(nil)
	err := e.disunifyValues(value.Int64(3), value.Int64(3))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindDisunifyConflict))
}

func TestIsDisunifiedTransitive(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.unifyVars("X", "Y"))
	require.NoError(t, e.disunifyVars("Y", "Z"))
	require.True(t, e.IsDisunified("X", "Z"))
	require.True(t, e.IsDisunified("Z", "X"))
}

func TestChoicepointRoundTrip(t *testing.T) {
	e := New(nil)
	e.Push(value.Item(value.Int64(1)))
	e.SetChoicepoint(7)
	e.Push(value.Item(value.Int64(2)))
	require.NoError(t, e.unifyVars("X", "Y"))

	require.True(t, e.HasChoicepoint())
	pc, ok := e.Backtrack()
	require.True(t, ok)
	require.Equal(t, 7, pc)
	require.Equal(t, 1, e.Len())
	require.False(t, e.IsUnified("X", "Y"))
	require.False(t, e.HasChoicepoint())

	_, ok = e.Backtrack()
	require.False(t, ok)
}
