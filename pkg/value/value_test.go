package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestValueEqualScalars(t *testing.T) {
	require.True(t, Int64(3).Equal(Int64(3)))
	require.False(t, Int64(3).Equal(Int64(4)))
	require.True(t, Str("a").Equal(Str("a")))
	require.False(t, Str("a").Equal(Str("b")))
	require.False(t, Int64(3).Equal(Str("3")))
}

func TestValueEqualFunctor(t *testing.T) {
	f1 := Functor("f", []StackItem{Item(Int64(1)), Variable("X")})
	f2 := Functor("f", []StackItem{Item(Int64(1)), Variable("X")})
	f3 := Functor("f", []StackItem{Item(Int64(1)), Variable("Y")})
	g := Functor("g", []StackItem{Item(Int64(1)), Variable("X")})
	short := Functor("f", []StackItem{Item(Int64(1))})

	require.True(t, f1.Equal(f2))
	require.False(t, f1.Equal(f3))
	require.False(t, f1.Equal(g))
	require.False(t, f1.Equal(short))

	if diff := cmp.Diff(f1.Args, f2.Args, cmp.Comparer(func(a, b StackItem) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("unexpected diff (-f1 +f2):\n%s", diff)
	}
}

func TestValueString(t *testing.T) {
	require.Equal(t, "3", Int64(3).String())
	require.Equal(t, "hi", Str("hi").String())

	f := Functor("f", []StackItem{Item(Int64(1)), Item(Int64(2))})
	require.Equal(t, "f(1, 2)", f.String())

	nested := Functor("pair", []StackItem{Variable("X"), Item(f)})
	require.Equal(t, "pair(X, f(1, 2))", nested.String())
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	cases := []string{
		`hello`,
		"hello\nworld",
		"tab\ttab",
		"cr\rcr",
		`say "hi"`,
	}
	for _, c := range cases {
		escaped := Escape(c)
		require.Equal(t, c, Unescape(escaped), "round trip for %q", c)
	}
}

func TestUnescapeKnownEscapes(t *testing.T) {
	require.Equal(t, "a\nb", Unescape(`a\nb`))
	require.Equal(t, "a\tb", Unescape(`a\tb`))
	require.Equal(t, "a\rb", Unescape(`a\rb`))
	require.Equal(t, `a"b`, Unescape(`a\"b`))
}

func TestStackItemEqual(t *testing.T) {
	require.True(t, Variable("X").Equal(Variable("X")))
	require.False(t, Variable("X").Equal(Variable("Y")))
	require.False(t, Variable("X").Equal(Item(Int64(1))))
	require.True(t, Item(Int64(1)).Equal(Item(Int64(1))))
}
