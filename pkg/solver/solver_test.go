package solver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	f "github.com/operator-framework/satplan/pkg/formula"
)

func v(s f.Symbol) f.Term {
	return f.Var{Symbol: s}
}

func TestSolve(t *testing.T) {
	type decl struct {
		Name f.Symbol
		Sort f.Sort
	}
	type tc struct {
		Name       string
		Decls      []decl
		Assertions []f.Formula
		Result     Result
		Model      map[f.Symbol]f.Value
	}

	ints := f.IntRange{Min: 0, Max: 3}
	for _, tt := range []tc{
		{
			Name:   "no constraints",
			Decls:  []decl{{"x", f.IntRange{Min: 4, Max: 4}}},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"x": f.IntValue(4)},
		},
		{
			Name:  "arithmetic",
			Decls: []decl{{"x", ints}, {"y", ints}},
			Assertions: []f.Formula{
				f.Eq(f.Plus(v("x"), v("y")), f.Int(5)),
				f.Lt(v("x"), v("y")),
			},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"x": f.IntValue(2), "y": f.IntValue(3)},
		},
		{
			Name:  "subtraction below the sort",
			Decls: []decl{{"x", ints}, {"y", ints}},
			Assertions: []f.Formula{
				f.Eq(f.Minus(v("x"), v("y")), f.Int(-3)),
			},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"x": f.IntValue(0), "y": f.IntValue(3)},
		},
		{
			Name:  "conflicting equalities",
			Decls: []decl{{"x", ints}},
			Assertions: []f.Formula{
				f.Eq(v("x"), f.Int(1)),
				f.Eq(v("x"), f.Int(2)),
			},
			Result: Unsatisfiable,
		},
		{
			Name:       "value outside the sort",
			Decls:      []decl{{"x", ints}},
			Assertions: []f.Formula{f.Eq(v("x"), f.Int(7))},
			Result:     Unsatisfiable,
		},
		{
			Name:  "enumerations",
			Decls: []decl{{"level", f.Enum("empty", "half", "full")}},
			Assertions: []f.Formula{
				f.Neq(v("level"), f.Sym("empty")),
				f.Neq(v("level"), f.Sym("full")),
			},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"level": f.SymbolValue("half")},
		},
		{
			Name:  "booleans",
			Decls: []decl{{"p", f.BoolSort{}}, {"q", f.BoolSort{}}},
			Assertions: []f.Formula{
				f.Xor{L: f.Prop("p"), R: f.Prop("q")},
				f.Prop("p"),
			},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"p": f.BoolValue(true), "q": f.BoolValue(false)},
		},
		{
			Name:  "exactly one",
			Decls: []decl{{"a", f.BoolSort{}}, {"b", f.BoolSort{}}, {"c", f.BoolSort{}}},
			Assertions: []f.Formula{
				f.OneOf(f.Prop("a"), f.Prop("b"), f.Prop("c")),
				f.Negate(f.Prop("a")),
				f.Implies{If: f.Negate(f.Prop("a")), Then: f.Negate(f.Prop("b"))},
			},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"a": f.BoolValue(false), "b": f.BoolValue(false), "c": f.BoolValue(true)},
		},
		{
			Name:  "exactly one rejects two",
			Decls: []decl{{"a", f.BoolSort{}}, {"b", f.BoolSort{}}},
			Assertions: []f.Formula{
				f.OneOf(f.Prop("a"), f.Prop("b")),
				f.Prop("a"),
				f.Prop("b"),
			},
			Result: Unsatisfiable,
		},
		{
			Name:       "empty exactly one",
			Assertions: []f.Formula{f.OneOf()},
			Result:     Unsatisfiable,
		},
		{
			Name:  "conditional term",
			Decls: []decl{{"p", f.BoolSort{}}, {"x", ints}},
			Assertions: []f.Formula{
				f.Eq(v("x"), f.Ite{Cond: f.Prop("p"), Then: f.Int(3), Else: f.Int(1)}),
				f.Gt(v("x"), f.Int(2)),
			},
			Result: Satisfiable,
			Model:  map[f.Symbol]f.Value{"p": f.BoolValue(true), "x": f.IntValue(3)},
		},
		{
			Name:       "false",
			Assertions: []f.Formula{f.False},
			Result:     Unsatisfiable,
		},
	} {
		for _, backend := range Backends() {
			t.Run(backend+"/"+tt.Name, func(t *testing.T) {
				s, err := New(backend)
				require.NoError(t, err)
				for _, d := range tt.Decls {
					require.NoError(t, s.Declare(d.Name, d.Sort))
				}
				for _, a := range tt.Assertions {
					require.NoError(t, s.Assert(a))
				}
				result, err := s.Check(context.Background())
				require.NoError(t, err)
				assert.Equal(t, tt.Result, result)
				for name, want := range tt.Model {
					got, err := s.Evaluate(name)
					require.NoError(t, err)
					assert.Equal(t, want, got, "value of %s", name)
				}
			})
		}
	}
}

func TestSessionErrors(t *testing.T) {
	for _, backend := range Backends() {
		t.Run(backend, func(t *testing.T) {
			s, err := New(backend)
			require.NoError(t, err)

			require.NoError(t, s.Declare("x", f.IntRange{Min: 0, Max: 1}))
			assert.Equal(t, DuplicateSymbol("x"), s.Declare("x", f.BoolSort{}))
			assert.Error(t, s.Declare("y", f.Enum()))
			assert.Error(t, s.Declare("z", nil))

			err = s.Assert(f.Eq(v("w"), f.Int(0)))
			var undeclared UndeclaredSymbol
			require.ErrorAs(t, err, &undeclared)
			assert.Equal(t, UndeclaredSymbol("w"), undeclared)

			assert.Error(t, s.Assert(f.Eq(v("x"), f.Sym("full"))))
			assert.Error(t, s.Assert(f.Eq(f.Ref("stones", f.Obj("hand")), f.Int(0))))
			assert.Error(t, s.Assert(f.Lt(f.Sym("a"), f.Sym("b"))))

			_, err = s.Evaluate("x")
			assert.Error(t, err)

			result, err := s.Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Satisfiable, result)
			_, err = s.Evaluate("nope")
			assert.Equal(t, UndeclaredSymbol("nope"), err)

			assert.Error(t, s.Assert(f.True))
			assert.Error(t, s.Declare("late", f.BoolSort{}))
		})
	}
}

func TestCheckCancelled(t *testing.T) {
	for _, backend := range Backends() {
		t.Run(backend, func(t *testing.T) {
			s, err := New(backend)
			require.NoError(t, err)
			require.NoError(t, s.Declare("x", f.IntRange{Min: 0, Max: 1}))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			result, err := s.Check(ctx)
			require.NoError(t, err)
			assert.Equal(t, Unknown, result)
			_, err = s.Evaluate("x")
			assert.Error(t, err)
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := New("minisat")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewFactory("minisat")
	assert.ErrorIs(t, err, ErrUnavailable)

	factory, err := NewFactory("")
	require.NoError(t, err)
	s, err := factory()
	require.NoError(t, err)
	assert.IsType(t, &giniSolver{}, s)
}

func TestWriteDIMACS(t *testing.T) {
	for _, backend := range Backends() {
		t.Run(backend, func(t *testing.T) {
			s, err := New(backend)
			require.NoError(t, err)
			require.NoError(t, s.Declare("x", f.IntRange{Min: 0, Max: 2}))
			require.NoError(t, s.Assert(f.Eq(v("x"), f.Int(1))))

			var buf bytes.Buffer
			require.NoError(t, s.WriteDIMACS(&buf))
			assert.True(t, strings.HasPrefix(buf.String(), "p cnf "), buf.String())
			assert.Error(t, s.Assert(f.True))
		})
	}
}

func TestRecoverUnavailable(t *testing.T) {
	run := func() (err error) {
		defer recoverUnavailable("test", &err)
		panic("boom")
	}
	err := run()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "boom")
}
