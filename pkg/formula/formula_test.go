package formula

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]Value) Lookup {
	return func(f Fluent) (Value, error) {
		v, ok := values[f.String()]
		if !ok {
			return Value{}, fmt.Errorf("no value for %s", f)
		}
		return v, nil
	}
}

func TestEvalFormula(t *testing.T) {
	state := lookupFrom(map[string]Value{
		"stones(hand)": IntValue(0),
		"stones(pile)": IntValue(2),
		"kettle(k)":    SymbolValue("full"),
		"lit(lamp)":    BoolValue(true),
	})
	hand := Ref("stones", Obj("hand"))
	pile := Ref("stones", Obj("pile"))
	kettle := Ref("kettle", Obj("k"))

	type tc struct {
		Name    string
		Formula Formula
		Result  bool
		Error   bool
	}
	for _, tt := range []tc{
		{Name: "empty and is true", Formula: AllOf(), Result: true},
		{Name: "empty or is false", Formula: AnyOf(), Result: false},
		{Name: "integer comparison", Formula: AllOf(Eq(hand, Int(0)), Gt(pile, Int(0))), Result: true},
		{Name: "arithmetic", Formula: Eq(Minus(pile, Int(1)), Plus(hand, Int(1))), Result: true},
		{Name: "symbol equality", Formula: Eq(kettle, Sym("full")), Result: true},
		{Name: "symbol inequality", Formula: Neq(kettle, Sym("half")), Result: true},
		{Name: "boolean fluent", Formula: Holds{Term: Ref("lit", Obj("lamp"))}, Result: true},
		{Name: "xor", Formula: Xor{L: True, R: Eq(hand, Int(1))}, Result: true},
		{Name: "implication with false antecedent", Formula: Implies{If: False, Then: False}, Result: true},
		{Name: "exactly one", Formula: OneOf(True, False, Eq(hand, Int(1))), Result: true},
		{Name: "exactly one rejects two", Formula: OneOf(True, True), Result: false},
		{Name: "conditional term", Formula: Eq(Ite{Cond: Eq(kettle, Sym("full")), Then: Sym("half"), Else: Sym("empty")}, Sym("half")), Result: true},
		{Name: "ordering on symbols", Formula: Lt(kettle, Sym("half")), Error: true},
		{Name: "mixed kinds", Formula: Eq(kettle, Int(1)), Error: true},
		{Name: "unknown fluent", Formula: Eq(Ref("stones", Obj("bag")), Int(0)), Error: true},
		{Name: "solver symbol", Formula: Prop("x@0"), Error: true},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			result, err := EvalFormula(tt.Formula, state)
			if tt.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.Result, result)
		})
	}
}

func TestRewriteGroundsReferences(t *testing.T) {
	f := Implies{
		If:   Gt(Ref("stones", Param("b")), Int(0)),
		Then: Eq(Ref("stones", Obj("hand")), Ite{Cond: True, Then: Ref("stones", Param("b")), Else: Int(0)}),
	}
	g, err := Rewrite(f, func(ref Fluent) (Term, error) {
		return Var{Symbol: Symbol(ref.String() + "@1")}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "implies(stones(?b)@1 > 0, stones(hand)@1 == (true ? stones(?b)@1 : 0))", g.String())
	assert.Len(t, FluentRefs(f), 3)
	assert.Empty(t, FluentRefs(g))
}

func TestRewritePropagatesErrors(t *testing.T) {
	_, err := Rewrite(AllOf(Eq(Ref("a"), Int(1))), func(Fluent) (Term, error) {
		return nil, fmt.Errorf("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestSorts(t *testing.T) {
	type tc struct {
		Name     string
		Sort     Sort
		Size     int
		Valid    bool
		Contains []Value
		Excludes []Value
	}
	for _, tt := range []tc{
		{
			Name:     "int range",
			Sort:     IntRange{Min: 0, Max: 2},
			Size:     3,
			Valid:    true,
			Contains: []Value{IntValue(0), IntValue(2)},
			Excludes: []Value{IntValue(3), SymbolValue("0")},
		},
		{Name: "empty int range", Sort: IntRange{Min: 1, Max: 0}},
		{Name: "unbounded int range", Sort: IntRange{Min: 0, Max: MaxSortSize}, Size: MaxSortSize + 1},
		{Name: "int range wider than int", Sort: IntRange{Min: math.MinInt / 2, Max: math.MaxInt/2 + 10}, Size: math.MaxInt},
		{Name: "full int range", Sort: IntRange{Min: math.MinInt, Max: math.MaxInt}, Size: math.MaxInt},
		{
			Name:     "enum",
			Sort:     Enum("empty", "half", "full"),
			Size:     3,
			Valid:    true,
			Contains: []Value{SymbolValue("half")},
			Excludes: []Value{SymbolValue("quarter"), IntValue(1)},
		},
		{Name: "empty enum", Sort: Enum()},
		{Name: "duplicate enum symbol", Sort: Enum("a", "a"), Size: 2},
		{
			Name:     "bool",
			Sort:     BoolSort{},
			Size:     2,
			Valid:    true,
			Contains: []Value{BoolValue(true)},
			Excludes: []Value{IntValue(1)},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.Size, tt.Sort.Size())
			assert.Equal(t, tt.Valid, tt.Sort.Validate() == nil)
			if r, ok := tt.Sort.(IntRange); ok && !tt.Valid {
				assert.Empty(t, r.Values())
			}
			for _, v := range tt.Contains {
				assert.True(t, tt.Sort.Contains(v), v.String())
			}
			for _, v := range tt.Excludes {
				assert.False(t, tt.Sort.Contains(v), v.String())
			}
		})
	}
}

func TestValueJSON(t *testing.T) {
	for _, v := range []Value{IntValue(-3), SymbolValue("full"), BoolValue(true)} {
		data, err := v.MarshalJSON()
		require.NoError(t, err)
		var out Value
		require.NoError(t, out.UnmarshalJSON(data))
		assert.Equal(t, v, out)
	}
	_, err := Value{}.MarshalJSON()
	assert.Error(t, err)
}
