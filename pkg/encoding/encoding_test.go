package encoding_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/encoding"
	f "github.com/operator-framework/satplan/pkg/formula"
	"github.com/operator-framework/satplan/pkg/scenarios"
	"github.com/operator-framework/satplan/pkg/solver"
)

// recorder is a solver.Solver that keeps every declaration and
// assertion and fails assertions whose text contains failOn.
type recorder struct {
	declared map[f.Symbol]f.Sort
	asserted []f.Formula
	failOn   string
}

func newRecorder() *recorder {
	return &recorder{declared: make(map[f.Symbol]f.Sort)}
}

func (r *recorder) Declare(name f.Symbol, sort f.Sort) error {
	if _, ok := r.declared[name]; ok {
		return solver.DuplicateSymbol(name)
	}
	r.declared[name] = sort
	return nil
}

func (r *recorder) Assert(g f.Formula) error {
	if r.failOn != "" && strings.Contains(g.String(), r.failOn) {
		return errors.New("rejected")
	}
	r.asserted = append(r.asserted, g)
	return nil
}

func (r *recorder) Check(context.Context) (solver.Result, error) {
	return solver.Unknown, nil
}

func (r *recorder) Evaluate(f.Symbol) (f.Value, error) {
	return f.Value{}, errors.New("no model")
}

func (r *recorder) WriteDIMACS(io.Writer) error {
	return nil
}

func (r *recorder) has(g f.Formula) bool {
	for _, a := range r.asserted {
		if a.String() == g.String() {
			return true
		}
	}
	return false
}

func TestEncodeRejectsHorizonBelowOne(t *testing.T) {
	p, err := scenarios.Kettle()
	require.NoError(t, err)
	for _, horizon := range []int{0, -1} {
		_, err := encoding.Encode(p, horizon, newRecorder())
		assert.ErrorIs(t, err, encoding.ErrHorizon)
		assert.False(t, encoding.IsEncodingError(err))
	}
}

func TestEncodeDeclaresAndAsserts(t *testing.T) {
	p, err := scenarios.Kettle()
	require.NoError(t, err)
	r := newRecorder()
	enc, err := encoding.Encode(p, 2, r)
	require.NoError(t, err)

	// 3 atoms over 3 snapshots and 2 instances over 2 steps.
	assert.Equal(t, 13, enc.Symbols())
	assert.Len(t, r.declared, 13)
	assert.Equal(t, f.Enum("empty", "half", "full"), r.declared["level(kettle)@2"])
	assert.Equal(t, f.BoolSort{}, r.declared["do(fill(cup2))@1"])
	_, ok := r.declared["do(fill(cup2))@2"]
	assert.False(t, ok, "no selector after the last snapshot")

	// Per step: one exactly-one, and per instance one precondition, two
	// effects and one frame axiom. Then three initial values and the goal.
	assert.Equal(t, 2*(1+2*4)+3+1, enc.Assertions())
	assert.Len(t, r.asserted, enc.Assertions())

	for _, want := range []f.Formula{
		f.OneOf(f.Prop("do(fill(cup1))@0"), f.Prop("do(fill(cup2))@0")),
		f.Implies{
			If:   f.Prop("do(fill(cup1))@1"),
			Then: f.Eq(f.Var{Symbol: "cup(cup2)@2"}, f.Var{Symbol: "cup(cup2)@1"}),
		},
		f.Implies{
			If:   f.Prop("do(fill(cup2))@0"),
			Then: f.Eq(f.Var{Symbol: "cup(cup2)@1"}, f.Sym("full")),
		},
		f.Eq(f.Var{Symbol: "level(kettle)@0"}, f.Sym("full")),
		f.AnyOf(
			f.AllOf(f.Eq(f.Var{Symbol: "cup(cup1)@1"}, f.Sym("full")), f.Eq(f.Var{Symbol: "cup(cup2)@1"}, f.Sym("full"))),
			f.AllOf(f.Eq(f.Var{Symbol: "cup(cup1)@2"}, f.Sym("full")), f.Eq(f.Var{Symbol: "cup(cup2)@2"}, f.Sym("full"))),
		),
	} {
		assert.True(t, r.has(want), "missing assertion %s", want)
	}
}

func TestEncodeAssertsInvariantsAtEverySnapshot(t *testing.T) {
	p, err := scenarios.StoneTransfer()
	require.NoError(t, err)
	r := newRecorder()
	_, err = encoding.Encode(p, 3, r)
	require.NoError(t, err)
	for step := 0; step <= 3; step++ {
		sym := encoding.StateSymbol(domain.AtomOf("stones", "bag2"), step)
		assert.True(t, r.has(f.Leq(f.Var{Symbol: sym}, f.Int(1))), "invariant at step %d", step)
	}
}

func TestEncodeWrapsSolverFailures(t *testing.T) {
	p, err := scenarios.Kettle()
	require.NoError(t, err)

	r := newRecorder()
	r.failOn = "cup(cup2)@1 == full"
	_, err = encoding.Encode(p, 2, r)
	require.Error(t, err)
	assert.True(t, encoding.IsEncodingError(err))
	var ee *encoding.EncodingError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.Horizon)
	assert.Contains(t, err.Error(), "fill(cup2) at step 0")

	r = newRecorder()
	require.NoError(t, r.Declare("level(kettle)@1", f.BoolSort{}))
	_, err = encoding.Encode(p, 1, r)
	assert.True(t, encoding.IsEncodingError(err))
	var dup solver.DuplicateSymbol
	assert.ErrorAs(t, err, &dup)
}

func TestEncodingIsDecidedBySolvers(t *testing.T) {
	type tc struct {
		Name    string
		Problem func() (*domain.Problem, error)
		Horizon int
		Result  solver.Result
	}
	for _, tt := range []tc{
		{Name: "kettle at 1", Problem: scenarios.Kettle, Horizon: 1, Result: solver.Unsatisfiable},
		{Name: "kettle at 2", Problem: scenarios.Kettle, Horizon: 2, Result: solver.Satisfiable},
		{Name: "stones at 3", Problem: scenarios.StoneTransfer, Horizon: 3, Result: solver.Unsatisfiable},
		{Name: "stones at 4", Problem: scenarios.StoneTransfer, Horizon: 4, Result: solver.Satisfiable},
		{Name: "over-constrained at 3", Problem: scenarios.OverConstrained, Horizon: 3, Result: solver.Unsatisfiable},
	} {
		for _, backend := range solver.Backends() {
			t.Run(backend+"/"+tt.Name, func(t *testing.T) {
				p, err := tt.Problem()
				require.NoError(t, err)
				s, err := solver.New(backend)
				require.NoError(t, err)
				_, err = encoding.Encode(p, tt.Horizon, s)
				require.NoError(t, err)
				result, err := s.Check(context.Background())
				require.NoError(t, err)
				assert.Equal(t, tt.Result, result)
			})
		}
	}
}

func TestSymbolNames(t *testing.T) {
	p, err := scenarios.Kettle()
	require.NoError(t, err)
	fill, err := p.Domain.Instance("fill", "cup1")
	require.NoError(t, err)
	assert.Equal(t, f.Symbol("do(fill(cup1))@3"), encoding.SelectorSymbol(fill, 3))
	assert.Equal(t, f.Symbol("cup(cup1)@0"), encoding.StateSymbol("cup(cup1)", 0))
}
