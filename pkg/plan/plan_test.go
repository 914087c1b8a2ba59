package plan_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/encoding"
	f "github.com/operator-framework/satplan/pkg/formula"
	"github.com/operator-framework/satplan/pkg/plan"
	"github.com/operator-framework/satplan/pkg/scenarios"
	"github.com/operator-framework/satplan/pkg/solver"
)

// model is a solver.Solver that accepts everything and answers
// evaluations from a fixed assignment. Unassigned selectors are false.
type model map[f.Symbol]f.Value

func (model) Declare(f.Symbol, f.Sort) error { return nil }

func (model) Assert(f.Formula) error { return nil }

func (model) Check(context.Context) (solver.Result, error) { return solver.Satisfiable, nil }

func (model) WriteDIMACS(io.Writer) error { return nil }

func (m model) Evaluate(name f.Symbol) (f.Value, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	if strings.HasPrefix(string(name), "do(") {
		return f.BoolValue(false), nil
	}
	return f.Value{}, fmt.Errorf("no value for %s", name)
}

// counter has one integer fluent, an increment and an explicit no-op.
func counter(t *testing.T) *domain.Problem {
	n := f.Ref("n", f.Obj("c"))
	d, err := domain.New(domain.Definition{
		Objects: []domain.Object{{Name: "c"}},
		Fluents: []domain.Fluent{{Name: "n", Params: []string{""}, Sort: f.IntRange{Min: 0, Max: 3}}},
		Actions: []domain.ActionSchema{
			{
				Name:         "inc",
				Precondition: f.Lt(n, f.Int(3)),
				Effects:      []domain.Effect{{Target: n, Value: f.Plus(n, f.Int(1))}},
			},
			{Name: "noop"},
		},
		Invariants: []f.Formula{f.Leq(n, f.Int(3))},
	})
	require.NoError(t, err)
	p, err := domain.NewProblem(d, map[domain.Atom]f.Value{"n(c)": f.IntValue(0)}, f.Eq(n, f.Int(1)))
	require.NoError(t, err)
	return p
}

func TestExtractTruncatesAtFirstGoalSnapshot(t *testing.T) {
	p := counter(t)
	m := model{
		"n(c)@0":       f.IntValue(0),
		"n(c)@1":       f.IntValue(0),
		"n(c)@2":       f.IntValue(1),
		"n(c)@3":       f.IntValue(1),
		"do(noop())@0": f.BoolValue(true),
		"do(inc())@1":  f.BoolValue(true),
		"do(noop())@2": f.BoolValue(true),
	}
	enc, err := encoding.Encode(p, 3, m)
	require.NoError(t, err)

	got, err := plan.Extract(enc, m)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Horizon)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "noop", got.Steps[0].Action.Name())
	assert.False(t, got.Steps[0].GoalSatisfied)
	assert.Equal(t, "inc", got.Steps[1].Action.Name())
	assert.True(t, got.Steps[1].GoalSatisfied)
	assert.Equal(t, domain.State{"n(c)": f.IntValue(1)}, got.Final())
	assert.Equal(t, "0: noop()\n1: inc()\n", got.String())
	require.NoError(t, plan.Verify(p, got))
}

func TestExtractRejectsMalformedModels(t *testing.T) {
	p := counter(t)
	type tc struct {
		Name  string
		Model model
		Error string
	}
	for _, tt := range []tc{
		{
			Name: "two actions in one step",
			Model: model{
				"n(c)@0": f.IntValue(0), "n(c)@1": f.IntValue(1),
				"do(inc())@0": f.BoolValue(true), "do(noop())@0": f.BoolValue(true),
			},
			Error: "model selects 2 actions at step 0",
		},
		{
			Name: "no action",
			Model: model{
				"n(c)@0": f.IntValue(0), "n(c)@1": f.IntValue(1),
			},
			Error: "model selects 0 actions at step 0",
		},
		{
			Name: "goal never reached",
			Model: model{
				"n(c)@0": f.IntValue(0), "n(c)@1": f.IntValue(0),
				"do(noop())@0": f.BoolValue(true),
			},
			Error: "no snapshot of the model satisfies the goal",
		},
		{
			Name: "missing value",
			Model: model{
				"n(c)@0": f.IntValue(0),
			},
			Error: "reading n(c) at step 1",
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			enc, err := encoding.Encode(p, 1, tt.Model)
			require.NoError(t, err)
			_, err = plan.Extract(enc, tt.Model)
			require.Error(t, err)
			assert.True(t, encoding.IsEncodingError(err))
			assert.Contains(t, err.Error(), tt.Error)
		})
	}
}

func solve(t *testing.T, p *domain.Problem, horizon int) *plan.Plan {
	s, err := solver.New(solver.DefaultBackend)
	require.NoError(t, err)
	enc, err := encoding.Encode(p, horizon, s)
	require.NoError(t, err)
	result, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.Satisfiable, result)
	got, err := plan.Extract(enc, s)
	require.NoError(t, err)
	return got
}

func TestExtractedPlansReplay(t *testing.T) {
	for _, name := range []string{"kettle", "stones"} {
		t.Run(name, func(t *testing.T) {
			p, err := scenarios.Load(name)
			require.NoError(t, err)
			horizon := map[string]int{"kettle": 2, "stones": 4}[name]
			got := solve(t, p, horizon)
			require.Equal(t, horizon, got.Len())
			require.NoError(t, plan.Verify(p, got))

			states, err := plan.Replay(p.Domain, p.Init, got.Actions())
			require.NoError(t, err)
			require.Len(t, states, got.Len()+1)
			for i, step := range got.Steps {
				assert.True(t, step.After.Equal(states[i+1]), "step %d", i)
				for _, g := range p.Domain.Atoms() {
					targets, err := p.Domain.Targets(step.Action)
					require.NoError(t, err)
					touched := false
					for _, a := range targets {
						touched = touched || a == g.Atom
					}
					if !touched {
						assert.Equal(t, step.Before[g.Atom], step.After[g.Atom], "frame of %s at step %d", g.Atom, i)
					}
				}
			}
		})
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	p, err := scenarios.Kettle()
	require.NoError(t, err)

	type tc struct {
		Name   string
		Tamper func(*plan.Plan)
		Error  string
	}
	for _, tt := range []tc{
		{
			Name: "frame violation",
			Tamper: func(pl *plan.Plan) {
				after := pl.Steps[0].After.Clone()
				other := "cup(cup1)"
				if pl.Steps[0].Action.Args[0] == "cup1" {
					other = "cup(cup2)"
				}
				after[domain.Atom(other)] = f.SymbolValue("full")
				pl.Steps[0].After = after
			},
			Error: "does not reproduce the recorded snapshot",
		},
		{
			Name:   "wrong goal marker",
			Tamper: func(pl *plan.Plan) { pl.Steps[0].GoalSatisfied = true },
			Error:  "marked goal_satisfied=true",
		},
		{
			Name:   "truncated",
			Tamper: func(pl *plan.Plan) { pl.Steps = pl.Steps[:1] },
			Error:  "does not satisfy the goal",
		},
		{
			Name: "inapplicable action",
			Tamper: func(pl *plan.Plan) {
				pl.Steps[1].Action = pl.Steps[0].Action
			},
			Error: "precondition of",
		},
		{
			Name: "wrong initial snapshot",
			Tamper: func(pl *plan.Plan) {
				init := pl.Initial.Clone()
				init["level(kettle)"] = f.SymbolValue("half")
				pl.Initial = init
			},
			Error: "not in the initial snapshot",
		},
		{
			Name:   "empty",
			Tamper: func(pl *plan.Plan) { pl.Steps = nil },
			Error:  "empty plan",
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			got := solve(t, p, 2)
			require.NoError(t, plan.Verify(p, got))
			tt.Tamper(got)
			err := plan.Verify(p, got)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.Error)
		})
	}
}

func TestRecords(t *testing.T) {
	p, err := scenarios.Kettle()
	require.NoError(t, err)
	got := solve(t, p, 2)

	records := got.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].StepIndex)
	assert.Equal(t, "fill", records[0].ActionName)
	assert.Len(t, records[0].BoundObjects, 1)
	assert.False(t, records[0].GoalSatisfied)
	assert.True(t, records[1].GoalSatisfied)

	raw, err := json.Marshal(records)
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded[0], "goal_satisfied")
	assert.Equal(t, true, decoded[1]["goal_satisfied"])
	assert.Equal(t, "full", decoded[1]["state_after"].(map[string]interface{})["cup(cup1)"])
	assert.Equal(t, "half", decoded[0]["state_after"].(map[string]interface{})["level(kettle)"])
}
