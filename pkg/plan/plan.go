// Package plan decodes solver models into action sequences and checks
// those sequences against the domain semantics without a solver.
package plan

import (
	"fmt"
	"strings"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/encoding"
	"github.com/operator-framework/satplan/pkg/solver"
)

// Step is one fired action together with the snapshots around it.
type Step struct {
	Index         int
	Action        domain.ActionInstance
	Before        domain.State
	After         domain.State
	GoalSatisfied bool
}

// Plan is an ordered sequence of steps. Steps[i].After equals
// Steps[i+1].Before, and only the last step satisfies the goal.
type Plan struct {
	// Horizon is the horizon of the encoding the plan was read from.
	// It may exceed len(Steps) when the goal was reached early.
	Horizon int
	Initial domain.State
	Steps   []Step
}

// Len returns the number of actions in the plan.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Actions lists the fired action instances in order.
func (p *Plan) Actions() []domain.ActionInstance {
	as := make([]domain.ActionInstance, len(p.Steps))
	for i, s := range p.Steps {
		as[i] = s.Action
	}
	return as
}

// Final returns the last snapshot of the plan.
func (p *Plan) Final() domain.State {
	if len(p.Steps) == 0 {
		return p.Initial
	}
	return p.Steps[len(p.Steps)-1].After
}

func (p *Plan) String() string {
	var b strings.Builder
	for _, s := range p.Steps {
		fmt.Fprintf(&b, "%d: %s\n", s.Index, s.Action)
	}
	return b.String()
}

// Record is the serialized form of a Step.
type Record struct {
	StepIndex     int          `json:"step_index"`
	ActionName    string       `json:"action_name"`
	BoundObjects  []string     `json:"bound_objects"`
	StateBefore   domain.State `json:"state_before"`
	StateAfter    domain.State `json:"state_after"`
	GoalSatisfied bool         `json:"goal_satisfied,omitempty"`
}

// Records renders the plan one record per step.
func (p *Plan) Records() []Record {
	rs := make([]Record, len(p.Steps))
	for i, s := range p.Steps {
		objects := s.Action.Args
		if objects == nil {
			objects = []string{}
		}
		rs[i] = Record{
			StepIndex:     s.Index,
			ActionName:    s.Action.Name(),
			BoundObjects:  objects,
			StateBefore:   s.Before,
			StateAfter:    s.After,
			GoalSatisfied: s.GoalSatisfied,
		}
	}
	return rs
}

// Extract reads a plan from a session whose last Check over enc was
// satisfiable. The plan ends at the first snapshot that satisfies the
// goal. A model that does not select exactly one action per step, or
// that never reaches the goal, is reported as an *encoding.EncodingError.
func Extract(enc *encoding.Encoding, s solver.Solver) (*Plan, error) {
	fail := func(format string, args ...interface{}) error {
		return &encoding.EncodingError{Horizon: enc.Horizon(), Err: fmt.Errorf(format, args...)}
	}

	snapshots := make([]domain.State, enc.Horizon()+1)
	for step := range snapshots {
		state := make(domain.State, len(enc.Atoms()))
		for _, g := range enc.Atoms() {
			v, err := s.Evaluate(encoding.StateSymbol(g.Atom, step))
			if err != nil {
				return nil, fail("reading %s at step %d: %w", g.Atom, step, err)
			}
			state[g.Atom] = v
		}
		snapshots[step] = state
	}

	p := &Plan{Horizon: enc.Horizon(), Initial: snapshots[0]}
	problem := enc.Problem()
	for step := 0; step < enc.Horizon(); step++ {
		var selected []domain.ActionInstance
		for _, a := range enc.Instances() {
			v, err := s.Evaluate(encoding.SelectorSymbol(a, step))
			if err != nil {
				return nil, fail("reading selector of %s at step %d: %w", a, step, err)
			}
			if b, _ := v.Bool(); b {
				selected = append(selected, a)
			}
		}
		if len(selected) != 1 {
			return nil, fail("model selects %d actions at step %d", len(selected), step)
		}

		goal, err := problem.Satisfied(snapshots[step+1])
		if err != nil {
			return nil, fail("evaluating goal at step %d: %w", step+1, err)
		}
		p.Steps = append(p.Steps, Step{
			Index:         step,
			Action:        selected[0],
			Before:        snapshots[step],
			After:         snapshots[step+1],
			GoalSatisfied: goal,
		})
		if goal {
			return p, nil
		}
	}
	return nil, fail("no snapshot of the model satisfies the goal")
}

// Replay fires actions in order from init and returns every snapshot,
// init first. It fails at the first inapplicable action.
func Replay(d *domain.Domain, init domain.State, actions []domain.ActionInstance) ([]domain.State, error) {
	states := make([]domain.State, 0, len(actions)+1)
	states = append(states, init)
	current := init
	for i, a := range actions {
		next, err := d.Apply(a, current)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		states = append(states, next)
		current = next
	}
	return states, nil
}

// Verify checks p against the semantics of problem alone: it starts in
// the initial snapshot, every action is applicable where it fires and
// reproduces the recorded successor exactly, every snapshot satisfies
// the domain invariants, and the goal holds at the last snapshot and
// nowhere before it.
func Verify(problem *domain.Problem, p *Plan) error {
	if p == nil || len(p.Steps) == 0 {
		return fmt.Errorf("empty plan")
	}
	if !p.Initial.Equal(problem.Init) {
		return fmt.Errorf("plan starts in %s, not in the initial snapshot %s", p.Initial, problem.Init)
	}
	states, err := Replay(problem.Domain, problem.Init, p.Actions())
	if err != nil {
		return err
	}
	for i, s := range states {
		ok, err := problem.Domain.InvariantsHold(s)
		if err != nil {
			return fmt.Errorf("snapshot %d: %w", i, err)
		}
		if !ok {
			return fmt.Errorf("snapshot %d violates an invariant: %s", i, s)
		}
	}
	for i, step := range p.Steps {
		if step.Index != i {
			return fmt.Errorf("step %d is numbered %d", i, step.Index)
		}
		if !step.Before.Equal(states[i]) {
			return fmt.Errorf("step %d starts from %s, replay gives %s", i, step.Before, states[i])
		}
		if diff := step.After.Diff(states[i+1]); len(diff) > 0 {
			return fmt.Errorf("step %d: %s does not reproduce the recorded snapshot on %v", i, step.Action, diff)
		}
		goal, err := problem.Satisfied(step.After)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		last := i == len(p.Steps)-1
		switch {
		case goal != step.GoalSatisfied:
			return fmt.Errorf("step %d is marked goal_satisfied=%t but the goal evaluates to %t", i, step.GoalSatisfied, goal)
		case last && !goal:
			return fmt.Errorf("final snapshot %s does not satisfy the goal", step.After)
		case !last && goal:
			return fmt.Errorf("goal is already satisfied after step %d", i)
		}
	}
	return nil
}
