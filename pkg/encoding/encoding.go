// Package encoding translates a planning problem and a horizon into
// solver assertions. Snapshot k of the world is a set of symbols, one
// per ground fluent, and the action fired between snapshots k and k+1
// is picked by exactly one boolean selector.
package encoding

import (
	"errors"
	"fmt"

	"github.com/operator-framework/satplan/pkg/domain"
	"github.com/operator-framework/satplan/pkg/formula"
	"github.com/operator-framework/satplan/pkg/solver"
)

// ErrHorizon is returned for horizons below one.
var ErrHorizon = errors.New("horizon must be at least 1")

// EncodingError reports a failure to ground or assert part of a
// problem that passed domain validation. It indicates a defect rather
// than a property of the input.
type EncodingError struct {
	Horizon int
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding at horizon %d: %v", e.Horizon, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IsEncodingError reports whether err is or wraps an *EncodingError.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}

// StateSymbol names the value of atom in snapshot step.
func StateSymbol(atom domain.Atom, step int) formula.Symbol {
	return formula.Symbol(fmt.Sprintf("%s@%d", atom, step))
}

// SelectorSymbol names the boolean that is true when a fires between
// snapshots step and step+1.
func SelectorSymbol(a domain.ActionInstance, step int) formula.Symbol {
	return formula.Symbol(fmt.Sprintf("do(%s)@%d", a, step))
}

// Encoding describes the symbols a problem was encoded into.
type Encoding struct {
	problem    *domain.Problem
	horizon    int
	atoms      []domain.GroundFluent
	instances  []domain.ActionInstance
	symbols    int
	assertions int
}

func (e *Encoding) Problem() *domain.Problem {
	return e.problem
}

// Horizon is the number of action steps; snapshots run from 0 to
// Horizon inclusive.
func (e *Encoding) Horizon() int {
	return e.horizon
}

func (e *Encoding) Atoms() []domain.GroundFluent {
	return e.atoms
}

func (e *Encoding) Instances() []domain.ActionInstance {
	return e.instances
}

// Symbols is the number of declared solver symbols.
func (e *Encoding) Symbols() int {
	return e.symbols
}

// Assertions is the number of asserted formulas.
func (e *Encoding) Assertions() int {
	return e.assertions
}

type encoder struct {
	*Encoding
	s solver.Solver
}

// Encode declares and asserts the bounded transition system of p over
// horizon steps into s:
//
//   - one symbol per ground fluent and snapshot 0..horizon, ranging over
//     the fluent's sort;
//   - one selector per action instance and step 0..horizon-1, with
//     exactly one selector true per step;
//   - a selected instance implies its precondition at its step, each of
//     its effects at the next step, and that every atom it does not
//     assign keeps its value;
//   - the initial snapshot, the domain invariants at every snapshot,
//     and the goal at some snapshot 1..horizon.
func Encode(p *domain.Problem, horizon int, s solver.Solver) (*Encoding, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrHorizon, horizon)
	}
	e := &encoder{
		Encoding: &Encoding{
			problem:   p,
			horizon:   horizon,
			atoms:     p.Domain.Atoms(),
			instances: p.Domain.Instances(),
		},
		s: s,
	}
	if err := e.encode(); err != nil {
		return nil, &EncodingError{Horizon: horizon, Err: err}
	}
	return e.Encoding, nil
}

func (e *encoder) encode() error {
	for step := 0; step <= e.horizon; step++ {
		for _, g := range e.atoms {
			if err := e.declare(StateSymbol(g.Atom, step), g.Fluent.Sort); err != nil {
				return err
			}
		}
	}
	for step := 0; step < e.horizon; step++ {
		for _, a := range e.instances {
			if err := e.declare(SelectorSymbol(a, step), formula.BoolSort{}); err != nil {
				return err
			}
		}
	}

	for step := 0; step < e.horizon; step++ {
		selectors := make([]formula.Formula, len(e.instances))
		for i, a := range e.instances {
			selectors[i] = formula.Prop(SelectorSymbol(a, step))
		}
		if err := e.assert(formula.ExactlyOne(selectors)); err != nil {
			return err
		}
		for _, a := range e.instances {
			if err := e.transition(a, step); err != nil {
				return fmt.Errorf("%s at step %d: %w", a, step, err)
			}
		}
	}

	for _, g := range e.atoms {
		v := e.problem.Init[g.Atom]
		if err := e.assert(formula.Eq(formula.Var{Symbol: StateSymbol(g.Atom, 0)}, formula.Const{Value: v})); err != nil {
			return fmt.Errorf("initial value of %s: %w", g.Atom, err)
		}
	}

	for step := 0; step <= e.horizon; step++ {
		for _, inv := range e.problem.Domain.Invariants() {
			f, err := formula.Rewrite(inv, e.at(step, nil))
			if err != nil {
				return fmt.Errorf("invariant %s: %w", inv, err)
			}
			if err := e.assert(f); err != nil {
				return fmt.Errorf("invariant %s at step %d: %w", inv, step, err)
			}
		}
	}

	goals := make([]formula.Formula, 0, e.horizon)
	for step := 1; step <= e.horizon; step++ {
		f, err := formula.Rewrite(e.problem.Goal, e.at(step, nil))
		if err != nil {
			return fmt.Errorf("goal: %w", err)
		}
		goals = append(goals, f)
	}
	if err := e.assert(formula.Or(goals)); err != nil {
		return fmt.Errorf("goal: %w", err)
	}
	return nil
}

// transition asserts what selecting a at step implies.
func (e *encoder) transition(a domain.ActionInstance, step int) error {
	sel := formula.Prop(SelectorSymbol(a, step))
	binding := a.Binding()

	pre, err := formula.Rewrite(a.Schema.Precondition, e.at(step, binding))
	if err != nil {
		return fmt.Errorf("precondition: %w", err)
	}
	if err := e.assert(formula.Implies{If: sel, Then: pre}); err != nil {
		return fmt.Errorf("precondition: %w", err)
	}

	targets, err := e.problem.Domain.Targets(a)
	if err != nil {
		return err
	}
	touched := make(map[domain.Atom]struct{}, len(targets))
	for i, eff := range a.Schema.Effects {
		value, err := formula.RewriteTerm(eff.Value, e.at(step, binding))
		if err != nil {
			return fmt.Errorf("effect %s: %w", eff, err)
		}
		next := formula.Var{Symbol: StateSymbol(targets[i], step+1)}
		if err := e.assert(formula.Implies{If: sel, Then: formula.Eq(next, value)}); err != nil {
			return fmt.Errorf("effect %s: %w", eff, err)
		}
		touched[targets[i]] = struct{}{}
	}

	for _, g := range e.atoms {
		if _, ok := touched[g.Atom]; ok {
			continue
		}
		frame := formula.Eq(
			formula.Var{Symbol: StateSymbol(g.Atom, step+1)},
			formula.Var{Symbol: StateSymbol(g.Atom, step)},
		)
		if err := e.assert(formula.Implies{If: sel, Then: frame}); err != nil {
			return fmt.Errorf("frame of %s: %w", g.Atom, err)
		}
	}
	return nil
}

// at substitutes fluent references with the symbols of snapshot step,
// resolving parameters through binding.
func (e *encoder) at(step int, binding map[string]string) formula.Substitution {
	return func(ref formula.Fluent) (formula.Term, error) {
		atom, err := e.problem.Domain.Resolve(ref, binding)
		if err != nil {
			return nil, err
		}
		return formula.Var{Symbol: StateSymbol(atom, step)}, nil
	}
}

func (e *encoder) declare(name formula.Symbol, sort formula.Sort) error {
	if err := e.s.Declare(name, sort); err != nil {
		return err
	}
	e.symbols++
	return nil
}

func (e *encoder) assert(f formula.Formula) error {
	if err := e.s.Assert(f); err != nil {
		return err
	}
	e.assertions++
	return nil
}
