package domain

import (
	"github.com/operator-framework/satplan/pkg/formula"
)

// Problem pairs a Domain with an initial snapshot and a goal. It is
// read-only once constructed.
type Problem struct {
	Domain *Domain
	Init   State
	Goal   formula.Formula
}

// NewProblem validates init and goal against d. The initial snapshot
// must assign every ground fluent a value of its sort; the goal must
// be ground and well-typed.
func NewProblem(d *Domain, init map[Atom]formula.Value, goal formula.Formula) (*Problem, error) {
	v := &validator{d: d}
	state, err := d.Snapshot(init)
	if err != nil {
		if de, ok := err.(*DomainError); ok {
			v.errs = append(v.errs, de.Errs...)
		} else {
			v.errs = append(v.errs, err)
		}
	}
	v.checkFormula("goal", goal, nil)
	if err := v.err(); err != nil {
		return nil, err
	}
	return &Problem{Domain: d, Init: state, Goal: goal}, nil
}

// Satisfied reports whether the goal holds in s.
func (p *Problem) Satisfied(s State) (bool, error) {
	return p.Domain.Holds(p.Goal, s)
}
