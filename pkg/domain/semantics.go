package domain

import (
	"fmt"

	"github.com/operator-framework/satplan/pkg/formula"
)

// lookup resolves fluent references against s under binding.
func (d *Domain) lookup(s State, binding map[string]string) formula.Lookup {
	return func(ref formula.Fluent) (formula.Value, error) {
		atom, err := d.Resolve(ref, binding)
		if err != nil {
			return formula.Value{}, err
		}
		v, ok := s[atom]
		if !ok {
			return formula.Value{}, fmt.Errorf("state has no value for %s", atom)
		}
		return v, nil
	}
}

// Holds evaluates a ground formula against s.
func (d *Domain) Holds(f formula.Formula, s State) (bool, error) {
	return formula.EvalFormula(f, d.lookup(s, nil))
}

// InvariantsHold reports whether every domain invariant holds in s.
func (d *Domain) InvariantsHold(s State) (bool, error) {
	for _, inv := range d.invariants {
		ok, err := d.Holds(inv, s)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Applicable reports whether the precondition of a holds in s.
func (d *Domain) Applicable(a ActionInstance, s State) (bool, error) {
	if a.Schema == nil {
		return false, fmt.Errorf("action instance has no schema")
	}
	return formula.EvalFormula(a.Schema.Precondition, d.lookup(s, a.Binding()))
}

// Targets returns the atoms assigned by the effects of a.
func (d *Domain) Targets(a ActionInstance) ([]Atom, error) {
	if a.Schema == nil {
		return nil, fmt.Errorf("action instance has no schema")
	}
	binding := a.Binding()
	atoms := make([]Atom, 0, len(a.Schema.Effects))
	for _, e := range a.Schema.Effects {
		atom, err := d.Resolve(e.Target, binding)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		atoms = append(atoms, atom)
	}
	return atoms, nil
}

// Apply fires a from s and returns the successor snapshot. Every effect
// is evaluated against s; atoms not targeted by an effect keep their
// value. Apply fails when the precondition does not hold, when an effect
// leaves its fluent's sort, or when two effects assign different values
// to the same atom.
func (d *Domain) Apply(a ActionInstance, s State) (State, error) {
	ok, err := d.Applicable(a, s)
	if err != nil {
		return nil, fmt.Errorf("evaluating precondition of %s: %w", a, err)
	}
	if !ok {
		return nil, fmt.Errorf("precondition of %s does not hold in %s", a, s)
	}
	targets, err := d.Targets(a)
	if err != nil {
		return nil, err
	}

	binding := a.Binding()
	lookup := d.lookup(s, binding)
	next := s.Clone()
	assigned := make(map[Atom]formula.Value, len(targets))
	for i, e := range a.Schema.Effects {
		v, err := formula.EvalTerm(e.Value, lookup)
		if err != nil {
			return nil, fmt.Errorf("evaluating effect %s of %s: %w", e, a, err)
		}
		atom := targets[i]
		g, _ := d.Atom(atom)
		if !g.Fluent.Sort.Contains(v) {
			return nil, fmt.Errorf("effect %s of %s yields %s, outside sort %s", e, a, v, g.Fluent.Sort)
		}
		if prev, ok := assigned[atom]; ok && prev != v {
			return nil, fmt.Errorf("effects of %s assign both %s and %s to %s", a, prev, v, atom)
		}
		assigned[atom] = v
		next[atom] = v
	}
	return next, nil
}
