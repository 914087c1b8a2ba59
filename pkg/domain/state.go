package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/operator-framework/satplan/pkg/formula"
)

// State assigns a value to every ground fluent of a domain at one time
// step. States handed out by the planner are never mutated; use Clone
// to derive a modified copy.
type State map[Atom]formula.Value

// Clone returns a shallow copy of s.
func (s State) Clone() State {
	c := make(State, len(s))
	for a, v := range s {
		c[a] = v
	}
	return c
}

// Equal reports whether s and o assign identical values to identical
// atoms.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for a, v := range s {
		if w, ok := o[a]; !ok || w != v {
			return false
		}
	}
	return true
}

// Diff lists the atoms whose values differ between s and o, sorted.
func (s State) Diff(o State) []Atom {
	var atoms []Atom
	for a, v := range s {
		if w, ok := o[a]; !ok || w != v {
			atoms = append(atoms, a)
		}
	}
	for a := range o {
		if _, ok := s[a]; !ok {
			atoms = append(atoms, a)
		}
	}
	sort.Slice(atoms, func(i, j int) bool { return atoms[i] < atoms[j] })
	return atoms
}

func (s State) String() string {
	atoms := make([]string, 0, len(s))
	for a := range s {
		atoms = append(atoms, string(a))
	}
	sort.Strings(atoms)
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = fmt.Sprintf("%s=%s", a, s[Atom(a)])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Snapshot returns a State with every atom of d set to the value given
// in assignments, or an error naming missing or ill-sorted atoms.
func (d *Domain) Snapshot(assignments map[Atom]formula.Value) (State, error) {
	var c collector
	s := make(State, len(d.atoms))
	for _, g := range d.atoms {
		v, ok := assignments[g.Atom]
		if !ok {
			c.errorf("no value for %s", g.Atom)
			continue
		}
		if !g.Fluent.Sort.Contains(v) {
			c.errorf("value %s of %s is outside sort %s", v, g.Atom, g.Fluent.Sort)
			continue
		}
		s[g.Atom] = v
	}
	for a := range assignments {
		if _, ok := d.atomIdx[a]; !ok {
			c.errorf("%s is not a ground fluent of this domain", a)
		}
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return s, nil
}
