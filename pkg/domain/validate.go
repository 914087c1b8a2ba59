package domain

import (
	"github.com/operator-framework/satplan/pkg/formula"
	"k8s.io/apimachinery/pkg/util/sets"
)

// New validates def and returns the corresponding Domain. Every
// problem found is reported in a single *DomainError.
func New(def Definition) (*Domain, error) {
	d := &Domain{
		name:      def.Name,
		objectIdx: make(map[string]int, len(def.Objects)),
		fluentIdx: make(map[string]int, len(def.Fluents)),
		actionIdx: make(map[string]int, len(def.Actions)),
		atomIdx:   make(map[Atom]int),
	}
	v := &validator{d: d}

	for _, o := range def.Objects {
		if o.Name == "" {
			v.errorf("object with empty name")
			continue
		}
		if _, ok := d.objectIdx[o.Name]; ok {
			v.errorf("duplicate object %q", o.Name)
			continue
		}
		d.objectIdx[o.Name] = len(d.objects)
		d.objects = append(d.objects, o)
	}

	for _, f := range def.Fluents {
		if f.Name == "" {
			v.errorf("fluent with empty name")
			continue
		}
		if _, ok := d.fluentIdx[f.Name]; ok {
			v.errorf("duplicate fluent %q", f.Name)
			continue
		}
		if f.Sort == nil {
			v.errorf("fluent %s has no value domain", f.Name)
			continue
		}
		if err := f.Sort.Validate(); err != nil {
			v.errorf("fluent %s: %v", f.Name, err)
			continue
		}
		f.Params = append([]string(nil), f.Params...)
		d.fluentIdx[f.Name] = len(d.fluents)
		d.fluents = append(d.fluents, f)
	}

	for i := range d.fluents {
		f := &d.fluents[i]
		choices := make([][]string, len(f.Params))
		for j, typ := range f.Params {
			choices[j] = d.objectsOf(typ)
		}
		for _, objects := range product(choices) {
			atom := AtomOf(f.Name, objects...)
			d.atomIdx[atom] = len(d.atoms)
			d.atoms = append(d.atoms, GroundFluent{Atom: atom, Fluent: f, Objects: objects})
		}
	}

	if len(def.Actions) == 0 {
		v.errorf("no action schemas declared")
	}
	for _, a := range def.Actions {
		if a.Name == "" {
			v.errorf("action with empty name")
			continue
		}
		if _, ok := d.actionIdx[a.Name]; ok {
			v.errorf("duplicate action %q", a.Name)
			continue
		}
		if a.Precondition == nil {
			a.Precondition = formula.True
		}
		a.Params = append([]Param(nil), a.Params...)
		a.Effects = append([]Effect(nil), a.Effects...)
		v.checkAction(&a)
		d.actionIdx[a.Name] = len(d.actions)
		d.actions = append(d.actions, a)
	}

	for _, inv := range def.Invariants {
		v.checkFormula("invariant", inv, nil)
		d.invariants = append(d.invariants, inv)
	}

	for i := range d.actions {
		a := &d.actions[i]
		choices := make([][]string, len(a.Params))
		for j, p := range a.Params {
			choices[j] = d.objectsOf(p.Type)
		}
		for _, args := range product(choices) {
			d.instances = append(d.instances, ActionInstance{Schema: a, Args: args})
		}
	}
	if len(d.actions) > 0 && len(d.instances) == 0 {
		v.errorf("no action schema can be bound to the declared objects")
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return d, nil
}

type validator struct {
	collector
	d *Domain
}

// scope maps parameter names to their declared types. A nil scope
// admits no parameters.
type scope map[string]string

func (v *validator) checkAction(a *ActionSchema) {
	params := make(scope, len(a.Params))
	for _, p := range a.Params {
		if p.Name == "" {
			v.errorf("action %s: parameter with empty name", a.Name)
			continue
		}
		if _, ok := params[p.Name]; ok {
			v.errorf("action %s: duplicate parameter %q", a.Name, p.Name)
			continue
		}
		params[p.Name] = p.Type
	}

	where := "action " + a.Name
	v.checkFormula(where+" precondition", a.Precondition, params)

	targets := sets.New[string]()
	for _, e := range a.Effects {
		at := where + " effect " + e.String()
		fluent, ok := v.checkRef(at, e.Target, params)
		if !ok {
			continue
		}
		if targets.Has(e.Target.String()) {
			v.errorf("%s: %s is assigned more than once", at, e.Target)
		}
		targets.Insert(e.Target.String())
		typ, ok := v.termType(at, e.Value, params)
		if !ok {
			continue
		}
		if typ.kind != fluent.Sort.Kind() {
			v.errorf("%s: cannot assign a %s to %s of sort %s", at, typ.kind, e.Target, fluent.Sort)
			continue
		}
		if c, isConst := e.Value.(formula.Const); isConst && !fluent.Sort.Contains(c.Value) {
			v.errorf("%s: %s is outside sort %s", at, c.Value, fluent.Sort)
		}
	}
}

// checkRef verifies that ref names a declared fluent with the right
// arity and that each argument is a declared object or an in-scope
// parameter of an acceptable type.
func (v *validator) checkRef(where string, ref formula.Fluent, params scope) (*Fluent, bool) {
	fluent, ok := v.d.Fluent(ref.Name)
	if !ok {
		v.errorf("%s: undeclared fluent %q", where, ref.Name)
		return nil, false
	}
	if len(ref.Args) != len(fluent.Params) {
		v.errorf("%s: fluent %s takes %d objects, got %d in %s", where, fluent.Name, len(fluent.Params), len(ref.Args), ref)
		return nil, false
	}
	valid := true
	for i, arg := range ref.Args {
		want := fluent.Params[i]
		if arg.Param {
			typ, ok := params[arg.Name]
			switch {
			case !ok:
				v.errorf("%s: undeclared parameter %s", where, arg)
				valid = false
			case want != "" && typ != want:
				v.errorf("%s: parameter %s of type %q cannot fill position %d of %s, which requires %q", where, arg, typ, i+1, fluent.Name, want)
				valid = false
			}
			continue
		}
		o, ok := v.d.Object(arg.Name)
		switch {
		case !ok:
			v.errorf("%s: undeclared object %q", where, arg.Name)
			valid = false
		case !accepts(want, o):
			v.errorf("%s: object %s of type %q cannot fill position %d of %s, which requires %q", where, o.Name, o.Type, i+1, fluent.Name, want)
			valid = false
		}
	}
	return fluent, valid
}

type termType struct {
	kind formula.Kind
	// sort is set when the term takes its values from a declared
	// fluent.
	sort formula.Sort
	// constant is set for literal terms.
	constant *formula.Value
}

func (v *validator) termType(where string, t formula.Term, params scope) (termType, bool) {
	switch t := t.(type) {
	case formula.Const:
		if !t.Value.IsValid() {
			v.errorf("%s: invalid constant", where)
			return termType{}, false
		}
		value := t.Value
		return termType{kind: value.Kind(), constant: &value}, true
	case formula.Fluent:
		fluent, ok := v.checkRef(where, t, params)
		if !ok {
			return termType{}, false
		}
		return termType{kind: fluent.Sort.Kind(), sort: fluent.Sort}, true
	case formula.Var:
		v.errorf("%s: solver symbol %s is not allowed in a domain", where, t.Symbol)
		return termType{}, false
	case formula.Arith:
		l, lok := v.termType(where, t.L, params)
		r, rok := v.termType(where, t.R, params)
		if !lok || !rok {
			return termType{}, false
		}
		if l.kind != formula.KindInt || r.kind != formula.KindInt {
			v.errorf("%s: arithmetic on non-integer operands in %s", where, t)
			return termType{}, false
		}
		return termType{kind: formula.KindInt}, true
	case formula.Ite:
		cok := v.checkFormula(where, t.Cond, params)
		a, aok := v.termType(where, t.Then, params)
		b, bok := v.termType(where, t.Else, params)
		if !cok || !aok || !bok {
			return termType{}, false
		}
		if a.kind != b.kind {
			v.errorf("%s: branches of %s have different kinds %s and %s", where, t, a.kind, b.kind)
			return termType{}, false
		}
		if a.sort == nil {
			a.sort = b.sort
		}
		a.constant = nil
		return a, true
	case nil:
		v.errorf("%s: missing term", where)
		return termType{}, false
	}
	v.errorf("%s: unsupported term %T", where, t)
	return termType{}, false
}

func (v *validator) checkFormula(where string, f formula.Formula, params scope) bool {
	switch f := f.(type) {
	case formula.Truth:
		return true
	case formula.Holds:
		typ, ok := v.termType(where, f.Term, params)
		if ok && typ.kind != formula.KindBool {
			v.errorf("%s: %s is not boolean", where, f.Term)
			return false
		}
		return ok
	case formula.Compare:
		l, lok := v.termType(where, f.L, params)
		r, rok := v.termType(where, f.R, params)
		if !lok || !rok {
			return false
		}
		if l.kind != r.kind {
			v.errorf("%s: cannot compare %s with %s in %s", where, l.kind, r.kind, f)
			return false
		}
		if f.Op.Ordered() && l.kind != formula.KindInt {
			v.errorf("%s: operator %s requires integers in %s", where, f.Op, f)
			return false
		}
		for _, pair := range [][2]termType{{l, r}, {r, l}} {
			if c, s := pair[0].constant, pair[1].sort; c != nil && s != nil && c.Kind() != formula.KindInt && !s.Contains(*c) {
				v.errorf("%s: %s is not a member of %s in %s", where, c, s, f)
				return false
			}
		}
		return true
	case formula.Not:
		return v.checkFormula(where, f.F, params)
	case formula.And:
		return v.checkAll(where, f, params)
	case formula.Or:
		return v.checkAll(where, f, params)
	case formula.ExactlyOne:
		return v.checkAll(where, f, params)
	case formula.Xor:
		l := v.checkFormula(where, f.L, params)
		r := v.checkFormula(where, f.R, params)
		return l && r
	case formula.Implies:
		l := v.checkFormula(where, f.If, params)
		r := v.checkFormula(where, f.Then, params)
		return l && r
	case nil:
		v.errorf("%s: missing formula", where)
		return false
	}
	v.errorf("%s: unsupported formula %T", where, f)
	return false
}

func (v *validator) checkAll(where string, fs []formula.Formula, params scope) bool {
	ok := true
	for _, f := range fs {
		if !v.checkFormula(where, f, params) {
			ok = false
		}
	}
	return ok
}
