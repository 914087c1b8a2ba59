package domain

import (
	"fmt"
	"strings"

	"github.com/operator-framework/satplan/pkg/formula"
)

// Object is an opaque, immutable thing in the world. Type is used to
// restrict fluent and action parameters; the empty type matches only
// parameters that accept any object.
type Object struct {
	Name string
	Type string
}

// Fluent declares a time-varying property of Len(Params) objects.
// Params lists the object type accepted in each position; an empty
// type accepts every object.
type Fluent struct {
	Name   string
	Params []string
	Sort   formula.Sort
}

// Param is a typed action parameter. An empty Type accepts every
// object.
type Param struct {
	Name string
	Type string
}

// Effect assigns the value of Value, evaluated against the snapshot
// the action fires from, to Target in the following snapshot.
type Effect struct {
	Target formula.Fluent
	Value  formula.Term
}

func (e Effect) String() string {
	return fmt.Sprintf("%s := %s", e.Target, e.Value)
}

// ActionSchema is a named, parameterized precondition/effect template.
// A schema with no effects is a no-op.
type ActionSchema struct {
	Name         string
	Params       []Param
	Precondition formula.Formula
	Effects      []Effect
}

// Definition is the raw input to New.
type Definition struct {
	Name    string
	Objects []Object
	Fluents []Fluent
	Actions []ActionSchema
	// Invariants are ground formulas that must hold in every
	// snapshot, whichever action fired.
	Invariants []formula.Formula
}

// Atom identifies one ground fluent, rendered as name(obj,...).
type Atom string

// AtomOf returns the Atom of fluent applied to objects.
func AtomOf(fluent string, objects ...string) Atom {
	return Atom(fmt.Sprintf("%s(%s)", fluent, strings.Join(objects, ",")))
}

// GroundFluent is a declared fluent applied to concrete objects.
type GroundFluent struct {
	Atom    Atom
	Fluent  *Fluent
	Objects []string
}

// ActionInstance is an ActionSchema bound to concrete objects.
type ActionInstance struct {
	Schema *ActionSchema
	Args   []string
}

// Name returns the name of the instantiated schema.
func (a ActionInstance) Name() string {
	if a.Schema == nil {
		return ""
	}
	return a.Schema.Name
}

func (a ActionInstance) String() string {
	return fmt.Sprintf("%s(%s)", a.Name(), strings.Join(a.Args, ","))
}

// Binding maps parameter names to object names.
func (a ActionInstance) Binding() map[string]string {
	b := make(map[string]string, len(a.Args))
	if a.Schema == nil {
		return b
	}
	for i, p := range a.Schema.Params {
		if i < len(a.Args) {
			b[p.Name] = a.Args[i]
		}
	}
	return b
}

// Domain is a validated, read-only planning domain.
type Domain struct {
	name       string
	objects    []Object
	objectIdx  map[string]int
	fluents    []Fluent
	fluentIdx  map[string]int
	actions    []ActionSchema
	actionIdx  map[string]int
	invariants []formula.Formula
	atoms      []GroundFluent
	atomIdx    map[Atom]int
	instances  []ActionInstance
}

func (d *Domain) Name() string {
	return d.name
}

func (d *Domain) Objects() []Object {
	return append([]Object(nil), d.objects...)
}

func (d *Domain) Fluents() []Fluent {
	return append([]Fluent(nil), d.fluents...)
}

func (d *Domain) Actions() []ActionSchema {
	return append([]ActionSchema(nil), d.actions...)
}

func (d *Domain) Invariants() []formula.Formula {
	return append([]formula.Formula(nil), d.invariants...)
}

// Atoms lists every ground fluent in declaration order: fluents in the
// order they were declared, objects in the order they were declared.
func (d *Domain) Atoms() []GroundFluent {
	return append([]GroundFluent(nil), d.atoms...)
}

// Instances lists every typed binding of every action schema, in
// schema declaration order.
func (d *Domain) Instances() []ActionInstance {
	return append([]ActionInstance(nil), d.instances...)
}

// Object returns the object with the given name.
func (d *Domain) Object(name string) (Object, bool) {
	i, ok := d.objectIdx[name]
	if !ok {
		return Object{}, false
	}
	return d.objects[i], true
}

// Fluent returns the declaration of the named fluent.
func (d *Domain) Fluent(name string) (*Fluent, bool) {
	i, ok := d.fluentIdx[name]
	if !ok {
		return nil, false
	}
	return &d.fluents[i], true
}

// Action returns the named action schema.
func (d *Domain) Action(name string) (*ActionSchema, bool) {
	i, ok := d.actionIdx[name]
	if !ok {
		return nil, false
	}
	return &d.actions[i], true
}

// Atom returns the ground fluent identified by a.
func (d *Domain) Atom(a Atom) (GroundFluent, bool) {
	i, ok := d.atomIdx[a]
	if !ok {
		return GroundFluent{}, false
	}
	return d.atoms[i], true
}

// Instance binds the named schema to args, checking arity and types.
func (d *Domain) Instance(name string, args ...string) (ActionInstance, error) {
	schema, ok := d.Action(name)
	if !ok {
		return ActionInstance{}, fmt.Errorf("unknown action %q", name)
	}
	if len(args) != len(schema.Params) {
		return ActionInstance{}, fmt.Errorf("action %s takes %d arguments, got %d", name, len(schema.Params), len(args))
	}
	for i, arg := range args {
		o, ok := d.Object(arg)
		if !ok {
			return ActionInstance{}, fmt.Errorf("unknown object %q", arg)
		}
		if !accepts(schema.Params[i].Type, o) {
			return ActionInstance{}, fmt.Errorf("object %s of type %q cannot bind parameter %s of type %q", o.Name, o.Type, schema.Params[i].Name, schema.Params[i].Type)
		}
	}
	return ActionInstance{Schema: schema, Args: append([]string(nil), args...)}, nil
}

// Resolve grounds a fluent reference under binding, which supplies the
// objects of parameter arguments.
func (d *Domain) Resolve(ref formula.Fluent, binding map[string]string) (Atom, error) {
	fluent, ok := d.Fluent(ref.Name)
	if !ok {
		return "", fmt.Errorf("undeclared fluent %q", ref.Name)
	}
	if len(ref.Args) != len(fluent.Params) {
		return "", fmt.Errorf("fluent %s takes %d objects, got %d in %s", fluent.Name, len(fluent.Params), len(ref.Args), ref)
	}
	objects := make([]string, len(ref.Args))
	for i, arg := range ref.Args {
		name := arg.Name
		if arg.Param {
			bound, ok := binding[arg.Name]
			if !ok {
				return "", fmt.Errorf("unbound parameter %s in %s", arg, ref)
			}
			name = bound
		}
		objects[i] = name
	}
	atom := AtomOf(fluent.Name, objects...)
	if _, ok := d.atomIdx[atom]; !ok {
		return "", fmt.Errorf("%s is not a ground fluent of this domain", atom)
	}
	return atom, nil
}

func accepts(typ string, o Object) bool {
	return typ == "" || typ == o.Type
}

// objectsOf lists the names of objects accepted by typ.
func (d *Domain) objectsOf(typ string) []string {
	var names []string
	for _, o := range d.objects {
		if accepts(typ, o) {
			names = append(names, o.Name)
		}
	}
	return names
}

// product enumerates the cartesian product of choices in lexicographic
// order.
func product(choices [][]string) [][]string {
	result := [][]string{{}}
	for _, options := range choices {
		var next [][]string
		for _, prefix := range result {
			for _, o := range options {
				tuple := append(append([]string(nil), prefix...), o)
				next = append(next, tuple)
			}
		}
		result = next
	}
	return result
}
