// Package description reads planning problems from YAML or JSON
// documents. Conditions and values are written as CEL expressions:
//
//	pre: 'level(kettle) != empty && cup(c) == empty'
//	effects:
//	- set: level(kettle)
//	  to: 'level(kettle) == full ? half : empty'
//
// Besides the CEL operators, the global functions implies(a, b),
// xor(a, b) and exactly_one(a, ...) are understood. A call to any other
// function is a fluent reference.
package description

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/hashstructure"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/operator-framework/satplan/pkg/domain"
	f "github.com/operator-framework/satplan/pkg/formula"
	"github.com/operator-framework/satplan/pkg/search"
)

type Description struct {
	Name       string   `json:"name"`
	Objects    []Object `json:"objects"`
	Fluents    []Fluent `json:"fluents"`
	Actions    []Action `json:"actions"`
	Invariants []string `json:"invariants,omitempty"`
	// Init lists one ground equality per fluent instance, for example
	// "cup(cup1) == empty". A bare boolean fluent means it is true.
	Init   []string `json:"init"`
	Goal   string   `json:"goal"`
	Search *Search  `json:"search,omitempty"`
}

type Object struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Fluent declares a fluent. Exactly one of Int, Enum and Bool must be
// set.
type Fluent struct {
	Name   string    `json:"name"`
	Params []string  `json:"params,omitempty"`
	Int    *IntRange `json:"int,omitempty"`
	Enum   []string  `json:"enum,omitempty"`
	Bool   bool      `json:"bool,omitempty"`
}

type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type Action struct {
	Name    string   `json:"name"`
	Params  []Param  `json:"params,omitempty"`
	Pre     string   `json:"pre,omitempty"`
	Effects []Effect `json:"effects,omitempty"`
}

type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type Effect struct {
	Set string `json:"set"`
	To  string `json:"to"`
}

// Search holds search settings carried by the document. Absent fields
// are nil, so an explicit zero reaches search.Config.Validate.
type Search struct {
	MinHorizon     *int   `json:"minHorizon,omitempty"`
	MaxHorizon     *int   `json:"maxHorizon,omitempty"`
	AttemptTimeout string `json:"attemptTimeout,omitempty"`
	UnknownRetries *int   `json:"unknownRetries,omitempty"`
	Parallelism    *int   `json:"parallelism,omitempty"`
	Backend        string `json:"backend,omitempty"`
}

// Config lays the fields s sets over search.DefaultConfig.
func (s *Search) Config() (search.Config, error) {
	c := search.DefaultConfig()
	if s == nil {
		return c, nil
	}
	for _, field := range []struct {
		from *int
		to   *int
	}{
		{s.MinHorizon, &c.MinHorizon},
		{s.MaxHorizon, &c.MaxHorizon},
		{s.UnknownRetries, &c.UnknownRetries},
		{s.Parallelism, &c.Parallelism},
	} {
		if field.from != nil {
			*field.to = *field.from
		}
	}
	if s.Backend != "" {
		c.Backend = s.Backend
	}
	if s.AttemptTimeout != "" {
		d, err := time.ParseDuration(s.AttemptTimeout)
		if err != nil {
			return c, errors.Wrap(err, "search.attemptTimeout")
		}
		c.AttemptTimeout = d
	}
	return c, nil
}

// Load reads a description from a YAML or JSON file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	d, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return d, nil
}

// Decode parses a YAML or JSON document. Unknown fields are rejected.
func Decode(data []byte) (*Description, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var d Description
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Fingerprint identifies the content of d.
func (d *Description) Fingerprint() (string, error) {
	h, err := hashstructure.Hash(d, nil)
	if err != nil {
		return "", errors.Wrap(err, "hashing description")
	}
	return fmt.Sprintf("%016x", h), nil
}

// Problem builds and validates the problem described by d. Expression
// syntax errors and domain errors are all reported in one
// *domain.DomainError.
func (d *Description) Problem() (*domain.Problem, error) {
	p, err := newParser()
	if err != nil {
		return nil, err
	}
	b := &builder{parser: p}

	def := domain.Definition{Name: d.Name}
	for _, o := range d.Objects {
		def.Objects = append(def.Objects, domain.Object{Name: o.Name, Type: o.Type})
	}
	for _, fl := range d.Fluents {
		if reserved.Has(fl.Name) {
			b.errorf("fluent name %q is reserved", fl.Name)
			continue
		}
		def.Fluents = append(def.Fluents, domain.Fluent{Name: fl.Name, Params: fl.Params, Sort: b.sort(fl)})
	}
	for _, a := range d.Actions {
		def.Actions = append(def.Actions, b.action(a))
	}
	for i, src := range d.Invariants {
		if inv := b.formula(fmt.Sprintf("invariant %d", i+1), src, nil); inv != nil {
			def.Invariants = append(def.Invariants, inv)
		}
	}
	initial := b.initial(d.Init)
	goal := b.formula("goal", d.Goal, nil)
	if len(b.errs) > 0 {
		return nil, &domain.DomainError{Errs: b.errs}
	}

	dom, err := domain.New(def)
	if err != nil {
		return nil, err
	}
	return domain.NewProblem(dom, initial, goal)
}

type builder struct {
	parser *parser
	errs   []error
}

func (b *builder) errorf(format string, args ...interface{}) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *builder) sort(fl Fluent) f.Sort {
	var sorts []f.Sort
	if fl.Int != nil {
		sorts = append(sorts, f.IntRange{Min: fl.Int.Min, Max: fl.Int.Max})
	}
	if fl.Enum != nil {
		sorts = append(sorts, f.Enum(fl.Enum...))
	}
	if fl.Bool {
		sorts = append(sorts, f.BoolSort{})
	}
	if len(sorts) != 1 {
		b.errorf("fluent %s must declare exactly one of int, enum and bool", fl.Name)
		return nil
	}
	return sorts[0]
}

func (b *builder) formula(where, src string, params sets.Set[string]) f.Formula {
	if src == "" {
		b.errorf("%s: missing expression", where)
		return nil
	}
	x, err := b.parser.Formula(src, params)
	if err != nil {
		b.errs = append(b.errs, errors.Wrapf(err, "%s", where))
		return nil
	}
	return x
}

func (b *builder) action(a Action) domain.ActionSchema {
	schema := domain.ActionSchema{Name: a.Name}
	params := sets.New[string]()
	for _, p := range a.Params {
		schema.Params = append(schema.Params, domain.Param{Name: p.Name, Type: p.Type})
		params.Insert(p.Name)
	}
	if a.Pre != "" {
		schema.Precondition = b.formula(fmt.Sprintf("action %s: pre", a.Name), a.Pre, params)
	}
	for i, e := range a.Effects {
		where := fmt.Sprintf("action %s: effect %d", a.Name, i+1)
		target, err := b.parser.Ref(e.Set, params)
		if err != nil {
			b.errs = append(b.errs, errors.Wrapf(err, "%s: set", where))
			continue
		}
		value, err := b.parser.Term(e.To, params)
		if err != nil {
			b.errs = append(b.errs, errors.Wrapf(err, "%s: to", where))
			continue
		}
		schema.Effects = append(schema.Effects, domain.Effect{Target: target, Value: value})
	}
	return schema
}

// initial reads ground equalities into an assignment. Sorts and
// completeness are checked by domain.NewProblem.
func (b *builder) initial(entries []string) map[domain.Atom]f.Value {
	assign := make(map[domain.Atom]f.Value, len(entries))
	for _, src := range entries {
		where := fmt.Sprintf("init %q", src)
		x := b.formula(where, src, nil)
		if x == nil {
			continue
		}
		ref, value, ok := groundEquality(x)
		if !ok {
			b.errorf("%s: expected fluent == constant", where)
			continue
		}
		objects := make([]string, len(ref.Args))
		for i, a := range ref.Args {
			objects[i] = a.Name
		}
		atom := domain.AtomOf(ref.Name, objects...)
		if _, ok := assign[atom]; ok {
			b.errorf("%s: %s is assigned more than once", where, atom)
			continue
		}
		assign[atom] = value
	}
	return assign
}

func groundEquality(x f.Formula) (f.Fluent, f.Value, bool) {
	switch x := x.(type) {
	case f.Holds:
		if ref, ok := x.Term.(f.Fluent); ok {
			return ref, f.BoolValue(true), true
		}
	case f.Not:
		if h, ok := x.F.(f.Holds); ok {
			if ref, ok := h.Term.(f.Fluent); ok {
				return ref, f.BoolValue(false), true
			}
		}
	case f.Compare:
		if x.Op != f.OpEq {
			break
		}
		l, r := x.L, x.R
		if _, ok := l.(f.Const); ok {
			l, r = r, l
		}
		ref, ok := l.(f.Fluent)
		c, isConst := r.(f.Const)
		if ok && isConst {
			return ref, c.Value, true
		}
	}
	return f.Fluent{}, f.Value{}, false
}
