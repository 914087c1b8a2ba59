package solver

import (
	"fmt"

	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/satplan/pkg/formula"
)

// symbol holds one literal per value of a declared sort. Exactly one of
// them is true in every model.
type symbol struct {
	sort   formula.Sort
	values []formula.Value
	lits   []z.Lit
}

// circuit performs translation between declared symbols and asserted
// formulas and the literals of an and-inverter graph. The graph is
// turned into clauses once, when the session is checked.
type circuit struct {
	c       *logic.C
	symbols map[formula.Symbol]*symbol
	roots   []z.Lit
}

func newCircuit() *circuit {
	return &circuit{
		c:       logic.NewC(),
		symbols: make(map[formula.Symbol]*symbol),
	}
}

func (d *circuit) declare(name formula.Symbol, s formula.Sort) error {
	if name == "" {
		return fmt.Errorf("empty symbol name")
	}
	if _, ok := d.symbols[name]; ok {
		return DuplicateSymbol(name)
	}
	if s == nil {
		return fmt.Errorf("symbol %s has no sort", name)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("symbol %s: %w", name, err)
	}

	sym := &symbol{sort: s, values: s.Values()}
	if s.Kind() == formula.KindBool {
		// BoolSort values are ordered false, true.
		m := d.c.Lit()
		sym.lits = []z.Lit{m.Not(), m}
	} else {
		sym.lits = make([]z.Lit, len(sym.values))
		for i := range sym.lits {
			sym.lits[i] = d.c.Lit()
		}
		cs := d.c.CardSort(sym.lits)
		d.roots = append(d.roots, cs.Leq(1), cs.Geq(1))
	}
	d.symbols[name] = sym
	return nil
}

func (d *circuit) assert(f formula.Formula) error {
	m, err := d.formula(f)
	if err != nil {
		return err
	}
	d.roots = append(d.roots, m)
	return nil
}

// ToCnf teaches the clauses of the graph and a unit clause per asserted
// root to dst.
func (d *circuit) ToCnf(dst inter.Adder) {
	d.c.ToCnf(dst)
	for _, m := range d.roots {
		dst.Add(m)
		dst.Add(z.LitNull)
	}
}

// evaluate decodes the value of name from a model.
func (d *circuit) evaluate(name formula.Symbol, value func(z.Lit) bool) (formula.Value, error) {
	sym, ok := d.symbols[name]
	if !ok {
		return formula.Value{}, UndeclaredSymbol(name)
	}
	var (
		found formula.Value
		n     int
	)
	for i, m := range sym.lits {
		if value(m) {
			found = sym.values[i]
			n++
		}
	}
	if n != 1 {
		return formula.Value{}, fmt.Errorf("model assigns %d values to %s", n, name)
	}
	return found, nil
}

// choices records, for each value a term may take, the literal that
// holds exactly when the term takes that value.
type choices struct {
	kind   formula.Kind
	values []formula.Value
	lits   []z.Lit
	index  map[formula.Value]int
}

func newChoices(kind formula.Kind) *choices {
	return &choices{kind: kind, index: make(map[formula.Value]int)}
}

func (ch *choices) add(c *logic.C, v formula.Value, m z.Lit) {
	if m == c.F {
		return
	}
	if i, ok := ch.index[v]; ok {
		ch.lits[i] = c.Or(ch.lits[i], m)
		return
	}
	ch.index[v] = len(ch.values)
	ch.values = append(ch.values, v)
	ch.lits = append(ch.lits, m)
}

func (ch *choices) lit(c *logic.C, v formula.Value) z.Lit {
	if i, ok := ch.index[v]; ok {
		return ch.lits[i]
	}
	return c.F
}

func (d *circuit) term(t formula.Term) (*choices, error) {
	switch t := t.(type) {
	case formula.Const:
		if !t.Value.IsValid() {
			return nil, fmt.Errorf("invalid constant")
		}
		ch := newChoices(t.Value.Kind())
		ch.add(d.c, t.Value, d.c.T)
		return ch, nil
	case formula.Var:
		sym, ok := d.symbols[t.Symbol]
		if !ok {
			return nil, UndeclaredSymbol(t.Symbol)
		}
		ch := newChoices(sym.sort.Kind())
		for i, v := range sym.values {
			ch.add(d.c, v, sym.lits[i])
		}
		return ch, nil
	case formula.Fluent:
		return nil, fmt.Errorf("fluent reference %s must be rewritten to a symbol before it is asserted", t)
	case formula.Arith:
		l, err := d.term(t.L)
		if err != nil {
			return nil, err
		}
		r, err := d.term(t.R)
		if err != nil {
			return nil, err
		}
		if l.kind != formula.KindInt || r.kind != formula.KindInt {
			return nil, fmt.Errorf("arithmetic on non-integer operands in %s", t)
		}
		ch := newChoices(formula.KindInt)
		for i, a := range l.values {
			x, _ := a.Int()
			for j, b := range r.values {
				y, _ := b.Int()
				n := x + y
				if t.Op == formula.OpMinus {
					n = x - y
				}
				ch.add(d.c, formula.IntValue(n), d.c.And(l.lits[i], r.lits[j]))
			}
		}
		return ch, nil
	case formula.Ite:
		cond, err := d.formula(t.Cond)
		if err != nil {
			return nil, err
		}
		a, err := d.term(t.Then)
		if err != nil {
			return nil, err
		}
		b, err := d.term(t.Else)
		if err != nil {
			return nil, err
		}
		if a.kind != b.kind {
			return nil, fmt.Errorf("branches of %s have different kinds %s and %s", t, a.kind, b.kind)
		}
		ch := newChoices(a.kind)
		for i, v := range a.values {
			ch.add(d.c, v, d.c.And(cond, a.lits[i]))
		}
		for i, v := range b.values {
			ch.add(d.c, v, d.c.And(cond.Not(), b.lits[i]))
		}
		return ch, nil
	case nil:
		return nil, fmt.Errorf("missing term")
	}
	return nil, fmt.Errorf("unsupported term %T", t)
}

func (d *circuit) formula(f formula.Formula) (z.Lit, error) {
	switch f := f.(type) {
	case formula.Truth:
		if f {
			return d.c.T, nil
		}
		return d.c.F, nil
	case formula.Holds:
		ch, err := d.term(f.Term)
		if err != nil {
			return z.LitNull, err
		}
		if ch.kind != formula.KindBool {
			return z.LitNull, fmt.Errorf("%s is not boolean", f.Term)
		}
		return ch.lit(d.c, formula.BoolValue(true)), nil
	case formula.Compare:
		l, err := d.term(f.L)
		if err != nil {
			return z.LitNull, err
		}
		r, err := d.term(f.R)
		if err != nil {
			return z.LitNull, err
		}
		if l.kind != r.kind {
			return z.LitNull, fmt.Errorf("cannot compare %s with %s in %s", l.kind, r.kind, f)
		}
		var ms []z.Lit
		for i, a := range l.values {
			for j, b := range r.values {
				ok, err := formula.CompareValues(f.Op, a, b)
				if err != nil {
					return z.LitNull, fmt.Errorf("%s: %w", f, err)
				}
				if ok {
					ms = append(ms, d.c.And(l.lits[i], r.lits[j]))
				}
			}
		}
		return d.c.Ors(ms...), nil
	case formula.Not:
		m, err := d.formula(f.F)
		if err != nil {
			return z.LitNull, err
		}
		return m.Not(), nil
	case formula.And:
		ms, err := d.formulas(f)
		if err != nil {
			return z.LitNull, err
		}
		return d.c.Ands(ms...), nil
	case formula.Or:
		ms, err := d.formulas(f)
		if err != nil {
			return z.LitNull, err
		}
		return d.c.Ors(ms...), nil
	case formula.ExactlyOne:
		ms, err := d.formulas(f)
		if err != nil {
			return z.LitNull, err
		}
		if len(ms) == 0 {
			return d.c.F, nil
		}
		cs := d.c.CardSort(ms)
		return d.c.And(cs.Leq(1), cs.Geq(1)), nil
	case formula.Xor:
		l, err := d.formula(f.L)
		if err != nil {
			return z.LitNull, err
		}
		r, err := d.formula(f.R)
		if err != nil {
			return z.LitNull, err
		}
		return d.c.Xor(l, r), nil
	case formula.Implies:
		l, err := d.formula(f.If)
		if err != nil {
			return z.LitNull, err
		}
		r, err := d.formula(f.Then)
		if err != nil {
			return z.LitNull, err
		}
		return d.c.Implies(l, r), nil
	case nil:
		return z.LitNull, fmt.Errorf("missing formula")
	}
	return z.LitNull, fmt.Errorf("unsupported formula %T", f)
}

func (d *circuit) formulas(fs []formula.Formula) ([]z.Lit, error) {
	ms := make([]z.Lit, 0, len(fs))
	for _, f := range fs {
		m, err := d.formula(f)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}
