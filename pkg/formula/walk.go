package formula

import (
	"fmt"
)

// Lookup resolves a fluent reference to its current value.
type Lookup func(Fluent) (Value, error)

// Substitution replaces a fluent reference by another term.
type Substitution func(Fluent) (Term, error)

// Rewrite returns a copy of f in which every fluent reference has been
// replaced by the term returned from sub.
func Rewrite(f Formula, sub Substitution) (Formula, error) {
	switch f := f.(type) {
	case Truth:
		return f, nil
	case Holds:
		t, err := RewriteTerm(f.Term, sub)
		if err != nil {
			return nil, err
		}
		return Holds{Term: t}, nil
	case Compare:
		l, err := RewriteTerm(f.L, sub)
		if err != nil {
			return nil, err
		}
		r, err := RewriteTerm(f.R, sub)
		if err != nil {
			return nil, err
		}
		return Compare{Op: f.Op, L: l, R: r}, nil
	case Not:
		g, err := Rewrite(f.F, sub)
		if err != nil {
			return nil, err
		}
		return Not{F: g}, nil
	case And:
		gs, err := rewriteAll(f, sub)
		return And(gs), err
	case Or:
		gs, err := rewriteAll(f, sub)
		return Or(gs), err
	case ExactlyOne:
		gs, err := rewriteAll(f, sub)
		return ExactlyOne(gs), err
	case Xor:
		l, err := Rewrite(f.L, sub)
		if err != nil {
			return nil, err
		}
		r, err := Rewrite(f.R, sub)
		if err != nil {
			return nil, err
		}
		return Xor{L: l, R: r}, nil
	case Implies:
		a, err := Rewrite(f.If, sub)
		if err != nil {
			return nil, err
		}
		b, err := Rewrite(f.Then, sub)
		if err != nil {
			return nil, err
		}
		return Implies{If: a, Then: b}, nil
	case nil:
		return nil, fmt.Errorf("nil formula")
	}
	return nil, fmt.Errorf("unsupported formula %T", f)
}

func rewriteAll(fs []Formula, sub Substitution) ([]Formula, error) {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		g, err := Rewrite(f, sub)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

// RewriteTerm is the Term counterpart of Rewrite.
func RewriteTerm(t Term, sub Substitution) (Term, error) {
	switch t := t.(type) {
	case Const, Var:
		return t, nil
	case Fluent:
		return sub(t)
	case Arith:
		l, err := RewriteTerm(t.L, sub)
		if err != nil {
			return nil, err
		}
		r, err := RewriteTerm(t.R, sub)
		if err != nil {
			return nil, err
		}
		return Arith{Op: t.Op, L: l, R: r}, nil
	case Ite:
		c, err := Rewrite(t.Cond, sub)
		if err != nil {
			return nil, err
		}
		a, err := RewriteTerm(t.Then, sub)
		if err != nil {
			return nil, err
		}
		b, err := RewriteTerm(t.Else, sub)
		if err != nil {
			return nil, err
		}
		return Ite{Cond: c, Then: a, Else: b}, nil
	case nil:
		return nil, fmt.Errorf("nil term")
	}
	return nil, fmt.Errorf("unsupported term %T", t)
}

// FluentRefs returns every fluent reference appearing in f, in order
// of appearance.
func FluentRefs(f Formula) []Fluent {
	var refs []Fluent
	// The substitution never fails, so neither does Rewrite.
	_, _ = Rewrite(f, func(ref Fluent) (Term, error) {
		refs = append(refs, ref)
		return ref, nil
	})
	return refs
}

// TermRefs is the Term counterpart of FluentRefs.
func TermRefs(t Term) []Fluent {
	var refs []Fluent
	_, _ = RewriteTerm(t, func(ref Fluent) (Term, error) {
		refs = append(refs, ref)
		return ref, nil
	})
	return refs
}

// EvalTerm computes the value of t, resolving fluent references with
// lookup.
func EvalTerm(t Term, lookup Lookup) (Value, error) {
	switch t := t.(type) {
	case Const:
		return t.Value, nil
	case Fluent:
		return lookup(t)
	case Var:
		return Value{}, fmt.Errorf("solver symbol %s cannot be evaluated without a model", t.Symbol)
	case Arith:
		l, err := EvalTerm(t.L, lookup)
		if err != nil {
			return Value{}, err
		}
		r, err := EvalTerm(t.R, lookup)
		if err != nil {
			return Value{}, err
		}
		a, ok := l.Int()
		b, ok2 := r.Int()
		if !ok || !ok2 {
			return Value{}, fmt.Errorf("arithmetic on non-integer values in %s", t)
		}
		if t.Op == OpPlus {
			return IntValue(a + b), nil
		}
		return IntValue(a - b), nil
	case Ite:
		c, err := EvalFormula(t.Cond, lookup)
		if err != nil {
			return Value{}, err
		}
		if c {
			return EvalTerm(t.Then, lookup)
		}
		return EvalTerm(t.Else, lookup)
	case nil:
		return Value{}, fmt.Errorf("nil term")
	}
	return Value{}, fmt.Errorf("unsupported term %T", t)
}

// EvalFormula computes the truth of f, resolving fluent references with
// lookup.
func EvalFormula(f Formula, lookup Lookup) (bool, error) {
	switch f := f.(type) {
	case Truth:
		return bool(f), nil
	case Holds:
		v, err := EvalTerm(f.Term, lookup)
		if err != nil {
			return false, err
		}
		b, ok := v.Bool()
		if !ok {
			return false, fmt.Errorf("%s is not boolean", f.Term)
		}
		return b, nil
	case Compare:
		l, err := EvalTerm(f.L, lookup)
		if err != nil {
			return false, err
		}
		r, err := EvalTerm(f.R, lookup)
		if err != nil {
			return false, err
		}
		return CompareValues(f.Op, l, r)
	case Not:
		b, err := EvalFormula(f.F, lookup)
		return !b, err
	case And:
		for _, g := range f {
			b, err := EvalFormula(g, lookup)
			if err != nil || !b {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, g := range f {
			b, err := EvalFormula(g, lookup)
			if err != nil || b {
				return b, err
			}
		}
		return false, nil
	case ExactlyOne:
		n := 0
		for _, g := range f {
			b, err := EvalFormula(g, lookup)
			if err != nil {
				return false, err
			}
			if b {
				n++
			}
		}
		return n == 1, nil
	case Xor:
		a, err := EvalFormula(f.L, lookup)
		if err != nil {
			return false, err
		}
		b, err := EvalFormula(f.R, lookup)
		return a != b, err
	case Implies:
		a, err := EvalFormula(f.If, lookup)
		if err != nil || !a {
			return err == nil, err
		}
		return EvalFormula(f.Then, lookup)
	case nil:
		return false, fmt.Errorf("nil formula")
	}
	return false, fmt.Errorf("unsupported formula %T", f)
}

// CompareValues applies op to two values. Ordering operators are only
// defined on integers; equality requires values of the same kind.
func CompareValues(op CompareOp, l, r Value) (bool, error) {
	if l.Kind() != r.Kind() {
		return false, fmt.Errorf("cannot compare %s %s with %s %s", l.Kind(), l, r.Kind(), r)
	}
	if a, ok := l.Int(); ok {
		b, _ := r.Int()
		return op.Apply(a, b), nil
	}
	if op.Ordered() {
		return false, fmt.Errorf("operator %s requires integers, got %s", op, l.Kind())
	}
	if op == OpEq {
		return l == r, nil
	}
	return l != r, nil
}
