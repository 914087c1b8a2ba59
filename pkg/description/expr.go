package description

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	"github.com/pkg/errors"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"k8s.io/apimachinery/pkg/util/sets"

	f "github.com/operator-framework/satplan/pkg/formula"
)

const (
	fnImplies    = "implies"
	fnXor        = "xor"
	fnExactlyOne = "exactly_one"
)

// reserved names cannot be used for fluents since calls to them are
// not fluent references.
var reserved = sets.New[string](fnImplies, fnXor, fnExactlyOne)

var comparisons = map[string]f.CompareOp{
	operators.Equals:        f.OpEq,
	operators.NotEquals:     f.OpNeq,
	operators.Less:          f.OpLt,
	operators.LessEquals:    f.OpLeq,
	operators.Greater:       f.OpGt,
	operators.GreaterEquals: f.OpGeq,
}

// parser turns CEL source text into formulas and terms. Only the CEL
// syntax is used; expressions are never checked or evaluated by CEL.
type parser struct {
	env *cel.Env
}

func newParser() (*parser, error) {
	env, err := cel.NewEnv(cel.ClearMacros())
	if err != nil {
		return nil, errors.Wrap(err, "creating expression environment")
	}
	return &parser{env: env}, nil
}

func (p *parser) parse(src string) (*exprpb.Expr, error) {
	ast, iss := p.env.Parse(src)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, err
	}
	return parsed.GetExpr(), nil
}

// Formula parses src as a formula. Identifiers in argument position
// resolve to the names in params first, then to objects.
func (p *parser) Formula(src string, params sets.Set[string]) (f.Formula, error) {
	e, err := p.parse(src)
	if err != nil {
		return nil, err
	}
	return (&scope{params: params}).formula(e)
}

// Term parses src as a term.
func (p *parser) Term(src string, params sets.Set[string]) (f.Term, error) {
	e, err := p.parse(src)
	if err != nil {
		return nil, err
	}
	return (&scope{params: params}).term(e)
}

// Ref parses src as a fluent reference.
func (p *parser) Ref(src string, params sets.Set[string]) (f.Fluent, error) {
	e, err := p.parse(src)
	if err != nil {
		return f.Fluent{}, err
	}
	return (&scope{params: params}).ref(e)
}

type scope struct {
	params sets.Set[string]
}

func isFormulaCall(fn string) bool {
	if _, ok := comparisons[fn]; ok {
		return true
	}
	switch fn {
	case operators.LogicalAnd, operators.LogicalOr, operators.LogicalNot, fnImplies, fnXor, fnExactlyOne:
		return true
	}
	return false
}

func (s *scope) formula(e *exprpb.Expr) (f.Formula, error) {
	switch k := e.GetExprKind().(type) {
	case *exprpb.Expr_ConstExpr:
		if b, ok := k.ConstExpr.GetConstantKind().(*exprpb.Constant_BoolValue); ok {
			return f.Truth(b.BoolValue), nil
		}
		t, err := constTerm(k.ConstExpr)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("constant %s is not a formula", t)
	case *exprpb.Expr_IdentExpr:
		return nil, fmt.Errorf("identifier %s is not a formula", k.IdentExpr.GetName())
	case *exprpb.Expr_CallExpr:
		return s.formulaCall(k.CallExpr)
	}
	return nil, fmt.Errorf("unsupported expression %T", e.GetExprKind())
}

func (s *scope) formulaCall(c *exprpb.Expr_Call) (f.Formula, error) {
	if c.GetTarget() != nil {
		return nil, fmt.Errorf("method call %s is not supported", c.GetFunction())
	}
	fn, args := c.GetFunction(), c.GetArgs()
	if op, ok := comparisons[fn]; ok {
		l, err := s.term(args[0])
		if err != nil {
			return nil, err
		}
		r, err := s.term(args[1])
		if err != nil {
			return nil, err
		}
		return f.Compare{Op: op, L: l, R: r}, nil
	}
	switch fn {
	case operators.LogicalNot:
		x, err := s.formula(args[0])
		if err != nil {
			return nil, err
		}
		return f.Negate(x), nil
	case operators.LogicalAnd, operators.LogicalOr, fnExactlyOne:
		fs, err := s.formulas(args)
		if err != nil {
			return nil, err
		}
		switch fn {
		case operators.LogicalAnd:
			return f.AllOf(fs...), nil
		case operators.LogicalOr:
			return f.AnyOf(fs...), nil
		}
		return f.OneOf(fs...), nil
	case fnImplies, fnXor:
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes 2 arguments, got %d", fn, len(args))
		}
		fs, err := s.formulas(args)
		if err != nil {
			return nil, err
		}
		if fn == fnImplies {
			return f.Implies{If: fs[0], Then: fs[1]}, nil
		}
		return f.Xor{L: fs[0], R: fs[1]}, nil
	case operators.Conditional:
		fs, err := s.formulas(args)
		if err != nil {
			return nil, err
		}
		return f.AnyOf(f.AllOf(fs[0], fs[1]), f.AllOf(f.Negate(fs[0]), fs[2])), nil
	}
	if isOperator(fn) {
		return nil, fmt.Errorf("operator %s does not produce a formula", fn)
	}
	ref, err := s.fluent(c)
	if err != nil {
		return nil, err
	}
	return f.Holds{Term: ref}, nil
}

func (s *scope) formulas(es []*exprpb.Expr) ([]f.Formula, error) {
	fs := make([]f.Formula, len(es))
	for i, e := range es {
		x, err := s.formula(e)
		if err != nil {
			return nil, err
		}
		fs[i] = x
	}
	return fs, nil
}

func (s *scope) term(e *exprpb.Expr) (f.Term, error) {
	switch k := e.GetExprKind().(type) {
	case *exprpb.Expr_ConstExpr:
		return constTerm(k.ConstExpr)
	case *exprpb.Expr_IdentExpr:
		name := k.IdentExpr.GetName()
		if s.params.Has(name) {
			return nil, fmt.Errorf("parameter %s is an object and cannot be used as a value", name)
		}
		return f.Sym(name), nil
	case *exprpb.Expr_CallExpr:
		return s.termCall(k.CallExpr)
	}
	return nil, fmt.Errorf("unsupported expression %T", e.GetExprKind())
}

func (s *scope) termCall(c *exprpb.Expr_Call) (f.Term, error) {
	fn, args := c.GetFunction(), c.GetArgs()
	switch {
	case isFormulaCall(fn):
		cond, err := s.formulaCall(c)
		if err != nil {
			return nil, err
		}
		return f.Ite{Cond: cond, Then: f.Const{Value: f.BoolValue(true)}, Else: f.Const{Value: f.BoolValue(false)}}, nil
	case fn == operators.Add || fn == operators.Subtract:
		l, err := s.term(args[0])
		if err != nil {
			return nil, err
		}
		r, err := s.term(args[1])
		if err != nil {
			return nil, err
		}
		if fn == operators.Add {
			return f.Plus(l, r), nil
		}
		return f.Minus(l, r), nil
	case fn == operators.Negate:
		x, err := s.term(args[0])
		if err != nil {
			return nil, err
		}
		return f.Minus(f.Int(0), x), nil
	case fn == operators.Conditional:
		cond, err := s.formula(args[0])
		if err != nil {
			return nil, err
		}
		then, err := s.term(args[1])
		if err != nil {
			return nil, err
		}
		els, err := s.term(args[2])
		if err != nil {
			return nil, err
		}
		return f.Ite{Cond: cond, Then: then, Else: els}, nil
	case isOperator(fn):
		return nil, fmt.Errorf("operator %s is not supported", fn)
	}
	return s.fluent(c)
}

func (s *scope) ref(e *exprpb.Expr) (f.Fluent, error) {
	c := e.GetCallExpr()
	if c == nil || isOperator(c.GetFunction()) || isFormulaCall(c.GetFunction()) {
		return f.Fluent{}, fmt.Errorf("expected a fluent reference such as name(obj)")
	}
	return s.fluent(c)
}

func (s *scope) fluent(c *exprpb.Expr_Call) (f.Fluent, error) {
	if c.GetTarget() != nil {
		return f.Fluent{}, fmt.Errorf("method call %s is not supported", c.GetFunction())
	}
	ref := f.Fluent{Name: c.GetFunction()}
	for i, a := range c.GetArgs() {
		id := a.GetIdentExpr()
		if id == nil {
			return f.Fluent{}, fmt.Errorf("argument %d of %s must be an object or parameter name", i+1, ref.Name)
		}
		if s.params.Has(id.GetName()) {
			ref.Args = append(ref.Args, f.Param(id.GetName()))
		} else {
			ref.Args = append(ref.Args, f.Obj(id.GetName()))
		}
	}
	return ref, nil
}

func constTerm(c *exprpb.Constant) (f.Term, error) {
	switch k := c.GetConstantKind().(type) {
	case *exprpb.Constant_Int64Value:
		return f.Int(int(k.Int64Value)), nil
	case *exprpb.Constant_Uint64Value:
		return f.Int(int(k.Uint64Value)), nil
	case *exprpb.Constant_StringValue:
		return f.Sym(k.StringValue), nil
	case *exprpb.Constant_BoolValue:
		return f.Const{Value: f.BoolValue(k.BoolValue)}, nil
	}
	return nil, fmt.Errorf("unsupported constant of type %T", c.GetConstantKind())
}

// isOperator reports whether fn names a CEL operator rather than a
// global function.
func isOperator(fn string) bool {
	_, ok := operators.FindReverse(fn)
	return ok || fn == operators.Conditional || fn == operators.Index
}
