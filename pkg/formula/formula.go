package formula

import (
	"fmt"
	"strings"
)

// Symbol names a ground solver variable, for example the value of one
// fluent at one time step.
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Term is a value-producing expression. The implementations are
// Const, Fluent, Var, Arith and Ite.
type Term interface {
	fmt.Stringer
	isTerm()
}

// Formula is a truth-valued expression. The implementations are
// Truth, Holds, Compare, Not, And, Or, Xor, Implies and ExactlyOne.
type Formula interface {
	fmt.Stringer
	isFormula()
}

// Arg is an argument of a lifted fluent reference: either a declared
// object or an action parameter.
type Arg struct {
	Name  string
	Param bool
}

// Obj refers to a declared object.
func Obj(name string) Arg {
	return Arg{Name: name}
}

// Param refers to an action parameter.
func Param(name string) Arg {
	return Arg{Name: name, Param: true}
}

func (a Arg) String() string {
	if a.Param {
		return "?" + a.Name
	}
	return a.Name
}

// Const is a literal value.
type Const struct {
	Value Value
}

// Int returns an integer constant.
func Int(n int) Term {
	return Const{Value: IntValue(n)}
}

// Sym returns an enumerated symbol constant.
func Sym(s string) Term {
	return Const{Value: SymbolValue(s)}
}

func (c Const) String() string {
	return c.Value.String()
}

// Fluent is a lifted reference to a fluent applied to arguments. It
// must be grounded (see Rewrite) before it reaches a solver.
type Fluent struct {
	Name string
	Args []Arg
}

// Ref returns a reference to fluent name applied to args.
func Ref(name string, args ...Arg) Fluent {
	return Fluent{Name: name, Args: args}
}

func (f Fluent) String() string {
	s := make([]string, len(f.Args))
	for i, a := range f.Args {
		s[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(s, ","))
}

// Var refers to a declared solver symbol.
type Var struct {
	Symbol Symbol
}

func (v Var) String() string {
	return string(v.Symbol)
}

type ArithOp uint8

const (
	OpPlus ArithOp = iota
	OpMinus
)

func (op ArithOp) String() string {
	if op == OpPlus {
		return "+"
	}
	return "-"
}

// Arith is integer addition or subtraction.
type Arith struct {
	Op   ArithOp
	L, R Term
}

func Plus(l, r Term) Term {
	return Arith{Op: OpPlus, L: l, R: r}
}

func Minus(l, r Term) Term {
	return Arith{Op: OpMinus, L: l, R: r}
}

func (a Arith) String() string {
	return fmt.Sprintf("(%s %s %s)", a.L, a.Op, a.R)
}

// Ite is the term "if Cond then Then else Else".
type Ite struct {
	Cond Formula
	Then Term
	Else Term
}

func (t Ite) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.Then, t.Else)
}

func (Const) isTerm()  {}
func (Fluent) isTerm() {}
func (Var) isTerm()    {}
func (Arith) isTerm()  {}
func (Ite) isTerm()    {}

// Truth is a constant formula.
type Truth bool

var (
	True  Formula = Truth(true)
	False Formula = Truth(false)
)

func (t Truth) String() string {
	if t {
		return "true"
	}
	return "false"
}

// Holds is satisfied when a boolean-valued term is true.
type Holds struct {
	Term Term
}

// Prop returns a formula that holds when the boolean symbol s is true.
func Prop(s Symbol) Formula {
	return Holds{Term: Var{Symbol: s}}
}

func (h Holds) String() string {
	return h.Term.String()
}

type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLeq
	OpGt
	OpGeq
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLeq:
		return "<="
	case OpGt:
		return ">"
	case OpGeq:
		return ">="
	}
	return "?"
}

// Ordered reports whether the operator requires integer operands.
func (op CompareOp) Ordered() bool {
	return op != OpEq && op != OpNeq
}

// Apply compares two integers.
func (op CompareOp) Apply(a, b int) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpLt:
		return a < b
	case OpLeq:
		return a <= b
	case OpGt:
		return a > b
	case OpGeq:
		return a >= b
	}
	return false
}

// Compare relates two terms.
type Compare struct {
	Op   CompareOp
	L, R Term
}

func Eq(l, r Term) Formula  { return Compare{Op: OpEq, L: l, R: r} }
func Neq(l, r Term) Formula { return Compare{Op: OpNeq, L: l, R: r} }
func Lt(l, r Term) Formula  { return Compare{Op: OpLt, L: l, R: r} }
func Leq(l, r Term) Formula { return Compare{Op: OpLeq, L: l, R: r} }
func Gt(l, r Term) Formula  { return Compare{Op: OpGt, L: l, R: r} }
func Geq(l, r Term) Formula { return Compare{Op: OpGeq, L: l, R: r} }

func (c Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.L, c.Op, c.R)
}

// Not negates a formula.
type Not struct {
	F Formula
}

func Negate(f Formula) Formula {
	return Not{F: f}
}

func (n Not) String() string {
	return fmt.Sprintf("!(%s)", n.F)
}

// And is the conjunction of its members; the empty And is true.
type And []Formula

// Or is the disjunction of its members; the empty Or is false.
type Or []Formula

// ExactlyOne holds when exactly one of its members holds.
type ExactlyOne []Formula

func AllOf(fs ...Formula) Formula {
	return And(fs)
}

func AnyOf(fs ...Formula) Formula {
	return Or(fs)
}

func OneOf(fs ...Formula) Formula {
	return ExactlyOne(fs)
}

func (a And) String() string {
	return join(" && ", a, "true")
}

func (o Or) String() string {
	return join(" || ", o, "false")
}

func (x ExactlyOne) String() string {
	return "exactly_one" + join(", ", x, "()")
}

func join(sep string, fs []Formula, empty string) string {
	if len(fs) == 0 {
		return empty
	}
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = f.String()
	}
	return "(" + strings.Join(s, sep) + ")"
}

// Xor holds when exactly one of L and R holds.
type Xor struct {
	L, R Formula
}

func (x Xor) String() string {
	return fmt.Sprintf("xor(%s, %s)", x.L, x.R)
}

// Implies holds unless If holds and Then does not.
type Implies struct {
	If, Then Formula
}

func (i Implies) String() string {
	return fmt.Sprintf("implies(%s, %s)", i.If, i.Then)
}

func (Truth) isFormula()      {}
func (Holds) isFormula()      {}
func (Compare) isFormula()    {}
func (Not) isFormula()        {}
func (And) isFormula()        {}
func (Or) isFormula()         {}
func (ExactlyOne) isFormula() {}
func (Xor) isFormula()        {}
func (Implies) isFormula()    {}
