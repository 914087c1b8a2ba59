// Package scenarios holds small example planning problems expressed as
// plain domain data. They are used by tests and by the CLI "example"
// command.
package scenarios

import (
	"fmt"
	"sort"

	"github.com/operator-framework/satplan/pkg/domain"
	f "github.com/operator-framework/satplan/pkg/formula"
)

// Builder constructs a problem.
type Builder func() (*domain.Problem, error)

var registry = map[string]Builder{
	"stones":           StoneTransfer,
	"kettle":           Kettle,
	"over-constrained": OverConstrained,
}

// Names lists the registered scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the named scenario.
func Load(name string) (*domain.Problem, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return b()
}

func stones(object string) f.Fluent {
	return f.Ref("stones", f.Obj(object))
}

// StoneTransfer moves two stones from a pile into two bags of capacity
// one, one stone at a time through a hand of capacity one. The shortest
// plan has four steps.
func StoneTransfer() (*domain.Problem, error) {
	putInBag := func(bag string) domain.ActionSchema {
		return domain.ActionSchema{
			Name: "put_in_" + bag,
			Precondition: f.AllOf(
				f.Gt(stones("hand"), f.Int(0)),
				f.Lt(stones(bag), f.Int(1)),
			),
			Effects: []domain.Effect{
				{Target: stones("hand"), Value: f.Minus(stones("hand"), f.Int(1))},
				{Target: stones(bag), Value: f.Plus(stones(bag), f.Int(1))},
			},
		}
	}
	d, err := domain.New(domain.Definition{
		Name: "stone-transfer",
		Objects: []domain.Object{
			{Name: "hand", Type: "hand"},
			{Name: "bag1", Type: "bag"},
			{Name: "bag2", Type: "bag"},
			{Name: "pile", Type: "pile"},
		},
		Fluents: []domain.Fluent{
			{Name: "stones", Params: []string{""}, Sort: f.IntRange{Min: 0, Max: 2}},
		},
		Actions: []domain.ActionSchema{
			{
				Name: "pickup",
				Precondition: f.AllOf(
					f.Eq(stones("hand"), f.Int(0)),
					f.Gt(stones("pile"), f.Int(0)),
				),
				Effects: []domain.Effect{
					{Target: stones("pile"), Value: f.Minus(stones("pile"), f.Int(1))},
					{Target: stones("hand"), Value: f.Plus(stones("hand"), f.Int(1))},
				},
			},
			putInBag("bag1"),
			putInBag("bag2"),
		},
		Invariants: []f.Formula{
			f.Leq(stones("hand"), f.Int(1)),
			f.Leq(stones("bag1"), f.Int(1)),
			f.Leq(stones("bag2"), f.Int(1)),
		},
	})
	if err != nil {
		return nil, err
	}
	return domain.NewProblem(d,
		map[domain.Atom]f.Value{
			domain.AtomOf("stones", "hand"): f.IntValue(0),
			domain.AtomOf("stones", "bag1"): f.IntValue(0),
			domain.AtomOf("stones", "bag2"): f.IntValue(0),
			domain.AtomOf("stones", "pile"): f.IntValue(2),
		},
		f.AllOf(
			f.Eq(stones("hand"), f.Int(0)),
			f.Eq(stones("bag1"), f.Int(1)),
			f.Eq(stones("bag2"), f.Int(1)),
			f.Eq(stones("pile"), f.Int(0)),
		),
	)
}

// Kettle pours a full kettle into two empty cups. Each fill lowers the
// kettle one level and fills exactly one empty cup, so both cups are
// full after two steps and never after one.
func Kettle() (*domain.Problem, error) {
	level := f.Ref("level", f.Obj("kettle"))
	d, err := domain.New(domain.Definition{
		Name: "kettle",
		Objects: []domain.Object{
			{Name: "kettle", Type: "kettle"},
			{Name: "cup1", Type: "cup"},
			{Name: "cup2", Type: "cup"},
		},
		Fluents: []domain.Fluent{
			{Name: "level", Params: []string{"kettle"}, Sort: f.Enum("empty", "half", "full")},
			{Name: "cup", Params: []string{"cup"}, Sort: f.Enum("empty", "full")},
		},
		Actions: []domain.ActionSchema{
			{
				Name:   "fill",
				Params: []domain.Param{{Name: "c", Type: "cup"}},
				Precondition: f.AllOf(
					f.Neq(level, f.Sym("empty")),
					f.Eq(f.Ref("cup", f.Param("c")), f.Sym("empty")),
				),
				Effects: []domain.Effect{
					{Target: level, Value: f.Ite{Cond: f.Eq(level, f.Sym("full")), Then: f.Sym("half"), Else: f.Sym("empty")}},
					{Target: f.Ref("cup", f.Param("c")), Value: f.Sym("full")},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return domain.NewProblem(d,
		map[domain.Atom]f.Value{
			domain.AtomOf("level", "kettle"): f.SymbolValue("full"),
			domain.AtomOf("cup", "cup1"):     f.SymbolValue("empty"),
			domain.AtomOf("cup", "cup2"):     f.SymbolValue("empty"),
		},
		f.AllOf(
			f.Eq(f.Ref("cup", f.Obj("cup1")), f.Sym("full")),
			f.Eq(f.Ref("cup", f.Obj("cup2")), f.Sym("full")),
		),
	)
}

// OverConstrained pins the capacity of the only bag to zero by
// invariant while putting a stone into a bag requires capacity. No plan
// exists at any horizon.
func OverConstrained() (*domain.Problem, error) {
	d, err := domain.New(domain.Definition{
		Name: "over-constrained",
		Objects: []domain.Object{
			{Name: "hand", Type: "hand"},
			{Name: "bag", Type: "bag"},
			{Name: "pile", Type: "pile"},
		},
		Fluents: []domain.Fluent{
			{Name: "stones", Params: []string{""}, Sort: f.IntRange{Min: 0, Max: 2}},
			{Name: "capacity", Params: []string{"bag"}, Sort: f.IntRange{Min: 0, Max: 1}},
		},
		Actions: []domain.ActionSchema{
			{
				Name: "pickup",
				Precondition: f.AllOf(
					f.Eq(stones("hand"), f.Int(0)),
					f.Gt(stones("pile"), f.Int(0)),
				),
				Effects: []domain.Effect{
					{Target: stones("pile"), Value: f.Minus(stones("pile"), f.Int(1))},
					{Target: stones("hand"), Value: f.Plus(stones("hand"), f.Int(1))},
				},
			},
			{
				Name:   "put_in_bag",
				Params: []domain.Param{{Name: "b", Type: "bag"}},
				Precondition: f.AllOf(
					f.Gt(stones("hand"), f.Int(0)),
					f.Geq(f.Ref("capacity", f.Param("b")), f.Int(1)),
				),
				Effects: []domain.Effect{
					{Target: stones("hand"), Value: f.Minus(stones("hand"), f.Int(1))},
					{Target: f.Ref("stones", f.Param("b")), Value: f.Plus(f.Ref("stones", f.Param("b")), f.Int(1))},
				},
			},
		},
		Invariants: []f.Formula{
			f.Eq(f.Ref("capacity", f.Obj("bag")), f.Int(0)),
		},
	})
	if err != nil {
		return nil, err
	}
	return domain.NewProblem(d,
		map[domain.Atom]f.Value{
			domain.AtomOf("stones", "hand"):  f.IntValue(0),
			domain.AtomOf("stones", "bag"):   f.IntValue(0),
			domain.AtomOf("stones", "pile"):  f.IntValue(1),
			domain.AtomOf("capacity", "bag"): f.IntValue(0),
		},
		f.Eq(stones("bag"), f.Int(1)),
	)
}

// Malformed is a definition whose put_in_bag effect applies the unary
// stones fluent to two objects. domain.New rejects it.
func Malformed() domain.Definition {
	return domain.Definition{
		Name: "malformed",
		Objects: []domain.Object{
			{Name: "hand", Type: "hand"},
			{Name: "bag1", Type: "bag"},
		},
		Fluents: []domain.Fluent{
			{Name: "stones", Params: []string{""}, Sort: f.IntRange{Min: 0, Max: 1}},
		},
		Actions: []domain.ActionSchema{
			{
				Name:         "put_in_bag",
				Precondition: f.Gt(stones("hand"), f.Int(0)),
				Effects: []domain.Effect{
					{Target: f.Ref("stones", f.Obj("hand"), f.Obj("bag1")), Value: f.Int(1)},
				},
			},
		},
	}
}
