package formula

import (
	"fmt"
	"math"
	"strings"
)

// MaxSortSize bounds the number of values a single Sort may hold.
// Every value of a sort becomes a literal per time step once encoded.
const MaxSortSize = 4096

// Sort is the value domain of a fluent or solver symbol. The set of
// implementations is closed: IntRange, EnumSort and BoolSort.
type Sort interface {
	Kind() Kind
	// Values lists every member of the sort in a fixed order.
	Values() []Value
	Contains(v Value) bool
	Size() int
	// Validate reports whether the sort is non-empty and bounded.
	Validate() error
	String() string
	isSort()
}

// IntRange is the integer sort [Min, Max].
type IntRange struct {
	Min int
	Max int
}

func (r IntRange) Kind() Kind {
	return KindInt
}

func (r IntRange) Values() []Value {
	if r.Validate() != nil {
		return nil
	}
	vs := make([]Value, 0, r.Size())
	for n := r.Min; n <= r.Max; n++ {
		vs = append(vs, IntValue(n))
	}
	return vs
}

func (r IntRange) Contains(v Value) bool {
	n, ok := v.Int()
	return ok && n >= r.Min && n <= r.Max
}

// Size is the number of values in r, saturating at math.MaxInt for
// ranges wider than an int can count.
func (r IntRange) Size() int {
	if r.Max < r.Min {
		return 0
	}
	if span := r.span(); span < uint64(math.MaxInt) {
		return int(span) + 1
	}
	return math.MaxInt
}

// span is Max-Min computed without overflow. It requires Min <= Max.
func (r IntRange) span() uint64 {
	return uint64(r.Max) - uint64(r.Min)
}

func (r IntRange) Validate() error {
	if r.Max < r.Min {
		return fmt.Errorf("empty integer range [%d, %d]", r.Min, r.Max)
	}
	if r.span() >= MaxSortSize {
		return fmt.Errorf("integer range [%d, %d] exceeds %d values", r.Min, r.Max, MaxSortSize)
	}
	return nil
}

func (r IntRange) String() string {
	return fmt.Sprintf("int[%d..%d]", r.Min, r.Max)
}

func (IntRange) isSort() {}

// EnumSort is a finite set of symbols. Symbol order is significant
// only for presentation.
type EnumSort struct {
	Symbols []string
}

// Enum returns an EnumSort over the given symbols.
func Enum(symbols ...string) EnumSort {
	return EnumSort{Symbols: symbols}
}

func (e EnumSort) Kind() Kind {
	return KindSymbol
}

func (e EnumSort) Values() []Value {
	vs := make([]Value, len(e.Symbols))
	for i, s := range e.Symbols {
		vs[i] = SymbolValue(s)
	}
	return vs
}

func (e EnumSort) Contains(v Value) bool {
	s, ok := v.Symbol()
	if !ok {
		return false
	}
	for _, each := range e.Symbols {
		if each == s {
			return true
		}
	}
	return false
}

func (e EnumSort) Size() int {
	return len(e.Symbols)
}

func (e EnumSort) Validate() error {
	if len(e.Symbols) == 0 {
		return fmt.Errorf("empty enumeration")
	}
	if len(e.Symbols) > MaxSortSize {
		return fmt.Errorf("enumeration exceeds %d symbols", MaxSortSize)
	}
	seen := make(map[string]struct{}, len(e.Symbols))
	for _, s := range e.Symbols {
		if s == "" {
			return fmt.Errorf("enumeration contains an empty symbol")
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("duplicate symbol %q in enumeration", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func (e EnumSort) String() string {
	return fmt.Sprintf("enum{%s}", strings.Join(e.Symbols, ","))
}

func (EnumSort) isSort() {}

// BoolSort is the sort {false, true}.
type BoolSort struct{}

func (BoolSort) Kind() Kind {
	return KindBool
}

func (BoolSort) Values() []Value {
	return []Value{BoolValue(false), BoolValue(true)}
}

func (BoolSort) Contains(v Value) bool {
	return v.Kind() == KindBool
}

func (BoolSort) Size() int {
	return 2
}

func (BoolSort) Validate() error {
	return nil
}

func (BoolSort) String() string {
	return "bool"
}

func (BoolSort) isSort() {}
