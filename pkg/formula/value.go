package formula

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindSymbol
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindSymbol:
		return "symbol"
	case KindBool:
		return "bool"
	}
	return "invalid"
}

// Value is a concrete fluent value: an integer, an enumerated symbol
// or a boolean. The zero Value is invalid. Values are comparable and
// may be used as map keys.
type Value struct {
	kind Kind
	i    int
	s    string
}

// IntValue returns the integer Value n.
func IntValue(n int) Value {
	return Value{kind: KindInt, i: n}
}

// SymbolValue returns the enumerated symbol Value s.
func SymbolValue(s string) Value {
	return Value{kind: KindSymbol, s: s}
}

// BoolValue returns the boolean Value b.
func BoolValue(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// Int returns the integer held by v, and false if v is not an
// integer.
func (v Value) Int() (int, bool) {
	return v.i, v.kind == KindInt
}

// Symbol returns the symbol held by v, and false if v is not a
// symbol.
func (v Value) Symbol() (string, bool) {
	return v.s, v.kind == KindSymbol
}

// Bool returns the boolean held by v, and false if v is not a
// boolean.
func (v Value) Bool() (bool, bool) {
	return v.i == 1, v.kind == KindBool
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.i)
	case KindSymbol:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.i == 1)
	}
	return "<invalid>"
}

// MarshalJSON encodes integers as numbers, symbols as strings and
// booleans as booleans.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindSymbol:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.i == 1)
	}
	return nil, fmt.Errorf("cannot marshal invalid value")
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case float64:
		if x != float64(int(x)) {
			return fmt.Errorf("value %v is not an integer", x)
		}
		*v = IntValue(int(x))
	case string:
		*v = SymbolValue(x)
	case bool:
		*v = BoolValue(x)
	default:
		return fmt.Errorf("unsupported value %s", string(data))
	}
	return nil
}
