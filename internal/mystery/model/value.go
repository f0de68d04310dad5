package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind tags the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is untrusted collaborator content: the same logical field may arrive as a
// string, a list, or a mapping. Values are built once from decoded JSON and then
// coerced into canonical shapes; nothing downstream inspects raw `any` values.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	b    bool
	list []Value
	obj  map[string]Value
}

// FromAny converts the output of encoding/json (with or without UseNumber) into a Value.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{kind: KindNull}
	case string:
		return Value{kind: KindString, str: x}
	case json.Number:
		return Value{kind: KindNumber, num: x}
	case float64:
		return Value{kind: KindNumber, num: json.Number(formatFloat(x))}
	case int:
		return Value{kind: KindNumber, num: json.Number(fmt.Sprint(x))}
	case int64:
		return Value{kind: KindNumber, num: json.Number(fmt.Sprint(x))}
	case bool:
		return Value{kind: KindBool, b: x}
	case []any:
		out := Value{kind: KindList, list: make([]Value, 0, len(x))}
		for _, item := range x {
			out.list = append(out.list, FromAny(item))
		}
		return out
	case []string:
		out := Value{kind: KindList, list: make([]Value, 0, len(x))}
		for _, item := range x {
			out.list = append(out.list, String(item))
		}
		return out
	case map[string]any:
		out := Value{kind: KindObject, obj: make(map[string]Value, len(x))}
		for k, item := range x {
			out.obj[k] = FromAny(item)
		}
		return out
	default:
		return Value{kind: KindString, str: fmt.Sprint(x)}
	}
}

// String builds a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

func (v Value) Kind() Kind        { return v.kind }
func (v Value) List() []Value     { return v.list }
func (v Value) Len() int          { return len(v.list) }
func (v Value) IsObject() bool    { return v.kind == KindObject }
func (v Value) IsList() bool      { return v.kind == KindList }
func (v Value) IsScalar() bool    { return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool }
func (v Value) RawString() string { return v.str }

// Get returns the member k of an object Value.
func (v Value) Get(k string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	out, ok := v.obj[k]
	return out, ok
}

// Keys returns the object's keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text renders a scalar the way a loosely-typed caller would print it.
// Null renders as "", lists and objects render as their JSON form.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v.Any())
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Int reports the Value as an integer when it is a number or a numeric string. Fractions
// truncate toward zero; values outside the int range are rejected.
func (v Value) Int() (int, bool) {
	var n json.Number
	switch v.kind {
	case KindNumber:
		n = v.num
	case KindString:
		n = json.Number(strings.TrimSpace(v.str))
	default:
		return 0, false
	}
	if i, err := n.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < math.MinInt || f >= -math.MinInt {
		return 0, false
	}
	return int(f), true
}

// Any converts back to plain encoding/json values.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.Any())
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

func formatFloat(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Sprint(f)
	}
	return string(b)
}
