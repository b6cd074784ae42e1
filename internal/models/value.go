package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a single attribute value from a platform attribute bag.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	raw  string
	b    bool
	obj  Attributes
	list []Value
}

// Attributes is a key/value bag of platform attributes.
type Attributes map[string]Value

func Null() Value { return Value{} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// NumberText keeps the decoded decimal text of a number so identifiers wider
// than a float64 mantissa survive unchanged.
func NumberText(text string) (Value, error) {
	f, _, err := big.ParseFloat(text, 10, 64, big.ToNearestEven)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", text, err)
	}
	n, _ := f.Float64()
	return Value{kind: KindNumber, num: n, raw: text}, nil
}

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Object(a Attributes) Value { return Value{kind: KindObject, obj: a} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Strings builds a list value out of plain strings.
func Strings(items []string) Value {
	list := make([]Value, 0, len(items))
	for _, s := range items {
		list = append(list, String(s))
	}
	return List(list...)
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsObject() (Attributes, bool) { return v.obj, v.kind == KindObject }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// String renders scalars the way they appear in URLs and log lines.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.raw != "" {
			return v.raw
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindObject, KindList:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return ""
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return numbersEqual(v, o)
	case KindBool:
		return v.b == o.b
	case KindObject:
		return v.obj.Equal(o.obj)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func numbersEqual(a, b Value) bool {
	if a.num != b.num {
		return false
	}
	if a.raw == "" && b.raw == "" {
		return true
	}
	x, _, errx := big.ParseFloat(a.String(), 10, 256, big.ToNearestEven)
	y, _, erry := big.ParseFloat(b.String(), 10, 256, big.ToNearestEven)
	if errx != nil || erry != nil {
		return a.String() == b.String()
	}
	return x.Cmp(y) == 0
}

// MarshalJSON writes objects with sorted keys so encodings are stable.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if v.raw != "" {
			return []byte(v.raw), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindObject:
		return v.obj.MarshalJSON()
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts a decoded JSON tree into a Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		return NumberText(t.String())
	case map[string]any:
		obj := make(Attributes, len(t))
		for k, item := range t {
			val, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = val
		}
		return Object(obj), nil
	case []any:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			val, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, val)
		}
		return List(list...), nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute type %T", raw)
	}
}

// Get returns the value stored under key; missing keys read as null.
func (a Attributes) Get(key string) Value {
	if a == nil {
		return Null()
	}
	return a[key]
}

// Present reports whether key holds a non-null value.
func (a Attributes) Present(key string) bool {
	v, ok := a[key]
	return ok && !v.IsNull()
}

// Clone returns a shallow copy of the bag.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := a[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
