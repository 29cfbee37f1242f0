// Package core defines the data model and interface contracts shared by
// every layer of the orchestration core: Step, Context, Event, the typed
// error taxonomy, and the Session/Memory/Tracer/ToolImpl boundaries the
// agent loop and workflow combinators depend on.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind identifies the dynamic type carried by a Value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueDouble
	ValueString
	ValueArray
	ValueObject
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueDouble:
		return "double"
	case ValueString:
		return "string"
	case ValueArray:
		return "array"
	case ValueObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the dynamically-typed value used for tool arguments, tool
// results, and metadata. It is a closed sum type over null, bool, int,
// double, string, an ordered array of Value, and a keyed map of Value.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	d    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{kind: ValueNull} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Int wraps an int64.
func Int(i int64) Value { return Value{kind: ValueInt, i: i} }

// Double wraps a float64.
func Double(d float64) Value { return Value{kind: ValueDouble, d: d} }

// String wraps a string.
func String(s string) Value { return Value{kind: ValueString, s: s} }

// Array wraps an ordered list of Value.
func Array(vs ...Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: ValueArray, arr: cp}
}

// Object wraps a keyed map of Value.
func Object(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: ValueObject, obj: cp}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == ValueNull }

func (v Value) AsBool() (bool, bool)          { return v.b, v.kind == ValueBool }
func (v Value) AsInt() (int64, bool)          { return v.i, v.kind == ValueInt }
func (v Value) AsDouble() (float64, bool)     { return v.d, v.kind == ValueDouble }
func (v Value) AsString() (string, bool)      { return v.s, v.kind == ValueString }
func (v Value) AsArray() ([]Value, bool)      { return v.arr, v.kind == ValueArray }
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == ValueObject }

// Get looks up a key in an object Value; returns (Null(), false) for any
// non-object or missing key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != ValueObject {
		return Null(), false
	}
	val, ok := v.obj[key]
	return val, ok
}

// Equal reports structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueNull:
		return true
	case ValueBool:
		return v.b == other.b
	case ValueInt:
		return v.i == other.i
	case ValueDouble:
		return v.d == other.d
	case ValueString:
		return v.s == other.s
	case ValueArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case ValueObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, val := range v.obj {
			ov, ok := other.obj[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToString renders a debug representation; use MarshalJSON for wire format.
func (v Value) ToString() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<value kind=%s>", v.kind)
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler with deterministic key ordering.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueBool:
		return json.Marshal(v.b)
	case ValueInt:
		return json.Marshal(v.i)
	case ValueDouble:
		return json.Marshal(v.d)
	case ValueString:
		return json.Marshal(v.s)
	case ValueArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case ValueObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Double(t)
	case string:
		return String(t)
	case []interface{}:
		vs := make([]Value, len(t))
		for i, item := range t {
			vs[i] = fromInterface(item)
		}
		return Array(vs...)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = fromInterface(item)
		}
		return Object(m)
	default:
		return Null()
	}
}
