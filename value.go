// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package procyon implements the Procyon data-interchange format: a
// lexer, event-driven parser, tree loader, and canonicalizing serializer
// for a JSON superset with indentation-sensitive long-form syntax
// alongside JSON-like short-form syntax.
package procyon

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindData
	KindString
	KindArray
	KindMap
)

var kindNames = [...]string{
	"null", "bool", "int", "float", "data", "string", "array", "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a decoded Procyon value. Exactly one of the typed fields below
// is meaningful, selected by Kind; Array and Map hold nested Values.
// Form records whether the value was read in short or long form; Dump
// does not consult it, so a round trip does not reproduce the source
// layout.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Data  []byte
	Str   string
	Array []Value
	Map   *Map

	Form Form
}

// Form records which syntactic form produced a Value: short (one line)
// or long (indentation-driven). It is informational only: Dump never
// consults it, since the reference encoder's classifier (S2) always
// re-derives short/long eligibility from the value's own shape rather
// than from how it happened to be read.
type Form uint8

const (
	FormShort Form = iota
	FormLong
)

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns an int value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Bytes returns a data value.
func Bytes(b []byte) Value { return Value{Kind: KindData, Data: b} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// NewArray returns an array value.
func NewArray(items []Value) Value { return Value{Kind: KindArray, Array: items} }

// NewMap returns a map value.
func NewMap(m *Map) Value { return Value{Kind: KindMap, Map: m} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Map is an order-preserving string-keyed map: Procyon map entries are
// ordered in source/serialization order, unlike a plain Go map.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap returns an empty ordered map ready for Set.
func NewOrderedMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Len reports the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set inserts or replaces the value for key, appending it to iteration
// order if it is new.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Keys returns the entry keys in insertion order. The returned slice must
// not be mutated.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Range calls fn for every entry in insertion order, stopping early if fn
// returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}
