package record

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/iancoleman/orderedmap"
)

// Kind is the scalar type of a Value.
type Kind uint8

const (
	// KindString is a text value.
	KindString Kind = iota
	// KindNumber is a float64 value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
)

var _ json.Marshaler = (*Value)(nil)

// Value is a scalar field value. The zero value is an empty string.
type Value struct {
	kind Kind
	str  string
	num  float64
	flag bool
}

// String creates a text value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number creates a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Kind returns the scalar type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Text formats the value the way it appears in a tabular export.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)

	case KindBool:
		return strconv.FormatBool(v.flag)

	default:
		return v.str
	}
}

// MarshalJSON encodes the value as a JSON scalar of the matching type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num) // nolint: wrapcheck

	case KindBool:
		return json.Marshal(v.flag) // nolint: wrapcheck

	default:
		return json.Marshal(v.str) // nolint: wrapcheck
	}
}

// Record is an ordered mapping of field names to scalar values, produced by an extractor for one URL.
//
//	r := record.New().
//		SetString("url", "https://example.org").
//		SetNumber("links", 3)
//
//	fmt.Println(r.Keys()) // [url links]
type Record struct {
	fields *orderedmap.OrderedMap
}

// New creates an empty record.
func New() Record {
	return Record{fields: orderedmap.New()}
}

// Set sets the field to the value. A new field is appended at the end; an existing field keeps its position.
func (r Record) Set(key string, v Value) Record {
	if r.fields == nil {
		r.fields = orderedmap.New()
	}

	r.fields.Set(key, v)

	return r
}

// SetString sets a text field.
func (r Record) SetString(key, s string) Record {
	return r.Set(key, String(s))
}

// SetNumber sets a numeric field.
func (r Record) SetNumber(key string, n float64) Record {
	return r.Set(key, Number(n))
}

// SetBool sets a boolean field.
func (r Record) SetBool(key string, b bool) Record {
	return r.Set(key, Bool(b))
}

// Get returns the value of the field and whether it is present.
func (r Record) Get(key string) (Value, bool) {
	if r.fields == nil {
		return Value{}, false
	}

	v, ok := r.fields.Get(key)
	if !ok {
		return Value{}, false
	}

	val, ok := v.(Value)

	return val, ok
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string {
	if r.fields == nil {
		return nil
	}

	return r.fields.Keys()
}

// SortedKeys returns the field names in lexical order.
func (r Record) SortedKeys() []string {
	keys := append([]string(nil), r.Keys()...)

	sort.Strings(keys)

	return keys
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.Keys())
}

// Fields returns a copy of the record as a plain map, which is handy for comparing records as mappings.
func (r Record) Fields() map[string]Value {
	result := make(map[string]Value, r.Len())

	for _, k := range r.Keys() {
		result[k], _ = r.Get(k)
	}

	return result
}

// MarshalJSON encodes the record as a JSON object with lexically sorted keys.
func (r Record) MarshalJSON() ([]byte, error) {
	sorted := orderedmap.New()

	for _, k := range r.SortedKeys() {
		v, _ := r.Get(k)

		sorted.Set(k, v)
	}

	return json.Marshal(sorted) // nolint: wrapcheck
}
