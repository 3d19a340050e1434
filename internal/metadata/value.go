// Package metadata holds the loosely structured page metadata collected during
// a scrape: the ordered raw key/value pairs, the nested tree built from them,
// and the path resolver used by the mapping engine to read that tree.
package metadata

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the variants of a Value.
type Kind uint8

// Value kinds.
const (
	KindInvalid Kind = iota
	KindScalar
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is a node of the metadata tree: a scalar string, an object of named
// children, or an ordered array of children. The zero Value is invalid.
type Value struct {
	kind  Kind
	str   string
	obj   map[string]Value
	items []Value
}

// String builds a scalar Value.
func String(s string) Value {
	return Value{kind: KindScalar, str: s}
}

// Object builds an object Value. A nil map yields an empty object.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// Array builds an array Value.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds any variant.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Str returns the scalar content and whether v is a scalar.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindScalar
}

// Field returns the named child of an object Value.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	child, ok := v.obj[key]
	return child, ok
}

// Fields returns the children of an object Value. The map must not be modified.
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Items returns the elements of an array Value.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Len returns the number of children of an object or array, 1 for a scalar
// and 0 for an invalid Value.
func (v Value) Len() int {
	switch v.kind {
	case KindScalar:
		return 1
	case KindObject:
		return len(v.obj)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Interface converts v to plain Go values: string, map[string]any or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.str
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, child := range v.obj {
			out[k] = child.Interface()
		}
		return out
	case KindArray:
		out := make([]any, len(v.items))
		for i, child := range v.items {
			out[i] = child.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v as a JSON string, object or array.
func (v Value) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch v.kind {
	case KindScalar:
		data, err = json.Marshal(v.str)
	case KindObject:
		data, err = json.Marshal(v.obj)
	case KindArray:
		if v.items == nil {
			return []byte("[]"), nil
		}
		data, err = json.Marshal(v.items)
	default:
		return []byte("null"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", v.kind, err)
	}
	return data, nil
}
