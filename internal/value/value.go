package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface representing a decoded JSON value.
// Only Null, String, Number, Bool, Array, and *Object implement this.
//
// A Go nil Value means "absent" (a missing field), which is distinct from
// an explicit JSON null (Null{}).
type Value interface {
	jsonValue() // Sealed - only these types implement it
}

// Null represents a JSON null value.
type Null struct{}

func (Null) jsonValue() {}

// String represents a JSON string value.
type String string

func (String) jsonValue() {}

// Number represents a JSON number, kept as its literal source text.
// Keeping the text means numbers are written back exactly as they were read
// (no float rounding, no exponent rewriting).
type Number string

func (Number) jsonValue() {}

// Bool represents a JSON boolean value.
type Bool bool

func (Bool) jsonValue() {}

// Array represents a JSON array.
type Array []Value

func (Array) jsonValue() {}

// Object represents a JSON object with insertion-ordered keys.
// The zero value is not usable; construct with NewObject or ObjectOf.
type Object struct {
	keys   []string
	fields map[string]Value
}

func (*Object) jsonValue() {}

// Int creates a Number from an integer.
func Int(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// Float64 parses the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Pair is a key-value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: ObjectOf(P("key", String("1")), P("fields", Array{}))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// ObjectOf creates an Object from pairs, preserving their order.
// A repeated key keeps its first position and takes the last value.
func ObjectOf(pairs ...Pair) *Object {
	obj := &Object{
		keys:   make([]string, 0, len(pairs)),
		fields: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		obj.Set(p.Key, p.Value)
	}
	return obj
}

// Get returns the value stored under key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Set stores v under key. An existing key is replaced in place;
// a new key is appended after all existing keys.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Delete removes key. Deleting a missing key is a no-op.
func (o *Object) Delete(key string) {
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order. The slice is a copy.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's default string ordering compares UTF-8 bytes, which differs for
// characters outside the BMP.
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// ErrEmptyInput is returned by Parse when there is no JSON value to decode.
var ErrEmptyInput = errors.New("empty JSON input")

// Parse decodes exactly one JSON value from data, preserving object key order
// and the literal text of numbers. Trailing non-whitespace data is an error.
//
// Duplicate keys inside a single object follow JSON.parse semantics:
// the key keeps its first position and the last value wins.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected %v after top-level value", tok)
	}

	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("object key %q: %w", key, err)
		}
		obj.Set(key, v)
	}
	// Consume the closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	arr := Array{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("array index %d: %w", len(arr), err)
		}
		arr = append(arr, v)
	}
	// Consume the closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// Marshal encodes v as compact JSON. Object keys keep their insertion order
// and <, >, & are not HTML-escaped, so the output matches what a browser's
// JSON.stringify would produce for the same document.
//
// A nil Value (absent) is written as null.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent is like Marshal but applies json.Indent formatting.
func MarshalIndent(v Value, prefix, indent string) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, prefix, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		s, err := marshalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(s)
	case Number:
		if !isNumberLiteral(string(val)) {
			return fmt.Errorf("invalid JSON number %q", string(val))
		}
		buf.WriteString(string(val))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case *Object:
		buf.WriteByte('{')
		for i, k := range val.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalString(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeValue(buf, val.fields[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

// isNumberLiteral reports whether s is a single valid JSON number.
func isNumberLiteral(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

// marshalString encodes s as a JSON string without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON implements json.Marshaler for Number, writing the literal text.
func (n Number) MarshalJSON() ([]byte, error) { return Marshal(n) }

// MarshalJSON implements json.Marshaler for Array.
func (a Array) MarshalJSON() ([]byte, error) { return Marshal(a) }

// MarshalJSON implements json.Marshaler for Object, preserving key order.
func (o *Object) MarshalJSON() ([]byte, error) { return Marshal(o) }

// UnmarshalJSON implements json.Unmarshaler for Object.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", KindOf(v))
	}
	*o = *obj
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (a *Array) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	arr, ok := v.(Array)
	if !ok {
		return fmt.Errorf("expected JSON array, got %s", KindOf(v))
	}
	*a = arr
	return nil
}

// KindOf returns a short human-readable name for the JSON type of v,
// used in error messages.
func KindOf(v Value) string {
	switch v.(type) {
	case nil:
		return "absent"
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
