package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for fingerprinting.
// This is the ONLY serialization that should be used for content identity.
//
// Key differences from Marshal:
//  1. Object keys sorted by UTF-16 code units (not insertion order)
//  2. Strings are NFC normalized
//  3. Numbers are normalized (1.0, 1e0 and 1 all encode as 1)
//  4. U+2028 and U+2029 are written literally
//  5. Absent (nil) values are rejected
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("absent value cannot be canonicalized")
	case Null:
		buf.WriteString("null")
	case String:
		s, err := marshalCanonicalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(s)
	case Number:
		n, err := CanonicalNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(n)
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case *Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalCanonicalString(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			elem, _ := val.Get(k)
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// CanonicalNumber returns the ECMAScript-style shortest representation of n.
// Two numbers that compare equal numerically produce the same string.
func CanonicalNumber(n Number) (string, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return "", fmt.Errorf("invalid number %q: %w", string(n), err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("number %q is out of range", string(n))
	}
	if f == 0 {
		return "0", nil // also folds -0
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}

	// Exponent form: Go writes "1e-07", ECMAScript writes "1e-7".
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + string(sign) + digits, nil
}

// marshalCanonicalString produces a canonical JSON string with NFC normalization.
// Only control characters, backslash, and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	result, err := marshalString(norm.NFC.String(s))
	if err != nil {
		return nil, err
	}
	// Go's json.Encoder escapes U+2028/U+2029 for JavaScript embedding;
	// canonical JSON writes them literally.
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators converts \u2028 and \u2029 escape sequences to
// literal characters, leaving \\u2028 (an escaped backslash followed by the
// text "u2028") untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	result := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			result = append(result, data[i])
			continue
		}
		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				result = append(result, "\u2028"...)
			} else {
				result = append(result, "\u2029"...)
			}
			i += 5
			continue
		}
		// Any other escape: copy the backslash and the escaped byte together
		// so an escaped backslash never pairs with what follows.
		result = append(result, data[i])
		if i+1 < len(data) {
			i++
			result = append(result, data[i])
		}
	}
	return result
}
