package dedupe

import (
	"strconv"

	"github.com/roach88/schemasan/internal/value"
)

// identity is the comparable form of a key-field value.
//
// Equality follows strict-equality semantics on the decoded value:
//   - strings, booleans and null compare by value
//   - numbers compare numerically (1 and 1.0 are the same key)
//   - every record without the key field shares one "absent" identity
//   - arrays and objects are never equal to anything else, because each
//     record holds its own copy of them
type identity struct {
	kind byte
	text string
}

const (
	kindAbsent    byte = 'a'
	kindNull      byte = 'n'
	kindString    byte = 's'
	kindNumber    byte = 'd'
	kindBool      byte = 'b'
	kindReference byte = 'r'
)

// identityOf computes the identity of record's keyField value. The index is
// only used to make composite key values unique.
func identityOf(record value.Value, keyField string, index int) (identity, error) {
	var key value.Value
	switch rec := record.(type) {
	case value.Null:
		return identity{}, ErrNullRecord
	case *value.Object:
		key, _ = rec.Get(keyField)
	default:
		// Scalars and arrays have no fields: the key is absent.
	}

	switch k := key.(type) {
	case nil:
		return identity{kind: kindAbsent}, nil
	case value.Null:
		return identity{kind: kindNull}, nil
	case value.String:
		return identity{kind: kindString, text: string(k)}, nil
	case value.Number:
		text, err := value.CanonicalNumber(k)
		if err != nil {
			// Out of float64 range; fall back to the literal spelling.
			text = string(k)
		}
		return identity{kind: kindNumber, text: text}, nil
	case value.Bool:
		return identity{kind: kindBool, text: strconv.FormatBool(bool(k))}, nil
	default:
		return identity{kind: kindReference, text: strconv.Itoa(index)}, nil
	}
}
