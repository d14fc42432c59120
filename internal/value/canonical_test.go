package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"null", Null{}, "null"},
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"zero", Int(0), "0"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", NewObject(), "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"simple object", ObjectOf(P("a", Int(1))), `{"a":1}`},
		{"html not escaped", String("<a&b>"), `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := ObjectOf(
		P("zebra", Int(1)),
		P("alpha", Int(2)),
		P("beta", Int(3)),
	)

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := ObjectOf(
		P("z", ObjectOf(P("b", Int(1)), P("a", Int(2)))),
		P("a", Int(3)),
	)

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 sorts after U+10000 in UTF-16 (surrogate 0xD800 < 0xE000),
	// but before it in UTF-8 byte order.
	obj := ObjectOf(
		P("\uE000", Int(1)),
		P("\U00010000", Int(2)),
	)

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := String("cafe\u0301")
	composed := String("caf\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// An escaped backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalRejectsAbsent(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(Array{String("a"), nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestCanonicalNumber(t *testing.T) {
	tests := []struct {
		input    Number
		expected string
	}{
		{"1", "1"},
		{"1.0", "1"},
		{"1e0", "1"},
		{"-0", "0"},
		{"0.000", "0"},
		{"150", "150"},
		{"2.50", "2.5"},
		{"1e21", "1e+21"},
		{"1E-7", "1e-7"},
		{"0.000001", "0.000001"},
		{"123456789012345680000", "123456789012345680000"},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got, err := CanonicalNumber(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCanonicalNumberInvalid(t *testing.T) {
	_, err := CanonicalNumber("abc")
	assert.Error(t, err)

	_, err = CanonicalNumber("1e400")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a, err := Parse([]byte(`{"key":"object_1","count":1.0,"fields":[]}`))
	require.NoError(t, err)
	b, err := Parse([]byte(`{"fields":[],"count":1,"key":"object_1"}`))
	require.NoError(t, err)
	c, err := Parse([]byte(`{"fields":[],"count":2,"key":"object_1"}`))
	require.NoError(t, err)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	fc, err := Fingerprint(c)
	require.NoError(t, err)

	assert.Len(t, fa, 64)
	assert.Equal(t, fa, fb, "key order and number spelling do not change identity")
	assert.NotEqual(t, fa, fc)
}

func TestFingerprintDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainDocument, data), hashWithDomain("other/v1", data))
}

func TestFingerprintAbsent(t *testing.T) {
	_, err := Fingerprint(nil)
	assert.Error(t, err)
}
