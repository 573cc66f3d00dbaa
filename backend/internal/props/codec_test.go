package props

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "digital-twin/backend/pkg/errors"
)

func samplePayload() Properties {
	return Properties{
		"name":     String("Pump 7"),
		"active":   Bool(true),
		"capacity": Int(9007199254740993), // above 2^53
		"ratio":    Float(0.125),
		"notes":    Null(),
		"tags":     List(String("b"), String("a"), Int(3)),
		"location": Map(map[string]Value{
			"site":   String("north"),
			"coords": List(Float(51.5), Float(-0.12)),
			"meta":   Map(nil),
		}),
		"quote": String("say \"hi\" <ok> & é"),
	}
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]Properties{
		"empty":  {},
		"flat":   {"a": Int(1), "b": String("x")},
		"nested": samplePayload(),
		"lists":  {"deep": List(List(), List(Null(), Bool(false)), Map(map[string]Value{"k": List()}))},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			encoded, err := Encode(payload)
			require.NoError(t, err)

			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.True(t, payload.Equal(decoded), "payload changed: %s", encoded)
		})
	}
}

func TestEncode_SortsKeysAndKeepsListOrder(t *testing.T) {
	encoded, err := Encode(Properties{
		"z": Int(1),
		"a": List(String("second"), String("first")),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["second","first"],"z":1}`, encoded)
}

func TestDecode_EmptyInputYieldsEmptyMap(t *testing.T) {
	for _, in := range []string{"", "   ", "null"} {
		p, err := Decode(in)
		require.NoError(t, err)
		assert.NotNil(t, p)
		assert.Empty(t, p)
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	for _, in := range []string{"{", "[1,2]", `"text"`, `{"a":1} trailing`} {
		_, err := Decode(in)
		require.Error(t, err, in)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization), in)
	}
}

func TestEncode_RejectsNonJSONNumbers(t *testing.T) {
	_, err := Encode(Properties{"bad": Float(math.NaN())})
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization))

	_, err = FromAny(math.Inf(1))
	assert.Error(t, err)
}

func TestEncode_RejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name string
		p    Properties
	}{
		{name: "value", p: Properties{"s": String("a\xffb")}},
		{name: "key", p: Properties{"k\xfe": Int(1)}},
		{name: "nested", p: Properties{"list": List(String("ok"), String("\xc3"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.p)
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization))
		})
	}

	_, err := FromAny("a\xffb")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization))

	_, err = FromMap(map[string]any{"k\xfe": 1})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization))
}

func TestEncode_RejectsPaddedNumberLiterals(t *testing.T) {
	for _, lit := range []string{"1 ", " 1", "1\n"} {
		_, err := Encode(Properties{"n": Number(lit)})
		require.Error(t, err, "%q", lit)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization), "%q", lit)

		_, err = FromAny(json.Number(lit))
		assert.Error(t, err, "%q", lit)
	}

	out, err := Encode(Properties{"n": Number("12345678901234567890")})
	require.NoError(t, err)
	assert.Equal(t, `{"n":12345678901234567890}`, out)
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    42,
		"list": []string{"x", "y"},
		"obj":  struct{ A int }{A: 1},
	})
	require.NoError(t, err)

	m, ok := v.AsMap()
	require.True(t, ok)
	n, ok := m["n"].AsInt64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	list, ok := m["list"].AsList()
	require.True(t, ok)
	require.Len(t, list, 2)
	s, _ := list[1].AsString()
	assert.Equal(t, "y", s)

	obj, ok := m["obj"].AsMap()
	require.True(t, ok)
	a, _ := obj["A"].AsInt64()
	assert.Equal(t, int64(1), a)
}

func TestFromAny_RejectsFuncs(t *testing.T) {
	_, err := FromAny(map[string]any{"fn": func() {}})
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSerialization))
}

func TestValueJSON(t *testing.T) {
	var v Value
	require.NoError(t, v.UnmarshalJSON([]byte(`{"b":[1,2.5,"x"],"a":null}`)))

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":null,"b":[1,2.5,"x"]}`, string(out))
}

func TestMerge(t *testing.T) {
	base := Properties{"a": Int(1), "b": Int(2)}
	merged := Merge(base, Properties{"b": Int(3), "c": String("new")})

	assert.True(t, merged.Equal(Properties{"a": Int(1), "b": Int(3), "c": String("new")}))
	assert.True(t, base.Equal(Properties{"a": Int(1), "b": Int(2)}), "base must not change")
}
