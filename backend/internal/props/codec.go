package props

import (
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	apperrors "digital-twin/backend/pkg/errors"
)

// Encode converts a payload to the scalar JSON text stored by the graph
// backends. Keys are written in sorted order; list order is preserved.
func Encode(p Properties) (string, error) {
	var sb strings.Builder
	if err := writeMap(&sb, p); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Decode parses scalar JSON text back into a payload. Empty, blank and
// "null" input decode to an empty, non-nil payload.
func Decode(s string) (Properties, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "null" {
		return Properties{}, nil
	}

	raw, err := decodeAny(trimmed)
	if err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, apperrors.NewSerialization(fmt.Sprintf("payload must be a JSON object, got %T", raw), nil)
	}
	return FromMap(m)
}

// FromMap converts a plain Go map, e.g. one produced by a JSON decoder or
// a database driver, into a payload.
func FromMap(m map[string]any) (Properties, error) {
	out := make(Properties, len(m))
	for k, item := range m {
		if !utf8.ValidString(k) {
			return nil, apperrors.NewSerialization(fmt.Sprintf("property key %q is not valid UTF-8", k), nil)
		}
		v, err := FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// ToMap converts a payload into plain Go values
func (p Properties) ToMap() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Any()
	}
	return out
}

// FromAny converts a plain Go value into a Value. Values that have no JSON
// form (funcs, channels, NaN, invalid UTF-8) fail with ErrSerialization.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case Properties:
		return Map(t.Clone()), nil
	case bool:
		return Bool(t), nil
	case string:
		if !utf8.ValidString(t) {
			return Value{}, apperrors.NewSerialization(fmt.Sprintf("string %q is not valid UTF-8", t), nil)
		}
		return String(t), nil
	case json.Number:
		return numberFromLiteral(string(t))
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return floatValue(float64(t))
	case float64:
		return floatValue(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		p, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Map(p), nil
	default:
		// Anything else must survive a trip through JSON.
		data, err := json.Marshal(t)
		if err != nil {
			return Value{}, apperrors.NewSerialization(fmt.Sprintf("unsupported property value of type %T", x), err)
		}
		raw, err := decodeAny(string(data))
		if err != nil {
			return Value{}, err
		}
		return FromAny(raw)
	}
}

// MarshalJSON writes the canonical form of the value
func (v Value) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	if err := writeValue(&sb, v); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// UnmarshalJSON parses any JSON document into the value
func (v *Value) UnmarshalJSON(data []byte) error {
	raw, err := decodeAny(string(data))
	if err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeAny(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewSerialization("malformed property payload", err)
	}
	var extra any
	if err := dec.Decode(&extra); !stderrors.Is(err, io.EOF) {
		return nil, apperrors.NewSerialization("trailing data after property payload", err)
	}
	return raw, nil
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, apperrors.NewSerialization(fmt.Sprintf("number %v has no JSON form", f), nil)
	}
	return Float(f), nil
}

func numberFromLiteral(s string) (Value, error) {
	if !isNumberLiteral(s) {
		return Value{}, apperrors.NewSerialization(fmt.Sprintf("invalid number literal %q", s), nil)
	}
	return Number(s), nil
}

func isNumberLiteral(s string) bool {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) {
		return false
	}
	if s != strings.TrimSpace(s) {
		return false
	}
	return json.Valid([]byte(s))
}

func writeValue(sb *strings.Builder, v Value) error {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindNumber:
		if !isNumberLiteral(v.s) {
			return apperrors.NewSerialization(fmt.Sprintf("invalid number literal %q", v.s), nil)
		}
		sb.WriteString(v.s)
	case KindString:
		return writeString(sb, v.s)
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeValue(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case KindMap:
		return writeMap(sb, v.m)
	default:
		return apperrors.NewSerialization(fmt.Sprintf("unknown value kind %d", v.kind), nil)
	}
	return nil
}

func writeMap(sb *strings.Builder, m map[string]Value) error {
	sb.WriteByte('{')
	for i, k := range Properties(m).Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeString(sb, k); err != nil {
			return err
		}
		sb.WriteByte(':')
		if err := writeValue(sb, m[k]); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
	}
	sb.WriteByte('}')
	return nil
}

func writeString(sb *strings.Builder, s string) error {
	if !utf8.ValidString(s) {
		return apperrors.NewSerialization(fmt.Sprintf("string %q is not valid UTF-8", s), nil)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return apperrors.NewSerialization("failed to encode string", err)
	}
	sb.Write(data)
	return nil
}
