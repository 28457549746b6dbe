package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ParameterValueKind tags which field of a ParameterValue is populated.
type ParameterValueKind int

const (
	ValueKindString ParameterValueKind = iota
	ValueKindInteger
	ValueKindFloat
	ValueKindBoolean
)

func (k ParameterValueKind) String() string {
	switch k {
	case ValueKindString:
		return "string"
	case ValueKindInteger:
		return "integer"
	case ValueKindFloat:
		return "float"
	case ValueKindBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("ParameterValueKind(%d)", int(k))
	}
}

// ParameterValue is a coerced parameter value. The kind is fixed when the
// value is created, so consumers switch on Kind() instead of inspecting shapes.
// Dates and times are carried as their canonical strings.
type ParameterValue struct {
	kind ParameterValueKind
	s    string
	i    int64
	f    float64
	b    bool
}

func StringValue(s string) ParameterValue { return ParameterValue{kind: ValueKindString, s: s} }

func IntegerValue(i int64) ParameterValue { return ParameterValue{kind: ValueKindInteger, i: i} }

func FloatValue(f float64) ParameterValue { return ParameterValue{kind: ValueKindFloat, f: f} }

func BooleanValue(b bool) ParameterValue { return ParameterValue{kind: ValueKindBoolean, b: b} }

// Kind reports which payload is populated.
func (v ParameterValue) Kind() ParameterValueKind { return v.kind }

// Str returns the string payload; ok is false for non-string kinds.
func (v ParameterValue) Str() (string, bool) { return v.s, v.kind == ValueKindString }

// Int returns the integer payload; ok is false for non-integer kinds.
func (v ParameterValue) Int() (int64, bool) { return v.i, v.kind == ValueKindInteger }

// Float returns the float payload; ok is false for non-float kinds.
func (v ParameterValue) Float() (float64, bool) { return v.f, v.kind == ValueKindFloat }

// Bool returns the boolean payload; ok is false for non-boolean kinds.
func (v ParameterValue) Bool() (bool, bool) { return v.b, v.kind == ValueKindBoolean }

// Any returns the payload as a plain Go value (string, int64, float64 or bool).
func (v ParameterValue) Any() any {
	switch v.kind {
	case ValueKindInteger:
		return v.i
	case ValueKindFloat:
		return v.f
	case ValueKindBoolean:
		return v.b
	default:
		return v.s
	}
}

func (v ParameterValue) String() string {
	switch v.kind {
	case ValueKindInteger:
		return strconv.FormatInt(v.i, 10)
	case ValueKindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueKindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// MarshalJSON encodes the bare scalar.
func (v ParameterValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// TypedParameterValue pairs a parameter definition with its coerced value.
// It lives only for the duration of one evaluation request.
type TypedParameterValue struct {
	Parameter QueryParameter `json:"parameter"`
	Value     ParameterValue `json:"value"`
}

// UnmarshalJSON decodes the value by the parameter's declared type, so a
// float parameter sent as 2 stays a float. A bare scalar alone cannot tell
// 2 from 2.0, which is why ParameterValue has no decoder of its own.
func (t *TypedParameterValue) UnmarshalJSON(data []byte) error {
	var wire struct {
		Parameter QueryParameter  `json:"parameter"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	value, err := decodeParameterValue(wire.Value, wire.Parameter.Type)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", wire.Parameter.Name, err)
	}
	*t = TypedParameterValue{Parameter: wire.Parameter, Value: value}
	return nil
}

func decodeParameterValue(data json.RawMessage, paramType ParameterType) (ParameterValue, error) {
	switch paramType {
	case ParameterTypeInt:
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return ParameterValue{}, fmt.Errorf("expected integer value, got %s", string(data))
		}
		return IntegerValue(n), nil
	case ParameterTypeFloat:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return ParameterValue{}, fmt.Errorf("expected number value, got %s", string(data))
		}
		return FloatValue(f), nil
	case ParameterTypeBool:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return ParameterValue{}, fmt.Errorf("expected boolean value, got %s", string(data))
		}
		return BooleanValue(b), nil
	default:
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return ParameterValue{}, fmt.Errorf("expected string value, got %s", string(data))
		}
		return StringValue(str), nil
	}
}

// RawParameterInput maps parameter names to the free-form text typed by the user.
type RawParameterInput map[string]string
