package rotini

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Type is the declared type of an argument or flag value
type Type string

const (
	TypeString       Type = "string"
	TypeNumber       Type = "number"
	TypeBoolean      Type = "boolean"
	TypeStringArray  Type = "string[]"
	TypeNumberArray  Type = "number[]"
	TypeBooleanArray Type = "boolean[]"
)

func (t Type) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeStringArray, TypeNumberArray, TypeBooleanArray:
		return true
	default:
		return false
	}
}

// IsArray reports whether t is one of the array forms
func (t Type) IsArray() bool { return strings.HasSuffix(string(t), "[]") }

// Element returns the scalar type of an array type, or t itself
func (t Type) Element() Type { return Type(strings.TrimSuffix(string(t), "[]")) }

// Value is what validators and parsers receive: the raw token text and the
// value it was coerced to.
type Value struct {
	Raw     string
	Coerced any
}

// Validator rejects a value by returning an error
type Validator func(v Value) error

// Parser turns a coerced value into the value handlers receive
type Parser func(v Value) (any, error)

// valueHandler is the validate/parse capability every argument and flag has
type valueHandler interface {
	Validate(v Value) error
	Parse(v Value) (any, error)
}

// callbacks adapts the optional user functions to valueHandler. Missing
// functions behave as no-ops; errors and panics come back as plain errors.
type callbacks struct {
	validate Validator
	parse    Parser
}

var _ valueHandler = callbacks{}

func (c callbacks) Validate(v Value) (err error) {
	if c.validate == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panicked: %v", r)
		}
	}()
	return c.validate(v)
}

func (c callbacks) Parse(v Value) (out any, err error) {
	if c.parse == nil {
		return v.Coerced, nil
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("parser panicked: %v", r)
		}
	}()
	return c.parse(v)
}

// coerce converts token text into the scalar type t
func coerce(raw string, t Type) (any, error) {
	switch t.Element() {
	case TypeString:
		return raw, nil
	case TypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case TypeBoolean:
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean (expected true or false)", raw)
	default:
		return nil, fmt.Errorf("unsupported type %q", t)
	}
}

// normalizeScalar converts a Go literal (from a definition literal or a
// decoded file) into the runtime representation of scalar type t.
func normalizeScalar(v any, t Type) (any, error) {
	switch t.Element() {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeNumber:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%v (%T) is not a %s", v, v, t.Element())
}

// normalizeValue converts a literal into the runtime representation of t,
// accepting any slice kind for array types.
func normalizeValue(v any, t Type) (any, error) {
	if !t.IsArray() {
		return normalizeScalar(v, t)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%v (%T) is not a %s", v, v, t)
	}

	items := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		item, err := normalizeScalar(rv.Index(i).Interface(), t)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return typedSlice(items, t), nil
}

// typedSlice converts collected values into []string, []float64 or []bool
func typedSlice(items []any, t Type) any {
	switch t.Element() {
	case TypeNumber:
		out := make([]float64, 0, len(items))
		for _, item := range items {
			n, _ := item.(float64)
			out = append(out, n)
		}
		return out
	case TypeBoolean:
		out := make([]bool, 0, len(items))
		for _, item := range items {
			b, _ := item.(bool)
			out = append(out, b)
		}
		return out
	default:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, _ := item.(string)
			out = append(out, s)
		}
		return out
	}
}

// elements returns the members of a typedSlice value
func elements(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{v}
	}
	out := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}

// allows reports whether value is in the closed set; an empty set allows all
func allows(allowed []any, value any) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

func formatValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}

// acceptValue runs the full pipeline for one token: coerce, allowed values,
// validator, parser.
func acceptValue(raw string, t Type, allowed []any, h valueHandler) (any, error) {
	coerced, err := coerce(raw, t)
	if err != nil {
		return nil, err
	}
	if !allows(allowed, coerced) {
		return nil, fmt.Errorf("%q is not one of the allowed values: %s", raw, formatValues(allowed))
	}

	v := Value{Raw: raw, Coerced: coerced}
	if err := h.Validate(v); err != nil {
		return nil, fmt.Errorf("%q failed validation: %w", raw, err)
	}
	parsed, err := h.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%q could not be parsed: %w", raw, err)
	}
	return parsed, nil
}

// collect builds the runtime value of a variadic slot. Parsed elements may be
// of any type and stay []any; otherwise the slice is typed.
func collect(items []any, t Type, parsed bool) any {
	if parsed {
		return items
	}
	return typedSlice(items, t)
}
