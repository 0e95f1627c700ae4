// Package value implements the dynamic value model the condition engine
// compares: strings, exact decimal numbers, booleans and the Absent marker
// produced by a failed attribute lookup.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrIncomparableKinds = errors.New("incomparable kinds")
	ErrUnsupportedType   = errors.New("unsupported attribute type")
	ErrMalformedNumber   = errors.New("malformed number")
)

type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "absent"
	}
}

// Value is a tagged union. The zero Value is Absent.
type Value struct {
	kind    Kind
	text    string
	number  decimal.Decimal
	boolean bool
}

func Absent() Value {
	return Value{}
}

func String(text string) Value {
	return Value{kind: KindString, text: text}
}

func Number(number decimal.Decimal) Value {
	return Value{kind: KindNumber, number: number}
}

func Int(number int64) Value {
	return Number(decimal.NewFromInt(number))
}

func Boolean(b bool) Value {
	return Value{kind: KindBoolean, boolean: b}
}

// ParseNumber converts the text of a numeric literal into a Number.
func ParseNumber(text string) (Value, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q", ErrMalformedNumber, text)
	}
	return Number(d), nil
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindString
}

func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.number, v.kind == KindNumber
}

func (v Value) Bool() (bool, bool) {
	return v.boolean, v.kind == KindBoolean
}

// Native returns the Go representation: string, decimal.Decimal, bool or nil.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.text
	case KindNumber:
		return v.number
	case KindBoolean:
		return v.boolean
	default:
		return nil
	}
}

// String renders the value the way it is written as a condition literal.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return `"` + v.text + `"`
	case KindNumber:
		return v.number.String()
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	default:
		return "absent"
	}
}

// Equal is kind-sensitive. Absent is unequal to everything, itself included.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.text == b.text
	case KindNumber:
		return a.number.Equal(b.number)
	case KindBoolean:
		return a.boolean == b.boolean
	default:
		return false
	}
}

// Compare orders two values of the same kind. Strings are compared
// ordinally, false sorts before true.
func Compare(a, b Value) (int, error) {
	if a.kind != b.kind || a.kind == KindAbsent {
		return 0, fmt.Errorf("%w: %s and %s", ErrIncomparableKinds, a.kind, b.kind)
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.text, b.text), nil
	case KindNumber:
		return a.number.Cmp(b.number), nil
	default:
		switch {
		case a.boolean == b.boolean:
			return 0, nil
		case !a.boolean:
			return -1, nil
		default:
			return 1, nil
		}
	}
}

// FromAny converts a Go value held by a record into a Value.
// nil and nil pointers become Absent.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t)), nil
	case uint8:
		return fromUint(uint64(t)), nil
	case uint16:
		return fromUint(uint64(t)), nil
	case uint32:
		return fromUint(uint64(t)), nil
	case uint64:
		return fromUint(t), nil
	case float32:
		return fromFloat(float64(t), 32)
	case float64:
		return fromFloat(t, 64)
	case decimal.Decimal:
		return Number(t), nil
	case *decimal.Decimal:
		if t == nil {
			return Absent(), nil
		}
		return Number(*t), nil
	case json.Number:
		return ParseNumber(t.String())
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromUint(u uint64) Value {
	d, _ := decimal.NewFromString(strconv.FormatUint(u, 10))
	return Number(d)
}

// fromFloat rejects NaN and infinities, which have no decimal form.
func fromFloat(f float64, bitSize int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformedNumber, f)
	}
	if bitSize == 32 {
		return Number(decimal.NewFromFloat32(float32(f))), nil
	}
	return Number(decimal.NewFromFloat(f)), nil
}

// fromReflect handles pointers and named types such as `type State string`.
func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Absent(), nil
		}
		return FromAny(rv.Elem().Interface())
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Boolean(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint()), nil
	case reflect.Float32:
		return fromFloat(rv.Float(), 32)
	case reflect.Float64:
		return fromFloat(rv.Float(), 64)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

// SupportsType reports whether FromAny accepts values of type t.
func SupportsType(t reflect.Type) bool {
	switch t {
	case reflect.TypeOf(decimal.Decimal{}), reflect.TypeOf(json.Number("")):
		return true
	}
	switch t.Kind() {
	case reflect.Pointer:
		return SupportsType(t.Elem())
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
