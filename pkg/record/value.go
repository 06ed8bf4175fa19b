// ABOUTME: Tagged value type for row cells
// ABOUTME: All type checks dispatch on the Kind tag, never on reflection

package record

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind tags a Value variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindBool:
		return "BOOL"
	case KindString:
		return "STRING"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a single row cell: one of NULL, int64, float64, bool, or string.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// Null returns the NULL value.
func Null() Value {
	return Value{Kind: KindNull}
}

// NewInt creates an integer value.
func NewInt(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}

// NewFloat creates a float value.
func NewFloat(f float64) Value {
	return Value{Kind: KindFloat, Float: f}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// NewString creates a string value.
func NewString(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// IsNull reports whether v is the NULL value.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindString:
		return v.Str
	}
	return "?"
}

// CheckValue validates a value against a column per the insert/update
// contract: NULL is only accepted on nullable columns, and the value kind
// must match the column type. JSON columns additionally require the string
// to be valid JSON.
func CheckValue(col Column, v Value) error {
	if v.IsNull() {
		if !col.Nullable {
			return &NotNullError{Column: col.Name}
		}
		return nil
	}
	ok := false
	switch col.Type {
	case Integer:
		ok = v.Kind == KindInt
	case Float:
		ok = v.Kind == KindFloat
	case Boolean:
		ok = v.Kind == KindBool
	case Text, Char, Blob:
		ok = v.Kind == KindString
	case JSON:
		ok = v.Kind == KindString
		if ok && !json.Valid([]byte(v.Str)) {
			return &TypeMismatchError{Column: col.Name, Want: col.Type, Got: v.Kind}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, col.Type)
	}
	if !ok {
		return &TypeMismatchError{Column: col.Name, Want: col.Type, Got: v.Kind}
	}
	return nil
}
