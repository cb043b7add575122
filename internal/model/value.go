package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MissingToken is how the missing-value sentinel is rendered in text output.
const MissingToken = "Missing"

// Kind identifies what a Value holds.
type Kind uint8

const (
	// KindMissing marks a value that could not be located or parsed.
	KindMissing Kind = iota
	// KindText is a string value.
	KindText
	// KindFloat is a floating point value (ratings).
	KindFloat
	// KindInt is an integer value (rating counts).
	KindInt
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return "missing"
	}
}

// Value is one extracted cell.
// The zero Value is the missing-value sentinel.
type Value struct {
	kind Kind
	text string
	num  float64
	i    int64
}

// Missing returns the missing-value sentinel.
func Missing() Value {
	return Value{}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Float returns a float value.
func Float(f float64) Value {
	return Value{kind: KindFloat, num: f}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether v is the missing-value sentinel.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// AsText returns the text and true if v is a text value.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsFloat returns the float and true if v is a float value.
func (v Value) AsFloat() (float64, bool) {
	return v.num, v.kind == KindFloat
}

// AsInt returns the integer and true if v is an integer value.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// String renders the value the way it appears in CSV output.
// Floats use the shortest representation that round-trips and always keep a
// decimal place, so a rating of 4 is written as "4.0".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindFloat:
		s := strconv.FormatFloat(v.num, 'f', -1, 64)
		if !strings.ContainsAny(s, ".IN") {
			s += ".0"
		}
		return s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return MissingToken
	}
}

// MarshalJSON encodes Missing as null and the other kinds as their natural
// JSON types.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindFloat:
		return json.Marshal(v.num)
	case KindInt:
		return json.Marshal(v.i)
	default:
		return []byte("null"), nil
	}
}

// ParseStored rebuilds a Value from its String form and kind, as persisted
// by the database package.
func ParseStored(kind Kind, s string) Value {
	switch kind {
	case KindText:
		return Text(s)
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Missing()
		}
		return Float(f)
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Missing()
		}
		return Int(i)
	default:
		return Missing()
	}
}
