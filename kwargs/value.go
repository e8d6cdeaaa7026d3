// Package kwargs encodes the keyword arguments of a contract call.
//
// Arguments are an ordered list of (key, Value) entries. A Value is one of
// four variants: an exact fixed-point decimal carried as its base-10 string,
// UTF-8 text, raw bytes or a boolean. Integers and decimals never travel as
// binary floats, and float inputs are rejected outright.
package kwargs

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"
)

// Kind identifies a Value variant on the wire.
type Kind uint8

const (
	KindFixedPoint Kind = iota + 1
	KindText
	KindBytes
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFixedPoint:
		return "fixedPoint"
	case KindText:
		return "text"
	case KindBytes:
		return "data"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a single kwarg value. The zero Value is invalid and cannot be
// encoded.
type Value struct {
	kind Kind
	str  string // fixed point literal or text
	raw  []byte
	b    bool
}

// FixedPoint returns a fixed-point value for the decimal literal s, which must
// be a plain base-10 number such as "100", "-7" or "100.5".
func FixedPoint(s string) (Value, error) {
	c, err := canonicalDecimal(s)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindFixedPoint, str: c}, nil
}

// MustFixedPoint is like FixedPoint but panics on malformed input.
func MustFixedPoint(s string) Value {
	v, err := FixedPoint(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Int returns a fixed-point value holding x exactly. A nil x yields the
// zero Value, which encoding rejects.
func Int(x *big.Int) Value {
	if x == nil {
		return Value{}
	}
	return Value{kind: KindFixedPoint, str: x.String()}
}

// Decimal returns a fixed-point value holding d exactly.
func Decimal(d decimal.Decimal) Value {
	return Value{kind: KindFixedPoint, str: decimalString(d)}
}

func Text(s string) Value { return Value{kind: KindText, str: s} }

func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte{}, b...)}
}

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// FixedPointString returns the decimal literal of a fixed-point value.
func (v Value) FixedPointString() (string, bool) {
	return v.str, v.kind == KindFixedPoint
}

func (v Value) AsText() (string, bool) {
	return v.str, v.kind == KindText
}

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte{}, v.raw...), true
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt parses a fixed-point value as an integer. Values with a fractional
// part fail.
func (v Value) AsInt() (*big.Int, error) {
	if v.kind != KindFixedPoint {
		return nil, fmt.Errorf("kwargs: %s value is not fixed point", v.kind)
	}
	x, ok := new(big.Int).SetString(v.str, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidDecimal, v.str)
	}
	return x, nil
}

// AsDecimal parses a fixed-point value as an exact decimal.
func (v Value) AsDecimal() (decimal.Decimal, error) {
	if v.kind != KindFixedPoint {
		return decimal.Decimal{}, fmt.Errorf("kwargs: %s value is not fixed point", v.kind)
	}
	return decimal.NewFromString(v.str)
}

// Equal reports whether v and o are the same variant holding the same data.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && bytes.Equal(v.data(), o.data())
}

// String renders the value for humans.
func (v Value) String() string {
	switch v.kind {
	case KindFixedPoint:
		return v.str
	case KindText:
		return fmt.Sprintf("%q", v.str)
	case KindBytes:
		return fmt.Sprintf("0x%x", v.raw)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return "<invalid>"
	}
}

func (v Value) data() []byte {
	switch v.kind {
	case KindFixedPoint, KindText:
		return []byte(v.str)
	case KindBytes:
		return v.raw
	case KindBool:
		if v.b {
			return []byte{1}
		}
		return []byte{0}
	default:
		return nil
	}
}

// valueRLP is the wire form of a Value.
type valueRLP struct {
	Kind uint8
	Data []byte
}

// EncodeRLP implements rlp.Encoder.
func (v Value) EncodeRLP(w io.Writer) error {
	switch v.kind {
	case KindBytes, KindBool:
	case KindFixedPoint:
		if c, err := canonicalDecimal(v.str); err != nil {
			return err
		} else if c != v.str {
			return fmt.Errorf("%w: non-canonical decimal %q", ErrInvalidValue, v.str)
		}
	case KindText:
		if !utf8.ValidString(v.str) {
			return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidValue, uint8(v.kind))
	}
	return rlp.Encode(w, &valueRLP{Kind: uint8(v.kind), Data: v.data()})
}

// DecodeRLP implements rlp.Decoder.
func (v *Value) DecodeRLP(s *rlp.Stream) error {
	var enc valueRLP
	if err := s.Decode(&enc); err != nil {
		return err
	}
	dec, err := valueFromWire(Kind(enc.Kind), enc.Data)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}

func valueFromWire(kind Kind, data []byte) (Value, error) {
	switch kind {
	case KindFixedPoint:
		c, err := canonicalDecimal(string(data))
		if err != nil {
			return Value{}, err
		}
		if c != string(data) {
			return Value{}, fmt.Errorf("%w: non-canonical decimal %q", ErrInvalidValue, data)
		}
		return Value{kind: KindFixedPoint, str: c}, nil
	case KindText:
		if !utf8.Valid(data) {
			return Value{}, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidValue)
		}
		return Text(string(data)), nil
	case KindBytes:
		return Bytes(data), nil
	case KindBool:
		if len(data) != 1 || data[0] > 1 {
			return Value{}, fmt.Errorf("%w: bool payload %x", ErrInvalidValue, data)
		}
		return Bool(data[0] == 1), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidValue, uint8(kind))
	}
}
