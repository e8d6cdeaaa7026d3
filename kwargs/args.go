package kwargs

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Pair is one caller supplied kwarg before encoding.
type Pair struct {
	Key   string
	Value interface{}
}

// Entry is one encoded kwarg.
type Entry struct {
	Key   string
	Value Value
}

// Args is an ordered kwargs mapping. Entries are encoded in the order they
// were added; adding a key twice yields two entries.
type Args struct {
	pairs []Pair
}

// NewArgs returns an empty argument list.
func NewArgs() *Args {
	return new(Args)
}

// FromPairs builds Args from alternating keys and values:
//
//	kwargs.FromPairs("to", recipient, "amount", decimal.RequireFromString("100.5"))
func FromPairs(kv ...interface{}) (*Args, error) {
	if len(kv)%2 != 0 {
		return nil, ErrOddArguments
	}
	a := &Args{pairs: make([]Pair, 0, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("kwargs: key at position %d is %T, not string", i, kv[i])
		}
		a.Add(key, kv[i+1])
	}
	return a, nil
}

// Add appends key=value and returns a for chaining.
func (a *Args) Add(key string, value interface{}) *Args {
	a.pairs = append(a.pairs, Pair{Key: key, Value: value})
	return a
}

func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return len(a.pairs)
}

// Pairs returns the raw pairs in insertion order.
func (a *Args) Pairs() []Pair {
	if a == nil {
		return nil
	}
	return append([]Pair(nil), a.pairs...)
}

// Encode converts every pair into an Entry, preserving order. It stops at the
// first value that cannot be encoded and returns no entries in that case.
func Encode(a *Args) ([]Entry, error) {
	entries := make([]Entry, 0, a.Len())
	if a == nil {
		return entries, nil
	}
	for _, p := range a.pairs {
		v, err := valueOf(p.Key, p.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: p.Key, Value: v})
	}
	return entries, nil
}

// ValueOf maps a Go value to its kwargs variant.
func ValueOf(v interface{}) (Value, error) {
	return valueOf("", v)
}

func valueOf(key string, v interface{}) (Value, error) {
	switch x := v.(type) {
	case Value:
		if x.kind == 0 {
			return Value{}, fmt.Errorf("%w: zero value for %q", ErrInvalidValue, key)
		}
		return x, nil

	// Exact numbers travel as decimal strings.
	case *big.Int:
		if x == nil {
			break
		}
		return Int(x), nil
	case big.Int:
		return Int(&x), nil
	case *uint256.Int:
		if x == nil {
			break
		}
		return Value{kind: KindFixedPoint, str: x.Dec()}, nil
	case uint256.Int:
		return Value{kind: KindFixedPoint, str: x.Dec()}, nil
	case decimal.Decimal:
		return Decimal(x), nil
	case *decimal.Decimal:
		if x == nil {
			break
		}
		return Decimal(*x), nil
	case json.Number:
		d, err := decimal.NewFromString(string(x))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q for %q", ErrInvalidDecimal, string(x), key)
		}
		return Decimal(d), nil
	case int:
		return fixedInt(int64(x)), nil
	case int8:
		return fixedInt(int64(x)), nil
	case int16:
		return fixedInt(int64(x)), nil
	case int32:
		return fixedInt(int64(x)), nil
	case int64:
		return fixedInt(x), nil
	case uint:
		return fixedUint(uint64(x)), nil
	case uint8:
		return fixedUint(uint64(x)), nil
	case uint16:
		return fixedUint(uint64(x)), nil
	case uint32:
		return fixedUint(uint64(x)), nil
	case uint64:
		return fixedUint(x), nil

	case string:
		if !utf8.ValidString(x) {
			return Value{}, fmt.Errorf("%w: text for %q is not valid UTF-8", ErrInvalidValue, key)
		}
		return Text(x), nil
	case []byte:
		return Bytes(x), nil
	case bool:
		return Bool(x), nil

	case float32, float64, *big.Float, big.Float:
		return Value{}, &DisallowedTypeError{Key: key, Type: fmt.Sprintf("%T", v)}
	}
	return Value{}, &UnsupportedTypeError{Key: key, Value: v, Type: fmt.Sprintf("%T", v)}
}

func fixedInt(x int64) Value {
	return Value{kind: KindFixedPoint, str: strconv.FormatInt(x, 10)}
}

func fixedUint(x uint64) Value {
	return Value{kind: KindFixedPoint, str: strconv.FormatUint(x, 10)}
}
