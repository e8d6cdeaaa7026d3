package kwargs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDisallowedType  = errors.New("kwargs: disallowed type")
	ErrUnsupportedType = errors.New("kwargs: unsupported type")
	ErrInvalidDecimal  = errors.New("kwargs: invalid fixed-point decimal")
	ErrInvalidValue    = errors.New("kwargs: invalid value encoding")
	ErrOddArguments    = errors.New("kwargs: odd number of key/value arguments")
)

var supportedTypes = []string{
	"kwargs.Value",
	"*big.Int", "*uint256.Int", "decimal.Decimal", "json.Number",
	"int", "int8", "int16", "int32", "int64",
	"uint", "uint8", "uint16", "uint32", "uint64",
	"string", "[]byte", "bool",
}

// DisallowedTypeError is returned when a kwarg holds a binary floating point
// number. Floats cannot be carried without losing precision.
type DisallowedTypeError struct {
	Key  string
	Type string
}

func (e *DisallowedTypeError) Error() string {
	return fmt.Sprintf("kwargs: %s value for %q is not allowed, use an exact decimal (decimal.Decimal, *big.Int or kwargs.FixedPoint) instead", e.Type, e.Key)
}

func (e *DisallowedTypeError) Is(target error) bool { return target == ErrDisallowedType }

// UnsupportedTypeError is returned when a kwarg's Go type has no encoding.
type UnsupportedTypeError struct {
	Key   string
	Value interface{}
	Type  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("kwargs: value %v of type %s for %q not recognized in types [%s]",
		e.Value, e.Type, e.Key, strings.Join(supportedTypes, ", "))
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }
