package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/lamden/golampy/params"
)

var ErrInvalidProcessor = errors.New("invalid processor id")

// Processor is the 32-byte id of the node that routes a transaction.
type Processor [params.ProcessorIDSize]byte

// HexToProcessor parses a hex processor id, with or without 0x prefix.
func HexToProcessor(s string) (Processor, error) {
	var p Processor
	if err := p.UnmarshalText([]byte(s)); err != nil {
		return Processor{}, err
	}
	return p, nil
}

// BytesToProcessor copies b into a Processor. b must be exactly 32 bytes.
func BytesToProcessor(b []byte) (Processor, error) {
	var p Processor
	if len(b) != len(p) {
		return p, fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidProcessor, len(b), len(p))
	}
	copy(p[:], b)
	return p, nil
}

// Hex returns the id as lower-case hex without prefix.
func (p Processor) Hex() string { return hex.EncodeToString(p[:]) }

func (p Processor) String() string { return p.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (p Processor) MarshalText() ([]byte, error) {
	return []byte(p.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Processor) UnmarshalText(input []byte) error {
	s := strings.TrimSpace(string(input))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProcessor, err)
	}
	b, err := BytesToProcessor(raw)
	if err != nil {
		return err
	}
	*p = b
	return nil
}
