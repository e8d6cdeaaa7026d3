// Package types defines the transaction record exchanged with nodes and its
// canonical RLP wire form.
package types

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/params"
	"github.com/lamden/golampy/pow"
	"github.com/lamden/golampy/wallet"
	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction encoding")
	ErrTooManyKwargs      = errors.New("too many kwargs entries")
	ErrInvalidProof       = errors.New("invalid proof of work")
	ErrInvalidSignature   = errors.New("invalid transaction signature")
)

// Payload is the signed part of a transaction. Field order is the wire order.
type Payload struct {
	Sender         [params.VerifyingKeySize]byte
	Processor      Processor
	StampsSupplied uint64
	ContractName   string
	FunctionName   string
	Nonce          uint64
	Kwargs         []kwargs.Entry
}

// Metadata authenticates a payload.
type Metadata struct {
	Proof     pow.Proof
	Signature [params.SignatureSize]byte
	Timestamp uint64 // unix seconds
}

// Transaction is a payload together with its metadata. The payload is kept in
// the exact encoding that was signed and stamped, so a decoded transaction
// re-encodes byte for byte.
type Transaction struct {
	payload      Payload
	payloadBytes []byte
	metadata     Metadata
}

// envelope is the wire form of a Transaction.
type envelope struct {
	Payload  rlp.RawValue
	Metadata Metadata
}

// EncodePayload returns the canonical bytes of p.
func EncodePayload(p *Payload) ([]byte, error) {
	if len(p.Kwargs) > params.MaxKwargs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyKwargs, len(p.Kwargs), params.MaxKwargs)
	}
	return rlp.EncodeToBytes(p)
}

// DecodePayload parses canonical payload bytes.
func DecodePayload(b []byte) (*Payload, error) {
	var p Payload
	if err := rlp.DecodeBytes(b, &p); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidTransaction, err)
	}
	if len(p.Kwargs) > params.MaxKwargs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyKwargs, len(p.Kwargs), params.MaxKwargs)
	}
	return &p, nil
}

// NewTransaction assembles a transaction from already encoded payload bytes.
// The bytes are embedded verbatim.
func NewTransaction(payloadBytes []byte, meta Metadata) (*Transaction, error) {
	p, err := DecodePayload(payloadBytes)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		payload:      *p,
		payloadBytes: append([]byte(nil), payloadBytes...),
		metadata:     meta,
	}, nil
}

// DecodeTransaction parses the wire form produced by MarshalBinary.
func DecodeTransaction(raw []byte) (*Transaction, error) {
	var env envelope
	if err := rlp.DecodeBytes(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return NewTransaction(env.Payload, env.Metadata)
}

// MarshalBinary returns the wire form submitted to nodes.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&envelope{
		Payload:  tx.payloadBytes,
		Metadata: tx.metadata,
	})
}

// Payload returns a copy of the decoded payload.
func (tx *Transaction) Payload() Payload {
	p := tx.payload
	p.Kwargs = append([]kwargs.Entry(nil), tx.payload.Kwargs...)
	return p
}

// PayloadBytes returns the exact bytes that were signed and stamped.
func (tx *Transaction) PayloadBytes() []byte {
	return append([]byte(nil), tx.payloadBytes...)
}

func (tx *Transaction) Metadata() Metadata { return tx.metadata }

func (tx *Transaction) Sender() [params.VerifyingKeySize]byte { return tx.payload.Sender }
func (tx *Transaction) Processor() Processor                  { return tx.payload.Processor }
func (tx *Transaction) Nonce() uint64                         { return tx.payload.Nonce }
func (tx *Transaction) StampsSupplied() uint64                { return tx.payload.StampsSupplied }
func (tx *Transaction) Contract() string                      { return tx.payload.ContractName }
func (tx *Transaction) Function() string                      { return tx.payload.FunctionName }
func (tx *Transaction) Time() time.Time {
	return params.UnixSecondsToTime(tx.metadata.Timestamp)
}

// Hash returns the SHA3-256 digest of the wire form.
func (tx *Transaction) Hash() ([32]byte, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	return sha3.Sum256(raw), nil
}

// HashHex is Hash rendered as bare hex.
func (tx *Transaction) HashHex() (string, error) {
	h, err := tx.Hash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}

// Verify checks the proof of work and the sender's signature over the
// embedded payload bytes.
func (tx *Transaction) Verify() error {
	if !pow.Check(tx.payloadBytes, tx.metadata.Proof[:]) {
		return ErrInvalidProof
	}
	if !wallet.RawVerify(tx.payload.Sender[:], tx.payloadBytes, tx.metadata.Signature[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// SamePayload reports whether both transactions carry identical payload bytes.
func SamePayload(a, b *Transaction) bool {
	return bytes.Equal(a.payloadBytes, b.payloadBytes)
}
