// Package wallet implements the ed25519 key pair transactions are signed with.
//
// A Wallet is derived from a 32-byte seed. The verifying key is computed once
// at construction and never changes, so a Wallet is safe for concurrent use.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lamden/golampy/params"
)

var (
	ErrInvalidSeed         = errors.New("wallet: invalid seed length")
	ErrInvalidVerifyingKey = errors.New("wallet: invalid verifying key")
)

// Wallet holds an ed25519 signing key and its verifying key.
type Wallet struct {
	priv ed25519.PrivateKey
	vk   [params.VerifyingKeySize]byte
}

// New derives a wallet from a 32-byte seed.
func New(seed []byte) (*Wallet, error) {
	if len(seed) != params.SeedSize {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrInvalidSeed, len(seed), params.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	w := &Wallet{priv: priv}
	copy(w.vk[:], priv.Public().(ed25519.PublicKey))
	return w, nil
}

// Generate creates a wallet from a fresh seed drawn from rand. A nil reader
// selects crypto/rand.
func Generate(rand io.Reader) (*Wallet, error) {
	if rand == nil {
		rand = cryptoRand
	}
	seed := make([]byte, params.SeedSize)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, fmt.Errorf("wallet: reading seed: %w", err)
	}
	return New(seed)
}

var cryptoRand = rand.Reader

// FromHex derives a wallet from a hex encoded seed, with or without 0x prefix.
func FromHex(seedHex string) (*Wallet, error) {
	seed, err := DecodeHex(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return New(seed)
}

// VerifyingKey returns the 32-byte public key, used as the transaction sender.
func (w *Wallet) VerifyingKey() [params.VerifyingKeySize]byte {
	return w.vk
}

// VerifyingKeyHex returns the verifying key as lower-case hex without prefix,
// which is how nodes address accounts.
func (w *Wallet) VerifyingKeyHex() string {
	return hex.EncodeToString(w.vk[:])
}

// Seed returns a copy of the seed the wallet was derived from.
func (w *Wallet) Seed() []byte {
	return append([]byte(nil), w.priv.Seed()...)
}

// Sign produces a detached signature over msg.
func (w *Wallet) Sign(msg []byte) [params.SignatureSize]byte {
	var sig [params.SignatureSize]byte
	copy(sig[:], ed25519.Sign(w.priv, msg))
	return sig
}

// Verify reports whether sig is a valid signature of msg by this wallet.
func (w *Wallet) Verify(msg, sig []byte) bool {
	return RawVerify(w.vk[:], msg, sig)
}

// RawSign signs msg with the key derived from seed.
func RawSign(seed, msg []byte) ([params.SignatureSize]byte, error) {
	w, err := New(seed)
	if err != nil {
		return [params.SignatureSize]byte{}, err
	}
	return w.Sign(msg), nil
}

// RawVerify reports whether sig is a valid signature of msg under vk.
// Malformed keys or signatures yield false.
func RawVerify(vk, msg, sig []byte) bool {
	if len(vk) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(vk), msg, sig)
}

// ParseVerifyingKey decodes a hex verifying key.
func ParseVerifyingKey(s string) ([params.VerifyingKeySize]byte, error) {
	var vk [params.VerifyingKeySize]byte
	raw, err := DecodeHex(s)
	if err != nil || len(raw) != params.VerifyingKeySize {
		return vk, ErrInvalidVerifyingKey
	}
	copy(vk[:], raw)
	return vk, nil
}

// DecodeHex decodes s, tolerating surrounding whitespace and a 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
