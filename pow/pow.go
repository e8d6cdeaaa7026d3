// Package pow implements the lightweight SHA3 proof-of-work stamp attached to
// every transaction.
//
// A proof is 16 bytes such that SHA3-256(message || proof), read as a
// big-endian 256-bit integer, is below Difficulty. Nodes verify against the
// same constant, so it must not change.
package pow

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/lamden/golampy/params"
	"golang.org/x/crypto/sha3"
)

// Difficulty is 2^256 - 2^255, which equals 2^255: a digest passes with
// probability one half.
var Difficulty = new(uint256.Int).Lsh(uint256.NewInt(1), 255)

// Proof is a proof-of-work stamp.
type Proof [params.ProofSize]byte

// Finder searches for proofs using its random source.
type Finder struct {
	Rand io.Reader // nil means crypto/rand
}

var defaultFinder = Finder{}

// Find returns a proof for msg. It never gives up.
func Find(msg []byte) Proof {
	p, err := defaultFinder.Find(context.Background(), msg)
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("pow: %v", err))
	}
	return p
}

// FindContext is like Find but stops when ctx is done.
func FindContext(ctx context.Context, msg []byte) (Proof, error) {
	return defaultFinder.Find(ctx, msg)
}

// Find draws random candidates until one satisfies Difficulty for msg, ctx is
// cancelled or the random source fails.
func (f Finder) Find(ctx context.Context, msg []byte) (Proof, error) {
	r := f.Rand
	if r == nil {
		r = rand.Reader
	}
	var (
		candidate Proof
		hasher    = sha3.New256()
		digest    = make([]byte, 0, 32)
	)
	for {
		select {
		case <-ctx.Done():
			return Proof{}, ctx.Err()
		default:
		}
		if _, err := io.ReadFull(r, candidate[:]); err != nil {
			return Proof{}, fmt.Errorf("pow: reading candidate: %w", err)
		}
		hasher.Reset()
		hasher.Write(msg)
		hasher.Write(candidate[:])
		if below(hasher.Sum(digest[:0])) {
			return candidate, nil
		}
	}
}

// Check reports whether proof is a valid stamp for msg. Proofs that are not
// exactly 16 bytes long are invalid.
func Check(msg, proof []byte) bool {
	if len(proof) != params.ProofSize {
		return false
	}
	hasher := sha3.New256()
	hasher.Write(msg)
	hasher.Write(proof)
	return below(hasher.Sum(nil))
}

func below(digest []byte) bool {
	return new(uint256.Int).SetBytes32(digest).Lt(Difficulty)
}
