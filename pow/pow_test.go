package pow

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

func TestDifficultyConstant(t *testing.T) {
	two := big.NewInt(2)
	want := new(big.Int).Sub(new(big.Int).Exp(two, big.NewInt(256), nil), new(big.Int).Exp(two, big.NewInt(255), nil))
	if Difficulty.ToBig().Cmp(want) != 0 {
		t.Fatalf("difficulty mismatch: have %s want %s", Difficulty.ToBig(), want)
	}
}

func TestCheckRejectsWrongLength(t *testing.T) {
	msg := []byte("payload")
	for _, n := range []int{0, 1, 15, 17, 32, 64} {
		proof := make([]byte, n)
		for i := 0; i < 8; i++ {
			if Check(msg, proof) {
				t.Fatalf("proof of length %d accepted", n)
			}
		}
	}
	if Check(msg, nil) {
		t.Fatal("nil proof accepted")
	}
}

func TestFindCheckConsistency(t *testing.T) {
	for i := 0; i < 5000; i++ {
		msg := make([]byte, i%97)
		rand.Read(msg)
		proof := Find(msg)
		if !Check(msg, proof[:]) {
			t.Fatalf("iteration %d: found proof %x does not check for %x", i, proof, msg)
		}
	}
}

func TestCheckMatchesDigestThreshold(t *testing.T) {
	msg := []byte("threshold")
	var accepted, rejected int
	for i := 0; i < 512; i++ {
		proof := make([]byte, 16)
		rand.Read(proof)
		h := sha3.New256()
		h.Write(msg)
		h.Write(proof)
		digest := h.Sum(nil)
		want := digest[0] < 0x80
		if got := Check(msg, proof); got != want {
			t.Fatalf("digest %x: have %v want %v", digest, got, want)
		}
		if want {
			accepted++
		} else {
			rejected++
		}
	}
	if accepted == 0 || rejected == 0 {
		t.Fatalf("implausible distribution: %d accepted, %d rejected", accepted, rejected)
	}
}

func TestBelowBoundary(t *testing.T) {
	edge := Difficulty.Bytes32()
	if below(edge[:]) {
		t.Fatal("digest equal to difficulty accepted")
	}
	justBelow := new(uint256.Int).SubUint64(Difficulty, 1).Bytes32()
	if !below(justBelow[:]) {
		t.Fatal("digest one below difficulty rejected")
	}
}

// sequenceReader yields 16-byte candidates counting up from zero.
type sequenceReader struct{ n byte }

func (r *sequenceReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	p[len(p)-1] = r.n
	r.n++
	return len(p), nil
}

func TestFinderDeterministicWithReader(t *testing.T) {
	msg := []byte("deterministic")
	a, err := Finder{Rand: &sequenceReader{}}.Find(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Finder{Rand: &sequenceReader{}}.Find(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("same random stream produced different proofs: %x vs %x", a, b)
	}
	if !Check(msg, a[:]) {
		t.Fatal("deterministic proof does not check")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestFinderPropagatesReaderError(t *testing.T) {
	if _, err := (Finder{Rand: failingReader{}}).Find(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error from failing random source")
	}
}

// rejectingReader only produces candidates that fail the threshold for msg.
type rejectingReader struct{ msg []byte }

func (r rejectingReader) Read(p []byte) (int, error) {
	for {
		rand.Read(p)
		if !Check(r.msg, p) {
			return len(p), nil
		}
	}
}

func TestFindContextCancelled(t *testing.T) {
	msg := []byte("never")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Finder{Rand: rejectingReader{msg}}.Find(ctx, msg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if _, err := FindContext(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Fatalf("FindContext: want context.Canceled, got %v", err)
	}
}

func TestProofIsNotMutatedByCheck(t *testing.T) {
	msg := []byte("msg")
	proof := Find(msg)
	cp := proof
	Check(msg, proof[:])
	if !bytes.Equal(cp[:], proof[:]) {
		t.Fatal("check mutated the proof")
	}
}
