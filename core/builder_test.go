package core

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/params"
	"github.com/lamden/golampy/pow"
	"github.com/lamden/golampy/wallet"
	"github.com/shopspring/decimal"
)

var testTime = time.Unix(1700000000, 0)

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(make([]byte, params.SeedSize))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func testProcessor() types.Processor {
	var p types.Processor
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

func transferArgs() *kwargs.Args {
	return kwargs.NewArgs().
		Add("to", "receiver_address_hex").
		Add("amount", decimal.RequireFromString("100.5"))
}

func TestBuildTransaction(t *testing.T) {
	w := testWallet(t)
	before := time.Now().Unix()
	raw, err := BuildTransaction(w, "token", "transfer", transferArgs(), 50, testProcessor(), 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.Sender() != w.VerifyingKey() {
		t.Fatal("sender is not the wallet's verifying key")
	}
	if tx.Processor() != testProcessor() || tx.Nonce() != 1 || tx.StampsSupplied() != 50 {
		t.Fatalf("header mismatch: %v nonce=%d stamps=%d", tx.Processor(), tx.Nonce(), tx.StampsSupplied())
	}
	if tx.Contract() != "token" || tx.Function() != "transfer" {
		t.Fatalf("call mismatch: %s.%s", tx.Contract(), tx.Function())
	}
	pb := tx.PayloadBytes()
	meta := tx.Metadata()
	if !pow.Check(pb, meta.Proof[:]) {
		t.Fatal("proof does not check against embedded payload")
	}
	vk := w.VerifyingKey()
	if !wallet.RawVerify(vk[:], pb, meta.Signature[:]) {
		t.Fatal("signature does not verify against embedded payload")
	}
	if ts := int64(meta.Timestamp); ts < before || ts > time.Now().Unix() {
		t.Fatalf("timestamp %d outside build window", ts)
	}
	entries := tx.Payload().Kwargs
	if len(entries) != 2 || entries[0].Key != "to" || entries[1].Key != "amount" {
		t.Fatalf("kwargs order lost: %v", entries)
	}
	if s, ok := entries[1].Value.FixedPointString(); !ok || s != "100.5" {
		t.Fatalf("amount encoded as %v", entries[1].Value)
	}
	if s, ok := entries[0].Value.AsText(); !ok || s != "receiver_address_hex" {
		t.Fatalf("to encoded as %v", entries[0].Value)
	}
}

func TestBuilderClock(t *testing.T) {
	b := &Builder{Now: func() time.Time { return testTime }}
	tx, err := b.Build(testWallet(t), Call{Contract: "currency", Function: "approve", Stamps: 1})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Metadata().Timestamp != uint64(testTime.Unix()) {
		t.Fatalf("timestamp = %d", tx.Metadata().Timestamp)
	}
	if err := tx.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestBuildDeterministicWithFixedClockAndRand(t *testing.T) {
	w := testWallet(t)
	call := Call{Contract: "token", Function: "transfer", Args: transferArgs(), Stamps: 50, Processor: testProcessor(), Nonce: 1}
	build := func() []byte {
		b := &Builder{Now: func() time.Time { return testTime }, Rand: &counterReader{}}
		tx, err := b.Build(w, call)
		if err != nil {
			t.Fatal(err)
		}
		raw, err := tx.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}
	if a, b := build(), build(); string(a) != string(b) {
		t.Fatal("identical inputs produced different transactions")
	}
}

func TestBuildErrors(t *testing.T) {
	w := testWallet(t)
	b := new(Builder)

	_, err := b.Build(w, Call{Contract: "token", Function: "transfer", Args: kwargs.NewArgs().Add("amount", 1.5)})
	var disallowed *kwargs.DisallowedTypeError
	if !errors.As(err, &disallowed) || disallowed.Key != "amount" {
		t.Fatalf("want DisallowedTypeError for amount, got %v", err)
	}
	_, err = b.Build(w, Call{Contract: "token", Function: "transfer", Args: kwargs.NewArgs().Add("who", struct{}{})})
	if !errors.Is(err, kwargs.ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}
	if _, err := b.Build(nil, Call{Contract: "a", Function: "b"}); !errors.Is(err, ErrNoWallet) {
		t.Fatalf("want ErrNoWallet, got %v", err)
	}
}

func TestBuildEmptyNames(t *testing.T) {
	tx, err := new(Builder).Build(testWallet(t), Call{Processor: testProcessor()})
	if err != nil {
		t.Fatal(err)
	}
	if p := tx.Payload(); p.ContractName != "" || p.FunctionName != "" {
		t.Fatalf("unexpected names %q.%q", p.ContractName, p.FunctionName)
	}
	if err := tx.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestBuildContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := new(Builder).BuildContext(ctx, testWallet(t), Call{Contract: "a", Function: "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestBuildBatch(t *testing.T) {
	w := testWallet(t)
	calls := make([]Call, 8)
	for i := range calls {
		calls[i] = Call{
			Contract: "token",
			Function: "transfer",
			Args:     kwargs.NewArgs().Add("amount", big.NewInt(int64(i))),
			Stamps:   10,
			Nonce:    999, // overridden
		}
	}
	txs, err := new(Builder).BuildBatch(context.Background(), w, testProcessor(), 7, calls)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != len(calls) {
		t.Fatalf("got %d transactions", len(txs))
	}
	for i, tx := range txs {
		if tx.Nonce() != 7+uint64(i) {
			t.Errorf("tx %d: nonce %d", i, tx.Nonce())
		}
		if tx.Processor() != testProcessor() {
			t.Errorf("tx %d: wrong processor", i)
		}
		n, err := tx.Payload().Kwargs[0].Value.AsInt()
		if err != nil || n.Int64() != int64(i) {
			t.Errorf("tx %d: amount %v (%v)", i, n, err)
		}
		if err := tx.Verify(); err != nil {
			t.Errorf("tx %d: %v", i, err)
		}
	}
}

func TestBuildBatchSharedRand(t *testing.T) {
	w := testWallet(t)
	calls := make([]Call, 16)
	for i := range calls {
		calls[i] = Call{Contract: "token", Function: "transfer", Args: kwargs.NewArgs().Add("amount", big.NewInt(int64(i)))}
	}
	rand := &counterReader{}
	b := &Builder{Now: func() time.Time { return testTime }, Rand: rand}
	txs, err := b.BuildBatch(context.Background(), w, testProcessor(), 0, calls)
	if err != nil {
		t.Fatal(err)
	}
	if b.Rand != rand {
		t.Fatal("BuildBatch replaced the builder's reader")
	}
	for i, tx := range txs {
		if err := tx.Verify(); err != nil {
			t.Errorf("tx %d: %v", i, err)
		}
	}
}

func TestBuildBatchFailure(t *testing.T) {
	calls := []Call{
		{Contract: "token", Function: "transfer"},
		{Contract: "token", Function: "transfer", Args: kwargs.NewArgs().Add("amount", float32(1))},
	}
	_, err := new(Builder).BuildBatch(context.Background(), testWallet(t), testProcessor(), 0, calls)
	if !errors.Is(err, kwargs.ErrDisallowedType) {
		t.Fatalf("want ErrDisallowedType, got %v", err)
	}
}

// counterReader yields a deterministic byte stream.
type counterReader struct{ n byte }

func (r *counterReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.n
		r.n++
	}
	return len(p), nil
}
