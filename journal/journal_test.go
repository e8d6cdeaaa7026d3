package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/lamden/golampy/core"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/params"
	"github.com/lamden/golampy/wallet"
)

var _ core.Recorder = (*Journal)(nil)

func buildTx(t *testing.T, seed byte, nonce uint64) *types.Transaction {
	t.Helper()
	s := make([]byte, params.SeedSize)
	s[0] = seed
	w, err := wallet.New(s)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := new(core.Builder).Build(w, core.Call{
		Contract: "currency",
		Function: "transfer",
		Args:     kwargs.NewArgs().Add("amount", nonce),
		Stamps:   10,
		Nonce:    nonce,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestJournalRecordGet(t *testing.T) {
	j, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	j.now = func() time.Time { return time.Unix(1700000000, 0) }

	tx := buildTx(t, 1, 0)
	if err := j.Record(tx, &types.SubmitResult{Success: "ok", Hash: "abc"}); err != nil {
		t.Fatal(err)
	}
	hash, _ := tx.Hash()
	e, err := j.Get(hash)
	if err != nil {
		t.Fatal(err)
	}
	if e.NodeHash != "abc" || e.Success != "ok" || e.Seq != 0 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.Submitted.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("submitted = %v", e.Submitted)
	}
	if !types.SamePayload(tx, e.Tx) {
		t.Fatal("journaled transaction differs")
	}
	if _, err := j.Get([32]byte{1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestJournalListOrder(t *testing.T) {
	j, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	var txs []*types.Transaction
	for i := 0; i < 5; i++ {
		tx := buildTx(t, 1, uint64(i))
		txs = append(txs, tx)
		if err := j.Record(tx, nil); err != nil {
			t.Fatal(err)
		}
	}
	// Recording again does not duplicate.
	if err := j.Record(txs[2], nil); err != nil {
		t.Fatal(err)
	}
	if j.Len() != 5 {
		t.Fatalf("len = %d", j.Len())
	}
	all, err := j.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("listed %d entries", len(all))
	}
	for i, e := range all {
		if want := uint64(4 - i); e.Tx.Nonce() != want || e.Seq != want {
			t.Errorf("entry %d: nonce %d seq %d, want %d", i, e.Tx.Nonce(), e.Seq, want)
		}
	}
	recent, err := j.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Tx.Nonce() != 4 || recent[1].Tx.Nonce() != 3 {
		t.Fatalf("unexpected recent entries")
	}
}

func TestJournalBySender(t *testing.T) {
	j, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	a, b := buildTx(t, 1, 0), buildTx(t, 2, 0)
	for _, tx := range []*types.Transaction{a, b, buildTx(t, 1, 1)} {
		if err := j.Record(tx, nil); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := j.BySender(a.Sender())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries for sender a", len(entries))
	}
	entries, _ = j.BySender(b.Sender())
	if len(entries) != 1 {
		t.Fatalf("got %d entries for sender b", len(entries))
	}
}

func TestJournalReopen(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := j.Record(buildTx(t, 1, uint64(i)), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if j.Len() != 3 {
		t.Fatalf("reopened len = %d", j.Len())
	}
	tx := buildTx(t, 1, 3)
	if err := j.Record(tx, nil); err != nil {
		t.Fatal(err)
	}
	hash, _ := tx.Hash()
	e, err := j.Get(hash)
	if err != nil {
		t.Fatal(err)
	}
	if e.Seq != 3 {
		t.Fatalf("seq after reopen = %d", e.Seq)
	}
}
