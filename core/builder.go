// Package core assembles signed, proof-of-work stamped transactions and hands
// them to a node.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/pow"
	"github.com/lamden/golampy/wallet"
	"golang.org/x/sync/errgroup"
)

var ErrNoWallet = errors.New("core: no wallet")

// Call describes one contract invocation. Args may be nil for a call without
// arguments.
type Call struct {
	Contract  string
	Function  string
	Args      *kwargs.Args
	Stamps    uint64
	Processor types.Processor
	Nonce     uint64
}

// Builder turns calls into transactions. The zero value uses the system clock
// and crypto/rand.
type Builder struct {
	Now  func() time.Time // defaults to time.Now
	Rand io.Reader        // proof-of-work candidates, defaults to crypto/rand
}

// lockedReader serializes reads from a reader shared by several goroutines.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}

var defaultBuilder = new(Builder)

// BuildTransaction builds and serializes a transaction with the default
// builder. The proof-of-work search may take a while and cannot be
// interrupted; use Builder.BuildContext for that.
func BuildTransaction(w *wallet.Wallet, contract, function string, args *kwargs.Args, stamps uint64, processor types.Processor, nonce uint64) ([]byte, error) {
	tx, err := defaultBuilder.Build(w, Call{
		Contract:  contract,
		Function:  function,
		Args:      args,
		Stamps:    stamps,
		Processor: processor,
		Nonce:     nonce,
	})
	if err != nil {
		return nil, err
	}
	return tx.MarshalBinary()
}

// Build is BuildContext without cancellation.
func (b *Builder) Build(w *wallet.Wallet, call Call) (*types.Transaction, error) {
	return b.BuildContext(context.Background(), w, call)
}

// BuildContext encodes the call, stamps it with a proof of work and signs it.
// The proof and the signature cover the same payload bytes, which are
// embedded in the transaction unchanged.
func (b *Builder) BuildContext(ctx context.Context, w *wallet.Wallet, call Call) (*types.Transaction, error) {
	if w == nil {
		return nil, ErrNoWallet
	}
	entries, err := kwargs.Encode(call.Args)
	if err != nil {
		return nil, err
	}
	payload := &types.Payload{
		Sender:         w.VerifyingKey(),
		Processor:      call.Processor,
		StampsSupplied: call.Stamps,
		ContractName:   call.Contract,
		FunctionName:   call.Function,
		Nonce:          call.Nonce,
		Kwargs:         entries,
	}
	payloadBytes, err := types.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	proof, err := pow.Finder{Rand: b.Rand}.Find(ctx, payloadBytes)
	if err != nil {
		return nil, err
	}
	log.Trace("Found proof of work", "contract", call.Contract, "function", call.Function, "nonce", call.Nonce, "elapsed", time.Since(start))

	meta := types.Metadata{
		Proof:     proof,
		Signature: w.Sign(payloadBytes),
		Timestamp: uint64(b.now().Unix()),
	}
	return types.NewTransaction(payloadBytes, meta)
}

// BuildBatch builds one transaction per call in parallel. All calls are routed
// to processor and receive consecutive nonces starting at startNonce, in call
// order. The first failure cancels the remaining builds. A custom Rand is
// read under a lock, so it need not be safe for concurrent use.
func (b *Builder) BuildBatch(ctx context.Context, w *wallet.Wallet, processor types.Processor, startNonce uint64, calls []Call) ([]*types.Transaction, error) {
	shared := *b
	if shared.Rand != nil {
		shared.Rand = &lockedReader{r: b.Rand}
	}
	txs := make([]*types.Transaction, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range calls {
		i, call := i, calls[i]
		call.Processor = processor
		call.Nonce = startNonce + uint64(i)
		g.Go(func() error {
			tx, err := shared.BuildContext(gctx, w, call)
			if err != nil {
				return fmt.Errorf("call %d (%s.%s): %w", i, call.Contract, call.Function, err)
			}
			txs[i] = tx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
