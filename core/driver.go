package core

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/log"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/params"
	"github.com/lamden/golampy/wallet"
)

// Backend is the node a driver talks to.
type Backend interface {
	// Nonce returns the processor the sender should route to and the next
	// nonce the node expects from that sender.
	Nonce(ctx context.Context, vk [params.VerifyingKeySize]byte) (types.Processor, uint64, error)
	// ProcessorID returns the node's own verifying key.
	ProcessorID(ctx context.Context) (types.Processor, error)
	// Submit hands a serialized transaction to the node.
	Submit(ctx context.Context, raw []byte) (*types.SubmitResult, error)
}

// Recorder is told about every transaction a node accepted.
type Recorder interface {
	Record(tx *types.Transaction, res *types.SubmitResult) error
}

var ErrEmptyBatch = errors.New("core: empty batch")

// Driver builds transactions for one wallet and submits them to a backend.
// Backend errors are returned unmodified and never retried.
type Driver struct {
	backend  Backend
	wallet   *wallet.Wallet
	builder  *Builder
	recorder Recorder
}

// NewDriver creates a driver. A nil builder selects the default one.
func NewDriver(backend Backend, w *wallet.Wallet, builder *Builder) *Driver {
	if builder == nil {
		builder = defaultBuilder
	}
	return &Driver{backend: backend, wallet: w, builder: builder}
}

// SetRecorder installs r to receive accepted transactions.
func (d *Driver) SetRecorder(r Recorder) { d.recorder = r }

func (d *Driver) Wallet() *wallet.Wallet { return d.wallet }

// Send fetches the processor and nonce for the driver's wallet, fills them
// into call, builds the transaction and submits it.
func (d *Driver) Send(ctx context.Context, call Call) (*types.Transaction, *types.SubmitResult, error) {
	if d.wallet == nil {
		return nil, nil, ErrNoWallet
	}
	processor, nonce, err := d.backend.Nonce(ctx, d.wallet.VerifyingKey())
	if err != nil {
		return nil, nil, err
	}
	call.Processor, call.Nonce = processor, nonce

	tx, err := d.builder.BuildContext(ctx, d.wallet, call)
	if err != nil {
		return nil, nil, err
	}
	res, err := d.submit(ctx, tx)
	if err != nil {
		return tx, nil, err
	}
	return tx, res, nil
}

// SendBatch builds all calls with consecutive nonces and submits them in
// order. Submission stops at the first failure; the transactions accepted up
// to that point are returned along with their results, and the submission
// error is returned unwrapped, as Send returns it.
func (d *Driver) SendBatch(ctx context.Context, calls []Call) ([]*types.Transaction, []*types.SubmitResult, error) {
	if len(calls) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	if d.wallet == nil {
		return nil, nil, ErrNoWallet
	}
	processor, nonce, err := d.backend.Nonce(ctx, d.wallet.VerifyingKey())
	if err != nil {
		return nil, nil, err
	}
	txs, err := d.builder.BuildBatch(ctx, d.wallet, processor, nonce, calls)
	if err != nil {
		return nil, nil, err
	}
	results := make([]*types.SubmitResult, 0, len(txs))
	for i, tx := range txs {
		res, err := d.submit(ctx, tx)
		if err != nil {
			return txs[:i], results, err
		}
		results = append(results, res)
	}
	return txs, results, nil
}

func (d *Driver) submit(ctx context.Context, tx *types.Transaction) (*types.SubmitResult, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	res, err := d.backend.Submit(ctx, raw)
	if err != nil {
		return nil, err
	}
	log.Debug("Submitted transaction", "contract", tx.Contract(), "function", tx.Function(), "nonce", tx.Nonce(), "hash", res.Hash)
	if d.recorder != nil {
		if err := d.recorder.Record(tx, res); err != nil {
			log.Warn("Failed to record transaction", "hash", res.Hash, "err", err)
		}
	}
	return res, nil
}
