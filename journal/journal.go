// Package journal keeps a local record of transactions accepted by nodes.
//
// Entries are stored in leveldb under their transaction hash, with a
// sequence index that preserves submission order.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/params"
	"github.com/syndtr/goleveldb/leveldb"
	lvlerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const entryVersion = uint8(1)

var (
	txPrefix  = []byte("t") // txPrefix + hash -> entry
	seqPrefix = []byte("s") // seqPrefix + seq (uint64 big endian) -> hash
)

var (
	ErrNotFound       = errors.New("journal: transaction not found")
	ErrCorruptedEntry = errors.New("journal: corrupted entry")
)

// Entry is a journaled transaction.
type Entry struct {
	Seq       uint64
	Hash      [32]byte
	NodeHash  string // hash reported by the node
	Success   string
	Submitted time.Time
	Tx        *types.Transaction
}

type storedEntry struct {
	Version   uint8
	Seq       uint64
	NodeHash  string
	Success   string
	Submitted uint64
	Raw       []byte
}

// Journal is a leveldb backed transaction log. It is safe for concurrent use.
type Journal struct {
	db *leveldb.DB

	mu  sync.Mutex
	seq uint64 // next sequence number
	now func() time.Time
}

// Open opens or creates the journal in dir, recovering a corrupted manifest
// if needed.
func Open(dir string) (*Journal, error) {
	options := &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     4 * opt.MiB,
		WriteBuffer:            2 * opt.MiB,
	}
	db, err := leveldb.OpenFile(dir, options)
	if _, corrupted := err.(*lvlerrors.ErrCorrupted); corrupted {
		log.Warn("Recovering corrupted journal", "dir", dir)
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", dir, err)
	}
	return newJournal(db)
}

// OpenMemory returns a journal that lives in memory only.
func OpenMemory() (*Journal, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newJournal(db)
}

func newJournal(db *leveldb.DB) (*Journal, error) {
	j := &Journal{db: db, now: time.Now}
	it := db.NewIterator(util.BytesPrefix(seqPrefix), nil)
	if it.Last() {
		j.seq = binary.BigEndian.Uint64(it.Key()[len(seqPrefix):]) + 1
	}
	it.Release()
	if err := it.Error(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Len returns the number of journaled transactions.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Record stores tx along with the node's answer. Recording a transaction
// that is already journaled is a no-op.
func (j *Journal) Record(tx *types.Transaction, res *types.SubmitResult) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if ok, err := j.db.Has(txKey(hash), nil); err != nil {
		return err
	} else if ok {
		return nil
	}
	stored := storedEntry{
		Version:   entryVersion,
		Seq:       j.seq,
		Submitted: uint64(j.now().Unix()),
		Raw:       raw,
	}
	if res != nil {
		stored.NodeHash, stored.Success = res.Hash, res.Success
	}
	enc, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(txKey(hash), enc)
	batch.Put(seqKey(j.seq), hash[:])
	if err := j.db.Write(batch, nil); err != nil {
		return fmt.Errorf("journal: writing entry: %w", err)
	}
	log.Trace("Journaled transaction", "seq", j.seq, "hash", fmt.Sprintf("%x", hash))
	j.seq++
	return nil
}

// Get returns the entry for a transaction hash.
func (j *Journal) Get(hash [32]byte) (*Entry, error) {
	enc, err := j.db.Get(txKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(hash, enc)
}

// List returns up to limit entries, most recent first. A limit of zero or
// less returns every entry.
func (j *Journal) List(limit int) ([]*Entry, error) {
	it := j.db.NewIterator(util.BytesPrefix(seqPrefix), nil)
	defer it.Release()

	var entries []*Entry
	for ok := it.Last(); ok; ok = it.Prev() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		var hash [32]byte
		if len(it.Value()) != len(hash) {
			return nil, ErrCorruptedEntry
		}
		copy(hash[:], it.Value())
		e, err := j.Get(hash)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, it.Error()
}

// BySender returns the entries sent by vk, most recent first.
func (j *Journal) BySender(vk [params.VerifyingKeySize]byte) ([]*Entry, error) {
	all, err := j.List(0)
	if err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range all {
		if e.Tx.Sender() == vk {
			out = append(out, e)
		}
	}
	return out, nil
}

func decodeEntry(hash [32]byte, enc []byte) (*Entry, error) {
	var stored storedEntry
	if err := rlp.DecodeBytes(enc, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedEntry, err)
	}
	if stored.Version != entryVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorruptedEntry, stored.Version)
	}
	tx, err := types.DecodeTransaction(stored.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedEntry, err)
	}
	return &Entry{
		Seq:       stored.Seq,
		Hash:      hash,
		NodeHash:  stored.NodeHash,
		Success:   stored.Success,
		Submitted: params.UnixSecondsToTime(stored.Submitted),
		Tx:        tx,
	}, nil
}

func txKey(hash [32]byte) []byte {
	return append(append([]byte(nil), txPrefix...), hash[:]...)
}

func seqKey(seq uint64) []byte {
	key := make([]byte, len(seqPrefix)+8)
	copy(key, seqPrefix)
	binary.BigEndian.PutUint64(key[len(seqPrefix):], seq)
	return key
}
