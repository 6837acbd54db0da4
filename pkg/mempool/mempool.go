// Copyright 2025 Certen Protocol
//
// Mempool
//
// A durable, ordered FIFO queue of pending transactions, backed by the
// same CometBFT dbm.DB the state store and persistence coordinator use.

package mempool

import (
	"encoding/binary"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/types"
)

var (
	seqPrefix  = []byte("mempool/seq/")
	hashPrefix = []byte("mempool/hash/")
	headKey    = []byte("mempool/head")
	nextSeqKey = []byte("mempool/next_seq")
)

func seqKey(seq uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(append([]byte{}, seqPrefix...), buf[:]...)
}

func hashKey(h types.H256) []byte {
	return append(append([]byte{}, hashPrefix...), h[:]...)
}

func encodeUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("mempool: corrupt 8-byte counter (%d bytes)", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Cursor is an opaque watermark denoting the end of a Snapshot: every
// sequence number strictly less than Cursor was included in that
// snapshot.
type Cursor uint64

// Pool is the durable FIFO mempool.
type Pool struct {
	mu      sync.Mutex
	db      dbm.DB
	head    uint64
	nextSeq uint64
}

// New opens a Pool over db, recovering its head/nextSeq watermarks from
// prior runs (both default to zero on a fresh database).
func New(db dbm.DB) (*Pool, error) {
	p := &Pool{db: db}
	if raw, err := db.Get(headKey); err != nil {
		return nil, fmt.Errorf("mempool: reading head: %w", err)
	} else if raw != nil {
		if p.head, err = decodeUint64(raw); err != nil {
			return nil, err
		}
	}
	if raw, err := db.Get(nextSeqKey); err != nil {
		return nil, fmt.Errorf("mempool: reading next_seq: %w", err)
	} else if raw != nil {
		if p.nextSeq, err = decodeUint64(raw); err != nil {
			return nil, err
		}
	} else {
		p.nextSeq = p.head
	}
	return p, nil
}

// Add appends tx to the tail of the queue. A transaction still pending
// (same canonical hash) is ignored without error. A transaction already
// truncated may be re-added; whether it has any effect is the state
// transition function's decision, not the queue's.
func (p *Pool) Add(tx types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := tx.Hash()
	existing, err := p.db.Get(hashKey(hash))
	if err != nil {
		return fmt.Errorf("mempool: checking duplicate %s: %w", hash, err)
	}
	if existing != nil {
		return nil
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	seq := p.nextSeq
	if err := batch.Set(seqKey(seq), tx.EncodeBytes()); err != nil {
		return fmt.Errorf("mempool: staging tx write: %w", err)
	}
	if err := batch.Set(hashKey(hash), encodeUint64(seq)); err != nil {
		return fmt.Errorf("mempool: staging hash marker: %w", err)
	}
	if err := batch.Set(nextSeqKey, encodeUint64(seq+1)); err != nil {
		return fmt.Errorf("mempool: staging next_seq: %w", err)
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("mempool: committing add: %w", err)
	}

	p.nextSeq = seq + 1
	return nil
}

// Snapshot returns every transaction currently pending, oldest first,
// along with a Cursor marking the end of this snapshot. Transactions
// added concurrently after Snapshot returns are never included.
func (p *Pool) Snapshot() ([]types.Transaction, Cursor, error) {
	p.mu.Lock()
	head, next := p.head, p.nextSeq
	p.mu.Unlock()

	if head >= next {
		return nil, Cursor(next), nil
	}

	iter, err := p.db.Iterator(seqKey(head), seqKey(next))
	if err != nil {
		return nil, 0, fmt.Errorf("mempool: opening snapshot iterator: %w", err)
	}
	defer iter.Close()

	txs := make([]types.Transaction, 0, next-head)
	for ; iter.Valid(); iter.Next() {
		tx, err := types.DecodeTransaction(iter.Value())
		if err != nil {
			return nil, 0, fmt.Errorf("mempool: decoding queued tx: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := iter.Error(); err != nil {
		return nil, 0, fmt.Errorf("mempool: iterating snapshot: %w", err)
	}
	return txs, Cursor(next), nil
}

// Truncate permanently removes every entry up to and including the
// sequence numbers covered by cursor. It must only be called after the
// header batch built from the corresponding Snapshot has committed:
// calling it earlier would let the watermark advance past transactions
// that were never durably applied.
func (p *Pool) Truncate(cursor Cursor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := uint64(cursor)
	if target < p.head || target > p.nextSeq {
		return fmt.Errorf("%w: cursor=%d head=%d next=%d", ErrInvalidCursor, target, p.head, p.nextSeq)
	}
	if target == p.head {
		return nil
	}

	iter, err := p.db.Iterator(seqKey(p.head), seqKey(target))
	if err != nil {
		return fmt.Errorf("mempool: opening truncate iterator: %w", err)
	}
	defer iter.Close()

	batch := p.db.NewBatch()
	defer batch.Close()

	for ; iter.Valid(); iter.Next() {
		tx, err := types.DecodeTransaction(iter.Value())
		if err != nil {
			return fmt.Errorf("mempool: decoding tx during truncate: %w", err)
		}
		if err := batch.Delete(append([]byte{}, iter.Key()...)); err != nil {
			return fmt.Errorf("mempool: staging delete: %w", err)
		}
		if err := batch.Delete(hashKey(tx.Hash())); err != nil {
			return fmt.Errorf("mempool: staging hash-marker delete: %w", err)
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("mempool: iterating truncate range: %w", err)
	}
	if err := batch.Set(headKey, encodeUint64(target)); err != nil {
		return fmt.Errorf("mempool: staging head advance: %w", err)
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("mempool: committing truncate: %w", err)
	}

	p.head = target
	return nil
}

// Len reports the number of currently pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.nextSeq - p.head)
}
