// Copyright 2025 Certen Protocol
//
// Persistence Coordinator
//
// A single atomic dbm.Batch write binding the header, every transaction's
// status, the full block body, the DA-header back-reference, the header
// store's new front entry, and the state tree's node/root writes folded
// in from the Authenticated State Store via TreeUpdateBatch.WriteBatchInto.
// Exactly one WriteSync per processed DA header, matching the "single
// commit point" every other component's read path assumes.

package persistence

import (
	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/headerstore"
	"github.com/certen/nexus/pkg/statestore"
	"github.com/certen/nexus/pkg/types"
)

var (
	headerPrefix       = []byte("persist/header/")
	blockPrefix        = []byte("persist/block/")
	txPrefix           = []byte("persist/tx/")
	availPrefix        = []byte("persist/avail/")
	previousHeadersKey = []byte("persist/previous_headers")
)

func headerKey(h types.H256) []byte { return append(append([]byte{}, headerPrefix...), h[:]...) }
func blockKey(h types.H256) []byte  { return append(append([]byte{}, blockPrefix...), h[:]...) }
func txKey(h types.H256) []byte     { return append(append([]byte{}, txPrefix...), h[:]...) }
func availKey(h types.H256) []byte  { return append(append([]byte{}, availPrefix...), h[:]...) }

// Coordinator owns the persisted side of every component that is not the
// state tree itself: headers, the tx index, block bodies, and the header
// store snapshot.
type Coordinator struct {
	db dbm.DB
}

// New returns a Coordinator writing into db.
func New(db dbm.DB) *Coordinator {
	return &Coordinator{db: db}
}

// CommitInput is everything a single batch commit needs.
type CommitInput struct {
	// TreeBatch is nil when the batch produced no state writes; the state
	// tree's root and version are unchanged in that case.
	TreeBatch *statestore.TreeUpdateBatch
	Header    types.NexusHeader
	DAHeader  types.DAHeader
	Txs       []types.Transaction
	TxResults map[types.H256]types.TxResult
	Headers   *headerstore.Store
}

// Commit writes in's contents in a single atomic batch, then advances
// store's in-memory version bookkeeping only once the write has durably
// succeeded, so concurrent readers never observe a tree write without
// everything else that batch produced.
func (c *Coordinator) Commit(in CommitInput, store *statestore.Store) error {
	dbBatch := c.db.NewBatch()
	defer dbBatch.Close()

	if in.TreeBatch != nil {
		if err := in.TreeBatch.WriteBatchInto(dbBatch); err != nil {
			return err
		}
	}

	headerHash := in.Header.Hash()
	if err := dbBatch.Set(headerKey(headerHash), in.Header.EncodeBytes()); err != nil {
		return err
	}

	block := types.NexusBlockWithPointers{
		Header:    in.Header,
		TxResults: in.TxResults,
	}
	if in.TreeBatch != nil {
		block.TreeVersion = in.TreeBatch.Version
	}
	if err := dbBatch.Set(blockKey(headerHash), block.EncodeBytes()); err != nil {
		return err
	}

	for _, tx := range in.Txs {
		hash := tx.Hash()
		record := types.TransactionWithStatus{
			Tx:        tx,
			BlockHash: headerHash,
			Result:    in.TxResults[hash],
		}
		if err := dbBatch.Set(txKey(hash), record.EncodeBytes()); err != nil {
			return err
		}
	}

	avail := types.AvailHeaderPointer{DANumber: in.DAHeader.Number, NexusHash: headerHash}
	if err := dbBatch.Set(availKey(in.DAHeader.Hash()), avail.EncodeBytes()); err != nil {
		return err
	}

	if err := dbBatch.Set(previousHeadersKey, in.Headers.EncodeBytes()); err != nil {
		return err
	}

	if err := dbBatch.WriteSync(); err != nil {
		return err
	}

	if in.TreeBatch != nil {
		store.AdvanceVersion(in.TreeBatch)
	}
	return nil
}

// LoadHeaderStore reads back the most recently committed header store
// snapshot, or an empty store at capacity if none has been committed yet.
func LoadHeaderStore(db dbm.DB, capacity int) (*headerstore.Store, error) {
	raw, err := db.Get(previousHeadersKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return headerstore.New(capacity), nil
	}
	return headerstore.Decode(raw, capacity)
}

// Header returns the committed header with the given hash.
func (c *Coordinator) Header(hash types.H256) (types.NexusHeader, error) {
	raw, err := c.db.Get(headerKey(hash))
	if err != nil {
		return types.NexusHeader{}, err
	}
	if raw == nil {
		return types.NexusHeader{}, ErrHeaderNotFound
	}
	return types.DecodeNexusHeader(raw)
}

// Block returns the committed block body for the given header hash.
func (c *Coordinator) Block(hash types.H256) (types.NexusBlockWithPointers, error) {
	raw, err := c.db.Get(blockKey(hash))
	if err != nil {
		return types.NexusBlockWithPointers{}, err
	}
	if raw == nil {
		return types.NexusBlockWithPointers{}, ErrHeaderNotFound
	}
	return types.DecodeNexusBlockWithPointers(raw)
}

// TxResult returns the committed record for the given transaction hash.
func (c *Coordinator) TxResult(hash types.H256) (types.TransactionWithStatus, error) {
	raw, err := c.db.Get(txKey(hash))
	if err != nil {
		return types.TransactionWithStatus{}, err
	}
	if raw == nil {
		return types.TransactionWithStatus{}, ErrTxResultNotFound
	}
	return types.DecodeTransactionWithStatus(raw)
}
