// Copyright 2025 Certen Protocol
//
// Authenticated State Store
//
// A versioned sparse-Merkle mapping AppAccountId -> AccountState, built
// on pkg/smt and backed by CometBFT's dbm.DB.

package statestore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/codec"
	"github.com/certen/nexus/pkg/smt"
	"github.com/certen/nexus/pkg/types"
)

var (
	nodePrefix       = []byte("smt/node/")
	valuePrefix      = []byte("smt/value/")
	rootPrefix       = []byte("smt/root/")
	latestVersionKey = []byte("smt/latest_version")
)

func nodeKey(h types.H256) []byte { return append(append([]byte{}, nodePrefix...), h[:]...) }
func valueKey(h types.H256) []byte { return append(append([]byte{}, valuePrefix...), h[:]...) }

func rootKey(version uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], version)
	return append(append([]byte{}, rootPrefix...), buf[:]...)
}

// Store is the KV-backed, versioned sparse-Merkle account store.
type Store struct {
	mu            sync.RWMutex
	db            dbm.DB
	latestVersion uint64
	hasVersion    bool
}

// New opens a Store over db, recovering its latest committed version (if
// any) from prior runs.
func New(db dbm.DB) (*Store, error) {
	s := &Store{db: db}
	raw, err := db.Get(latestVersionKey)
	if err != nil {
		return nil, fmt.Errorf("statestore: reading latest version: %w", err)
	}
	if raw != nil {
		if len(raw) != 8 {
			return nil, fmt.Errorf("statestore: corrupt latest version record (%d bytes)", len(raw))
		}
		s.latestVersion = binary.BigEndian.Uint64(raw)
		s.hasVersion = true
	}
	return s, nil
}

// dbNodeReader adapts a dbm.DB to smt.NodeReader under the store's key
// prefixes.
type dbNodeReader struct{ db dbm.DB }

func (r dbNodeReader) GetNode(h types.H256) ([]byte, bool, error) {
	b, err := r.db.Get(nodeKey(h))
	if err != nil {
		return nil, false, err
	}
	return b, b != nil, nil
}

func (r dbNodeReader) GetValue(h types.H256) ([]byte, bool, error) {
	b, err := r.db.Get(valueKey(h))
	if err != nil {
		return nil, false, err
	}
	return b, b != nil, nil
}

// LatestVersion reports the most recently committed version, if any.
func (s *Store) LatestVersion() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestVersion, s.hasVersion
}

// Root returns the committed root hash at version.
func (s *Store) Root(version uint64) (types.H256, error) {
	raw, err := s.db.Get(rootKey(version))
	if err != nil {
		return types.H256{}, fmt.Errorf("statestore: reading root for version %d: %w", version, err)
	}
	if raw == nil {
		return types.H256{}, fmt.Errorf("%w %d", ErrRootNotFound, version)
	}
	return types.H256FromBytes(raw)
}

// Get performs a point lookup of key at version.
func (s *Store) Get(key types.H256, version uint64) (*types.AccountState, error) {
	root, err := s.Root(version)
	if err != nil {
		return nil, err
	}
	val, found, err := smt.Get(dbNodeReader{s.db}, root, key)
	if err != nil {
		return nil, fmt.Errorf("statestore: get %s at version %d: %w", key, version, err)
	}
	if !found {
		return nil, nil
	}
	state, err := types.DecodeAccountState(val)
	if err != nil {
		return nil, fmt.Errorf("statestore: decoding account at %s: %w", key, err)
	}
	return &state, nil
}

// GetWithProof is Get plus the sparse-Merkle witness needed to verify the
// result against root(version) independently.
func (s *Store) GetWithProof(key types.H256, version uint64) (*types.AccountState, smt.Proof, error) {
	root, err := s.Root(version)
	if err != nil {
		return nil, smt.Proof{}, err
	}
	val, found, proof, err := smt.GetWithProof(dbNodeReader{s.db}, root, key)
	if err != nil {
		return nil, proof, fmt.Errorf("statestore: get-with-proof %s at version %d: %w", key, version, err)
	}
	if !found {
		return nil, proof, nil
	}
	state, err := types.DecodeAccountState(val)
	if err != nil {
		return nil, proof, fmt.Errorf("statestore: decoding account at %s: %w", key, err)
	}
	return &state, proof, nil
}

// WitnessEntry is one key's contribution to a StateUpdate: the value read
// before the batch's writes, plus the proof against pre_state_root.
type WitnessEntry struct {
	PreState *types.AccountState
	Proof    smt.Proof
}

// StateUpdate is the witness structure the engine feeds to the proof
// adapter: every key the staged batch writes, each backed by a verifiable
// proof against PreStateRoot. Keys that are only read are not included.
type StateUpdate struct {
	PreStateRoot  types.H256
	PostStateRoot types.H256
	PreState      map[types.H256]WitnessEntry
}

// NoopUpdate returns the StateUpdate for a batch that wrote nothing: pre
// and post roots both equal root, with an empty witness map.
func NoopUpdate(root types.H256) *StateUpdate {
	return &StateUpdate{PreStateRoot: root, PostStateRoot: root, PreState: map[types.H256]WitnessEntry{}}
}

// EncodeBytes returns the canonical encoding of u, with witness entries
// ordered by key so the encoding is a pure function of the update's
// contents regardless of map iteration order.
func (u *StateUpdate) EncodeBytes() []byte {
	keys := make([]types.H256, 0, len(u.PreState))
	for k := range u.PreState {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	enc := codec.NewEncoder()
	enc.PutFixed(u.PreStateRoot[:])
	enc.PutFixed(u.PostStateRoot[:])
	enc.PutUint32(uint32(len(keys)))
	for _, k := range keys {
		entry := u.PreState[k]
		enc.PutFixed(k[:])
		if entry.PreState != nil {
			enc.PutByte(1)
			enc.PutBytes(entry.PreState.EncodeBytes())
		} else {
			enc.PutByte(0)
		}
		for _, sib := range entry.Proof.Siblings {
			enc.PutFixed(sib[:])
		}
	}
	return enc.Bytes()
}

// TreeUpdateBatch is the not-yet-persisted result of Stage: the new nodes
// and leaf values the update produced, plus the version/root it targets.
type TreeUpdateBatch struct {
	Version uint64
	Root    types.H256
	batch   *smt.Batch
}

// Stage applies updates (nil value deletes the key) at version =
// LatestVersion()+1, or 0 on a store with no committed version, returning the node-level write batch and the witness
// structure without mutating the backing store. Calling Stage repeatedly
// with the same version before any Commit is idempotent: it is a pure
// function of the committed state plus updates.
func (s *Store) Stage(updates map[types.H256]*types.AccountState, version uint64) (*TreeUpdateBatch, *StateUpdate, error) {
	s.mu.RLock()
	latest, has := s.latestVersion, s.hasVersion
	s.mu.RUnlock()

	expected := uint64(0)
	if has {
		expected = latest + 1
	}
	if version != expected {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrStageVersionConflict, version, expected)
	}

	var preRoot types.H256
	if has {
		r, err := s.Root(latest)
		if err != nil {
			return nil, nil, err
		}
		preRoot = r
	} else {
		preRoot = smt.EmptyRoot()
	}

	reader := dbNodeReader{s.db}
	batch := smt.NewBatch()
	witness := make(map[types.H256]WitnessEntry, len(updates))
	root := preRoot

	for key, newState := range updates {
		preVal, found, proof, err := smt.GetWithProof(reader, preRoot, key)
		if err != nil {
			return nil, nil, fmt.Errorf("statestore: witnessing %s: %w", key, err)
		}
		entry := WitnessEntry{Proof: proof}
		if found {
			decoded, err := types.DecodeAccountState(preVal)
			if err != nil {
				return nil, nil, fmt.Errorf("statestore: decoding pre-state %s: %w", key, err)
			}
			entry.PreState = &decoded
		}
		witness[key] = entry

		var newVal []byte
		if newState != nil {
			newVal = newState.EncodeBytes()
		}
		root, err = smt.Update(reader, batch, root, key, newVal)
		if err != nil {
			return nil, nil, fmt.Errorf("statestore: updating %s: %w", key, err)
		}
	}

	update := &StateUpdate{PreStateRoot: preRoot, PostStateRoot: root, PreState: witness}
	treeBatch := &TreeUpdateBatch{Version: version, Root: root, batch: batch}
	return treeBatch, update, nil
}

// Commit atomically writes batch's nodes and values and advances the
// committed version. It is not idempotent: committing the same version
// twice (or a version other than latest+1) fails with
// ErrVersionConflict.
func (s *Store) Commit(batch *TreeUpdateBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expected := uint64(0)
	if s.hasVersion {
		expected = s.latestVersion + 1
	}
	if batch.Version != expected {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionConflict, batch.Version, expected)
	}

	dbBatch := s.db.NewBatch()
	defer dbBatch.Close()

	if err := writeTreeBatch(dbBatch, batch.batch); err != nil {
		return err
	}
	if err := dbBatch.Set(rootKey(batch.Version), batch.Root.Bytes()); err != nil {
		return fmt.Errorf("statestore: staging root write: %w", err)
	}
	var versionBuf [8]byte
	binary.BigEndian.PutUint64(versionBuf[:], batch.Version)
	if err := dbBatch.Set(latestVersionKey, versionBuf[:]); err != nil {
		return fmt.Errorf("statestore: staging latest-version write: %w", err)
	}
	if err := dbBatch.WriteSync(); err != nil {
		return fmt.Errorf("statestore: committing batch: %w", err)
	}

	s.latestVersion = batch.Version
	s.hasVersion = true
	return nil
}

// writeTreeBatch stages every node and value in b into dbBatch. It is
// exported-in-spirit via WriteBatchInto so the persistence coordinator
// can fold the tree's node batch into its own single atomic commit
// instead of going through Store.Commit.
func writeTreeBatch(dbBatch dbm.Batch, b *smt.Batch) error {
	for h, raw := range b.Nodes {
		if err := dbBatch.Set(nodeKey(h), raw); err != nil {
			return fmt.Errorf("statestore: staging node write: %w", err)
		}
	}
	for h, raw := range b.Values {
		if err := dbBatch.Set(valueKey(h), raw); err != nil {
			return fmt.Errorf("statestore: staging value write: %w", err)
		}
	}
	return nil
}

// WriteBatchInto folds this TreeUpdateBatch's node and value writes, plus
// its root/version bookkeeping, into an externally managed dbm.Batch so a
// caller (the Persistence Coordinator) can commit them atomically
// alongside unrelated keys in a single WriteSync.
func (b *TreeUpdateBatch) WriteBatchInto(dbBatch dbm.Batch) error {
	if err := writeTreeBatch(dbBatch, b.batch); err != nil {
		return err
	}
	if err := dbBatch.Set(rootKey(b.Version), b.Root.Bytes()); err != nil {
		return fmt.Errorf("statestore: staging root write: %w", err)
	}
	var versionBuf [8]byte
	binary.BigEndian.PutUint64(versionBuf[:], b.Version)
	return dbBatch.Set(latestVersionKey, versionBuf[:])
}

// AdvanceVersion updates the store's in-memory bookkeeping after a caller
// (the Persistence Coordinator) has already written batch's contents to
// the shared database as part of a larger atomic commit.
func (s *Store) AdvanceVersion(batch *TreeUpdateBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestVersion = batch.Version
	s.hasVersion = true
}
