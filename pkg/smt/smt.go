// Copyright 2025 Certen Protocol
//
// Versioned Sparse Merkle Tree
//
// A 256-level binary tree keyed by a 32-byte digest, sparse and
// content-addressed: every distinct node is stored once, keyed by its
// own hash, so successive versions share untouched subtrees.
// Absent keys are represented implicitly by a precomputed "default hash"
// at each depth rather than by materialized empty nodes.

package smt

import (
	"errors"
	"fmt"

	"github.com/certen/nexus/pkg/codec"
	"github.com/certen/nexus/pkg/types"
)

// Depth is the fixed number of levels between the root and a leaf slot,
// matching the 256-bit key space.
const Depth = 256

// ErrNodeNotFound is returned by Get, GetWithProof and Update when the
// NodeReader cannot locate a non-default node hash referenced by the tree; this
// indicates corruption, since every non-default hash the tree produces is
// written before being referenced by a committed root.
var ErrNodeNotFound = errors.New("smt: node not found")

// NodeReader resolves content-addressed nodes and leaf values. Staging
// reads through a NodeReader but never writes to it directly.
type NodeReader interface {
	GetNode(h types.H256) ([]byte, bool, error)
	GetValue(h types.H256) ([]byte, bool, error)
}

// defaultHash[d] is the root hash of an empty subtree of depth (Depth-d),
// i.e. the hash produced when every leaf under that subtree is absent.
// defaultHash[Depth] is the zero digest, denoting "no value"; each
// shallower level folds the previous one with itself.
var defaultHash [Depth + 1]types.H256

func init() {
	defaultHash[Depth] = types.ZeroH256
	for d := Depth - 1; d >= 0; d-- {
		defaultHash[d] = hashInternal(defaultHash[d+1], defaultHash[d+1])
	}
}

// DefaultHash returns the canonical "empty subtree" hash at depth d (0 is
// the root level, Depth is the leaf level).
func DefaultHash(d int) types.H256 { return defaultHash[d] }

// EmptyRoot is the root hash of a tree with no keys set.
func EmptyRoot() types.H256 { return defaultHash[0] }

func hashInternal(left, right types.H256) types.H256 {
	enc := codec.NewEncoder()
	enc.PutFixed(left[:])
	enc.PutFixed(right[:])
	return types.HashBytes(enc.Bytes())
}

func encodeInternal(left, right types.H256) []byte {
	enc := codec.NewEncoder()
	enc.PutFixed(left[:])
	enc.PutFixed(right[:])
	return enc.Bytes()
}

func decodeInternal(b []byte) (left, right types.H256, err error) {
	dec := codec.NewDecoder(b)
	l, err := dec.GetFixed(types.H256Size)
	if err != nil {
		return left, right, err
	}
	r, err := dec.GetFixed(types.H256Size)
	if err != nil {
		return left, right, err
	}
	copy(left[:], l)
	copy(right[:], r)
	return left, right, codec.ReadAll(dec)
}

// keyBit returns bit d of key, counting from the most significant bit
// (d == 0) down to the least significant bit (d == Depth-1).
func keyBit(key types.H256, d int) int {
	byteIdx := d / 8
	bitIdx := 7 - uint(d%8)
	return int((key[byteIdx] >> bitIdx) & 1)
}

// Get walks the tree rooted at root looking up key, returning the stored
// value and whether it was present.
func Get(r NodeReader, root types.H256, key types.H256) (value []byte, found bool, err error) {
	cur := root
	for d := 0; d < Depth; d++ {
		if cur == defaultHash[d] {
			return nil, false, nil
		}
		raw, ok, err := r.GetNode(cur)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, fmt.Errorf("%w: depth %d hash %s", ErrNodeNotFound, d, cur)
		}
		left, right, err := decodeInternal(raw)
		if err != nil {
			return nil, false, fmt.Errorf("smt: corrupt internal node at depth %d: %w", d, err)
		}
		if keyBit(key, d) == 0 {
			cur = left
		} else {
			cur = right
		}
	}
	if cur == defaultHash[Depth] {
		return nil, false, nil
	}
	val, ok, err := r.GetValue(cur)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, fmt.Errorf("%w: leaf value %s", ErrNodeNotFound, cur)
	}
	return val, true, nil
}

// Proof is a sparse-Merkle inclusion or non-inclusion proof: the sibling
// hash encountered at every depth while walking from root to leaf.
type Proof struct {
	Key      types.H256
	Siblings [Depth]types.H256
}

// GetWithProof is Get plus the witness needed to verify the result against
// root without trusting the store.
func GetWithProof(r NodeReader, root types.H256, key types.H256) (value []byte, found bool, proof Proof, err error) {
	proof.Key = key
	cur := root
	for d := 0; d < Depth; d++ {
		if cur == defaultHash[d] {
			for ; d < Depth; d++ {
				proof.Siblings[d] = defaultHash[d+1]
			}
			return nil, false, proof, nil
		}
		raw, ok, err := r.GetNode(cur)
		if err != nil {
			return nil, false, proof, err
		}
		if !ok {
			return nil, false, proof, fmt.Errorf("%w: depth %d hash %s", ErrNodeNotFound, d, cur)
		}
		left, right, err := decodeInternal(raw)
		if err != nil {
			return nil, false, proof, fmt.Errorf("smt: corrupt internal node at depth %d: %w", d, err)
		}
		if keyBit(key, d) == 0 {
			proof.Siblings[d] = right
			cur = left
		} else {
			proof.Siblings[d] = left
			cur = right
		}
	}
	if cur == defaultHash[Depth] {
		return nil, false, proof, nil
	}
	val, ok, err := r.GetValue(cur)
	if err != nil {
		return nil, false, proof, err
	}
	if !ok {
		return nil, false, proof, fmt.Errorf("%w: leaf value %s", ErrNodeNotFound, cur)
	}
	return val, true, proof, nil
}

// VerifyProof recomputes the root implied by proof and (key, value) —
// value == nil denotes non-inclusion — and reports whether it matches
// expectedRoot.
func VerifyProof(expectedRoot types.H256, key types.H256, value []byte, proof Proof) bool {
	var cur types.H256
	if value == nil {
		cur = defaultHash[Depth]
	} else {
		cur = types.HashBytes(value)
	}
	for d := Depth - 1; d >= 0; d-- {
		sibling := proof.Siblings[d]
		if keyBit(key, d) == 0 {
			cur = hashInternal(cur, sibling)
		} else {
			cur = hashInternal(sibling, cur)
		}
	}
	return cur == expectedRoot
}

// Batch accumulates the new nodes and leaf values produced by Update
// calls. It is never written to the backing store implicitly; the
// caller decides when (and as part of what larger atomic write) to
// persist it.
type Batch struct {
	Nodes  map[types.H256][]byte
	Values map[types.H256][]byte
}

// NewBatch returns an empty Batch.
func NewBatch() *Batch {
	return &Batch{Nodes: make(map[types.H256][]byte), Values: make(map[types.H256][]byte)}
}

// readThroughBatch resolves nodes from a Batch first, falling back to the
// underlying store; this lets a single Update call build on writes staged
// earlier in the same batch without persisting them first.
type readThroughBatch struct {
	store NodeReader
	batch *Batch
}

func (rt readThroughBatch) GetNode(h types.H256) ([]byte, bool, error) {
	if b, ok := rt.batch.Nodes[h]; ok {
		return b, true, nil
	}
	return rt.store.GetNode(h)
}

func (rt readThroughBatch) GetValue(h types.H256) ([]byte, bool, error) {
	if b, ok := rt.batch.Values[h]; ok {
		return b, true, nil
	}
	return rt.store.GetValue(h)
}

// Update stages a single key's new value (nil deletes the key) against
// root, appending any newly created nodes/values to batch and returning
// the resulting root. It does not mutate the underlying store.
func Update(store NodeReader, batch *Batch, root types.H256, key types.H256, newValue []byte) (types.H256, error) {
	rt := readThroughBatch{store: store, batch: batch}

	// Walk down, recording the sibling at each depth.
	var siblings [Depth]types.H256
	cur := root
	for d := 0; d < Depth; d++ {
		if cur == defaultHash[d] {
			for ; d < Depth; d++ {
				siblings[d] = defaultHash[d+1]
			}
			break
		}
		raw, ok, err := rt.GetNode(cur)
		if err != nil {
			return types.H256{}, err
		}
		if !ok {
			return types.H256{}, fmt.Errorf("%w: depth %d hash %s", ErrNodeNotFound, d, cur)
		}
		left, right, err := decodeInternal(raw)
		if err != nil {
			return types.H256{}, fmt.Errorf("smt: corrupt internal node at depth %d: %w", d, err)
		}
		if keyBit(key, d) == 0 {
			siblings[d] = right
			cur = left
		} else {
			siblings[d] = left
			cur = right
		}
	}

	// Compute the new leaf hash and register its value.
	var leaf types.H256
	if newValue == nil {
		leaf = defaultHash[Depth]
	} else {
		leaf = types.HashBytes(newValue)
		batch.Values[leaf] = newValue
	}

	// Walk back up, recomputing internal nodes along the path.
	cur = leaf
	for d := Depth - 1; d >= 0; d-- {
		sibling := siblings[d]
		var left, right types.H256
		if keyBit(key, d) == 0 {
			left, right = cur, sibling
		} else {
			left, right = sibling, cur
		}
		if left == defaultHash[d+1] && right == defaultHash[d+1] {
			cur = defaultHash[d]
			continue
		}
		encoded := encodeInternal(left, right)
		cur = types.HashBytes(encoded)
		batch.Nodes[cur] = encoded
	}
	return cur, nil
}
