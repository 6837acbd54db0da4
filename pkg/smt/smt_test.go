package smt

import (
	"testing"

	"github.com/certen/nexus/pkg/types"
)

// memStore is a trivial in-memory NodeReader used by tests; production
// code backs the same interface with pkg/statestore's KV-backed store.
type memStore struct {
	nodes  map[types.H256][]byte
	values map[types.H256][]byte
}

func newMemStore() *memStore {
	return &memStore{nodes: map[types.H256][]byte{}, values: map[types.H256][]byte{}}
}

func (m *memStore) GetNode(h types.H256) ([]byte, bool, error) {
	b, ok := m.nodes[h]
	return b, ok, nil
}

func (m *memStore) GetValue(h types.H256) ([]byte, bool, error) {
	b, ok := m.values[h]
	return b, ok, nil
}

func (m *memStore) apply(batch *Batch) {
	for k, v := range batch.Nodes {
		m.nodes[k] = v
	}
	for k, v := range batch.Values {
		m.values[k] = v
	}
}

func TestEmptyTree_GetReturnsNotFound(t *testing.T) {
	store := newMemStore()
	key := types.HashBytes([]byte("key"))
	_, found, err := Get(store, EmptyRoot(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected key absent in empty tree")
	}
}

func TestUpdate_SingleKey_GetRoundTrip(t *testing.T) {
	store := newMemStore()
	key := types.HashBytes([]byte("account-1"))
	batch := NewBatch()

	newRoot, err := Update(store, batch, EmptyRoot(), key, []byte("account state v1"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	store.apply(batch)

	val, found, err := Get(store, newRoot, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected key present after update")
	}
	if string(val) != "account state v1" {
		t.Fatalf("got %q, want %q", val, "account state v1")
	}
}

func TestUpdate_MultipleKeys_Independent(t *testing.T) {
	store := newMemStore()
	keyA := types.HashBytes([]byte("a"))
	keyB := types.HashBytes([]byte("b"))

	batch := NewBatch()
	root, err := Update(store, batch, EmptyRoot(), keyA, []byte("va"))
	if err != nil {
		t.Fatalf("update a: %v", err)
	}
	root, err = Update(store, batch, root, keyB, []byte("vb"))
	if err != nil {
		t.Fatalf("update b: %v", err)
	}
	store.apply(batch)

	va, found, err := Get(store, root, keyA)
	if err != nil || !found || string(va) != "va" {
		t.Fatalf("get a: val=%q found=%v err=%v", va, found, err)
	}
	vb, found, err := Get(store, root, keyB)
	if err != nil || !found || string(vb) != "vb" {
		t.Fatalf("get b: val=%q found=%v err=%v", vb, found, err)
	}

	other := types.HashBytes([]byte("c"))
	_, found, err = Get(store, root, other)
	if err != nil {
		t.Fatalf("get c: %v", err)
	}
	if found {
		t.Fatal("expected untouched key to be absent")
	}
}

func TestUpdate_Delete_RestoresEmptyRoot(t *testing.T) {
	store := newMemStore()
	key := types.HashBytes([]byte("solo"))

	batch := NewBatch()
	root, err := Update(store, batch, EmptyRoot(), key, []byte("v"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	store.apply(batch)

	batch2 := NewBatch()
	root2, err := Update(store, batch2, root, key, nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	store.apply(batch2)

	if root2 != EmptyRoot() {
		t.Fatalf("expected deleting the only key to restore the empty root, got %s", root2)
	}
}

func TestGetWithProof_InclusionVerifies(t *testing.T) {
	store := newMemStore()
	key := types.HashBytes([]byte("proven"))
	batch := NewBatch()
	root, err := Update(store, batch, EmptyRoot(), key, []byte("value"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	store.apply(batch)

	val, found, proof, err := GetWithProof(store, root, key)
	if err != nil || !found {
		t.Fatalf("GetWithProof: found=%v err=%v", found, err)
	}
	if !VerifyProof(root, key, val, proof) {
		t.Fatal("inclusion proof failed to verify")
	}
}

func TestGetWithProof_NonInclusionVerifies(t *testing.T) {
	store := newMemStore()
	present := types.HashBytes([]byte("present"))
	absent := types.HashBytes([]byte("absent"))

	batch := NewBatch()
	root, err := Update(store, batch, EmptyRoot(), present, []byte("v"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	store.apply(batch)

	val, found, proof, err := GetWithProof(store, root, absent)
	if err != nil {
		t.Fatalf("GetWithProof: %v", err)
	}
	if found {
		t.Fatal("expected absence")
	}
	if !VerifyProof(root, absent, val, proof) {
		t.Fatal("non-inclusion proof failed to verify")
	}
}

func TestVerifyProof_RejectsWrongValue(t *testing.T) {
	store := newMemStore()
	key := types.HashBytes([]byte("tampered"))
	batch := NewBatch()
	root, err := Update(store, batch, EmptyRoot(), key, []byte("real"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	store.apply(batch)

	_, _, proof, err := GetWithProof(store, root, key)
	if err != nil {
		t.Fatalf("GetWithProof: %v", err)
	}
	if VerifyProof(root, key, []byte("forged"), proof) {
		t.Fatal("proof verified against a forged value")
	}
}

func TestDefaultHash_MonotoneUpTree(t *testing.T) {
	// Folding the leaf-level default hash with itself all the way up must
	// reproduce the empty root, exercising the same recursion init() uses.
	cur := DefaultHash(Depth)
	for d := Depth - 1; d >= 0; d-- {
		cur = hashInternal(cur, cur)
		if cur != DefaultHash(d) {
			t.Fatalf("default hash mismatch at depth %d", d)
		}
	}
	if cur != EmptyRoot() {
		t.Fatal("folded default hash should equal EmptyRoot")
	}
}
