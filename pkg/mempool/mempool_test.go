package mempool

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/types"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p, err := New(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func testTx(appID uint32, sigByte byte) types.Transaction {
	tx := types.Transaction{Kind: types.TxInitAccount, AppID: types.AppId(appID)}
	tx.Signature[0] = sigByte
	return tx
}

func TestPool_AddAndSnapshot_FIFO(t *testing.T) {
	p := newTestPool(t)
	tx1 := testTx(1, 1)
	tx2 := testTx(2, 2)
	tx3 := testTx(3, 3)

	for _, tx := range []types.Transaction{tx1, tx2, tx3} {
		if err := p.Add(tx); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	txs, cursor, err := p.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d txs, want 3", len(txs))
	}
	if txs[0].Hash() != tx1.Hash() || txs[1].Hash() != tx2.Hash() || txs[2].Hash() != tx3.Hash() {
		t.Fatal("snapshot did not preserve FIFO order")
	}
	if cursor != 3 {
		t.Fatalf("cursor = %d, want 3", cursor)
	}
}

func TestPool_Add_DuplicateIgnored(t *testing.T) {
	p := newTestPool(t)
	tx := testTx(1, 1)
	if err := p.Add(tx); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Add(tx); err != nil {
		t.Fatalf("duplicate Add should not error: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after duplicate add", p.Len())
	}
}

func TestPool_Truncate_RemovesUpToCursor(t *testing.T) {
	p := newTestPool(t)
	tx1, tx2 := testTx(1, 1), testTx(2, 2)
	if err := p.Add(tx1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Add(tx2); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, cursor, err := p.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if err := p.Truncate(cursor); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	txs, _, err := p.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot after truncate: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty pool after truncate, got %d", len(txs))
	}
}

func TestPool_Truncate_RejectsOutOfRangeCursor(t *testing.T) {
	p := newTestPool(t)
	if err := p.Add(testTx(1, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Truncate(Cursor(99)); err == nil {
		t.Fatal("expected error truncating past the tail")
	}
}

func TestPool_DurableAcrossReopen(t *testing.T) {
	db := dbm.NewMemDB()
	p1, err := New(db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tx := testTx(1, 1)
	if err := p1.Add(tx); err != nil {
		t.Fatalf("Add: %v", err)
	}

	p2, err := New(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	txs, _, err := p2.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot after reopen: %v", err)
	}
	if len(txs) != 1 || txs[0].Hash() != tx.Hash() {
		t.Fatalf("expected reopened pool to recover the pending tx, got %v", txs)
	}
}

func TestPool_SnapshotExcludesConcurrentAdd(t *testing.T) {
	p := newTestPool(t)
	if err := p.Add(testTx(1, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	txs, cursor, err := p.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if err := p.Add(testTx(2, 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(txs) != 1 || cursor != 1 {
		t.Fatalf("snapshot should not observe the tx added afterward: txs=%d cursor=%d", len(txs), cursor)
	}
}
