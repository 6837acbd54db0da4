package engine

import (
	"context"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/headerstore"
	"github.com/certen/nexus/pkg/mempool"
	"github.com/certen/nexus/pkg/metrics"
	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/proofadapter"
	"github.com/certen/nexus/pkg/statestore"
	"github.com/certen/nexus/pkg/types"
)

func newTestEngine(t *testing.T) (*Engine, *mempool.Pool, *statestore.Store, *persistence.Coordinator, dbm.DB) {
	t.Helper()
	db := dbm.NewMemDB()
	mp, err := mempool.New(db)
	if err != nil {
		t.Fatalf("mempool.New: %v", err)
	}
	store, err := statestore.New(db)
	if err != nil {
		t.Fatalf("statestore.New: %v", err)
	}
	persist := persistence.New(db)
	headers, err := persistence.LoadHeaderStore(db, headerstore.DefaultCapacity)
	if err != nil {
		t.Fatalf("LoadHeaderStore: %v", err)
	}
	adapter, err := proofadapter.New(types.BackendMock)
	if err != nil {
		t.Fatalf("proofadapter.New: %v", err)
	}

	e := New(mp, store, persist, adapter, nil, metrics.New(), headers, nil)
	return e, mp, store, persist, db
}

func TestEngine_ProcessesInitAccountBatch(t *testing.T) {
	e, mp, store, persist, _ := newTestEngine(t)

	statement := types.HashBytes([]byte("stmt"))
	tx := types.Transaction{Kind: types.TxInitAccount, AppID: 1, Statement: statement}
	if err := mp.Add(tx); err != nil {
		t.Fatalf("mp.Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	headers := make(chan types.DAHeader, 1)
	if err := e.Start(ctx, headers); err != nil {
		t.Fatalf("Start: %v", err)
	}

	headers <- types.DAHeader{Number: 1, ParentHash: types.ZeroH256, Raw: []byte("da-payload")}

	select {
	case <-e.Done():
		if err := e.Err(); err != nil {
			t.Fatalf("engine stopped with fatal error: %v", err)
		}
		t.Fatal("engine stopped unexpectedly before Stop was called")
	case <-time.After(200 * time.Millisecond):
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	latest, ok := store.LatestVersion()
	if !ok || latest != 0 {
		t.Fatalf("expected store to commit version 0, got %d ok=%v", latest, ok)
	}

	acct, err := store.Get(tx.AppAccountID(), latest)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if acct == nil || acct.Statement != statement {
		t.Fatalf("expected initialized account, got %+v", acct)
	}

	record, err := persist.TxResult(tx.Hash())
	if err != nil {
		t.Fatalf("persist.TxResult: %v", err)
	}
	if record.Result.Status != types.TxSuccessful {
		t.Fatalf("expected successful tx result, got %+v", record.Result)
	}

	if n := mp.Len(); n != 0 {
		t.Fatalf("expected mempool truncated to empty, got %d", n)
	}
}

func waitForTxRecord(t *testing.T, persist *persistence.Coordinator, hash types.H256) types.TransactionWithStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := persist.TxResult(hash)
		if err == nil {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("transaction %s was never committed", hash)
	return types.TransactionWithStatus{}
}

func TestEngine_InitThenSubmitAcrossBatches(t *testing.T) {
	e, mp, store, persist, db := newTestEngine(t)

	statement := types.HashBytes([]byte("stmt"))
	initTx := types.Transaction{Kind: types.TxInitAccount, AppID: 100, Statement: statement}
	if err := mp.Add(initTx); err != nil {
		t.Fatalf("mp.Add init: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	headers := make(chan types.DAHeader, 2)
	if err := e.Start(ctx, headers); err != nil {
		t.Fatalf("Start: %v", err)
	}

	headers <- types.DAHeader{Number: 1, Raw: []byte("da-1")}
	waitForTxRecord(t, persist, initTx.Hash())

	// The account was created at genesis, so its start hash is zero and
	// the first proof advances it to height 1.
	newRoot := types.HashBytes([]byte("rollup-root-1"))
	submitTx := types.Transaction{
		Kind:      types.TxSubmitProof,
		AppID:     100,
		Proof:     types.Proof{Statement: statement, StartNexusHash: types.ZeroH256, Height: 1},
		StateRoot: newRoot,
		Height:    1,
	}
	if err := mp.Add(submitTx); err != nil {
		t.Fatalf("mp.Add submit: %v", err)
	}
	headers <- types.DAHeader{Number: 2, Raw: []byte("da-2")}
	record := waitForTxRecord(t, persist, submitTx.Hash())

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if record.Result.Status != types.TxSuccessful {
		t.Fatalf("expected submit to succeed, got %+v", record.Result)
	}

	latest, ok := store.LatestVersion()
	if !ok {
		t.Fatal("expected committed state")
	}
	acct, err := store.Get(initTx.AppAccountID(), latest)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if acct == nil || acct.Height != 1 || acct.StateRoot != newRoot {
		t.Fatalf("expected account advanced to height 1 with new root, got %+v", acct)
	}

	// The two committed headers must chain: the second header's parent is
	// the first header's hash.
	reloaded, err := persistence.LoadHeaderStore(db, headerstore.DefaultCapacity)
	if err != nil {
		t.Fatalf("LoadHeaderStore: %v", err)
	}
	committed := reloaded.Inner()
	if len(committed) != 2 {
		t.Fatalf("expected 2 committed headers, got %d", len(committed))
	}
	if committed[0].ParentHash != committed[1].Hash() {
		t.Fatal("committed headers do not chain")
	}
}

func TestEngine_EmptyBatchIsNoOp(t *testing.T) {
	e, _, store, _, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	headers := make(chan types.DAHeader, 1)
	if err := e.Start(ctx, headers); err != nil {
		t.Fatalf("Start: %v", err)
	}
	headers <- types.DAHeader{Number: 1, ParentHash: types.ZeroH256}

	time.Sleep(200 * time.Millisecond)
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, has := store.LatestVersion(); has {
		t.Fatal("expected no-op batch to leave the state store uncommitted")
	}
}
