package persistence

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/headerstore"
	"github.com/certen/nexus/pkg/statestore"
	"github.com/certen/nexus/pkg/types"
)

func TestCommit_NoOpBatch_PersistsHeaderAndBlock(t *testing.T) {
	db := dbm.NewMemDB()
	store, err := statestore.New(db)
	if err != nil {
		t.Fatalf("statestore.New: %v", err)
	}
	coord := New(db)
	headers := headerstore.New(headerstore.DefaultCapacity)

	da := types.DAHeader{Number: 1, ParentHash: types.ZeroH256, Raw: []byte("payload")}
	header := types.NexusHeader{
		ParentHash:      types.ZeroH256,
		PrevStateRoot:   types.ZeroH256,
		StateRoot:       types.ZeroH256,
		AvailHeaderHash: da.Hash(),
		Number:          da.Number,
	}
	headers.PushFront(header)

	in := CommitInput{
		Header:    header,
		DAHeader:  da,
		Txs:       nil,
		TxResults: map[types.H256]types.TxResult{},
		Headers:   headers,
	}
	if err := coord.Commit(in, store); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	gotHeader, err := coord.Header(header.Hash())
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if gotHeader != header {
		t.Fatalf("header mismatch: got %+v want %+v", gotHeader, header)
	}

	block, err := coord.Block(header.Hash())
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if block.TreeVersion != 0 {
		t.Fatalf("expected tree version 0 for no-op batch, got %d", block.TreeVersion)
	}

	reloaded, err := LoadHeaderStore(db, headerstore.DefaultCapacity)
	if err != nil {
		t.Fatalf("LoadHeaderStore: %v", err)
	}
	first, ok := reloaded.First()
	if !ok || first != header {
		t.Fatalf("expected reloaded header store to front with committed header, got %+v ok=%v", first, ok)
	}
}

func TestCommit_WithTreeWrites_AdvancesStoreVersion(t *testing.T) {
	db := dbm.NewMemDB()
	store, err := statestore.New(db)
	if err != nil {
		t.Fatalf("statestore.New: %v", err)
	}
	coord := New(db)
	headers := headerstore.New(headerstore.DefaultCapacity)

	accountID := types.HashBytes([]byte("account"))
	updates := map[types.H256]*types.AccountState{
		accountID: {Statement: types.HashBytes([]byte("s")), Height: 0},
	}
	treeBatch, _, err := store.Stage(updates, 0)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	da := types.DAHeader{Number: 1, ParentHash: types.ZeroH256}
	header := types.NexusHeader{StateRoot: treeBatch.Root, AvailHeaderHash: da.Hash(), Number: 1}
	tx := types.Transaction{Kind: types.TxInitAccount, AppID: 1}

	in := CommitInput{
		TreeBatch: treeBatch,
		Header:    header,
		DAHeader:  da,
		Txs:       []types.Transaction{tx},
		TxResults: map[types.H256]types.TxResult{tx.Hash(): {Status: types.TxSuccessful}},
		Headers:   headers,
	}
	if err := coord.Commit(in, store); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	latest, ok := store.LatestVersion()
	if !ok || latest != 0 {
		t.Fatalf("expected store to advance to version 0, got %d ok=%v", latest, ok)
	}

	record, err := coord.TxResult(tx.Hash())
	if err != nil {
		t.Fatalf("TxResult: %v", err)
	}
	if record.Result.Status != types.TxSuccessful || record.BlockHash != header.Hash() {
		t.Fatalf("unexpected tx record: %+v", record)
	}
}
