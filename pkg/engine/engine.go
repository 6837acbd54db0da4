// Copyright 2025 Certen Protocol
//
// Execution Engine
//
// Single-writer loop: for each DA header received, snapshot the mempool,
// witness pre-state from the authenticated state store, run the state
// transition function, drive the proof adapter, and commit everything
// atomically through the persistence coordinator. The engine is driven
// by an incoming header channel; there is exactly one writer.

package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/certen/nexus/pkg/headerstore"
	"github.com/certen/nexus/pkg/mempool"
	"github.com/certen/nexus/pkg/metrics"
	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/proofadapter"
	"github.com/certen/nexus/pkg/smt"
	"github.com/certen/nexus/pkg/statestore"
	"github.com/certen/nexus/pkg/stf"
	"github.com/certen/nexus/pkg/types"
)

type runState string

const (
	stateStopped runState = "stopped"
	stateRunning runState = "running"
)

// programImage is the statement the header-level proof commits to. Unlike
// a per-account SubmitProof, the recursive batch proof is not about any
// single application's statement, so a fixed constant stands in for it.
var programImage = []byte("nexus/header/v1")

// Engine is the execution engine. It is not safe for concurrent use of
// its exported methods beyond the documented Start/Stop pair; only one
// goroutine is ever driving a batch at a time by construction.
type Engine struct {
	mu      sync.Mutex
	state   runState
	stopCh  chan struct{}
	doneCh  chan struct{}
	lastErr error

	mempool     *mempool.Pool
	store       *statestore.Store
	persist     *persistence.Coordinator
	adapter     proofadapter.Adapter
	verifier    stf.SignatureVerifier
	metrics     *metrics.Metrics
	headerStore *headerstore.Store
	logger      *log.Logger
}

// New constructs an Engine around headerStore, the header store snapshot the
// caller has already loaded (for example with persistence.LoadHeaderStore);
// New does not read persistence itself.
func New(
	mp *mempool.Pool,
	store *statestore.Store,
	persist *persistence.Coordinator,
	adapter proofadapter.Adapter,
	verifier stf.SignatureVerifier,
	m *metrics.Metrics,
	headerStore *headerstore.Store,
	logger *log.Logger,
) *Engine {
	if verifier == nil {
		verifier = stf.AcceptAllVerifier{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		state:       stateStopped,
		mempool:     mp,
		store:       store,
		persist:     persist,
		adapter:     adapter,
		verifier:    verifier,
		metrics:     m,
		headerStore: headerStore,
		logger:      logger,
	}
}

// Start begins consuming headers from the channel in a background
// goroutine. It returns immediately; the loop stops on ctx cancellation,
// a call to Stop, the channel closing, or a fatal batch error.
func (e *Engine) Start(ctx context.Context, headers <-chan types.DAHeader) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateRunning {
		return nil
	}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.state = stateRunning

	go e.run(ctx, headers)
	e.logger.Println("execution engine started")
	return nil
}

// Stop signals the run loop to exit and waits for it to finish.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != stateRunning {
		e.mu.Unlock()
		return ErrNotRunning
	}
	close(e.stopCh)
	e.state = stateStopped
	e.mu.Unlock()

	<-e.doneCh
	e.logger.Println("execution engine stopped")
	return nil
}

// Done returns a channel closed when the run loop exits, whether by Stop,
// context cancellation, the header channel closing, or a fatal batch
// error. Callers that need to distinguish a clean stop from a fatal one
// should check Err after Done closes.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doneCh
}

// Err returns the fatal error that stopped the run loop, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) run(ctx context.Context, headers <-chan types.DAHeader) {
	defer close(e.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case da, ok := <-headers:
			if !ok {
				return
			}
			e.metrics.SetQueuedHeaders(len(headers))
			start := time.Now()
			if err := e.processBatch(da); err != nil {
				e.metrics.IncFatalError()
				e.logger.Printf("fatal error processing DA header %d: %v", da.Number, err)
				e.mu.Lock()
				e.lastErr = err
				e.mu.Unlock()
				return
			}
			e.metrics.ObserveBatch(time.Since(start))
		}
	}
}

// processBatch runs one full pass of the batch procedure. Any error it
// returns is fatal: the mempool is not advanced and the caller stops the
// loop.
func (e *Engine) processBatch(da types.DAHeader) error {
	txs, cursor, err := e.mempool.Snapshot()
	if err != nil {
		return fmt.Errorf("engine: snapshot mempool: %w", err)
	}
	e.metrics.SetMempoolSize(len(txs))

	latest, has := e.store.LatestVersion()

	preState := make(map[types.H256]*types.AccountState, len(txs))
	for _, tx := range txs {
		id := tx.AppAccountID()
		if _, seen := preState[id]; seen {
			continue
		}
		if !has {
			preState[id] = nil
			continue
		}
		acct, err := e.store.Get(id, latest)
		if err != nil {
			// Storage reads get one retry before the error is fatal.
			acct, err = e.store.Get(id, latest)
		}
		if err != nil {
			return fmt.Errorf("engine: read pre-state for %s: %w", id, err)
		}
		preState[id] = acct
	}

	parentHash := types.ZeroH256
	if first, ok := e.headerStore.First(); ok {
		parentHash = first.Hash()
	}

	out := stf.Apply(e.verifier, stf.Input{
		NexusParentHash: parentHash,
		DAHeader:        da,
		PriorHeaders:    e.headerStore.Inner(),
		Txs:             txs,
		PreState:        preState,
	})

	failedTxs := 0
	for _, result := range out.TxResults {
		if result.Status == types.TxFailed {
			failedTxs++
		}
	}

	var treeBatch *statestore.TreeUpdateBatch
	var prevRoot, postRoot types.H256
	if has {
		if prevRoot, err = e.store.Root(latest); err != nil {
			return fmt.Errorf("engine: read current root: %w", err)
		}
	} else {
		prevRoot = smt.EmptyRoot()
	}
	postRoot = prevRoot

	update := statestore.NoopUpdate(prevRoot)
	if len(out.PostState) > 0 {
		version := uint64(0)
		if has {
			version = latest + 1
		}
		treeBatch, update, err = e.store.Stage(out.PostState, version)
		if err != nil {
			return fmt.Errorf("engine: stage state update: %w", err)
		}
		postRoot = treeBatch.Root
	}

	candidate := types.NexusHeader{
		ParentHash:      parentHash,
		PrevStateRoot:   prevRoot,
		StateRoot:       postRoot,
		AvailHeaderHash: da.Hash(),
		Number:          da.Number,
	}

	proveStart := time.Now()
	proof, err := e.prove(candidate, txs, update)
	e.metrics.ObserveProving(time.Since(proveStart))
	if err != nil {
		return fmt.Errorf("engine: prove batch: %w", err)
	}

	extracted, err := proofadapter.ExtractHeader(*proof)
	if err != nil {
		return fmt.Errorf("engine: extract header from proof journal: %w", err)
	}
	if extracted != candidate {
		return fmt.Errorf("%w: got %+v want %+v", ErrHeaderMismatch, extracted, candidate)
	}

	e.headerStore.PushFront(candidate)

	commitInput := persistence.CommitInput{
		TreeBatch: treeBatch,
		Header:    candidate,
		DAHeader:  da,
		Txs:       txs,
		TxResults: out.TxResults,
		Headers:   e.headerStore,
	}
	if err := e.persist.Commit(commitInput, e.store); err != nil {
		// The batch write is all-or-nothing, so one retry with the same
		// contents is safe before the error is fatal.
		if err = e.persist.Commit(commitInput, e.store); err != nil {
			return fmt.Errorf("engine: commit batch: %w", err)
		}
	}

	if err := e.mempool.Truncate(cursor); err != nil {
		return fmt.Errorf("engine: truncate mempool: %w", err)
	}

	e.metrics.RecordBatch(treeBatch == nil, failedTxs)
	return nil
}

// prove drives the proof adapter's session contract: every transaction,
// the state-update witness, the DA header, and the header-store snapshot
// are added as inputs, every SubmitProof's embedded proof is admitted as
// an assumption, and Prove binds the candidate header into the resulting
// journal.
func (e *Engine) prove(candidate types.NexusHeader, txs []types.Transaction, update *statestore.StateUpdate) (*types.Proof, error) {
	session, err := e.adapter.NewSession(programImage)
	if err != nil {
		return nil, fmt.Errorf("new proving session: %w", err)
	}
	for _, tx := range txs {
		if err := session.AddInput(tx.EncodeBytes()); err != nil {
			return nil, fmt.Errorf("add tx input: %w", err)
		}
	}
	if err := session.AddInput(update.EncodeBytes()); err != nil {
		return nil, fmt.Errorf("add state-update input: %w", err)
	}
	availHash := candidate.AvailHeaderHash
	if err := session.AddInput(availHash[:]); err != nil {
		return nil, fmt.Errorf("add da-header input: %w", err)
	}
	if err := session.AddInput(e.headerStore.EncodeBytes()); err != nil {
		return nil, fmt.Errorf("add header-store input: %w", err)
	}
	for _, tx := range txs {
		if tx.Kind != types.TxSubmitProof {
			continue
		}
		if err := session.AddAssumption(tx.Proof); err != nil {
			return nil, fmt.Errorf("add assumption: %w", err)
		}
	}
	return session.Prove(candidate)
}
