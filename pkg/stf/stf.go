// Copyright 2025 Certen Protocol
//
// State Transition Function
//
// Pure, deterministic, replayable: (da_header, prior_headers, txs, pre_state)
// -> (post_state, per_tx_results). The STF never touches storage directly —
// it only ever sees the witnessed pre-state the Execution Engine assembled
// from the Authenticated State Store, and returns the set of keys it wrote
// plus a result for every transaction, keyed by canonical transaction hash.

package stf

import "github.com/certen/nexus/pkg/types"

// Input is everything the STF needs to replay a batch byte-for-byte.
type Input struct {
	// NexusParentHash is the hash of the most recently produced NexusHeader
	// (zero at genesis). InitAccount binds a fresh account's StartNexusHash
	// to this value, so later SubmitProof transactions from that account
	// anchor their recursive proof to a hash the /range endpoint can hand
	// back out, rather than to a DA chain hash the host never surfaces.
	NexusParentHash types.H256
	DAHeader        types.DAHeader
	PriorHeaders    []types.NexusHeader
	Txs             []types.Transaction
	// PreState carries every AppAccountId any tx in Txs touches, as read
	// from the State Store immediately before this batch; nil means the
	// account did not exist.
	PreState map[types.H256]*types.AccountState
}

// Output is the STF's result: only the accounts whose state actually
// changed, plus one TxResult per transaction.
type Output struct {
	PostState map[types.H256]*types.AccountState
	TxResults map[types.H256]types.TxResult
}

// Apply runs in.Txs in order against in.PreState, using verifier to decide
// signature acceptance (AcceptAllVerifier{} if nil). Transactions are
// applied strictly in input order and each sees the accumulated effect of
// every successful transaction earlier in the same batch.
func Apply(verifier SignatureVerifier, in Input) *Output {
	if verifier == nil {
		verifier = AcceptAllVerifier{}
	}

	// working is the accumulated view of state as the batch progresses;
	// it starts as a copy of the witnessed pre-state so later reads never
	// alias the caller's map.
	working := make(map[types.H256]*types.AccountState, len(in.PreState))
	for k, v := range in.PreState {
		if v != nil {
			cp := *v
			working[k] = &cp
		}
	}

	out := &Output{
		PostState: make(map[types.H256]*types.AccountState),
		TxResults: make(map[types.H256]types.TxResult, len(in.Txs)),
	}

	for _, tx := range in.Txs {
		hash := tx.Hash()
		if !verifier.Verify(tx) {
			out.TxResults[hash] = types.TxResult{Status: types.TxFailed, Reason: ErrInvalidSignature.Error()}
			continue
		}

		accountID := tx.AppAccountID()
		current := working[accountID]

		var result types.TxResult
		var next *types.AccountState

		switch tx.Kind {
		case types.TxInitAccount:
			next, result = applyInitAccount(current, tx, in.NexusParentHash)
		case types.TxSubmitProof:
			next, result = applySubmitProof(current, tx)
		default:
			result = types.TxResult{Status: types.TxFailed, Reason: "stf: unknown transaction kind"}
		}

		out.TxResults[hash] = result
		if result.Status == types.TxSuccessful && next != nil {
			working[accountID] = next
			out.PostState[accountID] = next
		}
	}

	return out
}

// applyInitAccount returns the new account state only when the account
// changed; a matching-statement replay against an already-initialized
// account is a no-op success and returns nil so the caller does not emit
// a spurious write.
func applyInitAccount(current *types.AccountState, tx types.Transaction, parentHash types.H256) (*types.AccountState, types.TxResult) {
	if current == nil || current.IsZero() {
		next := &types.AccountState{
			Statement:      tx.Statement,
			StartNexusHash: parentHash,
			Height:         0,
			StateRoot:      types.ZeroH256,
		}
		return next, types.TxResult{Status: types.TxSuccessful}
	}
	if current.Statement == tx.Statement {
		return nil, types.TxResult{Status: types.TxSuccessful}
	}
	return nil, types.TxResult{Status: types.TxFailed, Reason: ErrStatementMismatch.Error()}
}

// applySubmitProof advances an account's height and state root once its
// proof validates against the account's current statement, start hash,
// and height.
func applySubmitProof(current *types.AccountState, tx types.Transaction) (*types.AccountState, types.TxResult) {
	if current == nil || current.IsZero() {
		return nil, types.TxResult{Status: types.TxFailed, Reason: ErrAccountUninitialized.Error()}
	}
	if tx.Proof.Statement != current.Statement {
		return nil, types.TxResult{Status: types.TxFailed, Reason: ErrStatementMismatch.Error()}
	}
	if tx.Proof.Height <= current.Height {
		return nil, types.TxResult{Status: types.TxFailed, Reason: ErrNonMonotoneHeight.Error()}
	}
	if tx.Proof.StartNexusHash != current.StartNexusHash {
		return nil, types.TxResult{Status: types.TxFailed, Reason: ErrStartHashMismatch.Error()}
	}
	if tx.Height != tx.Proof.Height {
		return nil, types.TxResult{Status: types.TxFailed, Reason: ErrHeightMismatch.Error()}
	}

	next := *current
	next.StateRoot = tx.StateRoot
	next.Height = tx.Height
	return &next, types.TxResult{Status: types.TxSuccessful}
}
