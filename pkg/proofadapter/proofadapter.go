// Copyright 2025 Certen Protocol
//
// Proof Adapter
//
// An abstraction over the zkVM engine that proves and verifies recursive
// composition of succinct proofs, so the execution engine can drive proving
// without depending on which backend is configured. Four backends trade
// speed for real cryptographic soundness: MockProof and NoAggregation are
// journal-only test fixtures, Compressed simulates a folded recursive
// journal, and Groth16 produces a real proof/verification pair.

package proofadapter

import (
	"github.com/google/uuid"

	"github.com/certen/nexus/pkg/types"
)

// Adapter is a configured proof backend, constructed once per process and
// shared across every batch the execution engine proves.
type Adapter interface {
	// NewSession begins a proving session bound to an application program
	// image (the statement digest of the account whose proof is being
	// composed, or a batch-wide constant for the header-level proof).
	NewSession(programImage []byte) (Session, error)

	// Verify checks proof against this backend: the journal must parse and
	// carry this backend's tag, Compressed also checks its payload width, and
	// Groth16 also verifies its proof against the journal's header digest and
	// assumption count. programImage is not checked, and no backend
	// re-verifies the assumption proofs admitted during proving.
	Verify(proof types.Proof, programImage []byte) error

	// Backend reports which ProofBackend this adapter implements.
	Backend() types.ProofBackend
}

// Session accumulates inputs and assumptions for a single proof.
type Session interface {
	// ID identifies this session for logging and metrics.
	ID() uuid.UUID

	// AddInput serializes and appends a public/private input. Order is
	// significant: two sessions that add the same inputs in different
	// orders are not guaranteed to produce the same proof.
	AddInput(value []byte) error

	// AddAssumption admits a prior succinct proof as an assumption of this
	// session; depending on the backend it is folded into or counted in the
	// resulting proof. The assumption proof itself is not verified, here or
	// by Verify.
	AddAssumption(proof types.Proof) error

	// Prove finalizes the session against the candidate output header and
	// returns a succinct proof whose journal commits to that header.
	Prove(candidate types.NexusHeader) (*types.Proof, error)
}

// New constructs the Adapter for backend. Groth16 eagerly runs circuit
// compilation and the one-time Groth16 setup, so New can take noticeably
// longer than the other three modes; this is intentional; the engine calls
// New once at startup rather than per batch.
func New(backend types.ProofBackend) (Adapter, error) {
	switch backend {
	case types.BackendMock:
		return newMockAdapter(), nil
	case types.BackendNoAggregation:
		return newNoAggregationAdapter(), nil
	case types.BackendCompressed:
		return newCompressedAdapter(), nil
	case types.BackendGroth16:
		return newGroth16Adapter()
	default:
		return nil, ErrUnknownBackend
	}
}
