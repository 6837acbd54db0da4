// Copyright 2025 Certen Protocol

package proofadapter

import (
	"crypto/sha256"

	"github.com/google/uuid"

	"github.com/certen/nexus/pkg/types"
)

// compressedAdapter is the Compressed backend. It admits assumptions and
// folds them into a running digest the way a real recursive prover folds
// assumption proofs into its accumulator, but the fold is a plain SHA-256
// chain rather than a SNARK: it demonstrates the shape of recursive
// composition (smaller, size-bounded output regardless of assumption
// count) without Groth16's proving cost. Verify only checks that the fold
// digest has the expected width; it cannot re-derive the fold without the
// original assumption proofs, which recursion is precisely meant to let
// a verifier discard.
type compressedAdapter struct{}

func newCompressedAdapter() *compressedAdapter { return &compressedAdapter{} }

func (a *compressedAdapter) Backend() types.ProofBackend { return types.BackendCompressed }

func (a *compressedAdapter) NewSession(programImage []byte) (Session, error) {
	return &compressedSession{id: uuid.New()}, nil
}

func (a *compressedAdapter) Verify(proof types.Proof, programImage []byte) error {
	_, backend, payload, err := decodeJournal(proof.Journal)
	if err != nil {
		return err
	}
	if backend != types.BackendCompressed {
		return ErrBackendMismatch
	}
	if len(payload) != sha256.Size {
		return ErrVerificationFailed
	}
	return nil
}

type compressedSession struct {
	id     uuid.UUID
	fold   [sha256.Size]byte
	proved bool
}

func (s *compressedSession) ID() uuid.UUID { return s.id }

func (s *compressedSession) AddInput(value []byte) error {
	if s.proved {
		return ErrSessionClosed
	}
	s.fold = foldDigest(s.fold, value)
	return nil
}

func (s *compressedSession) AddAssumption(proof types.Proof) error {
	if s.proved {
		return ErrSessionClosed
	}
	s.fold = foldDigest(s.fold, proof.Journal)
	return nil
}

func (s *compressedSession) Prove(candidate types.NexusHeader) (*types.Proof, error) {
	if s.proved {
		return nil, ErrSessionClosed
	}
	s.proved = true
	journal := encodeJournal(candidate, types.BackendCompressed, s.fold[:])
	return &types.Proof{Backend: types.BackendCompressed, Journal: journal}, nil
}

func foldDigest(prev [sha256.Size]byte, next []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write(prev[:])
	h.Write(next)
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
