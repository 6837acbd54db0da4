// Copyright 2025 Certen Protocol

package proofadapter

import (
	"github.com/google/uuid"

	"github.com/certen/nexus/pkg/types"
)

// mockAdapter is the MockProof backend: it does no cryptography at all and
// exists purely so the rest of the system can be exercised without paying
// for a real prover.
type mockAdapter struct{}

func newMockAdapter() *mockAdapter { return &mockAdapter{} }

func (a *mockAdapter) Backend() types.ProofBackend { return types.BackendMock }

func (a *mockAdapter) NewSession(programImage []byte) (Session, error) {
	return &mockSession{id: uuid.New(), programImage: programImage}, nil
}

func (a *mockAdapter) Verify(proof types.Proof, programImage []byte) error {
	_, backend, _, err := decodeJournal(proof.Journal)
	if err != nil {
		return err
	}
	if backend != types.BackendMock {
		return ErrBackendMismatch
	}
	return nil
}

type mockSession struct {
	id           uuid.UUID
	programImage []byte
	inputs       int
	assumptions  int
	proved       bool
}

func (s *mockSession) ID() uuid.UUID { return s.id }

func (s *mockSession) AddInput(value []byte) error {
	if s.proved {
		return ErrSessionClosed
	}
	s.inputs++
	return nil
}

func (s *mockSession) AddAssumption(proof types.Proof) error {
	if s.proved {
		return ErrSessionClosed
	}
	s.assumptions++
	return nil
}

func (s *mockSession) Prove(candidate types.NexusHeader) (*types.Proof, error) {
	if s.proved {
		return nil, ErrSessionClosed
	}
	s.proved = true
	journal := encodeJournal(candidate, types.BackendMock, nil)
	return &types.Proof{Backend: types.BackendMock, Journal: journal}, nil
}
