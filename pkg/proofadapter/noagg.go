// Copyright 2025 Certen Protocol

package proofadapter

import (
	"github.com/google/uuid"

	"github.com/certen/nexus/pkg/types"
)

// noAggregationAdapter is the NoAggregation backend: a journal-only fixture
// like MockProof, except it refuses recursive composition outright, for
// exercising batches that must never consume a prior proof as an
// assumption.
type noAggregationAdapter struct{}

func newNoAggregationAdapter() *noAggregationAdapter { return &noAggregationAdapter{} }

func (a *noAggregationAdapter) Backend() types.ProofBackend { return types.BackendNoAggregation }

func (a *noAggregationAdapter) NewSession(programImage []byte) (Session, error) {
	return &noAggregationSession{id: uuid.New()}, nil
}

func (a *noAggregationAdapter) Verify(proof types.Proof, programImage []byte) error {
	_, backend, _, err := decodeJournal(proof.Journal)
	if err != nil {
		return err
	}
	if backend != types.BackendNoAggregation {
		return ErrBackendMismatch
	}
	return nil
}

type noAggregationSession struct {
	id     uuid.UUID
	inputs int
	proved bool
}

func (s *noAggregationSession) ID() uuid.UUID { return s.id }

func (s *noAggregationSession) AddInput(value []byte) error {
	if s.proved {
		return ErrSessionClosed
	}
	s.inputs++
	return nil
}

func (s *noAggregationSession) AddAssumption(proof types.Proof) error {
	return ErrAssumptionsNotSupported
}

func (s *noAggregationSession) Prove(candidate types.NexusHeader) (*types.Proof, error) {
	if s.proved {
		return nil, ErrSessionClosed
	}
	s.proved = true
	journal := encodeJournal(candidate, types.BackendNoAggregation, nil)
	return &types.Proof{Backend: types.BackendNoAggregation, Journal: journal}, nil
}
