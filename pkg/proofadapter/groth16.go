// Copyright 2025 Certen Protocol
//
// Groth16 proof backend
//
// A compiled R1CS circuit, a one-time trusted setup producing a
// proving/verification key pair, and proof generation/verification
// through frontend.NewWitness plus groth16.Prove/groth16.Verify. The
// circuit's statement is that a candidate header digest and an
// assumption count were faithfully committed.

package proofadapter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/google/uuid"

	"github.com/certen/nexus/pkg/types"
)

var curve = ecc.BN254

type groth16Adapter struct {
	mu sync.RWMutex

	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// newGroth16Adapter compiles the header circuit and runs Groth16's setup.
// This one-time cost is paid eagerly at adapter construction since the
// engine builds exactly one Adapter per process lifetime.
func newGroth16Adapter() (*groth16Adapter, error) {
	var circuit headerCircuit
	cs, err := frontend.Compile(curve.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("proofadapter: compile header circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("proofadapter: groth16 setup: %w", err)
	}
	return &groth16Adapter{cs: cs, pk: pk, vk: vk}, nil
}

func (a *groth16Adapter) Backend() types.ProofBackend { return types.BackendGroth16 }

func (a *groth16Adapter) NewSession(programImage []byte) (Session, error) {
	return &groth16Session{id: uuid.New(), adapter: a}, nil
}

func (a *groth16Adapter) Verify(proof types.Proof, programImage []byte) error {
	header, backend, payload, err := decodeJournal(proof.Journal)
	if err != nil {
		return err
	}
	if backend != types.BackendGroth16 {
		return ErrBackendMismatch
	}
	if len(payload) < 4 {
		return ErrMalformedJournal
	}
	assumptionCount := binary.BigEndian.Uint32(payload[:4])
	proofBytes := payload[4:]

	a.mu.RLock()
	defer a.mu.RUnlock()

	grothProof := groth16.NewProof(curve)
	if _, err := grothProof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("proofadapter: decode groth16 proof: %w", err)
	}

	assignment := headerAssignment(header, assumptionCount)
	publicWitness, err := frontend.NewWitness(assignment, curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("proofadapter: build public witness: %w", err)
	}

	if err := groth16.Verify(grothProof, a.vk, publicWitness); err != nil {
		return ErrVerificationFailed
	}
	return nil
}

type groth16Session struct {
	id          uuid.UUID
	adapter     *groth16Adapter
	assumptions uint32
	proved      bool
}

func (s *groth16Session) ID() uuid.UUID { return s.id }

func (s *groth16Session) AddInput(value []byte) error {
	if s.proved {
		return ErrSessionClosed
	}
	// The header circuit's public statement is fixed to the candidate
	// header digest and the assumption count; arbitrary inputs are
	// accepted here only so the engine can drive every backend through
	// the same call sequence.
	return nil
}

func (s *groth16Session) AddAssumption(proof types.Proof) error {
	if s.proved {
		return ErrSessionClosed
	}
	s.assumptions++
	return nil
}

func (s *groth16Session) Prove(candidate types.NexusHeader) (*types.Proof, error) {
	if s.proved {
		return nil, ErrSessionClosed
	}
	s.proved = true

	assignment := headerAssignment(candidate, s.assumptions)
	witness, err := frontend.NewWitness(assignment, curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("proofadapter: build witness: %w", err)
	}

	s.adapter.mu.RLock()
	grothProof, err := groth16.Prove(s.adapter.cs, s.adapter.pk, witness)
	s.adapter.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("proofadapter: groth16 prove: %w", err)
	}

	var buf bytes.Buffer
	if _, err := grothProof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proofadapter: serialize groth16 proof: %w", err)
	}

	payload := make([]byte, 4, 4+buf.Len())
	binary.BigEndian.PutUint32(payload, s.assumptions)
	payload = append(payload, buf.Bytes()...)

	journal := encodeJournal(candidate, types.BackendGroth16, payload)
	return &types.Proof{Backend: types.BackendGroth16, Journal: journal}, nil
}

// headerAssignment builds the circuit assignment for header/assumptionCount,
// splitting the header digest into two 16-byte halves so the private
// DigestLo/DigestHi witnesses have a fixed, deterministic relationship to
// the public HeaderDigest value.
func headerAssignment(header types.NexusHeader, assumptionCount uint32) *headerCircuit {
	digest := header.Hash()
	hi := new(big.Int).SetBytes(digest[:16])
	lo := new(big.Int).SetBytes(digest[16:])

	headerDigest := new(big.Int).Mul(hi, big.NewInt(7))
	headerDigest.Add(headerDigest, lo)

	return &headerCircuit{
		HeaderDigest:    headerDigest,
		AssumptionCount: assumptionCount,
		DigestLo:        lo,
		DigestHi:        hi,
	}
}
