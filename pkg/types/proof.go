// Copyright 2025 Certen Protocol

package types

import (
	"fmt"

	"github.com/certen/nexus/pkg/codec"
)

// ProofBackend selects which Proof Adapter implementation produced (and
// must verify) a Proof. The wire tag is carried inside Proof.Journal so
// journal-extraction logic in the execution engine does not need to vary
// by backend.
type ProofBackend byte

const (
	BackendMock          ProofBackend = 0
	BackendNoAggregation ProofBackend = 1
	BackendCompressed    ProofBackend = 2
	BackendGroth16       ProofBackend = 3
)

func (b ProofBackend) String() string {
	switch b {
	case BackendMock:
		return "mock"
	case BackendNoAggregation:
		return "no-aggregation"
	case BackendCompressed:
		return "compressed"
	case BackendGroth16:
		return "groth16"
	default:
		return fmt.Sprintf("unknown(%d)", byte(b))
	}
}

// Proof is a succinct proof produced by a Proof Adapter session. Statement,
// StartNexusHash and Height are the claims the STF checks against the
// account being advanced; Journal is the backend-opaque proof artifact
// (length-prefixed canonical output header bytes, the backend tag byte,
// then a length-prefixed backend-specific payload, for every backend).
type Proof struct {
	Statement      StatementDigest
	StartNexusHash H256
	Height         uint32
	Backend        ProofBackend
	Journal        []byte
}

// Encode appends the canonical encoding of p to the encoder.
func (p Proof) Encode(enc *codec.Encoder) {
	enc.PutFixed(p.Statement[:])
	enc.PutFixed(p.StartNexusHash[:])
	enc.PutUint32(p.Height)
	enc.PutByte(byte(p.Backend))
	enc.PutBytes(p.Journal)
}

// EncodeBytes returns the canonical byte encoding of p.
func (p Proof) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	p.Encode(enc)
	return enc.Bytes()
}

// DecodeProof parses the canonical encoding produced by Encode.
func DecodeProof(b []byte) (Proof, error) {
	dec := codec.NewDecoder(b)
	var p Proof
	statement, err := dec.GetFixed(H256Size)
	if err != nil {
		return p, err
	}
	copy(p.Statement[:], statement)
	startHash, err := dec.GetFixed(H256Size)
	if err != nil {
		return p, err
	}
	copy(p.StartNexusHash[:], startHash)
	if p.Height, err = dec.GetUint32(); err != nil {
		return p, err
	}
	backend, err := dec.GetByte()
	if err != nil {
		return p, err
	}
	p.Backend = ProofBackend(backend)
	if p.Journal, err = dec.GetBytes(); err != nil {
		return p, err
	}
	if err := codec.ReadAll(dec); err != nil {
		return p, err
	}
	return p, nil
}
