// Copyright 2025 Certen Protocol

package types

import "github.com/certen/nexus/pkg/codec"

// AccountState is the value stored in the authenticated state tree for each
// tracked rollup. The zero value denotes "not initialized": Height,
// LastProofHeight are zero and every digest field is the zero digest.
type AccountState struct {
	Statement       StatementDigest
	StateRoot       H256
	LastProofHeight uint32
	StartNexusHash  H256
	Height          uint32
}

// IsZero reports whether s is the uninitialized account value.
func (s AccountState) IsZero() bool {
	return s == AccountState{}
}

// Encode appends the canonical encoding of s to the encoder.
func (s AccountState) Encode(enc *codec.Encoder) {
	enc.PutFixed(s.Statement[:])
	enc.PutFixed(s.StateRoot[:])
	enc.PutUint32(s.LastProofHeight)
	enc.PutFixed(s.StartNexusHash[:])
	enc.PutUint32(s.Height)
}

// EncodeBytes returns the canonical byte encoding of s.
func (s AccountState) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	s.Encode(enc)
	return enc.Bytes()
}

// DecodeAccountState parses the canonical encoding produced by Encode.
func DecodeAccountState(b []byte) (AccountState, error) {
	dec := codec.NewDecoder(b)
	var s AccountState
	statement, err := dec.GetFixed(H256Size)
	if err != nil {
		return s, err
	}
	copy(s.Statement[:], statement)
	stateRoot, err := dec.GetFixed(H256Size)
	if err != nil {
		return s, err
	}
	copy(s.StateRoot[:], stateRoot)
	if s.LastProofHeight, err = dec.GetUint32(); err != nil {
		return s, err
	}
	startHash, err := dec.GetFixed(H256Size)
	if err != nil {
		return s, err
	}
	copy(s.StartNexusHash[:], startHash)
	if s.Height, err = dec.GetUint32(); err != nil {
		return s, err
	}
	if err := codec.ReadAll(dec); err != nil {
		return s, err
	}
	return s, nil
}
