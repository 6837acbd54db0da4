// Copyright 2025 Certen Protocol

package proofadapter

import (
	"github.com/certen/nexus/pkg/codec"
	"github.com/certen/nexus/pkg/types"
)

// encodeJournal lays out a proof's public journal as the candidate header's
// canonical bytes, the backend tag, and a backend-opaque payload, in that
// order. Every backend uses this same framing so the execution engine's
// header-extraction logic (decodeJournal) never varies by backend; only the
// payload differs between MockProof's empty payload and Groth16's
// serialized proof bytes.
func encodeJournal(header types.NexusHeader, backend types.ProofBackend, payload []byte) []byte {
	enc := codec.NewEncoder()
	enc.PutBytes(header.EncodeBytes())
	enc.PutByte(byte(backend))
	enc.PutBytes(payload)
	return enc.Bytes()
}

// decodeJournal is the inverse of encodeJournal.
func decodeJournal(journal []byte) (types.NexusHeader, types.ProofBackend, []byte, error) {
	dec := codec.NewDecoder(journal)
	headerBytes, err := dec.GetBytes()
	if err != nil {
		return types.NexusHeader{}, 0, nil, ErrMalformedJournal
	}
	header, err := types.DecodeNexusHeader(headerBytes)
	if err != nil {
		return types.NexusHeader{}, 0, nil, ErrMalformedJournal
	}
	tag, err := dec.GetByte()
	if err != nil {
		return types.NexusHeader{}, 0, nil, ErrMalformedJournal
	}
	payload, err := dec.GetBytes()
	if err != nil {
		return types.NexusHeader{}, 0, nil, ErrMalformedJournal
	}
	if err := codec.ReadAll(dec); err != nil {
		return types.NexusHeader{}, 0, nil, ErrMalformedJournal
	}
	return header, types.ProofBackend(tag), payload, nil
}

// ExtractHeader returns the candidate NexusHeader a proof's journal
// commits to, without validating the proof itself. The execution engine
// calls this after Prove to assert the journal matches the header it asked
// the adapter to prove.
func ExtractHeader(proof types.Proof) (types.NexusHeader, error) {
	header, _, _, err := decodeJournal(proof.Journal)
	return header, err
}
