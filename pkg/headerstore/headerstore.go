// Copyright 2025 Certen Protocol
//
// Header Store
//
// A bounded, front-push ring of the most recent canonical NexusHeaders,
// newest first. The STF and the RPC /range endpoint both read it as a
// single opaque sequence; only the Execution Engine ever mutates it.

package headerstore

import (
	"fmt"

	"github.com/certen/nexus/pkg/codec"
	"github.com/certen/nexus/pkg/types"
)

// DefaultCapacity is the maximum number of headers retained, matching the
// data model's bound on public-input size for the proof adapter.
const DefaultCapacity = 32

// Store is a bounded sequence of headers, newest at index 0. It is not
// safe for concurrent use; the execution engine owns it exclusively and
// never shares it.
type Store struct {
	capacity int
	headers  []types.NexusHeader
}

// New returns an empty Store bounded to capacity headers.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// PushFront inserts h as the newest header, evicting the oldest if the
// store is at capacity.
func (s *Store) PushFront(h types.NexusHeader) {
	s.headers = append([]types.NexusHeader{h}, s.headers...)
	if len(s.headers) > s.capacity {
		s.headers = s.headers[:s.capacity]
	}
}

// First returns the newest header, if any.
func (s *Store) First() (types.NexusHeader, bool) {
	if len(s.headers) == 0 {
		return types.NexusHeader{}, false
	}
	return s.headers[0], true
}

// IsEmpty reports whether the store holds no headers.
func (s *Store) IsEmpty() bool { return len(s.headers) == 0 }

// Inner returns the store's headers, newest first. The returned slice
// must not be mutated by the caller.
func (s *Store) Inner() []types.NexusHeader { return s.headers }

// Hashes returns the canonical hash of every retained header, newest
// first: the shape GET /range exposes to adapters bootstrapping
// start_nexus_hash.
func (s *Store) Hashes() []types.H256 {
	out := make([]types.H256, len(s.headers))
	for i, h := range s.headers {
		out[i] = h.Hash()
	}
	return out
}

// Encode appends the canonical encoding of the whole store to enc: a
// compact count followed by each header's canonical encoding, newest
// first. This is the form persisted under the "persist/previous_headers" key.
func (s *Store) Encode(enc *codec.Encoder) {
	enc.PutUint64(uint64(len(s.headers)))
	for _, h := range s.headers {
		h.Encode(enc)
	}
}

// EncodeBytes returns the canonical byte encoding of the store.
func (s *Store) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	s.Encode(enc)
	return enc.Bytes()
}

// Decode parses the canonical encoding produced by Encode into a new
// Store bounded to capacity.
func Decode(b []byte, capacity int) (*Store, error) {
	dec := codec.NewDecoder(b)
	count, err := dec.GetUint64()
	if err != nil {
		return nil, fmt.Errorf("headerstore: reading count: %w", err)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if count > uint64(capacity) {
		return nil, fmt.Errorf("headerstore: encoded count %d exceeds capacity %d", count, capacity)
	}
	s := New(capacity)
	s.headers = make([]types.NexusHeader, count)
	for i := uint64(0); i < count; i++ {
		h, err := decodeHeaderField(dec)
		if err != nil {
			return nil, fmt.Errorf("headerstore: decoding header %d: %w", i, err)
		}
		s.headers[i] = h
	}
	if err := codec.ReadAll(dec); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeHeaderField decodes one NexusHeader from dec without assuming it
// is the only value the decoder carries (NexusHeader has no standalone
// decoder that tolerates trailing bytes).
func decodeHeaderField(dec *codec.Decoder) (types.NexusHeader, error) {
	var h types.NexusHeader
	parent, err := dec.GetFixed(types.H256Size)
	if err != nil {
		return h, err
	}
	copy(h.ParentHash[:], parent)
	prevRoot, err := dec.GetFixed(types.H256Size)
	if err != nil {
		return h, err
	}
	copy(h.PrevStateRoot[:], prevRoot)
	stateRoot, err := dec.GetFixed(types.H256Size)
	if err != nil {
		return h, err
	}
	copy(h.StateRoot[:], stateRoot)
	availHash, err := dec.GetFixed(types.H256Size)
	if err != nil {
		return h, err
	}
	copy(h.AvailHeaderHash[:], availHash)
	if h.Number, err = dec.GetUint32(); err != nil {
		return h, err
	}
	return h, nil
}
