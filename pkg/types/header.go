// Copyright 2025 Certen Protocol

package types

import "github.com/certen/nexus/pkg/codec"

// NexusHeader is the canonical per-batch output header. Its Hash is the
// SHA-256 of its canonical byte encoding and becomes the ParentHash of the
// next header.
type NexusHeader struct {
	ParentHash      H256
	PrevStateRoot   H256
	StateRoot       H256
	AvailHeaderHash H256
	Number          uint32
}

// Encode appends the canonical encoding of h to the encoder.
func (h NexusHeader) Encode(enc *codec.Encoder) {
	enc.PutFixed(h.ParentHash[:])
	enc.PutFixed(h.PrevStateRoot[:])
	enc.PutFixed(h.StateRoot[:])
	enc.PutFixed(h.AvailHeaderHash[:])
	enc.PutUint32(h.Number)
}

// EncodeBytes returns the canonical byte encoding of h.
func (h NexusHeader) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	h.Encode(enc)
	return enc.Bytes()
}

// Hash is the canonical digest of h, used as the next header's ParentHash
// and as the key under which the persistence coordinator stores this
// batch's header and block records.
func (h NexusHeader) Hash() H256 {
	return HashBytes(h.EncodeBytes())
}

// DecodeNexusHeader parses the canonical encoding produced by Encode.
func DecodeNexusHeader(b []byte) (NexusHeader, error) {
	dec := codec.NewDecoder(b)
	var h NexusHeader
	parent, err := dec.GetFixed(H256Size)
	if err != nil {
		return h, err
	}
	copy(h.ParentHash[:], parent)
	prevRoot, err := dec.GetFixed(H256Size)
	if err != nil {
		return h, err
	}
	copy(h.PrevStateRoot[:], prevRoot)
	stateRoot, err := dec.GetFixed(H256Size)
	if err != nil {
		return h, err
	}
	copy(h.StateRoot[:], stateRoot)
	availHash, err := dec.GetFixed(H256Size)
	if err != nil {
		return h, err
	}
	copy(h.AvailHeaderHash[:], availHash)
	if h.Number, err = dec.GetUint32(); err != nil {
		return h, err
	}
	if err := codec.ReadAll(dec); err != nil {
		return h, err
	}
	return h, nil
}

// AvailHeaderPointer is the value stored under an avail_header_hash key: a
// back-reference from a DA header to the nexus header it produced.
type AvailHeaderPointer struct {
	DANumber  uint32
	NexusHash H256
}

// EncodeBytes returns the canonical byte encoding of p.
func (p AvailHeaderPointer) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	enc.PutUint32(p.DANumber)
	enc.PutFixed(p.NexusHash[:])
	return enc.Bytes()
}

// DecodeAvailHeaderPointer parses the canonical encoding produced by
// EncodeBytes.
func DecodeAvailHeaderPointer(b []byte) (AvailHeaderPointer, error) {
	dec := codec.NewDecoder(b)
	var p AvailHeaderPointer
	number, err := dec.GetUint32()
	if err != nil {
		return p, err
	}
	p.DANumber = number
	nexusHash, err := dec.GetFixed(H256Size)
	if err != nil {
		return p, err
	}
	copy(p.NexusHash[:], nexusHash)
	if err := codec.ReadAll(dec); err != nil {
		return p, err
	}
	return p, nil
}

// NexusBlockWithPointers is the full persisted block body for a committed
// batch: the header itself, the per-tx results keyed by tx hash, and the
// state-tree version the batch advanced to.
type NexusBlockWithPointers struct {
	Header      NexusHeader
	TxResults   map[H256]TxResult
	TreeVersion uint64
}

// EncodeBytes returns the canonical byte encoding of n. TxResults entries
// are written in no particular order; decoding does not depend on order.
func (n NexusBlockWithPointers) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	enc.PutBytes(n.Header.EncodeBytes())
	enc.PutUint64(n.TreeVersion)
	enc.PutUint64(uint64(len(n.TxResults)))
	for hash, result := range n.TxResults {
		enc.PutFixed(hash[:])
		result.Encode(enc)
	}
	return enc.Bytes()
}

// DecodeNexusBlockWithPointers parses the canonical encoding produced by
// EncodeBytes.
func DecodeNexusBlockWithPointers(b []byte) (NexusBlockWithPointers, error) {
	dec := codec.NewDecoder(b)
	var n NexusBlockWithPointers
	headerBytes, err := dec.GetBytes()
	if err != nil {
		return n, err
	}
	header, err := DecodeNexusHeader(headerBytes)
	if err != nil {
		return n, err
	}
	n.Header = header
	if n.TreeVersion, err = dec.GetUint64(); err != nil {
		return n, err
	}
	count, err := dec.GetUint64()
	if err != nil {
		return n, err
	}
	n.TxResults = make(map[H256]TxResult, count)
	for i := uint64(0); i < count; i++ {
		hashBytes, err := dec.GetFixed(H256Size)
		if err != nil {
			return n, err
		}
		var hash H256
		copy(hash[:], hashBytes)
		result, err := DecodeTxResult(dec)
		if err != nil {
			return n, err
		}
		n.TxResults[hash] = result
	}
	if err := codec.ReadAll(dec); err != nil {
		return n, err
	}
	return n, nil
}

// DAHeader is the external data-availability header the relayer delivers.
// The core treats it as an opaque input beyond Number/ParentHash/Hash.
type DAHeader struct {
	Number     uint32
	ParentHash H256
	Raw        []byte // opaque DA-chain payload, carried through as a proof input
}

// Hash is the canonical digest of the DA header's number, parent hash and
// raw payload, used as NexusHeader.AvailHeaderHash.
func (d DAHeader) Hash() H256 {
	enc := codec.NewEncoder()
	enc.PutUint32(d.Number)
	enc.PutFixed(d.ParentHash[:])
	enc.PutBytes(d.Raw)
	return HashBytes(enc.Bytes())
}
