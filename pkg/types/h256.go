// Copyright 2025 Certen Protocol
//
// Core wire primitives shared by every Nexus package: the opaque 32-byte
// digest type and the derived application-account identifier.

package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// H256Size is the fixed byte width of every digest in the system.
const H256Size = 32

// H256 is an opaque 32-byte digest. It is used for block hashes, state
// roots, account identifiers, statement digests, and transaction hashes.
type H256 [H256Size]byte

// ZeroH256 is the all-zero digest, used as the genesis parent hash and to
// denote an uninitialized AccountState.
var ZeroH256 = H256{}

// IsZero reports whether h is the all-zero digest.
func (h H256) IsZero() bool { return h == ZeroH256 }

// Bytes returns a freshly allocated copy of h's bytes.
func (h H256) Bytes() []byte {
	b := make([]byte, H256Size)
	copy(b, h[:])
	return b
}

// String renders h as a 0x-prefixed hex string.
func (h H256) String() string { return "0x" + hex.EncodeToString(h[:]) }

// MarshalJSON renders h as a 0x-prefixed hex string, matching the
// go-ethereum common.Hash convention used elsewhere in the codebase.
func (h H256) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON parses a 0x-prefixed (or bare) hex string into h.
func (h *H256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := H256FromHex(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// H256FromHex parses a 0x-prefixed or bare hex string into an H256.
func H256FromHex(s string) (H256, error) {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return H256{}, fmt.Errorf("types: invalid hex digest: %w", err)
	}
	return H256FromBytes(b)
}

// H256FromBytes copies b into a new H256, requiring an exact length match.
func H256FromBytes(b []byte) (H256, error) {
	var h H256
	if len(b) != H256Size {
		return h, fmt.Errorf("types: digest must be %d bytes, got %d", H256Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// StatementDigest commits an adapter's program/statement identity.
type StatementDigest = H256

// AppId identifies a tracked rollup application.
type AppId uint32

// AppAccountId is the state-tree key derived from an AppId. The mapping is
// total and injective: every AppId maps to exactly one AppAccountId, and
// distinct AppIds never collide (modulo SHA-256 collision resistance).
type AppAccountId = H256

// AppAccountIDFromAppID derives the state-tree key for id by hashing its
// big-endian 32-bit encoding.
func AppAccountIDFromAppID(id AppId) AppAccountId {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(id))
	return sha256.Sum256(buf[:])
}

// HashBytes is the canonical digest function used throughout Nexus: plain
// SHA-256 over the supplied canonical encoding.
func HashBytes(b []byte) H256 {
	return sha256.Sum256(b)
}
