// Copyright 2025 Certen Protocol
//
// SCALE-style canonical encoding helpers shared by every wire type in Nexus.
// Integers use the compact (variable-length) representation; byte strings
// are length-prefixed with a compact length. This keeps header and
// transaction encodings deterministic, which matters because NexusHeader
// hashes are computed over the canonical bytes.

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors returned while decoding malformed wire data.
var (
	ErrUnexpectedEOF  = errors.New("codec: unexpected end of input")
	ErrInvalidCompact = errors.New("codec: invalid compact integer")
	ErrTooLarge       = errors.New("codec: length prefix exceeds maximum")
)

// MaxBytesLen bounds any single length-prefixed byte string decoded from the
// wire. It guards against a corrupt or hostile length prefix causing an
// unbounded allocation.
const MaxBytesLen = 64 << 20

// Encoder accumulates canonical bytes for a single value.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated canonical encoding.
func (e *Encoder) Bytes() []byte { return e.buf }

// PutByte appends a single raw byte.
func (e *Encoder) PutByte(b byte) { e.buf = append(e.buf, b) }

// PutFixed appends raw bytes with no length prefix (used for fixed-size
// fields such as H256 digests).
func (e *Encoder) PutFixed(b []byte) { e.buf = append(e.buf, b...) }

// PutUint32 appends a compact-encoded uint32.
func (e *Encoder) PutUint32(v uint32) { e.buf = EncodeCompactUint64(e.buf, uint64(v)) }

// PutUint64 appends a compact-encoded uint64.
func (e *Encoder) PutUint64(v uint64) { e.buf = EncodeCompactUint64(e.buf, v) }

// PutBytes appends a compact length prefix followed by the raw bytes.
func (e *Encoder) PutBytes(b []byte) {
	e.buf = EncodeCompactUint64(e.buf, uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// Decoder consumes canonical bytes in the same order an Encoder wrote them.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps b for sequential decoding. b is not copied.
func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

// Remaining reports how many bytes are left to decode.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) takeFixed(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, ErrUnexpectedEOF
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// GetByte consumes a single raw byte.
func (d *Decoder) GetByte() (byte, error) {
	b, err := d.takeFixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// GetFixed consumes exactly n raw bytes.
func (d *Decoder) GetFixed(n int) ([]byte, error) { return d.takeFixed(n) }

// GetUint32 consumes a compact-encoded uint32.
func (d *Decoder) GetUint32() (uint32, error) {
	v, n, err := DecodeCompactUint64(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	if v > uint64(^uint32(0)) {
		return 0, ErrInvalidCompact
	}
	return uint32(v), nil
}

// GetUint64 consumes a compact-encoded uint64.
func (d *Decoder) GetUint64() (uint64, error) {
	v, n, err := DecodeCompactUint64(d.buf[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

// GetBytes consumes a compact length prefix followed by that many raw bytes.
func (d *Decoder) GetBytes() ([]byte, error) {
	n, err := d.GetUint64()
	if err != nil {
		return nil, err
	}
	if n > MaxBytesLen {
		return nil, ErrTooLarge
	}
	return d.takeFixed(int(n))
}

// EncodeCompactUint64 appends v to dst using the SCALE compact-integer
// layout: the two low bits of the first byte select a mode (single byte,
// two-byte, four-byte, or big-integer with an explicit byte count), and the
// remaining bits hold the value left-shifted into place.
func EncodeCompactUint64(dst []byte, v uint64) []byte {
	switch {
	case v < 1<<6:
		return append(dst, byte(v)<<2)
	case v < 1<<14:
		return binary.LittleEndian.AppendUint16(dst, uint16(v)<<2|0b01)
	case v < 1<<30:
		return binary.LittleEndian.AppendUint32(dst, uint32(v)<<2|0b10)
	default:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		n := 8
		for n > 1 && tmp[n-1] == 0 {
			n--
		}
		dst = append(dst, byte(n-4)<<2|0b11)
		return append(dst, tmp[:n]...)
	}
}

// DecodeCompactUint64 reads a compact integer from the front of b, returning
// the value and the number of bytes it occupied.
func DecodeCompactUint64(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrUnexpectedEOF
	}
	switch b[0] & 0b11 {
	case 0b00:
		return uint64(b[0] >> 2), 1, nil
	case 0b01:
		if len(b) < 2 {
			return 0, 0, ErrUnexpectedEOF
		}
		return uint64(binary.LittleEndian.Uint16(b) >> 2), 2, nil
	case 0b10:
		if len(b) < 4 {
			return 0, 0, ErrUnexpectedEOF
		}
		return uint64(binary.LittleEndian.Uint32(b) >> 2), 4, nil
	default:
		extraLen := int(b[0]>>2) + 4
		if len(b) < 1+extraLen {
			return 0, 0, ErrUnexpectedEOF
		}
		var tmp [8]byte
		copy(tmp[:], b[1:1+extraLen])
		return binary.LittleEndian.Uint64(tmp[:]), 1 + extraLen, nil
	}
}

// ReadAll is a convenience guard used by Decode* constructors: it returns an
// error if the decoder has unconsumed trailing bytes, catching truncated or
// over-long encodings early.
func ReadAll(d *Decoder) error {
	if d.Remaining() != 0 {
		return fmt.Errorf("codec: %d trailing bytes after decode", d.Remaining())
	}
	return nil
}
