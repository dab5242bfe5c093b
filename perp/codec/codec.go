// Package codec provides bit-exact little-endian encode/decode primitives
// for the fixed-layout account records spec.md §3 and §6.5 describe:
// every account begins with an 8-byte magic, i128 fields sit at 16-byte
// aligned offsets, and padding is explicit rather than implied by a
// struct-tag based marshaller. Hand-rolled cursor types (rather than
// reflection-driven (un)marshalling) keep every offset and pad byte
// auditable against the spec tables.
package codec

import (
	"encoding/binary"
	"fmt"

	"perpcore/crypto"
	"perpcore/perp/value"
)

// Writer appends fields to a fixed-capacity byte buffer in declaration
// order, matching the field order tables in spec.md §3.
type Writer struct {
	buf []byte
}

// NewWriter allocates a Writer with the given total record size pre-sized,
// so callers can catch a size mismatch by comparing Len() against the
// spec's fixed byte count before returning.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

// Pad appends n zero padding bytes.
func (w *Writer) Pad(n int) {
	w.buf = append(w.buf, make([]byte, n)...)
}

// FixedBytes appends exactly width bytes, zero-padding short input and
// truncating (never silently) -- a longer-than-width input panics since
// that indicates a caller bug, not a runtime condition.
func (w *Writer) FixedBytes(b []byte, width int) {
	if len(b) > width {
		panic(fmt.Sprintf("codec: value of length %d exceeds field width %d", len(b), width))
	}
	out := make([]byte, width)
	copy(out, b)
	w.buf = append(w.buf, out...)
}

func (w *Writer) Pubkey(p crypto.Pubkey) {
	w.buf = append(w.buf, p[:]...)
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

func (w *Writer) U16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) U32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) U64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// I128 writes the 16-byte little-endian two's-complement layout every
// signed 128-bit field uses (spec.md §3, §6.5).
func (w *Writer) I128(v value.I128) {
	le := v.LE16()
	w.buf = append(w.buf, le[:]...)
}

// U128 writes a non-negative 128-bit field (margin_held, im, mm) using the
// same layout as I128 since the wire format does not distinguish sign for
// values the schema guarantees are non-negative.
func (w *Writer) U128(v value.I128) {
	w.I128(v)
}

// Reader walks a fixed-layout byte slice in declaration order.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("codec: short read, need %d have %d", n, r.Remaining())
	}
	return nil
}

func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *Reader) FixedBytes(width int) ([]byte, error) {
	if err := r.need(width); err != nil {
		return nil, err
	}
	out := append([]byte(nil), r.buf[r.off:r.off+width]...)
	r.off += width
	return out, nil
}

func (r *Reader) Pubkey() (crypto.Pubkey, error) {
	b, err := r.FixedBytes(crypto.PubkeyLen)
	if err != nil {
		return crypto.Pubkey{}, err
	}
	return crypto.PubkeyFromBytes(b)
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) I128() (value.I128, error) {
	b, err := r.FixedBytes(16)
	if err != nil {
		return value.I128{}, err
	}
	var arr [16]byte
	copy(arr[:], b)
	return value.ParseLE16(arr), nil
}

func (r *Reader) U128() (value.I128, error) {
	return r.I128()
}

// CheckMagic reads len(want) bytes and verifies they match, returning a
// descriptive error naming both the expected and observed magic so a
// corrupted or mis-owned account is easy to diagnose.
func (r *Reader) CheckMagic(want []byte) error {
	got, err := r.FixedBytes(len(want))
	if err != nil {
		return err
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("codec: bad magic, want %q got %q", want, got)
		}
	}
	return nil
}
