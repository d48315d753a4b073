// Package codec implements the record wire format: little-endian integers,
// 4-byte u32 length prefixes for strings and vectors, a 1-byte tag for
// options (0/1) and enum variants. Record layouts on disk are an 8-byte
// type discriminator followed by fields in declaration order.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Writer accumulates an encoded record.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{buf: make([]byte, 0, 256)} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) I64(v int64)  { w.U64(uint64(v)) }

func (w *Writer) Pubkey(pk keys.Pubkey) { w.buf = append(w.buf, pk[:]...) }

func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) StringSlice(ss []string) {
	w.U32(uint32(len(ss)))
	for _, s := range ss {
		w.String(s)
	}
}

func (w *Writer) U64Slice(vs []uint64) {
	w.U32(uint32(len(vs)))
	for _, v := range vs {
		w.U64(v)
	}
}

func (w *Writer) PubkeySlice(pks []keys.Pubkey) {
	w.U32(uint32(len(pks)))
	for _, pk := range pks {
		w.Pubkey(pk)
	}
}

func (w *Writer) OptionI64(v *int64) {
	if v == nil {
		w.U8(0)
		return
	}
	w.U8(1)
	w.I64(*v)
}

func (w *Writer) OptionPubkey(v *keys.Pubkey) {
	if v == nil {
		w.U8(0)
		return
	}
	w.U8(1)
	w.Pubkey(*v)
}

func (w *Writer) OptionString(v *string) {
	if v == nil {
		w.U8(0)
		return
	}
	w.U8(1)
	w.String(*v)
}

// Reader decodes a record. Errors are sticky: once a read fails every
// subsequent read is a no-op returning zero values, and Err reports the
// first failure.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) Err() error { return r.err }

// Remaining reports how many undecoded bytes are left.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("codec: truncated input reading %s at offset %d", what, r.off)
	}
}

func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail(what)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1, "u8")
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.U8() != 0 }

func (r *Reader) U16() uint16 {
	b := r.take(2, "u16")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4, "u32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8, "u64")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) Pubkey() keys.Pubkey {
	var pk keys.Pubkey
	b := r.take(keys.PubkeyLen, "pubkey")
	if b != nil {
		copy(pk[:], b)
	}
	return pk
}

func (r *Reader) String() string {
	n := r.U32()
	if r.err != nil {
		return ""
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.fail("string")
		return ""
	}
	return string(r.take(int(n), "string"))
}

func (r *Reader) StringSlice() []string {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(r.Remaining()) { // each element needs >= 4 bytes
		r.fail("string slice")
		return nil
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		out = append(out, r.String())
	}
	return out
}

func (r *Reader) U64Slice() []uint64 {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > math.MaxInt32 || uint64(n)*8 > uint64(r.Remaining()) {
		r.fail("u64 slice")
		return nil
	}
	out := make([]uint64, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		out = append(out, r.U64())
	}
	return out
}

func (r *Reader) PubkeySlice() []keys.Pubkey {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if uint64(n)*keys.PubkeyLen > uint64(r.Remaining()) {
		r.fail("pubkey slice")
		return nil
	}
	out := make([]keys.Pubkey, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		out = append(out, r.Pubkey())
	}
	return out
}

func (r *Reader) OptionI64() *int64 {
	if r.U8() == 0 {
		return nil
	}
	v := r.I64()
	if r.err != nil {
		return nil
	}
	return &v
}

func (r *Reader) OptionPubkey() *keys.Pubkey {
	if r.U8() == 0 {
		return nil
	}
	v := r.Pubkey()
	if r.err != nil {
		return nil
	}
	return &v
}

func (r *Reader) OptionString() *string {
	if r.U8() == 0 {
		return nil
	}
	v := r.String()
	if r.err != nil {
		return nil
	}
	return &v
}

// Size helpers for LEN constants. A LEN is the serialized size of the
// largest legal inhabitant of the record type.

const (
	DiscriminatorLen = 8
	BoolLen          = 1
	U8Len            = 1
	U16Len           = 2
	U32Len           = 4
	U64Len           = 8
	I64Len           = 8
	PubkeyFieldLen   = keys.PubkeyLen
	OptionTagLen     = 1
	EnumTagLen       = 1
)

// StringLen is the reserved size of a string field with the given maximum.
func StringLen(max int) int { return U32Len + max }

// VecLen is the reserved size of a vector of count elements of elemLen each.
func VecLen(count, elemLen int) int { return U32Len + count*elemLen }

// OptionLen is the reserved size of an optional field of inner size.
func OptionLen(inner int) int { return OptionTagLen + inner }
