package codec

import (
	"bytes"
	"testing"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

func TestRoundTrip(t *testing.T) {
	pk := keys.MustParse("0101010101010101010101010101010101010101010101010101010101010101")
	deadline := int64(1_700_000_000)

	w := NewWriter()
	w.U8(7)
	w.Bool(true)
	w.U16(65_535)
	w.U32(1 << 30)
	w.U64(1 << 50)
	w.I64(-42)
	w.Pubkey(pk)
	w.String("hello")
	w.StringSlice([]string{"a", "bc", ""})
	w.U64Slice([]uint64{1, 2, 3})
	w.PubkeySlice([]keys.Pubkey{pk, pk})
	w.OptionI64(nil)
	w.OptionI64(&deadline)
	w.OptionPubkey(&pk)
	w.OptionString(nil)

	r := NewReader(w.Bytes())
	if got := r.U8(); got != 7 {
		t.Fatalf("u8 = %d", got)
	}
	if !r.Bool() {
		t.Fatalf("bool = false")
	}
	if got := r.U16(); got != 65_535 {
		t.Fatalf("u16 = %d", got)
	}
	if got := r.U32(); got != 1<<30 {
		t.Fatalf("u32 = %d", got)
	}
	if got := r.U64(); got != 1<<50 {
		t.Fatalf("u64 = %d", got)
	}
	if got := r.I64(); got != -42 {
		t.Fatalf("i64 = %d", got)
	}
	if got := r.Pubkey(); got != pk {
		t.Fatalf("pubkey = %s", got)
	}
	if got := r.String(); got != "hello" {
		t.Fatalf("string = %q", got)
	}
	ss := r.StringSlice()
	if len(ss) != 3 || ss[0] != "a" || ss[1] != "bc" || ss[2] != "" {
		t.Fatalf("string slice = %v", ss)
	}
	us := r.U64Slice()
	if len(us) != 3 || us[2] != 3 {
		t.Fatalf("u64 slice = %v", us)
	}
	ps := r.PubkeySlice()
	if len(ps) != 2 || ps[1] != pk {
		t.Fatalf("pubkey slice = %v", ps)
	}
	if got := r.OptionI64(); got != nil {
		t.Fatalf("none option = %v", *got)
	}
	if got := r.OptionI64(); got == nil || *got != deadline {
		t.Fatalf("some option = %v", got)
	}
	if got := r.OptionPubkey(); got == nil || *got != pk {
		t.Fatalf("option pubkey = %v", got)
	}
	if got := r.OptionString(); got != nil {
		t.Fatalf("none string = %q", *got)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("err = %v", err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("remaining = %d", r.Remaining())
	}
}

func TestLittleEndian(t *testing.T) {
	w := NewWriter()
	w.U32(0x01020304)
	if !bytes.Equal(w.Bytes(), []byte{4, 3, 2, 1}) {
		t.Fatalf("bytes = %v", w.Bytes())
	}
}

func TestStickyError(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_ = r.U64()
	if r.Err() == nil {
		t.Fatalf("expected truncation error")
	}
	first := r.Err()
	// Every later read is a no-op keeping the first error.
	if got := r.U32(); got != 0 {
		t.Fatalf("post-error read = %d", got)
	}
	if got := r.String(); got != "" {
		t.Fatalf("post-error string = %q", got)
	}
	if r.Err() != first {
		t.Fatalf("error replaced: %v", r.Err())
	}
}

func TestStringBoundsCheck(t *testing.T) {
	w := NewWriter()
	w.U32(1 << 31) // length prefix far beyond the buffer
	r := NewReader(w.Bytes())
	if got := r.String(); got != "" {
		t.Fatalf("string = %q", got)
	}
	if r.Err() == nil {
		t.Fatalf("expected bounds error")
	}
}

func TestSizeHelpers(t *testing.T) {
	if StringLen(64) != 68 {
		t.Fatalf("StringLen(64) = %d", StringLen(64))
	}
	if VecLen(10, 32) != 324 {
		t.Fatalf("VecLen(10,32) = %d", VecLen(10, 32))
	}
	if OptionLen(8) != 9 {
		t.Fatalf("OptionLen(8) = %d", OptionLen(8))
	}
}
