package validate

import (
	"math"
	"strings"
	"testing"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
)

func TestString(t *testing.T) {
	if err := String(strings.Repeat("x", MaxNameLength), MaxNameLength, gserr.NameTooLong); err != nil {
		t.Fatalf("at limit: %v", err)
	}
	err := String(strings.Repeat("x", MaxNameLength+1), MaxNameLength, gserr.NameTooLong)
	if !gserr.HasCode(err, gserr.NameTooLong) {
		t.Fatalf("over limit: %v", err)
	}
}

func TestStringSlice(t *testing.T) {
	ok := make([]string, MaxRequirementsItems)
	if err := StringSlice(ok, MaxRequirementsItems, MaxGeneralStringLength, gserr.TooManyRequirements, gserr.RequirementTooLong); err != nil {
		t.Fatalf("at limit: %v", err)
	}
	over := make([]string, MaxRequirementsItems+1)
	err := StringSlice(over, MaxRequirementsItems, MaxGeneralStringLength, gserr.TooManyRequirements, gserr.RequirementTooLong)
	if !gserr.HasCode(err, gserr.TooManyRequirements) {
		t.Fatalf("over count: %v", err)
	}
	err = StringSlice([]string{strings.Repeat("x", MaxGeneralStringLength+1)}, 5, MaxGeneralStringLength, gserr.TooManyRequirements, gserr.RequirementTooLong)
	if !gserr.HasCode(err, gserr.RequirementTooLong) {
		t.Fatalf("long element: %v", err)
	}
}

func TestPaymentBand(t *testing.T) {
	for _, amount := range []uint64{MinPaymentAmount, MaxPaymentAmount, 5_000_000} {
		if err := Payment(amount); err != nil {
			t.Fatalf("amount %d: %v", amount, err)
		}
	}
	for _, amount := range []uint64{0, MinPaymentAmount - 1, MaxPaymentAmount + 1} {
		if err := Payment(amount); !gserr.HasCode(err, gserr.InvalidPaymentAmount) {
			t.Fatalf("amount %d: %v", amount, err)
		}
	}
}

func TestFutureDeadline(t *testing.T) {
	now := int64(1_000)
	if err := FutureDeadline(now, now+1); err != nil {
		t.Fatalf("future: %v", err)
	}
	if err := FutureDeadline(now, now); !gserr.HasCode(err, gserr.InvalidDeadline) {
		t.Fatalf("equal: %v", err)
	}
}

func TestAuctionDuration(t *testing.T) {
	now := int64(1_000_000)
	if err := AuctionDuration(now, now+MinAuctionDuration); err != nil {
		t.Fatalf("min: %v", err)
	}
	if err := AuctionDuration(now, now+MaxAuctionDuration); err != nil {
		t.Fatalf("max: %v", err)
	}
	if err := AuctionDuration(now, now+MinAuctionDuration-1); !gserr.HasCode(err, gserr.InvalidDuration) {
		t.Fatalf("short: %v", err)
	}
	if err := AuctionDuration(now, now+MaxAuctionDuration+1); !gserr.HasCode(err, gserr.InvalidDuration) {
		t.Fatalf("long: %v", err)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if v, err := AddU64(math.MaxUint64-1, 1); err != nil || v != math.MaxUint64 {
		t.Fatalf("add at edge: %d, %v", v, err)
	}
	if _, err := AddU64(math.MaxUint64, 1); !gserr.HasCode(err, gserr.ArithmeticOverflow) {
		t.Fatalf("add overflow: %v", err)
	}
	if _, err := SubU64(1, 2); !gserr.HasCode(err, gserr.ArithmeticOverflow) {
		t.Fatalf("sub underflow: %v", err)
	}
	if _, err := MulU64(math.MaxUint64, 2); !gserr.HasCode(err, gserr.ArithmeticOverflow) {
		t.Fatalf("mul overflow: %v", err)
	}
	if _, err := DivU64(1, 0); !gserr.HasCode(err, gserr.DivisionByZero) {
		t.Fatalf("div zero: %v", err)
	}
	if v, err := DivU64(7, 2); err != nil || v != 3 {
		t.Fatalf("div: %d, %v", v, err)
	}
	if _, err := AddU32(math.MaxUint32, 1); !gserr.HasCode(err, gserr.ArithmeticOverflow) {
		t.Fatalf("add32 overflow: %v", err)
	}
	if _, err := AddU16(math.MaxUint16, 1); !gserr.HasCode(err, gserr.ArithmeticOverflow) {
		t.Fatalf("add16 overflow: %v", err)
	}
}

func TestSatAddU64(t *testing.T) {
	if v := SatAddU64(math.MaxUint64, 5); v != math.MaxUint64 {
		t.Fatalf("saturation: %d", v)
	}
	if v := SatAddU64(2, 3); v != 5 {
		t.Fatalf("plain add: %d", v)
	}
}
