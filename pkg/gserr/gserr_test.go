package gserr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeMatching(t *testing.T) {
	err := Newf(InvalidBid, "bid %d below minimum %d", 50, 100)
	if !errors.Is(err, New(InvalidBid)) {
		t.Fatalf("same code should match")
	}
	if errors.Is(err, New(AuctionEnded)) {
		t.Fatalf("different code should not match")
	}
	if CodeOf(err) != InvalidBid {
		t.Fatalf("CodeOf = %s", CodeOf(err))
	}
	if !HasCode(err, InvalidBid) {
		t.Fatalf("HasCode false")
	}
}

func TestWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(RateLimitExceeded))
	if CodeOf(err) != RateLimitExceeded {
		t.Fatalf("CodeOf through wrap = %s", CodeOf(err))
	}
}

func TestForeignError(t *testing.T) {
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("foreign error should carry no code")
	}
	if HasCode(nil, InvalidBid) {
		t.Fatalf("nil should carry no code")
	}
}

func TestMessageFormat(t *testing.T) {
	if got := New(InsufficientFunds).Error(); got != "INSUFFICIENT_FUNDS" {
		t.Fatalf("bare code = %q", got)
	}
	if got := Newf(InsufficientFunds, "balance %d", 7).Error(); got != "INSUFFICIENT_FUNDS: balance 7" {
		t.Fatalf("with message = %q", got)
	}
}
