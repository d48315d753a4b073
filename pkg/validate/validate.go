// Package validate holds the shared validation primitives every handler
// runs before touching state. Limits mirror the protocol constants in
// the record catalog.
package validate

import (
	"math"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
)

// Protocol tunables. These are consensus-critical: changing one changes
// which transactions are valid.
const (
	MaxNameLength          = 64
	MaxGeneralStringLength = 256
	MaxTitleLength         = 100
	MaxDescriptionLength   = 512
	MaxMessageLength       = 1024
	MaxMetricsLength       = 256
	MaxIpfsHashLength      = 64
	MaxURLLength           = 256

	MaxCapabilitiesCount = 20
	MaxParticipantsCount = 50
	MaxRequirementsItems = 10
	MaxTagsCount         = 10
	MaxSkillsCount       = 20
	MaxDeliverables      = 5
	MaxEvidenceItems     = 10
	MaxVolumeTiers       = 5
	MaxTopAgents         = 10
	MaxCounterOffers     = 50
	MaxTermsCount        = 10

	MinPaymentAmount uint64 = 1_000
	MaxPaymentAmount uint64 = 1_000_000_000_000
	MinBidIncrement  uint64 = 100

	MinAuctionDuration int64 = 3_600     // 1 hour
	MaxAuctionDuration int64 = 2_592_000 // 30 days

	MaxAgentsPerUser         = 100
	MaxListingsPerAgent      = 50
	MaxWorkOrdersPerUser     = 100
	MaxChannelsPerUser       = 50
	MaxBidsPerAuctionPerUser = 50

	DisputeWindow int64 = 30 * 24 * 3_600 // 30 days

	DefaultRevenueShareBps  = 1_000 // 10%
	DefaultResaleRoyaltyBps = 500
)

// String rejects s when longer than max, with the supplied taxonomy code.
func String(s string, max int, code gserr.Code) error {
	if len(s) > max {
		return gserr.Newf(code, "length %d exceeds %d", len(s), max)
	}
	return nil
}

// StringSlice bounds both the element count and each element's length.
func StringSlice(ss []string, maxItems, maxLen int, countCode, lenCode gserr.Code) error {
	if len(ss) > maxItems {
		return gserr.Newf(countCode, "%d items exceeds %d", len(ss), maxItems)
	}
	for _, s := range ss {
		if err := String(s, maxLen, lenCode); err != nil {
			return err
		}
	}
	return nil
}

// Payment enforces the protocol payment band.
func Payment(amount uint64) error {
	if amount < MinPaymentAmount || amount > MaxPaymentAmount {
		return gserr.Newf(gserr.InvalidPaymentAmount, "amount %d outside [%d, %d]",
			amount, MinPaymentAmount, MaxPaymentAmount)
	}
	return nil
}

// FutureDeadline requires deadline strictly after now.
func FutureDeadline(now, deadline int64) error {
	if deadline <= now {
		return gserr.Newf(gserr.InvalidDeadline, "deadline %d not after %d", deadline, now)
	}
	return nil
}

// AuctionDuration bounds end-now to the protocol window.
func AuctionDuration(now, end int64) error {
	d := end - now
	if d < MinAuctionDuration || d > MaxAuctionDuration {
		return gserr.Newf(gserr.InvalidDuration, "duration %ds outside [%ds, %ds]",
			d, MinAuctionDuration, MaxAuctionDuration)
	}
	return nil
}

// Checked arithmetic. Overflow is always fatal to the transaction; it is
// never saturated on money or authority paths.

func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, gserr.New(gserr.ArithmeticOverflow)
	}
	return a + b, nil
}

func SubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, gserr.New(gserr.ArithmeticOverflow)
	}
	return a - b, nil
}

func MulU64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, gserr.New(gserr.ArithmeticOverflow)
	}
	return a * b, nil
}

func DivU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, gserr.New(gserr.DivisionByZero)
	}
	return a / b, nil
}

func AddU32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, gserr.New(gserr.ArithmeticOverflow)
	}
	return a + b, nil
}

func AddU16(a, b uint16) (uint16, error) {
	if a > math.MaxUint16-b {
		return 0, gserr.New(gserr.ArithmeticOverflow)
	}
	return a + b, nil
}

// SatAddU64 saturates instead of failing. Reserved for analytics totals
// where contention-induced reordering must not abort transactions.
func SatAddU64(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
