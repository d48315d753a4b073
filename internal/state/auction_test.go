package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

func newAuction(t *testing.T, reserve uint64) *ServiceAuction {
	t.Helper()
	a := new(ServiceAuction)
	err := a.Initialize(pk(1), pk(2), 1, AuctionEnglish, 10_000, reserve,
		1_000+validate.MinAuctionDuration, 100, "", 1_000, 255)
	require.NoError(t, err)
	return a
}

func TestAuctionInitializeBounds(t *testing.T) {
	a := new(ServiceAuction)

	err := a.Initialize(pk(1), pk(2), 1, AuctionEnglish, 10_000, 0,
		1_000+validate.MinAuctionDuration-1, 100, "", 1_000, 255)
	require.True(t, gserr.HasCode(err, gserr.InvalidDuration))

	err = a.Initialize(pk(1), pk(2), 1, AuctionEnglish, 0, 0,
		1_000+validate.MinAuctionDuration, 100, "", 1_000, 255)
	require.True(t, gserr.HasCode(err, gserr.InvalidStartingPrice))

	err = a.Initialize(pk(1), pk(2), 1, AuctionEnglish, 10_000, 0,
		1_000+validate.MinAuctionDuration, validate.MinBidIncrement-1, "", 1_000, 255)
	require.True(t, gserr.HasCode(err, gserr.InvalidBid))
}

func TestAuctionBidLadder(t *testing.T) {
	a := newAuction(t, 10_000)

	// First bid must clear the starting price.
	err := a.PlaceBid(pk(3), 9_999, 1_100)
	require.True(t, gserr.HasCode(err, gserr.InvalidBid))
	require.NoError(t, a.PlaceBid(pk(3), 10_000, 1_100))

	// Next bid must clear current + increment.
	require.EqualValues(t, 10_100, a.MinimumBid())
	err = a.PlaceBid(pk(4), 10_050, 1_200)
	require.True(t, gserr.HasCode(err, gserr.InvalidBid))
	require.NoError(t, a.PlaceBid(pk(4), 10_100, 1_200))
	require.NoError(t, a.PlaceBid(pk(3), 10_200, 1_300))

	require.EqualValues(t, 10_200, a.CurrentBid)
	require.EqualValues(t, 3, a.TotalBids)
	require.Equal(t, pk(3), *a.CurrentBidder)

	// Only the latest bid is flagged winning.
	for i, b := range a.Bids {
		require.Equal(t, i == len(a.Bids)-1, b.IsWinning, "bid %d", i)
	}
}

func TestAuctionBidAfterEndTime(t *testing.T) {
	a := newAuction(t, 0)
	err := a.PlaceBid(pk(3), 10_000, a.EndTime)
	require.True(t, gserr.HasCode(err, gserr.AuctionEnded))
}

func TestAuctionEndIdempotent(t *testing.T) {
	a := newAuction(t, 0)
	require.NoError(t, a.PlaceBid(pk(3), 10_000, 1_100))

	err := a.End(a.EndTime - 1)
	require.True(t, gserr.HasCode(err, gserr.AuctionNotEnded))

	require.NoError(t, a.End(a.EndTime))
	require.Equal(t, AuctionEnded, a.Status)
	require.Equal(t, pk(3), *a.Winner)
	first := *a.EndedAt

	// Second End leaves the record as-is.
	require.NoError(t, a.End(a.EndTime+500))
	require.EqualValues(t, first, *a.EndedAt)
}

func TestAuctionSettleReserve(t *testing.T) {
	a := newAuction(t, 11_000)
	require.NoError(t, a.PlaceBid(pk(3), 10_500, 1_100))
	require.NoError(t, a.End(a.EndTime))
	require.NoError(t, a.Settle())
	require.Equal(t, AuctionCancelled, a.Status) // reserve not met

	b := newAuction(t, 11_000)
	require.NoError(t, b.PlaceBid(pk(3), 11_000, 1_100))
	require.NoError(t, b.End(b.EndTime))
	require.NoError(t, b.Settle())
	require.Equal(t, AuctionSettled, b.Status)
}

func TestAuctionCancelOnlyWithoutBids(t *testing.T) {
	a := newAuction(t, 0)
	require.NoError(t, a.PlaceBid(pk(3), 10_000, 1_100))
	err := a.Cancel(1_200)
	require.True(t, gserr.HasCode(err, gserr.CannotCancelWithBids))

	b := newAuction(t, 0)
	require.NoError(t, b.Cancel(1_200))
	require.Equal(t, AuctionCancelled, b.Status)
}

func TestAuctionPerBidderCap(t *testing.T) {
	a := newAuction(t, 0)
	amount := uint64(10_000)
	for i := 0; i < validate.MaxBidsPerAuctionPerUser; i++ {
		require.NoError(t, a.PlaceBid(pk(3), amount, 1_100+int64(i)))
		amount += a.MinBidIncrement
	}
	err := a.PlaceBid(pk(3), amount, 2_000)
	require.True(t, gserr.HasCode(err, gserr.TooManyBids))

	// A different bidder may still bid.
	require.NoError(t, a.PlaceBid(pk(4), amount, 2_001))
}
