package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

type AuctionType uint8

const (
	AuctionEnglish AuctionType = iota
	AuctionDutch
	AuctionSealedBid
	AuctionVickrey
)

type AuctionStatus uint8

const (
	AuctionActive AuctionStatus = iota
	AuctionEnded
	AuctionCancelled
	AuctionSettled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionCancelled:
		return "cancelled"
	case AuctionSettled:
		return "settled"
	}
	return "unknown"
}

// MaxBidsCount bounds the recorded bid history per auction.
const MaxBidsCount = 100

// AuctionBid is one recorded bid. Losing bids carry no escrow; the
// commitment is a soft promise enforced by reputation.
type AuctionBid struct {
	Bidder    keys.Pubkey
	Amount    uint64
	Timestamp int64
	IsWinning bool
}

const auctionBidLen = codec.PubkeyFieldLen + codec.U64Len + codec.I64Len + codec.BoolLen

// ServiceAuction is an English-style auction for an agent's service.
type ServiceAuction struct {
	Agent           keys.Pubkey
	Creator         keys.Pubkey
	AuctionID       uint64
	AuctionType     AuctionType
	StartingPrice   uint64
	ReservePrice    uint64
	CurrentBid      uint64
	CurrentBidder   *keys.Pubkey
	Winner          *keys.Pubkey
	EndTime         int64
	MinBidIncrement uint64
	TotalBids       uint32
	Status          AuctionStatus
	Bids            []AuctionBid
	CreatedAt       int64
	EndedAt         *int64
	MetadataURI     string
	Bump            uint8
}

const ServiceAuctionLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // agent
	codec.PubkeyFieldLen + // creator
	codec.U64Len + // auction_id
	codec.EnumTagLen + // auction_type
	codec.U64Len + // starting_price
	codec.U64Len + // reserve_price
	codec.U64Len + // current_bid
	codec.OptionTagLen + codec.PubkeyFieldLen + // current_bidder
	codec.OptionTagLen + codec.PubkeyFieldLen + // winner
	codec.I64Len + // end_time
	codec.U64Len + // min_bid_increment
	codec.U32Len + // total_bids
	codec.EnumTagLen + // status
	codec.U32Len + MaxBidsCount*auctionBidLen + // bids
	codec.I64Len + // created_at
	codec.OptionTagLen + codec.I64Len + // ended_at
	codec.U32Len + validate.MaxGeneralStringLength + // metadata_uri
	codec.U8Len // bump

func (a *ServiceAuction) Type() RecordType { return RecordServiceAuction }

func (a *ServiceAuction) Initialize(agent, creator keys.Pubkey, auctionID uint64, auctionType AuctionType, startingPrice, reservePrice uint64, endTime int64, minIncrement uint64, metadataURI string, now int64, bump uint8) error {
	if err := validate.AuctionDuration(now, endTime); err != nil {
		return err
	}
	if minIncrement < validate.MinBidIncrement {
		return gserr.Newf(gserr.InvalidBid, "increment %d below %d", minIncrement, validate.MinBidIncrement)
	}
	if startingPrice == 0 {
		return gserr.New(gserr.InvalidStartingPrice)
	}
	if err := validate.String(metadataURI, validate.MaxGeneralStringLength, gserr.MetadataUriTooLong); err != nil {
		return err
	}

	a.Agent = agent
	a.Creator = creator
	a.AuctionID = auctionID
	a.AuctionType = auctionType
	a.StartingPrice = startingPrice
	a.ReservePrice = reservePrice
	a.CurrentBid = 0
	a.CurrentBidder = nil
	a.Winner = nil
	a.EndTime = endTime
	a.MinBidIncrement = minIncrement
	a.TotalBids = 0
	a.Status = AuctionActive
	a.Bids = nil
	a.CreatedAt = now
	a.EndedAt = nil
	a.MetadataURI = metadataURI
	a.Bump = bump
	return nil
}

// MinimumBid is the smallest acceptable next bid: the starting price when
// no bid stands, otherwise the current high plus the increment.
func (a *ServiceAuction) MinimumBid() uint64 {
	if a.CurrentBidder == nil {
		return a.StartingPrice
	}
	return validate.SatAddU64(a.CurrentBid, a.MinBidIncrement)
}

func (a *ServiceAuction) bidsBy(bidder keys.Pubkey) int {
	n := 0
	for _, b := range a.Bids {
		if b.Bidder == bidder {
			n++
		}
	}
	return n
}

// PlaceBid records a strictly-increasing bid before end time.
func (a *ServiceAuction) PlaceBid(bidder keys.Pubkey, amount uint64, now int64) error {
	if a.Status != AuctionActive {
		return gserr.New(gserr.AuctionNotActive)
	}
	if now >= a.EndTime {
		return gserr.New(gserr.AuctionEnded)
	}
	if len(a.Bids) >= MaxBidsCount {
		return gserr.New(gserr.TooManyBids)
	}
	if a.bidsBy(bidder) >= validate.MaxBidsPerAuctionPerUser {
		return gserr.Newf(gserr.TooManyBids, "bidder cap %d reached", validate.MaxBidsPerAuctionPerUser)
	}
	if amount < a.MinimumBid() {
		return gserr.Newf(gserr.InvalidBid, "bid %d below minimum %d", amount, a.MinimumBid())
	}

	if n := len(a.Bids); n > 0 {
		a.Bids[n-1].IsWinning = false
	}
	a.Bids = append(a.Bids, AuctionBid{Bidder: bidder, Amount: amount, Timestamp: now, IsWinning: true})
	a.CurrentBid = amount
	b := bidder
	a.CurrentBidder = &b
	a.TotalBids++
	return nil
}

// End closes the auction at or after end time. Idempotent: ending an
// already-ended auction is a no-op.
func (a *ServiceAuction) End(now int64) error {
	if a.Status == AuctionEnded || a.Status == AuctionSettled {
		return nil
	}
	if a.Status != AuctionActive {
		return gserr.New(gserr.AuctionNotActive)
	}
	if now < a.EndTime {
		return gserr.New(gserr.AuctionNotEnded)
	}
	a.Status = AuctionEnded
	t := now
	a.EndedAt = &t
	a.Winner = a.CurrentBidder
	return nil
}

// Settle resolves an ended auction: Settled when the reserve was met,
// Cancelled otherwise.
func (a *ServiceAuction) Settle() error {
	if a.Status != AuctionEnded {
		return gserr.New(gserr.AuctionNotEnded)
	}
	if a.CurrentBid >= a.ReservePrice && a.Winner != nil {
		a.Status = AuctionSettled
	} else {
		a.Status = AuctionCancelled
	}
	return nil
}

// Cancel withdraws an auction that attracted no bids.
func (a *ServiceAuction) Cancel(now int64) error {
	if a.Status != AuctionActive {
		return gserr.New(gserr.AuctionNotActive)
	}
	if a.TotalBids > 0 {
		return gserr.New(gserr.CannotCancelWithBids)
	}
	a.Status = AuctionCancelled
	t := now
	a.EndedAt = &t
	return nil
}

func (a *ServiceAuction) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordServiceAuction)
	w.Pubkey(a.Agent)
	w.Pubkey(a.Creator)
	w.U64(a.AuctionID)
	w.U8(uint8(a.AuctionType))
	w.U64(a.StartingPrice)
	w.U64(a.ReservePrice)
	w.U64(a.CurrentBid)
	w.OptionPubkey(a.CurrentBidder)
	w.OptionPubkey(a.Winner)
	w.I64(a.EndTime)
	w.U64(a.MinBidIncrement)
	w.U32(a.TotalBids)
	w.U8(uint8(a.Status))
	w.U32(uint32(len(a.Bids)))
	for _, b := range a.Bids {
		w.Pubkey(b.Bidder)
		w.U64(b.Amount)
		w.I64(b.Timestamp)
		w.Bool(b.IsWinning)
	}
	w.I64(a.CreatedAt)
	w.OptionI64(a.EndedAt)
	w.String(a.MetadataURI)
	w.U8(a.Bump)
	return w.Bytes()
}

func (a *ServiceAuction) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordServiceAuction); err != nil {
		return err
	}
	a.Agent = r.Pubkey()
	a.Creator = r.Pubkey()
	a.AuctionID = r.U64()
	a.AuctionType = AuctionType(r.U8())
	a.StartingPrice = r.U64()
	a.ReservePrice = r.U64()
	a.CurrentBid = r.U64()
	a.CurrentBidder = r.OptionPubkey()
	a.Winner = r.OptionPubkey()
	a.EndTime = r.I64()
	a.MinBidIncrement = r.U64()
	a.TotalBids = r.U32()
	a.Status = AuctionStatus(r.U8())
	n := r.U32()
	if r.Err() == nil && uint64(n)*auctionBidLen <= uint64(r.Remaining()) {
		a.Bids = make([]AuctionBid, 0, n)
		for i := uint32(0); i < n; i++ {
			a.Bids = append(a.Bids, AuctionBid{
				Bidder:    r.Pubkey(),
				Amount:    r.U64(),
				Timestamp: r.I64(),
				IsWinning: r.Bool(),
			})
		}
	}
	a.CreatedAt = r.I64()
	a.EndedAt = r.OptionI64()
	a.MetadataURI = r.String()
	a.Bump = r.U8()
	return r.Err()
}
