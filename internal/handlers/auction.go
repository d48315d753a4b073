package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/address"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// CreateServiceAuction lists an active agent's service for bidding.
// When StartingPrice is zero the reserve doubles as the opening floor.
type CreateServiceAuction struct {
	Creator         keys.Pubkey       `json:"creator"`
	Agent           keys.Pubkey       `json:"agent"`
	AuctionID       uint64            `json:"auction_id"`
	AuctionType     state.AuctionType `json:"auction_type"`
	StartingPrice   uint64            `json:"starting_price,omitempty"`
	ReservePrice    uint64            `json:"reserve_price"`
	EndTime         int64             `json:"end_time"`
	MinBidIncrement uint64            `json:"min_bid_increment"`
	MetadataURI     string            `json:"metadata_uri,omitempty"`
}

func (c CreateServiceAuction) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Creator); err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	if err := tx.Load(c.Agent, agent); err != nil {
		return nil, err
	}
	if agent.Owner != c.Creator {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not the agent owner")
	}
	if !agent.IsActive {
		return nil, gserr.New(gserr.AgentNotActive)
	}

	reg, regAddr, err := loadRegistry(tx, c.Creator)
	if err != nil {
		return nil, err
	}
	if err := reg.IncrementListings(); err != nil {
		return nil, err
	}

	starting := c.StartingPrice
	if starting == 0 {
		starting = c.ReservePrice
	}
	addr, bump, err := tx.FindAddress(state.ServiceAuctionSeed, c.Agent.Bytes(), address.U64Seed(c.AuctionID))
	if err != nil {
		return nil, err
	}
	a := new(state.ServiceAuction)
	if err := a.Initialize(c.Agent, c.Creator, c.AuctionID, c.AuctionType, starting, c.ReservePrice,
		c.EndTime, c.MinBidIncrement, c.MetadataURI, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(addr, a); err != nil {
		return nil, err
	}
	tx.Save(regAddr, reg)
	tx.Emit(events.AuctionCreated{
		Auction: addr, Agent: c.Agent, Creator: c.Creator,
		StartingPrice: starting, EndTime: c.EndTime, At: tx.Now(),
	})
	return created{Address: addr}, nil
}

type PlaceAuctionBid struct {
	Bidder  keys.Pubkey `json:"bidder"`
	Auction keys.Pubkey `json:"auction"`
	Amount  uint64      `json:"amount"`
}

func (c PlaceAuctionBid) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Bidder); err != nil {
		return nil, err
	}
	a := new(state.ServiceAuction)
	if err := tx.Load(c.Auction, a); err != nil {
		return nil, err
	}
	if c.Bidder == a.Creator {
		return nil, gserr.Newf(gserr.InvalidBid, "creator cannot bid")
	}
	if err := a.PlaceBid(c.Bidder, c.Amount, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Auction, a)
	tx.Emit(events.BidPlaced{Auction: c.Auction, Bidder: c.Bidder, Amount: c.Amount, At: tx.Now()})
	return created{Address: c.Auction}, nil
}

// EndAuction closes bidding once end time has passed. Permissionless
// and idempotent, so keepers can race without harm.
type EndAuction struct {
	Signer  keys.Pubkey `json:"signer"`
	Auction keys.Pubkey `json:"auction"`
}

func (c EndAuction) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Signer); err != nil {
		return nil, err
	}
	a := new(state.ServiceAuction)
	if err := tx.Load(c.Auction, a); err != nil {
		return nil, err
	}
	already := a.Status == state.AuctionEnded || a.Status == state.AuctionSettled
	if err := a.End(tx.Now()); err != nil {
		return nil, err
	}
	if !already {
		tx.Save(c.Auction, a)
		tx.Emit(events.AuctionEnded{Auction: c.Auction, Winner: a.Winner, WinningBid: a.CurrentBid, At: tx.Now()})
	}
	return created{Address: c.Auction}, nil
}

// SettleAuction resolves an ended auction against its reserve. The
// winning commitment is settled economically through a follow-up work
// order; losing bids never held funds.
type SettleAuction struct {
	Creator keys.Pubkey `json:"creator"`
	Auction keys.Pubkey `json:"auction"`
}

func (c SettleAuction) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Creator); err != nil {
		return nil, err
	}
	a := new(state.ServiceAuction)
	if err := tx.Load(c.Auction, a); err != nil {
		return nil, err
	}
	if a.Creator != c.Creator {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not the auction creator")
	}
	if err := a.Settle(); err != nil {
		return nil, err
	}
	tx.Save(c.Auction, a)
	tx.Emit(events.AuctionSettled{
		Auction: c.Auction, Winner: a.Winner, Amount: a.CurrentBid,
		Met: a.Status == state.AuctionSettled, At: tx.Now(),
	})
	return created{Address: c.Auction}, nil
}

// CancelAuction withdraws a bidless listing.
type CancelAuction struct {
	Creator keys.Pubkey `json:"creator"`
	Auction keys.Pubkey `json:"auction"`
}

func (c CancelAuction) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Creator); err != nil {
		return nil, err
	}
	a := new(state.ServiceAuction)
	if err := tx.Load(c.Auction, a); err != nil {
		return nil, err
	}
	if a.Creator != c.Creator {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not the auction creator")
	}
	if err := a.Cancel(tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Auction, a)
	tx.Emit(events.AuctionCancelled{Auction: c.Auction, At: tx.Now()})
	return created{Address: c.Auction}, nil
}
