package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// InitiateNegotiation opens a counter-offer chain between two parties.
// The address derives from the ordered pair alone, so at most one live
// chain exists per (initiator, counterparty).
type InitiateNegotiation struct {
	Initiator           keys.Pubkey `json:"initiator"`
	Counterparty        keys.Pubkey `json:"counterparty"`
	InitialOffer        uint64      `json:"initial_offer"`
	AutoAcceptThreshold uint64      `json:"auto_accept_threshold,omitempty"`
	Deadline            int64       `json:"deadline"`
	Terms               []string    `json:"terms,omitempty"`
}

func (c InitiateNegotiation) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Initiator); err != nil {
		return nil, err
	}
	if _, _, err := loadRegistry(tx, c.Initiator); err != nil {
		return nil, err
	}

	addr, bump, err := tx.FindAddress(state.NegotiationSeed, c.Initiator.Bytes(), c.Counterparty.Bytes())
	if err != nil {
		return nil, err
	}
	n := new(state.NegotiationChatbot)
	if err := n.Initialize(c.Initiator, c.Counterparty, c.InitialOffer, c.AutoAcceptThreshold,
		c.Deadline, c.Terms, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(addr, n); err != nil {
		return nil, err
	}
	tx.Emit(events.NegotiationInitiated{
		Negotiation: addr, Initiator: c.Initiator, Counterparty: c.Counterparty,
		Offer: c.InitialOffer, Deadline: c.Deadline, At: tx.Now(),
	})
	return created{Address: addr}, nil
}

type MakeCounterOffer struct {
	By          keys.Pubkey `json:"by"`
	Negotiation keys.Pubkey `json:"negotiation"`
	Offer       uint64      `json:"offer"`
}

func (c MakeCounterOffer) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.By); err != nil {
		return nil, err
	}
	n := new(state.NegotiationChatbot)
	if err := tx.Load(c.Negotiation, n); err != nil {
		return nil, err
	}
	if err := n.MakeCounterOffer(c.By, c.Offer, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Negotiation, n)
	tx.Emit(events.CounterOfferMade{Negotiation: c.Negotiation, By: c.By, Offer: c.Offer, At: tx.Now()})
	return created{Address: c.Negotiation}, nil
}

type AcceptOffer struct {
	By          keys.Pubkey `json:"by"`
	Negotiation keys.Pubkey `json:"negotiation"`
}

func (c AcceptOffer) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.By); err != nil {
		return nil, err
	}
	n := new(state.NegotiationChatbot)
	if err := tx.Load(c.Negotiation, n); err != nil {
		return nil, err
	}
	if err := n.Accept(c.By, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Negotiation, n)
	tx.Emit(events.NegotiationClosed{
		Negotiation: c.Negotiation, Status: n.Status.String(), FinalOffer: n.CurrentOffer, At: tx.Now(),
	})
	return created{Address: c.Negotiation}, nil
}

type RejectOffer struct {
	By          keys.Pubkey `json:"by"`
	Negotiation keys.Pubkey `json:"negotiation"`
}

func (c RejectOffer) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.By); err != nil {
		return nil, err
	}
	n := new(state.NegotiationChatbot)
	if err := tx.Load(c.Negotiation, n); err != nil {
		return nil, err
	}
	if err := n.Reject(c.By, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Negotiation, n)
	tx.Emit(events.NegotiationClosed{
		Negotiation: c.Negotiation, Status: n.Status.String(), FinalOffer: n.CurrentOffer, At: tx.Now(),
	})
	return created{Address: c.Negotiation}, nil
}

// CheckNegotiationExpiry is a permissionless sweep: any signer may
// expire an open chain past its deadline. Calling it twice, or on a
// closed chain, changes nothing.
type CheckNegotiationExpiry struct {
	Signer      keys.Pubkey `json:"signer"`
	Negotiation keys.Pubkey `json:"negotiation"`
}

func (c CheckNegotiationExpiry) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Signer); err != nil {
		return nil, err
	}
	n := new(state.NegotiationChatbot)
	if err := tx.Load(c.Negotiation, n); err != nil {
		return nil, err
	}
	if n.CheckExpiry(tx.Now()) {
		tx.Save(c.Negotiation, n)
		tx.Emit(events.NegotiationClosed{
			Negotiation: c.Negotiation, Status: n.Status.String(), FinalOffer: n.CurrentOffer, At: tx.Now(),
		})
	}
	return created{Address: c.Negotiation}, nil
}
