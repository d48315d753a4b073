// Package events defines the structured notifications emitted by
// committed transactions. Events are observational: replaying them must
// never be required to reconstruct record state.
package events

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Event is implemented by every notification type.
type Event interface {
	EventName() string
}

// Sink receives events from committed transactions.
type Sink interface {
	Publish(ev Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Buffer collects events in order, for tests and batch consumers.
type Buffer struct {
	Events []Event
}

func (b *Buffer) Publish(ev Event) { b.Events = append(b.Events, ev) }

// Fanout publishes to every sink in order.
type Fanout []Sink

func (f Fanout) Publish(ev Event) {
	for _, s := range f {
		s.Publish(ev)
	}
}

type AgentRegistered struct {
	Agent keys.Pubkey `json:"agent"`
	Owner keys.Pubkey `json:"owner"`
	Name  string      `json:"name"`
	At    int64       `json:"at"`
}

func (AgentRegistered) EventName() string { return "agent_registered" }

type AgentServiceUpdated struct {
	Agent    keys.Pubkey `json:"agent"`
	Endpoint string      `json:"endpoint"`
	Active   bool        `json:"active"`
	At       int64       `json:"at"`
}

func (AgentServiceUpdated) EventName() string { return "agent_service_updated" }

type AgentVerified struct {
	Agent     keys.Pubkey `json:"agent"`
	Verifier  keys.Pubkey `json:"verifier"`
	ExpiresAt int64       `json:"expires_at"`
	At        int64       `json:"at"`
}

func (AgentVerified) EventName() string { return "agent_verified" }

type AgentVerificationRevoked struct {
	Agent    keys.Pubkey `json:"agent"`
	Verifier keys.Pubkey `json:"verifier"`
	At       int64       `json:"at"`
}

func (AgentVerificationRevoked) EventName() string { return "agent_verification_revoked" }

type AgentReplicated struct {
	Template keys.Pubkey `json:"template"`
	Original keys.Pubkey `json:"original"`
	Replica  keys.Pubkey `json:"replica"`
	Owner    keys.Pubkey `json:"owner"`
	Fee      uint64      `json:"fee"`
	At       int64       `json:"at"`
}

func (AgentReplicated) EventName() string { return "agent_replicated" }

type WorkOrderCreated struct {
	WorkOrder keys.Pubkey `json:"work_order"`
	Client    keys.Pubkey `json:"client"`
	Provider  keys.Pubkey `json:"provider"`
	Amount    uint64      `json:"amount"`
	At        int64       `json:"at"`
}

func (WorkOrderCreated) EventName() string { return "work_order_created" }

// WorkOrderStatusChanged reports every pipeline transition with its
// from and to states.
type WorkOrderStatusChanged struct {
	WorkOrder keys.Pubkey `json:"work_order"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	At        int64       `json:"at"`
}

func (WorkOrderStatusChanged) EventName() string { return "work_order_status_changed" }

type EscrowFunded struct {
	WorkOrder keys.Pubkey `json:"work_order"`
	Client    keys.Pubkey `json:"client"`
	Amount    uint64      `json:"amount"`
	At        int64       `json:"at"`
}

func (EscrowFunded) EventName() string { return "escrow_funded" }

type WorkDeliverySubmitted struct {
	WorkOrder keys.Pubkey `json:"work_order"`
	Delivery  keys.Pubkey `json:"delivery"`
	Provider  keys.Pubkey `json:"provider"`
	At        int64       `json:"at"`
}

func (WorkDeliverySubmitted) EventName() string { return "work_delivery_submitted" }

type PaymentProcessed struct {
	Payment   keys.Pubkey `json:"payment"`
	WorkOrder keys.Pubkey `json:"work_order"`
	Payer     keys.Pubkey `json:"payer"`
	Recipient keys.Pubkey `json:"recipient"`
	Amount    uint64      `json:"amount"`
	At        int64       `json:"at"`
}

func (PaymentProcessed) EventName() string { return "payment_processed" }

type WorkOrderCancelled struct {
	WorkOrder keys.Pubkey `json:"work_order"`
	Refunded  uint64      `json:"refunded"`
	At        int64       `json:"at"`
}

func (WorkOrderCancelled) EventName() string { return "work_order_cancelled" }

type AuctionCreated struct {
	Auction       keys.Pubkey `json:"auction"`
	Agent         keys.Pubkey `json:"agent"`
	Creator       keys.Pubkey `json:"creator"`
	StartingPrice uint64      `json:"starting_price"`
	EndTime       int64       `json:"end_time"`
	At            int64       `json:"at"`
}

func (AuctionCreated) EventName() string { return "auction_created" }

type BidPlaced struct {
	Auction keys.Pubkey `json:"auction"`
	Bidder  keys.Pubkey `json:"bidder"`
	Amount  uint64      `json:"amount"`
	At      int64       `json:"at"`
}

func (BidPlaced) EventName() string { return "bid_placed" }

type AuctionEnded struct {
	Auction    keys.Pubkey  `json:"auction"`
	Winner     *keys.Pubkey `json:"winner,omitempty"`
	WinningBid uint64       `json:"winning_bid"`
	At         int64        `json:"at"`
}

func (AuctionEnded) EventName() string { return "auction_ended" }

type AuctionSettled struct {
	Auction keys.Pubkey  `json:"auction"`
	Winner  *keys.Pubkey `json:"winner,omitempty"`
	Amount  uint64       `json:"amount"`
	Met     bool         `json:"reserve_met"`
	At      int64        `json:"at"`
}

func (AuctionSettled) EventName() string { return "auction_settled" }

type AuctionCancelled struct {
	Auction keys.Pubkey `json:"auction"`
	At      int64       `json:"at"`
}

func (AuctionCancelled) EventName() string { return "auction_cancelled" }

type NegotiationInitiated struct {
	Negotiation  keys.Pubkey `json:"negotiation"`
	Initiator    keys.Pubkey `json:"initiator"`
	Counterparty keys.Pubkey `json:"counterparty"`
	Offer        uint64      `json:"offer"`
	Deadline     int64       `json:"deadline"`
	At           int64       `json:"at"`
}

func (NegotiationInitiated) EventName() string { return "negotiation_initiated" }

type CounterOfferMade struct {
	Negotiation keys.Pubkey `json:"negotiation"`
	By          keys.Pubkey `json:"by"`
	Offer       uint64      `json:"offer"`
	At          int64       `json:"at"`
}

func (CounterOfferMade) EventName() string { return "counter_offer_made" }

type NegotiationClosed struct {
	Negotiation keys.Pubkey `json:"negotiation"`
	Status      string      `json:"status"`
	FinalOffer  uint64      `json:"final_offer"`
	At          int64       `json:"at"`
}

func (NegotiationClosed) EventName() string { return "negotiation_closed" }

type DisputeFiled struct {
	Dispute     keys.Pubkey `json:"dispute"`
	Transaction keys.Pubkey `json:"transaction"`
	Complainant keys.Pubkey `json:"complainant"`
	Respondent  keys.Pubkey `json:"respondent"`
	At          int64       `json:"at"`
}

func (DisputeFiled) EventName() string { return "dispute_filed" }

type DisputeEvidenceAdded struct {
	Dispute   keys.Pubkey `json:"dispute"`
	Submitter keys.Pubkey `json:"submitter"`
	Count     int         `json:"count"`
	At        int64       `json:"at"`
}

func (DisputeEvidenceAdded) EventName() string { return "dispute_evidence_added" }

type DisputeResolved struct {
	Dispute    keys.Pubkey `json:"dispute"`
	Outcome    string      `json:"outcome"`
	ToProvider uint64      `json:"to_provider"`
	ToClient   uint64      `json:"to_client"`
	At         int64       `json:"at"`
}

func (DisputeResolved) EventName() string { return "dispute_resolved" }

type DisputeEscalated struct {
	Dispute keys.Pubkey `json:"dispute"`
	At      int64       `json:"at"`
}

func (DisputeEscalated) EventName() string { return "dispute_escalated" }

type ChannelCreated struct {
	Channel keys.Pubkey `json:"channel"`
	Creator keys.Pubkey `json:"creator"`
	At      int64       `json:"at"`
}

func (ChannelCreated) EventName() string { return "channel_created" }

type ChannelMessageSent struct {
	Channel keys.Pubkey `json:"channel"`
	Message keys.Pubkey `json:"message"`
	Sender  keys.Pubkey `json:"sender"`
	At      int64       `json:"at"`
}

func (ChannelMessageSent) EventName() string { return "channel_message_sent" }

type A2ASessionCreated struct {
	Session   keys.Pubkey `json:"session"`
	Initiator keys.Pubkey `json:"initiator"`
	Responder keys.Pubkey `json:"responder"`
	At        int64       `json:"at"`
}

func (A2ASessionCreated) EventName() string { return "a2a_session_created" }

type A2AMessageSent struct {
	Session keys.Pubkey `json:"session"`
	Message keys.Pubkey `json:"message"`
	Sender  keys.Pubkey `json:"sender"`
	At      int64       `json:"at"`
}

func (A2AMessageSent) EventName() string { return "a2a_message_sent" }
