// Package state is the record catalog: every persistent, typed unit of
// marketplace state with its deterministic seed tuple, reserved LEN,
// lifecycle transitions, and invariants.
package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
)

// RecordType is the 8-byte discriminator distinguishing record types
// within the program namespace. Written little-endian as the first field
// of every stored record.
type RecordType uint64

const (
	RecordAgent RecordType = iota + 1
	RecordAgentVerification
	RecordUserRegistry
	RecordWorkOrder
	RecordWorkDelivery
	RecordPayment
	RecordServiceAuction
	RecordNegotiation
	RecordDispute
	RecordChannel
	RecordChannelMessage
	RecordA2ASession
	RecordA2AMessage
	RecordA2AStatus
	RecordReplicationTemplate
	RecordReplicationRecord
	RecordMarketAnalytics
	RecordAgentAnalytics
)

func (t RecordType) String() string {
	switch t {
	case RecordAgent:
		return "agent"
	case RecordAgentVerification:
		return "agent_verification"
	case RecordUserRegistry:
		return "user_registry"
	case RecordWorkOrder:
		return "work_order"
	case RecordWorkDelivery:
		return "work_delivery"
	case RecordPayment:
		return "payment"
	case RecordServiceAuction:
		return "service_auction"
	case RecordNegotiation:
		return "negotiation"
	case RecordDispute:
		return "dispute"
	case RecordChannel:
		return "channel"
	case RecordChannelMessage:
		return "channel_message"
	case RecordA2ASession:
		return "a2a_session"
	case RecordA2AMessage:
		return "a2a_message"
	case RecordA2AStatus:
		return "a2a_status"
	case RecordReplicationTemplate:
		return "replication_template"
	case RecordReplicationRecord:
		return "replication_record"
	case RecordMarketAnalytics:
		return "market_analytics"
	case RecordAgentAnalytics:
		return "agent_analytics"
	}
	return "unknown"
}

// Record is implemented by every catalog entry.
type Record interface {
	Type() RecordType
	MarshalRecord() []byte
	UnmarshalRecord(b []byte) error
}

// Seed prefixes. The seed tuple determines uniqueness: an agent has at
// most one primary record because its only variable seed is the owner.
var (
	AgentSeed               = []byte("agent")
	AgentVerificationSeed   = []byte("agent_verification")
	UserRegistrySeed        = []byte("user_registry")
	WorkOrderSeed           = []byte("work_order")
	WorkDeliverySeed        = []byte("work_delivery")
	PaymentSeed             = []byte("payment")
	EscrowSeed              = []byte("escrow")
	ServiceAuctionSeed      = []byte("service_auction")
	NegotiationSeed         = []byte("negotiation")
	DisputeSeed             = []byte("dispute")
	ChannelSeed             = []byte("channel")
	ChannelMessageSeed      = []byte("channel_message")
	A2ASessionSeed          = []byte("a2a_session")
	A2AMessageSeed          = []byte("a2a_message")
	A2AStatusSeed           = []byte("a2a_status")
	ReplicationTemplateSeed = []byte("replication_template")
	ReplicationRecordSeed   = []byte("replication_record")
	MarketAnalyticsSeed     = []byte("market_analytics")
	AgentAnalyticsSeed      = []byte("agent_analytics")
)

// NewRecord returns an empty record of the given type, for generic
// decoding paths like the query API.
func NewRecord(t RecordType) (Record, error) {
	switch t {
	case RecordAgent:
		return &Agent{}, nil
	case RecordAgentVerification:
		return &AgentVerification{}, nil
	case RecordUserRegistry:
		return &UserRegistry{}, nil
	case RecordWorkOrder:
		return &WorkOrder{}, nil
	case RecordWorkDelivery:
		return &WorkDelivery{}, nil
	case RecordPayment:
		return &Payment{}, nil
	case RecordServiceAuction:
		return &ServiceAuction{}, nil
	case RecordNegotiation:
		return &NegotiationChatbot{}, nil
	case RecordDispute:
		return &DisputeCase{}, nil
	case RecordChannel:
		return &Channel{}, nil
	case RecordChannelMessage:
		return &ChannelMessage{}, nil
	case RecordA2ASession:
		return &A2ASession{}, nil
	case RecordA2AMessage:
		return &A2AMessage{}, nil
	case RecordA2AStatus:
		return &A2AStatus{}, nil
	case RecordReplicationTemplate:
		return &ReplicationTemplate{}, nil
	case RecordReplicationRecord:
		return &ReplicationRecord{}, nil
	case RecordMarketAnalytics:
		return &MarketAnalytics{}, nil
	case RecordAgentAnalytics:
		return &AgentAnalytics{}, nil
	}
	return nil, gserr.Newf(gserr.InvalidAccount, "unknown record type %d", t)
}

// ParseRecordType resolves a type by its wire name.
func ParseRecordType(name string) (RecordType, error) {
	for t := RecordAgent; t <= RecordAgentAnalytics; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, gserr.Newf(gserr.InvalidValue, "unknown record type %q", name)
}

func writeDiscriminator(w *codec.Writer, t RecordType) {
	w.U64(uint64(t))
}

func readDiscriminator(r *codec.Reader, want RecordType) error {
	got := RecordType(r.U64())
	if err := r.Err(); err != nil {
		return err
	}
	if got != want {
		return gserr.Newf(gserr.InvalidAccount, "record discriminator %d, want %d (%s)", got, want, want)
	}
	return nil
}
