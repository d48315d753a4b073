package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

type NegotiationStatus uint8

const (
	NegotiationInitialOffer NegotiationStatus = iota
	NegotiationCounterOffer
	NegotiationAccepted
	NegotiationRejected
	NegotiationExpired
	NegotiationAutoAccepted
)

func (s NegotiationStatus) String() string {
	switch s {
	case NegotiationInitialOffer:
		return "initial_offer"
	case NegotiationCounterOffer:
		return "counter_offer"
	case NegotiationAccepted:
		return "accepted"
	case NegotiationRejected:
		return "rejected"
	case NegotiationExpired:
		return "expired"
	case NegotiationAutoAccepted:
		return "auto_accepted"
	}
	return "unknown"
}

// NegotiationChatbot is a two-party counter-offer chain persisted between
// transactions. The party whose offer is currently outstanding may not
// counter its own offer. AutoAcceptThreshold is recorded but consumed by
// no handler; automatic acceptance is an extension point.
type NegotiationChatbot struct {
	Initiator           keys.Pubkey
	Counterparty        keys.Pubkey
	InitialOffer        uint64
	CurrentOffer        uint64
	LastOfferBy         keys.Pubkey
	Status              NegotiationStatus
	Deadline            int64
	Terms               []string
	CounterOffers       []uint64
	AutoAcceptThreshold uint64
	CreatedAt           int64
	LastActivity        int64
	Bump                uint8
}

const NegotiationLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // initiator
	codec.PubkeyFieldLen + // counterparty
	codec.U64Len + // initial_offer
	codec.U64Len + // current_offer
	codec.PubkeyFieldLen + // last_offer_by
	codec.EnumTagLen + // status
	codec.I64Len + // deadline
	codec.U32Len + validate.MaxTermsCount*(codec.U32Len+validate.MaxGeneralStringLength) + // terms
	codec.U32Len + validate.MaxCounterOffers*codec.U64Len + // counter_offers
	codec.U64Len + // auto_accept_threshold
	codec.I64Len + // created_at
	codec.I64Len + // last_activity
	codec.U8Len // bump

func (n *NegotiationChatbot) Type() RecordType { return RecordNegotiation }

func (n *NegotiationChatbot) Initialize(initiator, counterparty keys.Pubkey, initialOffer, autoAcceptThreshold uint64, deadline int64, terms []string, now int64, bump uint8) error {
	if err := validate.FutureDeadline(now, deadline); err != nil {
		return err
	}
	if err := validate.StringSlice(terms, validate.MaxTermsCount, validate.MaxGeneralStringLength,
		gserr.TooManyTerms, gserr.TermTooLong); err != nil {
		return err
	}
	n.Initiator = initiator
	n.Counterparty = counterparty
	n.InitialOffer = initialOffer
	n.CurrentOffer = initialOffer
	n.LastOfferBy = initiator
	n.Status = NegotiationInitialOffer
	n.Deadline = deadline
	n.Terms = terms
	n.CounterOffers = nil
	n.AutoAcceptThreshold = autoAcceptThreshold
	n.CreatedAt = now
	n.LastActivity = now
	n.Bump = bump
	return nil
}

func (n *NegotiationChatbot) open() bool {
	return n.Status == NegotiationInitialOffer || n.Status == NegotiationCounterOffer
}

func (n *NegotiationChatbot) isParty(pk keys.Pubkey) bool {
	return pk == n.Initiator || pk == n.Counterparty
}

// MakeCounterOffer appends a counter from a party other than the one
// whose offer is outstanding.
func (n *NegotiationChatbot) MakeCounterOffer(by keys.Pubkey, offer uint64, now int64) error {
	if now >= n.Deadline {
		return gserr.New(gserr.NegotiationExpired)
	}
	if !n.open() {
		return gserr.Newf(gserr.InvalidNegotiationStatus, "status %s", n.Status)
	}
	if !n.isParty(by) {
		return gserr.New(gserr.UnauthorizedAccess)
	}
	if by == n.LastOfferBy {
		return gserr.Newf(gserr.InvalidNegotiationStatus, "own offer outstanding")
	}
	if len(n.CounterOffers) >= validate.MaxCounterOffers {
		return gserr.New(gserr.TooManyCounterOffers)
	}
	n.CounterOffers = append(n.CounterOffers, offer)
	n.CurrentOffer = offer
	n.LastOfferBy = by
	n.Status = NegotiationCounterOffer
	n.LastActivity = now
	return nil
}

// Accept closes the chain on the outstanding offer. Only the party who
// did not make the outstanding offer may accept.
func (n *NegotiationChatbot) Accept(by keys.Pubkey, now int64) error {
	if now >= n.Deadline {
		return gserr.New(gserr.NegotiationExpired)
	}
	if !n.open() {
		return gserr.Newf(gserr.InvalidNegotiationStatus, "status %s", n.Status)
	}
	if !n.isParty(by) {
		return gserr.New(gserr.UnauthorizedAccess)
	}
	if by == n.LastOfferBy {
		return gserr.Newf(gserr.InvalidNegotiationStatus, "cannot accept own offer")
	}
	n.Status = NegotiationAccepted
	n.LastActivity = now
	return nil
}

// Reject closes the chain. Either party may reject at any open state.
func (n *NegotiationChatbot) Reject(by keys.Pubkey, now int64) error {
	if !n.open() {
		return gserr.Newf(gserr.InvalidNegotiationStatus, "status %s", n.Status)
	}
	if !n.isParty(by) {
		return gserr.New(gserr.UnauthorizedAccess)
	}
	n.Status = NegotiationRejected
	n.LastActivity = now
	return nil
}

// CheckExpiry transitions an open chain past its deadline to Expired.
// Idempotent: calling it on an expired or closed chain changes nothing.
func (n *NegotiationChatbot) CheckExpiry(now int64) bool {
	if n.open() && now >= n.Deadline {
		n.Status = NegotiationExpired
		return true
	}
	return false
}

func (n *NegotiationChatbot) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordNegotiation)
	w.Pubkey(n.Initiator)
	w.Pubkey(n.Counterparty)
	w.U64(n.InitialOffer)
	w.U64(n.CurrentOffer)
	w.Pubkey(n.LastOfferBy)
	w.U8(uint8(n.Status))
	w.I64(n.Deadline)
	w.StringSlice(n.Terms)
	w.U64Slice(n.CounterOffers)
	w.U64(n.AutoAcceptThreshold)
	w.I64(n.CreatedAt)
	w.I64(n.LastActivity)
	w.U8(n.Bump)
	return w.Bytes()
}

func (n *NegotiationChatbot) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordNegotiation); err != nil {
		return err
	}
	n.Initiator = r.Pubkey()
	n.Counterparty = r.Pubkey()
	n.InitialOffer = r.U64()
	n.CurrentOffer = r.U64()
	n.LastOfferBy = r.Pubkey()
	n.Status = NegotiationStatus(r.U8())
	n.Deadline = r.I64()
	n.Terms = r.StringSlice()
	n.CounterOffers = r.U64Slice()
	n.AutoAcceptThreshold = r.U64()
	n.CreatedAt = r.I64()
	n.LastActivity = r.I64()
	n.Bump = r.U8()
	return r.Err()
}
