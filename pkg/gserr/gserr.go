// Package gserr is the flat error taxonomy surfaced by every command
// handler. A handler either commits or aborts with exactly one of these
// codes and zero state change.
package gserr

import (
	"errors"
	"fmt"
)

type Code string

const (
	// Authority.
	UnauthorizedAccess Code = "UNAUTHORIZED_ACCESS"
	InvalidSigner      Code = "INVALID_SIGNER"

	// Accounts and addressing.
	InvalidAccount            Code = "INVALID_ACCOUNT"
	AccountAlreadyInitialized Code = "ACCOUNT_ALREADY_INITIALIZED"
	AccountNotInitialized     Code = "ACCOUNT_NOT_INITIALIZED"

	// Input validation.
	NameTooLong            Code = "NAME_TOO_LONG"
	DescriptionTooLong     Code = "DESCRIPTION_TOO_LONG"
	InputTooLong           Code = "INPUT_TOO_LONG"
	StringTooLong          Code = "STRING_TOO_LONG"
	TitleTooLong           Code = "TITLE_TOO_LONG"
	CapabilityTooLong      Code = "CAPABILITY_TOO_LONG"
	RequirementTooLong     Code = "REQUIREMENT_TOO_LONG"
	TermTooLong            Code = "TERM_TOO_LONG"
	IpfsHashTooLong        Code = "IPFS_HASH_TOO_LONG"
	MetadataUriTooLong     Code = "METADATA_URI_TOO_LONG"
	MessageTooLong         Code = "MESSAGE_TOO_LONG"
	MetricsTooLong         Code = "METRICS_TOO_LONG"
	TooManyCapabilities    Code = "TOO_MANY_CAPABILITIES"
	TooManyRequirements    Code = "TOO_MANY_REQUIREMENTS"
	TooManyTerms           Code = "TOO_MANY_TERMS"
	TooManyDeliverables    Code = "TOO_MANY_DELIVERABLES"
	TooManyEvidenceItems   Code = "TOO_MANY_EVIDENCE_ITEMS"
	TooManyVolumeTiers     Code = "TOO_MANY_VOLUME_TIERS"
	TooManyTopAgents       Code = "TOO_MANY_TOP_AGENTS"
	TooManyCounterOffers   Code = "TOO_MANY_COUNTER_OFFERS"
	TooManyParticipants    Code = "TOO_MANY_PARTICIPANTS"
	TooManyBids            Code = "TOO_MANY_BIDS"
	NoDeliverables         Code = "NO_DELIVERABLES"
	InvalidGenomeHash      Code = "INVALID_GENOME_HASH"
	InvalidServiceEndpoint Code = "INVALID_SERVICE_ENDPOINT"
	InvalidMetadataUri     Code = "INVALID_METADATA_URI"

	// Economic.
	InvalidPaymentAmount      Code = "INVALID_PAYMENT_AMOUNT"
	InvalidValue              Code = "INVALID_VALUE"
	InvalidVolume             Code = "INVALID_VOLUME"
	InvalidDiscountPercentage Code = "INVALID_DISCOUNT_PERCENTAGE"
	InvalidDuration           Code = "INVALID_DURATION"
	InvalidExpiration         Code = "INVALID_EXPIRATION"
	InvalidStartingPrice      Code = "INVALID_STARTING_PRICE"
	ArithmeticOverflow        Code = "ARITHMETIC_OVERFLOW"
	DivisionByZero            Code = "DIVISION_BY_ZERO"
	InsufficientFunds         Code = "INSUFFICIENT_FUNDS"

	// State machines.
	InvalidWorkOrderStatus   Code = "INVALID_WORK_ORDER_STATUS"
	InvalidApplicationStatus Code = "INVALID_APPLICATION_STATUS"
	InvalidNegotiationStatus Code = "INVALID_NEGOTIATION_STATUS"
	InvalidDisputeStatus     Code = "INVALID_DISPUTE_STATUS"
	NegotiationExpired       Code = "NEGOTIATION_EXPIRED"
	AgentNotActive           Code = "AGENT_NOT_ACTIVE"
	AgentAlreadyActive       Code = "AGENT_ALREADY_ACTIVE"
	OverlappingVolumeTiers   Code = "OVERLAPPING_VOLUME_TIERS"
	InvalidVolumeTier        Code = "INVALID_VOLUME_TIER"
	InvalidPeriod            Code = "INVALID_PERIOD"
	InvalidDeadline          Code = "INVALID_DEADLINE"
	InvalidResolution        Code = "INVALID_RESOLUTION"
	DisputeWindowClosed      Code = "DISPUTE_WINDOW_CLOSED"
	ReplicationNotAllowed    Code = "REPLICATION_NOT_ALLOWED"

	// Auctions.
	InvalidBid           Code = "INVALID_BID"
	AuctionNotActive     Code = "AUCTION_NOT_ACTIVE"
	AuctionEnded         Code = "AUCTION_ENDED"
	AuctionNotEnded      Code = "AUCTION_NOT_ENDED"
	CannotCancelWithBids Code = "CANNOT_CANCEL_WITH_BIDS"

	// Rate limiting.
	RateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
)

// Error carries one taxonomy code plus a human-readable message. Codes,
// not messages, are the contract with callers.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code) *Error { return &Error{Code: code} }

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Is makes errors.Is(err, gserr.New(code)) match on code alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// CodeOf extracts the taxonomy code from err, or "" if err is not ours.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool { return CodeOf(err) == code }
