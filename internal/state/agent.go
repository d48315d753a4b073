package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// PricingModel selects how an agent charges for its services.
type PricingModel uint8

const (
	PricingFixed PricingModel = iota
	PricingHourly
	PricingPerTask
	PricingSubscription
	PricingAuction
	PricingDynamic
	PricingRevenueShare
	PricingTiered
)

func (m PricingModel) Valid() bool { return m <= PricingTiered }

// Agent is the primary identity record of an autonomous service provider.
// Reputation is stored in basis points and may only be adjusted by the
// work-order completion and dispute-resolution handlers.
type Agent struct {
	Owner                 keys.Pubkey
	Name                  string
	Description           string
	Capabilities          []string
	Pricing               PricingModel
	ReputationScore       uint32
	TotalJobsCompleted    uint32
	TotalEarnings         uint64
	IsActive              bool
	CreatedAt             int64
	UpdatedAt             int64
	OriginalPrice         uint64
	GenomeHash            string
	IsReplicable          bool
	ReplicationFee        uint64
	ServiceEndpoint       string
	IsVerified            bool
	VerificationTimestamp int64
	MetadataURI           string
	Bump                  uint8
}

const AgentLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // owner
	codec.U32Len + validate.MaxNameLength + // name
	codec.U32Len + validate.MaxGeneralStringLength + // description
	codec.U32Len + validate.MaxCapabilitiesCount*(codec.U32Len+validate.MaxGeneralStringLength) + // capabilities
	codec.EnumTagLen + // pricing model
	codec.U32Len + // reputation_score
	codec.U32Len + // total_jobs_completed
	codec.U64Len + // total_earnings
	codec.BoolLen + // is_active
	codec.I64Len + // created_at
	codec.I64Len + // updated_at
	codec.U64Len + // original_price
	codec.U32Len + validate.MaxGeneralStringLength + // genome_hash
	codec.BoolLen + // is_replicable
	codec.U64Len + // replication_fee
	codec.U32Len + validate.MaxGeneralStringLength + // service_endpoint
	codec.BoolLen + // is_verified
	codec.I64Len + // verification_timestamp
	codec.U32Len + validate.MaxGeneralStringLength + // metadata_uri
	codec.U8Len // bump

func (a *Agent) Type() RecordType { return RecordAgent }

// Initialize sets up a freshly registered agent. Counters start at zero,
// the agent is active and unverified.
func (a *Agent) Initialize(owner keys.Pubkey, name, description string, pricing PricingModel, metadataURI string, now int64, bump uint8) error {
	if err := validate.String(name, validate.MaxNameLength, gserr.NameTooLong); err != nil {
		return err
	}
	if err := validate.String(description, validate.MaxGeneralStringLength, gserr.DescriptionTooLong); err != nil {
		return err
	}
	if err := validate.String(metadataURI, validate.MaxGeneralStringLength, gserr.MetadataUriTooLong); err != nil {
		return err
	}
	if !pricing.Valid() {
		return gserr.Newf(gserr.InvalidValue, "unknown pricing model %d", pricing)
	}

	a.Owner = owner
	a.Name = name
	a.Description = description
	a.Capabilities = nil
	a.Pricing = pricing
	a.ReputationScore = 0
	a.TotalJobsCompleted = 0
	a.TotalEarnings = 0
	a.IsActive = true
	a.CreatedAt = now
	a.UpdatedAt = now
	a.OriginalPrice = 0
	a.GenomeHash = ""
	a.IsReplicable = false
	a.ReplicationFee = 0
	a.ServiceEndpoint = ""
	a.IsVerified = false
	a.VerificationTimestamp = 0
	a.MetadataURI = metadataURI
	a.Bump = bump
	return nil
}

func (a *Agent) Deactivate(now int64) error {
	if !a.IsActive {
		return gserr.New(gserr.AgentNotActive)
	}
	a.IsActive = false
	a.UpdatedAt = now
	return nil
}

func (a *Agent) Activate(now int64) error {
	if a.IsActive {
		return gserr.New(gserr.AgentAlreadyActive)
	}
	a.IsActive = true
	a.UpdatedAt = now
	return nil
}

// UpdateService changes the agent's advertised endpoint and active flag.
func (a *Agent) UpdateService(endpoint string, active bool, now int64) error {
	if err := validate.String(endpoint, validate.MaxGeneralStringLength, gserr.InvalidServiceEndpoint); err != nil {
		return err
	}
	a.ServiceEndpoint = endpoint
	a.IsActive = active
	a.UpdatedAt = now
	return nil
}

// AddReputation credits basis points, checked. Reserved for the payment
// and dispute handlers.
func (a *Agent) AddReputation(points uint32, now int64) error {
	v, err := validate.AddU32(a.ReputationScore, points)
	if err != nil {
		return err
	}
	a.ReputationScore = v
	a.UpdatedAt = now
	return nil
}

// CreditEarnings adds a released payment to lifetime earnings and bumps
// the completed-job counter, both checked.
func (a *Agent) CreditEarnings(amount uint64, now int64) error {
	earnings, err := validate.AddU64(a.TotalEarnings, amount)
	if err != nil {
		return err
	}
	jobs, err := validate.AddU32(a.TotalJobsCompleted, 1)
	if err != nil {
		return err
	}
	a.TotalEarnings = earnings
	a.TotalJobsCompleted = jobs
	a.UpdatedAt = now
	return nil
}

// Validate re-checks the record's bounded-field invariants.
func (a *Agent) Validate() error {
	if err := validate.String(a.Name, validate.MaxNameLength, gserr.NameTooLong); err != nil {
		return err
	}
	if err := validate.String(a.Description, validate.MaxGeneralStringLength, gserr.DescriptionTooLong); err != nil {
		return err
	}
	if err := validate.StringSlice(a.Capabilities, validate.MaxCapabilitiesCount, validate.MaxGeneralStringLength,
		gserr.TooManyCapabilities, gserr.CapabilityTooLong); err != nil {
		return err
	}
	if err := validate.String(a.GenomeHash, validate.MaxGeneralStringLength, gserr.InvalidGenomeHash); err != nil {
		return err
	}
	if err := validate.String(a.ServiceEndpoint, validate.MaxGeneralStringLength, gserr.InvalidServiceEndpoint); err != nil {
		return err
	}
	return validate.String(a.MetadataURI, validate.MaxGeneralStringLength, gserr.InvalidMetadataUri)
}

func (a *Agent) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordAgent)
	w.Pubkey(a.Owner)
	w.String(a.Name)
	w.String(a.Description)
	w.StringSlice(a.Capabilities)
	w.U8(uint8(a.Pricing))
	w.U32(a.ReputationScore)
	w.U32(a.TotalJobsCompleted)
	w.U64(a.TotalEarnings)
	w.Bool(a.IsActive)
	w.I64(a.CreatedAt)
	w.I64(a.UpdatedAt)
	w.U64(a.OriginalPrice)
	w.String(a.GenomeHash)
	w.Bool(a.IsReplicable)
	w.U64(a.ReplicationFee)
	w.String(a.ServiceEndpoint)
	w.Bool(a.IsVerified)
	w.I64(a.VerificationTimestamp)
	w.String(a.MetadataURI)
	w.U8(a.Bump)
	return w.Bytes()
}

func (a *Agent) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordAgent); err != nil {
		return err
	}
	a.Owner = r.Pubkey()
	a.Name = r.String()
	a.Description = r.String()
	a.Capabilities = r.StringSlice()
	a.Pricing = PricingModel(r.U8())
	a.ReputationScore = r.U32()
	a.TotalJobsCompleted = r.U32()
	a.TotalEarnings = r.U64()
	a.IsActive = r.Bool()
	a.CreatedAt = r.I64()
	a.UpdatedAt = r.I64()
	a.OriginalPrice = r.U64()
	a.GenomeHash = r.String()
	a.IsReplicable = r.Bool()
	a.ReplicationFee = r.U64()
	a.ServiceEndpoint = r.String()
	a.IsVerified = r.Bool()
	a.VerificationTimestamp = r.I64()
	a.MetadataURI = r.String()
	a.Bump = r.U8()
	return r.Err()
}

// AgentVerification is created by a third-party verifier and expires.
type AgentVerification struct {
	Agent         keys.Pubkey
	Verifier      keys.Pubkey
	Endpoint      string
	CapabilityIDs []uint64
	VerifiedAt    int64
	CreatedAt     int64
	ExpiresAt     int64
	IsActive      bool
	Bump          uint8
}

const AgentVerificationLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // agent
	codec.PubkeyFieldLen + // verifier
	codec.U32Len + validate.MaxGeneralStringLength + // endpoint
	codec.U32Len + validate.MaxCapabilitiesCount*codec.U64Len + // capability ids
	codec.I64Len + // verified_at
	codec.I64Len + // created_at
	codec.I64Len + // expires_at
	codec.BoolLen + // is_active
	codec.U8Len // bump

func (v *AgentVerification) Type() RecordType { return RecordAgentVerification }

func (v *AgentVerification) Initialize(agent, verifier keys.Pubkey, endpoint string, capabilityIDs []uint64, expiresAt, now int64, bump uint8) error {
	if err := validate.String(endpoint, validate.MaxGeneralStringLength, gserr.InvalidServiceEndpoint); err != nil {
		return err
	}
	if len(capabilityIDs) > validate.MaxCapabilitiesCount {
		return gserr.New(gserr.TooManyCapabilities)
	}
	if expiresAt <= now {
		return gserr.New(gserr.InvalidExpiration)
	}
	v.Agent = agent
	v.Verifier = verifier
	v.Endpoint = endpoint
	v.CapabilityIDs = capabilityIDs
	v.VerifiedAt = now
	v.CreatedAt = now
	v.ExpiresAt = expiresAt
	v.IsActive = true
	v.Bump = bump
	return nil
}

func (v *AgentVerification) IsValid(now int64) bool {
	return v.IsActive && now < v.ExpiresAt
}

func (v *AgentVerification) Revoke() { v.IsActive = false }

func (v *AgentVerification) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordAgentVerification)
	w.Pubkey(v.Agent)
	w.Pubkey(v.Verifier)
	w.String(v.Endpoint)
	w.U64Slice(v.CapabilityIDs)
	w.I64(v.VerifiedAt)
	w.I64(v.CreatedAt)
	w.I64(v.ExpiresAt)
	w.Bool(v.IsActive)
	w.U8(v.Bump)
	return w.Bytes()
}

func (v *AgentVerification) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordAgentVerification); err != nil {
		return err
	}
	v.Agent = r.Pubkey()
	v.Verifier = r.Pubkey()
	v.Endpoint = r.String()
	v.CapabilityIDs = r.U64Slice()
	v.VerifiedAt = r.I64()
	v.CreatedAt = r.I64()
	v.ExpiresAt = r.I64()
	v.IsActive = r.Bool()
	v.Bump = r.U8()
	return r.Err()
}
