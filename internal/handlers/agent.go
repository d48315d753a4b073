package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// RegisterAgent creates the owner's primary agent record. One per
// owner: the address derives from the owner key alone.
type RegisterAgent struct {
	Owner        keys.Pubkey        `json:"owner"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Capabilities []string           `json:"capabilities,omitempty"`
	Pricing      state.PricingModel `json:"pricing"`
	GenomeHash   string             `json:"genome_hash,omitempty"`
	MetadataURI  string             `json:"metadata_uri"`
}

func (c RegisterAgent) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Owner); err != nil {
		return nil, err
	}
	reg, regAddr, err := loadRegistry(tx, c.Owner)
	if err != nil {
		return nil, err
	}
	if err := reg.IncrementAgents(); err != nil {
		return nil, err
	}

	addr, bump, err := agentAddress(tx, c.Owner)
	if err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	if err := agent.Initialize(c.Owner, c.Name, c.Description, c.Pricing, c.MetadataURI, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := validate.StringSlice(c.Capabilities, validate.MaxCapabilitiesCount, validate.MaxGeneralStringLength,
		gserr.TooManyCapabilities, gserr.CapabilityTooLong); err != nil {
		return nil, err
	}
	agent.Capabilities = c.Capabilities
	if err := validate.String(c.GenomeHash, validate.MaxGeneralStringLength, gserr.InvalidGenomeHash); err != nil {
		return nil, err
	}
	agent.GenomeHash = c.GenomeHash

	if err := tx.Create(addr, agent); err != nil {
		return nil, err
	}
	tx.Save(regAddr, reg)
	tx.Emit(events.AgentRegistered{Agent: addr, Owner: c.Owner, Name: c.Name, At: tx.Now()})
	return created{Address: addr}, nil
}

// UpdateAgentService changes the advertised endpoint and active flag.
type UpdateAgentService struct {
	Owner    keys.Pubkey `json:"owner"`
	Endpoint string      `json:"endpoint"`
	IsActive bool        `json:"is_active"`
}

func (c UpdateAgentService) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Owner); err != nil {
		return nil, err
	}
	addr, _, err := agentAddress(tx, c.Owner)
	if err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	if err := tx.Load(addr, agent); err != nil {
		return nil, err
	}
	if agent.Owner != c.Owner {
		return nil, gserr.New(gserr.UnauthorizedAccess)
	}
	if err := agent.UpdateService(c.Endpoint, c.IsActive, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(addr, agent)
	tx.Emit(events.AgentServiceUpdated{Agent: addr, Endpoint: c.Endpoint, Active: c.IsActive, At: tx.Now()})
	return created{Address: addr}, nil
}

type ActivateAgent struct {
	Owner keys.Pubkey `json:"owner"`
}

func (c ActivateAgent) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	return setAgentActive(tx, c.Owner, true)
}

type DeactivateAgent struct {
	Owner keys.Pubkey `json:"owner"`
}

func (c DeactivateAgent) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	return setAgentActive(tx, c.Owner, false)
}

func setAgentActive(tx *runtime.Tx, owner keys.Pubkey, active bool) (any, error) {
	if err := tx.RequireSigner(owner); err != nil {
		return nil, err
	}
	addr, _, err := agentAddress(tx, owner)
	if err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	if err := tx.Load(addr, agent); err != nil {
		return nil, err
	}
	if agent.Owner != owner {
		return nil, gserr.New(gserr.UnauthorizedAccess)
	}
	if active {
		err = agent.Activate(tx.Now())
	} else {
		err = agent.Deactivate(tx.Now())
	}
	if err != nil {
		return nil, err
	}
	tx.Save(addr, agent)
	return created{Address: addr}, nil
}

// VerifyAgent lets a third-party verifier attest an agent's endpoint
// and capabilities until an expiry.
type VerifyAgent struct {
	Verifier      keys.Pubkey `json:"verifier"`
	Agent         keys.Pubkey `json:"agent"`
	Endpoint      string      `json:"endpoint"`
	CapabilityIDs []uint64    `json:"capability_ids,omitempty"`
	ExpiresAt     int64       `json:"expires_at"`
}

func (c VerifyAgent) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Verifier); err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	if err := tx.Load(c.Agent, agent); err != nil {
		return nil, err
	}

	vAddr, bump, err := tx.FindAddress(state.AgentVerificationSeed, c.Agent.Bytes())
	if err != nil {
		return nil, err
	}
	v := new(state.AgentVerification)
	if err := v.Initialize(c.Agent, c.Verifier, c.Endpoint, c.CapabilityIDs, c.ExpiresAt, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(vAddr, v); err != nil {
		return nil, err
	}

	agent.IsVerified = true
	agent.VerificationTimestamp = tx.Now()
	agent.UpdatedAt = tx.Now()
	tx.Save(c.Agent, agent)
	tx.Emit(events.AgentVerified{Agent: c.Agent, Verifier: c.Verifier, ExpiresAt: c.ExpiresAt, At: tx.Now()})
	return created{Address: vAddr}, nil
}

// RevokeVerification deactivates the attestation. Only its verifier may
// revoke.
type RevokeVerification struct {
	Verifier keys.Pubkey `json:"verifier"`
	Agent    keys.Pubkey `json:"agent"`
}

func (c RevokeVerification) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Verifier); err != nil {
		return nil, err
	}
	vAddr, _, err := tx.FindAddress(state.AgentVerificationSeed, c.Agent.Bytes())
	if err != nil {
		return nil, err
	}
	v := new(state.AgentVerification)
	if err := tx.Load(vAddr, v); err != nil {
		return nil, err
	}
	if v.Verifier != c.Verifier {
		return nil, gserr.New(gserr.UnauthorizedAccess)
	}
	v.Revoke()
	tx.Save(vAddr, v)

	agent := new(state.Agent)
	if err := tx.Load(c.Agent, agent); err != nil {
		return nil, err
	}
	agent.IsVerified = false
	agent.UpdatedAt = tx.Now()
	tx.Save(c.Agent, agent)
	tx.Emit(events.AgentVerificationRevoked{Agent: c.Agent, Verifier: c.Verifier, At: tx.Now()})
	return created{Address: vAddr}, nil
}

// CreateReplicationTemplate publishes an agent's genome for paid
// replication.
type CreateReplicationTemplate struct {
	Owner       keys.Pubkey `json:"owner"`
	GenomeHash  string      `json:"genome_hash"`
	Fee         uint64      `json:"fee"`
	MaxReplicas uint32      `json:"max_replicas"`
}

func (c CreateReplicationTemplate) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Owner); err != nil {
		return nil, err
	}
	agentAddr, _, err := agentAddress(tx, c.Owner)
	if err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	if err := tx.Load(agentAddr, agent); err != nil {
		return nil, err
	}
	if agent.Owner != c.Owner {
		return nil, gserr.New(gserr.UnauthorizedAccess)
	}

	tAddr, bump, err := tx.FindAddress(state.ReplicationTemplateSeed, agentAddr.Bytes())
	if err != nil {
		return nil, err
	}
	tpl := new(state.ReplicationTemplate)
	if err := tpl.Initialize(agentAddr, c.Owner, c.GenomeHash, c.Fee, c.MaxReplicas, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(tAddr, tpl); err != nil {
		return nil, err
	}

	agent.IsReplicable = true
	agent.ReplicationFee = c.Fee
	agent.GenomeHash = c.GenomeHash
	agent.UpdatedAt = tx.Now()
	tx.Save(agentAddr, agent)
	return created{Address: tAddr}, nil
}

// ReplicateAgent mints a replica of a template's agent for the buyer,
// paying the replication fee to the template owner.
type ReplicateAgent struct {
	Buyer       keys.Pubkey        `json:"buyer"`
	Template    keys.Pubkey        `json:"template"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Pricing     state.PricingModel `json:"pricing"`
	MetadataURI string             `json:"metadata_uri"`
	FeeMint     keys.Pubkey        `json:"fee_mint"`
}

func (c ReplicateAgent) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Buyer); err != nil {
		return nil, err
	}
	tpl := new(state.ReplicationTemplate)
	if err := tx.Load(c.Template, tpl); err != nil {
		return nil, err
	}
	if err := tpl.CountReplica(); err != nil {
		return nil, err
	}

	reg, regAddr, err := loadRegistry(tx, c.Buyer)
	if err != nil {
		return nil, err
	}
	if err := reg.IncrementAgents(); err != nil {
		return nil, err
	}

	// Replica address derives from buyer plus template, so a buyer can
	// hold a primary agent and replicas side by side.
	addr, bump, err := tx.FindAddress(state.AgentSeed, c.Buyer.Bytes(), c.Template.Bytes())
	if err != nil {
		return nil, err
	}
	replica := new(state.Agent)
	if err := replica.Initialize(c.Buyer, c.Name, c.Description, c.Pricing, c.MetadataURI, tx.Now(), bump); err != nil {
		return nil, err
	}
	replica.GenomeHash = tpl.GenomeHash
	if err := tx.Create(addr, replica); err != nil {
		return nil, err
	}

	rrAddr, rrBump, err := tx.FindAddress(state.ReplicationRecordSeed, c.Template.Bytes(), c.Buyer.Bytes())
	if err != nil {
		return nil, err
	}
	rr := &state.ReplicationRecord{
		Template:     c.Template,
		ReplicaAgent: addr,
		Buyer:        c.Buyer,
		FeePaid:      tpl.ReplicationFee,
		ReplicatedAt: tx.Now(),
		Bump:         rrBump,
	}
	if err := tx.Create(rrAddr, rr); err != nil {
		return nil, err
	}

	if tpl.ReplicationFee > 0 {
		if err := tx.TransferTokens(c.FeeMint, c.Buyer, tpl.Owner, tpl.ReplicationFee); err != nil {
			return nil, err
		}
	}
	tx.Save(c.Template, tpl)
	tx.Save(regAddr, reg)
	tx.Emit(events.AgentReplicated{
		Template: c.Template, Original: tpl.SourceAgent, Replica: addr,
		Owner: c.Buyer, Fee: tpl.ReplicationFee, At: tx.Now(),
	})
	return created{Address: addr}, nil
}

// UpdateA2AStatus upserts the owner's availability record.
type UpdateA2AStatus struct {
	Agent        keys.Pubkey `json:"agent"`
	StatusText   string      `json:"status_text"`
	Availability bool        `json:"availability"`
}

func (c UpdateA2AStatus) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Agent); err != nil {
		return nil, err
	}
	addr, bump, err := tx.FindAddress(state.A2AStatusSeed, c.Agent.Bytes())
	if err != nil {
		return nil, err
	}
	st := new(state.A2AStatus)
	err = tx.Load(addr, st)
	switch {
	case gserr.HasCode(err, gserr.AccountNotInitialized):
		st.Agent = c.Agent
		st.Bump = bump
		if err := st.Set(c.StatusText, c.Availability, tx.Now()); err != nil {
			return nil, err
		}
		if err := tx.Create(addr, st); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := st.Set(c.StatusText, c.Availability, tx.Now()); err != nil {
			return nil, err
		}
		tx.Save(addr, st)
	}
	return created{Address: addr}, nil
}
