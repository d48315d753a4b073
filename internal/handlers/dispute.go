package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// FileDispute opens a case against a delivered work order. Either party
// may file, once, within the dispute window after delivery; the address
// derives from the work order plus the complainant, so the same party
// cannot file twice.
type FileDispute struct {
	Complainant keys.Pubkey `json:"complainant"`
	WorkOrder   keys.Pubkey `json:"work_order"`
	Reason      string      `json:"reason"`
}

func (c FileDispute) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Complainant); err != nil {
		return nil, err
	}
	wo := new(state.WorkOrder)
	if err := tx.Load(c.WorkOrder, wo); err != nil {
		return nil, err
	}

	var respondent keys.Pubkey
	switch c.Complainant {
	case wo.Client:
		respondent = wo.Provider
	case wo.Provider:
		respondent = wo.Client
	default:
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not a party to the work order")
	}

	switch wo.Status {
	case state.WorkOrderApproved, state.WorkOrderCompleted:
	default:
		return nil, gserr.Newf(gserr.InvalidWorkOrderStatus, "dispute requires a delivered order, got %s", wo.Status)
	}
	delivered := wo.UpdatedAt
	if wo.DeliveredAt != nil {
		delivered = *wo.DeliveredAt
	}
	if tx.Now() > delivered+validate.DisputeWindow {
		return nil, gserr.Newf(gserr.DisputeWindowClosed, "delivered at %d", delivered)
	}

	addr, bump, err := tx.FindAddress(state.DisputeSeed, c.WorkOrder.Bytes(), c.Complainant.Bytes())
	if err != nil {
		return nil, err
	}
	d := new(state.DisputeCase)
	if err := d.Initialize(c.WorkOrder, c.Complainant, respondent, c.Reason, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(addr, d); err != nil {
		return nil, err
	}
	tx.Emit(events.DisputeFiled{
		Dispute: addr, Transaction: c.WorkOrder,
		Complainant: c.Complainant, Respondent: respondent, At: tx.Now(),
	})
	return created{Address: addr}, nil
}

// SubmitDisputeEvidence accrues an evidence item from a party or the
// assigned moderator.
type SubmitDisputeEvidence struct {
	Submitter    keys.Pubkey `json:"submitter"`
	Dispute      keys.Pubkey `json:"dispute"`
	EvidenceType string      `json:"evidence_type"`
	Data         string      `json:"data"`
}

func (c SubmitDisputeEvidence) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Submitter); err != nil {
		return nil, err
	}
	d := new(state.DisputeCase)
	if err := tx.Load(c.Dispute, d); err != nil {
		return nil, err
	}
	if !disputeParticipant(d, c.Submitter) {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not a dispute participant")
	}
	if err := d.AddEvidence(c.Submitter, c.EvidenceType, c.Data, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Dispute, d)
	tx.Emit(events.DisputeEvidenceAdded{
		Dispute: c.Dispute, Submitter: c.Submitter, Count: len(d.Evidence), At: tx.Now(),
	})
	return created{Address: c.Dispute}, nil
}

// AssignModerator is an authority action moving the case under review.
type AssignModerator struct {
	Dispute   keys.Pubkey `json:"dispute"`
	Moderator keys.Pubkey `json:"moderator"`
}

func (c AssignModerator) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := eng.requireAuthority(tx); err != nil {
		return nil, err
	}
	d := new(state.DisputeCase)
	if err := tx.Load(c.Dispute, d); err != nil {
		return nil, err
	}
	if err := d.AssignModerator(c.Moderator); err != nil {
		return nil, err
	}
	tx.Save(c.Dispute, d)
	return created{Address: c.Dispute}, nil
}

// VerifyDisputeEvidence marks one item verified by the moderator.
type VerifyDisputeEvidence struct {
	Moderator keys.Pubkey `json:"moderator"`
	Dispute   keys.Pubkey `json:"dispute"`
	Index     int         `json:"index"`
}

func (c VerifyDisputeEvidence) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	d, err := loadDisputeForModerator(tx, eng, c.Dispute, c.Moderator)
	if err != nil {
		return nil, err
	}
	if err := d.VerifyEvidence(c.Index); err != nil {
		return nil, err
	}
	tx.Save(c.Dispute, d)
	return created{Address: c.Dispute}, nil
}

// ResolveDispute records the outcome and moves any remaining escrow per
// the resolution split.
type ResolveDispute struct {
	Moderator  keys.Pubkey             `json:"moderator"`
	Dispute    keys.Pubkey             `json:"dispute"`
	Outcome    state.ResolutionOutcome `json:"outcome"`
	SplitBps   uint16                  `json:"split_bps,omitempty"`
	Resolution string                  `json:"resolution"`
}

func (c ResolveDispute) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	d, err := loadDisputeForModerator(tx, eng, c.Dispute, c.Moderator)
	if err != nil {
		return nil, err
	}
	if err := d.Resolve(c.Outcome, c.SplitBps, c.Resolution, tx.Now()); err != nil {
		return nil, err
	}

	wo := new(state.WorkOrder)
	if err := tx.Load(d.Transaction, wo); err != nil {
		return nil, err
	}
	var toProvider, toClient uint64
	if wo.Escrowed > 0 {
		toProvider, toClient, err = d.ProviderShare(wo.Escrowed)
		if err != nil {
			return nil, err
		}
		escrow, err := escrowAddress(tx, d.Transaction)
		if err != nil {
			return nil, err
		}
		if toProvider > 0 {
			if err := tx.TransferTokens(wo.PaymentToken, escrow, wo.Provider, toProvider); err != nil {
				return nil, err
			}
		}
		if toClient > 0 {
			if err := tx.TransferTokens(wo.PaymentToken, escrow, wo.Client, toClient); err != nil {
				return nil, err
			}
		}
		wo.Escrowed = 0
		if wo.Status == state.WorkOrderApproved {
			if err := wo.Complete(tx.Now()); err != nil {
				return nil, err
			}
		}
		tx.Save(d.Transaction, wo)
	}

	tx.Save(c.Dispute, d)
	tx.Emit(events.DisputeResolved{
		Dispute: c.Dispute, Outcome: d.Outcome.String(),
		ToProvider: toProvider, ToClient: toClient, At: tx.Now(),
	})
	return created{Address: c.Dispute}, nil
}

// EscalateDispute flags the case for human review. Parties and the
// moderator may escalate.
type EscalateDispute struct {
	Signer  keys.Pubkey `json:"signer"`
	Dispute keys.Pubkey `json:"dispute"`
}

func (c EscalateDispute) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Signer); err != nil {
		return nil, err
	}
	d := new(state.DisputeCase)
	if err := tx.Load(c.Dispute, d); err != nil {
		return nil, err
	}
	if !disputeParticipant(d, c.Signer) && c.Signer != eng.authority {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not a dispute participant")
	}
	if err := d.Escalate(); err != nil {
		return nil, err
	}
	tx.Save(c.Dispute, d)
	tx.Emit(events.DisputeEscalated{Dispute: c.Dispute, At: tx.Now()})
	return created{Address: c.Dispute}, nil
}

// CloseDispute archives a resolved or escalated case.
type CloseDispute struct {
	Moderator keys.Pubkey `json:"moderator"`
	Dispute   keys.Pubkey `json:"dispute"`
}

func (c CloseDispute) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	d, err := loadDisputeForModerator(tx, eng, c.Dispute, c.Moderator)
	if err != nil {
		return nil, err
	}
	if err := d.Close(tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(c.Dispute, d)
	return created{Address: c.Dispute}, nil
}

func disputeParticipant(d *state.DisputeCase, pk keys.Pubkey) bool {
	if pk == d.Complainant || pk == d.Respondent {
		return true
	}
	return d.Moderator != nil && pk == *d.Moderator
}

// loadDisputeForModerator admits the assigned moderator or, as a
// fallback, the protocol authority.
func loadDisputeForModerator(tx *runtime.Tx, eng *Engine, addr, signer keys.Pubkey) (*state.DisputeCase, error) {
	if err := tx.RequireSigner(signer); err != nil {
		return nil, err
	}
	d := new(state.DisputeCase)
	if err := tx.Load(addr, d); err != nil {
		return nil, err
	}
	assigned := d.Moderator != nil && signer == *d.Moderator
	if !assigned && signer != eng.authority {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not the assigned moderator")
	}
	return d, nil
}
