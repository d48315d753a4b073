package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

type DisputeStatus uint8

const (
	DisputeFiled DisputeStatus = iota
	DisputeUnderReview
	DisputeEvidenceSubmitted
	DisputeResolved
	DisputeEscalated
	DisputeClosed
)

func (s DisputeStatus) String() string {
	switch s {
	case DisputeFiled:
		return "filed"
	case DisputeUnderReview:
		return "under_review"
	case DisputeEvidenceSubmitted:
		return "evidence_submitted"
	case DisputeResolved:
		return "resolved"
	case DisputeEscalated:
		return "escalated"
	case DisputeClosed:
		return "closed"
	}
	return "unknown"
}

// ResolutionOutcome encodes where escrowed funds flow on resolution.
type ResolutionOutcome uint8

const (
	ResolutionReleaseToProvider ResolutionOutcome = iota
	ResolutionRefundToClient
	ResolutionSplit
)

func (o ResolutionOutcome) Valid() bool { return o <= ResolutionSplit }

func (o ResolutionOutcome) String() string {
	switch o {
	case ResolutionReleaseToProvider:
		return "release_to_provider"
	case ResolutionRefundToClient:
		return "refund_to_client"
	case ResolutionSplit:
		return "split"
	}
	return "unknown"
}

// DisputeEvidence is one accrued evidence item. The verified flag is
// flipped only by the assigned moderator.
type DisputeEvidence struct {
	Submitter  keys.Pubkey
	Type       string
	Data       string
	Timestamp  int64
	IsVerified bool
}

const maxEvidenceTypeLen = 64

const disputeEvidenceLen = codec.PubkeyFieldLen +
	codec.U32Len + maxEvidenceTypeLen +
	codec.U32Len + validate.MaxGeneralStringLength +
	codec.I64Len + codec.BoolLen

// DisputeCase arbitrates one transaction between complainant and
// respondent. The AI score is advisory moderator input with no
// enforcement semantics.
type DisputeCase struct {
	Transaction keys.Pubkey
	Complainant keys.Pubkey
	Respondent  keys.Pubkey
	Moderator   *keys.Pubkey
	Reason      string
	Status      DisputeStatus
	Evidence    []DisputeEvidence
	Outcome     ResolutionOutcome
	SplitBps    uint16
	Resolution  *string
	AIScoreBps  uint16
	HumanReview bool
	CreatedAt   int64
	ResolvedAt  *int64
	Bump        uint8
}

const DisputeCaseLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // transaction
	codec.PubkeyFieldLen + // complainant
	codec.PubkeyFieldLen + // respondent
	codec.OptionTagLen + codec.PubkeyFieldLen + // moderator
	codec.U32Len + validate.MaxGeneralStringLength + // reason
	codec.EnumTagLen + // status
	codec.U32Len + validate.MaxEvidenceItems*disputeEvidenceLen + // evidence
	codec.EnumTagLen + // outcome
	codec.U16Len + // split_bps
	codec.OptionTagLen + codec.U32Len + validate.MaxGeneralStringLength + // resolution
	codec.U16Len + // ai_score_bps
	codec.BoolLen + // human_review
	codec.I64Len + // created_at
	codec.OptionTagLen + codec.I64Len + // resolved_at
	codec.U8Len // bump

func (d *DisputeCase) Type() RecordType { return RecordDispute }

func (d *DisputeCase) Initialize(transaction, complainant, respondent keys.Pubkey, reason string, now int64, bump uint8) error {
	if err := validate.String(reason, validate.MaxGeneralStringLength, gserr.InputTooLong); err != nil {
		return err
	}
	d.Transaction = transaction
	d.Complainant = complainant
	d.Respondent = respondent
	d.Moderator = nil
	d.Reason = reason
	d.Status = DisputeFiled
	d.Evidence = nil
	d.Outcome = ResolutionRefundToClient
	d.SplitBps = 0
	d.Resolution = nil
	d.AIScoreBps = 0
	d.HumanReview = false
	d.CreatedAt = now
	d.ResolvedAt = nil
	d.Bump = bump
	return nil
}

func (d *DisputeCase) acceptsEvidence() bool {
	switch d.Status {
	case DisputeFiled, DisputeUnderReview, DisputeEvidenceSubmitted:
		return true
	}
	return false
}

// AddEvidence accrues an item while the case is open for evidence.
func (d *DisputeCase) AddEvidence(submitter keys.Pubkey, evidenceType, data string, now int64) error {
	if !d.acceptsEvidence() {
		return gserr.Newf(gserr.InvalidDisputeStatus, "status %s", d.Status)
	}
	if len(d.Evidence) >= validate.MaxEvidenceItems {
		return gserr.New(gserr.TooManyEvidenceItems)
	}
	if err := validate.String(evidenceType, maxEvidenceTypeLen, gserr.InputTooLong); err != nil {
		return err
	}
	if err := validate.String(data, validate.MaxGeneralStringLength, gserr.InputTooLong); err != nil {
		return err
	}
	d.Evidence = append(d.Evidence, DisputeEvidence{
		Submitter: submitter,
		Type:      evidenceType,
		Data:      data,
		Timestamp: now,
	})
	d.Status = DisputeEvidenceSubmitted
	return nil
}

// VerifyEvidence marks item i verified. Caller must be the assigned
// moderator; the handler asserts that before delegating here.
func (d *DisputeCase) VerifyEvidence(i int) error {
	if i < 0 || i >= len(d.Evidence) {
		return gserr.Newf(gserr.InvalidValue, "evidence index %d", i)
	}
	d.Evidence[i].IsVerified = true
	return nil
}

// AssignModerator advances Filed -> UnderReview.
func (d *DisputeCase) AssignModerator(moderator keys.Pubkey) error {
	if d.Status != DisputeFiled {
		return gserr.Newf(gserr.InvalidDisputeStatus, "status %s", d.Status)
	}
	m := moderator
	d.Moderator = &m
	d.Status = DisputeUnderReview
	return nil
}

// Resolve records the outcome and authorizes the corresponding fund flow.
func (d *DisputeCase) Resolve(outcome ResolutionOutcome, splitBps uint16, resolution string, now int64) error {
	switch d.Status {
	case DisputeUnderReview, DisputeEvidenceSubmitted, DisputeEscalated:
	default:
		return gserr.Newf(gserr.InvalidDisputeStatus, "status %s", d.Status)
	}
	if !outcome.Valid() {
		return gserr.New(gserr.InvalidResolution)
	}
	if outcome == ResolutionSplit && splitBps > 10_000 {
		return gserr.Newf(gserr.InvalidResolution, "split %d bp exceeds 10000", splitBps)
	}
	if err := validate.String(resolution, validate.MaxGeneralStringLength, gserr.InputTooLong); err != nil {
		return err
	}
	d.Status = DisputeResolved
	d.Outcome = outcome
	d.SplitBps = splitBps
	d.Resolution = &resolution
	t := now
	d.ResolvedAt = &t
	return nil
}

// Escalate flags the case for human review.
func (d *DisputeCase) Escalate() error {
	switch d.Status {
	case DisputeFiled, DisputeUnderReview, DisputeEvidenceSubmitted:
	default:
		return gserr.Newf(gserr.InvalidDisputeStatus, "status %s", d.Status)
	}
	d.Status = DisputeEscalated
	d.HumanReview = true
	return nil
}

// Close ends the case without a fund flow.
func (d *DisputeCase) Close(now int64) error {
	switch d.Status {
	case DisputeResolved, DisputeEscalated:
	default:
		return gserr.Newf(gserr.InvalidDisputeStatus, "status %s", d.Status)
	}
	d.Status = DisputeClosed
	if d.ResolvedAt == nil {
		t := now
		d.ResolvedAt = &t
	}
	return nil
}

// ProviderShare splits the escrowed amount per the resolution outcome.
// Integer remainder goes to the client so provider+client always sum to
// the full amount.
func (d *DisputeCase) ProviderShare(amount uint64) (toProvider, toClient uint64, err error) {
	switch d.Outcome {
	case ResolutionReleaseToProvider:
		return amount, 0, nil
	case ResolutionRefundToClient:
		return 0, amount, nil
	case ResolutionSplit:
		p, err := validate.MulU64(amount, uint64(d.SplitBps))
		if err != nil {
			return 0, 0, err
		}
		p /= 10_000
		return p, amount - p, nil
	}
	return 0, 0, gserr.New(gserr.InvalidResolution)
}

func (d *DisputeCase) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordDispute)
	w.Pubkey(d.Transaction)
	w.Pubkey(d.Complainant)
	w.Pubkey(d.Respondent)
	w.OptionPubkey(d.Moderator)
	w.String(d.Reason)
	w.U8(uint8(d.Status))
	w.U32(uint32(len(d.Evidence)))
	for _, e := range d.Evidence {
		w.Pubkey(e.Submitter)
		w.String(e.Type)
		w.String(e.Data)
		w.I64(e.Timestamp)
		w.Bool(e.IsVerified)
	}
	w.U8(uint8(d.Outcome))
	w.U16(d.SplitBps)
	w.OptionString(d.Resolution)
	w.U16(d.AIScoreBps)
	w.Bool(d.HumanReview)
	w.I64(d.CreatedAt)
	w.OptionI64(d.ResolvedAt)
	w.U8(d.Bump)
	return w.Bytes()
}

func (d *DisputeCase) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordDispute); err != nil {
		return err
	}
	d.Transaction = r.Pubkey()
	d.Complainant = r.Pubkey()
	d.Respondent = r.Pubkey()
	d.Moderator = r.OptionPubkey()
	d.Reason = r.String()
	d.Status = DisputeStatus(r.U8())
	n := r.U32()
	if r.Err() == nil && uint64(n) <= validate.MaxEvidenceItems {
		d.Evidence = make([]DisputeEvidence, 0, n)
		for i := uint32(0); i < n; i++ {
			d.Evidence = append(d.Evidence, DisputeEvidence{
				Submitter:  r.Pubkey(),
				Type:       r.String(),
				Data:       r.String(),
				Timestamp:  r.I64(),
				IsVerified: r.Bool(),
			})
		}
	}
	d.Outcome = ResolutionOutcome(r.U8())
	d.SplitBps = r.U16()
	d.Resolution = r.OptionString()
	d.AIScoreBps = r.U16()
	d.HumanReview = r.Bool()
	d.CreatedAt = r.I64()
	d.ResolvedAt = r.OptionI64()
	d.Bump = r.U8()
	return r.Err()
}
