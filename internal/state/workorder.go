package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// WorkOrderStatus is the five-state contract lifecycle plus Cancelled.
type WorkOrderStatus uint8

const (
	WorkOrderCreated WorkOrderStatus = iota
	WorkOrderOpen
	WorkOrderSubmitted
	WorkOrderInProgress
	WorkOrderApproved
	WorkOrderCompleted
	WorkOrderCancelled
)

func (s WorkOrderStatus) String() string {
	switch s {
	case WorkOrderCreated:
		return "created"
	case WorkOrderOpen:
		return "open"
	case WorkOrderSubmitted:
		return "submitted"
	case WorkOrderInProgress:
		return "in_progress"
	case WorkOrderApproved:
		return "approved"
	case WorkOrderCompleted:
		return "completed"
	case WorkOrderCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Deliverable tags a submitted artifact.
type Deliverable uint8

const (
	DeliverableCode Deliverable = iota
	DeliverableDocument
	DeliverableDesign
	DeliverableAnalysis
	DeliverableOther
)

// WorkOrder is the central economic contract between client and provider.
// Funds are escrowed under the "escrow" seed of this record's address and
// may leave only via release, cancel-refund, or dispute resolution.
type WorkOrder struct {
	Client        keys.Pubkey
	Provider      keys.Pubkey
	OrderID       uint64
	Title         string
	Description   string
	Requirements  []string
	PaymentAmount uint64
	PaymentToken  keys.Pubkey
	Status        WorkOrderStatus
	Escrowed      uint64
	CreatedAt     int64
	UpdatedAt     int64
	Deadline      int64
	DeliveredAt   *int64
	Bump          uint8
}

const WorkOrderLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // client
	codec.PubkeyFieldLen + // provider
	codec.U64Len + // order_id
	codec.U32Len + validate.MaxTitleLength + // title
	codec.U32Len + validate.MaxDescriptionLength + // description
	codec.U32Len + validate.MaxRequirementsItems*(codec.U32Len+validate.MaxGeneralStringLength) + // requirements
	codec.U64Len + // payment_amount
	codec.PubkeyFieldLen + // payment_token
	codec.EnumTagLen + // status
	codec.U64Len + // escrowed
	codec.I64Len + // created_at
	codec.I64Len + // updated_at
	codec.I64Len + // deadline
	codec.OptionTagLen + codec.I64Len + // delivered_at
	codec.U8Len // bump

func (o *WorkOrder) Type() RecordType { return RecordWorkOrder }

func (o *WorkOrder) Initialize(client, provider keys.Pubkey, orderID uint64, title, description string, requirements []string, paymentAmount uint64, paymentToken keys.Pubkey, deadline, now int64, bump uint8) error {
	if err := validate.String(title, validate.MaxTitleLength, gserr.TitleTooLong); err != nil {
		return err
	}
	if err := validate.String(description, validate.MaxDescriptionLength, gserr.DescriptionTooLong); err != nil {
		return err
	}
	if err := validate.StringSlice(requirements, validate.MaxRequirementsItems, validate.MaxGeneralStringLength,
		gserr.TooManyRequirements, gserr.RequirementTooLong); err != nil {
		return err
	}
	if err := validate.Payment(paymentAmount); err != nil {
		return err
	}
	if err := validate.FutureDeadline(now, deadline); err != nil {
		return err
	}

	o.Client = client
	o.Provider = provider
	o.OrderID = orderID
	o.Title = title
	o.Description = description
	o.Requirements = requirements
	o.PaymentAmount = paymentAmount
	o.PaymentToken = paymentToken
	o.Status = WorkOrderCreated
	o.Escrowed = 0
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Deadline = deadline
	o.DeliveredAt = nil
	o.Bump = bump
	return nil
}

func (o *WorkOrder) transition(from []WorkOrderStatus, to WorkOrderStatus, now int64) error {
	for _, s := range from {
		if o.Status == s {
			o.Status = to
			o.UpdatedAt = now
			return nil
		}
	}
	return gserr.Newf(gserr.InvalidWorkOrderStatus, "%s -> %s undefined", o.Status, to)
}

func (o *WorkOrder) Open(now int64) error {
	return o.transition([]WorkOrderStatus{WorkOrderCreated}, WorkOrderOpen, now)
}

func (o *WorkOrder) Submit(now int64) error {
	return o.transition([]WorkOrderStatus{WorkOrderOpen}, WorkOrderSubmitted, now)
}

func (o *WorkOrder) Start(now int64) error {
	return o.transition([]WorkOrderStatus{WorkOrderSubmitted}, WorkOrderInProgress, now)
}

// Approve accepts the delivery. A past deadline does not block approval;
// lateness is an off-chain quality matter.
func (o *WorkOrder) Approve(now int64) error {
	if err := o.transition([]WorkOrderStatus{WorkOrderInProgress}, WorkOrderApproved, now); err != nil {
		return err
	}
	t := now
	o.DeliveredAt = &t
	return nil
}

func (o *WorkOrder) Complete(now int64) error {
	return o.transition([]WorkOrderStatus{WorkOrderApproved}, WorkOrderCompleted, now)
}

func (o *WorkOrder) Cancel(now int64) error {
	return o.transition([]WorkOrderStatus{WorkOrderCreated, WorkOrderOpen, WorkOrderSubmitted}, WorkOrderCancelled, now)
}

// Validate re-checks bounded fields and timestamp ordering.
func (o *WorkOrder) Validate() error {
	if err := validate.String(o.Title, validate.MaxTitleLength, gserr.TitleTooLong); err != nil {
		return err
	}
	if err := validate.String(o.Description, validate.MaxDescriptionLength, gserr.DescriptionTooLong); err != nil {
		return err
	}
	if err := validate.StringSlice(o.Requirements, validate.MaxRequirementsItems, validate.MaxGeneralStringLength,
		gserr.TooManyRequirements, gserr.RequirementTooLong); err != nil {
		return err
	}
	if o.UpdatedAt < o.CreatedAt {
		return gserr.Newf(gserr.InvalidValue, "updated_at before created_at")
	}
	return nil
}

func (o *WorkOrder) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordWorkOrder)
	w.Pubkey(o.Client)
	w.Pubkey(o.Provider)
	w.U64(o.OrderID)
	w.String(o.Title)
	w.String(o.Description)
	w.StringSlice(o.Requirements)
	w.U64(o.PaymentAmount)
	w.Pubkey(o.PaymentToken)
	w.U8(uint8(o.Status))
	w.U64(o.Escrowed)
	w.I64(o.CreatedAt)
	w.I64(o.UpdatedAt)
	w.I64(o.Deadline)
	w.OptionI64(o.DeliveredAt)
	w.U8(o.Bump)
	return w.Bytes()
}

func (o *WorkOrder) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordWorkOrder); err != nil {
		return err
	}
	o.Client = r.Pubkey()
	o.Provider = r.Pubkey()
	o.OrderID = r.U64()
	o.Title = r.String()
	o.Description = r.String()
	o.Requirements = r.StringSlice()
	o.PaymentAmount = r.U64()
	o.PaymentToken = r.Pubkey()
	o.Status = WorkOrderStatus(r.U8())
	o.Escrowed = r.U64()
	o.CreatedAt = r.I64()
	o.UpdatedAt = r.I64()
	o.Deadline = r.I64()
	o.DeliveredAt = r.OptionI64()
	o.Bump = r.U8()
	return r.Err()
}

// WorkDelivery is created once per work order when the provider submits.
type WorkDelivery struct {
	WorkOrder    keys.Pubkey
	Provider     keys.Pubkey
	Deliverables []Deliverable
	IpfsHash     string
	MetadataURI  string
	SubmittedAt  int64
	Bump         uint8
}

const WorkDeliveryLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // work_order
	codec.PubkeyFieldLen + // provider
	codec.U32Len + validate.MaxDeliverables*codec.EnumTagLen + // deliverables
	codec.U32Len + validate.MaxIpfsHashLength + // ipfs_hash
	codec.U32Len + validate.MaxGeneralStringLength + // metadata_uri
	codec.I64Len + // submitted_at
	codec.U8Len // bump

func (d *WorkDelivery) Type() RecordType { return RecordWorkDelivery }

func (d *WorkDelivery) Initialize(workOrder, provider keys.Pubkey, deliverables []Deliverable, ipfsHash, metadataURI string, now int64, bump uint8) error {
	if len(deliverables) == 0 {
		return gserr.New(gserr.NoDeliverables)
	}
	if len(deliverables) > validate.MaxDeliverables {
		return gserr.New(gserr.TooManyDeliverables)
	}
	if err := validate.String(ipfsHash, validate.MaxIpfsHashLength, gserr.IpfsHashTooLong); err != nil {
		return err
	}
	if err := validate.String(metadataURI, validate.MaxGeneralStringLength, gserr.MetadataUriTooLong); err != nil {
		return err
	}
	d.WorkOrder = workOrder
	d.Provider = provider
	d.Deliverables = deliverables
	d.IpfsHash = ipfsHash
	d.MetadataURI = metadataURI
	d.SubmittedAt = now
	d.Bump = bump
	return nil
}

func (d *WorkDelivery) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordWorkDelivery)
	w.Pubkey(d.WorkOrder)
	w.Pubkey(d.Provider)
	w.U32(uint32(len(d.Deliverables)))
	for _, dv := range d.Deliverables {
		w.U8(uint8(dv))
	}
	w.String(d.IpfsHash)
	w.String(d.MetadataURI)
	w.I64(d.SubmittedAt)
	w.U8(d.Bump)
	return w.Bytes()
}

func (d *WorkDelivery) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordWorkDelivery); err != nil {
		return err
	}
	d.WorkOrder = r.Pubkey()
	d.Provider = r.Pubkey()
	n := r.U32()
	if r.Err() == nil && uint64(n) <= uint64(r.Remaining()) {
		d.Deliverables = make([]Deliverable, 0, n)
		for i := uint32(0); i < n; i++ {
			d.Deliverables = append(d.Deliverables, Deliverable(r.U8()))
		}
	}
	d.IpfsHash = r.String()
	d.MetadataURI = r.String()
	d.SubmittedAt = r.I64()
	d.Bump = r.U8()
	return r.Err()
}

// Payment records a settled escrow release.
type Payment struct {
	WorkOrder      keys.Pubkey
	Payer          keys.Pubkey
	Recipient      keys.Pubkey
	Amount         uint64
	TokenMint      keys.Pubkey
	IsConfidential bool
	PaidAt         int64
	Bump           uint8
}

const PaymentLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // work_order
	codec.PubkeyFieldLen + // payer
	codec.PubkeyFieldLen + // recipient
	codec.U64Len + // amount
	codec.PubkeyFieldLen + // token_mint
	codec.BoolLen + // is_confidential
	codec.I64Len + // paid_at
	codec.U8Len // bump

func (p *Payment) Type() RecordType { return RecordPayment }

func (p *Payment) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordPayment)
	w.Pubkey(p.WorkOrder)
	w.Pubkey(p.Payer)
	w.Pubkey(p.Recipient)
	w.U64(p.Amount)
	w.Pubkey(p.TokenMint)
	w.Bool(p.IsConfidential)
	w.I64(p.PaidAt)
	w.U8(p.Bump)
	return w.Bytes()
}

func (p *Payment) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordPayment); err != nil {
		return err
	}
	p.WorkOrder = r.Pubkey()
	p.Payer = r.Pubkey()
	p.Recipient = r.Pubkey()
	p.Amount = r.U64()
	p.TokenMint = r.Pubkey()
	p.IsConfidential = r.Bool()
	p.PaidAt = r.I64()
	p.Bump = r.U8()
	return r.Err()
}
