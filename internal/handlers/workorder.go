package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/address"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Reputation credit per released payment: one basis point per million
// token units, capped.
const (
	reputationUnit   uint64 = 1_000_000
	maxReputationBps uint32 = 10
)

// CreateWorkOrder opens the client-provider contract. OrderID scopes
// the address so a client can hold many orders.
type CreateWorkOrder struct {
	Client        keys.Pubkey `json:"client"`
	Provider      keys.Pubkey `json:"provider"`
	OrderID       uint64      `json:"order_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Requirements  []string    `json:"requirements,omitempty"`
	PaymentAmount uint64      `json:"payment_amount"`
	PaymentToken  keys.Pubkey `json:"payment_token"`
	Deadline      int64       `json:"deadline"`
}

func (c CreateWorkOrder) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Client); err != nil {
		return nil, err
	}
	reg, regAddr, err := loadRegistry(tx, c.Client)
	if err != nil {
		return nil, err
	}
	if err := reg.IncrementWorkOrders(); err != nil {
		return nil, err
	}

	addr, bump, err := tx.FindAddress(state.WorkOrderSeed, c.Client.Bytes(), address.U64Seed(c.OrderID))
	if err != nil {
		return nil, err
	}
	wo := new(state.WorkOrder)
	if err := wo.Initialize(c.Client, c.Provider, c.OrderID, c.Title, c.Description, c.Requirements,
		c.PaymentAmount, c.PaymentToken, c.Deadline, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(addr, wo); err != nil {
		return nil, err
	}
	tx.Save(regAddr, reg)
	tx.Emit(events.WorkOrderCreated{WorkOrder: addr, Client: c.Client, Provider: c.Provider, Amount: c.PaymentAmount, At: tx.Now()})
	return created{Address: addr}, nil
}

// OpenWorkOrder publishes the order to its provider.
type OpenWorkOrder struct {
	Client    keys.Pubkey `json:"client"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c OpenWorkOrder) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Client, clientOnly)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if err := wo.Open(tx.Now()); err != nil {
		return nil, err
	}
	saveWithTransition(tx, c.WorkOrder, wo, from)
	return created{Address: c.WorkOrder}, nil
}

// FundEscrow moves the full payment amount from the client into the
// order's escrow account. Single-shot: an already-funded order refuses.
type FundEscrow struct {
	Client    keys.Pubkey `json:"client"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c FundEscrow) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Client, clientOnly)
	if err != nil {
		return nil, err
	}
	switch wo.Status {
	case state.WorkOrderCreated, state.WorkOrderOpen, state.WorkOrderSubmitted, state.WorkOrderInProgress:
	default:
		return nil, gserr.Newf(gserr.InvalidWorkOrderStatus, "cannot fund in %s", wo.Status)
	}
	if wo.Escrowed != 0 {
		return nil, gserr.Newf(gserr.InvalidValue, "escrow already funded")
	}
	escrow, err := escrowAddress(tx, c.WorkOrder)
	if err != nil {
		return nil, err
	}
	if err := tx.TransferTokens(wo.PaymentToken, c.Client, escrow, wo.PaymentAmount); err != nil {
		return nil, err
	}
	wo.Escrowed = wo.PaymentAmount
	wo.UpdatedAt = tx.Now()
	tx.Save(c.WorkOrder, wo)
	tx.Emit(events.EscrowFunded{WorkOrder: c.WorkOrder, Client: c.Client, Amount: wo.PaymentAmount, At: tx.Now()})
	return created{Address: escrow}, nil
}

// SubmitWorkDelivery records the provider's artifacts and moves the
// order to Submitted. One delivery per order.
type SubmitWorkDelivery struct {
	Provider     keys.Pubkey         `json:"provider"`
	WorkOrder    keys.Pubkey         `json:"work_order"`
	Deliverables []state.Deliverable `json:"deliverables"`
	IpfsHash     string              `json:"ipfs_hash"`
	MetadataURI  string              `json:"metadata_uri"`
}

func (c SubmitWorkDelivery) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Provider, providerOnly)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if err := wo.Submit(tx.Now()); err != nil {
		return nil, err
	}

	dAddr, bump, err := tx.FindAddress(state.WorkDeliverySeed, c.WorkOrder.Bytes())
	if err != nil {
		return nil, err
	}
	d := new(state.WorkDelivery)
	if err := d.Initialize(c.WorkOrder, c.Provider, c.Deliverables, c.IpfsHash, c.MetadataURI, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(dAddr, d); err != nil {
		return nil, err
	}
	saveWithTransition(tx, c.WorkOrder, wo, from)
	tx.Emit(events.WorkDeliverySubmitted{WorkOrder: c.WorkOrder, Delivery: dAddr, Provider: c.Provider, At: tx.Now()})
	return created{Address: dAddr}, nil
}

// StartReview moves a submission into active work. The provider signs:
// picking the submission up is their act, not the client's.
type StartReview struct {
	Provider  keys.Pubkey `json:"provider"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c StartReview) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Provider, providerOnly)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if err := wo.Start(tx.Now()); err != nil {
		return nil, err
	}
	saveWithTransition(tx, c.WorkOrder, wo, from)
	return created{Address: c.WorkOrder}, nil
}

// ApproveDelivery accepts the work, stamping the delivery time.
type ApproveDelivery struct {
	Client    keys.Pubkey `json:"client"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c ApproveDelivery) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Client, clientOnly)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if err := wo.Approve(tx.Now()); err != nil {
		return nil, err
	}
	saveWithTransition(tx, c.WorkOrder, wo, from)
	return created{Address: c.WorkOrder}, nil
}

// ReleasePayment pays the provider out of escrow, writes the Payment
// record, credits the provider agent's earnings and reputation, and
// completes the order.
type ReleasePayment struct {
	Client    keys.Pubkey `json:"client"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c ReleasePayment) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Client, clientOnly)
	if err != nil {
		return nil, err
	}
	if wo.Status != state.WorkOrderApproved {
		return nil, gserr.Newf(gserr.InvalidWorkOrderStatus, "release requires approved, got %s", wo.Status)
	}
	if wo.Escrowed == 0 {
		return nil, gserr.Newf(gserr.InsufficientFunds, "escrow unfunded")
	}
	amount := wo.Escrowed

	escrow, err := escrowAddress(tx, c.WorkOrder)
	if err != nil {
		return nil, err
	}
	if err := tx.TransferTokens(wo.PaymentToken, escrow, wo.Provider, amount); err != nil {
		return nil, err
	}

	pAddr, bump, err := tx.FindAddress(state.PaymentSeed, c.WorkOrder.Bytes())
	if err != nil {
		return nil, err
	}
	p := &state.Payment{
		WorkOrder: c.WorkOrder,
		Payer:     wo.Client,
		Recipient: wo.Provider,
		Amount:    amount,
		TokenMint: wo.PaymentToken,
		PaidAt:    tx.Now(),
		Bump:      bump,
	}
	if err := tx.Create(pAddr, p); err != nil {
		return nil, err
	}

	// The provider's agent record is optional: a wallet without a
	// registered agent still gets paid, it just accrues nothing.
	agentAddr, _, err := agentAddress(tx, wo.Provider)
	if err != nil {
		return nil, err
	}
	agent := new(state.Agent)
	switch err := tx.Load(agentAddr, agent); {
	case err == nil:
		if err := agent.CreditEarnings(amount, tx.Now()); err != nil {
			return nil, err
		}
		rep := amount / reputationUnit
		if rep > uint64(maxReputationBps) {
			rep = uint64(maxReputationBps)
		}
		if err := agent.AddReputation(uint32(rep), tx.Now()); err != nil {
			return nil, err
		}
		tx.Save(agentAddr, agent)
	case !gserr.HasCode(err, gserr.AccountNotInitialized):
		return nil, err
	}

	reg, regAddr, err := loadRegistry(tx, wo.Client)
	if err != nil {
		return nil, err
	}
	if err := reg.AddVolume(amount); err != nil {
		return nil, err
	}
	tx.Save(regAddr, reg)

	recordSale(tx, amount)

	from := wo.Status
	wo.Escrowed = 0
	if err := wo.Complete(tx.Now()); err != nil {
		return nil, err
	}
	saveWithTransition(tx, c.WorkOrder, wo, from)
	tx.Emit(events.PaymentProcessed{
		Payment: pAddr, WorkOrder: c.WorkOrder,
		Payer: wo.Client, Recipient: wo.Provider, Amount: amount, At: tx.Now(),
	})
	return created{Address: pAddr}, nil
}

// CancelWorkOrder withdraws an undelivered order, refunding any escrow.
type CancelWorkOrder struct {
	Client    keys.Pubkey `json:"client"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c CancelWorkOrder) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	wo, err := loadWorkOrder(tx, c.WorkOrder, c.Client, clientOnly)
	if err != nil {
		return nil, err
	}
	from := wo.Status
	if err := wo.Cancel(tx.Now()); err != nil {
		return nil, err
	}
	refunded := wo.Escrowed
	if refunded > 0 {
		escrow, err := escrowAddress(tx, c.WorkOrder)
		if err != nil {
			return nil, err
		}
		if err := tx.TransferTokens(wo.PaymentToken, escrow, wo.Client, refunded); err != nil {
			return nil, err
		}
		wo.Escrowed = 0
	}
	saveWithTransition(tx, c.WorkOrder, wo, from)
	tx.Emit(events.WorkOrderCancelled{WorkOrder: c.WorkOrder, Refunded: refunded, At: tx.Now()})
	return created{Address: c.WorkOrder}, nil
}

type workOrderRole uint8

const (
	clientOnly workOrderRole = iota
	providerOnly
)

func loadWorkOrder(tx *runtime.Tx, addr, signer keys.Pubkey, role workOrderRole) (*state.WorkOrder, error) {
	if err := tx.RequireSigner(signer); err != nil {
		return nil, err
	}
	wo := new(state.WorkOrder)
	if err := tx.Load(addr, wo); err != nil {
		return nil, err
	}
	switch role {
	case clientOnly:
		if wo.Client != signer {
			return nil, gserr.Newf(gserr.UnauthorizedAccess, "not the client")
		}
	case providerOnly:
		if wo.Provider != signer {
			return nil, gserr.Newf(gserr.UnauthorizedAccess, "not the provider")
		}
	}
	return wo, nil
}

func saveWithTransition(tx *runtime.Tx, addr keys.Pubkey, wo *state.WorkOrder, from state.WorkOrderStatus) {
	tx.Save(addr, wo)
	if wo.Status != from {
		tx.Emit(events.WorkOrderStatusChanged{
			WorkOrder: addr, From: from.String(), To: wo.Status.String(), At: tx.Now(),
		})
	}
}

// recordSale folds a settled payment into the current daily analytics
// shard, if one has been provisioned. Analytics are best-effort by
// construction; a missing shard skips silently.
func recordSale(tx *runtime.Tx, amount uint64) {
	period := tx.Now() - tx.Now()%86_400
	addr, _, err := tx.FindAddress(state.MarketAnalyticsSeed, address.U64Seed(uint64(period)))
	if err != nil {
		return
	}
	m := new(state.MarketAnalytics)
	if err := tx.Load(addr, m); err != nil {
		return
	}
	m.RecordSale(amount, tx.Now())
	tx.Save(addr, m)
}
