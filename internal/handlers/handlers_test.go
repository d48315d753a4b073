package handlers_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/handlers"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/store/memory"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

const day = int64(86_400)

func pk(b byte) keys.Pubkey {
	var p keys.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

var (
	authority = pk(0xAD)
	mint      = pk(0xEE)
	client    = pk(1)
	provider  = pk(2)
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	eng    *handlers.Engine
	store  *memory.Store
	ledger *memory.Ledger
	clock  *runtime.ManualClock
	sink   *events.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		store:  memory.NewStore(),
		ledger: memory.NewLedger(),
		clock:  &runtime.ManualClock{T: 1_000},
		sink:   &events.Buffer{},
	}
	env := runtime.NewEnv(h.store, h.ledger, h.clock, h.sink, pk(0xAA))
	h.eng = handlers.New(env, authority)
	require.NoError(t, h.ledger.RegisterMint(h.ctx, mint, 6))
	return h
}

func (h *harness) fund(owner keys.Pubkey, amount uint64) {
	require.NoError(h.t, h.ledger.Mint(h.ctx, mint, owner, amount))
}

func (h *harness) balance(owner keys.Pubkey) uint64 {
	bal, err := h.ledger.BalanceOf(h.ctx, mint, owner)
	require.NoError(h.t, err)
	return bal
}

// submit runs a command and returns the address from its result.
func (h *harness) submit(cmd handlers.Command, signers ...keys.Pubkey) keys.Pubkey {
	h.t.Helper()
	res, err := h.eng.Submit(h.ctx, signers, cmd)
	require.NoError(h.t, err)
	raw, err := json.Marshal(res)
	require.NoError(h.t, err)
	var out struct {
		Address keys.Pubkey `json:"address"`
	}
	require.NoError(h.t, json.Unmarshal(raw, &out))
	return out.Address
}

func (h *harness) submitErr(cmd handlers.Command, signers ...keys.Pubkey) error {
	h.t.Helper()
	_, err := h.eng.Submit(h.ctx, signers, cmd)
	return err
}

func (h *harness) loadWorkOrder(addr keys.Pubkey) *state.WorkOrder {
	h.t.Helper()
	rec, err := h.store.Get(h.ctx, addr)
	require.NoError(h.t, err)
	wo := new(state.WorkOrder)
	require.NoError(h.t, wo.UnmarshalRecord(rec.Data))
	return wo
}

func (h *harness) registerAgent(owner keys.Pubkey, name string) keys.Pubkey {
	h.t.Helper()
	return h.submit(handlers.RegisterAgent{
		Owner:   owner,
		Name:    name,
		Pricing: state.PricingPerTask,
	}, owner)
}

// openWorkOrder walks an order to Open with escrow funded.
func (h *harness) openFundedOrder(amount uint64) keys.Pubkey {
	h.t.Helper()
	wo := h.submit(handlers.CreateWorkOrder{
		Client: client, Provider: provider, OrderID: 1,
		Title: "audit", Description: "contract audit",
		PaymentAmount: amount, PaymentToken: mint,
		Deadline: h.clock.T + day,
	}, client)
	h.submit(handlers.OpenWorkOrder{Client: client, WorkOrder: wo}, client)
	h.submit(handlers.FundEscrow{Client: client, WorkOrder: wo}, client)
	return wo
}

// deliverAndApprove walks a funded order to Approved.
func (h *harness) deliverAndApprove(wo keys.Pubkey) {
	h.t.Helper()
	h.submit(handlers.SubmitWorkDelivery{
		Provider: provider, WorkOrder: wo,
		Deliverables: []state.Deliverable{state.DeliverableCode},
		IpfsHash:     "QmReport",
	}, provider)
	h.submit(handlers.StartReview{Provider: provider, WorkOrder: wo}, provider)
	h.submit(handlers.ApproveDelivery{Client: client, WorkOrder: wo}, client)
}

func TestStartReviewIsProviderSigned(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	wo := h.openFundedOrder(5_000_000)
	h.submit(handlers.SubmitWorkDelivery{
		Provider: provider, WorkOrder: wo,
		Deliverables: []state.Deliverable{state.DeliverableCode},
		IpfsHash:     "QmReport",
	}, provider)

	// The client cannot start the work phase on the provider's behalf.
	err := h.submitErr(handlers.StartReview{Provider: client, WorkOrder: wo}, client)
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))
	require.Equal(t, state.WorkOrderSubmitted, h.loadWorkOrder(wo).Status)

	h.submit(handlers.StartReview{Provider: provider, WorkOrder: wo}, provider)
	require.Equal(t, state.WorkOrderInProgress, h.loadWorkOrder(wo).Status)
}

func TestWorkOrderPipelineWithEscrow(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	h.registerAgent(provider, "auditor")

	const amount = uint64(5_000_000)
	wo := h.openFundedOrder(amount)

	// Escrow custody is a ledger account, not a handler balance.
	require.EqualValues(t, 10_000_000-amount, h.balance(client))
	require.Zero(t, h.balance(provider))

	h.deliverAndApprove(wo)
	pay := h.submit(handlers.ReleasePayment{Client: client, WorkOrder: wo}, client)

	require.EqualValues(t, amount, h.balance(provider))
	require.EqualValues(t, 10_000_000-amount, h.balance(client))

	got := h.loadWorkOrder(wo)
	require.Equal(t, state.WorkOrderCompleted, got.Status)
	require.Zero(t, got.Escrowed)

	// Payment record persisted.
	rec, err := h.store.Get(h.ctx, pay)
	require.NoError(t, err)
	var p state.Payment
	require.NoError(t, p.UnmarshalRecord(rec.Data))
	require.EqualValues(t, amount, p.Amount)
	require.Equal(t, provider, p.Recipient)

	// Provider agent accrued earnings and capped reputation.
	agentRec, err := h.store.Get(h.ctx, h.agentAddr(provider))
	require.NoError(t, err)
	var agent state.Agent
	require.NoError(t, agent.UnmarshalRecord(agentRec.Data))
	require.EqualValues(t, amount, agent.TotalEarnings)
	require.EqualValues(t, 1, agent.TotalJobsCompleted)
	require.EqualValues(t, 5, agent.ReputationScore) // 5M units = 5 bp
}

func (h *harness) agentAddr(owner keys.Pubkey) keys.Pubkey {
	h.t.Helper()
	tx := h.eng.Env().Begin(h.ctx)
	addr, _, err := tx.FindAddress(state.AgentSeed, owner.Bytes())
	require.NoError(h.t, err)
	return addr
}

func TestFundEscrowOnce(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 20_000_000)
	wo := h.openFundedOrder(5_000_000)

	err := h.submitErr(handlers.FundEscrow{Client: client, WorkOrder: wo}, client)
	require.True(t, gserr.HasCode(err, gserr.InvalidValue))
	require.EqualValues(t, 15_000_000, h.balance(client))
}

func TestFundEscrowInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 1_000)
	wo := h.submit(handlers.CreateWorkOrder{
		Client: client, Provider: provider, OrderID: 1,
		Title: "t", Description: "d",
		PaymentAmount: 5_000_000, PaymentToken: mint,
		Deadline: h.clock.T + day,
	}, client)

	err := h.submitErr(handlers.FundEscrow{Client: client, WorkOrder: wo}, client)
	require.True(t, gserr.HasCode(err, gserr.InsufficientFunds))
	// Failed command leaves no partial state.
	require.EqualValues(t, 1_000, h.balance(client))
	require.Zero(t, h.loadWorkOrder(wo).Escrowed)
}

func TestReleaseRequiresApproval(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	wo := h.openFundedOrder(5_000_000)

	err := h.submitErr(handlers.ReleasePayment{Client: client, WorkOrder: wo}, client)
	require.True(t, gserr.HasCode(err, gserr.InvalidWorkOrderStatus))

	// Provider cannot release to themselves.
	h.deliverAndApprove(wo)
	err = h.submitErr(handlers.ReleasePayment{Client: provider, WorkOrder: wo}, provider)
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))
}

func TestCancelRefundsEscrow(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	wo := h.openFundedOrder(5_000_000)
	require.EqualValues(t, 5_000_000, h.balance(client))

	h.submit(handlers.CancelWorkOrder{Client: client, WorkOrder: wo}, client)
	require.EqualValues(t, 10_000_000, h.balance(client))
	got := h.loadWorkOrder(wo)
	require.Equal(t, state.WorkOrderCancelled, got.Status)
	require.Zero(t, got.Escrowed)
}

func TestMissingSignerRejected(t *testing.T) {
	h := newHarness(t)
	err := h.submitErr(handlers.RegisterAgent{Owner: client, Name: "n", Pricing: state.PricingFixed})
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))

	err = h.submitErr(handlers.RegisterAgent{Owner: client, Name: "n", Pricing: state.PricingFixed}, provider)
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))
}

func TestRegisterAgentOncePerOwner(t *testing.T) {
	h := newHarness(t)
	h.registerAgent(client, "first")
	err := h.submitErr(handlers.RegisterAgent{Owner: client, Name: "second", Pricing: state.PricingFixed}, client)
	require.True(t, gserr.HasCode(err, gserr.AccountAlreadyInitialized))
}

func TestAuctionLifecycle(t *testing.T) {
	h := newHarness(t)
	agent := h.registerAgent(client, "seller")

	// Inactive agents cannot be listed.
	h.submit(handlers.DeactivateAgent{Owner: client}, client)
	err := h.submitErr(handlers.CreateServiceAuction{
		Creator: client, Agent: agent, AuctionID: 1,
		ReservePrice: 10_000, EndTime: h.clock.T + 2*3_600, MinBidIncrement: 100,
	}, client)
	require.True(t, gserr.HasCode(err, gserr.AgentNotActive))
	h.submit(handlers.ActivateAgent{Owner: client}, client)

	auction := h.submit(handlers.CreateServiceAuction{
		Creator: client, Agent: agent, AuctionID: 1,
		ReservePrice: 10_000, EndTime: h.clock.T + 2*3_600, MinBidIncrement: 100,
	}, client)

	// Creator is barred from their own auction.
	err = h.submitErr(handlers.PlaceAuctionBid{Bidder: client, Auction: auction, Amount: 10_000}, client)
	require.True(t, gserr.HasCode(err, gserr.InvalidBid))

	h.submit(handlers.PlaceAuctionBid{Bidder: provider, Auction: auction, Amount: 10_000}, provider)
	h.submit(handlers.PlaceAuctionBid{Bidder: pk(3), Auction: auction, Amount: 10_100}, pk(3))

	// Cannot end early.
	err = h.submitErr(handlers.EndAuction{Signer: pk(9), Auction: auction}, pk(9))
	require.True(t, gserr.HasCode(err, gserr.AuctionNotEnded))

	h.clock.Advance(2*3_600 + 1)
	h.submit(handlers.EndAuction{Signer: pk(9), Auction: auction}, pk(9))
	h.submit(handlers.SettleAuction{Creator: client, Auction: auction}, client)

	rec, err := h.store.Get(h.ctx, auction)
	require.NoError(t, err)
	var a state.ServiceAuction
	require.NoError(t, a.UnmarshalRecord(rec.Data))
	require.Equal(t, state.AuctionSettled, a.Status)
	require.Equal(t, pk(3), *a.Winner)
}

func TestNegotiationExpirySweep(t *testing.T) {
	h := newHarness(t)
	neg := h.submit(handlers.InitiateNegotiation{
		Initiator: client, Counterparty: provider,
		InitialOffer: 10_000, Deadline: h.clock.T + 600,
	}, client)

	h.submit(handlers.MakeCounterOffer{By: provider, Negotiation: neg, Offer: 8_000}, provider)

	h.clock.Advance(601)
	err := h.submitErr(handlers.AcceptOffer{By: client, Negotiation: neg}, client)
	require.True(t, gserr.HasCode(err, gserr.NegotiationExpired))

	before := len(h.sink.Events)
	h.submit(handlers.CheckNegotiationExpiry{Signer: pk(9), Negotiation: neg}, pk(9))
	require.Len(t, h.sink.Events, before+1)

	rec, err := h.store.Get(h.ctx, neg)
	require.NoError(t, err)
	var n state.NegotiationChatbot
	require.NoError(t, n.UnmarshalRecord(rec.Data))
	require.Equal(t, state.NegotiationExpired, n.Status)

	// Sweeping again changes nothing and emits nothing.
	before = len(h.sink.Events)
	h.submit(handlers.CheckNegotiationExpiry{Signer: pk(9), Negotiation: neg}, pk(9))
	require.Len(t, h.sink.Events, before)
}

func TestNegotiationOnePerPair(t *testing.T) {
	h := newHarness(t)
	h.submit(handlers.InitiateNegotiation{
		Initiator: client, Counterparty: provider,
		InitialOffer: 10_000, Deadline: h.clock.T + 600,
	}, client)

	// The pair already has a live chain; the address collides.
	err := h.submitErr(handlers.InitiateNegotiation{
		Initiator: client, Counterparty: provider,
		InitialOffer: 20_000, Deadline: h.clock.T + 600,
	}, client)
	require.True(t, gserr.HasCode(err, gserr.AccountAlreadyInitialized))

	// The reversed pair is a distinct chain.
	h.submit(handlers.InitiateNegotiation{
		Initiator: provider, Counterparty: client,
		InitialOffer: 9_000, Deadline: h.clock.T + 600,
	}, provider)
}

func TestDisputeLifecycleWithSplit(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	wo := h.openFundedOrder(1_000_000)
	h.deliverAndApprove(wo)

	// A stranger is not a party.
	err := h.submitErr(handlers.FileDispute{Complainant: pk(9), WorkOrder: wo, Reason: "no"}, pk(9))
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))

	dispute := h.submit(handlers.FileDispute{Complainant: client, WorkOrder: wo, Reason: "incomplete"}, client)

	// Same complainant cannot file twice; the address collides.
	err = h.submitErr(handlers.FileDispute{Complainant: client, WorkOrder: wo, Reason: "again"}, client)
	require.True(t, gserr.HasCode(err, gserr.AccountAlreadyInitialized))

	// Moderator assignment is an authority action.
	moderator := pk(5)
	err = h.submitErr(handlers.AssignModerator{Dispute: dispute, Moderator: moderator}, client)
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))
	h.submit(handlers.AssignModerator{Dispute: dispute, Moderator: moderator}, authority)

	h.submit(handlers.SubmitDisputeEvidence{
		Submitter: provider, Dispute: dispute, EvidenceType: "delivery", Data: "ipfs://proof",
	}, provider)
	h.submit(handlers.VerifyDisputeEvidence{Moderator: moderator, Dispute: dispute, Index: 0}, moderator)

	// 60/40 split of the 1,000,000 escrow.
	h.submit(handlers.ResolveDispute{
		Moderator: moderator, Dispute: dispute,
		Outcome: state.ResolutionSplit, SplitBps: 6_000, Resolution: "partial",
	}, moderator)

	require.EqualValues(t, 600_000, h.balance(provider))
	require.EqualValues(t, 9_000_000+400_000, h.balance(client))

	got := h.loadWorkOrder(wo)
	require.Equal(t, state.WorkOrderCompleted, got.Status)
	require.Zero(t, got.Escrowed)

	h.submit(handlers.CloseDispute{Moderator: moderator, Dispute: dispute}, moderator)
}

func TestDisputeWindow(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	wo := h.openFundedOrder(1_000_000)
	h.deliverAndApprove(wo)

	h.clock.Advance(validate.DisputeWindow + 1)
	err := h.submitErr(handlers.FileDispute{Complainant: client, WorkOrder: wo, Reason: "late"}, client)
	require.True(t, gserr.HasCode(err, gserr.DisputeWindowClosed))
}

func TestDisputeBeforeDelivery(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)
	wo := h.openFundedOrder(1_000_000)

	err := h.submitErr(handlers.FileDispute{Complainant: client, WorkOrder: wo, Reason: "early"}, client)
	require.True(t, gserr.HasCode(err, gserr.InvalidWorkOrderStatus))
}

func TestAnalyticsShardFoldsReleases(t *testing.T) {
	h := newHarness(t)
	h.fund(client, 10_000_000)

	period := h.clock.T - h.clock.T%day
	shard := h.submit(handlers.ProvisionMarketAnalytics{
		PeriodStart: period, PeriodEnd: period + day,
	}, authority)

	wo := h.openFundedOrder(2_000_000)
	h.deliverAndApprove(wo)
	h.submit(handlers.ReleasePayment{Client: client, WorkOrder: wo}, client)

	rec, err := h.store.Get(h.ctx, shard)
	require.NoError(t, err)
	var m state.MarketAnalytics
	require.NoError(t, m.UnmarshalRecord(rec.Data))
	require.EqualValues(t, 1, m.TotalTransactions)
	require.EqualValues(t, 2_000_000, m.TotalVolume)
	require.EqualValues(t, 2_000_000, m.AveragePrice)
}

func TestAnalyticsAuthorityOnly(t *testing.T) {
	h := newHarness(t)
	err := h.submitErr(handlers.ProvisionMarketAnalytics{PeriodStart: 0, PeriodEnd: day}, client)
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))

	err = h.submitErr(handlers.UpdateAgentAnalytics{Agent: pk(3), SuccessRateBps: 10_001}, authority)
	require.True(t, gserr.HasCode(err, gserr.InvalidValue))
}

func TestReplicationFeeFlow(t *testing.T) {
	h := newHarness(t)
	buyer := pk(7)
	h.fund(buyer, 1_000_000)
	h.registerAgent(client, "original")

	tpl := h.submit(handlers.CreateReplicationTemplate{
		Owner: client, GenomeHash: "hash-v1", Fee: 250_000, MaxReplicas: 10,
	}, client)

	replica := h.submit(handlers.ReplicateAgent{
		Buyer: buyer, Template: tpl,
		Name: "clone", Pricing: state.PricingPerTask, FeeMint: mint,
	}, buyer)

	require.EqualValues(t, 750_000, h.balance(buyer))
	require.EqualValues(t, 250_000, h.balance(client))

	rec, err := h.store.Get(h.ctx, replica)
	require.NoError(t, err)
	var agent state.Agent
	require.NoError(t, agent.UnmarshalRecord(rec.Data))
	require.Equal(t, buyer, agent.Owner)
	require.Equal(t, "hash-v1", agent.GenomeHash)
}

func TestDecodeRegistry(t *testing.T) {
	cmd, err := handlers.Decode("register_agent", []byte(`{"name":"x","pricing":2}`))
	require.NoError(t, err)
	reg, ok := cmd.(*handlers.RegisterAgent)
	require.True(t, ok)
	require.Equal(t, "x", reg.Name)
	require.Equal(t, state.PricingPerTask, reg.Pricing)

	_, err = handlers.Decode("no_such_command", nil)
	require.True(t, gserr.HasCode(err, gserr.InvalidValue))

	_, err = handlers.Decode("register_agent", []byte(`{`))
	require.True(t, gserr.HasCode(err, gserr.InvalidValue))

	require.Contains(t, handlers.CommandNames(), "release_payment")
}
