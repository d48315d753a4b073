package state

import (
	"math/bits"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// MarketAnalytics is one per-period shard of market totals. Totals use
// saturating arithmetic so contention-induced reordering cannot abort or
// underflow; these fields never feed authority or payment decisions.
type MarketAnalytics struct {
	PeriodStart       int64
	PeriodEnd         int64
	TotalTransactions uint64
	TotalVolume       uint64
	AveragePrice      uint64
	ActiveAgents      uint64
	TopAgents         []keys.Pubkey
	UpdatedAt         int64
	Bump              uint8
}

const MarketAnalyticsLen = codec.DiscriminatorLen +
	codec.I64Len + // period_start
	codec.I64Len + // period_end
	codec.U64Len + // total_transactions
	codec.U64Len + // total_volume
	codec.U64Len + // average_price
	codec.U64Len + // active_agents
	codec.U32Len + validate.MaxTopAgents*codec.PubkeyFieldLen + // top_agents
	codec.I64Len + // updated_at
	codec.U8Len // bump

func (m *MarketAnalytics) Type() RecordType { return RecordMarketAnalytics }

func (m *MarketAnalytics) Initialize(periodStart, periodEnd, now int64, bump uint8) error {
	if periodEnd <= periodStart {
		return gserr.New(gserr.InvalidPeriod)
	}
	m.PeriodStart = periodStart
	m.PeriodEnd = periodEnd
	m.TotalTransactions = 0
	m.TotalVolume = 0
	m.AveragePrice = 0
	m.ActiveAgents = 0
	m.TopAgents = nil
	m.UpdatedAt = now
	m.Bump = bump
	return nil
}

// RecordSale folds one sale into the running totals. The average is
// recomputed as (avg*n + price) / (n+1) in 128-bit intermediate space,
// where n is the pre-sale transaction count; the counter increments
// afterwards, so the divisor is always the post-sale count.
func (m *MarketAnalytics) RecordSale(price uint64, now int64) {
	hi, lo := bits.Mul64(m.AveragePrice, m.TotalTransactions)
	lo, carry := bits.Add64(lo, price, 0)
	hi += carry
	n := m.TotalTransactions + 1
	if hi < n { // quotient fits in 64 bits
		q, _ := bits.Div64(hi, lo, n)
		m.AveragePrice = q
	}
	m.TotalTransactions = n
	m.TotalVolume = validate.SatAddU64(m.TotalVolume, price)
	m.UpdatedAt = now
}

// SetTopAgents replaces the leaderboard, bounded.
func (m *MarketAnalytics) SetTopAgents(agents []keys.Pubkey, now int64) error {
	if len(agents) > validate.MaxTopAgents {
		return gserr.New(gserr.TooManyTopAgents)
	}
	m.TopAgents = agents
	m.UpdatedAt = now
	return nil
}

func (m *MarketAnalytics) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordMarketAnalytics)
	w.I64(m.PeriodStart)
	w.I64(m.PeriodEnd)
	w.U64(m.TotalTransactions)
	w.U64(m.TotalVolume)
	w.U64(m.AveragePrice)
	w.U64(m.ActiveAgents)
	w.PubkeySlice(m.TopAgents)
	w.I64(m.UpdatedAt)
	w.U8(m.Bump)
	return w.Bytes()
}

func (m *MarketAnalytics) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordMarketAnalytics); err != nil {
		return err
	}
	m.PeriodStart = r.I64()
	m.PeriodEnd = r.I64()
	m.TotalTransactions = r.U64()
	m.TotalVolume = r.U64()
	m.AveragePrice = r.U64()
	m.ActiveAgents = r.U64()
	m.TopAgents = r.PubkeySlice()
	m.UpdatedAt = r.I64()
	m.Bump = r.U8()
	return r.Err()
}

// AgentAnalytics mirrors an agent's performance counters. Rates are
// basis points (0-10000).
type AgentAnalytics struct {
	Agent             keys.Pubkey
	TotalTransactions uint64
	SuccessRateBps    uint32
	AvgResponseMs     uint64
	TotalEarnings     uint64
	ReputationBps     uint32
	UpdatedAt         int64
	Bump              uint8
}

const AgentAnalyticsLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // agent
	codec.U64Len + // total_transactions
	codec.U32Len + // success_rate_bps
	codec.U64Len + // avg_response_ms
	codec.U64Len + // total_earnings
	codec.U32Len + // reputation_bps
	codec.I64Len + // updated_at
	codec.U8Len // bump

func (a *AgentAnalytics) Type() RecordType { return RecordAgentAnalytics }

func (a *AgentAnalytics) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordAgentAnalytics)
	w.Pubkey(a.Agent)
	w.U64(a.TotalTransactions)
	w.U32(a.SuccessRateBps)
	w.U64(a.AvgResponseMs)
	w.U64(a.TotalEarnings)
	w.U32(a.ReputationBps)
	w.I64(a.UpdatedAt)
	w.U8(a.Bump)
	return w.Bytes()
}

func (a *AgentAnalytics) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordAgentAnalytics); err != nil {
		return err
	}
	a.Agent = r.Pubkey()
	a.TotalTransactions = r.U64()
	a.SuccessRateBps = r.U32()
	a.AvgResponseMs = r.U64()
	a.TotalEarnings = r.U64()
	a.ReputationBps = r.U32()
	a.UpdatedAt = r.I64()
	a.Bump = r.U8()
	return r.Err()
}
