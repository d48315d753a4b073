package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/address"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// ProvisionMarketAnalytics creates the shard for one period. Shards are
// keyed by period start; payment releases fold into the shard covering
// their day once it exists.
type ProvisionMarketAnalytics struct {
	PeriodStart int64 `json:"period_start"`
	PeriodEnd   int64 `json:"period_end"`
}

func (c ProvisionMarketAnalytics) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := eng.requireAuthority(tx); err != nil {
		return nil, err
	}
	addr, bump, err := tx.FindAddress(state.MarketAnalyticsSeed, address.U64Seed(uint64(c.PeriodStart)))
	if err != nil {
		return nil, err
	}
	m := new(state.MarketAnalytics)
	if err := m.Initialize(c.PeriodStart, c.PeriodEnd, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(addr, m); err != nil {
		return nil, err
	}
	return created{Address: addr}, nil
}

// SetTopAgents replaces a shard's leaderboard.
type SetTopAgents struct {
	PeriodStart int64         `json:"period_start"`
	Agents      []keys.Pubkey `json:"agents"`
}

func (c SetTopAgents) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := eng.requireAuthority(tx); err != nil {
		return nil, err
	}
	addr, _, err := tx.FindAddress(state.MarketAnalyticsSeed, address.U64Seed(uint64(c.PeriodStart)))
	if err != nil {
		return nil, err
	}
	m := new(state.MarketAnalytics)
	if err := tx.Load(addr, m); err != nil {
		return nil, err
	}
	if err := m.SetTopAgents(c.Agents, tx.Now()); err != nil {
		return nil, err
	}
	tx.Save(addr, m)
	return created{Address: addr}, nil
}

// UpdateAgentAnalytics upserts an agent's performance mirror from the
// authority's off-chain aggregation. Rates are basis points.
type UpdateAgentAnalytics struct {
	Agent             keys.Pubkey `json:"agent"`
	TotalTransactions uint64      `json:"total_transactions"`
	SuccessRateBps    uint32      `json:"success_rate_bps"`
	AvgResponseMs     uint64      `json:"avg_response_ms"`
	TotalEarnings     uint64      `json:"total_earnings"`
	ReputationBps     uint32      `json:"reputation_bps"`
}

func (c UpdateAgentAnalytics) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := eng.requireAuthority(tx); err != nil {
		return nil, err
	}
	if c.SuccessRateBps > 10_000 {
		return nil, gserr.Newf(gserr.InvalidValue, "success rate %d bp exceeds 10000", c.SuccessRateBps)
	}
	addr, bump, err := tx.FindAddress(state.AgentAnalyticsSeed, c.Agent.Bytes())
	if err != nil {
		return nil, err
	}
	a := new(state.AgentAnalytics)
	err = tx.Load(addr, a)
	switch {
	case gserr.HasCode(err, gserr.AccountNotInitialized):
		a.Agent = c.Agent
		a.Bump = bump
	case err != nil:
		return nil, err
	}
	a.TotalTransactions = c.TotalTransactions
	a.SuccessRateBps = c.SuccessRateBps
	a.AvgResponseMs = c.AvgResponseMs
	a.TotalEarnings = c.TotalEarnings
	a.ReputationBps = c.ReputationBps
	a.UpdatedAt = tx.Now()
	if gserr.HasCode(err, gserr.AccountNotInitialized) {
		if err := tx.Create(addr, a); err != nil {
			return nil, err
		}
	} else {
		tx.Save(addr, a)
	}
	return created{Address: addr}, nil
}
