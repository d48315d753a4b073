package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

func TestMarketAnalyticsInitialize(t *testing.T) {
	m := new(MarketAnalytics)
	err := m.Initialize(1_000, 1_000, 1_000, 255)
	require.True(t, gserr.HasCode(err, gserr.InvalidPeriod))
	require.NoError(t, m.Initialize(1_000, 87_400, 1_000, 255))
}

func TestMarketAnalyticsRunningAverage(t *testing.T) {
	m := new(MarketAnalytics)
	require.NoError(t, m.Initialize(0, 86_400, 0, 255))

	prices := []uint64{100, 200, 300, 1_000}
	var sum uint64
	for i, p := range prices {
		m.RecordSale(p, int64(10*i))
		sum += p
		require.EqualValues(t, uint64(i+1), m.TotalTransactions)
		require.EqualValues(t, sum/uint64(i+1), m.AveragePrice, "after sale %d", i)
	}
	require.EqualValues(t, sum, m.TotalVolume)
}

func TestMarketAnalyticsAverageSurvivesLargePrices(t *testing.T) {
	m := new(MarketAnalytics)
	require.NoError(t, m.Initialize(0, 86_400, 0, 255))

	// avg*n exceeds 64 bits once a few near-max prices accumulate; the
	// 128-bit intermediate keeps the average exact.
	big := uint64(math.MaxUint64 / 2)
	m.RecordSale(big, 10)
	m.RecordSale(big, 20)
	m.RecordSale(big, 30)
	require.EqualValues(t, big, m.AveragePrice)
	require.EqualValues(t, 3, m.TotalTransactions)

	// Volume saturates rather than wrapping.
	require.EqualValues(t, uint64(math.MaxUint64), m.TotalVolume)
}

func TestMarketAnalyticsTopAgents(t *testing.T) {
	m := new(MarketAnalytics)
	require.NoError(t, m.Initialize(0, 86_400, 0, 255))

	over := make([]keys.Pubkey, validate.MaxTopAgents+1)
	err := m.SetTopAgents(over, 100)
	require.True(t, gserr.HasCode(err, gserr.TooManyTopAgents))

	top := []keys.Pubkey{pk(1), pk(2)}
	require.NoError(t, m.SetTopAgents(top, 100))
	require.Equal(t, top, m.TopAgents)
	require.EqualValues(t, 100, m.UpdatedAt)
}
