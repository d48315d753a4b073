package state

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
)

func TestAgentInitializeValidation(t *testing.T) {
	a := new(Agent)
	err := a.Initialize(pk(1), strings.Repeat("n", 65), "d", PricingFixed, "", 100, 255)
	require.True(t, gserr.HasCode(err, gserr.NameTooLong))

	err = a.Initialize(pk(1), "n", "d", PricingModel(99), "", 100, 255)
	require.True(t, gserr.HasCode(err, gserr.InvalidValue))

	require.NoError(t, a.Initialize(pk(1), "n", "d", PricingFixed, "", 100, 255))
	require.True(t, a.IsActive)
	require.False(t, a.IsVerified)
	require.Zero(t, a.ReputationScore)
	require.Zero(t, a.TotalEarnings)
}

func TestAgentActivateDeactivate(t *testing.T) {
	a := new(Agent)
	require.NoError(t, a.Initialize(pk(1), "n", "d", PricingFixed, "", 100, 255))

	err := a.Activate(110)
	require.True(t, gserr.HasCode(err, gserr.AgentAlreadyActive))

	require.NoError(t, a.Deactivate(120))
	require.False(t, a.IsActive)
	require.EqualValues(t, 120, a.UpdatedAt)

	err = a.Deactivate(130)
	require.True(t, gserr.HasCode(err, gserr.AgentNotActive))

	require.NoError(t, a.Activate(140))
	require.True(t, a.IsActive)
}

func TestAgentCreditEarnings(t *testing.T) {
	a := new(Agent)
	require.NoError(t, a.Initialize(pk(1), "n", "d", PricingFixed, "", 100, 255))

	require.NoError(t, a.CreditEarnings(5_000, 200))
	require.EqualValues(t, 5_000, a.TotalEarnings)
	require.EqualValues(t, 1, a.TotalJobsCompleted)
}

func TestAgentCreditEarningsOverflowLeavesStateUnchanged(t *testing.T) {
	a := new(Agent)
	require.NoError(t, a.Initialize(pk(1), "n", "d", PricingFixed, "", 100, 255))
	require.NoError(t, a.CreditEarnings(math.MaxUint64, 200))

	before := *a
	err := a.CreditEarnings(1, 300)
	require.True(t, gserr.HasCode(err, gserr.ArithmeticOverflow))
	require.Equal(t, before, *a)
}

func TestAgentVerificationLifecycle(t *testing.T) {
	v := new(AgentVerification)
	err := v.Initialize(pk(1), pk(2), "https://node.example", []uint64{1, 2}, 100, 100, 255)
	require.True(t, gserr.HasCode(err, gserr.InvalidExpiration))

	require.NoError(t, v.Initialize(pk(1), pk(2), "https://node.example", []uint64{1, 2}, 1_000, 100, 255))
	require.True(t, v.IsValid(999))
	require.False(t, v.IsValid(1_000))

	v.Revoke()
	require.False(t, v.IsValid(500))
}
