package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

func newNegotiation(t *testing.T) *NegotiationChatbot {
	t.Helper()
	n := new(NegotiationChatbot)
	err := n.Initialize(pk(1), pk(2), 10_000, 0, 5_000, []string{"net 30"}, 1_000, 255)
	require.NoError(t, err)
	return n
}

func TestNegotiationAlternation(t *testing.T) {
	n := newNegotiation(t)
	require.Equal(t, pk(1), n.LastOfferBy)

	// The initiator's offer is outstanding; only the counterparty may move.
	err := n.MakeCounterOffer(pk(1), 9_000, 1_100)
	require.True(t, gserr.HasCode(err, gserr.InvalidNegotiationStatus))

	require.NoError(t, n.MakeCounterOffer(pk(2), 8_000, 1_100))
	require.EqualValues(t, 8_000, n.CurrentOffer)
	require.Equal(t, NegotiationCounterOffer, n.Status)

	err = n.MakeCounterOffer(pk(2), 7_000, 1_200)
	require.True(t, gserr.HasCode(err, gserr.InvalidNegotiationStatus))

	require.NoError(t, n.MakeCounterOffer(pk(1), 9_000, 1_200))
	require.Equal(t, []uint64{8_000, 9_000}, n.CounterOffers)
}

func TestNegotiationAcceptRules(t *testing.T) {
	n := newNegotiation(t)

	// Cannot accept one's own outstanding offer.
	err := n.Accept(pk(1), 1_100)
	require.True(t, gserr.HasCode(err, gserr.InvalidNegotiationStatus))

	// A stranger may not touch the chain.
	err = n.Accept(pk(9), 1_100)
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))

	require.NoError(t, n.Accept(pk(2), 1_100))
	require.Equal(t, NegotiationAccepted, n.Status)

	// Closed chains reject further moves.
	err = n.MakeCounterOffer(pk(2), 8_000, 1_200)
	require.True(t, gserr.HasCode(err, gserr.InvalidNegotiationStatus))
}

func TestNegotiationRejectByEitherParty(t *testing.T) {
	n := newNegotiation(t)
	require.NoError(t, n.Reject(pk(1), 1_100))
	require.Equal(t, NegotiationRejected, n.Status)

	m := newNegotiation(t)
	require.NoError(t, m.Reject(pk(2), 1_100))
	require.Equal(t, NegotiationRejected, m.Status)
}

func TestNegotiationExpiry(t *testing.T) {
	n := newNegotiation(t)

	err := n.MakeCounterOffer(pk(2), 8_000, n.Deadline)
	require.True(t, gserr.HasCode(err, gserr.NegotiationExpired))
	err = n.Accept(pk(2), n.Deadline)
	require.True(t, gserr.HasCode(err, gserr.NegotiationExpired))

	require.False(t, n.CheckExpiry(n.Deadline-1))
	require.True(t, n.CheckExpiry(n.Deadline))
	require.Equal(t, NegotiationExpired, n.Status)

	// Idempotent on an already-expired chain.
	require.False(t, n.CheckExpiry(n.Deadline+100))
}

func TestNegotiationCounterOfferCap(t *testing.T) {
	n := newNegotiation(t)
	by, other := pk(2), pk(1)
	for i := 0; i < validate.MaxCounterOffers; i++ {
		require.NoError(t, n.MakeCounterOffer(by, uint64(9_000+i), 1_100+int64(i)))
		by, other = other, by
	}
	err := n.MakeCounterOffer(by, 20_000, 2_000)
	require.True(t, gserr.HasCode(err, gserr.TooManyCounterOffers))
}
