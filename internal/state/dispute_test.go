package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

func newDispute(t *testing.T) *DisputeCase {
	t.Helper()
	d := new(DisputeCase)
	require.NoError(t, d.Initialize(pk(9), pk(1), pk(2), "deliverable incomplete", 1_000, 255))
	return d
}

func TestDisputeEvidenceFlow(t *testing.T) {
	d := newDispute(t)
	require.Equal(t, DisputeFiled, d.Status)

	require.NoError(t, d.AddEvidence(pk(1), "screenshot", "ipfs://evid1", 1_100))
	require.Equal(t, DisputeEvidenceSubmitted, d.Status)
	require.Len(t, d.Evidence, 1)
	require.Equal(t, pk(1), d.Evidence[0].Submitter)
	require.False(t, d.Evidence[0].IsVerified)

	// Moderator assignment requires a freshly filed case.
	err := d.AssignModerator(pk(5))
	require.True(t, gserr.HasCode(err, gserr.InvalidDisputeStatus))
}

func TestDisputeModeratorAssignment(t *testing.T) {
	d := newDispute(t)
	require.NoError(t, d.AssignModerator(pk(5)))
	require.Equal(t, DisputeUnderReview, d.Status)
	require.Equal(t, pk(5), *d.Moderator)

	err := d.AssignModerator(pk(6))
	require.True(t, gserr.HasCode(err, gserr.InvalidDisputeStatus))

	// Evidence still flows after assignment.
	require.NoError(t, d.AddEvidence(pk(2), "log", "ipfs://evid2", 1_200))
	require.NoError(t, d.VerifyEvidence(0))
	require.True(t, d.Evidence[0].IsVerified)

	err = d.VerifyEvidence(5)
	require.True(t, gserr.HasCode(err, gserr.InvalidValue))
}

func TestDisputeEvidenceCap(t *testing.T) {
	d := newDispute(t)
	for i := 0; i < validate.MaxEvidenceItems; i++ {
		require.NoError(t, d.AddEvidence(pk(1), "item", "data", 1_100+int64(i)))
	}
	err := d.AddEvidence(pk(1), "item", "data", 2_000)
	require.True(t, gserr.HasCode(err, gserr.TooManyEvidenceItems))
}

func TestDisputeResolveSplit(t *testing.T) {
	d := newDispute(t)
	require.NoError(t, d.AssignModerator(pk(5)))

	err := d.Resolve(ResolutionSplit, 10_001, "overweight", 2_000)
	require.True(t, gserr.HasCode(err, gserr.InvalidResolution))

	require.NoError(t, d.Resolve(ResolutionSplit, 6_000, "partial delivery", 2_000))
	require.Equal(t, DisputeResolved, d.Status)
	require.NotNil(t, d.ResolvedAt)

	// 60/40 split with the integer remainder going to the client.
	toProvider, toClient, err := d.ProviderShare(10_001)
	require.NoError(t, err)
	require.EqualValues(t, 6_000, toProvider)
	require.EqualValues(t, 4_001, toClient)
	require.EqualValues(t, 10_001, toProvider+toClient)

	// Resolving twice is rejected.
	err = d.Resolve(ResolutionRefundToClient, 0, "", 2_100)
	require.True(t, gserr.HasCode(err, gserr.InvalidDisputeStatus))
}

func TestDisputeProviderShareEdges(t *testing.T) {
	d := newDispute(t)
	require.NoError(t, d.AssignModerator(pk(5)))
	require.NoError(t, d.Resolve(ResolutionReleaseToProvider, 0, "work accepted", 2_000))
	p, c, err := d.ProviderShare(7_777)
	require.NoError(t, err)
	require.EqualValues(t, 7_777, p)
	require.Zero(t, c)

	e := newDispute(t)
	require.NoError(t, e.AssignModerator(pk(5)))
	require.NoError(t, e.Resolve(ResolutionRefundToClient, 0, "no delivery", 2_000))
	p, c, err = e.ProviderShare(7_777)
	require.NoError(t, err)
	require.Zero(t, p)
	require.EqualValues(t, 7_777, c)
}

func TestDisputeEscalateAndClose(t *testing.T) {
	d := newDispute(t)
	require.NoError(t, d.Escalate())
	require.Equal(t, DisputeEscalated, d.Status)
	require.True(t, d.HumanReview)

	// Escalated cases may still be resolved, then closed.
	require.NoError(t, d.Resolve(ResolutionRefundToClient, 0, "fraudulent listing", 2_000))
	require.NoError(t, d.Close(2_100))
	require.Equal(t, DisputeClosed, d.Status)

	// Closing a closed case is rejected.
	err := d.Close(2_200)
	require.True(t, gserr.HasCode(err, gserr.InvalidDisputeStatus))

	// Evidence no longer accepted.
	err = d.AddEvidence(pk(1), "late", "data", 2_300)
	require.True(t, gserr.HasCode(err, gserr.InvalidDisputeStatus))
}

func TestDisputeCloseWithoutResolveStampsTime(t *testing.T) {
	d := newDispute(t)
	require.NoError(t, d.Escalate())
	require.NoError(t, d.Close(3_000))
	require.NotNil(t, d.ResolvedAt)
	require.EqualValues(t, 3_000, *d.ResolvedAt)
}
