package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

func pk(b byte) keys.Pubkey {
	var p keys.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func TestAgentRoundTrip(t *testing.T) {
	a := new(Agent)
	require.NoError(t, a.Initialize(pk(1), "translator", "fast document translation", PricingPerTask, "ipfs://meta", 1_000, 254))
	a.Capabilities = []string{"translate", "summarize"}
	require.NoError(t, a.CreditEarnings(5_000_000, 1_100))
	require.NoError(t, a.AddReputation(5, 1_100))

	raw := a.MarshalRecord()
	require.LessOrEqual(t, len(raw), AgentLen)

	var back Agent
	require.NoError(t, back.UnmarshalRecord(raw))
	require.Equal(t, *a, back)
}

func TestServiceAuctionRoundTrip(t *testing.T) {
	a := new(ServiceAuction)
	require.NoError(t, a.Initialize(pk(2), pk(3), 7, AuctionEnglish, 10_000, 12_000, 10_000+7_200, 100, "", 10_000, 255))
	require.NoError(t, a.PlaceBid(pk(4), 10_000, 10_100))
	require.NoError(t, a.PlaceBid(pk(5), 10_200, 10_200))

	raw := a.MarshalRecord()
	require.LessOrEqual(t, len(raw), ServiceAuctionLen)

	var back ServiceAuction
	require.NoError(t, back.UnmarshalRecord(raw))
	require.Equal(t, *a, back)
}

func TestDiscriminatorMismatch(t *testing.T) {
	a := new(Agent)
	require.NoError(t, a.Initialize(pk(1), "n", "d", PricingFixed, "", 1, 255))
	raw := a.MarshalRecord()

	var wo WorkOrder
	err := wo.UnmarshalRecord(raw)
	require.Error(t, err)
}

func maxStr(n int) string { return strings.Repeat("x", n) }

func maxStrs(count, length int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = maxStr(length)
	}
	return out
}

// Every LEN constant reserves exactly the size of the largest legal
// inhabitant: strings at their caps, vectors full, every option set.
func TestMaxInhabitantsFillReservedLen(t *testing.T) {
	ts := int64(1)
	who := pk(9)
	resolution := maxStr(validate.MaxGeneralStringLength)

	evidence := make([]DisputeEvidence, validate.MaxEvidenceItems)
	for i := range evidence {
		evidence[i] = DisputeEvidence{
			Type: maxStr(maxEvidenceTypeLen),
			Data: maxStr(validate.MaxGeneralStringLength),
		}
	}

	cases := []struct {
		name string
		rec  Record
		want int
	}{
		{"agent", &Agent{
			Name:            maxStr(validate.MaxNameLength),
			Description:     maxStr(validate.MaxGeneralStringLength),
			Capabilities:    maxStrs(validate.MaxCapabilitiesCount, validate.MaxGeneralStringLength),
			GenomeHash:      maxStr(validate.MaxGeneralStringLength),
			ServiceEndpoint: maxStr(validate.MaxGeneralStringLength),
			MetadataURI:     maxStr(validate.MaxGeneralStringLength),
		}, AgentLen},
		{"agent_verification", &AgentVerification{
			Endpoint:      maxStr(validate.MaxGeneralStringLength),
			CapabilityIDs: make([]uint64, validate.MaxCapabilitiesCount),
		}, AgentVerificationLen},
		{"user_registry", &UserRegistry{}, UserRegistryLen},
		{"work_order", &WorkOrder{
			Title:        maxStr(validate.MaxTitleLength),
			Description:  maxStr(validate.MaxDescriptionLength),
			Requirements: maxStrs(validate.MaxRequirementsItems, validate.MaxGeneralStringLength),
			DeliveredAt:  &ts,
		}, WorkOrderLen},
		{"work_delivery", &WorkDelivery{
			Deliverables: make([]Deliverable, validate.MaxDeliverables),
			IpfsHash:     maxStr(validate.MaxIpfsHashLength),
			MetadataURI:  maxStr(validate.MaxGeneralStringLength),
		}, WorkDeliveryLen},
		{"payment", &Payment{}, PaymentLen},
		{"service_auction", &ServiceAuction{
			CurrentBidder: &who,
			Winner:        &who,
			Bids:          make([]AuctionBid, MaxBidsCount),
			EndedAt:       &ts,
			MetadataURI:   maxStr(validate.MaxGeneralStringLength),
		}, ServiceAuctionLen},
		{"negotiation", &NegotiationChatbot{
			Terms:         maxStrs(validate.MaxTermsCount, validate.MaxGeneralStringLength),
			CounterOffers: make([]uint64, validate.MaxCounterOffers),
		}, NegotiationLen},
		{"dispute", &DisputeCase{
			Moderator:  &who,
			Reason:     maxStr(validate.MaxGeneralStringLength),
			Evidence:   evidence,
			Resolution: &resolution,
			ResolvedAt: &ts,
		}, DisputeCaseLen},
		{"channel", &Channel{
			Participants: make([]keys.Pubkey, validate.MaxParticipantsCount),
		}, ChannelLen},
		{"channel_message", &ChannelMessage{Content: maxStr(validate.MaxMessageLength)}, ChannelMessageLen},
		{"a2a_session", &A2ASession{}, A2ASessionLen},
		{"a2a_message", &A2AMessage{Content: maxStr(validate.MaxMessageLength)}, A2AMessageLen},
		{"a2a_status", &A2AStatus{StatusText: maxStr(validate.MaxGeneralStringLength)}, A2AStatusLen},
		{"replication_template", &ReplicationTemplate{GenomeHash: maxStr(validate.MaxGeneralStringLength)}, ReplicationTemplateLen},
		{"replication_record", &ReplicationRecord{}, ReplicationRecordLen},
		{"market_analytics", &MarketAnalytics{TopAgents: make([]keys.Pubkey, validate.MaxTopAgents)}, MarketAnalyticsLen},
		{"agent_analytics", &AgentAnalytics{}, AgentAnalyticsLen},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, len(tc.rec.MarshalRecord()), tc.name)
	}
}

func TestNewRecordCoversCatalog(t *testing.T) {
	for typ := RecordAgent; typ <= RecordAgentAnalytics; typ++ {
		rec, err := NewRecord(typ)
		require.NoError(t, err, typ.String())
		require.Equal(t, typ, rec.Type())

		parsed, err := ParseRecordType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
	_, err := NewRecord(0)
	require.Error(t, err)
	_, err = ParseRecordType("nope")
	require.Error(t, err)
}
