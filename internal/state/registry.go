package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// UserRegistry tracks per-user resource counters and the rate-limit
// window. One registry per user, created lazily on first action.
type UserRegistry struct {
	User              keys.Pubkey
	AgentCount        uint16
	ListingCount      uint16
	WorkOrderCount    uint16
	ChannelCount      uint16
	TotalVolumeTraded uint64
	LastActivity      int64
	CreatedAt         int64
	IsRateLimited     bool
	RateLimitExpiry   int64
	Bump              uint8
}

const UserRegistryLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // user
	codec.U16Len + // agent_count
	codec.U16Len + // listing_count
	codec.U16Len + // work_order_count
	codec.U16Len + // channel_count
	codec.U64Len + // total_volume_traded
	codec.I64Len + // last_activity
	codec.I64Len + // created_at
	codec.BoolLen + // is_rate_limited
	codec.I64Len + // rate_limit_expiry
	codec.U8Len // bump

func (u *UserRegistry) Type() RecordType { return RecordUserRegistry }

func (u *UserRegistry) Initialize(user keys.Pubkey, now int64, bump uint8) {
	u.User = user
	u.AgentCount = 0
	u.ListingCount = 0
	u.WorkOrderCount = 0
	u.ChannelCount = 0
	u.TotalVolumeTraded = 0
	u.LastActivity = now
	u.CreatedAt = now
	u.IsRateLimited = false
	u.RateLimitExpiry = 0
	u.Bump = bump
}

func (u *UserRegistry) incr(c *uint16, cap uint16, code gserr.Code) error {
	v, err := validate.AddU16(*c, 1)
	if err != nil {
		return err
	}
	if v > cap {
		return gserr.Newf(code, "cap %d reached", cap)
	}
	*c = v
	return nil
}

func (u *UserRegistry) IncrementAgents() error {
	return u.incr(&u.AgentCount, validate.MaxAgentsPerUser, gserr.RateLimitExceeded)
}

func (u *UserRegistry) IncrementListings() error {
	return u.incr(&u.ListingCount, validate.MaxListingsPerAgent, gserr.RateLimitExceeded)
}

func (u *UserRegistry) IncrementWorkOrders() error {
	return u.incr(&u.WorkOrderCount, validate.MaxWorkOrdersPerUser, gserr.RateLimitExceeded)
}

func (u *UserRegistry) IncrementChannels() error {
	return u.incr(&u.ChannelCount, validate.MaxChannelsPerUser, gserr.RateLimitExceeded)
}

func (u *UserRegistry) AddVolume(amount uint64) error {
	v, err := validate.AddU64(u.TotalVolumeTraded, amount)
	if err != nil {
		return err
	}
	u.TotalVolumeTraded = v
	return nil
}

// CheckRateLimit refuses commands while the window is open.
func (u *UserRegistry) CheckRateLimit(now int64) error {
	if u.IsRateLimited && now < u.RateLimitExpiry {
		return gserr.Newf(gserr.RateLimitExceeded, "until %d", u.RateLimitExpiry)
	}
	return nil
}

func (u *UserRegistry) ApplyRateLimit(now, duration int64) {
	u.IsRateLimited = true
	u.RateLimitExpiry = now + duration
}

func (u *UserRegistry) Touch(now int64) { u.LastActivity = now }

func (u *UserRegistry) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordUserRegistry)
	w.Pubkey(u.User)
	w.U16(u.AgentCount)
	w.U16(u.ListingCount)
	w.U16(u.WorkOrderCount)
	w.U16(u.ChannelCount)
	w.U64(u.TotalVolumeTraded)
	w.I64(u.LastActivity)
	w.I64(u.CreatedAt)
	w.Bool(u.IsRateLimited)
	w.I64(u.RateLimitExpiry)
	w.U8(u.Bump)
	return w.Bytes()
}

func (u *UserRegistry) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordUserRegistry); err != nil {
		return err
	}
	u.User = r.Pubkey()
	u.AgentCount = r.U16()
	u.ListingCount = r.U16()
	u.WorkOrderCount = r.U16()
	u.ChannelCount = r.U16()
	u.TotalVolumeTraded = r.U64()
	u.LastActivity = r.I64()
	u.CreatedAt = r.I64()
	u.IsRateLimited = r.Bool()
	u.RateLimitExpiry = r.I64()
	u.Bump = r.U8()
	return r.Err()
}
