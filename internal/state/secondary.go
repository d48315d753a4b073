package state

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/codec"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/validate"
)

// Secondary records: flat CRUD state sharing the addressing and authority
// pattern, with no inter-record invariants beyond existence.

type ChannelType uint8

const (
	ChannelDirect ChannelType = iota
	ChannelGroup
	ChannelPublic
	ChannelPrivate
)

type Channel struct {
	Creator      keys.Pubkey
	ChannelID    uint64
	Kind         ChannelType
	Participants []keys.Pubkey
	MessageCount uint64
	IsActive     bool
	CreatedAt    int64
	Bump         uint8
}

const ChannelLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // creator
	codec.U64Len + // channel_id
	codec.EnumTagLen + // kind
	codec.U32Len + validate.MaxParticipantsCount*codec.PubkeyFieldLen + // participants
	codec.U64Len + // message_count
	codec.BoolLen + // is_active
	codec.I64Len + // created_at
	codec.U8Len // bump

func (c *Channel) Type() RecordType { return RecordChannel }

func (c *Channel) Initialize(creator keys.Pubkey, channelID uint64, kind ChannelType, participants []keys.Pubkey, now int64, bump uint8) error {
	if len(participants) > validate.MaxParticipantsCount {
		return gserr.New(gserr.TooManyParticipants)
	}
	c.Creator = creator
	c.ChannelID = channelID
	c.Kind = kind
	c.Participants = participants
	c.MessageCount = 0
	c.IsActive = true
	c.CreatedAt = now
	c.Bump = bump
	return nil
}

func (c *Channel) HasParticipant(pk keys.Pubkey) bool {
	if pk == c.Creator {
		return true
	}
	for _, p := range c.Participants {
		if p == pk {
			return true
		}
	}
	return false
}

func (c *Channel) CountMessage() error {
	v, err := validate.AddU64(c.MessageCount, 1)
	if err != nil {
		return err
	}
	c.MessageCount = v
	return nil
}

func (c *Channel) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordChannel)
	w.Pubkey(c.Creator)
	w.U64(c.ChannelID)
	w.U8(uint8(c.Kind))
	w.PubkeySlice(c.Participants)
	w.U64(c.MessageCount)
	w.Bool(c.IsActive)
	w.I64(c.CreatedAt)
	w.U8(c.Bump)
	return w.Bytes()
}

func (c *Channel) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordChannel); err != nil {
		return err
	}
	c.Creator = r.Pubkey()
	c.ChannelID = r.U64()
	c.Kind = ChannelType(r.U8())
	c.Participants = r.PubkeySlice()
	c.MessageCount = r.U64()
	c.IsActive = r.Bool()
	c.CreatedAt = r.I64()
	c.Bump = r.U8()
	return r.Err()
}

type MessageType uint8

const (
	MessageText MessageType = iota
	MessageFile
	MessageImage
	MessageAudio
	MessageSystem
)

type ChannelMessage struct {
	Channel   keys.Pubkey
	Sender    keys.Pubkey
	MessageID uint64
	Kind      MessageType
	Content   string
	SentAt    int64
	Bump      uint8
}

const ChannelMessageLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // channel
	codec.PubkeyFieldLen + // sender
	codec.U64Len + // message_id
	codec.EnumTagLen + // kind
	codec.U32Len + validate.MaxMessageLength + // content
	codec.I64Len + // sent_at
	codec.U8Len // bump

func (m *ChannelMessage) Type() RecordType { return RecordChannelMessage }

func (m *ChannelMessage) Initialize(channel, sender keys.Pubkey, messageID uint64, kind MessageType, content string, now int64, bump uint8) error {
	if err := validate.String(content, validate.MaxMessageLength, gserr.MessageTooLong); err != nil {
		return err
	}
	m.Channel = channel
	m.Sender = sender
	m.MessageID = messageID
	m.Kind = kind
	m.Content = content
	m.SentAt = now
	m.Bump = bump
	return nil
}

func (m *ChannelMessage) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordChannelMessage)
	w.Pubkey(m.Channel)
	w.Pubkey(m.Sender)
	w.U64(m.MessageID)
	w.U8(uint8(m.Kind))
	w.String(m.Content)
	w.I64(m.SentAt)
	w.U8(m.Bump)
	return w.Bytes()
}

func (m *ChannelMessage) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordChannelMessage); err != nil {
		return err
	}
	m.Channel = r.Pubkey()
	m.Sender = r.Pubkey()
	m.MessageID = r.U64()
	m.Kind = MessageType(r.U8())
	m.Content = r.String()
	m.SentAt = r.I64()
	m.Bump = r.U8()
	return r.Err()
}

// ReplicationTemplate advertises a replicable agent genome for a fee.
type ReplicationTemplate struct {
	SourceAgent    keys.Pubkey
	Owner          keys.Pubkey
	GenomeHash     string
	ReplicationFee uint64
	MaxReplicas    uint32
	ReplicaCount   uint32
	IsActive       bool
	CreatedAt      int64
	Bump           uint8
}

const ReplicationTemplateLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // source_agent
	codec.PubkeyFieldLen + // owner
	codec.U32Len + validate.MaxGeneralStringLength + // genome_hash
	codec.U64Len + // replication_fee
	codec.U32Len + // max_replicas
	codec.U32Len + // replica_count
	codec.BoolLen + // is_active
	codec.I64Len + // created_at
	codec.U8Len // bump

func (t *ReplicationTemplate) Type() RecordType { return RecordReplicationTemplate }

func (t *ReplicationTemplate) Initialize(sourceAgent, owner keys.Pubkey, genomeHash string, fee uint64, maxReplicas uint32, now int64, bump uint8) error {
	if err := validate.String(genomeHash, validate.MaxGeneralStringLength, gserr.InvalidGenomeHash); err != nil {
		return err
	}
	t.SourceAgent = sourceAgent
	t.Owner = owner
	t.GenomeHash = genomeHash
	t.ReplicationFee = fee
	t.MaxReplicas = maxReplicas
	t.ReplicaCount = 0
	t.IsActive = true
	t.CreatedAt = now
	t.Bump = bump
	return nil
}

func (t *ReplicationTemplate) CountReplica() error {
	if !t.IsActive {
		return gserr.New(gserr.ReplicationNotAllowed)
	}
	v, err := validate.AddU32(t.ReplicaCount, 1)
	if err != nil {
		return err
	}
	if t.MaxReplicas != 0 && v > t.MaxReplicas {
		return gserr.Newf(gserr.ReplicationNotAllowed, "replica cap %d reached", t.MaxReplicas)
	}
	t.ReplicaCount = v
	return nil
}

func (t *ReplicationTemplate) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordReplicationTemplate)
	w.Pubkey(t.SourceAgent)
	w.Pubkey(t.Owner)
	w.String(t.GenomeHash)
	w.U64(t.ReplicationFee)
	w.U32(t.MaxReplicas)
	w.U32(t.ReplicaCount)
	w.Bool(t.IsActive)
	w.I64(t.CreatedAt)
	w.U8(t.Bump)
	return w.Bytes()
}

func (t *ReplicationTemplate) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordReplicationTemplate); err != nil {
		return err
	}
	t.SourceAgent = r.Pubkey()
	t.Owner = r.Pubkey()
	t.GenomeHash = r.String()
	t.ReplicationFee = r.U64()
	t.MaxReplicas = r.U32()
	t.ReplicaCount = r.U32()
	t.IsActive = r.Bool()
	t.CreatedAt = r.I64()
	t.Bump = r.U8()
	return r.Err()
}

// ReplicationRecord ties one replica agent back to its template.
type ReplicationRecord struct {
	Template     keys.Pubkey
	ReplicaAgent keys.Pubkey
	Buyer        keys.Pubkey
	FeePaid      uint64
	ReplicatedAt int64
	Bump         uint8
}

const ReplicationRecordLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + // template
	codec.PubkeyFieldLen + // replica_agent
	codec.PubkeyFieldLen + // buyer
	codec.U64Len + // fee_paid
	codec.I64Len + // replicated_at
	codec.U8Len // bump

func (rr *ReplicationRecord) Type() RecordType { return RecordReplicationRecord }

func (rr *ReplicationRecord) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordReplicationRecord)
	w.Pubkey(rr.Template)
	w.Pubkey(rr.ReplicaAgent)
	w.Pubkey(rr.Buyer)
	w.U64(rr.FeePaid)
	w.I64(rr.ReplicatedAt)
	w.U8(rr.Bump)
	return w.Bytes()
}

func (rr *ReplicationRecord) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordReplicationRecord); err != nil {
		return err
	}
	rr.Template = r.Pubkey()
	rr.ReplicaAgent = r.Pubkey()
	rr.Buyer = r.Pubkey()
	rr.FeePaid = r.U64()
	rr.ReplicatedAt = r.I64()
	rr.Bump = r.U8()
	return r.Err()
}

// A2ASession is a direct agent-to-agent exchange.
type A2ASession struct {
	SessionID uint64
	Initiator keys.Pubkey
	Responder keys.Pubkey
	IsActive  bool
	CreatedAt int64
	Bump      uint8
}

const A2ASessionLen = codec.DiscriminatorLen +
	codec.U64Len + codec.PubkeyFieldLen + codec.PubkeyFieldLen +
	codec.BoolLen + codec.I64Len + codec.U8Len

func (s *A2ASession) Type() RecordType { return RecordA2ASession }

func (s *A2ASession) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordA2ASession)
	w.U64(s.SessionID)
	w.Pubkey(s.Initiator)
	w.Pubkey(s.Responder)
	w.Bool(s.IsActive)
	w.I64(s.CreatedAt)
	w.U8(s.Bump)
	return w.Bytes()
}

func (s *A2ASession) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordA2ASession); err != nil {
		return err
	}
	s.SessionID = r.U64()
	s.Initiator = r.Pubkey()
	s.Responder = r.Pubkey()
	s.IsActive = r.Bool()
	s.CreatedAt = r.I64()
	s.Bump = r.U8()
	return r.Err()
}

type A2AMessage struct {
	Session   keys.Pubkey
	MessageID uint64
	Sender    keys.Pubkey
	Content   string
	SentAt    int64
	Bump      uint8
}

const A2AMessageLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen + codec.U64Len + codec.PubkeyFieldLen +
	codec.U32Len + validate.MaxMessageLength +
	codec.I64Len + codec.U8Len

func (m *A2AMessage) Type() RecordType { return RecordA2AMessage }

func (m *A2AMessage) Initialize(session keys.Pubkey, messageID uint64, sender keys.Pubkey, content string, now int64, bump uint8) error {
	if err := validate.String(content, validate.MaxMessageLength, gserr.MessageTooLong); err != nil {
		return err
	}
	m.Session = session
	m.MessageID = messageID
	m.Sender = sender
	m.Content = content
	m.SentAt = now
	m.Bump = bump
	return nil
}

func (m *A2AMessage) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordA2AMessage)
	w.Pubkey(m.Session)
	w.U64(m.MessageID)
	w.Pubkey(m.Sender)
	w.String(m.Content)
	w.I64(m.SentAt)
	w.U8(m.Bump)
	return w.Bytes()
}

func (m *A2AMessage) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordA2AMessage); err != nil {
		return err
	}
	m.Session = r.Pubkey()
	m.MessageID = r.U64()
	m.Sender = r.Pubkey()
	m.Content = r.String()
	m.SentAt = r.I64()
	m.Bump = r.U8()
	return r.Err()
}

// A2AStatus is an agent's advertised availability.
type A2AStatus struct {
	Agent        keys.Pubkey
	StatusText   string
	Availability bool
	UpdatedAt    int64
	Bump         uint8
}

const A2AStatusLen = codec.DiscriminatorLen +
	codec.PubkeyFieldLen +
	codec.U32Len + validate.MaxGeneralStringLength +
	codec.BoolLen + codec.I64Len + codec.U8Len

func (s *A2AStatus) Type() RecordType { return RecordA2AStatus }

func (s *A2AStatus) Set(statusText string, availability bool, now int64) error {
	if err := validate.String(statusText, validate.MaxGeneralStringLength, gserr.StringTooLong); err != nil {
		return err
	}
	s.StatusText = statusText
	s.Availability = availability
	s.UpdatedAt = now
	return nil
}

func (s *A2AStatus) MarshalRecord() []byte {
	w := codec.NewWriter()
	writeDiscriminator(w, RecordA2AStatus)
	w.Pubkey(s.Agent)
	w.String(s.StatusText)
	w.Bool(s.Availability)
	w.I64(s.UpdatedAt)
	w.U8(s.Bump)
	return w.Bytes()
}

func (s *A2AStatus) UnmarshalRecord(b []byte) error {
	r := codec.NewReader(b)
	if err := readDiscriminator(r, RecordA2AStatus); err != nil {
		return err
	}
	s.Agent = r.Pubkey()
	s.StatusText = r.String()
	s.Availability = r.Bool()
	s.UpdatedAt = r.I64()
	s.Bump = r.U8()
	return r.Err()
}
