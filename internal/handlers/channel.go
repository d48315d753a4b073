package handlers

import (
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/address"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

type CreateChannel struct {
	Creator      keys.Pubkey       `json:"creator"`
	ChannelID    uint64            `json:"channel_id"`
	Kind         state.ChannelType `json:"kind"`
	Participants []keys.Pubkey     `json:"participants,omitempty"`
}

func (c CreateChannel) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Creator); err != nil {
		return nil, err
	}
	reg, regAddr, err := loadRegistry(tx, c.Creator)
	if err != nil {
		return nil, err
	}
	if err := reg.IncrementChannels(); err != nil {
		return nil, err
	}

	addr, bump, err := tx.FindAddress(state.ChannelSeed, c.Creator.Bytes(), address.U64Seed(c.ChannelID))
	if err != nil {
		return nil, err
	}
	ch := new(state.Channel)
	if err := ch.Initialize(c.Creator, c.ChannelID, c.Kind, c.Participants, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(addr, ch); err != nil {
		return nil, err
	}
	tx.Save(regAddr, reg)
	tx.Emit(events.ChannelCreated{Channel: addr, Creator: c.Creator, At: tx.Now()})
	return created{Address: addr}, nil
}

type SendChannelMessage struct {
	Sender    keys.Pubkey       `json:"sender"`
	Channel   keys.Pubkey       `json:"channel"`
	MessageID uint64            `json:"message_id"`
	Kind      state.MessageType `json:"kind"`
	Content   string            `json:"content"`
}

func (c SendChannelMessage) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Sender); err != nil {
		return nil, err
	}
	ch := new(state.Channel)
	if err := tx.Load(c.Channel, ch); err != nil {
		return nil, err
	}
	if !ch.IsActive {
		return nil, gserr.Newf(gserr.InvalidValue, "channel inactive")
	}
	if !ch.HasParticipant(c.Sender) {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not a channel participant")
	}
	if err := ch.CountMessage(); err != nil {
		return nil, err
	}

	mAddr, bump, err := tx.FindAddress(state.ChannelMessageSeed, c.Channel.Bytes(), address.U64Seed(c.MessageID))
	if err != nil {
		return nil, err
	}
	msg := new(state.ChannelMessage)
	if err := msg.Initialize(c.Channel, c.Sender, c.MessageID, c.Kind, c.Content, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(mAddr, msg); err != nil {
		return nil, err
	}
	tx.Save(c.Channel, ch)
	tx.Emit(events.ChannelMessageSent{Channel: c.Channel, Message: mAddr, Sender: c.Sender, At: tx.Now()})
	return created{Address: mAddr}, nil
}

type CreateA2ASession struct {
	Initiator keys.Pubkey `json:"initiator"`
	Responder keys.Pubkey `json:"responder"`
	SessionID uint64      `json:"session_id"`
}

func (c CreateA2ASession) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Initiator); err != nil {
		return nil, err
	}
	addr, bump, err := tx.FindAddress(state.A2ASessionSeed,
		c.Initiator.Bytes(), c.Responder.Bytes(), address.U64Seed(c.SessionID))
	if err != nil {
		return nil, err
	}
	s := &state.A2ASession{
		SessionID: c.SessionID,
		Initiator: c.Initiator,
		Responder: c.Responder,
		IsActive:  true,
		CreatedAt: tx.Now(),
		Bump:      bump,
	}
	if err := tx.Create(addr, s); err != nil {
		return nil, err
	}
	tx.Emit(events.A2ASessionCreated{Session: addr, Initiator: c.Initiator, Responder: c.Responder, At: tx.Now()})
	return created{Address: addr}, nil
}

type SendA2AMessage struct {
	Sender    keys.Pubkey `json:"sender"`
	Session   keys.Pubkey `json:"session"`
	MessageID uint64      `json:"message_id"`
	Content   string      `json:"content"`
}

func (c SendA2AMessage) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Sender); err != nil {
		return nil, err
	}
	s := new(state.A2ASession)
	if err := tx.Load(c.Session, s); err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, gserr.Newf(gserr.InvalidValue, "session inactive")
	}
	if c.Sender != s.Initiator && c.Sender != s.Responder {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not a session party")
	}

	mAddr, bump, err := tx.FindAddress(state.A2AMessageSeed, c.Session.Bytes(), address.U64Seed(c.MessageID))
	if err != nil {
		return nil, err
	}
	msg := new(state.A2AMessage)
	if err := msg.Initialize(c.Session, c.MessageID, c.Sender, c.Content, tx.Now(), bump); err != nil {
		return nil, err
	}
	if err := tx.Create(mAddr, msg); err != nil {
		return nil, err
	}
	tx.Emit(events.A2AMessageSent{Session: c.Session, Message: mAddr, Sender: c.Sender, At: tx.Now()})
	return created{Address: mAddr}, nil
}

// CloseA2ASession deactivates a session. Either party may close.
type CloseA2ASession struct {
	Signer  keys.Pubkey `json:"signer"`
	Session keys.Pubkey `json:"session"`
}

func (c CloseA2ASession) Execute(tx *runtime.Tx, eng *Engine) (any, error) {
	if err := tx.RequireSigner(c.Signer); err != nil {
		return nil, err
	}
	s := new(state.A2ASession)
	if err := tx.Load(c.Session, s); err != nil {
		return nil, err
	}
	if c.Signer != s.Initiator && c.Signer != s.Responder {
		return nil, gserr.Newf(gserr.UnauthorizedAccess, "not a session party")
	}
	s.IsActive = false
	tx.Save(c.Session, s)
	return created{Address: c.Session}, nil
}
