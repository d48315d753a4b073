// Package handlers implements the marketplace commands. Every command
// runs inside one runtime transaction: it either commits all of its
// record writes, token transfers, and events, or aborts with a single
// taxonomy code and no state change.
package handlers

import (
	"context"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Command is one marketplace operation. Execute stages its effects on
// the transaction and returns a JSON-marshalable result, typically the
// address of the record it created or mutated.
type Command interface {
	Execute(tx *runtime.Tx, eng *Engine) (any, error)
}

// Engine dispatches commands against a host environment. Authority is
// the protocol admin key allowed to assign dispute moderators and
// manage analytics shards.
type Engine struct {
	env       *runtime.Env
	authority keys.Pubkey
}

func New(env *runtime.Env, authority keys.Pubkey) *Engine {
	return &Engine{env: env, authority: authority}
}

func (e *Engine) Env() *runtime.Env { return e.env }

// Submit runs one command with a host-verified signer set.
func (e *Engine) Submit(ctx context.Context, signers []keys.Pubkey, cmd Command) (any, error) {
	tx := e.env.Begin(ctx, signers...)
	res, err := cmd.Execute(tx, e)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) requireAuthority(tx *runtime.Tx) error {
	return tx.RequireSigner(e.authority)
}

// loadRegistry fetches user's registry, creating it on first use, and
// refuses the command while a rate-limit window is open. Callers that
// mutate the registry must Save it at regAddr.
func loadRegistry(tx *runtime.Tx, user keys.Pubkey) (*state.UserRegistry, keys.Pubkey, error) {
	addr, bump, err := tx.FindAddress(state.UserRegistrySeed, user.Bytes())
	if err != nil {
		return nil, keys.Zero, err
	}
	reg := new(state.UserRegistry)
	err = tx.Load(addr, reg)
	switch {
	case gserr.HasCode(err, gserr.AccountNotInitialized):
		reg.Initialize(user, tx.Now(), bump)
		if err := tx.Create(addr, reg); err != nil {
			return nil, keys.Zero, err
		}
	case err != nil:
		return nil, keys.Zero, err
	}
	if err := reg.CheckRateLimit(tx.Now()); err != nil {
		return nil, keys.Zero, err
	}
	reg.Touch(tx.Now())
	return reg, addr, nil
}

func agentAddress(tx *runtime.Tx, owner keys.Pubkey) (keys.Pubkey, uint8, error) {
	return tx.FindAddress(state.AgentSeed, owner.Bytes())
}

// escrowAddress is the ledger account holding a work order's funds.
func escrowAddress(tx *runtime.Tx, workOrder keys.Pubkey) (keys.Pubkey, error) {
	addr, _, err := tx.FindAddress(state.EscrowSeed, workOrder.Bytes())
	return addr, err
}

// created is the common result shape for record-creating commands.
type created struct {
	Address keys.Pubkey `json:"address"`
}
