// Package runtime hosts command execution: it provides the clock, the
// record store, the token ledger, and the transaction context whose
// staged writes either all commit or all vanish.
package runtime

import (
	"context"
	"time"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Clock supplies the timestamp a transaction observes. Every handler
// reads time through the transaction so one command sees one instant.
type Clock interface {
	Now() int64
}

// SystemClock is the wall clock, truncated to seconds.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock is a settable clock for tests and replay tooling.
type ManualClock struct {
	T int64
}

func (c *ManualClock) Now() int64      { return c.T }
func (c *ManualClock) Advance(d int64) { c.T += d }
func (c *ManualClock) Set(t int64)     { c.T = t }

// StoredRecord is one persisted record as the store holds it.
type StoredRecord struct {
	Addr keys.Pubkey
	Type state.RecordType
	Data []byte
}

// RecordWrite is one staged mutation. Create asserts the address is
// vacant at apply time.
type RecordWrite struct {
	Addr   keys.Pubkey
	Type   state.RecordType
	Data   []byte
	Create bool
}

// RecordStore persists records by address. Get returns a gserr error
// with code AccountNotInitialized for a vacant address. Apply is atomic:
// either every write lands or none does.
type RecordStore interface {
	Get(ctx context.Context, addr keys.Pubkey) (StoredRecord, error)
	Apply(ctx context.Context, writes []RecordWrite) error
	List(ctx context.Context, typ state.RecordType) ([]StoredRecord, error)
}

// TokenLedger moves payment tokens between accounts. The engine never
// holds balances itself; escrow custody is a ledger account owned by the
// work order address.
type TokenLedger interface {
	Decimals(ctx context.Context, mint keys.Pubkey) (uint8, error)
	BalanceOf(ctx context.Context, mint, owner keys.Pubkey) (uint64, error)
	TransferChecked(ctx context.Context, mint, from, to keys.Pubkey, amount uint64, decimals uint8) error
}

// Env bundles the host facilities handlers run against.
type Env struct {
	Store     RecordStore
	Ledger    TokenLedger
	Clock     Clock
	Sink      events.Sink
	Namespace keys.Pubkey
}

func NewEnv(store RecordStore, ledger TokenLedger, clock Clock, sink events.Sink, namespace keys.Pubkey) *Env {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Env{Store: store, Ledger: ledger, Clock: clock, Sink: sink, Namespace: namespace}
}
