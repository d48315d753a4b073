package runtime

import (
	"context"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/address"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

type stagedRecord struct {
	typ    state.RecordType
	data   []byte
	create bool
}

// Transfer is one staged token movement.
type Transfer struct {
	Mint   keys.Pubkey
	From   keys.Pubkey
	To     keys.Pubkey
	Amount uint64
}

// Tx is one command execution. Record loads see staged writes from the
// same transaction; nothing reaches the store, the ledger, or the event
// sink until Commit. A handler that returns an error simply never
// commits, which is what makes every failure zero-state-change.
type Tx struct {
	ctx     context.Context
	env     *Env
	now     int64
	signers map[keys.Pubkey]bool

	staged    map[keys.Pubkey]*stagedRecord
	order     []keys.Pubkey
	transfers []Transfer
	pending   []events.Event
	committed bool
}

// Begin opens a transaction. The signer set is host-verified before the
// command reaches any handler; handlers only assert membership.
func (e *Env) Begin(ctx context.Context, signers ...keys.Pubkey) *Tx {
	set := make(map[keys.Pubkey]bool, len(signers))
	for _, s := range signers {
		set[s] = true
	}
	return &Tx{
		ctx:     ctx,
		env:     e,
		now:     e.Clock.Now(),
		signers: set,
		staged:  make(map[keys.Pubkey]*stagedRecord),
	}
}

func (tx *Tx) Context() context.Context { return tx.ctx }

// Now is the single timestamp this transaction observes.
func (tx *Tx) Now() int64 { return tx.now }

func (tx *Tx) Namespace() keys.Pubkey { return tx.env.Namespace }

func (tx *Tx) IsSigner(pk keys.Pubkey) bool { return tx.signers[pk] }

func (tx *Tx) RequireSigner(pk keys.Pubkey) error {
	if !tx.signers[pk] {
		return gserr.Newf(gserr.UnauthorizedAccess, "missing signature from %s", pk)
	}
	return nil
}

// FindAddress derives the canonical address and bump for a seed tuple
// under the transaction's namespace.
func (tx *Tx) FindAddress(seeds ...[]byte) (keys.Pubkey, uint8, error) {
	return address.Find(tx.env.Namespace, seeds...)
}

// Exists reports whether addr holds a record, staged or stored.
func (tx *Tx) Exists(addr keys.Pubkey) bool {
	if _, ok := tx.staged[addr]; ok {
		return true
	}
	_, err := tx.env.Store.Get(tx.ctx, addr)
	return err == nil
}

// Create stages a new record at a vacant address.
func (tx *Tx) Create(addr keys.Pubkey, rec state.Record) error {
	if tx.Exists(addr) {
		return gserr.Newf(gserr.AccountAlreadyInitialized, "%s at %s", rec.Type(), addr)
	}
	tx.stage(addr, rec, true)
	return nil
}

// Load reads a record, seeing this transaction's staged writes first.
// A vacant address yields AccountNotInitialized; a type mismatch yields
// InvalidAccount.
func (tx *Tx) Load(addr keys.Pubkey, rec state.Record) error {
	if s, ok := tx.staged[addr]; ok {
		if s.typ != rec.Type() {
			return gserr.Newf(gserr.InvalidAccount, "record at %s is %s, want %s", addr, s.typ, rec.Type())
		}
		return rec.UnmarshalRecord(s.data)
	}
	stored, err := tx.env.Store.Get(tx.ctx, addr)
	if err != nil {
		return err
	}
	if stored.Type != rec.Type() {
		return gserr.Newf(gserr.InvalidAccount, "record at %s is %s, want %s", addr, stored.Type, rec.Type())
	}
	return rec.UnmarshalRecord(stored.Data)
}

// Save stages an update to an existing record.
func (tx *Tx) Save(addr keys.Pubkey, rec state.Record) {
	if s, ok := tx.staged[addr]; ok {
		s.data = rec.MarshalRecord()
		return
	}
	tx.stage(addr, rec, false)
}

func (tx *Tx) stage(addr keys.Pubkey, rec state.Record, create bool) {
	tx.staged[addr] = &stagedRecord{typ: rec.Type(), data: rec.MarshalRecord(), create: create}
	tx.order = append(tx.order, addr)
}

// Balance is owner's effective balance: the ledger's view adjusted for
// transfers already staged in this transaction.
func (tx *Tx) Balance(mint, owner keys.Pubkey) (uint64, error) {
	bal, err := tx.env.Ledger.BalanceOf(tx.ctx, mint, owner)
	if err != nil {
		return 0, err
	}
	for _, t := range tx.transfers {
		if t.Mint != mint {
			continue
		}
		if t.From == owner {
			bal -= t.Amount
		}
		if t.To == owner {
			bal += t.Amount
		}
	}
	return bal, nil
}

// TransferTokens stages a token movement, checked against the sender's
// effective balance.
func (tx *Tx) TransferTokens(mint, from, to keys.Pubkey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal, err := tx.Balance(mint, from)
	if err != nil {
		return err
	}
	if bal < amount {
		return gserr.Newf(gserr.InsufficientFunds, "balance %d, need %d", bal, amount)
	}
	tx.transfers = append(tx.transfers, Transfer{Mint: mint, From: from, To: to, Amount: amount})
	return nil
}

// Emit queues an event for publication at commit.
func (tx *Tx) Emit(ev events.Event) { tx.pending = append(tx.pending, ev) }

// Commit applies staged transfers and record writes, then publishes the
// queued events. Transfers were balance-checked when staged; a ledger
// refusal here is a host fault, not a taxonomy error.
func (tx *Tx) Commit() error {
	if tx.committed {
		return nil
	}
	for _, t := range tx.transfers {
		dec, err := tx.env.Ledger.Decimals(tx.ctx, t.Mint)
		if err != nil {
			return err
		}
		if err := tx.env.Ledger.TransferChecked(tx.ctx, t.Mint, t.From, t.To, t.Amount, dec); err != nil {
			return err
		}
	}
	writes := make([]RecordWrite, 0, len(tx.order))
	seen := make(map[keys.Pubkey]bool, len(tx.order))
	for _, addr := range tx.order {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		s := tx.staged[addr]
		writes = append(writes, RecordWrite{Addr: addr, Type: s.typ, Data: s.data, Create: s.create})
	}
	if err := tx.env.Store.Apply(tx.ctx, writes); err != nil {
		return err
	}
	for _, ev := range tx.pending {
		tx.env.Sink.Publish(ev)
	}
	tx.committed = true
	return nil
}
