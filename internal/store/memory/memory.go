// Package memory holds in-process implementations of the runtime's
// record store and token ledger. Used by tests and by gsctl's dry-run
// mode.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

type Store struct {
	mu      sync.RWMutex
	records map[keys.Pubkey]runtime.StoredRecord
}

func NewStore() *Store {
	return &Store{records: make(map[keys.Pubkey]runtime.StoredRecord)}
}

func (s *Store) Get(_ context.Context, addr keys.Pubkey) (runtime.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[addr]
	if !ok {
		return runtime.StoredRecord{}, gserr.Newf(gserr.AccountNotInitialized, "no record at %s", addr)
	}
	return rec, nil
}

// Apply validates every create against current occupancy before any
// write lands, so a batch either fully applies or leaves the store
// untouched.
func (s *Store) Apply(_ context.Context, writes []runtime.RecordWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		if w.Create {
			if _, ok := s.records[w.Addr]; ok {
				return gserr.Newf(gserr.AccountAlreadyInitialized, "%s at %s", w.Type, w.Addr)
			}
		}
	}
	for _, w := range writes {
		data := make([]byte, len(w.Data))
		copy(data, w.Data)
		s.records[w.Addr] = runtime.StoredRecord{Addr: w.Addr, Type: w.Type, Data: data}
	}
	return nil
}

func (s *Store) List(_ context.Context, typ state.RecordType) ([]runtime.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []runtime.StoredRecord
	for _, rec := range s.records {
		if rec.Type == typ {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Addr[:], out[j].Addr[:]) < 0
	})
	return out, nil
}

type account struct {
	mint  keys.Pubkey
	owner keys.Pubkey
}

// Ledger is an in-process token ledger with registered mints.
type Ledger struct {
	mu       sync.RWMutex
	decimals map[keys.Pubkey]uint8
	balances map[account]uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		decimals: make(map[keys.Pubkey]uint8),
		balances: make(map[account]uint64),
	}
}

// RegisterMint declares a mint and its decimal scale.
func (l *Ledger) RegisterMint(_ context.Context, mint keys.Pubkey, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decimals[mint] = decimals
	return nil
}

// Mint credits owner out of thin air. Test and genesis use only.
func (l *Ledger) Mint(_ context.Context, mint, owner keys.Pubkey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account{mint, owner}] += amount
	return nil
}

func (l *Ledger) Decimals(_ context.Context, mint keys.Pubkey) (uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.decimals[mint]
	if !ok {
		return 0, gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	return d, nil
}

func (l *Ledger) BalanceOf(_ context.Context, mint, owner keys.Pubkey) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.decimals[mint]; !ok {
		return 0, gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	return l.balances[account{mint, owner}], nil
}

func (l *Ledger) TransferChecked(_ context.Context, mint, from, to keys.Pubkey, amount uint64, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.decimals[mint]
	if !ok {
		return gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	if d != decimals {
		return gserr.Newf(gserr.InvalidAccount, "mint %s has %d decimals, caller said %d", mint, d, decimals)
	}
	src := account{mint, from}
	if l.balances[src] < amount {
		return gserr.Newf(gserr.InsufficientFunds, "balance %d, need %d", l.balances[src], amount)
	}
	l.balances[src] -= amount
	l.balances[account{mint, to}] += amount
	return nil
}
