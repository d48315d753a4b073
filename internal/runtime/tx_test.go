package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/store/memory"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

func pk(b byte) keys.Pubkey {
	var p keys.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func testEnv(t *testing.T) (*runtime.Env, *memory.Store, *memory.Ledger, *events.Buffer) {
	t.Helper()
	store := memory.NewStore()
	ledger := memory.NewLedger()
	sink := &events.Buffer{}
	env := runtime.NewEnv(store, ledger, &runtime.ManualClock{T: 1_000}, sink, pk(0xAA))
	return env, store, ledger, sink
}

func newAgentRecord(t *testing.T, owner keys.Pubkey) *state.Agent {
	t.Helper()
	a := new(state.Agent)
	require.NoError(t, a.Initialize(owner, "n", "d", state.PricingFixed, "", 1_000, 255))
	return a
}

func TestStagedWritesVisibleBeforeCommit(t *testing.T) {
	env, store, _, _ := testEnv(t)
	ctx := context.Background()
	tx := env.Begin(ctx, pk(1))

	addr := pk(7)
	require.NoError(t, tx.Create(addr, newAgentRecord(t, pk(1))))

	// Visible inside the transaction.
	var got state.Agent
	require.NoError(t, tx.Load(addr, &got))
	require.Equal(t, pk(1), got.Owner)

	// Invisible outside until commit.
	_, err := store.Get(ctx, addr)
	require.True(t, gserr.HasCode(err, gserr.AccountNotInitialized))

	require.NoError(t, tx.Commit())
	rec, err := store.Get(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, state.RecordAgent, rec.Type)
}

func TestAbortedTxLeavesNoTrace(t *testing.T) {
	env, store, ledger, sink := testEnv(t)
	ctx := context.Background()
	require.NoError(t, ledger.RegisterMint(ctx, pk(0xEE), 6))
	require.NoError(t, ledger.Mint(ctx, pk(0xEE), pk(1), 500))

	tx := env.Begin(ctx, pk(1))
	require.NoError(t, tx.Create(pk(7), newAgentRecord(t, pk(1))))
	require.NoError(t, tx.TransferTokens(pk(0xEE), pk(1), pk(2), 200))
	tx.Emit(events.AgentRegistered{})
	// Handler fails here; the tx is dropped without Commit.

	_, err := store.Get(ctx, pk(7))
	require.True(t, gserr.HasCode(err, gserr.AccountNotInitialized))
	bal, err := ledger.BalanceOf(ctx, pk(0xEE), pk(1))
	require.NoError(t, err)
	require.EqualValues(t, 500, bal)
	require.Empty(t, sink.Events)
}

func TestCreateConflict(t *testing.T) {
	env, _, _, _ := testEnv(t)
	ctx := context.Background()

	tx := env.Begin(ctx)
	require.NoError(t, tx.Create(pk(7), newAgentRecord(t, pk(1))))
	require.NoError(t, tx.Commit())

	tx2 := env.Begin(ctx)
	err := tx2.Create(pk(7), newAgentRecord(t, pk(2)))
	require.True(t, gserr.HasCode(err, gserr.AccountAlreadyInitialized))

	// Double-create inside one tx is also refused.
	tx3 := env.Begin(ctx)
	require.NoError(t, tx3.Create(pk(8), newAgentRecord(t, pk(1))))
	err = tx3.Create(pk(8), newAgentRecord(t, pk(2)))
	require.True(t, gserr.HasCode(err, gserr.AccountAlreadyInitialized))
}

func TestLoadTypeMismatch(t *testing.T) {
	env, _, _, _ := testEnv(t)
	ctx := context.Background()

	tx := env.Begin(ctx)
	require.NoError(t, tx.Create(pk(7), newAgentRecord(t, pk(1))))
	var wo state.WorkOrder
	err := tx.Load(pk(7), &wo)
	require.True(t, gserr.HasCode(err, gserr.InvalidAccount))
}

func TestTransferAgainstEffectiveBalance(t *testing.T) {
	env, _, ledger, _ := testEnv(t)
	ctx := context.Background()
	mint := pk(0xEE)
	require.NoError(t, ledger.RegisterMint(ctx, mint, 6))
	require.NoError(t, ledger.Mint(ctx, mint, pk(1), 1_000))

	tx := env.Begin(ctx, pk(1))
	require.NoError(t, tx.TransferTokens(mint, pk(1), pk(2), 700))

	// Second transfer sees the 300 remaining, not the stored 1000.
	err := tx.TransferTokens(mint, pk(1), pk(3), 301)
	require.True(t, gserr.HasCode(err, gserr.InsufficientFunds))
	require.NoError(t, tx.TransferTokens(mint, pk(1), pk(3), 300))

	// Received funds are spendable within the same tx.
	require.NoError(t, tx.TransferTokens(mint, pk(2), pk(4), 700))

	require.NoError(t, tx.Commit())
	for _, check := range []struct {
		owner keys.Pubkey
		want  uint64
	}{{pk(1), 0}, {pk(2), 0}, {pk(3), 300}, {pk(4), 700}} {
		bal, err := ledger.BalanceOf(ctx, mint, check.owner)
		require.NoError(t, err)
		require.Equal(t, check.want, bal, "owner %s", check.owner)
	}
}

func TestZeroTransferIsNoop(t *testing.T) {
	env, _, ledger, _ := testEnv(t)
	ctx := context.Background()
	require.NoError(t, ledger.RegisterMint(ctx, pk(0xEE), 6))

	tx := env.Begin(ctx)
	require.NoError(t, tx.TransferTokens(pk(0xEE), pk(1), pk(2), 0))
	require.NoError(t, tx.Commit())
}

func TestCommitPublishesEventsOnce(t *testing.T) {
	env, _, _, sink := testEnv(t)
	ctx := context.Background()

	tx := env.Begin(ctx)
	tx.Emit(events.AgentRegistered{Name: "a"})
	tx.Emit(events.AgentVerified{})
	require.NoError(t, tx.Commit())
	require.Len(t, sink.Events, 2)
	require.Equal(t, "agent_registered", sink.Events[0].EventName())

	// Commit is idempotent.
	require.NoError(t, tx.Commit())
	require.Len(t, sink.Events, 2)
}

func TestRequireSigner(t *testing.T) {
	env, _, _, _ := testEnv(t)
	tx := env.Begin(context.Background(), pk(1))
	require.NoError(t, tx.RequireSigner(pk(1)))
	err := tx.RequireSigner(pk(2))
	require.True(t, gserr.HasCode(err, gserr.UnauthorizedAccess))
}

func TestSaveAfterCreateKeepsCreateFlag(t *testing.T) {
	env, store, _, _ := testEnv(t)
	ctx := context.Background()

	tx := env.Begin(ctx)
	agent := newAgentRecord(t, pk(1))
	require.NoError(t, tx.Create(pk(7), agent))
	require.NoError(t, agent.Deactivate(1_001))
	tx.Save(pk(7), agent)
	require.NoError(t, tx.Commit())

	rec, err := store.Get(ctx, pk(7))
	require.NoError(t, err)
	var got state.Agent
	require.NoError(t, got.UnmarshalRecord(rec.Data))
	require.False(t, got.IsActive)
}
