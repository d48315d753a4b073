// Package postgres backs the runtime's record store and token ledger
// with PostgreSQL. The node service uses it in production.
package postgres

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Connect opens a pool for the given DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return pgxpool.NewWithConfig(ctx, cfg)
}

// MustConnect opens a pool from DATABASE_URL or panics.
func MustConnect() *pgxpool.Pool {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		panic("DATABASE_URL is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		panic(err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	return pool
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
  addr        BYTEA PRIMARY KEY,
  record_type BIGINT NOT NULL,
  data        BYTEA NOT NULL,
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS records_type_idx ON records(record_type);

CREATE TABLE IF NOT EXISTS token_mints (
  mint     BYTEA PRIMARY KEY,
  decimals SMALLINT NOT NULL
);

CREATE TABLE IF NOT EXISTS token_accounts (
  mint    BYTEA NOT NULL REFERENCES token_mints(mint),
  owner   BYTEA NOT NULL,
  balance NUMERIC(20,0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
  PRIMARY KEY (mint, owner)
);
`

// EnsureSchema creates the tables if absent.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}

type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) Get(ctx context.Context, addr keys.Pubkey) (runtime.StoredRecord, error) {
	var typ int64
	var data []byte
	err := s.DB.QueryRow(ctx, `SELECT record_type, data FROM records WHERE addr=$1`, addr.Bytes()).
		Scan(&typ, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return runtime.StoredRecord{}, gserr.Newf(gserr.AccountNotInitialized, "no record at %s", addr)
	}
	if err != nil {
		return runtime.StoredRecord{}, err
	}
	return runtime.StoredRecord{Addr: addr, Type: state.RecordType(typ), Data: data}, nil
}

func (s *Store) Apply(ctx context.Context, writes []runtime.RecordWrite) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, w := range writes {
		if w.Create {
			tag, err := tx.Exec(ctx, `INSERT INTO records(addr, record_type, data)
VALUES($1,$2,$3)
ON CONFLICT (addr) DO NOTHING`, w.Addr.Bytes(), int64(w.Type), w.Data)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return gserr.Newf(gserr.AccountAlreadyInitialized, "%s at %s", w.Type, w.Addr)
			}
			continue
		}
		_, err := tx.Exec(ctx, `INSERT INTO records(addr, record_type, data)
VALUES($1,$2,$3)
ON CONFLICT (addr) DO UPDATE SET record_type=$2, data=$3, updated_at=now()`,
			w.Addr.Bytes(), int64(w.Type), w.Data)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) List(ctx context.Context, typ state.RecordType) ([]runtime.StoredRecord, error) {
	rows, err := s.DB.Query(ctx, `SELECT addr, data FROM records WHERE record_type=$1 ORDER BY addr`, int64(typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []runtime.StoredRecord
	for rows.Next() {
		var addrBytes, data []byte
		if err := rows.Scan(&addrBytes, &data); err != nil {
			return nil, err
		}
		addr, err := keys.FromBytes(addrBytes)
		if err != nil {
			return nil, err
		}
		out = append(out, runtime.StoredRecord{Addr: addr, Type: typ, Data: data})
	}
	return out, rows.Err()
}

// Ledger is the PostgreSQL token ledger.
type Ledger struct{ DB *pgxpool.Pool }

func NewLedger(db *pgxpool.Pool) *Ledger { return &Ledger{DB: db} }

// RegisterMint declares a mint, idempotently.
func (l *Ledger) RegisterMint(ctx context.Context, mint keys.Pubkey, decimals uint8) error {
	_, err := l.DB.Exec(ctx, `INSERT INTO token_mints(mint, decimals) VALUES($1,$2)
ON CONFLICT (mint) DO NOTHING`, mint.Bytes(), int16(decimals))
	return err
}

// Mint credits owner. Genesis and faucet use only.
func (l *Ledger) Mint(ctx context.Context, mint, owner keys.Pubkey, amount uint64) error {
	_, err := l.DB.Exec(ctx, `INSERT INTO token_accounts(mint, owner, balance) VALUES($1,$2,$3)
ON CONFLICT (mint, owner) DO UPDATE SET balance = token_accounts.balance + $3`,
		mint.Bytes(), owner.Bytes(), amount)
	return err
}

func (l *Ledger) Decimals(ctx context.Context, mint keys.Pubkey) (uint8, error) {
	var d int16
	err := l.DB.QueryRow(ctx, `SELECT decimals FROM token_mints WHERE mint=$1`, mint.Bytes()).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	if err != nil {
		return 0, err
	}
	return uint8(d), nil
}

func (l *Ledger) BalanceOf(ctx context.Context, mint, owner keys.Pubkey) (uint64, error) {
	var bal uint64
	err := l.DB.QueryRow(ctx, `SELECT balance FROM token_accounts WHERE mint=$1 AND owner=$2`,
		mint.Bytes(), owner.Bytes()).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

func (l *Ledger) TransferChecked(ctx context.Context, mint, from, to keys.Pubkey, amount uint64, decimals uint8) error {
	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var d int16
	err = tx.QueryRow(ctx, `SELECT decimals FROM token_mints WHERE mint=$1`, mint.Bytes()).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	if err != nil {
		return err
	}
	if uint8(d) != decimals {
		return gserr.Newf(gserr.InvalidAccount, "mint %s has %d decimals, caller said %d", mint, d, decimals)
	}

	tag, err := tx.Exec(ctx, `UPDATE token_accounts SET balance = balance - $3
WHERE mint=$1 AND owner=$2 AND balance >= $3`, mint.Bytes(), from.Bytes(), amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return gserr.Newf(gserr.InsufficientFunds, "account %s", from)
	}
	_, err = tx.Exec(ctx, `INSERT INTO token_accounts(mint, owner, balance) VALUES($1,$2,$3)
ON CONFLICT (mint, owner) DO UPDATE SET balance = token_accounts.balance + $3`,
		mint.Bytes(), to.Bytes(), amount)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
