// Package sqlite is a single-file record store and token ledger for
// gsctl's local mode, where a node and a Postgres instance would be
// overkill.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
  addr        BLOB PRIMARY KEY,
  record_type INTEGER NOT NULL,
  data        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS records_type_idx ON records(record_type);

CREATE TABLE IF NOT EXISTS token_mints (
  mint     BLOB PRIMARY KEY,
  decimals INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS token_accounts (
  mint    BLOB NOT NULL,
  owner   BLOB NOT NULL,
  balance INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (mint, owner)
);
`

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// DB implements both the record store and the token ledger over one
// sqlite file.
type DB struct{ db *sql.DB }

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Get(ctx context.Context, addr keys.Pubkey) (runtime.StoredRecord, error) {
	var typ int64
	var data []byte
	err := d.db.QueryRowContext(ctx, `SELECT record_type, data FROM records WHERE addr=?`, addr.Bytes()).
		Scan(&typ, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return runtime.StoredRecord{}, gserr.Newf(gserr.AccountNotInitialized, "no record at %s", addr)
	}
	if err != nil {
		return runtime.StoredRecord{}, err
	}
	return runtime.StoredRecord{Addr: addr, Type: state.RecordType(typ), Data: data}, nil
}

func (d *DB) Apply(ctx context.Context, writes []runtime.RecordWrite) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, w := range writes {
		if w.Create {
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO records(addr, record_type, data) VALUES(?,?,?)`,
				w.Addr.Bytes(), int64(w.Type), w.Data)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return gserr.Newf(gserr.AccountAlreadyInitialized, "%s at %s", w.Type, w.Addr)
			}
			continue
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO records(addr, record_type, data) VALUES(?,?,?)
ON CONFLICT(addr) DO UPDATE SET record_type=excluded.record_type, data=excluded.data`,
			w.Addr.Bytes(), int64(w.Type), w.Data)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) List(ctx context.Context, typ state.RecordType) ([]runtime.StoredRecord, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT addr, data FROM records WHERE record_type=? ORDER BY addr`, int64(typ))
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

// RegisterMint declares a mint, idempotently.
func (d *DB) RegisterMint(ctx context.Context, mint keys.Pubkey, decimals uint8) error {
	_, err := d.db.ExecContext(ctx, `INSERT OR IGNORE INTO token_mints(mint, decimals) VALUES(?,?)`,
		mint.Bytes(), int64(decimals))
	return err
}

// Mint credits owner. Local-mode faucet.
func (d *DB) Mint(ctx context.Context, mint, owner keys.Pubkey, amount uint64) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO token_accounts(mint, owner, balance) VALUES(?,?,?)
ON CONFLICT(mint, owner) DO UPDATE SET balance = balance + excluded.balance`,
		mint.Bytes(), owner.Bytes(), int64(amount))
	return err
}

func (d *DB) Decimals(ctx context.Context, mint keys.Pubkey) (uint8, error) {
	var dec int64
	err := d.db.QueryRowContext(ctx, `SELECT decimals FROM token_mints WHERE mint=?`, mint.Bytes()).Scan(&dec)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	if err != nil {
		return 0, err
	}
	return uint8(dec), nil
}

func (d *DB) BalanceOf(ctx context.Context, mint, owner keys.Pubkey) (uint64, error) {
	var bal int64
	err := d.db.QueryRowContext(ctx, `SELECT balance FROM token_accounts WHERE mint=? AND owner=?`,
		mint.Bytes(), owner.Bytes()).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(bal), nil
}

func (d *DB) TransferChecked(ctx context.Context, mint, from, to keys.Pubkey, amount uint64, decimals uint8) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var dec int64
	err = tx.QueryRowContext(ctx, `SELECT decimals FROM token_mints WHERE mint=?`, mint.Bytes()).Scan(&dec)
	if errors.Is(err, sql.ErrNoRows) {
		return gserr.Newf(gserr.InvalidAccount, "unknown mint %s", mint)
	}
	if err != nil {
		return err
	}
	if uint8(dec) != decimals {
		return gserr.Newf(gserr.InvalidAccount, "mint %s has %d decimals, caller said %d", mint, dec, decimals)
	}

	res, err := tx.ExecContext(ctx, `UPDATE token_accounts SET balance = balance - ?
WHERE mint=? AND owner=? AND balance >= ?`, int64(amount), mint.Bytes(), from.Bytes(), int64(amount))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gserr.Newf(gserr.InsufficientFunds, "account %s", from)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO token_accounts(mint, owner, balance) VALUES(?,?,?)
ON CONFLICT(mint, owner) DO UPDATE SET balance = balance + excluded.balance`,
		mint.Bytes(), to.Bytes(), int64(amount))
	if err != nil {
		return err
	}
	return tx.Commit()
}
