// Package sqlite provides a SQLite-backed ledger.HistoryStore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/storage/sqlite/migrations"
)

// Store persists committed accounts and the bank history that produced
// them. Each commit is one SQL transaction.
type Store struct {
	db *sql.DB
}

var _ ledger.AccountStore = (*Store)(nil)

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite serializes writers; a single connection keeps Commit atomic with
	// respect to concurrent Gets without relying on busy retries.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, addr address.Address) (ledger.Account, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT lamports, owner, executable, data FROM accounts WHERE address = ?`, addr[:])
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("get account %s: %w", addr, err)
	}
	return acct, true, nil
}

func (s *Store) Commit(ctx context.Context, updates []ledger.AccountUpdate) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return applyUpdates(ctx, tx, updates) })
}

// inTx runs fn in one SQL transaction, rolling back when fn fails.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func applyUpdates(ctx context.Context, tx *sql.Tx, updates []ledger.AccountUpdate) error {
	for _, u := range updates {
		var err error
		if u.Delete {
			_, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE address = ?`, u.Address[:])
		} else {
			data := u.Account.Data
			if data == nil {
				data = []byte{}
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (address, lamports, owner, executable, data)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(address) DO UPDATE SET
				   lamports = excluded.lamports,
				   owner = excluded.owner,
				   executable = excluded.executable,
				   data = excluded.data`,
				u.Address[:], int64(u.Account.Lamports), u.Account.Owner[:], boolInt(u.Account.Executable), data,
			)
		}
		if err != nil {
			return fmt.Errorf("commit account %s: %w", u.Address, err)
		}
	}
	return nil
}

// Range visits accounts in ascending address order. SQLite orders BLOBs by
// memcmp, which matches address.Compare.
func (s *Store) Range(ctx context.Context, fn func(address.Address, ledger.Account) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, lamports, owner, executable, data FROM accounts ORDER BY address`)
	if err != nil {
		return fmt.Errorf("range accounts: %w", err)
	}
	type entry struct {
		addr address.Address
		acct ledger.Account
	}
	// Drain before calling fn so fn may use the store.
	var entries []entry
	for rows.Next() {
		var raw []byte
		var acct ledger.Account
		var lamports int64
		var owner []byte
		if err := rows.Scan(&raw, &lamports, &owner, &acct.Executable, &acct.Data); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan account: %w", err)
		}
		addr, err := address.FromBytes(raw)
		if err != nil {
			_ = rows.Close()
			return err
		}
		if acct.Owner, err = address.FromBytes(owner); err != nil {
			_ = rows.Close()
			return err
		}
		acct.Lamports = uint64(lamports)
		entries = append(entries, entry{addr, acct})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("range accounts: %w", err)
	}
	_ = rows.Close()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e.addr, e.acct); err != nil {
			return err
		}
	}
	return nil
}

func scanAccount(row *sql.Row) (ledger.Account, error) {
	var acct ledger.Account
	var lamports int64
	var owner []byte
	if err := row.Scan(&lamports, &owner, &acct.Executable, &acct.Data); err != nil {
		return ledger.Account{}, err
	}
	o, err := address.FromBytes(owner)
	if err != nil {
		return ledger.Account{}, err
	}
	acct.Owner = o
	acct.Lamports = uint64(lamports)
	return acct, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
