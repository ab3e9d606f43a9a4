package nonce

import (
	"context"
	"database/sql"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/dexloom/lloom/protocol"
)

// SqliteLedger persists nonces in an embedded SQLite database. The single
// connection pool serializes writers, which gives Record its per-signer
// atomicity.
type SqliteLedger struct {
	db *sql.DB
}

func OpenSqliteLedger(ctx context.Context, path string) (*SqliteLedger, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetConnMaxLifetime(0)
	if err := ensureNonceSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SqliteLedger{db: db}, nil
}

func (l *SqliteLedger) Close() error {
	return l.db.Close()
}

func ensureNonceSchema(ctx context.Context, db *sql.DB) error {
	stmt := `
CREATE TABLE IF NOT EXISTS signer_nonces (
  signer TEXT PRIMARY KEY,
  nonce INTEGER NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f','now'))
);`
	_, err := db.ExecContext(ctx, stmt)
	return err
}

func (l *SqliteLedger) PeekNext(ctx context.Context, signer common.Address) (uint64, error) {
	var stored int64
	err := l.db.QueryRowContext(ctx,
		`SELECT nonce FROM signer_nonces WHERE signer = ?`, signer.Hex()).Scan(&stored)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(stored) + 1, nil
}

func (l *SqliteLedger) Record(ctx context.Context, signer common.Address, nonce uint64) error {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var stored int64
	err = tx.QueryRowContext(ctx,
		`SELECT nonce FROM signer_nonces WHERE signer = ?`, signer.Hex()).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if nonce <= uint64(stored) {
		return errorsmod.Wrapf(protocol.ErrNonceReplay, "signer %s: nonce %d <= recorded %d", signer, nonce, stored)
	}

	q := `INSERT INTO signer_nonces(signer, nonce) VALUES(?, ?)
ON CONFLICT(signer) DO UPDATE SET nonce = excluded.nonce, updated_at = (STRFTIME('%Y-%m-%d %H:%M:%f','now'))`
	if _, err := tx.ExecContext(ctx, q, signer.Hex(), int64(nonce)); err != nil {
		return err
	}
	return tx.Commit()
}
