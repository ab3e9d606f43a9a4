package accounting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dexloom/lloom/protocol"
	"github.com/dexloom/lloom/settlement"
)

// SqliteLedger persists usage records in an embedded SQLite database.
// Costs are uint256, so they are stored as decimal strings and summed in
// Go rather than in SQL.
type SqliteLedger struct {
	db *sql.DB
}

// OpenSqliteLedger opens the database and claims ownership for
// initialOwner if no owner is stored yet.
func OpenSqliteLedger(ctx context.Context, path string, initialOwner common.Address) (*SqliteLedger, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetConnMaxLifetime(0)
	l := &SqliteLedger{db: db}
	if err := l.ensureSchema(ctx, initialOwner); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SqliteLedger) Close() error {
	return l.db.Close()
}

func (l *SqliteLedger) ensureSchema(ctx context.Context, initialOwner common.Address) error {
	stmt := `
CREATE TABLE IF NOT EXISTS usage_records (
  id TEXT PRIMARY KEY,
  request_hash TEXT NOT NULL UNIQUE,
  client TEXT NOT NULL,
  executor TEXT NOT NULL,
  model TEXT NOT NULL,
  inbound_tokens INTEGER NOT NULL,
  outbound_tokens INTEGER NOT NULL,
  cost TEXT NOT NULL,
  recorded_at DATETIME NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f','now'))
);

CREATE INDEX IF NOT EXISTS idx_usage_executor ON usage_records(executor);
CREATE INDEX IF NOT EXISTS idx_usage_client ON usage_records(client);

CREATE TABLE IF NOT EXISTS ledger_meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ledger_meta(key, value) VALUES('owner', ?) ON CONFLICT(key) DO NOTHING`,
		initialOwner.Hex())
	return err
}

func (l *SqliteLedger) RecordUsage(ctx context.Context, ex *settlement.VerifiedExchange) error {
	requestHash := ex.Response.Commitment.RequestHash

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM usage_records WHERE request_hash = ?`, requestHash.Hex()).Scan(&existing)
	if err == nil {
		return errorsmod.Wrapf(protocol.ErrNonceReplay, "request %s already recorded as %s", requestHash, existing)
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO usage_records (id, request_hash, client, executor, model, inbound_tokens, outbound_tokens, cost)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		requestHash.Hex(),
		ex.Client.Hex(),
		ex.Executor.Hex(),
		ex.Response.Commitment.Model,
		int64(ex.Response.Commitment.InboundTokens),
		int64(ex.Response.Commitment.OutboundTokens),
		ex.Cost.String(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (l *SqliteLedger) HasRecordedUsage(ctx context.Context, requestHash common.Hash) (bool, error) {
	var id string
	err := l.db.QueryRowContext(ctx,
		`SELECT id FROM usage_records WHERE request_hash = ?`, requestHash.Hex()).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *SqliteLedger) ExecutorStats(ctx context.Context, executor common.Address) (PartyStats, error) {
	return l.partyStats(ctx, "executor", executor)
}

func (l *SqliteLedger) ClientStats(ctx context.Context, client common.Address) (PartyStats, error) {
	return l.partyStats(ctx, "client", client)
}

func (l *SqliteLedger) partyStats(ctx context.Context, column string, addr common.Address) (PartyStats, error) {
	q := fmt.Sprintf(
		`SELECT inbound_tokens, outbound_tokens, cost FROM usage_records WHERE %s = ?`, column)
	rows, err := l.db.QueryContext(ctx, q, addr.Hex())
	if err != nil {
		return PartyStats{}, err
	}
	defer rows.Close()

	stats := PartyStats{TotalCost: new(big.Int)}
	for rows.Next() {
		var in, out int64
		var costRaw string
		if err := rows.Scan(&in, &out, &costRaw); err != nil {
			return PartyStats{}, err
		}
		cost, ok := new(big.Int).SetString(costRaw, 10)
		if !ok {
			return PartyStats{}, fmt.Errorf("corrupt cost value %q", costRaw)
		}
		stats.InboundTokens += uint64(in)
		stats.OutboundTokens += uint64(out)
		stats.TotalCost.Add(stats.TotalCost, cost)
		stats.ExchangeCount++
	}
	return stats, rows.Err()
}

func (l *SqliteLedger) NetworkStats(ctx context.Context) (NetworkStats, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT inbound_tokens, outbound_tokens, cost FROM usage_records`)
	if err != nil {
		return NetworkStats{}, err
	}
	defer rows.Close()

	stats := NetworkStats{TotalCost: new(big.Int)}
	for rows.Next() {
		var in, out int64
		var costRaw string
		if err := rows.Scan(&in, &out, &costRaw); err != nil {
			return NetworkStats{}, err
		}
		cost, ok := new(big.Int).SetString(costRaw, 10)
		if !ok {
			return NetworkStats{}, fmt.Errorf("corrupt cost value %q", costRaw)
		}
		stats.InboundTokens += uint64(in)
		stats.OutboundTokens += uint64(out)
		stats.TotalCost.Add(stats.TotalCost, cost)
		stats.ExchangeCount++
	}
	return stats, rows.Err()
}

func (l *SqliteLedger) Owner(ctx context.Context) (common.Address, error) {
	var raw string
	err := l.db.QueryRowContext(ctx,
		`SELECT value FROM ledger_meta WHERE key = 'owner'`).Scan(&raw)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(raw), nil
}

func (l *SqliteLedger) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM ledger_meta WHERE key = 'owner'`).Scan(&raw); err != nil {
		return err
	}
	if common.HexToAddress(raw) != caller {
		return errorsmod.Wrapf(ErrNotOwner, "caller %s, owner %s", caller, raw)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger_meta SET value = ? WHERE key = 'owner'`, newOwner.Hex()); err != nil {
		return err
	}
	return tx.Commit()
}
