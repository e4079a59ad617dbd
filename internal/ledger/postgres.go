package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgQuerier is the slice of pgxpool.Pool the ledger needs. Declared
// locally so tests can substitute pgxmock.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresLedger stores committed ids in a single-column table keyed
// by the announcement identifier.
type PostgresLedger struct {
	pool  pgQuerier
	table string
}

// OpenPostgres connects to dsn and ensures the ledger table exists.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect ledger db: %w", err)
	}
	l := newPostgres(pool, table)
	if err := l.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func newPostgres(pool pgQuerier, table string) *PostgresLedger {
	if table == "" {
		table = "processed_announcements"
	}
	return &PostgresLedger{pool: pool, table: table}
}

func (l *PostgresLedger) ensureTable(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		committed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, l.table)
	if _, err := l.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure ledger table: %w", err)
	}
	return nil
}

// Contains reports whether id was already committed.
func (l *PostgresLedger) Contains(ctx context.Context, id string) (bool, error) {
	q := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, l.table)
	var exists bool
	if err := l.pool.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return exists, nil
}

// Commit records id. Recommitting a known id is a no-op.
func (l *PostgresLedger) Commit(ctx context.Context, id string) error {
	q := fmt.Sprintf(`INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, l.table)
	if _, err := l.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (l *PostgresLedger) Close() {
	l.pool.Close()
}
