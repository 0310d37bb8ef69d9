// Package store is the Postgres-backed persistence layer: the schema
// contract, the Tick Persister, and the raw queries the engine package
// composes into mark-to-market, trigger evaluation, position close-out,
// and daily rule evaluation.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store wraps a *sql.DB with quotefeed's schema and query surface.
type Store struct {
	db *sql.DB
}

// Open connects to databaseURL and ensures the schema exists.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewForTesting wraps an already-open *sql.DB (typically a sqlmock
// connection) as a Store, skipping migration. For use by this
// package's tests and by other packages' tests that need a Store
// backed by a mock.
func NewForTesting(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS market_data (
			symbol TEXT NOT NULL,
			bid NUMERIC NOT NULL,
			ask NUMERIC NOT NULL,
			high NUMERIC NOT NULL,
			low NUMERIC NOT NULL,
			volume BIGINT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (symbol, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id BIGSERIAL PRIMARY KEY,
			account_size NUMERIC NOT NULL,
			max_daily_loss NUMERIC,
			profit_target NUMERIC
		)`,
		`CREATE TABLE IF NOT EXISTS user_challenges (
			id BIGSERIAL PRIMARY KEY,
			trading_account_id BIGINT NOT NULL,
			challenge_id BIGINT NOT NULL REFERENCES challenges(id),
			current_balance NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS trading_accounts (
			id BIGSERIAL PRIMARY KEY,
			balance NUMERIC NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			user_challenge_id BIGINT NOT NULL REFERENCES user_challenges(id),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id BIGSERIAL PRIMARY KEY,
			trading_account_id BIGINT NOT NULL REFERENCES trading_accounts(id),
			ticket TEXT NOT NULL,
			symbol TEXT NOT NULL,
			type TEXT NOT NULL,
			volume NUMERIC NOT NULL,
			open_price NUMERIC NOT NULL,
			current_price NUMERIC,
			stop_loss NUMERIC,
			take_profit NUMERIC,
			open_time TIMESTAMPTZ NOT NULL,
			commission NUMERIC NOT NULL DEFAULT 0,
			swap NUMERIC NOT NULL DEFAULT 0,
			profit NUMERIC NOT NULL DEFAULT 0,
			comment TEXT,
			magic_number BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			user_challenge_id BIGINT NOT NULL REFERENCES user_challenges(id),
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			lot_size NUMERIC NOT NULL,
			entry_price NUMERIC NOT NULL,
			exit_price NUMERIC NOT NULL,
			pnl NUMERIC NOT NULL,
			commission NUMERIC NOT NULL DEFAULT 0,
			swap NUMERIC NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'CLOSED',
			open_time TIMESTAMPTZ NOT NULL,
			close_time TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
