package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one observed (bid, ask, high, low, volume, timestamp) tuple
// for a symbol, ready for persistence.
type Tick struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    int64
	Timestamp time.Time
}

// UpsertTick writes a single tick into market_data, overwriting the
// existing row on a (symbol, timestamp) conflict. Callers should log
// and continue on error; a failed tick write never aborts the poller.
func (s *Store) UpsertTick(ctx context.Context, t Tick) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_data (symbol, bid, ask, high, low, volume, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			bid = EXCLUDED.bid,
			ask = EXCLUDED.ask,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			volume = EXCLUDED.volume
	`, t.Symbol, t.Bid, t.Ask, t.High, t.Low, t.Volume, t.Timestamp)
	return err
}

// BulkInsertTicksSkipConflict inserts a batch of historical ticks,
// skipping any row that already exists for its (symbol, timestamp).
// Used by the one-shot backfill: running it twice writes no additional
// rows.
func (s *Store) BulkInsertTicksSkipConflict(ctx context.Context, ticks []Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_data (symbol, bid, ask, high, low, volume, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, timestamp) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.Bid, t.Ask, t.High, t.Low, t.Volume, t.Timestamp); err != nil {
			return err
		}
	}

	return tx.Commit()
}
