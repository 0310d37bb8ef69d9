package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPositionVanished is returned when a position targeted for close
// no longer exists by the time the closing transaction reads it.
var ErrPositionVanished = errors.New("store: position no longer exists")

// MarkToMarket updates current_price, profit, and swap for every open
// position on symbol. contractSize comes from the Instrument Registry,
// since the positions table does not carry its own contract size.
// allPositions, when false, restricts the update to positions opened
// today (created_at::date = CURRENT_DATE) — the source system's
// original, possibly-buggy restriction, preserved as a configurable
// behavior (see config.MTMAllPositions).
func (s *Store) MarkToMarket(ctx context.Context, symbol string, bid, ask, contractSize decimal.Decimal, allPositions bool) error {
	query := `
		UPDATE positions SET
			current_price = CASE WHEN type = 'BUY' THEN $1 ELSE $2 END,
			profit = CASE WHEN type = 'BUY'
				THEN ($1 - open_price) * volume * $3
				ELSE (open_price - $2) * volume * $3
			END,
			swap = CASE WHEN type = 'BUY'
				THEN 0.000001 * volume * open_price
				ELSE -0.000001 * volume * open_price
			END,
			updated_at = now()
		WHERE symbol = $4`
	if !allPositions {
		query += ` AND created_at::date = CURRENT_DATE`
	}
	_, err := s.db.ExecContext(ctx, query, bid, ask, contractSize, symbol)
	return err
}

// TriggerCandidate is a position loaded for stop-loss/take-profit
// evaluation.
type TriggerCandidate struct {
	ID           int64
	Side         string
	Volume       decimal.Decimal
	OpenPrice    decimal.Decimal
	StopLoss     *decimal.Decimal
	TakeProfit   *decimal.Decimal
	CurrentPrice decimal.Decimal
}

// LoadTriggerCandidates returns every open position on symbol that has
// a non-null current_price, for the Trigger Evaluator to inspect.
func (s *Store) LoadTriggerCandidates(ctx context.Context, symbol string) ([]TriggerCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, volume, open_price, stop_loss, take_profit, current_price
		FROM positions
		WHERE symbol = $1 AND current_price IS NOT NULL`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TriggerCandidate
	for rows.Next() {
		var c TriggerCandidate
		var sl, tp sql.NullString
		var volume, open, cur string
		if err := rows.Scan(&c.ID, &c.Side, &volume, &open, &sl, &tp, &cur); err != nil {
			return nil, err
		}
		if c.Volume, err = decimal.NewFromString(volume); err != nil {
			return nil, fmt.Errorf("store: malformed volume for position %d: %w", c.ID, err)
		}
		if c.OpenPrice, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("store: malformed open_price for position %d: %w", c.ID, err)
		}
		if c.CurrentPrice, err = decimal.NewFromString(cur); err != nil {
			return nil, fmt.Errorf("store: malformed current_price for position %d: %w", c.ID, err)
		}
		if sl.Valid {
			v, err := decimal.NewFromString(sl.String)
			if err != nil {
				return nil, fmt.Errorf("store: malformed stop_loss for position %d: %w", c.ID, err)
			}
			c.StopLoss = &v
		}
		if tp.Valid {
			v, err := decimal.NewFromString(tp.String)
			if err != nil {
				return nil, fmt.Errorf("store: malformed take_profit for position %d: %w", c.ID, err)
			}
			c.TakeProfit = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClosePositionResult summarizes a successful close, for the caller to
// hand off to the Rule Evaluator.
type ClosePositionResult struct {
	UserChallengeID int64
	PNL             decimal.Decimal
}

// ClosePosition performs the full transactional close-out described by
// the Position Closer: load the position joined with its account and
// user_challenge; compute pnl using contractSize (supplied by the
// caller from the Instrument Registry); insert a trades row; update
// the account balance and challenge balance; delete the position. Any
// error rolls back the entire transaction, so a partial close is never
// observable.
func (s *Store) ClosePosition(ctx context.Context, positionID int64, closePrice, contractSize decimal.Decimal) (ClosePositionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ClosePositionResult{}, err
	}
	defer tx.Rollback()

	var (
		tradingAccountID int64
		side             string
		volumeStr        string
		openPriceStr     string
		commissionStr    string
		swapStr          string
		userChallengeID  int64
		accountBalance   string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT p.trading_account_id, p.type, p.volume, p.open_price, p.commission, p.swap,
		       ta.user_challenge_id, ta.balance
		FROM positions p
		JOIN trading_accounts ta ON ta.id = p.trading_account_id
		WHERE p.id = $1
		FOR UPDATE OF p, ta`, positionID).Scan(
		&tradingAccountID, &side, &volumeStr, &openPriceStr, &commissionStr, &swapStr,
		&userChallengeID, &accountBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return ClosePositionResult{}, ErrPositionVanished
	}
	if err != nil {
		return ClosePositionResult{}, err
	}

	volume, err := decimal.NewFromString(volumeStr)
	if err != nil {
		return ClosePositionResult{}, fmt.Errorf("store: malformed volume: %w", err)
	}
	openPrice, err := decimal.NewFromString(openPriceStr)
	if err != nil {
		return ClosePositionResult{}, fmt.Errorf("store: malformed open_price: %w", err)
	}
	commission, err := decimal.NewFromString(commissionStr)
	if err != nil {
		return ClosePositionResult{}, fmt.Errorf("store: malformed commission: %w", err)
	}
	swap, err := decimal.NewFromString(swapStr)
	if err != nil {
		return ClosePositionResult{}, fmt.Errorf("store: malformed swap: %w", err)
	}
	balance, err := decimal.NewFromString(accountBalance)
	if err != nil {
		return ClosePositionResult{}, fmt.Errorf("store: malformed balance: %w", err)
	}

	var gross decimal.Decimal
	if side == "BUY" {
		gross = closePrice.Sub(openPrice).Mul(volume).Mul(contractSize)
	} else {
		gross = openPrice.Sub(closePrice).Mul(volume).Mul(contractSize)
	}
	pnl := gross.Sub(commission).Sub(swap)

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trades (user_challenge_id, symbol, side, lot_size, entry_price, exit_price, pnl, commission, swap, status, open_time, close_time)
		SELECT uc.id, p.symbol, p.type, p.volume, p.open_price, $2, $3, p.commission, p.swap, 'CLOSED', p.open_time, $4
		FROM positions p JOIN trading_accounts ta ON ta.id = p.trading_account_id
		JOIN user_challenges uc ON uc.id = ta.user_challenge_id
		WHERE p.id = $1`, positionID, closePrice, pnl, now); err != nil {
		return ClosePositionResult{}, err
	}

	newBalance := balance.Add(pnl)
	if _, err := tx.ExecContext(ctx, `
		UPDATE trading_accounts SET balance = $1, updated_at = now() WHERE id = $2`,
		newBalance, tradingAccountID); err != nil {
		return ClosePositionResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_challenges SET current_balance = $1, updated_at = now() WHERE id = $2`,
		newBalance, userChallengeID); err != nil {
		return ClosePositionResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, positionID); err != nil {
		return ClosePositionResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ClosePositionResult{}, err
	}

	return ClosePositionResult{UserChallengeID: userChallengeID, PNL: pnl}, nil
}
