package store

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// ChallengeState is the data the Rule Evaluator needs for one
// user_challenge: today's realized P&L plus the thresholds that decide
// a pass/fail transition.
type ChallengeState struct {
	UserChallengeID  int64
	TradingAccountID int64
	Status           string
	CurrentBalance   decimal.Decimal
	AccountSize      decimal.Decimal
	MaxDailyLoss     *decimal.Decimal
	ProfitTarget     *decimal.Decimal
	TodayPNL         decimal.Decimal
}

// LoadChallengeState aggregates today's closed-trade P&L for
// userChallengeID and loads the thresholds needed to evaluate it.
func (s *Store) LoadChallengeState(ctx context.Context, userChallengeID int64) (ChallengeState, error) {
	var st ChallengeState
	st.UserChallengeID = userChallengeID

	var maxDailyLoss, profitTarget sql.NullString
	var balanceStr, accountSizeStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT uc.status, uc.current_balance, ta.id, c.account_size, c.max_daily_loss, c.profit_target
		FROM user_challenges uc
		JOIN trading_accounts ta ON ta.user_challenge_id = uc.id
		JOIN challenges c ON c.id = uc.challenge_id
		WHERE uc.id = $1`, userChallengeID).Scan(
		&st.Status, &balanceStr, &st.TradingAccountID, &accountSizeStr, &maxDailyLoss, &profitTarget)
	if err != nil {
		return ChallengeState{}, err
	}

	if st.CurrentBalance, err = decimal.NewFromString(balanceStr); err != nil {
		return ChallengeState{}, err
	}
	if st.AccountSize, err = decimal.NewFromString(accountSizeStr); err != nil {
		return ChallengeState{}, err
	}
	if maxDailyLoss.Valid {
		v, err := decimal.NewFromString(maxDailyLoss.String)
		if err != nil {
			return ChallengeState{}, err
		}
		st.MaxDailyLoss = &v
	}
	if profitTarget.Valid {
		v, err := decimal.NewFromString(profitTarget.String)
		if err != nil {
			return ChallengeState{}, err
		}
		st.ProfitTarget = &v
	}

	var pnlStr sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(pnl), 0) FROM trades
		WHERE user_challenge_id = $1 AND status = 'CLOSED' AND close_time::date = CURRENT_DATE`,
		userChallengeID).Scan(&pnlStr); err != nil {
		return ChallengeState{}, err
	}
	if pnlStr.Valid {
		if st.TodayPNL, err = decimal.NewFromString(pnlStr.String); err != nil {
			return ChallengeState{}, err
		}
	}

	return st, nil
}

// SetChallengeFailed marks a challenge FAILED and deactivates its
// trading account, in one transaction.
func (s *Store) SetChallengeFailed(ctx context.Context, userChallengeID, tradingAccountID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_challenges SET status = 'FAILED', updated_at = now() WHERE id = $1`, userChallengeID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE trading_accounts SET is_active = false, updated_at = now() WHERE id = $1`, tradingAccountID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetChallengePassed marks a challenge PASSED.
func (s *Store) SetChallengePassed(ctx context.Context, userChallengeID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_challenges SET status = 'PASSED', updated_at = now() WHERE id = $1`, userChallengeID)
	return err
}
