package engine

import (
	"context"

	"quotefeed/internal/store"
)

// RuleEvaluator decides whether a challenge's daily realized P&L has
// crossed its max-daily-loss or profit-target thresholds. Status
// transitions are one-way and idempotent: re-evaluating an already
// FAILED or PASSED challenge is a no-op.
type RuleEvaluator struct {
	store *store.Store
}

// NewRuleEvaluator builds a RuleEvaluator.
func NewRuleEvaluator(s *store.Store) *RuleEvaluator {
	return &RuleEvaluator{store: s}
}

// Evaluate loads the current state for userChallengeID and applies the
// daily-loss / profit-target rules.
func (r *RuleEvaluator) Evaluate(ctx context.Context, userChallengeID int64) error {
	st, err := r.store.LoadChallengeState(ctx, userChallengeID)
	if err != nil {
		return err
	}

	if st.Status != "ACTIVE" {
		return nil
	}

	if st.MaxDailyLoss != nil && st.TodayPNL.LessThanOrEqual(st.MaxDailyLoss.Neg()) {
		return r.store.SetChallengeFailed(ctx, st.UserChallengeID, st.TradingAccountID)
	}

	if st.ProfitTarget != nil {
		gain := st.CurrentBalance.Sub(st.AccountSize)
		if gain.GreaterThanOrEqual(*st.ProfitTarget) {
			return r.store.SetChallengePassed(ctx, st.UserChallengeID)
		}
	}

	return nil
}
