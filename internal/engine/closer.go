package engine

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"quotefeed/internal/registry"
	"quotefeed/internal/store"
)

// Closer closes positions and, on success, hands the touched challenge
// off to the Rule Evaluator. Both steps are part of the same logical
// operation but the database transaction ends at the close; rule
// evaluation runs afterward against the committed state, per the
// contract in §4.7: "commit, then invoke Rule Evaluator."
type Closer struct {
	store    *store.Store
	registry *registry.Registry
	rules    *RuleEvaluator
}

// NewCloser builds a Closer.
func NewCloser(s *store.Store, reg *registry.Registry, rules *RuleEvaluator) *Closer {
	return &Closer{store: s, registry: reg, rules: rules}
}

// Close closes positionID at closePrice for symbol and evaluates the
// resulting challenge state. A vanished position (already closed by a
// concurrent writer) is treated as a no-op, not an error.
func (c *Closer) Close(ctx context.Context, positionID int64, symbol string, closePrice decimal.Decimal) error {
	inst, ok := c.registry.Get(symbol)
	if !ok {
		return nil
	}

	result, err := c.store.ClosePosition(ctx, positionID, closePrice, inst.ContractSize)
	if errors.Is(err, store.ErrPositionVanished) {
		return nil
	}
	if err != nil {
		return err
	}

	return c.rules.Evaluate(ctx, result.UserChallengeID)
}
