package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"quotefeed/internal/registry"
	"quotefeed/internal/store"
)

// MarkToMarketer applies a fresh bid/ask to every eligible open
// position on a symbol.
type MarkToMarketer struct {
	store        *store.Store
	registry     *registry.Registry
	allPositions bool
}

// NewMarkToMarketer builds a MarkToMarketer. allPositions controls
// whether the "opened today" restriction from the source contract is
// enforced (false, the default) or dropped (true).
func NewMarkToMarketer(s *store.Store, reg *registry.Registry, allPositions bool) *MarkToMarketer {
	return &MarkToMarketer{store: s, registry: reg, allPositions: allPositions}
}

// Apply updates current_price, profit, and swap for symbol's open
// positions using bid/ask.
func (m *MarkToMarketer) Apply(ctx context.Context, symbol string, bid, ask decimal.Decimal) error {
	inst, ok := m.registry.Get(symbol)
	if !ok {
		return nil
	}
	return m.store.MarkToMarket(ctx, symbol, bid, ask, inst.ContractSize, m.allPositions)
}
