// Package engine orchestrates mark-to-market, stop-loss/take-profit
// evaluation, transactional position close-out, and daily rule
// evaluation on top of the store and quotes packages, plus the Poller
// that drives it all on a cycle.
package engine

import (
	"github.com/shopspring/decimal"
)

// TriggerDecision is the outcome of evaluating one position against
// its stop-loss and take-profit.
type TriggerDecision struct {
	ShouldClose bool
	ClosePrice  decimal.Decimal
	Reason      string // "stop_loss" or "take_profit"
}

// DecideTrigger implements the Trigger Evaluator's table: stop-loss is
// tested before take-profit, so if both conditions match, stop-loss
// wins. If neither condition matches, the position is left alone.
func DecideTrigger(side string, currentPrice decimal.Decimal, stopLoss, takeProfit *decimal.Decimal) TriggerDecision {
	switch side {
	case "BUY":
		if stopLoss != nil && currentPrice.LessThanOrEqual(*stopLoss) {
			return TriggerDecision{ShouldClose: true, ClosePrice: *stopLoss, Reason: "stop_loss"}
		}
		if takeProfit != nil && currentPrice.GreaterThanOrEqual(*takeProfit) {
			return TriggerDecision{ShouldClose: true, ClosePrice: *takeProfit, Reason: "take_profit"}
		}
	case "SELL":
		if stopLoss != nil && currentPrice.GreaterThanOrEqual(*stopLoss) {
			return TriggerDecision{ShouldClose: true, ClosePrice: *stopLoss, Reason: "stop_loss"}
		}
		if takeProfit != nil && currentPrice.LessThanOrEqual(*takeProfit) {
			return TriggerDecision{ShouldClose: true, ClosePrice: *takeProfit, Reason: "take_profit"}
		}
	}
	return TriggerDecision{ShouldClose: false}
}
