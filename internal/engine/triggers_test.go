package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDecideTrigger_BuyStopLoss(t *testing.T) {
	d := DecideTrigger("BUY", decimal.RequireFromString("1.09400"), dec("1.09500"), dec("1.11000"))
	if !d.ShouldClose || d.Reason != "stop_loss" {
		t.Fatalf("expected stop_loss close, got %+v", d)
	}
	if !d.ClosePrice.Equal(decimal.RequireFromString("1.09500")) {
		t.Errorf("ClosePrice = %s, want 1.09500", d.ClosePrice)
	}
}

func TestDecideTrigger_SellTakeProfit(t *testing.T) {
	d := DecideTrigger("SELL", decimal.RequireFromString("148.91"), nil, dec("149.00"))
	if !d.ShouldClose || d.Reason != "take_profit" {
		t.Fatalf("expected take_profit close, got %+v", d)
	}
	if !d.ClosePrice.Equal(decimal.RequireFromString("149.00")) {
		t.Errorf("ClosePrice = %s, want 149.00", d.ClosePrice)
	}
}

func TestDecideTrigger_StopLossWinsOverTakeProfit(t *testing.T) {
	// Pathological but possible: both conditions match for a BUY.
	d := DecideTrigger("BUY", decimal.RequireFromString("1.15000"), dec("1.20000"), dec("1.10000"))
	if !d.ShouldClose || d.Reason != "stop_loss" {
		t.Fatalf("expected stop_loss to win when both match, got %+v", d)
	}
}

func TestDecideTrigger_NoTrigger(t *testing.T) {
	d := DecideTrigger("BUY", decimal.RequireFromString("1.10000"), dec("1.09000"), dec("1.11000"))
	if d.ShouldClose {
		t.Errorf("expected no trigger, got %+v", d)
	}
}

func TestDecideTrigger_NilThresholds(t *testing.T) {
	d := DecideTrigger("SELL", decimal.RequireFromString("150.00"), nil, nil)
	if d.ShouldClose {
		t.Errorf("expected no trigger with nil thresholds, got %+v", d)
	}
}
