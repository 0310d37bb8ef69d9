package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestClassify_Decimals(t *testing.T) {
	cases := map[string]int32{
		"USDJPY": 2,
		"GOLD":   2,
		"US500":  2,
		"BTCUSD": 2,
		"EURUSD": 5,
		"GBPUSD": 5,
	}
	for sym, want := range cases {
		if got := classifyDecimals(sym); got != want {
			t.Errorf("classifyDecimals(%s) = %d, want %d", sym, got, want)
		}
	}
}

func TestClassify_Spread(t *testing.T) {
	cases := map[string]string{
		"USDJPY": "0.02",
		"GOLD":   "0.5",
		"SILVER": "0.05",
		"NIKKEI": "10",
		"US500":  "5",
		"BTCUSD": "50",
		"ETHUSD": "50",
		"EURUSD": "0.0002",
	}
	for sym, want := range cases {
		got := classifySpread(sym)
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("classifySpread(%s) = %s, want %s", sym, got, want)
		}
	}
}

func TestClassify_ContractSize(t *testing.T) {
	cases := map[string]int64{
		"BTCUSD": 1,
		"ETHUSD": 1,
		"XRPUSD": 100000,
		"GOLD":   100,
		"SILVER": 5000,
		"OIL":    1000,
		"EURUSD": 100000,
		"XAUUSD": 100000, // 6-letter symbol falls into the generic forex rule
	}
	for sym, want := range cases {
		got := classifyContractSize(sym)
		if !got.Equal(decimal.NewFromInt(want)) {
			t.Errorf("classifyContractSize(%s) = %s, want %d", sym, got, want)
		}
	}
}

func TestLoad_BuiltinUniverse(t *testing.T) {
	r, err := Load([]string{"EURUSD", "GOLD"}, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	inst, ok := r.Get("EURUSD")
	if !ok {
		t.Fatal("expected EURUSD to be present")
	}
	if inst.Decimals != 5 {
		t.Errorf("EURUSD decimals = %d, want 5", inst.Decimals)
	}
	if _, ok := r.Get("UNKNOWN"); ok {
		t.Error("expected UNKNOWN to be absent from a plain universe load")
	}
}

func TestLoad_OverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instruments.yaml")
	content := `
instruments:
  - symbol: EURUSD
    upstream_ticker: EURUSD=X
    spread: 0.0001
    decimals: 5
    contract_size: 100000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write override file: %v", err)
	}

	r, err := Load([]string{"EURUSD"}, path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	inst, ok := r.Get("EURUSD")
	if !ok {
		t.Fatal("expected EURUSD to be present")
	}
	if inst.UpstreamTicker != "EURUSD=X" {
		t.Errorf("UpstreamTicker = %q, want EURUSD=X", inst.UpstreamTicker)
	}
	if !inst.Spread.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("Spread = %s, want 0.0001 (override should win)", inst.Spread)
	}
}
