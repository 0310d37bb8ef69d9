// Package registry holds the Instrument Registry: the static table that
// maps a tradable symbol to its upstream ticker, quoted spread, decimal
// precision, and contract size. It is loaded once at startup and then
// only ever read.
package registry

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Instrument is one entry in the registry.
type Instrument struct {
	Symbol         string          `yaml:"symbol"`
	UpstreamTicker string          `yaml:"upstream_ticker"`
	Spread         decimal.Decimal `yaml:"spread"`
	Decimals       int32           `yaml:"decimals"`
	ContractSize   decimal.Decimal `yaml:"contract_size"`
}

// Registry is the in-memory instrument table. Safe for concurrent reads
// once built; it is never mutated after Load returns.
type Registry struct {
	instruments map[string]Instrument
	order       []string
}

var commoditySet = map[string]bool{
	"GOLD": true, "SILVER": true, "OIL": true, "COPPER": true, "NATURALGAS": true,
}

var indexSet = map[string]bool{
	"US500": true, "US30": true, "NAS100": true, "NIKKEI": true, "DAX": true, "FTSE": true,
}

var cryptoSet = map[string]bool{
	"BTCUSD": true, "ETHUSD": true, "XRPUSD": true, "ADAUSD": true,
}

// overrideFile is the on-disk shape of an optional instruments override,
// a flat list under a top-level "instruments" key.
type overrideFile struct {
	Instruments []Instrument `yaml:"instruments"`
}

// Load builds a Registry from universe (each symbol classified via
// Classify) plus an optional YAML override file. Symbols in the
// override file take precedence over the classifier; symbols absent
// from both the universe and the file are not in the registry, and Get
// reports them as unknown.
func Load(universe []string, overridePath string) (*Registry, error) {
	r := &Registry{instruments: make(map[string]Instrument, len(universe))}

	for _, sym := range universe {
		r.instruments[sym] = Classify(sym)
		r.order = append(r.order, sym)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, err
		}
		var of overrideFile
		if err := yaml.Unmarshal(data, &of); err != nil {
			return nil, err
		}
		for _, inst := range of.Instruments {
			if _, exists := r.instruments[inst.Symbol]; !exists {
				r.order = append(r.order, inst.Symbol)
			}
			r.instruments[inst.Symbol] = inst
		}
	}

	return r, nil
}

// Get returns the instrument for symbol and whether it is part of the
// configured universe. A symbol never loaded into the registry reports
// false rather than being classified on the fly, so callers can treat
// it as unknown (API 404, poller skip).
func (r *Registry) Get(symbol string) (Instrument, bool) {
	if inst, ok := r.instruments[symbol]; ok {
		return inst, true
	}
	return Instrument{}, false
}

// Symbols returns the registry's configured symbols in load order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Classify derives an Instrument for a symbol that has no explicit
// configuration entry. The rules here are a contract: decimals, spread,
// and contract_size must match exactly for every symbol class.
func Classify(symbol string) Instrument {
	return Instrument{
		Symbol:         symbol,
		UpstreamTicker: symbol,
		Decimals:       classifyDecimals(symbol),
		Spread:         classifySpread(symbol),
		ContractSize:   classifyContractSize(symbol),
	}
}

func isJPYPair(symbol string) bool {
	return strings.Contains(symbol, "JPY")
}

func isCommodity(symbol string) bool {
	return commoditySet[symbol]
}

func isIndex(symbol string) bool {
	return indexSet[symbol]
}

func isCrypto(symbol string) bool {
	return cryptoSet[symbol]
}

func classifyDecimals(symbol string) int32 {
	if isJPYPair(symbol) || isCommodity(symbol) || isIndex(symbol) || isCrypto(symbol) {
		return 2
	}
	return 5
}

func classifySpread(symbol string) decimal.Decimal {
	switch {
	case isJPYPair(symbol):
		return decimal.NewFromFloat(0.02)
	case symbol == "GOLD":
		return decimal.NewFromFloat(0.50)
	case isCommodity(symbol):
		return decimal.NewFromFloat(0.05)
	case symbol == "NIKKEI":
		return decimal.NewFromFloat(10.00)
	case isIndex(symbol):
		return decimal.NewFromFloat(5.00)
	case strings.HasPrefix(symbol, "BTC"), strings.HasPrefix(symbol, "ETH"):
		return decimal.NewFromFloat(50.00)
	default:
		return decimal.NewFromFloat(0.0002)
	}
}

func classifyContractSize(symbol string) decimal.Decimal {
	switch {
	case strings.HasPrefix(symbol, "BTC"), strings.HasPrefix(symbol, "ETH"):
		return decimal.NewFromInt(1)
	case strings.HasPrefix(symbol, "XRP"), strings.HasPrefix(symbol, "ADA"):
		return decimal.NewFromInt(100000)
	case symbol == "GOLD":
		return decimal.NewFromInt(100)
	case symbol == "SILVER", symbol == "COPPER":
		return decimal.NewFromInt(5000)
	case symbol == "OIL", symbol == "NATURALGAS":
		return decimal.NewFromInt(1000)
	case len(symbol) == 6 && isAllUpperLetters(symbol):
		return decimal.NewFromInt(100000)
	default:
		return decimal.NewFromInt(100)
	}
}

func isAllUpperLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// SeedQuotes are the built-in fallback prices used by the quote service
// when a symbol has never been successfully fetched and the cache is
// truly cold. They are approximations, not live data.
func SeedQuotes() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.08),
		"GBPUSD": decimal.NewFromFloat(1.27),
		"USDJPY": decimal.NewFromFloat(150.00),
		"AUDUSD": decimal.NewFromFloat(0.66),
		"USDCAD": decimal.NewFromFloat(1.36),
		"BTCUSD": decimal.NewFromFloat(43000.00),
		"ETHUSD": decimal.NewFromFloat(2300.00),
		"XAUUSD": decimal.NewFromFloat(2000.00),
		"XAGUSD": decimal.NewFromFloat(23.00),
		"US500":  decimal.NewFromFloat(4500.00),
		"US30":   decimal.NewFromFloat(35000.00),
		"NAS100": decimal.NewFromFloat(15500.00),
		"GOLD":   decimal.NewFromFloat(2000.00),
	}
}
