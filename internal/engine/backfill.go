package engine

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quotefeed/internal/logger"
	"quotefeed/internal/quotes"
	"quotefeed/internal/registry"
	"quotefeed/internal/store"
)

// backfillSymbols is the small whitelist the one-shot historical
// backfill covers on startup.
var backfillSymbols = []string{"EURUSD", "GBPUSD", "USDJPY", "GOLD", "BTCUSD"}

var decimalTwo = decimal.NewFromInt(2)

// Backfiller performs the startup historical backfill, gated by a
// persisted watermark file so it only ever runs once per UTC day.
type Backfiller struct {
	registry      *registry.Registry
	provider      quotes.Provider
	store         *store.Store
	watermarkFile string
	days          int
}

// NewBackfiller builds a Backfiller.
func NewBackfiller(reg *registry.Registry, provider quotes.Provider, s *store.Store, watermarkFile string, days int) *Backfiller {
	return &Backfiller{registry: reg, provider: provider, store: s, watermarkFile: watermarkFile, days: days}
}

// Run performs the backfill if the watermark does not already record
// today's UTC date, then rewrites the watermark to today.
func (b *Backfiller) Run(ctx context.Context) error {
	today := time.Now().UTC().Format("2006-01-02")

	if b.watermarkIsToday(today) {
		logger.Info("BACKFILL", "watermark already set for "+today+", skipping")
		return nil
	}

	logger.Section("Historical Backfill")
	for _, symbol := range backfillSymbols {
		inst, ok := b.registry.Get(symbol)
		if !ok {
			inst = registry.Classify(symbol)
		}
		if err := b.backfillSymbol(ctx, inst); err != nil {
			logger.Error("BACKFILL", "symbol "+symbol+" failed: "+err.Error())
			continue
		}
	}

	return b.writeWatermark(today)
}

// backfillSymbol is a stub: the source interface defines "load 7 days
// of 1-minute bars" but the upstream adapter only exposes a single
// current Snapshot, so the same close price is replicated across
// b.days daily ticks at today's UTC midnight minus d days rather than a
// real historical series. Because the timestamps derive from the UTC
// date, not from any upstream bar time, re-running this on the same
// calendar day produces the same (symbol, timestamp) pairs, so the
// conflict-skip insert writes no additional rows.
func (b *Backfiller) backfillSymbol(ctx context.Context, inst registry.Instrument) error {
	bar, err := b.provider.Snapshot(ctx, inst.UpstreamTicker)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	var ticks []store.Tick
	for d := 0; d < b.days; d++ {
		ts := now.AddDate(0, 0, -d)
		spreadHalf := inst.Spread.Div(decimalTwo)
		bid := bar.Close.Sub(spreadHalf).Round(inst.Decimals)
		ask := bar.Close.Add(spreadHalf).Round(inst.Decimals)
		ticks = append(ticks, store.Tick{
			Symbol:    inst.Symbol,
			Bid:       bid,
			Ask:       ask,
			High:      bar.High,
			Low:       bar.Low,
			Volume:    bar.Volume,
			Timestamp: ts,
		})
	}

	return b.store.BulkInsertTicksSkipConflict(ctx, ticks)
}

func (b *Backfiller) watermarkIsToday(today string) bool {
	data, err := os.ReadFile(b.watermarkFile)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == today
}

func (b *Backfiller) writeWatermark(today string) error {
	return os.WriteFile(b.watermarkFile, []byte(today), 0o644)
}
