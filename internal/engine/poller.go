package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quotefeed/internal/logger"
	"quotefeed/internal/quotes"
	"quotefeed/internal/registry"
	"quotefeed/internal/store"
)

// Poller is the cycle driver: for every registered symbol it fetches a
// quote, persists a tick, marks positions to market, and evaluates
// stop-loss/take-profit triggers, then sleeps before the next cycle.
type Poller struct {
	registry       *registry.Registry
	quoteSvc       *quotes.Service
	store          *store.Store
	mtm            *MarkToMarketer
	closer         *Closer
	cacheTTL       time.Duration
	intervalOpen   time.Duration
	intervalClosed time.Duration

	cyclesRun int
	lastCycle time.Time
}

// NewPoller builds a Poller.
func NewPoller(reg *registry.Registry, quoteSvc *quotes.Service, s *store.Store, mtm *MarkToMarketer, closer *Closer, cacheTTL, intervalOpen, intervalClosed time.Duration) *Poller {
	return &Poller{
		registry:       reg,
		quoteSvc:       quoteSvc,
		store:          s,
		mtm:            mtm,
		closer:         closer,
		cacheTTL:       cacheTTL,
		intervalOpen:   intervalOpen,
		intervalClosed: intervalClosed,
	}
}

// Run drives cycles until ctx is canceled. On cancellation it finishes
// the in-flight cycle, skips the sleep, and returns.
func (p *Poller) Run(ctx context.Context) {
	for {
		p.runCycle(ctx)
		p.cyclesRun++
		p.lastCycle = time.Now()

		if ctx.Err() != nil {
			return
		}

		interval := p.intervalClosed
		if isMarketOpen(time.Now().UTC()) {
			interval = p.intervalOpen
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// CyclesRun reports how many full cycles have completed, for the
// health endpoint.
func (p *Poller) CyclesRun() int { return p.cyclesRun }

// LastCycleAt reports when the most recent cycle finished.
func (p *Poller) LastCycleAt() time.Time { return p.lastCycle }

func (p *Poller) runCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	symbols := p.registry.Symbols()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			p.processSymbol(gctx, symbol)
			return nil // per-symbol errors are isolated, never abort the cycle
		})
	}
	_ = g.Wait()

	logger.Stats("cycle_id", cycleID)
	logger.Stats("symbols_polled", len(symbols))
}

func (p *Poller) processSymbol(ctx context.Context, symbol string) {
	q, err := p.quoteSvc.Get(ctx, symbol, p.cacheTTL)
	if err != nil {
		logger.Warn("POLLER", "no quote for "+symbol+": "+err.Error())
		return
	}

	tick := store.Tick{
		Symbol:    symbol,
		Bid:       q.Bid,
		Ask:       q.Ask,
		High:      q.High,
		Low:       q.Low,
		Volume:    q.Volume,
		Timestamp: q.FetchedAt,
	}
	if err := p.store.UpsertTick(ctx, tick); err != nil {
		logger.Error("POLLER", "tick persist failed for "+symbol+": "+err.Error())
		return
	}

	if err := p.mtm.Apply(ctx, symbol, q.Bid, q.Ask); err != nil {
		logger.Error("POLLER", "mark-to-market failed for "+symbol+": "+err.Error())
		return
	}

	candidates, err := p.store.LoadTriggerCandidates(ctx, symbol)
	if err != nil {
		logger.Error("POLLER", "trigger load failed for "+symbol+": "+err.Error())
		return
	}

	for _, c := range candidates {
		decision := DecideTrigger(c.Side, c.CurrentPrice, c.StopLoss, c.TakeProfit)
		if !decision.ShouldClose {
			continue
		}
		if err := p.closer.Close(ctx, c.ID, symbol, decision.ClosePrice); err != nil {
			logger.Error("POLLER", "close failed for position on "+symbol+": "+err.Error())
		}
	}
}

// isMarketOpen is a deliberately coarse heuristic: UTC weekday Mon-Fri
// is "open," weekend is "closed." It does not account for session
// boundaries, holidays, or exchange-specific hours.
func isMarketOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
