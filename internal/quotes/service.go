package quotes

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"quotefeed/internal/registry"
)

// Service composes the Instrument Registry, a Provider, and a Cache
// into the single "get me the latest quote for this symbol" operation
// both the Poller and the Read API call.
type Service struct {
	registry *registry.Registry
	provider Provider
	cache    *Cache
	seed     map[string]decimal.Decimal
	now      func() time.Time
}

// NewService builds a Service whose clock is time.Now; tests in this
// package may replace s.now for deterministic freshness checks.
func NewService(reg *registry.Registry, provider Provider, cache *Cache) *Service {
	return &Service{
		registry: reg,
		provider: provider,
		cache:    cache,
		seed:     registry.SeedQuotes(),
		now:      time.Now,
	}
}

// Get returns the latest quote for symbol, fresh within freshness.
// It returns ErrNoData if the symbol is unknown to the registry, or if
// no quote (fresh, stale, or seeded) could be produced at all.
func (s *Service) Get(ctx context.Context, symbol string, freshness time.Duration) (Quote, error) {
	inst, ok := s.registry.Get(symbol)
	if !ok {
		return Quote{}, ErrNoData
	}

	now := s.now()
	if cached, fresh, found := s.cache.Get(symbol, freshness, now); found && fresh {
		return cached, nil
	}

	q, err := s.cache.Fetch(symbol, func() (Quote, error) {
		return s.fetchAndSynthesize(ctx, inst, now)
	})
	if err == nil {
		return q, nil
	}

	if cached, _, found := s.cache.Get(symbol, freshness, now); found {
		return cached, nil
	}

	if price, ok := s.seed[symbol]; ok {
		return s.synthesize(inst, Bar{Close: price}, now), nil
	}

	return Quote{}, ErrNoData
}

func (s *Service) fetchAndSynthesize(ctx context.Context, inst registry.Instrument, now time.Time) (Quote, error) {
	bar, err := s.provider.Snapshot(ctx, inst.UpstreamTicker)
	if err != nil {
		return Quote{}, err
	}
	q := s.synthesize(inst, bar, now)
	s.cache.Put(q)
	return q, nil
}

// synthesize builds bid/ask around a bar's close using the instrument's
// configured spread, rounded half-away-from-zero to its decimal places.
func (s *Service) synthesize(inst registry.Instrument, bar Bar, now time.Time) Quote {
	half := inst.Spread.Div(decimal.NewFromInt(2))
	bid := roundHalfAwayFromZero(bar.Close.Sub(half), inst.Decimals)
	ask := roundHalfAwayFromZero(bar.Close.Add(half), inst.Decimals)

	volume := bar.Volume
	if volume < 0 {
		volume = 0
	}

	return Quote{
		Symbol:    inst.Symbol,
		Bid:       bid,
		Ask:       ask,
		High:      bar.High,
		Low:       bar.Low,
		Volume:    volume,
		FetchedAt: now,
	}
}

func roundHalfAwayFromZero(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
