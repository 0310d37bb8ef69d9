// Package quotes implements the Quote Source Adapter, Quote Cache, and
// Quote Service: fetching a symbol's latest price from an upstream
// provider, synthesizing a bid/ask spread around it, and caching the
// result with a last-known-good fallback.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

// ErrNoData is returned by a Provider when no price could be obtained
// for a ticker through any of its fallback tiers.
var ErrNoData = errors.New("quotes: no data available for ticker")

// Bar is one aggregated price observation: a closing price plus the
// high/low/volume for whatever window produced it.
type Bar struct {
	Close  decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Volume int64
}

// Provider fetches the latest tradable snapshot for an upstream ticker.
type Provider interface {
	Snapshot(ctx context.Context, upstreamTicker string) (Bar, error)
}

// HTTPProvider is a Provider backed by a chart-style market data HTTP
// API. It implements the three-tier fallback policy: 1-day/1-minute
// bars, then 5-day/5-minute bars, then a coarse snapshot-info call.
type HTTPProvider struct {
	BaseURL string
	Client  *retryablehttp.Client
}

// NewHTTPProvider builds an HTTPProvider with sane retry/backoff
// defaults: up to 3 retries after the first attempt, exponential
// backoff starting at 250ms and capped at 2s.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.Logger = nil
	return &HTTPProvider{BaseURL: baseURL, Client: c}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

type snapshotInfoResponse struct {
	Bid                 *float64 `json:"bid"`
	Ask                 *float64 `json:"ask"`
	CurrentPrice        *float64 `json:"currentPrice"`
	RegularMarketPrice  *float64 `json:"regularMarketPrice"`
	AverageVolume10Days *int64   `json:"averageVolume10days"`
}

// Snapshot implements the Provider contract's three-tier fallback. A
// transport/decode exception at any tier collapses the whole call to
// ErrNoData rather than promoting to the next tier; only a
// successfully-parsed but empty response advances the fallback chain.
func (p *HTTPProvider) Snapshot(ctx context.Context, ticker string) (Bar, error) {
	if bar, ok, err := p.fetchBars(ctx, ticker, "1d", "1m"); err != nil {
		return Bar{}, ErrNoData
	} else if ok {
		return bar, nil
	}

	if bar, ok, err := p.fetchBars(ctx, ticker, "5d", "5m"); err != nil {
		return Bar{}, ErrNoData
	} else if ok {
		return bar, nil
	}

	bar, ok, err := p.fetchSnapshotInfo(ctx, ticker)
	if err != nil || !ok {
		return Bar{}, ErrNoData
	}
	return bar, nil
}

func (p *HTTPProvider) fetchBars(ctx context.Context, ticker, rangeParam, interval string) (Bar, bool, error) {
	url := fmt.Sprintf("%s/chart/%s?range=%s&interval=%s", p.BaseURL, ticker, rangeParam, interval)
	var cr chartResponse
	if err := p.getJSON(ctx, url, &cr); err != nil {
		return Bar{}, false, err // provider exception, distinct from an empty tier
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return Bar{}, false, nil
	}
	q := cr.Chart.Result[0].Indicators.Quote[0]
	if len(q.Close) == 0 {
		return Bar{}, false, nil
	}
	last := len(q.Close) - 1
	var volSum int64
	for _, v := range q.Volume {
		if v > 0 {
			volSum += v
		}
	}
	return Bar{
		Close:  decimal.NewFromFloat(q.Close[last]),
		High:   decimal.NewFromFloat(q.High[last]),
		Low:    decimal.NewFromFloat(q.Low[last]),
		Volume: volSum,
	}, true, nil
}

func (p *HTTPProvider) fetchSnapshotInfo(ctx context.Context, ticker string) (Bar, bool, error) {
	url := fmt.Sprintf("%s/info/%s", p.BaseURL, ticker)
	var info snapshotInfoResponse
	if err := p.getJSON(ctx, url, &info); err != nil {
		return Bar{}, false, err
	}

	var mid decimal.Decimal
	switch {
	case info.Bid != nil && info.Ask != nil:
		mid = decimal.NewFromFloat(*info.Bid).Add(decimal.NewFromFloat(*info.Ask)).Div(decimal.NewFromInt(2))
	case info.CurrentPrice != nil:
		mid = decimal.NewFromFloat(*info.CurrentPrice)
	case info.RegularMarketPrice != nil:
		mid = decimal.NewFromFloat(*info.RegularMarketPrice)
	default:
		return Bar{}, false, nil
	}

	onePct := mid.Mul(decimal.NewFromFloat(0.01))
	var vol int64
	if info.AverageVolume10Days != nil {
		vol = *info.AverageVolume10Days
	}

	return Bar{
		Close:  mid,
		High:   mid.Add(onePct),
		Low:    mid.Sub(onePct),
		Volume: vol,
	}, true, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, url string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quotes: upstream returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
