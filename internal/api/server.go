// Package api implements the Read API: a small read-only HTTP surface
// over the Quote Service, plus a liveness endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"quotefeed/internal/quotes"
	"quotefeed/internal/registry"
)

// Server is the Read API's HTTP server.
type Server struct {
	registry   *registry.Registry
	quoteSvc   *quotes.Service
	cacheTTL   time.Duration
	statusFunc func() (cyclesRun int, lastCycle time.Time)
}

// NewServer builds a Server. statusFunc, if non-nil, supplies the
// Poller's cycle counters for the /health endpoint's extra detail.
func NewServer(reg *registry.Registry, quoteSvc *quotes.Service, cacheTTL time.Duration, statusFunc func() (int, time.Time)) *Server {
	return &Server{registry: reg, quoteSvc: quoteSvc, cacheTTL: cacheTTL, statusFunc: statusFunc}
}

// Handler returns the HTTP handler with all API routes and CORS headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices", s.handlePrices)
	mux.HandleFunc("GET /api/prices/{symbol}", s.handlePrice)
	mux.HandleFunc("GET /health", s.handleHealth)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type priceView struct {
	Symbol    string  `json:"symbol"`
	Bid       string  `json:"bid"`
	Ask       string  `json:"ask"`
	High      string  `json:"high"`
	Low       string  `json:"low"`
	Volume    int64   `json:"volume"`
	Timestamp float64 `json:"timestamp"`
}

func toPriceView(q quotes.Quote) priceView {
	return priceView{
		Symbol:    q.Symbol,
		Bid:       q.Bid.String(),
		Ask:       q.Ask.String(),
		High:      q.High.String(),
		Low:       q.Low.String(),
		Volume:    q.Volume,
		Timestamp: float64(q.FetchedAt.UnixNano()) / 1e9,
	}
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices := make(map[string]priceView)
	for _, symbol := range s.registry.Symbols() {
		q, err := s.quoteSvc.Get(r.Context(), symbol, s.cacheTTL)
		if err != nil {
			continue
		}
		prices[symbol] = toPriceView(q)
	}
	writeJSON(w, map[string]any{
		"prices":    prices,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if _, ok := s.registry.Get(symbol); !ok {
		writeError(w, http.StatusNotFound, "unknown symbol: "+symbol)
		return
	}
	q, err := s.quoteSvc.Get(r.Context(), symbol, s.cacheTTL)
	if err != nil {
		writeError(w, http.StatusNotFound, "no quote available for "+symbol)
		return
	}
	writeJSON(w, toPriceView(q))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":          "healthy",
		"timestamp":       float64(time.Now().UnixNano()) / 1e9,
		"tracked_symbols": len(s.registry.Symbols()),
	}
	if s.statusFunc != nil {
		cycles, lastCycle := s.statusFunc()
		body["cycles_run"] = cycles
		if !lastCycle.IsZero() {
			body["last_cycle_at"] = lastCycle.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, body)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":     msg,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
	})
}
