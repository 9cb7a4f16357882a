// Package marketdata simulates the external price-feed collaborator: a
// random-walk price per symbol, advanced on a fixed tick and broadcast
// to WebSocket subscribers. The wallet core only ever consumes the
// Snapshot map; it never reaches into the feed.
package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultVolatility is the maximum per-tick price move (±0.2%).
const DefaultVolatility = 0.002

// DefaultPrices seeds the feed with a handful of liquid pairs.
var DefaultPrices = map[string]float64{
	"BTCUSDT": 50000,
	"ETHUSDT": 2500,
	"SOLUSDT": 150,
	"BNBUSDT": 600,
	"XRPUSDT": 0.55,
}

// Feed holds the current simulated prices.
type Feed struct {
	mu         sync.RWMutex
	prices     map[string]float64
	rng        *rand.Rand
	volatility float64
	hub        *Hub
}

// NewFeed creates a feed seeded with the given starting prices. The
// random source drives the walk and is injected so tests can pin it.
func NewFeed(start map[string]float64, rng *rand.Rand) *Feed {
	prices := make(map[string]float64, len(start))
	for symbol, price := range start {
		prices[symbol] = price
	}
	return &Feed{
		prices:     prices,
		rng:        rng,
		volatility: DefaultVolatility,
	}
}

// AttachHub wires a WebSocket hub to receive tick broadcasts.
func (f *Feed) AttachHub(hub *Hub) {
	f.hub = hub
}

// SetVolatility overrides the maximum per-tick move.
func (f *Feed) SetVolatility(v float64) {
	f.volatility = v
}

// Snapshot returns a copy of the current price map.
func (f *Feed) Snapshot() map[string]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]float64, len(f.prices))
	for symbol, price := range f.prices {
		out[symbol] = price
	}
	return out
}

// Price returns the current price for a symbol, if tracked.
func (f *Feed) Price(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok := f.prices[symbol]
	return price, ok
}

// SetPrice pins a symbol's price. Used by tests and the simulation.
func (f *Feed) SetPrice(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}

// Advance moves every price one random-walk step and broadcasts the new
// snapshot to any attached hub.
func (f *Feed) Advance() {
	f.mu.Lock()
	now := time.Now()
	for symbol := range f.prices {
		move := (f.rng.Float64()*2 - 1) * f.volatility
		f.prices[symbol] *= 1 + move
		if f.hub != nil {
			f.hub.Broadcast(TickMessage{
				Type:      "tick",
				Symbol:    symbol,
				Price:     f.prices[symbol],
				Timestamp: now,
			})
		}
	}
	f.mu.Unlock()
}

// Start advances the feed on the given interval until the context is
// cancelled.
func (f *Feed) Start(ctx context.Context, interval time.Duration) {
	logger := log.With().Str("component", "market_feed").Logger()
	logger.Info().Dur("interval", interval).Int("symbols", len(f.prices)).Msg("starting market feed")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down market feed")
			return
		case <-ticker.C:
			f.Advance()
		}
	}
}
