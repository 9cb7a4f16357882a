package orderbook

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Executor runs one order-check pass for every wallet session against a
// single price snapshot. Implemented by the wallet service.
type Executor interface {
	CheckAndExecuteAll(prices map[string]float64) int
}

// PriceSource supplies the current price snapshot. Implemented by the
// market data feed.
type PriceSource interface {
	Snapshot() map[string]float64
}

// Processor drives order evaluation on a fixed cadence. The scheduling
// lives here, outside the core: the book itself only ever reacts to the
// snapshots it is handed.
type Processor struct {
	exec     Executor
	prices   PriceSource
	interval time.Duration
}

// NewProcessor creates a processor checking orders every interval.
func NewProcessor(exec Executor, prices PriceSource, interval time.Duration) *Processor {
	return &Processor{
		exec:     exec,
		prices:   prices,
		interval: interval,
	}
}

// Start begins the order-check loop and blocks until the context is
// cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "order_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting order processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down order processor")
			return
		case <-ticker.C:
			snapshot := p.prices.Snapshot()
			if len(snapshot) == 0 {
				continue
			}
			if filled := p.exec.CheckAndExecuteAll(snapshot); filled > 0 {
				logger.Info().Int("filled", filled).Msg("orders filled this pass")
			}
		}
	}
}
