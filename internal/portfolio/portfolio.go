// Package portfolio derives wallet valuations from ledger state and a
// caller-supplied price snapshot. Everything here is computed on demand
// and never stored.
package portfolio

import (
	"sort"

	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/types"
)

// Value returns the single valid portfolio value: cash plus every
// holding marked to the snapshot. Holdings without a price count as
// zero.
func Value(l *ledger.Ledger, prices map[string]float64) float64 {
	total := l.CashBalance()
	for _, h := range l.Holdings() {
		total += h.Quantity * prices[h.Symbol]
	}
	return total
}

// Metrics computes the wallet-level valuation. Profit and loss are
// measured against the deposit baseline. Day-change fields require
// historical snapshots, which this engine does not keep; they report
// zero.
func Metrics(l *ledger.Ledger, prices map[string]float64) *types.PortfolioMetrics {
	totalValue := Value(l, prices)

	var totalCost float64
	for _, h := range l.Holdings() {
		totalCost += h.Quantity * h.AverageCost
	}

	initial := l.InitialDeposit()
	pnl := totalValue - initial
	var pnlPct float64
	if initial != 0 {
		pnlPct = pnl / initial * 100
	}

	return &types.PortfolioMetrics{
		TotalValue:        totalValue,
		TotalCost:         totalCost,
		ProfitLoss:        pnl,
		ProfitLossPercent: pnlPct,
	}
}

// HoldingsWithValue marks every holding to the snapshot, sorted by
// current value descending.
func HoldingsWithValue(l *ledger.Ledger, prices map[string]float64) []types.HoldingValue {
	holdings := l.Holdings()
	out := make([]types.HoldingValue, 0, len(holdings))
	for _, h := range holdings {
		price := prices[h.Symbol]
		current := h.Quantity * price
		cost := h.Quantity * h.AverageCost
		pnl := current - cost
		var pnlPct float64
		if cost != 0 {
			pnlPct = pnl / cost * 100
		}
		out = append(out, types.HoldingValue{
			Holding:       h,
			CurrentPrice:  price,
			CurrentValue:  current,
			CostBasis:     cost,
			ProfitLoss:    pnl,
			ProfitLossPct: pnlPct,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CurrentValue > out[j].CurrentValue
	})
	return out
}
