package portfolio

import (
	"math"
	"testing"

	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/types"
)

func newFundedLedger(t *testing.T, cash float64) *ledger.Ledger {
	t.Helper()
	l := ledger.New(types.TierStarter, nil)
	if _, err := l.Deposit(cash); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	return l
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestValue_CashPlusMarkedHoldings(t *testing.T) {
	l := newFundedLedger(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}

	got := Value(l, map[string]float64{"BTCUSDT": 50000})
	// 10000 - 1001 cash + 0.02 * 50000 holding.
	if !approxEqual(got, 8999+1000) {
		t.Errorf("expected value 9999, got %f", got)
	}
}

func TestValue_MissingPriceCountsAsZero(t *testing.T) {
	l := newFundedLedger(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}
	got := Value(l, map[string]float64{})
	if !approxEqual(got, 8999) {
		t.Errorf("expected cash-only value 8999, got %f", got)
	}
}

// P&L must flip sign with the market: buy 100 USD of BTC at 50000, mark
// at 60000 (gain) and 40000 (loss).
func TestMetrics_ProfitLossSign(t *testing.T) {
	l := newFundedLedger(t, 10000)
	if _, err := l.Buy("BTCUSDT", 100, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}

	up := Metrics(l, map[string]float64{"BTCUSDT": 60000})
	if up.ProfitLoss <= 0 {
		t.Errorf("expected positive P&L at 60000, got %f", up.ProfitLoss)
	}
	down := Metrics(l, map[string]float64{"BTCUSDT": 40000})
	if down.ProfitLoss >= 0 {
		t.Errorf("expected negative P&L at 40000, got %f", down.ProfitLoss)
	}
	if up.ProfitLossPercent <= down.ProfitLossPercent {
		t.Error("P&L percent did not follow P&L")
	}
}

func TestMetrics_TotalCostAndZeroBaseline(t *testing.T) {
	l := newFundedLedger(t, 10000)
	if _, err := l.Buy("BTCUSDT", 2000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}

	m := Metrics(l, map[string]float64{"BTCUSDT": 50000})
	h, _ := l.Holding("BTCUSDT")
	if !approxEqual(m.TotalCost, h.Quantity*h.AverageCost) {
		t.Errorf("total cost %f != quantity*averageCost %f", m.TotalCost, h.Quantity*h.AverageCost)
	}
	if m.DayChange != 0 || m.DayChangePercent != 0 {
		t.Error("day change has no data source and must report zero")
	}

	empty := ledger.New(types.TierFree, nil)
	if m := Metrics(empty, nil); m.ProfitLossPercent != 0 {
		t.Errorf("zero baseline must report 0%%, got %f", m.ProfitLossPercent)
	}
}

func TestHoldingsWithValue_SortedByCurrentValueDesc(t *testing.T) {
	l := newFundedLedger(t, 100000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy BTC: %v", err)
	}
	if _, err := l.Buy("ETHUSDT", 5000, 2500); err != nil {
		t.Fatalf("buy ETH: %v", err)
	}

	out := HoldingsWithValue(l, map[string]float64{"BTCUSDT": 50000, "ETHUSDT": 2500})
	if len(out) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(out))
	}
	if out[0].Symbol != "ETHUSDT" {
		t.Errorf("expected largest position first, got %s", out[0].Symbol)
	}
	if out[0].CurrentValue < out[1].CurrentValue {
		t.Error("holdings not sorted by current value descending")
	}

	eth := out[0]
	if !approxEqual(eth.CostBasis, eth.Quantity*eth.AverageCost) {
		t.Error("cost basis mismatch")
	}
	if !approxEqual(eth.ProfitLoss, eth.CurrentValue-eth.CostBasis) {
		t.Error("pnl mismatch")
	}
}
