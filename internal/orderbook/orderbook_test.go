package orderbook

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/types"
)

func newTestWallet(t *testing.T, cash float64) (*ledger.Ledger, *Book) {
	t.Helper()
	l := ledger.New(types.TierStarter, rand.New(rand.NewSource(1)))
	if cash > 0 {
		if _, err := l.Deposit(cash); err != nil {
			t.Fatalf("seed deposit: %v", err)
		}
	}
	return l, NewBook(l)
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// --- Placement ---

func TestPlaceLimitBuy_AffordabilityCheck(t *testing.T) {
	_, b := newTestWallet(t, 500)

	if _, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 1000, 45000); err != ledger.ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	o, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 400, 45000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != types.StatusPending {
		t.Errorf("expected PENDING, got %s", o.Status)
	}
	if o.ExpiresAt == nil {
		t.Error("limit order placed without default expiry")
	}
}

func TestPlaceLimitSell_RequiresImpliedQuantity(t *testing.T) {
	l, b := newTestWallet(t, 10000)

	// No holding at all.
	if _, err := b.PlaceLimitOrder(types.SideSell, "BTCUSDT", 1000, 50000); err != ledger.ErrInsufficientHoldings {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}

	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// Implied quantity 2000/55000 > held 0.02.
	if _, err := b.PlaceLimitOrder(types.SideSell, "BTCUSDT", 2000, 55000); err != ledger.ErrInsufficientHoldings {
		t.Errorf("expected ErrInsufficientHoldings, got %v", err)
	}
	// Implied quantity 550/55000 = 0.01 fits.
	if _, err := b.PlaceLimitOrder(types.SideSell, "BTCUSDT", 550, 55000); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPlaceProtectiveOrders_NoExpiry(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}

	sl, err := b.PlaceStopLoss("BTCUSDT", 0.01, 45000)
	if err != nil {
		t.Fatalf("stop loss: %v", err)
	}
	tp, err := b.PlaceTakeProfit("BTCUSDT", 0.01, 60000)
	if err != nil {
		t.Fatalf("take profit: %v", err)
	}
	if sl.ExpiresAt != nil || tp.ExpiresAt != nil {
		t.Error("protective orders must not carry an expiry")
	}
	if sl.Side != types.SideSell || tp.Side != types.SideSell {
		t.Error("protective orders must be sell side")
	}

	if _, err := b.PlaceStopLoss("BTCUSDT", 1, 45000); err != ledger.ErrInsufficientHoldings {
		t.Errorf("oversized stop loss: expected ErrInsufficientHoldings, got %v", err)
	}
}

func TestPlace_RejectsNonPositiveInputs(t *testing.T) {
	_, b := newTestWallet(t, 10000)
	if _, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 0, 45000); err != ledger.ErrInvalidAmount {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 100, -1); err != ledger.ErrInvalidAmount {
		t.Errorf("negative price: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := b.PlaceLimitOrder("HOLD", "BTCUSDT", 100, 45000); err != ledger.ErrInvalidAmount {
		t.Errorf("bad side: expected ErrInvalidAmount, got %v", err)
	}
}

// --- Cancellation ---

func TestCancel_OnlyFromPending(t *testing.T) {
	_, b := newTestWallet(t, 10000)

	o, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 100, 45000)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	cancelled, err := b.Cancel(o.OrderID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != types.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	if _, err := b.Cancel(o.OrderID); err != ErrOrderNotCancellable {
		t.Errorf("double cancel: expected ErrOrderNotCancellable, got %v", err)
	}
	if _, err := b.Cancel("ORD_missing"); err != ErrOrderNotFound {
		t.Errorf("unknown order: expected ErrOrderNotFound, got %v", err)
	}
}

// --- Trigger evaluation ---

// The concrete scenario from the wallet requirements: 0.002 BTC held at
// average cost 50000, take-profit at 55000, tick at 56000.
func TestTakeProfit_TriggersAtTargetPrice(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 100, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}
	h, _ := l.Holding("BTCUSDT")
	if !approxEqual(h.Quantity, 0.002) {
		t.Fatalf("expected 0.002 BTC, got %f", h.Quantity)
	}

	o, err := b.PlaceTakeProfit("BTCUSDT", 0.002, 55000)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	before := l.CashBalance()
	filled := b.CheckAndExecute(map[string]float64{"BTCUSDT": 56000})
	if len(filled) != 1 || filled[0].OrderID != o.OrderID {
		t.Fatalf("expected the take profit to fill, got %+v", filled)
	}

	got, _ := b.Get(o.OrderID)
	if got.Status != types.StatusFilled {
		t.Errorf("expected FILLED, got %s", got.Status)
	}
	// Executes at the target price, not the tick price.
	want := 0.002 * 55000 * (1 - ledger.DefaultFeeRate)
	if !approxEqual(l.CashBalance()-before, want) {
		t.Errorf("expected proceeds %f, got %f", want, l.CashBalance()-before)
	}
	if _, ok := l.Holding("BTCUSDT"); ok {
		t.Error("holding survived full take-profit")
	}
}

func TestTriggerRules(t *testing.T) {
	cases := []struct {
		name    string
		kind    string
		side    string
		target  float64
		price   float64
		trigger bool
	}{
		{"limit buy at or below target", types.OrderLimit, types.SideBuy, 45000, 44000, true},
		{"limit buy above target", types.OrderLimit, types.SideBuy, 45000, 46000, false},
		{"limit sell at or above target", types.OrderLimit, types.SideSell, 55000, 55000, true},
		{"limit sell below target", types.OrderLimit, types.SideSell, 55000, 54000, false},
		{"stop loss at or below target", types.OrderStopLoss, types.SideSell, 45000, 44000, true},
		{"stop loss above target", types.OrderStopLoss, types.SideSell, 45000, 46000, false},
		{"take profit at or above target", types.OrderTakeProfit, types.SideSell, 55000, 56000, true},
		{"take profit below target", types.OrderTakeProfit, types.SideSell, 55000, 54000, false},
	}
	for _, c := range cases {
		o := &types.PendingOrder{Kind: c.kind, Side: c.side, TargetPrice: c.target}
		if got := triggered(o, c.price); got != c.trigger {
			t.Errorf("%s: triggered=%v, want %v", c.name, got, c.trigger)
		}
	}
}

func TestLimitBuy_FillsAndDebitsCash(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 1000, 45000); err != nil {
		t.Fatalf("place: %v", err)
	}

	// Price above target: nothing happens.
	if filled := b.CheckAndExecute(map[string]float64{"BTCUSDT": 47000}); len(filled) != 0 {
		t.Fatalf("order filled above target: %+v", filled)
	}

	filled := b.CheckAndExecute(map[string]float64{"BTCUSDT": 44000})
	if len(filled) != 1 {
		t.Fatalf("expected fill at 44000, got %d", len(filled))
	}
	h, ok := l.Holding("BTCUSDT")
	if !ok {
		t.Fatal("no holding after limit buy fill")
	}
	// Bought at target price 45000, not the 44000 tick.
	if !approxEqual(h.Quantity, 1000.0/45000) {
		t.Errorf("expected quantity %f, got %f", 1000.0/45000, h.Quantity)
	}
	if !approxEqual(l.CashBalance(), 10000-1001) {
		t.Errorf("expected cash 8999, got %f", l.CashBalance())
	}
}

func TestCheckAndExecute_MissingPriceSkips(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}
	o, err := b.PlaceTakeProfit("BTCUSDT", 0.01, 55000)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if filled := b.CheckAndExecute(map[string]float64{"ETHUSDT": 60000}); len(filled) != 0 {
		t.Fatalf("order filled without a price: %+v", filled)
	}
	got, _ := b.Get(o.OrderID)
	if got.Status != types.StatusPending {
		t.Errorf("missing price changed order state to %s", got.Status)
	}
}

func TestCheckAndExecute_ExpiryBeforeTrigger(t *testing.T) {
	_, b := newTestWallet(t, 10000)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time { return now })

	o, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 1000, 45000)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Past the 7-day TTL the order expires even though the trigger
	// condition is met on the same tick.
	now = now.Add(LimitOrderTTL + time.Hour)
	if filled := b.CheckAndExecute(map[string]float64{"BTCUSDT": 44000}); len(filled) != 0 {
		t.Fatalf("expired order filled: %+v", filled)
	}
	got, _ := b.Get(o.OrderID)
	if got.Status != types.StatusExpired {
		t.Errorf("expected EXPIRED, got %s", got.Status)
	}
}

func TestCheckAndExecute_TerminalOrdersAreNeverReEvaluated(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := b.PlaceTakeProfit("BTCUSDT", 0.01, 55000); err != nil {
		t.Fatalf("place: %v", err)
	}

	prices := map[string]float64{"BTCUSDT": 56000}
	if filled := b.CheckAndExecute(prices); len(filled) != 1 {
		t.Fatal("expected first pass to fill")
	}
	cash := l.CashBalance()

	// Same and later snapshots: no double execution, no state drift.
	for i := 0; i < 3; i++ {
		if filled := b.CheckAndExecute(prices); len(filled) != 0 {
			t.Fatalf("pass %d re-filled a terminal order", i)
		}
		prices["BTCUSDT"] += 1000
	}
	if l.CashBalance() != cash {
		t.Errorf("balance moved on re-evaluation: %f vs %f", l.CashBalance(), cash)
	}
}

// Two limit buys can both pass the placement-time affordability check
// without reservation. When only one is coverable, the other stays
// pending rather than failing terminally.
func TestCheckAndExecute_FailedExecutionStaysPending(t *testing.T) {
	l, b := newTestWallet(t, 1500)

	o1, err := b.PlaceLimitOrder(types.SideBuy, "BTCUSDT", 1000, 45000)
	if err != nil {
		t.Fatalf("place o1: %v", err)
	}
	o2, err := b.PlaceLimitOrder(types.SideBuy, "ETHUSDT", 1000, 2500)
	if err != nil {
		t.Fatalf("place o2: %v", err)
	}

	filled := b.CheckAndExecute(map[string]float64{"BTCUSDT": 44000, "ETHUSDT": 2400})
	if len(filled) != 1 || filled[0].OrderID != o1.OrderID {
		t.Fatalf("expected only the first order to fill, got %+v", filled)
	}

	got, _ := b.Get(o2.OrderID)
	if got.Status != types.StatusPending {
		t.Errorf("starved order should stay PENDING, got %s", got.Status)
	}

	// A later deposit lets the next pass pick it up.
	if _, err := l.Deposit(2000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	filled = b.CheckAndExecute(map[string]float64{"ETHUSDT": 2400})
	if len(filled) != 1 || filled[0].OrderID != o2.OrderID {
		t.Fatalf("expected retry to fill, got %+v", filled)
	}
}

// Two sells on the same symbol re-check holdings between executions:
// the first fill consumes the position and the second stays pending.
func TestCheckAndExecute_SameSymbolCreationOrder(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}

	first, err := b.PlaceTakeProfit("BTCUSDT", 0.02, 55000)
	if err != nil {
		t.Fatalf("place first: %v", err)
	}
	second, err := b.PlaceTakeProfit("BTCUSDT", 0.02, 56000)
	if err != nil {
		t.Fatalf("place second: %v", err)
	}

	filled := b.CheckAndExecute(map[string]float64{"BTCUSDT": 60000})
	if len(filled) != 1 || filled[0].OrderID != first.OrderID {
		t.Fatalf("expected only the earlier order to fill, got %+v", filled)
	}
	got, _ := b.Get(second.OrderID)
	if got.Status != types.StatusPending {
		t.Errorf("second order should stay PENDING, got %s", got.Status)
	}
}

// --- Queries and snapshot ---

func TestPendingForSymbol_ExcludesTerminal(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}

	o1, _ := b.PlaceTakeProfit("BTCUSDT", 0.005, 55000)
	o2, _ := b.PlaceStopLoss("BTCUSDT", 0.005, 45000)
	if _, err := b.Cancel(o1.OrderID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pending := b.PendingForSymbol("BTCUSDT")
	if len(pending) != 1 || pending[0].OrderID != o2.OrderID {
		t.Errorf("expected only the stop loss pending, got %+v", pending)
	}
	if len(b.PendingForSymbol("ETHUSDT")) != 0 {
		t.Error("unexpected pending orders for foreign symbol")
	}
}

func TestSnapshotRestore_KeepsNonTerminalOrders(t *testing.T) {
	l, b := newTestWallet(t, 10000)
	if _, err := l.Buy("BTCUSDT", 1000, 50000); err != nil {
		t.Fatalf("buy: %v", err)
	}
	kept, _ := b.PlaceStopLoss("BTCUSDT", 0.01, 45000)
	gone, _ := b.PlaceTakeProfit("BTCUSDT", 0.005, 55000)
	if _, err := b.Cancel(gone.OrderID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	restored := NewBook(l)
	restored.Restore(b.Snapshot())

	if _, ok := restored.Get(kept.OrderID); !ok {
		t.Error("pending order lost in snapshot round trip")
	}
	if _, ok := restored.Get(gone.OrderID); ok {
		t.Error("terminal order restored from snapshot")
	}
}
