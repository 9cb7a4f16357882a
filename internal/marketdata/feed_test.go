package marketdata

import (
	"math"
	"math/rand"
	"testing"
)

func newTestFeed(t *testing.T) *Feed {
	t.Helper()
	return NewFeed(DefaultPrices, rand.New(rand.NewSource(1)))
}

func TestFeed_SnapshotIsACopy(t *testing.T) {
	f := newTestFeed(t)

	snap := f.Snapshot()
	snap["BTCUSDT"] = 1

	price, ok := f.Price("BTCUSDT")
	if !ok {
		t.Fatal("BTCUSDT missing from feed")
	}
	if price != DefaultPrices["BTCUSDT"] {
		t.Errorf("mutating a snapshot leaked into the feed: %f", price)
	}
}

func TestFeed_PriceUnknownSymbol(t *testing.T) {
	f := newTestFeed(t)

	if _, ok := f.Price("DOGEUSDT"); ok {
		t.Error("expected unknown symbol to report not tracked")
	}
}

func TestFeed_SetPriceOverrides(t *testing.T) {
	f := newTestFeed(t)

	f.SetPrice("BTCUSDT", 42000)
	price, _ := f.Price("BTCUSDT")
	if price != 42000 {
		t.Errorf("expected pinned price 42000, got %f", price)
	}
}

func TestFeed_AdvanceStaysWithinVolatility(t *testing.T) {
	f := newTestFeed(t)
	f.SetVolatility(0.01)

	for i := 0; i < 100; i++ {
		before := f.Snapshot()
		f.Advance()
		after := f.Snapshot()

		for symbol, prev := range before {
			move := math.Abs(after[symbol]-prev) / prev
			if move > 0.01+1e-12 {
				t.Fatalf("%s moved %.6f in one tick, above the 1%% cap", symbol, move)
			}
			if after[symbol] <= 0 {
				t.Fatalf("%s price went non-positive: %f", symbol, after[symbol])
			}
		}
	}
}

func TestFeed_AdvanceActuallyMoves(t *testing.T) {
	f := newTestFeed(t)

	before := f.Snapshot()
	f.Advance()
	after := f.Snapshot()

	moved := false
	for symbol := range before {
		if before[symbol] != after[symbol] {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("advance left every price unchanged")
	}
}
