// Package orderbook stores a client's conditional orders and evaluates
// their trigger conditions against price snapshots. Triggered orders
// execute through the ledger at their target price; execution failures
// leave the order pending for the next pass.
//
// Like the ledger, a Book is not goroutine safe. The wallet session
// serializes access, so one full evaluation pass over one price
// snapshot completes before any other mutator runs.
package orderbook

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/types"
)

// LimitOrderTTL is the default expiry for plain limit orders. Stop-loss
// and take-profit orders never expire.
const LimitOrderTTL = 7 * 24 * time.Hour

var (
	// ErrOrderNotFound is returned when the order ID is unknown.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotCancellable is returned when cancelling an order that
	// already reached a terminal state.
	ErrOrderNotCancellable = errors.New("order is not cancellable")
)

// Book holds a single client's pending orders in creation order.
type Book struct {
	ledger *ledger.Ledger
	orders []*types.PendingOrder
	byID   map[string]*types.PendingOrder
	now    func() time.Time
}

// NewBook creates an empty order book executing against the given ledger.
func NewBook(l *ledger.Ledger) *Book {
	return &Book{
		ledger: l,
		byID:   make(map[string]*types.PendingOrder),
		now:    time.Now,
	}
}

// SetClock overrides the time source used for expiry checks.
func (b *Book) SetClock(now func() time.Time) {
	b.now = now
}

// PlaceLimitOrder places a limit order. Amount is USD notional for both
// sides; a sell's implied quantity is amount divided by target price.
//
// The affordability check here is forward looking only: funds and
// holdings are not reserved, and the same checks run again inside the
// ledger when the order triggers.
func (b *Book) PlaceLimitOrder(side, symbol string, amount, targetPrice float64) (*types.PendingOrder, error) {
	if amount <= 0 || targetPrice <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	switch side {
	case types.SideBuy:
		required := amount + amount*b.ledger.FeeRate()
		if b.ledger.CashBalance() < required {
			return nil, ledger.ErrInsufficientBalance
		}
	case types.SideSell:
		implied := amount / targetPrice
		h, ok := b.ledger.Holding(symbol)
		if !ok || h.Quantity < implied {
			return nil, ledger.ErrInsufficientHoldings
		}
	default:
		return nil, ledger.ErrInvalidAmount
	}

	expires := b.now().Add(LimitOrderTTL)
	return b.append(&types.PendingOrder{
		Kind:        types.OrderLimit,
		Side:        side,
		Symbol:      symbol,
		Amount:      amount,
		TargetPrice: targetPrice,
		ExpiresAt:   &expires,
	}), nil
}

// PlaceStopLoss places a sell order triggering when price falls to or
// below stopPrice. Amount is asset quantity. Never expires.
func (b *Book) PlaceStopLoss(symbol string, quantity, stopPrice float64) (*types.PendingOrder, error) {
	return b.placeProtective(types.OrderStopLoss, symbol, quantity, stopPrice)
}

// PlaceTakeProfit places a sell order triggering when price rises to or
// above targetPrice. Amount is asset quantity. Never expires.
func (b *Book) PlaceTakeProfit(symbol string, quantity, targetPrice float64) (*types.PendingOrder, error) {
	return b.placeProtective(types.OrderTakeProfit, symbol, quantity, targetPrice)
}

func (b *Book) placeProtective(kind, symbol string, quantity, price float64) (*types.PendingOrder, error) {
	if quantity <= 0 || price <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	h, ok := b.ledger.Holding(symbol)
	if !ok || h.Quantity < quantity {
		return nil, ledger.ErrInsufficientHoldings
	}

	return b.append(&types.PendingOrder{
		Kind:        kind,
		Side:        types.SideSell,
		Symbol:      symbol,
		Amount:      quantity,
		TargetPrice: price,
	}), nil
}

// Cancel transitions a pending order to CANCELLED. Only legal from the
// PENDING state.
func (b *Book) Cancel(orderID string) (*types.PendingOrder, error) {
	o, ok := b.byID[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Terminal() {
		return nil, ErrOrderNotCancellable
	}
	o.Status = types.StatusCancelled
	out := *o
	return &out, nil
}

// Get returns a copy of the order, if known.
func (b *Book) Get(orderID string) (types.PendingOrder, bool) {
	o, ok := b.byID[orderID]
	if !ok {
		return types.PendingOrder{}, false
	}
	return *o, true
}

// PendingForSymbol returns copies of all non-terminal orders for the
// symbol, in creation order.
func (b *Book) PendingForSymbol(symbol string) []types.PendingOrder {
	var out []types.PendingOrder
	for _, o := range b.orders {
		if o.Symbol == symbol && !o.Terminal() {
			out = append(out, *o)
		}
	}
	return out
}

// Pending returns copies of all non-terminal orders in creation order.
func (b *Book) Pending() []types.PendingOrder {
	var out []types.PendingOrder
	for _, o := range b.orders {
		if !o.Terminal() {
			out = append(out, *o)
		}
	}
	return out
}

// CheckAndExecute evaluates every pending order against one price
// snapshot. Expiry is checked before triggers; a missing price skips
// the order without state change; triggered orders execute through the
// ledger at their target price (slippage applies on top). A ledger
// failure leaves the order pending for the next pass. Orders on the
// same symbol are evaluated in creation order, each against the
// balance and holdings left by the previous execution.
//
// Terminal orders are never re-evaluated, so repeated calls with the
// same snapshot are safe.
//
// Returns the orders filled during this pass.
func (b *Book) CheckAndExecute(prices map[string]float64) []types.PendingOrder {
	now := b.now()
	var filled []types.PendingOrder

	for _, o := range b.orders {
		if o.Terminal() {
			continue
		}
		if o.ExpiresAt != nil && now.After(*o.ExpiresAt) {
			o.Status = types.StatusExpired
			continue
		}

		price, ok := prices[o.Symbol]
		if !ok {
			continue
		}
		if !triggered(o, price) {
			continue
		}

		if err := b.execute(o); err != nil {
			// Balance or holdings moved since placement. The order stays
			// pending and is re-evaluated on the next pass.
			continue
		}

		filledAt := now
		o.Status = types.StatusFilled
		o.FilledAt = &filledAt
		filled = append(filled, *o)
	}

	return filled
}

// triggered applies the per-kind trigger rule against the current price.
func triggered(o *types.PendingOrder, price float64) bool {
	switch o.Kind {
	case types.OrderLimit:
		if o.Side == types.SideBuy {
			return price <= o.TargetPrice
		}
		return price >= o.TargetPrice
	case types.OrderStopLoss:
		return price <= o.TargetPrice
	case types.OrderTakeProfit:
		return price >= o.TargetPrice
	}
	return false
}

// execute runs the order through the ledger at its target price.
func (b *Book) execute(o *types.PendingOrder) error {
	if o.Side == types.SideBuy {
		_, err := b.ledger.Buy(o.Symbol, o.Amount, o.TargetPrice)
		return err
	}

	quantity := o.Amount
	if o.Kind == types.OrderLimit {
		quantity = o.Amount / o.TargetPrice
	}
	_, err := b.ledger.Sell(o.Symbol, quantity, o.TargetPrice)
	return err
}

func (b *Book) append(o *types.PendingOrder) *types.PendingOrder {
	o.OrderID = "ORD_" + uuid.New().String()
	o.Status = types.StatusPending
	o.CreatedAt = b.now()
	b.orders = append(b.orders, o)
	b.byID[o.OrderID] = o
	out := *o
	return &out
}

// Snapshot returns the non-terminal orders for persistence. Terminal
// orders are immutable history and are not restored.
func (b *Book) Snapshot() []types.PendingOrder {
	return b.Pending()
}

// Restore replaces the book's contents with the snapshot's orders.
func (b *Book) Restore(orders []types.PendingOrder) {
	b.orders = make([]*types.PendingOrder, 0, len(orders))
	b.byID = make(map[string]*types.PendingOrder, len(orders))
	for i := range orders {
		o := orders[i]
		b.orders = append(b.orders, &o)
		b.byID[o.OrderID] = &o
	}
}
