package types

import (
	"time"
)

// Transaction kinds.
const (
	TxBuy     = "BUY"
	TxSell    = "SELL"
	TxDeposit = "DEPOSIT"
	TxBonus   = "BONUS"
)

// CashSymbol marks transactions that move cash without touching a holding.
const CashSymbol = "CASH"

// Pending order kinds.
const (
	OrderLimit      = "LIMIT"
	OrderStopLoss   = "STOP_LOSS"
	OrderTakeProfit = "TAKE_PROFIT"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Pending order statuses. FILLED, CANCELLED and EXPIRED are terminal.
const (
	StatusPending   = "PENDING"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

// Account tiers gate the daily bonus amount.
const (
	TierFree    = "free"
	TierStarter = "starter"
	TierPro     = "pro"
)

// Holding is a position in a single asset: how much is held and the
// weighted average price paid for it.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}

// Transaction is an immutable record of a single cash or asset movement.
// It is created exactly once per executed action and never updated.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Total         float64   `json:"total"`
	Fee           float64   `json:"fee"`
	Slippage      float64   `json:"slippage,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PendingOrder is a conditional instruction awaiting a price trigger.
// Amount is USD notional for buy-side orders and asset quantity for
// sell-side orders.
type PendingOrder struct {
	OrderID     string     `json:"order_id"`
	Kind        string     `json:"kind"`
	Side        string     `json:"side"`
	Symbol      string     `json:"symbol"`
	Amount      float64    `json:"amount"`
	TargetPrice float64    `json:"target_price"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	FilledAt    *time.Time `json:"filled_at,omitempty"`
}

// Terminal reports whether the order has reached a final state.
func (o *PendingOrder) Terminal() bool {
	return o.Status != StatusPending
}

// JournalEntry annotates a transaction by reference. The link is soft:
// the referenced transaction is not required to exist.
type JournalEntry struct {
	EntryID       string    `json:"entry_id"`
	TransactionID string    `json:"transaction_id"`
	Text          string    `json:"text"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SlippageConfig controls the simulated unfavorable execution deviation.
// Percent is the maximum deviation as a fraction of the quoted price,
// e.g. 0.005 for 0.5%.
type SlippageConfig struct {
	Enabled bool    `json:"enabled"`
	Percent float64 `json:"percent"`
}
