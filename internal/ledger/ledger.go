// Package ledger implements the virtual trading ledger: cash balance,
// per-asset holdings with weighted average cost, and the immutable
// transaction log. Every mutator is atomic — it either applies all of
// its field changes together or returns an error leaving state
// untouched.
//
// The ledger itself is not goroutine safe. Callers own serialization;
// the wallet session holds one mutex per client and runs every ledger,
// order book and valuation operation under it.
package ledger

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/papertrade/papertrade-api/internal/types"
)

const (
	// DefaultFeeRate is the trading fee charged on notional value (0.1%).
	DefaultFeeRate = 0.001

	// DefaultDustEpsilon is the quantity below which a holding is
	// considered fully sold and removed. Floating point accumulation can
	// leave residual dust on a "sell everything" otherwise.
	DefaultDustEpsilon = 1e-8

	// DefaultSlippagePercent is the maximum simulated unfavorable price
	// deviation when slippage is enabled (0.5%).
	DefaultSlippagePercent = 0.005

	bonusDateLayout = "2006-01-02"
)

// bonusByTier maps account tiers to their daily cash bonus. The free
// tier carries no bonus and claims fail with ErrUpgradeRequired.
var bonusByTier = map[string]float64{
	types.TierFree:    0,
	types.TierStarter: 50,
	types.TierPro:     150,
}

// BonusForTier returns the daily bonus amount for a tier. Unknown tiers
// are treated as the free tier.
func BonusForTier(tier string) float64 {
	return bonusByTier[tier]
}

// Ledger holds the wallet state for a single client.
type Ledger struct {
	cash           float64
	initialDeposit float64
	holdings       map[string]*types.Holding
	transactions   []*types.Transaction // most-recent-first
	tier           string
	lastBonusDate  string
	slippage       types.SlippageConfig
	feeRate        float64
	dustEpsilon    float64
	rng            *rand.Rand
	now            func() time.Time
}

// New creates an empty ledger for the given tier. The random source
// drives slippage simulation and is injected so tests can pin it.
func New(tier string, rng *rand.Rand) *Ledger {
	return &Ledger{
		holdings:    make(map[string]*types.Holding),
		tier:        tier,
		slippage:    types.SlippageConfig{Enabled: false, Percent: DefaultSlippagePercent},
		feeRate:     DefaultFeeRate,
		dustEpsilon: DefaultDustEpsilon,
		rng:         rng,
		now:         time.Now,
	}
}

// SetClock overrides the time source. Used by tests and the bonus
// calendar-day check.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// SetFeeRate overrides the trading fee rate.
func (l *Ledger) SetFeeRate(rate float64) {
	l.feeRate = rate
}

// FeeRate returns the trading fee rate charged on notional value.
func (l *Ledger) FeeRate() float64 {
	return l.feeRate
}

// SetDustEpsilon overrides the holding cleanup threshold.
func (l *Ledger) SetDustEpsilon(eps float64) {
	l.dustEpsilon = eps
}

// SetSlippage enables or disables slippage simulation. A non-positive
// percent falls back to the default.
func (l *Ledger) SetSlippage(enabled bool, percent float64) {
	if percent <= 0 {
		percent = DefaultSlippagePercent
	}
	l.slippage = types.SlippageConfig{Enabled: enabled, Percent: percent}
}

// Slippage returns the current slippage configuration.
func (l *Ledger) Slippage() types.SlippageConfig {
	return l.slippage
}

// CashBalance returns the available cash.
func (l *Ledger) CashBalance() float64 {
	return l.cash
}

// InitialDeposit returns the P&L baseline: the sum of all deposits.
func (l *Ledger) InitialDeposit() float64 {
	return l.initialDeposit
}

// Tier returns the account tier.
func (l *Ledger) Tier() string {
	return l.tier
}

// SetTier changes the account tier. Unknown tiers are rejected silently
// into the free tier by the bonus lookup, so no validation happens here.
func (l *Ledger) SetTier(tier string) {
	l.tier = tier
}

// LastBonusDate returns the calendar date (UTC, YYYY-MM-DD) of the last
// successful bonus claim, or empty if never claimed.
func (l *Ledger) LastBonusDate() string {
	return l.lastBonusDate
}

// Holding returns a copy of the holding for symbol, if any.
func (l *Ledger) Holding(symbol string) (types.Holding, bool) {
	h, ok := l.holdings[symbol]
	if !ok {
		return types.Holding{}, false
	}
	return *h, true
}

// Holdings returns copies of all holdings in unspecified order.
func (l *Ledger) Holdings() []types.Holding {
	out := make([]types.Holding, 0, len(l.holdings))
	for _, h := range l.holdings {
		out = append(out, *h)
	}
	return out
}

// Transactions returns the most recent transactions, newest first.
// A non-positive limit returns the full log.
func (l *Ledger) Transactions(limit int) []*types.Transaction {
	n := len(l.transactions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*types.Transaction, n)
	copy(out, l.transactions[:n])
	return out
}

// Deposit adds cash to the wallet and raises the P&L baseline by the
// same amount. Used both for initial seeding and explicit top-ups.
func (l *Ledger) Deposit(amount float64) (*types.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	l.cash += amount
	l.initialDeposit += amount

	tx := l.record(&types.Transaction{
		Kind:   types.TxDeposit,
		Symbol: types.CashSymbol,
		Total:  amount,
	})
	return tx, nil
}

// Buy spends notional USD on the given asset at the quoted price. The
// executed price includes unfavorable slippage when enabled; the fee is
// charged on notional. Fails without mutation when cash cannot cover
// notional plus fee.
func (l *Ledger) Buy(symbol string, notional, price float64) (*types.TradeResult, error) {
	if notional <= 0 || price <= 0 {
		return nil, ErrInvalidAmount
	}

	executed, slip := l.applySlippage(types.SideBuy, price)
	fee := notional * l.feeRate
	required := notional + fee
	if l.cash < required {
		return nil, ErrInsufficientBalance
	}

	quantity := notional / executed

	l.cash -= required
	if h, ok := l.holdings[symbol]; ok {
		// Weighted by cost contributed, not by price directly.
		h.AverageCost = (h.Quantity*h.AverageCost + notional) / (h.Quantity + quantity)
		h.Quantity += quantity
	} else {
		l.holdings[symbol] = &types.Holding{
			Symbol:      symbol,
			Quantity:    quantity,
			AverageCost: executed,
		}
	}

	tx := l.record(&types.Transaction{
		Kind:     types.TxBuy,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    executed,
		Total:    notional,
		Fee:      fee,
		Slippage: slip,
	})
	return &types.TradeResult{Transaction: tx, ExecutedPrice: executed, CashBalance: l.cash}, nil
}

// Sell disposes of quantity units of the asset at the quoted price.
// Proceeds are credited net of fee; selling down to dust removes the
// holding entirely.
func (l *Ledger) Sell(symbol string, quantity, price float64) (*types.TradeResult, error) {
	if quantity <= 0 || price <= 0 {
		return nil, ErrInvalidAmount
	}

	h, ok := l.holdings[symbol]
	if !ok || quantity-h.Quantity > l.dustEpsilon {
		return nil, ErrInsufficientHoldings
	}
	if quantity > h.Quantity {
		quantity = h.Quantity
	}

	executed, slip := l.applySlippage(types.SideSell, price)
	gross := quantity * executed
	fee := gross * l.feeRate

	l.cash += gross - fee
	h.Quantity -= quantity
	if h.Quantity <= l.dustEpsilon {
		delete(l.holdings, symbol)
	}

	tx := l.record(&types.Transaction{
		Kind:     types.TxSell,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    executed,
		Total:    gross,
		Fee:      fee,
		Slippage: slip,
	})
	return &types.TradeResult{Transaction: tx, ExecutedPrice: executed, CashBalance: l.cash}, nil
}

// ClaimDailyBonus grants the tier's daily cash bonus at most once per
// calendar day (UTC date string comparison, not a 24h window).
func (l *Ledger) ClaimDailyBonus() (*types.Transaction, error) {
	amount := BonusForTier(l.tier)
	if amount <= 0 {
		return nil, ErrUpgradeRequired
	}

	today := l.now().UTC().Format(bonusDateLayout)
	if l.lastBonusDate == today {
		return nil, ErrAlreadyClaimed
	}

	l.cash += amount
	l.lastBonusDate = today

	tx := l.record(&types.Transaction{
		Kind:   types.TxBonus,
		Symbol: types.CashSymbol,
		Total:  amount,
	})
	return tx, nil
}

// Reset wipes the wallet back to a fresh state seeded with startingCash.
// Holdings, transactions and the bonus claim date are all cleared.
func (l *Ledger) Reset(startingCash float64) {
	l.cash = 0
	l.initialDeposit = 0
	l.holdings = make(map[string]*types.Holding)
	l.transactions = nil
	l.lastBonusDate = ""
	if startingCash > 0 {
		// Seed through Deposit so the baseline and log stay consistent.
		_, _ = l.Deposit(startingCash)
	}
}

// applySlippage returns the execution price for a quoted price, always
// unfavorable to the trader: buys execute at or above the quote, sells
// at or below. The second return value is the absolute deviation.
func (l *Ledger) applySlippage(side string, price float64) (executed, slip float64) {
	if !l.slippage.Enabled || l.rng == nil {
		return price, 0
	}

	slip = l.rng.Float64() * l.slippage.Percent * price
	if side == types.SideBuy {
		return price + slip, slip
	}
	return price - slip, slip
}

func (l *Ledger) record(tx *types.Transaction) *types.Transaction {
	tx.TransactionID = "TXN_" + uuid.New().String()
	tx.CreatedAt = l.now()
	// Most-recent-first, never mutated in place.
	l.transactions = append([]*types.Transaction{tx}, l.transactions...)
	return tx
}
