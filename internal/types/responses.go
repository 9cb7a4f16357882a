package types

// PortfolioMetrics is the derived valuation of a whole wallet against a
// price snapshot. It is computed on demand and never stored.
type PortfolioMetrics struct {
	TotalValue        float64 `json:"total_value"`
	TotalCost         float64 `json:"total_cost"`
	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
	DayChange         float64 `json:"day_change"`
	DayChangePercent  float64 `json:"day_change_percent"`
}

// HoldingValue is a single holding marked to a price snapshot.
type HoldingValue struct {
	Holding
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	CostBasis     float64 `json:"cost_basis"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_percent"`
}

// TradeResult reports an executed buy or sell back to the caller.
type TradeResult struct {
	Transaction   *Transaction `json:"transaction"`
	ExecutedPrice float64      `json:"executed_price"`
	CashBalance   float64      `json:"cash_balance"`
}

// WalletSummary is the top-level wallet view returned by the API.
type WalletSummary struct {
	ClientID       string         `json:"client_id"`
	CashBalance    float64        `json:"cash_balance"`
	InitialDeposit float64        `json:"initial_deposit"`
	Tier           string         `json:"tier"`
	Slippage       SlippageConfig `json:"slippage"`
	HoldingCount   int            `json:"holding_count"`
	LastBonusDate  string         `json:"last_bonus_date,omitempty"`
}
