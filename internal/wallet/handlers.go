package wallet

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/papertrade/papertrade-api/internal/types"
	"github.com/papertrade/papertrade-api/pkg/response"
)

// PriceSource supplies current prices for trades placed without an
// explicit quote and for portfolio valuation.
type PriceSource interface {
	Snapshot() map[string]float64
	Price(symbol string) (float64, bool)
}

// GinHandlers contains HTTP handlers for wallet endpoints.
type GinHandlers struct {
	service *Service
	prices  PriceSource
}

// NewGinHandlers creates the wallet endpoint handlers.
func NewGinHandlers(service *Service, prices PriceSource) *GinHandlers {
	return &GinHandlers{
		service: service,
		prices:  prices,
	}
}

func clientID(c *gin.Context) (string, bool) {
	id := c.GetString("clientID")
	if id == "" {
		response.Unauthorized(c, "Missing client identity")
		return "", false
	}
	return id, true
}

// quotedPrice resolves the execution reference price: the client's
// quote when given, otherwise the current feed price.
func (h *GinHandlers) quotedPrice(c *gin.Context, symbol string, quoted float64) (float64, bool) {
	if quoted > 0 {
		return quoted, true
	}
	price, ok := h.prices.Price(symbol)
	if !ok {
		response.BadRequest(c, "No price available for symbol")
		return 0, false
	}
	return price, true
}

type depositRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type tradeRequest struct {
	Symbol string  `json:"symbol" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
	Price  float64 `json:"price"`
}

type limitOrderRequest struct {
	Side        string  `json:"side" binding:"required"`
	Symbol      string  `json:"symbol" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
	TargetPrice float64 `json:"target_price" binding:"required"`
}

type protectiveOrderRequest struct {
	Symbol   string  `json:"symbol" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
}

type slippageRequest struct {
	Enabled bool    `json:"enabled"`
	Percent float64 `json:"percent"`
}

type tierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

type journalRequest struct {
	TransactionID string   `json:"transaction_id" binding:"required"`
	Text          string   `json:"text" binding:"required"`
	Tags          []string `json:"tags"`
}

type journalUpdateRequest struct {
	Text string   `json:"text" binding:"required"`
	Tags []string `json:"tags"`
}

// GetWalletHandler handles GET requests for the wallet summary.
func (h *GinHandlers) GetWalletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		summary, err := h.service.Summary(id)
		response.Handle(c, summary, err)
	}
}

// DepositHandler handles POST requests to add virtual cash.
func (h *GinHandlers) DepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req depositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		tx, err := h.service.Deposit(id, req.Amount)
		response.Handle(c, tx, err)
	}
}

// ResetHandler handles POST requests to reset the wallet.
func (h *GinHandlers) ResetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		summary, err := h.service.Reset(id)
		response.Handle(c, summary, err)
	}
}

// BonusHandler handles POST requests to claim the daily bonus.
func (h *GinHandlers) BonusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		tx, err := h.service.ClaimDailyBonus(id)
		response.Handle(c, tx, err)
	}
}

// SlippageHandler handles PUT requests to configure slippage.
func (h *GinHandlers) SlippageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req slippageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		cfg, err := h.service.SetSlippage(id, req.Enabled, req.Percent)
		response.Handle(c, cfg, err)
	}
}

// TierHandler handles PUT requests to change the account tier.
func (h *GinHandlers) TierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req tierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		summary, err := h.service.SetTier(id, req.Tier)
		response.Handle(c, summary, err)
	}
}

// BuyHandler handles POST requests for immediate buys. Amount is USD
// notional; price falls back to the current feed quote.
func (h *GinHandlers) BuyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req tradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		price, ok := h.quotedPrice(c, req.Symbol, req.Price)
		if !ok {
			return
		}
		res, err := h.service.Buy(id, req.Symbol, req.Amount, price)
		response.Handle(c, res, err)
	}
}

// SellHandler handles POST requests for immediate sells. Amount is
// asset quantity; price falls back to the current feed quote.
func (h *GinHandlers) SellHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req tradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		price, ok := h.quotedPrice(c, req.Symbol, req.Price)
		if !ok {
			return
		}
		res, err := h.service.Sell(id, req.Symbol, req.Amount, price)
		response.Handle(c, res, err)
	}
}

// PlaceLimitOrderHandler handles POST requests to place a limit order.
func (h *GinHandlers) PlaceLimitOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req limitOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		o, err := h.service.PlaceLimitOrder(id, req.Side, req.Symbol, req.Amount, req.TargetPrice)
		response.Handle(c, o, err)
	}
}

// StopLossHandler handles POST requests to place a stop-loss.
func (h *GinHandlers) StopLossHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req protectiveOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		o, err := h.service.PlaceStopLoss(id, req.Symbol, req.Quantity, req.Price)
		response.Handle(c, o, err)
	}
}

// TakeProfitHandler handles POST requests to place a take-profit.
func (h *GinHandlers) TakeProfitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req protectiveOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		o, err := h.service.PlaceTakeProfit(id, req.Symbol, req.Quantity, req.Price)
		response.Handle(c, o, err)
	}
}

// CancelOrderHandler handles DELETE requests for pending orders.
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		orderID := c.Param("order_id")
		if orderID == "" {
			response.BadRequest(c, "Order ID is required")
			return
		}
		o, err := h.service.CancelOrder(id, orderID)
		response.Handle(c, o, err)
	}
}

// ListOrdersHandler handles GET requests for pending orders, optionally
// filtered by a symbol query parameter.
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		orders, err := h.service.PendingOrders(id, c.Query("symbol"))
		if orders == nil {
			orders = []types.PendingOrder{}
		}
		response.Handle(c, orders, err)
	}
}

// PortfolioValueHandler handles GET requests for the portfolio value.
func (h *GinHandlers) PortfolioValueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		value, err := h.service.PortfolioValue(id, h.prices.Snapshot())
		response.Handle(c, gin.H{"total_value": value}, err)
	}
}

// PortfolioMetricsHandler handles GET requests for portfolio metrics.
func (h *GinHandlers) PortfolioMetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		metrics, err := h.service.PortfolioMetrics(id, h.prices.Snapshot())
		response.Handle(c, metrics, err)
	}
}

// HoldingsHandler handles GET requests for holdings with valuation.
func (h *GinHandlers) HoldingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		holdings, err := h.service.HoldingsWithValue(id, h.prices.Snapshot())
		if holdings == nil {
			holdings = []types.HoldingValue{}
		}
		response.Handle(c, holdings, err)
	}
}

// HoldingHandler handles GET requests for a single holding.
func (h *GinHandlers) HoldingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		symbol := c.Param("symbol")
		holding, found, err := h.service.GetHolding(id, symbol)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if !found {
			response.NotFound(c, "No holding for symbol")
			return
		}
		response.Success(c, holding)
	}
}

// TransactionsHandler handles GET requests for the transaction log.
// Supports a limit query parameter.
func (h *GinHandlers) TransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		txs, err := h.service.Transactions(id, limit)
		if txs == nil {
			txs = []*types.Transaction{}
		}
		response.Handle(c, txs, err)
	}
}

// AddJournalHandler handles POST requests to annotate a transaction.
func (h *GinHandlers) AddJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		var req journalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		entry, err := h.service.AddJournalNote(id, req.TransactionID, req.Text, req.Tags)
		response.Handle(c, entry, err)
	}
}

// UpdateJournalHandler handles PUT requests to edit an annotation.
func (h *GinHandlers) UpdateJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		entryID := c.Param("entry_id")
		if entryID == "" {
			response.BadRequest(c, "Entry ID is required")
			return
		}
		var req journalUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		entry, err := h.service.UpdateJournalNote(id, entryID, req.Text, req.Tags)
		response.Handle(c, entry, err)
	}
}

// JournalForTransactionHandler handles GET requests for the first
// annotation referencing a transaction.
func (h *GinHandlers) JournalForTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := clientID(c)
		if !ok {
			return
		}
		txID := c.Param("transaction_id")
		entry, found, err := h.service.JournalForTransaction(id, txID)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if !found {
			response.NotFound(c, "No journal entry for transaction")
			return
		}
		response.Success(c, entry)
	}
}
