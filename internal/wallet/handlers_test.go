package wallet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/papertrade/papertrade-api/pkg/response"
)

// stubPrices is a fixed PriceSource for handler tests.
type stubPrices map[string]float64

func (p stubPrices) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p stubPrices) Price(symbol string) (float64, bool) {
	price, ok := p[symbol]
	return price, ok
}

// newTestRouter wires the wallet handlers behind a fake identity
// middleware.
func newTestRouter(t *testing.T, prices stubPrices) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(newTestDB(t), testWalletConfig())
	handlers := NewGinHandlers(svc, prices)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("clientID", "test-client")
		c.Next()
	})
	r.GET("/wallet", handlers.GetWalletHandler())
	r.POST("/wallet/buy", handlers.BuyHandler())
	r.POST("/wallet/sell", handlers.SellHandler())
	r.POST("/wallet/bonus", handlers.BonusHandler())
	r.POST("/orders/limit", handlers.PlaceLimitOrderHandler())
	r.DELETE("/orders/:order_id", handlers.CancelOrderHandler())
	r.GET("/portfolio/metrics", handlers.PortfolioMetricsHandler())
	r.GET("/wallet/holdings/:symbol", handlers.HoldingHandler())
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v, body: %s", err, w.Body.String())
	}
	return w, envelope
}

func TestBuyHandler_UsesFeedPriceWhenQuoteOmitted(t *testing.T) {
	r := newTestRouter(t, stubPrices{"BTCUSDT": 50000})

	w, envelope := doJSON(t, r, http.MethodPost, "/wallet/buy",
		gin.H{"symbol": "BTCUSDT", "amount": 1000.0})
	if w.Code != http.StatusCreated || !envelope.Success {
		t.Fatalf("expected 201 success, got %d: %s", w.Code, w.Body.String())
	}

	w, envelope = doJSON(t, r, http.MethodGet, "/wallet/holdings/BTCUSDT", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected holding, got %d", w.Code)
	}
	data, _ := json.Marshal(envelope.Data)
	var holding struct {
		AverageCost float64 `json:"average_cost"`
	}
	if err := json.Unmarshal(data, &holding); err != nil {
		t.Fatalf("decode holding: %v", err)
	}
	if holding.AverageCost != 50000 {
		t.Errorf("expected feed price 50000 used, got %f", holding.AverageCost)
	}
}

func TestBuyHandler_UnknownSymbolWithoutQuote(t *testing.T) {
	r := newTestRouter(t, stubPrices{})

	w, envelope := doJSON(t, r, http.MethodPost, "/wallet/buy",
		gin.H{"symbol": "DOGEUSDT", "amount": 100.0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %+v", envelope.Error)
	}
}

func TestBuyHandler_InsufficientBalanceCode(t *testing.T) {
	r := newTestRouter(t, stubPrices{"BTCUSDT": 50000})

	w, envelope := doJSON(t, r, http.MethodPost, "/wallet/buy",
		gin.H{"symbol": "BTCUSDT", "amount": 50000.0})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrCodeInsufficientBalance {
		t.Errorf("expected INSUFFICIENT_BALANCE, got %+v", envelope.Error)
	}
}

func TestSellHandler_InsufficientHoldingsCode(t *testing.T) {
	r := newTestRouter(t, stubPrices{"BTCUSDT": 50000})

	w, envelope := doJSON(t, r, http.MethodPost, "/wallet/sell",
		gin.H{"symbol": "BTCUSDT", "amount": 1.0})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrCodeInsufficientHoldings {
		t.Errorf("expected INSUFFICIENT_HOLDINGS, got %+v", envelope.Error)
	}
}

func TestBonusHandler_ErrorCodes(t *testing.T) {
	r := newTestRouter(t, stubPrices{})

	// Starter tier: first claim succeeds, second maps to ALREADY_CLAIMED.
	w, _ := doJSON(t, r, http.MethodPost, "/wallet/bonus", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("first claim: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, envelope := doJSON(t, r, http.MethodPost, "/wallet/bonus", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second claim: expected 409, got %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrCodeAlreadyClaimed {
		t.Errorf("expected ALREADY_CLAIMED, got %+v", envelope.Error)
	}
}

func TestCancelOrderHandler_NotFound(t *testing.T) {
	r := newTestRouter(t, stubPrices{})

	w, envelope := doJSON(t, r, http.MethodDelete, "/orders/ORD_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != response.ErrCodeOrderNotFound {
		t.Errorf("expected ORDER_NOT_FOUND, got %+v", envelope.Error)
	}
}

func TestPortfolioMetricsHandler(t *testing.T) {
	prices := stubPrices{"BTCUSDT": 50000}
	r := newTestRouter(t, prices)

	if w, _ := doJSON(t, r, http.MethodPost, "/wallet/buy",
		gin.H{"symbol": "BTCUSDT", "amount": 100.0}); w.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d", w.Code)
	}

	prices["BTCUSDT"] = 60000
	_, envelope := doJSON(t, r, http.MethodGet, "/portfolio/metrics", nil)
	data, _ := json.Marshal(envelope.Data)
	var metrics struct {
		ProfitLoss float64 `json:"profit_loss"`
	}
	if err := json.Unmarshal(data, &metrics); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if metrics.ProfitLoss <= 0 {
		t.Errorf("expected positive P&L after rally, got %f", metrics.ProfitLoss)
	}
}
