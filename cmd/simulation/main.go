package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/papertrade/papertrade-api/internal/auth"
)

const (
	tradeRounds   = 40
	serverAddress = "http://localhost:8080"
)

var symbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT"}

// init configures pretty logging for the simulation.
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint.
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes min, max, mean, median, p95 and p99 durations.
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient drives the trading API over HTTP.
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"auth":    {name: "Authentication"},
			"buy":     {name: "Market Buy"},
			"sell":    {name: "Market Sell"},
			"limit":   {name: "Place Limit Order"},
			"stop":    {name: "Place Stop Loss"},
			"take":    {name: "Place Take Profit"},
			"orders":  {name: "List Orders"},
			"metrics": {name: "Portfolio Metrics"},
			"prices":  {name: "Market Prices"},
			"bonus":   {name: "Daily Bonus"},
			"journal": {name: "Journal Note"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate exchanges the demo credentials for a JWT.
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.DemoAPIKey,
		"api_secret": auth.DemoAPISecret,
	}
	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.Token, nil
}

// call performs an authenticated JSON request and decodes the envelope.
func (sc *simulationClient) call(stat, method, path string, payload interface{}, out interface{}) error {
	start := time.Now()
	defer func() {
		sc.stats[stat].addDuration(time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats[stat].failures++
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		sc.stats[stat].failures++
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("failed to decode envelope: %w, body: %s", err, string(respBody))
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode payload: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

func (sc *simulationClient) currentPrices() (map[string]float64, error) {
	var prices map[string]float64
	err := sc.call("prices", "GET", "/api/v1/market/prices", nil, &prices)
	return prices, err
}

// runScenario walks one full trading session: seed the wallet, claim
// the bonus, trade in and out of random symbols, hang protective orders
// off the resulting positions and annotate the first fill.
func (sc *simulationClient) runScenario() error {
	if _, err := sc.currentPrices(); err != nil {
		return err
	}

	// Fresh wallet, slippage on.
	if err := sc.call("buy", "POST", "/api/v1/wallet/reset", nil, nil); err != nil {
		return err
	}
	if err := sc.call("buy", "PUT", "/api/v1/wallet/slippage",
		map[string]interface{}{"enabled": true, "percent": 0.005}, nil); err != nil {
		return err
	}

	if err := sc.call("bonus", "POST", "/api/v1/wallet/bonus", nil, nil); err != nil {
		log.Warn().Err(err).Msg("bonus claim rejected")
	}

	var firstTransactionID string

	for i := 0; i < tradeRounds; i++ {
		symbol := symbols[rand.Intn(len(symbols))]

		var trade struct {
			Transaction struct {
				TransactionID string `json:"transaction_id"`
			} `json:"transaction"`
			ExecutedPrice float64 `json:"executed_price"`
			CashBalance   float64 `json:"cash_balance"`
		}
		notional := 100 + rand.Float64()*400
		err := sc.call("buy", "POST", "/api/v1/wallet/buy",
			map[string]interface{}{"symbol": symbol, "amount": notional}, &trade)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("buy rejected")
			continue
		}
		if firstTransactionID == "" {
			firstTransactionID = trade.Transaction.TransactionID
		}

		// Hang protective orders off roughly a third of the buys.
		if i%3 == 0 {
			quantity := notional / trade.ExecutedPrice / 2
			_ = sc.call("stop", "POST", "/api/v1/orders/stop-loss", map[string]interface{}{
				"symbol": symbol, "quantity": quantity, "price": trade.ExecutedPrice * 0.95,
			}, nil)
			_ = sc.call("take", "POST", "/api/v1/orders/take-profit", map[string]interface{}{
				"symbol": symbol, "quantity": quantity, "price": trade.ExecutedPrice * 1.05,
			}, nil)
		}

		// Occasionally place a limit buy below the market.
		if i%5 == 0 {
			prices, err := sc.currentPrices()
			if err == nil {
				_ = sc.call("limit", "POST", "/api/v1/orders/limit", map[string]interface{}{
					"side": "BUY", "symbol": symbol,
					"amount": 150.0, "target_price": prices[symbol] * 0.98,
				}, nil)
			}
		}

		// And take profits on half the rounds.
		if i%2 == 1 {
			quantity := notional / trade.ExecutedPrice / 4
			_ = sc.call("sell", "POST", "/api/v1/wallet/sell",
				map[string]interface{}{"symbol": symbol, "amount": quantity}, nil)
		}
	}

	if firstTransactionID != "" {
		if err := sc.call("journal", "POST", "/api/v1/journal", map[string]interface{}{
			"transaction_id": firstTransactionID,
			"text":           "opening trade of the simulation run",
			"tags":           []string{"simulation"},
		}, nil); err != nil {
			log.Warn().Err(err).Msg("journal note rejected")
		}
	}

	// Let the order processor observe a few ticks.
	time.Sleep(6 * time.Second)

	var orders []map[string]interface{}
	if err := sc.call("orders", "GET", "/api/v1/orders", nil, &orders); err != nil {
		return err
	}
	log.Info().Int("pending_orders", len(orders)).Msg("orders still open after processor passes")

	var metrics struct {
		TotalValue        float64 `json:"total_value"`
		ProfitLoss        float64 `json:"profit_loss"`
		ProfitLossPercent float64 `json:"profit_loss_percent"`
	}
	if err := sc.call("metrics", "GET", "/api/v1/portfolio/metrics", nil, &metrics); err != nil {
		return err
	}
	log.Info().
		Float64("total_value", metrics.TotalValue).
		Float64("profit_loss", metrics.ProfitLoss).
		Float64("profit_loss_percent", metrics.ProfitLossPercent).
		Msg("final portfolio")

	return nil
}

// printStats reports per-route latency statistics.
func (sc *simulationClient) printStats() {
	fmt.Println("\n=== Simulation Statistics ===")
	keys := make([]string, 0, len(sc.stats))
	for k := range sc.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		rs := sc.stats[k]
		if rs.totalCalls == 0 {
			continue
		}
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("\n%s (%d calls, %d failures)\n", rs.name, rs.totalCalls, rs.failures)
		fmt.Printf("  min: %v  max: %v  mean: %v\n", min, max, mean)
		fmt.Printf("  median: %v  p95: %v  p99: %v\n", median, p95, p99)
	}
}

func main() {
	log.Info().Msg("starting trading simulation")

	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create simulation client")
	}

	if err := sc.runScenario(); err != nil {
		log.Error().Err(err).Msg("simulation scenario failed")
	}

	sc.printStats()
}
