// Package metrics provides Prometheus instrumentation for the trading
// simulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_trades_total",
		Help: "Total number of trades executed",
	}, []string{"side"})

	// OrdersPlacedTotal counts pending orders placed, by kind.
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_orders_placed_total",
		Help: "Total number of conditional orders placed",
	}, []string{"kind"})

	// OrdersFilledTotal counts pending orders filled by the trigger
	// evaluator, by kind.
	OrdersFilledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_orders_filled_total",
		Help: "Total number of conditional orders filled",
	}, []string{"kind"})

	// BonusClaimsTotal counts successful daily bonus claims.
	BonusClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrade_bonus_claims_total",
		Help: "Total number of daily bonus claims",
	})

	// ActiveSessions tracks loaded wallet sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papertrade_active_sessions",
		Help: "Number of loaded wallet sessions",
	})

	// WebSocketClients tracks connected price-stream subscribers.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papertrade_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
