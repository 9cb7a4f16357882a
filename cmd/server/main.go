package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gin-gonic/gin"

	"github.com/papertrade/papertrade-api/internal/auth"
	"github.com/papertrade/papertrade-api/internal/config"
	"github.com/papertrade/papertrade-api/internal/database"
	"github.com/papertrade/papertrade-api/internal/marketdata"
	"github.com/papertrade/papertrade-api/internal/metrics"
	"github.com/papertrade/papertrade-api/internal/orderbook"
	"github.com/papertrade/papertrade-api/internal/wallet"
	"github.com/papertrade/papertrade-api/pkg/middleware"
)

// init configures application logging. Development gets pretty console
// output; DEBUG=true raises the level.
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main wires the wallet engine, market feed and order processor behind
// the HTTP API and runs until interrupted.
func main() {
	cfg := config.Load()

	db, err := database.NewDatabase(cfg.Server.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	router := gin.Default()

	// Auth
	authService := auth.NewService(cfg.Auth.JWTSecret)
	authService.RegisterAPICredentials(auth.DemoAPIKey, auth.DemoAPISecret)
	authHandlers := auth.NewGinHandlers(authService)

	// Market data: random-walk feed plus WebSocket fan-out.
	hub := marketdata.NewHub()
	go hub.Run()
	feed := marketdata.NewFeed(marketdata.DefaultPrices, rand.New(rand.NewSource(time.Now().UnixNano())))
	feed.AttachHub(hub)

	// Wallet sessions and handlers.
	walletService := wallet.NewService(db, cfg.Wallet)
	walletHandlers := wallet.NewGinHandlers(walletService, feed)

	// Background loops: feed ticks and order-check passes.
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go feed.Start(processorCtx, cfg.Market.TickInterval)

	processor := orderbook.NewProcessor(walletService, feed, cfg.Market.OrderCheckInterval)
	go processor.Start(processorCtx)

	router.Use(middleware.RateLimit())
	setupRoutes(router, cfg.Auth.JWTSecret, authHandlers, walletHandlers, feed, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints:
// - Auth routes: public token issuance
// - Wallet/order/portfolio/journal routes: protected by JWT
// - Market routes: public price snapshot and WebSocket stream
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	walletHandlers *wallet.GinHandlers,
	feed *marketdata.Feed,
	hub *marketdata.Hub,
) {
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		market := v1.Group("/market")
		{
			market.GET("/prices", feed.PricesHandler())
			market.GET("/ws", hub.WSHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtSecret))
		{
			walletGroup := protected.Group("/wallet")
			{
				walletGroup.GET("", walletHandlers.GetWalletHandler())
				walletGroup.POST("/deposit", walletHandlers.DepositHandler())
				walletGroup.POST("/reset", walletHandlers.ResetHandler())
				walletGroup.POST("/bonus", walletHandlers.BonusHandler())
				walletGroup.PUT("/slippage", walletHandlers.SlippageHandler())
				walletGroup.PUT("/tier", walletHandlers.TierHandler())
				walletGroup.POST("/buy", walletHandlers.BuyHandler())
				walletGroup.POST("/sell", walletHandlers.SellHandler())
				walletGroup.GET("/transactions", walletHandlers.TransactionsHandler())
				walletGroup.GET("/holdings/:symbol", walletHandlers.HoldingHandler())
			}

			orders := protected.Group("/orders")
			{
				orders.GET("", walletHandlers.ListOrdersHandler())
				orders.POST("/limit", walletHandlers.PlaceLimitOrderHandler())
				orders.POST("/stop-loss", walletHandlers.StopLossHandler())
				orders.POST("/take-profit", walletHandlers.TakeProfitHandler())
				orders.DELETE("/:order_id", walletHandlers.CancelOrderHandler())
			}

			portfolioGroup := protected.Group("/portfolio")
			{
				portfolioGroup.GET("/value", walletHandlers.PortfolioValueHandler())
				portfolioGroup.GET("/metrics", walletHandlers.PortfolioMetricsHandler())
				portfolioGroup.GET("/holdings", walletHandlers.HoldingsHandler())
			}

			journalGroup := protected.Group("/journal")
			{
				journalGroup.POST("", walletHandlers.AddJournalHandler())
				journalGroup.PUT("/:entry_id", walletHandlers.UpdateJournalHandler())
				journalGroup.GET("/transaction/:transaction_id", walletHandlers.JournalForTransactionHandler())
			}
		}
	}
}
