// Package config loads application settings from the environment, with
// optional .env file support.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Wallet WalletConfig
	Market MarketConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port   string
	DBPath string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string
}

// WalletConfig holds the wallet engine defaults.
type WalletConfig struct {
	StartingDeposit   float64
	DefaultTier       string
	MaxTransactions   int
	MaxJournalEntries int
}

// MarketConfig holds feed and order-check scheduling.
type MarketConfig struct {
	TickInterval       time.Duration
	OrderCheckInterval time.Duration
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:   getEnv("PORT", "8080"),
			DBPath: getEnv("DB_PATH", "papertrade.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "papertrade-secret-key"),
		},
		Wallet: WalletConfig{
			StartingDeposit:   getEnvFloat("STARTING_DEPOSIT", 10000),
			DefaultTier:       getEnv("DEFAULT_TIER", "starter"),
			MaxTransactions:   getEnvInt("MAX_TRANSACTIONS", 200),
			MaxJournalEntries: getEnvInt("MAX_JOURNAL_ENTRIES", 500),
		},
		Market: MarketConfig{
			TickInterval:       getEnvDuration("TICK_INTERVAL", 2*time.Second),
			OrderCheckInterval: getEnvDuration("ORDER_CHECK_INTERVAL", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
