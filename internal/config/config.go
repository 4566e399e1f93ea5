// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Gyeri/warphunt/internal/game"
	"github.com/Gyeri/warphunt/internal/txsim"
	"github.com/Gyeri/warphunt/internal/wallet"
)

// Wallet provider kinds.
const (
	WalletSimulated = "simulated"
	WalletNone      = "none"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	GRPCPort      string // empty disables the gRPC health server
	FrontendURL   string
	DBPath        string
	PlayerIdleTTL time.Duration
	UserRetention time.Duration
	ReapInterval  time.Duration
	CountdownTick time.Duration
	ClaimSettle   time.Duration
	Tx            txsim.Timing
	Wallet        WalletConfig
}

// WalletConfig controls the wallet handed to each player.
type WalletConfig struct {
	Provider      string // "simulated" or "none"
	Address       string
	SendDelay     time.Duration
	FailureRate   float64
	AutoAuthorize bool
}

// NewProvider builds the wallet described by the configuration.
func (w WalletConfig) NewProvider() wallet.Provider {
	if w.Provider == WalletNone {
		return wallet.Absent{}
	}
	return wallet.NewSimulated(wallet.SimulatedConfig{
		Address:       w.Address,
		SendDelay:     w.SendDelay,
		FailureRate:   w.FailureRate,
		AutoAuthorize: w.AutoAuthorize,
	})
}

// GameConfig returns the player settings derived from the configuration.
func (c *Config) GameConfig() game.Config {
	gc := game.DefaultConfig()
	gc.TickInterval = c.CountdownTick
	gc.TxTiming = c.Tx
	gc.ClaimSettle = c.ClaimSettle
	return gc
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	tx := txsim.DefaultTiming()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		GRPCPort:      getEnv("GRPC_PORT", "9090"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/warphunt.db"),
		PlayerIdleTTL: getEnvDuration("PLAYER_IDLE_TTL", 30*time.Minute),
		UserRetention: getEnvDuration("USER_RETENTION", 30*24*time.Hour),
		ReapInterval:  getEnvDuration("PLAYER_REAP_INTERVAL", time.Minute),
		CountdownTick: getEnvDuration("COUNTDOWN_TICK", time.Second),
		ClaimSettle:   getEnvDuration("CLAIM_SETTLE_DELAY", 2*time.Second),
		Tx: txsim.Timing{
			SignInterval:    getEnvDuration("TX_SIGN_INTERVAL", tx.SignInterval),
			SignStep:        getEnvInt("TX_SIGN_STEP", tx.SignStep),
			ConfirmInterval: getEnvDuration("TX_CONFIRM_INTERVAL", tx.ConfirmInterval),
			ConfirmStep:     getEnvInt("TX_CONFIRM_STEP", tx.ConfirmStep),
			SettleDelay:     getEnvDuration("TX_SETTLE_DELAY", tx.SettleDelay),
		},
		Wallet: WalletConfig{
			Provider:      strings.ToLower(getEnv("WALLET_PROVIDER", WalletSimulated)),
			Address:       getEnv("WALLET_ADDRESS", ""),
			SendDelay:     getEnvDuration("WALLET_SEND_DELAY", time.Second),
			FailureRate:   getEnvFloat("WALLET_FAILURE_RATE", 0),
			AutoAuthorize: getEnvBool("WALLET_AUTO_AUTHORIZE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.PlayerIdleTTL <= 0 {
		return fmt.Errorf("PLAYER_IDLE_TTL must be > 0")
	}
	if c.UserRetention <= 0 {
		return fmt.Errorf("USER_RETENTION must be > 0")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("PLAYER_REAP_INTERVAL must be > 0")
	}
	if c.CountdownTick <= 0 {
		return fmt.Errorf("COUNTDOWN_TICK must be > 0")
	}
	if c.ClaimSettle < 0 {
		return fmt.Errorf("CLAIM_SETTLE_DELAY cannot be negative")
	}
	if c.Tx.SignInterval <= 0 || c.Tx.ConfirmInterval <= 0 {
		return fmt.Errorf("TX_SIGN_INTERVAL and TX_CONFIRM_INTERVAL must be > 0")
	}
	if c.Tx.SignStep <= 0 || c.Tx.ConfirmStep <= 0 {
		return fmt.Errorf("TX_SIGN_STEP and TX_CONFIRM_STEP must be > 0")
	}
	if c.Tx.SettleDelay < 0 {
		return fmt.Errorf("TX_SETTLE_DELAY cannot be negative")
	}
	switch c.Wallet.Provider {
	case WalletSimulated, WalletNone:
	default:
		return fmt.Errorf("WALLET_PROVIDER must be %q or %q, got %q", WalletSimulated, WalletNone, c.Wallet.Provider)
	}
	if c.Wallet.FailureRate < 0 || c.Wallet.FailureRate > 1 {
		return fmt.Errorf("WALLET_FAILURE_RATE must be within [0,1]")
	}
	if c.Wallet.SendDelay < 0 {
		return fmt.Errorf("WALLET_SEND_DELAY cannot be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
