package config

import (
	"context"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.GRPCPort != "9090" || cfg.DBPath != "./data/warphunt.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.UserRetention != 30*24*time.Hour {
		t.Fatalf("UserRetention = %v", cfg.UserRetention)
	}
	if cfg.CountdownTick != time.Second || cfg.ClaimSettle != 2*time.Second {
		t.Fatalf("timing defaults: tick %v claim %v", cfg.CountdownTick, cfg.ClaimSettle)
	}
	if cfg.Tx.SignInterval != 20*time.Millisecond || cfg.Tx.SignStep != 1 ||
		cfg.Tx.ConfirmInterval != 30*time.Millisecond || cfg.Tx.ConfirmStep != 2 ||
		cfg.Tx.SettleDelay != time.Second {
		t.Fatalf("tx defaults: %+v", cfg.Tx)
	}
	if cfg.Wallet.Provider != WalletSimulated || cfg.Wallet.SendDelay != time.Second || cfg.Wallet.AutoAuthorize {
		t.Fatalf("wallet defaults: %+v", cfg.Wallet)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("empty FRONTEND_URL should be development")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GRPC_PORT", "")
	t.Setenv("COUNTDOWN_TICK", "250ms")
	t.Setenv("TX_SIGN_STEP", "5")
	t.Setenv("WALLET_PROVIDER", "NONE")
	t.Setenv("WALLET_FAILURE_RATE", "0.25")
	t.Setenv("WALLET_AUTO_AUTHORIZE", "yes")
	t.Setenv("FRONTEND_URL", "https://warphunt.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GRPCPort != "" {
		t.Errorf("GRPCPort = %q, want empty", cfg.GRPCPort)
	}
	if cfg.CountdownTick != 250*time.Millisecond {
		t.Errorf("CountdownTick = %v", cfg.CountdownTick)
	}
	if cfg.Tx.SignStep != 5 {
		t.Errorf("SignStep = %d", cfg.Tx.SignStep)
	}
	if cfg.Wallet.Provider != WalletNone || cfg.Wallet.FailureRate != 0.25 || !cfg.Wallet.AutoAuthorize {
		t.Errorf("Wallet = %+v", cfg.Wallet)
	}
	if cfg.IsDevelopment() {
		t.Error("public FRONTEND_URL should not be development")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"WALLET_PROVIDER":     "metamask",
		"WALLET_FAILURE_RATE": "1.5",
		"TX_CONFIRM_STEP":     "0",
		"PORT":                "",
		"USER_RETENTION":      "-1h",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q succeeded", key, value)
			}
		})
	}
}

func TestGetEnvDurationFallsBack(t *testing.T) {
	t.Setenv("PLAYER_IDLE_TTL", "soon")
	if got := getEnvDuration("PLAYER_IDLE_TTL", time.Minute); got != time.Minute {
		t.Fatalf("getEnvDuration() = %v, want fallback", got)
	}
}

func TestWalletConfigNewProvider(t *testing.T) {
	none := WalletConfig{Provider: WalletNone}
	if none.NewProvider().HasProvider() {
		t.Error("none provider reports a wallet")
	}

	sim := WalletConfig{Provider: WalletSimulated, AutoAuthorize: true}
	p := sim.NewProvider()
	if !p.HasProvider() {
		t.Fatal("simulated provider reports no wallet")
	}
	accounts, err := p.GetAccounts(context.Background())
	if err != nil || len(accounts) != 1 {
		t.Fatalf("GetAccounts() = %v, %v", accounts, err)
	}
}

func TestGameConfig(t *testing.T) {
	t.Setenv("COUNTDOWN_TICK", "250ms")
	t.Setenv("TX_SETTLE_DELAY", "5ms")
	t.Setenv("CLAIM_SETTLE_DELAY", "3s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	gc := cfg.GameConfig()
	if gc.TickInterval != 250*time.Millisecond || gc.ClaimSettle != 3*time.Second {
		t.Fatalf("GameConfig() timings = %v / %v", gc.TickInterval, gc.ClaimSettle)
	}
	if gc.TxTiming != cfg.Tx || gc.TxTiming.SettleDelay != 5*time.Millisecond {
		t.Fatalf("GameConfig().TxTiming = %+v, want %+v", gc.TxTiming, cfg.Tx)
	}
	if gc.Verifier == nil {
		t.Fatal("GameConfig() has no verifier")
	}
}
