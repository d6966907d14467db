package config

import (
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Binance.Symbol = ""
	cfg.Whale.ThresholdUSD = -1
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"unknown mode", "symbol", "threshold_usd", "redis: addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateTelegramPairing(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("token without chat id must fail validation")
	}
	cfg.Notify.TelegramChatID = "chat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("paired telegram settings must validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WHALEWATCH_BINANCE_SYMBOL", "ETHUSDT")
	t.Setenv("WHALEWATCH_DETECTOR_LOW_LIQUIDITY", "true")
	t.Setenv("WHALEWATCH_WHALE_THRESHOLD_USD", "250000")
	t.Setenv("WHALEWATCH_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WHALEWATCH_ARCHIVE_INTERVAL", "6h")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Binance.Symbol != "ETHUSDT" {
		t.Errorf("symbol override missed: %q", cfg.Binance.Symbol)
	}
	if !cfg.Detector.LowLiquidity {
		t.Error("low_liquidity override missed")
	}
	if cfg.Whale.ThresholdUSD != 250_000 {
		t.Errorf("threshold override missed: %v", cfg.Whale.ThresholdUSD)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors override missed: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Archive.Interval.Duration.Hours() != 6 {
		t.Errorf("interval override missed: %v", cfg.Archive.Interval)
	}
}
