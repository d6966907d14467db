// Package config defines the top-level configuration for the whale watch
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by WHALEWATCH_* environment variables.
type Config struct {
	Binance  BinanceConfig  `toml:"binance"`
	Detector DetectorConfig `toml:"detector"`
	Whale    WhaleConfig    `toml:"whale"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// BinanceConfig holds exchange endpoints and the market to watch.
type BinanceConfig struct {
	WsHost    string `toml:"ws_host"`
	RestHost  string `toml:"rest_host"`
	Symbol    string `toml:"symbol"`
	DepthRate string `toml:"depth_rate"` // "100ms" or "1000ms"
}

// DetectorConfig holds institutional execution detector parameters.
type DetectorConfig struct {
	Enabled      bool `toml:"enabled"`
	LowLiquidity bool `toml:"low_liquidity"`
}

// WhaleConfig holds whale alert parameters.
type WhaleConfig struct {
	ThresholdUSD    float64 `toml:"threshold_usd"`
	LookbackTrades  int     `toml:"lookback_trades"`
	TradeRingSize   int     `toml:"trade_ring_size"`
	EventRingSize   int     `toml:"event_ring_size"`
	AlertHistoryMax int     `toml:"alert_history_max"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	CooldownSec       int      `toml:"cooldown_sec"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Binance: BinanceConfig{
			WsHost:    "wss://stream.binance.com:9443",
			RestHost:  "https://api.binance.com",
			Symbol:    "BTCUSDT",
			DepthRate: "1000ms",
		},
		Detector: DetectorConfig{
			Enabled:      true,
			LowLiquidity: false,
		},
		Whale: WhaleConfig{
			ThresholdUSD:    500_000,
			LookbackTrades:  50,
			TradeRingSize:   6000,
			EventRingSize:   300,
			AlertHistoryMax: 1000,
		},
		Supabase: SupabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "whalewatch-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{24 * time.Hour},
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events:      []string{"whale_alert", "institutional_execution", "error"},
			CooldownSec: 5,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validDepthRates enumerates the accepted Binance depth update intervals.
var validDepthRates = map[string]bool{
	"100ms":  true,
	"1000ms": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Binance
	if c.Binance.WsHost == "" {
		errs = append(errs, "binance: ws_host must not be empty")
	}
	if c.Binance.RestHost == "" {
		errs = append(errs, "binance: rest_host must not be empty")
	}
	if c.Binance.Symbol == "" {
		errs = append(errs, "binance: symbol must not be empty")
	}
	if !validDepthRates[c.Binance.DepthRate] {
		errs = append(errs, fmt.Sprintf("binance: depth_rate must be 100ms or 1000ms, got %q", c.Binance.DepthRate))
	}

	// Whale
	if c.Whale.ThresholdUSD <= 0 {
		errs = append(errs, "whale: threshold_usd must be > 0")
	}
	if c.Whale.LookbackTrades < 1 {
		errs = append(errs, "whale: lookback_trades must be >= 1")
	}
	if c.Whale.TradeRingSize < 100 {
		errs = append(errs, "whale: trade_ring_size must be >= 100")
	}
	if c.Whale.EventRingSize < 1 {
		errs = append(errs, "whale: event_ring_size must be >= 1")
	}
	if c.Whale.AlertHistoryMax < 1 {
		errs = append(errs, "whale: alert_history_max must be >= 1")
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 settings are only checked when archival is on; the engine runs without
	// cold storage otherwise.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.Interval.Duration < time.Minute {
			errs = append(errs, "archive: interval must be >= 1m")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Telegram fields must be set together, or both empty.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.CooldownSec < 0 {
		errs = append(errs, "notify: cooldown_sec must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
