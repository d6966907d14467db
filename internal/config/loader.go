package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WHALEWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WHALEWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Binance ──
	setStr(&cfg.Binance.WsHost, "WHALEWATCH_BINANCE_WS_HOST")
	setStr(&cfg.Binance.RestHost, "WHALEWATCH_BINANCE_REST_HOST")
	setStr(&cfg.Binance.Symbol, "WHALEWATCH_BINANCE_SYMBOL")
	setStr(&cfg.Binance.DepthRate, "WHALEWATCH_BINANCE_DEPTH_RATE")

	// ── Detector ──
	setBool(&cfg.Detector.Enabled, "WHALEWATCH_DETECTOR_ENABLED")
	setBool(&cfg.Detector.LowLiquidity, "WHALEWATCH_DETECTOR_LOW_LIQUIDITY")

	// ── Whale ──
	setFloat64(&cfg.Whale.ThresholdUSD, "WHALEWATCH_WHALE_THRESHOLD_USD")
	setInt(&cfg.Whale.LookbackTrades, "WHALEWATCH_WHALE_LOOKBACK_TRADES")
	setInt(&cfg.Whale.TradeRingSize, "WHALEWATCH_WHALE_TRADE_RING_SIZE")
	setInt(&cfg.Whale.EventRingSize, "WHALEWATCH_WHALE_EVENT_RING_SIZE")
	setInt(&cfg.Whale.AlertHistoryMax, "WHALEWATCH_WHALE_ALERT_HISTORY_MAX")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "WHALEWATCH_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "WHALEWATCH_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "WHALEWATCH_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "WHALEWATCH_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "WHALEWATCH_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "WHALEWATCH_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "WHALEWATCH_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "WHALEWATCH_SUPABASE_SSLMODE")
	setStr(&cfg.Supabase.SSLMode, "WHALEWATCH_SUPABASE_SSL_MODE") // compatibility alias
	setInt(&cfg.Supabase.PoolMaxConns, "WHALEWATCH_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "WHALEWATCH_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "WHALEWATCH_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WHALEWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WHALEWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WHALEWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WHALEWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WHALEWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WHALEWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "WHALEWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WHALEWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "WHALEWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WHALEWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WHALEWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WHALEWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WHALEWATCH_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "WHALEWATCH_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "WHALEWATCH_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "WHALEWATCH_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WHALEWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WHALEWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WHALEWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WHALEWATCH_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WHALEWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WHALEWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WHALEWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WHALEWATCH_NOTIFY_EVENTS")
	setInt(&cfg.Notify.CooldownSec, "WHALEWATCH_NOTIFY_COOLDOWN_SEC")

	// ── Top-level ──
	setStr(&cfg.Mode, "WHALEWATCH_MODE")
	setStr(&cfg.LogLevel, "WHALEWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
