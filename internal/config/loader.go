package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (skipped when path is empty) on top of
// Defaults, loads .env if present, then applies LEDGER_* environment
// overrides. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose LEDGER_* variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Storage ──
	setBool(&cfg.Storage.UseMemory, "LEDGER_USE_MEMORY")
	setStr(&cfg.Storage.PostgresDSN, "LEDGER_POSTGRES_DSN")
	setStr(&cfg.Storage.PostgresDSN, "POSTGRES_DSN") // compatibility alias
	setStr(&cfg.Storage.ClickHouseDSN, "LEDGER_CLICKHOUSE_DSN")
	setStr(&cfg.Storage.ClickHouseDSN, "CLICKHOUSE_DSN") // compatibility alias
	setBool(&cfg.Storage.RunMigrations, "LEDGER_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LEDGER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LEDGER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LEDGER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LEDGER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LEDGER_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "LEDGER_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "LEDGER_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "LEDGER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LEDGER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LEDGER_S3_REGION")
	setStr(&cfg.S3.Bucket, "LEDGER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LEDGER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LEDGER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LEDGER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LEDGER_S3_FORCE_PATH_STYLE")

	// ── Ledger ──
	setInt64(&cfg.Ledger.TrackingStart, "LEDGER_TRACKING_START")
	setDuration(&cfg.Ledger.LockTTL, "LEDGER_LOCK_TTL")

	// ── Metrics ──
	setStringSlice(&cfg.Metrics.Windows, "LEDGER_METRICS_WINDOWS")
	setStr(&cfg.Metrics.ScoringWindow, "LEDGER_METRICS_SCORING_WINDOW")
	setInt(&cfg.Metrics.ExperienceSaturation, "LEDGER_METRICS_EXPERIENCE_SATURATION")
	setFloat64(&cfg.Metrics.Weights.WinRate, "LEDGER_METRICS_WEIGHT_WIN_RATE")
	setFloat64(&cfg.Metrics.Weights.RealizedPnLPct, "LEDGER_METRICS_WEIGHT_REALIZED_PNL_PCT")
	setFloat64(&cfg.Metrics.Weights.Experience, "LEDGER_METRICS_WEIGHT_EXPERIENCE")
	setFloat64(&cfg.Metrics.Weights.Drawdown, "LEDGER_METRICS_WEIGHT_DRAWDOWN")
	setFloat64(&cfg.Metrics.Weights.AvgPnLPct, "LEDGER_METRICS_WEIGHT_AVG_PNL_PCT")

	// ── Oracle ──
	setDuration(&cfg.Oracle.Lookback, "LEDGER_ORACLE_LOOKBACK")
	setDuration(&cfg.Oracle.CacheTTL, "LEDGER_ORACLE_CACHE_TTL")

	// ── Sweep ──
	setDuration(&cfg.Sweep.Interval, "LEDGER_SWEEP_INTERVAL")
	setInt(&cfg.Sweep.Concurrency, "LEDGER_SWEEP_CONCURRENCY")
	setInt(&cfg.Sweep.RateLimit, "LEDGER_SWEEP_RATE_LIMIT")
	setDuration(&cfg.Sweep.RateWindow, "LEDGER_SWEEP_RATE_WINDOW")
	setDuration(&cfg.Sweep.CheckpointTTL, "LEDGER_SWEEP_CHECKPOINT_TTL")
	setBool(&cfg.Sweep.SkipProgramAccounts, "LEDGER_SKIP_PROGRAM_ACCOUNTS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LEDGER_SERVER_ENABLED")
	setStr(&cfg.Server.Addr, "LEDGER_SERVER_ADDR")
	setDuration(&cfg.Server.RequestTimeout, "LEDGER_SERVER_REQUEST_TIMEOUT")
}

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
