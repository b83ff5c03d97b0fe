// Package config loads the ledger service configuration from a TOML file,
// an optional .env file and LEDGER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"solana-wallet-ledger/internal/metrics"
)

// Config is the root configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
	S3      S3Config      `toml:"s3"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Metrics MetricsConfig `toml:"metrics"`
	Oracle  OracleConfig  `toml:"oracle"`
	Sweep   SweepConfig   `toml:"sweep"`
	Server  ServerConfig  `toml:"server"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	UseMemory     bool   `toml:"use_memory"`
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickHouseDSN string `toml:"clickhouse_dsn"` // optional; enables the price oracle and score history mirror
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds connection parameters for locks, price cache, rate
// limiting and sweep checkpoints. When disabled the in-process
// implementations are used.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds the ledger archive bucket settings.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// LedgerConfig holds matching options.
type LedgerConfig struct {
	// TrackingStart (unix ms) discards trades before it. Zero disables.
	TrackingStart int64    `toml:"tracking_start"`
	LockTTL       duration `toml:"lock_ttl"`
}

// MetricsConfig holds rolling window and scoring parameters.
type MetricsConfig struct {
	Windows              []string        `toml:"windows"`
	ScoringWindow        string          `toml:"scoring_window"`
	ExperienceSaturation int             `toml:"experience_saturation"`
	Weights              metrics.Weights `toml:"weights"`
}

// OracleConfig holds price oracle parameters.
type OracleConfig struct {
	Lookback duration `toml:"lookback"`
	CacheTTL duration `toml:"cache_ttl"`
}

// SweepConfig holds batch pass parameters.
type SweepConfig struct {
	Interval            duration `toml:"interval"` // server mode only; zero disables the loop
	Concurrency         int      `toml:"concurrency"`
	RateLimit           int      `toml:"rate_limit"` // wallet starts per rate_window
	RateWindow          duration `toml:"rate_window"`
	CheckpointTTL       duration `toml:"checkpoint_ttl"`
	SkipProgramAccounts bool     `toml:"skip_program_accounts"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Addr           string   `toml:"addr"`
	RequestTimeout duration `toml:"request_timeout"`
}

// duration wraps time.Duration so TOML can decode strings like "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: in-memory storage, the
// 7d/30d/90d/all windows scored on 30d, and a single-node sweep.
func Defaults() Config {
	mc := metrics.DefaultConfig()
	windows := make([]string, 0, len(mc.Windows))
	for _, w := range mc.Windows {
		windows = append(windows, w.Label)
	}

	return Config{
		Storage: StorageConfig{
			UseMemory:     true,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "ledger:",
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
			UseSSL:         true,
		},
		Ledger: LedgerConfig{
			LockTTL: duration{2 * time.Minute},
		},
		Metrics: MetricsConfig{
			Windows:              windows,
			ScoringWindow:        mc.ScoringWindow,
			ExperienceSaturation: mc.ExperienceSaturation,
			Weights:              mc.Weights,
		},
		Oracle: OracleConfig{
			Lookback: duration{15 * time.Minute},
			CacheTTL: duration{2 * time.Minute},
		},
		Sweep: SweepConfig{
			Interval:            duration{5 * time.Minute},
			Concurrency:         4,
			RateLimit:           20,
			RateWindow:          duration{time.Second},
			CheckpointTTL:       duration{7 * 24 * time.Hour},
			SkipProgramAccounts: true,
		},
		Server: ServerConfig{
			Enabled:        true,
			Addr:           ":8080",
			RequestTimeout: duration{30 * time.Second},
		},
	}
}

// MetricsEngineConfig converts the window labels and weights into a
// metrics.Config.
func (c *Config) MetricsEngineConfig() (metrics.Config, error) {
	mc := metrics.Config{
		ScoringWindow:        c.Metrics.ScoringWindow,
		Weights:              c.Metrics.Weights,
		ExperienceSaturation: c.Metrics.ExperienceSaturation,
	}
	for _, label := range c.Metrics.Windows {
		w, err := metrics.ParseWindow(label)
		if err != nil {
			return metrics.Config{}, err
		}
		mc.Windows = append(mc.Windows, w)
	}
	if err := mc.Validate(); err != nil {
		return metrics.Config{}, err
	}
	return mc, nil
}

// TrackingStart returns the configured tracking start or nil.
func (c *Config) TrackingStart() *int64 {
	if c.Ledger.TrackingStart <= 0 {
		return nil
	}
	ts := c.Ledger.TrackingStart
	return &ts
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errs []string

	// Storage
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		errs = append(errs, "storage: postgres_dsn is required unless use_memory is set")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr is required when enabled")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket is required when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region is required when enabled")
		}
	}

	// Ledger
	if c.Ledger.LockTTL.Duration <= 0 {
		errs = append(errs, "ledger: lock_ttl must be positive")
	}

	// Metrics
	if _, err := c.MetricsEngineConfig(); err != nil {
		errs = append(errs, fmt.Sprintf("metrics: %v", err))
	}

	// Oracle
	if c.Oracle.Lookback.Duration <= 0 {
		errs = append(errs, "oracle: lookback must be positive")
	}

	// Sweep
	if c.Sweep.Concurrency <= 0 {
		errs = append(errs, fmt.Sprintf("sweep: concurrency must be positive, got %d", c.Sweep.Concurrency))
	}
	if c.Sweep.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("sweep: rate_limit must be >= 0, got %d", c.Sweep.RateLimit))
	}
	if c.Sweep.Interval.Duration < 0 {
		errs = append(errs, "sweep: interval must be >= 0")
	}

	// Server
	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, "server: addr is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Redacted returns a copy of c with secrets replaced by "***" for logging.
func Redacted(c *Config) Config {
	out := *c
	redact(&out.Storage.PostgresDSN)
	redact(&out.Storage.ClickHouseDSN)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	out.Metrics.Windows = append([]string(nil), c.Metrics.Windows...)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
