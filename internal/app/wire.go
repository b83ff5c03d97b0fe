package app

import (
	"context"
	"fmt"
	"log"

	s3blob "solana-wallet-ledger/internal/blob/s3"
	memcache "solana-wallet-ledger/internal/cache/memory"
	rediscache "solana-wallet-ledger/internal/cache/redis"
	"solana-wallet-ledger/internal/config"
	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
	chstore "solana-wallet-ledger/internal/storage/clickhouse"
	"solana-wallet-ledger/internal/storage/memory"
	"solana-wallet-ledger/internal/storage/migrations"
	pgstore "solana-wallet-ledger/internal/storage/postgres"
)

// Dependencies bundles the stores, coordination primitives and sinks a
// binary needs. Optional members are nil when not configured.
type Dependencies struct {
	// Stores
	Trades      storage.TradeStore
	Corrections storage.CorrectionStore
	Ledger      storage.LedgerStore
	Scores      storage.ScoreStore
	Committer   storage.PassCommitter
	Progress    storage.SweepProgressStore
	Prices      storage.PriceTimeseriesStore // optional
	History     storage.ScoreHistoryStore    // optional

	// Coordination
	Locks      domain.LockManager
	Limiter    domain.RateLimiter // optional
	Checkpoint domain.SweepCheckpoint
	PriceCache domain.PriceCache

	// Archive
	Archiver *s3blob.Archiver // optional
}

// Wire builds Dependencies from cfg and returns a cleanup function that
// releases connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Stores ---
	if cfg.Storage.UseMemory {
		trades := memory.NewTradeStore()
		ledger := memory.NewLedgerStore()
		scores := memory.NewScoreStore()
		deps.Trades = trades
		deps.Corrections = trades
		deps.Ledger = ledger
		deps.Scores = scores
		deps.Committer = memory.NewPassCommitter(ledger, scores)
		deps.Progress = memory.NewSweepProgressStore()
		deps.Prices = memory.NewPriceTimeseriesStore()
		deps.History = memory.NewScoreHistoryStore()
		logger.Println("Using in-memory storage")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if cfg.Storage.RunMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		trades := pgstore.NewTradeStore(pool)
		deps.Trades = trades
		deps.Corrections = trades
		deps.Ledger = pgstore.NewLedgerStore(pool)
		deps.Scores = pgstore.NewScoreStore(pool)
		deps.Committer = pgstore.NewPassCommitter(pool)
		deps.Progress = pgstore.NewSweepProgressStore(pool)

		if cfg.Storage.ClickHouseDSN != "" {
			var conn *chstore.Conn
			if cfg.Storage.RunMigrations {
				conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
			} else {
				conn, err = chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
			}
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: clickhouse: %w", err)
			}
			closers = append(closers, func() { _ = conn.Close() })
			deps.Prices = chstore.NewPriceTimeseriesStore(conn)
			deps.History = chstore.NewScoreHistoryStore(conn)
		} else {
			logger.Println("No ClickHouse DSN: oracle revaluation and score history mirror disabled")
		}
	}

	// --- Coordination ---
	if cfg.Redis.Enabled {
		client, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })

		deps.Locks = rediscache.NewLockManager(client)
		deps.Checkpoint = rediscache.NewCheckpoint(client, cfg.Sweep.CheckpointTTL.Duration)
		deps.PriceCache = rediscache.NewPriceCache(client, cfg.Oracle.CacheTTL.Duration)
		if cfg.Sweep.RateLimit > 0 {
			deps.Limiter = rediscache.NewRateLimiter(client, cfg.Sweep.RateLimit, cfg.Sweep.RateWindow.Duration)
		}
	} else {
		deps.Locks = memcache.NewLockManager()
		deps.Checkpoint = deps.Progress
		deps.PriceCache = memcache.NewPriceCache()
		if cfg.Sweep.RateLimit > 0 {
			deps.Limiter = memcache.NewRateLimiter(cfg.Sweep.RateLimit, cfg.Sweep.RateWindow.Duration)
		}
	}

	// --- S3 ledger archive ---
	if cfg.S3.Enabled {
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := client.Health(ctx); err != nil {
			logger.Printf("S3 bucket not reachable, archiving anyway: %v", err)
		}
		deps.Archiver = s3blob.NewArchiver(client)
	}

	return deps, cleanup, nil
}
