// Package main runs the wallet ledger service:
// - Sweep (scheduled): FIFO lot matching and scoring for every wallet
// - API (continuous): wallet metrics, closed lots, score history, leaderboard
// - Stream (continuous): websocket fan-out of committed score snapshots
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-wallet-ledger/internal/api"
	"solana-wallet-ledger/internal/app"
	"solana-wallet-ledger/internal/config"
	"solana-wallet-ledger/internal/orchestrator"
)

// Server holds all components of the service.
type Server struct {
	cfg      *config.Config
	services *app.Services
	hub      *api.Hub
	logger   *log.Logger

	// State
	mu           sync.Mutex
	started      time.Time
	lastSweepRun time.Time
	sweepRunning bool
	sweepRuns    int
	lastSweep    *orchestrator.SweepResult
}

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	tradesFile := flag.String("trades-file", "", "JSON trades to import on startup")
	pricesFile := flag.String("prices-file", "", "JSON price points to import on startup")
	flag.Parse()

	logger := app.NewLogger("server")

	cfg, err := app.LoadConfig(*configPath, *useMemory)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	logger.Printf("Configuration: %+v", config.Redacted(cfg))

	ctx, cancel := context.WithCancel(context.Background())

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to wire dependencies: %v", err)
	}
	defer cleanup()

	if err := app.Seed(ctx, deps, *tradesFile, *pricesFile, logger); err != nil {
		logger.Fatalf("Failed to seed: %v", err)
	}

	hub := api.NewHub(app.NewLogger("ws"))
	services, err := app.Build(cfg, deps, hub)
	if err != nil {
		logger.Fatalf("Failed to build services: %v", err)
	}

	server := &Server{
		cfg:      cfg,
		services: services,
		hub:      hub,
		logger:   logger,
		started:  time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// Run starts the hub, the HTTP server and the sweep scheduler and blocks
// until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting wallet ledger server...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})

	if s.cfg.Server.Enabled {
		g.Go(func() error {
			return s.serveHTTP(ctx)
		})
	}

	g.Go(func() error {
		return s.runSweepScheduler(ctx)
	})

	return g.Wait()
}

// serveHTTP serves the API until ctx is cancelled.
func (s *Server) serveHTTP(ctx context.Context) error {
	handler := api.NewServer(api.Options{
		Query:          s.services.Query,
		Hub:            s.hub,
		Status:         func() any { return s.status() },
		RequestTimeout: s.cfg.Server.RequestTimeout.Duration,
		Logger:         app.NewLogger("api"),
	}).Router()

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("HTTP shutdown error: %v", err)
	}
	return ctx.Err()
}

// runSweepScheduler sweeps all wallets on start and then on every interval.
// A zero interval runs no sweeps; passes then come only from corrections.
func (s *Server) runSweepScheduler(ctx context.Context) error {
	interval := s.cfg.Sweep.Interval.Duration
	if interval <= 0 {
		s.logger.Println("Sweep scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	s.logger.Printf("Starting sweep scheduler (interval: %v)...", interval)

	// Run immediately on start
	s.runSweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// runSweep executes one sweep over every known wallet.
func (s *Server) runSweep(ctx context.Context) {
	s.mu.Lock()
	if s.sweepRunning {
		s.mu.Unlock()
		s.logger.Println("Sweep already running, skipping...")
		return
	}
	s.sweepRunning = true
	s.mu.Unlock()

	var result *orchestrator.SweepResult
	defer func() {
		s.mu.Lock()
		s.sweepRunning = false
		s.lastSweepRun = time.Now()
		s.sweepRuns++
		if result != nil {
			s.lastSweep = result
		}
		s.mu.Unlock()
	}()

	result, err := s.services.Sweep.Run(ctx, "", nil)
	if err != nil {
		s.logger.Printf("Sweep error: %v", err)
		return
	}
	for _, f := range result.Failures {
		s.logger.Printf("Sweep %s: wallet %s failed: %v", result.RunID, f.WalletID, f.Err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Started         time.Time `json:"started"`
	LastSweepRun    time.Time `json:"last_sweep_run,omitempty"`
	SweepRuns       int       `json:"sweep_runs"`
	SweepRunning    bool      `json:"sweep_running"`
	LastRunID       string    `json:"last_run_id,omitempty"`
	LastProcessed   int       `json:"last_processed"`
	LastFailures    int       `json:"last_failures"`
	LastConflicts   int       `json:"last_conflicts"`
	StreamClients   int       `json:"stream_clients"`
	StorageBackend  string    `json:"storage_backend"`
	ArchiveEnabled  bool      `json:"archive_enabled"`
	OracleAvailable bool      `json:"oracle_available"`
}

func (s *Server) status() StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).Round(time.Second).String(),
		Started:         s.started,
		LastSweepRun:    s.lastSweepRun,
		SweepRuns:       s.sweepRuns,
		SweepRunning:    s.sweepRunning,
		StreamClients:   s.hub.ClientCount(),
		StorageBackend:  "postgres",
		ArchiveEnabled:  s.cfg.S3.Enabled,
		OracleAvailable: s.services.Oracle != nil,
	}
	if s.cfg.Storage.UseMemory {
		resp.StorageBackend = "memory"
	}
	if s.lastSweep != nil {
		resp.LastRunID = s.lastSweep.RunID
		resp.LastProcessed = s.lastSweep.Processed
		resp.LastFailures = len(s.lastSweep.Failures)
		resp.LastConflicts = s.lastSweep.Conflicts
	}
	return resp
}
