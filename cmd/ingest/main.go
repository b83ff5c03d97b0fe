// Package main imports wallet trades and price points from JSON files into
// the configured stores. Files hold a JSON array or one object per line.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"solana-wallet-ledger/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	tradesFile := flag.String("trades-file", "", "JSON trades to import")
	pricesFile := flag.String("prices-file", "", "JSON price points to import (requires ClickHouse)")
	flag.Parse()

	logger := app.NewLogger("ingest")

	if *tradesFile == "" && *pricesFile == "" {
		logger.Fatal("--trades-file or --prices-file is required")
	}

	cfg, err := app.LoadConfig(*configPath, false)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Storage.UseMemory {
		logger.Fatal("ingest needs persistent storage; set storage.use_memory = false")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling import...", sig)
		cancel()
	}()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to wire dependencies: %v", err)
	}
	defer cleanup()

	if err := app.Seed(ctx, deps, *tradesFile, *pricesFile, logger); err != nil {
		logger.Fatalf("Import failed: %v", err)
	}
	logger.Println("Import complete; run sweep to rebuild affected wallets")
}
