// Package main applies an audited trade correction and rebuilds the
// affected wallet, or lists a wallet's correction history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"solana-wallet-ledger/internal/app"
	"solana-wallet-ledger/internal/correction"
	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/pubkey"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	tradeID := flag.String("trade", "", "Trade id to correct")
	side := flag.String("side", string(domain.SideVoid), "New side: buy, sell or void")
	reason := flag.String("reason", "", "Reason recorded in the audit row (required)")
	actor := flag.String("actor", os.Getenv("USER"), "Who applies the correction")
	history := flag.String("history", "", "List corrections for this wallet instead of applying one")
	flag.Parse()

	logger := app.NewLogger("correct")

	cfg, err := app.LoadConfig(*configPath, false)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Storage.UseMemory {
		logger.Fatal("correct needs persistent storage; set storage.use_memory = false")
	}

	ctx := context.Background()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to wire dependencies: %v", err)
	}
	defer cleanup()

	services, err := app.Build(cfg, deps, nil)
	if err != nil {
		logger.Fatalf("Failed to build services: %v", err)
	}

	if *history != "" {
		if err := pubkey.Validate(*history); err != nil {
			logger.Fatalf("--history: %v", err)
		}
		printHistory(ctx, services.Correction, *history)
		return
	}

	if *tradeID == "" || *reason == "" {
		logger.Fatal("--trade and --reason are required")
	}

	c, err := services.Correction.Apply(ctx, correction.Request{
		TradeID: *tradeID,
		ToSide:  domain.Side(*side),
		Reason:  *reason,
		Actor:   *actor,
	})
	switch {
	case err == nil:
		fmt.Printf("Correction %s applied: trade %s %s -> %s; wallet %s rebuilt\n",
			c.ID, c.TradeID, c.FromSide, c.ToSide, c.WalletID)
	case c != nil && errors.Is(err, domain.ErrConcurrencyConflict):
		fmt.Printf("Correction %s applied; wallet %s is busy and will be rebuilt by the next sweep\n", c.ID, c.WalletID)
	case c != nil:
		logger.Fatalf("Correction %s applied but rebuild failed: %v", c.ID, err)
	default:
		logger.Fatalf("Correction failed: %v", err)
	}
}

func printHistory(ctx context.Context, svc *correction.Service, walletID string) {
	corrections, err := svc.History(ctx, walletID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading history: %v\n", err)
		os.Exit(1)
	}
	if len(corrections) == 0 {
		fmt.Printf("No corrections for %s\n", walletID)
		return
	}
	for _, c := range corrections {
		fmt.Printf("%s  %s  %s -> %s  by %s: %s\n",
			time.UnixMilli(c.AppliedAt).UTC().Format(time.RFC3339),
			c.TradeID, c.FromSide, c.ToSide, c.Actor, c.Reason)
	}
}
