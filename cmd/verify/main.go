// Package main rebuilds wallets from the trade log and checks the stored
// closed lots and open positions against the rebuild.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"solana-wallet-ledger/internal/app"
	"solana-wallet-ledger/internal/pubkey"
	"solana-wallet-ledger/internal/verification"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	wallet := flag.String("wallet", "", "Verify a single wallet (default: all wallets)")
	tradesFile := flag.String("trades-file", "", "JSON trades to import first (memory mode)")
	sweepFirst := flag.Bool("sweep-first", false, "Run a sweep before verifying (memory mode)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := app.NewLogger("verify")

	if *wallet != "" {
		if err := pubkey.Validate(*wallet); err != nil {
			logger.Fatalf("--wallet: %v", err)
		}
	}

	cfg, err := app.LoadConfig(*configPath, *useMemory)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to wire dependencies: %v", err)
	}
	defer cleanup()

	if err := app.Seed(ctx, deps, *tradesFile, "", logger); err != nil {
		logger.Fatalf("Failed to seed: %v", err)
	}

	services, err := app.Build(cfg, deps, nil)
	if err != nil {
		logger.Fatalf("Failed to build services: %v", err)
	}

	if *sweepFirst {
		if _, err := services.Sweep.Run(ctx, "", nil); err != nil {
			logger.Fatalf("Sweep failed: %v", err)
		}
	}

	var report *verification.VerificationReport
	if *wallet != "" {
		result, err := services.Verifier.VerifyWallet(ctx, *wallet)
		if err != nil {
			logger.Fatalf("Verification failed: %v", err)
		}
		report = &verification.VerificationReport{TotalWallets: 1, Results: []verification.WalletResult{*result}}
		if result.Match {
			report.MatchedWallets = 1
		} else {
			report.DivergentWallets = 1
		}
	} else {
		report, err = services.Verifier.VerifyAll(ctx)
		if err != nil {
			logger.Fatalf("Verification failed: %v", err)
		}
	}

	problems := report.Problems()
	if *outputJSON {
		out := map[string]any{
			"total_wallets":     report.TotalWallets,
			"matched_wallets":   report.MatchedWallets,
			"divergent_wallets": report.DivergentWallets,
			"problems":          append([]string{}, problems...),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("\n=== Verification Summary ===\n")
		fmt.Printf("Wallets:    %d\n", report.TotalWallets)
		fmt.Printf("Matched:    %d\n", report.MatchedWallets)
		fmt.Printf("Divergent:  %d\n", report.DivergentWallets)
		for _, r := range report.Results {
			fmt.Printf("  %s: stored=%d rebuilt=%d match=%t\n", r.WalletID, r.StoredLots, r.RebuiltLots, r.Match)
		}
		for _, p := range problems {
			fmt.Printf("  ! %s\n", p)
		}
	}

	if report.DivergentWallets > 0 {
		os.Exit(1)
	}
}
