// Package main runs one sweep: a FIFO matching and scoring pass for every
// selected wallet, committed atomically per wallet.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-wallet-ledger/internal/app"
	"solana-wallet-ledger/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	runID := flag.String("run-id", "", "Sweep run id; reuse it to resume an interrupted sweep")
	wallets := flag.String("wallets", "", "Comma-separated wallets (default: every wallet with trades)")
	tradesFile := flag.String("trades-file", "", "JSON trades to import before sweeping")
	pricesFile := flag.String("prices-file", "", "JSON price points to import before sweeping")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	flag.Parse()

	logger := app.NewLogger("sweep")

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
		logger.Printf("Received signal %v, cancelling sweep...", sig)
		cancel()
	}()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to wire dependencies: %v", err)
	}
	defer cleanup()

	if err := app.Seed(ctx, deps, *tradesFile, *pricesFile, logger); err != nil {
		logger.Fatalf("Failed to seed: %v", err)
	}

	services, err := app.Build(cfg, deps, nil)
	if err != nil {
		logger.Fatalf("Failed to build services: %v", err)
	}

	result, err := services.Sweep.Run(ctx, *runID, splitList(*wallets))
	if err != nil {
		logger.Fatalf("Sweep failed: %v", err)
	}

	if *outputJSON {
		printJSON(result)
	} else {
		printSummary(result)
	}

	if len(result.Failures) > 0 {
		os.Exit(1)
	}
}

// splitList returns nil for an empty flag so the sweep discovers wallets.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type failureJSON struct {
	WalletID string `json:"wallet_id"`
	Error    string `json:"error"`
}

type summaryJSON struct {
	RunID      string        `json:"run_id"`
	Total      int           `json:"total"`
	Processed  int           `json:"processed"`
	Resumed    int           `json:"resumed"`
	Skipped    int           `json:"skipped"`
	Conflicts  int           `json:"conflicts"`
	Failures   []failureJSON `json:"failures"`
	DurationMs int64         `json:"duration_ms"`
}

func printJSON(r *orchestrator.SweepResult) {
	out := summaryJSON{
		RunID:      r.RunID,
		Total:      r.Total,
		Processed:  r.Processed,
		Resumed:    r.Resumed,
		Skipped:    r.Skipped,
		Conflicts:  r.Conflicts,
		Failures:   []failureJSON{},
		DurationMs: r.Duration.Milliseconds(),
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, failureJSON{WalletID: f.WalletID, Error: f.Err.Error()})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func printSummary(r *orchestrator.SweepResult) {
	fmt.Printf("\n=== Sweep Summary ===\n")
	fmt.Printf("Run ID:     %s\n", r.RunID)
	fmt.Printf("Wallets:    %d\n", r.Total)
	fmt.Printf("Processed:  %d\n", r.Processed)
	fmt.Printf("Resumed:    %d\n", r.Resumed)
	fmt.Printf("Skipped:    %d\n", r.Skipped)
	fmt.Printf("Conflicts:  %d\n", r.Conflicts)
	fmt.Printf("Failures:   %d\n", len(r.Failures))
	fmt.Printf("Duration:   %v\n", r.Duration.Round(time.Millisecond))
	for _, f := range r.Failures {
		fmt.Printf("  - %s: %v\n", f.WalletID, f.Err)
	}
}
