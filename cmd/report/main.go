package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"solana-wallet-ledger/internal/app"
	"solana-wallet-ledger/internal/pubkey"
	"solana-wallet-ledger/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	limit := flag.Int("limit", 100, "Leaderboard size (0 = all wallets)")
	wallet := flag.String("wallet", "", "Also export this wallet's closed lots as CSV")
	verify := flag.Bool("verify", true, "Rebuild every wallet and list divergences as integrity errors")
	tradesFile := flag.String("trades-file", "", "JSON trades to import and sweep first (memory mode)")
	pricesFile := flag.String("prices-file", "", "JSON price points to import first (memory mode)")
	fixedTime := flag.String("generated-at", "", "Fixed report timestamp (RFC3339) for reproducible output")
	flag.Parse()

	logger := app.NewLogger("report")

	if *wallet != "" {
		if err := pubkey.Validate(*wallet); err != nil {
			fmt.Fprintf(os.Stderr, "Error: --wallet: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := app.LoadConfig(*configPath, *useMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	services, err := app.Build(cfg, deps, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building services: %v\n", err)
		os.Exit(1)
	}

	if *tradesFile != "" {
		if err := app.Seed(ctx, deps, *tradesFile, *pricesFile, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading trades: %v\n", err)
			os.Exit(1)
		}
		if _, err := services.Sweep.Run(ctx, "", nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error sweeping wallets: %v\n", err)
			os.Exit(1)
		}
	}

	gen := reporting.NewGenerator(deps.Scores, deps.Ledger)
	if *fixedTime != "" {
		t, err := time.Parse(time.RFC3339, *fixedTime)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --generated-at: %v\n", err)
			os.Exit(1)
		}
		gen = gen.WithClock(func() time.Time { return t })
	}

	report, err := gen.Generate(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if *verify {
		vr, err := services.Verifier.VerifyAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error verifying ledgers: %v\n", err)
			os.Exit(1)
		}
		report.IntegrityErrors = vr.Problems()
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	boardCSV, err := reporting.RenderLeaderboardCSV(report.Leaderboard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering leaderboard CSV: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"LEADERBOARD.md":  reporting.RenderLeaderboardMarkdown(report),
		"LEADERBOARD.csv": boardCSV,
	}

	if *wallet != "" {
		lots, err := gen.ClosedLots(ctx, *wallet)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading closed lots: %v\n", err)
			os.Exit(1)
		}
		lotsCSV, err := reporting.RenderClosedLotsCSV(lots)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering closed lots CSV: %v\n", err)
			os.Exit(1)
		}
		files["CLOSED_LOTS_"+*wallet+".csv"] = lotsCSV
	}

	fmt.Println("Wallet report generated successfully:")
	for _, name := range []string{"LEADERBOARD.md", "LEADERBOARD.csv", "CLOSED_LOTS_" + *wallet + ".csv"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("  - %s\n", path)
	}

	if n := len(report.IntegrityErrors); n > 0 {
		fmt.Printf("%d integrity errors listed in LEADERBOARD.md\n", n)
	}
}
