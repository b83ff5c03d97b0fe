package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderLeaderboardMarkdown renders report as Markdown string.
func RenderLeaderboardMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Wallet Leaderboard\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.ScoringWindow != "" {
		sb.WriteString(fmt.Sprintf("Scoring window: %s\n\n", r.ScoringWindow))
	}

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Wallets | %d |\n", r.Summary.Wallets))
	sb.WriteString(fmt.Sprintf("| Empty Wallets | %d |\n", r.Summary.EmptyWallets))
	sb.WriteString(fmt.Sprintf("| Closed Lots | %d |\n", r.Summary.ClosedLots))
	sb.WriteString(fmt.Sprintf("| Pre-history Lots | %d |\n", r.Summary.PreHistoryLots))
	sb.WriteString(fmt.Sprintf("| Rejected Trades | %d |\n", r.Summary.RejectedTrades))
	sb.WriteString(fmt.Sprintf("| Oldest Snapshot (ms) | %d |\n", r.Summary.OldestSnapshot))
	sb.WriteString(fmt.Sprintf("| Newest Snapshot (ms) | %d |\n", r.Summary.NewestSnapshot))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Leaderboard\n\n")
	if len(r.Leaderboard) > 0 {
		sb.WriteString("| Rank | Wallet | Score | Closed | WinRate | PnL | AvgPnL% | MaxDD% | MaxLossStreak | PreHistory |\n")
		sb.WriteString("|------|--------|-------|--------|---------|-----|---------|--------|---------------|------------|\n")
		for _, row := range r.Leaderboard {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %d | %s | %.4f | %s | %s | %d | %d |\n",
				row.Rank, row.WalletID, row.Score, row.ClosedTrades,
				optPct(row.WinRate), row.RealizedPnL, optPct(row.AvgPnLPct), optPct(row.MaxDrawdownPct),
				row.MaxConsecutiveLosses, row.PreHistoryLots))
		}
	} else {
		sb.WriteString("No scored wallets.\n")
	}
	sb.WriteString("\n")

	// Integrity
	if len(r.IntegrityErrors) > 0 {
		sb.WriteString("## Integrity Errors\n\n")
		for _, e := range r.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// optPct formats a ratio as a percentage, "n/a" when unknown.
func optPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v*100)
}
