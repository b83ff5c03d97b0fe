package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"solana-wallet-ledger/internal/domain"
)

var closedLotsHeader = []string{
	"wallet_id", "asset_id", "sequence", "quantity",
	"entry_price", "entry_time", "exit_price", "exit_time",
	"cost_basis", "proceeds", "realized_pnl", "realized_pnl_pct", "hold_duration_ms",
	"buy_trade_id", "sell_trade_id", "is_pre_history", "exit_valuation",
}

// RenderClosedLotsCSV renders closed lots as CSV string. Unknown values
// (pre-history entry side) are empty cells.
func RenderClosedLotsCSV(lots []*domain.ClosedLot) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(closedLotsHeader); err != nil {
		return "", err
	}
	for _, l := range lots {
		record := []string{
			l.WalletID,
			l.AssetID,
			strconv.FormatInt(l.Sequence, 10),
			formatFloat(l.Quantity),
			optFloat(l.EntryPrice),
			optInt(l.EntryTime),
			formatFloat(l.ExitPrice),
			strconv.FormatInt(l.ExitTime, 10),
			optFloat(l.CostBasis),
			formatFloat(l.Proceeds),
			formatFloat(l.RealizedPnL),
			optFloat(l.RealizedPnLPct),
			optInt(l.HoldDurationMs),
			optString(l.BuyTradeID),
			l.SellTradeID,
			strconv.FormatBool(l.IsPreHistory),
			string(l.ExitValuation),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

// RenderLeaderboardCSV renders leaderboard rows as CSV string.
func RenderLeaderboardCSV(rows []LeaderboardRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"rank", "wallet_id", "score", "closed_trades", "win_rate", "realized_pnl",
		"avg_pnl_pct", "max_drawdown_pct", "max_consecutive_losses", "pre_history_lots", "computed_at",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Rank),
			r.WalletID,
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			strconv.Itoa(r.ClosedTrades),
			optFloat(r.WinRate),
			formatFloat(r.RealizedPnL),
			optFloat(r.AvgPnLPct),
			optFloat(r.MaxDrawdownPct),
			strconv.Itoa(r.MaxConsecutiveLosses),
			strconv.Itoa(r.PreHistoryLots),
			strconv.FormatInt(r.ComputedAt, 10),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
