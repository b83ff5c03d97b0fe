package verification

import (
	"context"
	"fmt"
	"sort"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/ledger"
	"solana-wallet-ledger/internal/storage"
)

// LedgerVerifier implements Verifier by rebuilding with the matching engine.
type LedgerVerifier struct {
	engine  *ledger.Engine
	trades  storage.TradeStore
	ledgers storage.LedgerStore
	opts    ledger.Options
}

// LedgerVerifierOptions contains configuration for creating a LedgerVerifier.
type LedgerVerifierOptions struct {
	Engine      *ledger.Engine
	TradeStore  storage.TradeStore // wallet discovery for VerifyAll
	LedgerStore storage.LedgerStore
	// LedgerOptions must match the options the passes ran with.
	LedgerOptions ledger.Options
}

// NewLedgerVerifier creates a new LedgerVerifier.
func NewLedgerVerifier(opts LedgerVerifierOptions) *LedgerVerifier {
	return &LedgerVerifier{
		engine:  opts.Engine,
		trades:  opts.TradeStore,
		ledgers: opts.LedgerStore,
		opts:    opts.LedgerOptions,
	}
}

var _ Verifier = (*LedgerVerifier)(nil)

// VerifyWallet rebuilds walletID and compares it with the stored state.
func (v *LedgerVerifier) VerifyWallet(ctx context.Context, walletID string) (*WalletResult, error) {
	// 1. Rebuild
	rebuilt, err := v.engine.ProcessTrades(ctx, walletID, v.opts)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", walletID, err)
	}

	// 2. Load stored state
	storedLots, err := v.ledgers.GetClosedLots(ctx, walletID, storage.ClosedLotFilter{})
	if err != nil {
		return nil, fmt.Errorf("load closed lots: %w", err)
	}
	storedPositions, err := v.ledgers.GetOpenPositions(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}

	// 3. Compare
	result := &WalletResult{
		WalletID:    walletID,
		StoredLots:  len(storedLots),
		RebuiltLots: len(rebuilt.ClosedLots),
	}
	compareLots(result, storedLots, rebuilt.ClosedLots)
	comparePositions(result, storedPositions, rebuilt.OpenPositions)

	result.Match = len(result.Missing) == 0 && len(result.Extra) == 0 &&
		len(result.Divergent) == 0 && len(result.Positions) == 0
	return result, nil
}

// VerifyAll verifies every wallet known to the trade store. A wallet that
// fails to verify is recorded as divergent with its error.
func (v *LedgerVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	wallets, err := v.trades.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	report := &VerificationReport{
		TotalWallets: len(wallets),
		Results:      make([]WalletResult, 0, len(wallets)),
	}

	for _, walletID := range wallets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.VerifyWallet(ctx, walletID)
		if err != nil {
			report.Results = append(report.Results, WalletResult{WalletID: walletID, Err: err})
			report.DivergentWallets++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedWallets++
		} else {
			report.DivergentWallets++
		}
	}

	return report, nil
}

func compareLots(result *WalletResult, stored, rebuilt []*domain.ClosedLot) {
	byKey := make(map[LotKey]*domain.ClosedLot, len(stored))
	for _, l := range stored {
		byKey[LotKey{l.AssetID, l.Sequence}] = l
	}

	for _, r := range rebuilt {
		key := LotKey{r.AssetID, r.Sequence}
		s, ok := byKey[key]
		if !ok {
			result.Missing = append(result.Missing, key)
			continue
		}
		delete(byKey, key)
		if d := CompareClosedLots(s, r); len(d) > 0 {
			result.Divergent = append(result.Divergent, LotDivergence{Key: key, Divergences: d})
		}
	}

	for key := range byKey {
		result.Extra = append(result.Extra, key)
	}
	sortKeys(result.Missing)
	sortKeys(result.Extra)
}

func comparePositions(result *WalletResult, stored, rebuilt []*domain.OpenPosition) {
	byAsset := make(map[string]*domain.OpenPosition, len(stored))
	for _, p := range stored {
		byAsset[p.AssetID] = p
	}

	empty := &domain.OpenPosition{}
	for _, r := range rebuilt {
		s, ok := byAsset[r.AssetID]
		if !ok {
			s = empty
		}
		delete(byAsset, r.AssetID)
		if d := CompareOpenPositions(s, r); len(d) > 0 {
			result.Positions = append(result.Positions, LotDivergence{Key: LotKey{AssetID: r.AssetID}, Divergences: d})
		}
	}
	for _, s := range byAsset {
		result.Positions = append(result.Positions, LotDivergence{
			Key:         LotKey{AssetID: s.AssetID},
			Divergences: CompareOpenPositions(s, empty),
		})
	}
	sort.Slice(result.Positions, func(i, j int) bool {
		return result.Positions[i].Key.AssetID < result.Positions[j].Key.AssetID
	})
}

func sortKeys(keys []LotKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AssetID != keys[j].AssetID {
			return keys[i].AssetID < keys[j].AssetID
		}
		return keys[i].Sequence < keys[j].Sequence
	})
}
