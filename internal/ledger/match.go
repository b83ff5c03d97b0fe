// Package ledger implements FIFO lot matching over a wallet's trade log.
//
// Matching is a pure function of its input: every call owns its queues,
// so wallets can be processed in parallel without shared state.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/idhash"
)

// Options narrows a matching pass.
type Options struct {
	// AssetID restricts matching to one asset. Empty = all assets.
	AssetID string
	// TrackingStart discards trades strictly before it.
	TrackingStart *int64
}

// Result is the output of a matching pass.
type Result struct {
	WalletID string

	// ClosedLots are in the chronological order of their sell trades.
	ClosedLots []*domain.ClosedLot

	// OpenPositions holds one entry per asset with remaining quantity,
	// sorted by asset id.
	OpenPositions []*domain.OpenPosition

	Rejected []*domain.ValidationError
	Warnings []domain.InsufficientHistory

	TradesMatched int // accepted buys and sells
	VoidTrades    int
}

// Match runs FIFO matching over a wallet's full trade log from an empty
// state. There is no incremental mode: callers rebuild from the whole log
// and replace the stored ledger. Malformed trades are rejected
// individually; Match never fails as a whole.
func Match(walletID string, trades []*domain.Trade, opts Options) *Result {
	m := newMatcher(walletID)
	m.run(trades, opts)
	return m.result()
}

type matcher struct {
	walletID string
	books    map[string]*book
	res      *Result
}

func newMatcher(walletID string) *matcher {
	return &matcher{
		walletID: walletID,
		books:    make(map[string]*book),
		res:      &Result{WalletID: walletID},
	}
}

func (m *matcher) book(assetID string) *book {
	b, ok := m.books[assetID]
	if !ok {
		b = newBook(assetID)
		m.books[assetID] = b
	}
	return b
}

func (m *matcher) run(trades []*domain.Trade, opts Options) {
	sorted := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t != nil {
			sorted = append(sorted, t)
		}
	}
	SortTrades(sorted)

	for _, t := range sorted {
		if opts.AssetID != "" && t.AssetID != opts.AssetID {
			continue
		}
		if opts.TrackingStart != nil && t.Timestamp < *opts.TrackingStart {
			continue
		}
		if t.Side == domain.SideVoid {
			m.res.VoidTrades++
			continue
		}
		if verr := ValidateTrade(m.walletID, t); verr != nil {
			m.res.Rejected = append(m.res.Rejected, verr)
			continue
		}

		m.res.TradesMatched++
		switch t.Side {
		case domain.SideBuy:
			m.buy(t)
		case domain.SideSell:
			m.sell(t)
		}
	}
}

func (m *matcher) buy(t *domain.Trade) {
	qty := decimal.NewFromFloat(t.TokenAmount)

	var unitCost decimal.Decimal
	if t.Price > 0 {
		unitCost = decimal.NewFromFloat(t.Price)
	} else {
		unitCost = quantize(decimal.NewFromFloat(t.BaseAmount).Div(qty))
	}

	b := m.book(t.AssetID)
	b.push(&lot{
		remaining:  qty,
		unitCost:   unitCost,
		entryTime:  t.Timestamp,
		buyTradeID: t.ID,
		valuation:  t.Provenance.Kind.Normalize(),
	})
	b.lastTradeTime = t.Timestamp
}

func (m *matcher) sell(t *domain.Trade) {
	qty := decimal.NewFromFloat(t.TokenAmount)

	// Total proceeds: recorded base amount, else quantity x price.
	var total decimal.Decimal
	if t.BaseAmount > 0 {
		total = decimal.NewFromFloat(t.BaseAmount)
	} else {
		total = qty.Mul(decimal.NewFromFloat(t.Price))
	}

	exitPrice := t.Price
	if exitPrice <= 0 {
		exitPrice = total.Div(qty).InexactFloat64()
	}

	b := m.book(t.AssetID)
	b.lastTradeTime = t.Timestamp

	remaining := qty
	allocated := decimal.Zero
	for remaining.IsPositive() && !b.empty() {
		front := b.front()
		take := decimal.Min(remaining, front.remaining)
		remaining = remaining.Sub(take)
		front.remaining = quantize(front.remaining.Sub(take))

		// The slice that completes the sell takes the remainder so that
		// slice proceeds sum exactly to the sell's proceeds.
		var proceeds decimal.Decimal
		if remaining.IsZero() {
			proceeds = total.Sub(allocated)
		} else {
			proceeds = total.Mul(take).Div(qty)
		}
		allocated = allocated.Add(proceeds)

		m.emitMatched(b, t, front, take, proceeds, exitPrice)

		if !front.remaining.IsPositive() {
			b.popFront()
		}
	}

	if remaining.IsPositive() {
		proceeds := total.Sub(allocated)
		m.emitPreHistory(b, t, remaining, proceeds, exitPrice)
		m.res.Warnings = append(m.res.Warnings, domain.InsufficientHistory{
			WalletID:          m.walletID,
			AssetID:           t.AssetID,
			SellTradeID:       t.ID,
			Timestamp:         t.Timestamp,
			UnmatchedQuantity: remaining.InexactFloat64(),
		})
	}
}

func (m *matcher) emitMatched(b *book, t *domain.Trade, l *lot, take, proceeds decimal.Decimal, exitPrice float64) {
	cost := take.Mul(l.unitCost)
	pnl := proceeds.Sub(cost)
	seq := b.takeSequence()

	entryPrice := l.unitCost.InexactFloat64()
	entryTime := l.entryTime
	hold := t.Timestamp - l.entryTime
	buyTradeID := l.buyTradeID
	costBasis := cost.InexactFloat64()

	cl := &domain.ClosedLot{
		ID:             idhash.ComputeClosedLotID(m.walletID, b.assetID, seq),
		WalletID:       m.walletID,
		AssetID:        b.assetID,
		Sequence:       seq,
		Quantity:       take.InexactFloat64(),
		EntryPrice:     &entryPrice,
		EntryTime:      &entryTime,
		ExitPrice:      exitPrice,
		ExitTime:       t.Timestamp,
		CostBasis:      &costBasis,
		Proceeds:       proceeds.InexactFloat64(),
		RealizedPnL:    pnl.InexactFloat64(),
		HoldDurationMs: &hold,
		BuyTradeID:     &buyTradeID,
		SellTradeID:    t.ID,
		EntryValuation: l.valuation,
		ExitValuation:  t.Provenance.Kind.Normalize(),
	}
	if cost.IsPositive() {
		pct := pnl.Div(cost).Mul(decimal.NewFromInt(100)).InexactFloat64()
		cl.RealizedPnLPct = &pct
	}
	m.res.ClosedLots = append(m.res.ClosedLots, cl)
}

// emitPreHistory records sell quantity with no known buy. Cost basis stays
// unknown and realized PnL equals proceeds, a lower bound.
func (m *matcher) emitPreHistory(b *book, t *domain.Trade, qty, proceeds decimal.Decimal, exitPrice float64) {
	seq := b.takeSequence()
	m.res.ClosedLots = append(m.res.ClosedLots, &domain.ClosedLot{
		ID:            idhash.ComputeClosedLotID(m.walletID, b.assetID, seq),
		WalletID:      m.walletID,
		AssetID:       b.assetID,
		Sequence:      seq,
		Quantity:      qty.InexactFloat64(),
		ExitPrice:     exitPrice,
		ExitTime:      t.Timestamp,
		Proceeds:      proceeds.InexactFloat64(),
		RealizedPnL:   proceeds.InexactFloat64(),
		SellTradeID:   t.ID,
		IsPreHistory:  true,
		ExitValuation: t.Provenance.Kind.Normalize(),
	})
}

func (m *matcher) result() *Result {
	assets := make([]string, 0, len(m.books))
	for assetID := range m.books {
		assets = append(assets, assetID)
	}
	sort.Strings(assets)

	for _, assetID := range assets {
		if pos := m.books[assetID].position(m.walletID); pos != nil {
			m.res.OpenPositions = append(m.res.OpenPositions, pos)
		}
	}
	return m.res
}
