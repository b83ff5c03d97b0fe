package ledger

import (
	"github.com/shopspring/decimal"

	"solana-wallet-ledger/internal/domain"
)

// lot is an open lot carried with exact arithmetic.
type lot struct {
	seq        int64
	remaining  decimal.Decimal
	unitCost   decimal.Decimal
	entryTime  int64
	buyTradeID string
	valuation  domain.ValuationKind
}

// book is the FIFO queue and sequence counters for one asset.
// It is owned by a single matching call and never shared.
type book struct {
	assetID       string
	lots          []*lot
	nextSequence  int64 // next closed lot sequence
	nextLotSeq    int64
	lastTradeTime int64
}

func newBook(assetID string) *book {
	return &book{assetID: assetID, nextSequence: 1, nextLotSeq: 1}
}

func (b *book) push(l *lot) {
	l.seq = b.nextLotSeq
	b.nextLotSeq++
	b.lots = append(b.lots, l)
}

func (b *book) empty() bool {
	return len(b.lots) == 0
}

func (b *book) front() *lot {
	return b.lots[0]
}

func (b *book) popFront() {
	b.lots[0] = nil
	b.lots = b.lots[1:]
}

func (b *book) takeSequence() int64 {
	seq := b.nextSequence
	b.nextSequence++
	return seq
}

// position renders the residual queue. Returns nil for an empty book.
func (b *book) position(walletID string) *domain.OpenPosition {
	if b.empty() {
		return nil
	}

	qty := decimal.Zero
	cost := decimal.Zero
	lots := make([]domain.OpenLot, 0, len(b.lots))
	for _, l := range b.lots {
		qty = qty.Add(l.remaining)
		cost = cost.Add(l.remaining.Mul(l.unitCost))
		lots = append(lots, l.openLot(b.assetID))
	}

	pos := &domain.OpenPosition{
		WalletID:      walletID,
		AssetID:       b.assetID,
		Lots:          lots,
		Quantity:      qty.InexactFloat64(),
		CostBasis:     cost.InexactFloat64(),
		LastTradeTime: b.lastTradeTime,
	}
	if qty.IsPositive() {
		pos.AvgUnitCost = cost.Div(qty).InexactFloat64()
	}
	return pos
}

func (l *lot) openLot(assetID string) domain.OpenLot {
	return domain.OpenLot{
		AssetID:     assetID,
		LotSequence: l.seq,
		Remaining:   l.remaining.InexactFloat64(),
		UnitCost:    l.unitCost.InexactFloat64(),
		EntryTime:   l.entryTime,
		BuyTradeID:  l.buyTradeID,
		Valuation:   l.valuation,
	}
}

// quantize rounds d to the nearest float64 so that a rebuild from stored
// float64 amounts produces identical decimals.
func quantize(d decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(d.InexactFloat64())
}
