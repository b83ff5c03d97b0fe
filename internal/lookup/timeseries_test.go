package lookup

import (
	"errors"
	"testing"

	"solana-wallet-ledger/internal/domain"
)

func samplePrices() []*domain.PriceTimeseriesPoint {
	return []*domain.PriceTimeseriesPoint{
		{TimestampMs: 1000, Price: 1.0},
		{TimestampMs: 2000, Price: 2.0},
		{TimestampMs: 3000, Price: 3.0},
	}
}

func TestPriceAt_EmptySlice(t *testing.T) {
	_, err := PriceAt(1000, nil)
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
	if !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Errorf("expected ErrNoPriceData to match ErrPriceUnavailable")
	}
}

func TestPriceAt_ExactMatch(t *testing.T) {
	price, err := PriceAt(2000, samplePrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 2.0 {
		t.Errorf("expected 2.0, got %f", price)
	}
}

func TestPriceAt_BeforeTarget(t *testing.T) {
	// Target 2500 should return price at 2000
	price, err := PriceAt(2500, samplePrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 2.0 {
		t.Errorf("expected 2.0, got %f", price)
	}
}

func TestPriceAt_BeforeFirst(t *testing.T) {
	// Target 500 precedes every point: no look-ahead
	_, err := PriceAt(500, samplePrices())
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestPriceAt_AfterLast(t *testing.T) {
	price, err := PriceAt(5000, samplePrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 3.0 {
		t.Errorf("expected 3.0, got %f", price)
	}
}

func TestPriceAt_SkipsNonPositive(t *testing.T) {
	prices := samplePrices()
	prices = append(prices, &domain.PriceTimeseriesPoint{TimestampMs: 4000, Price: 0})

	price, err := PriceAt(4500, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 3.0 {
		t.Errorf("expected 3.0, got %f", price)
	}
}

func TestPointAt(t *testing.T) {
	p, err := PointAt(2999, samplePrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TimestampMs != 2000 {
		t.Errorf("expected point at 2000, got %d", p.TimestampMs)
	}

	if _, err := PointAt(999, samplePrices()); err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}
