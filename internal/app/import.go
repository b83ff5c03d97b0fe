package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/pubkey"
	"solana-wallet-ledger/internal/storage"
)

// importBatchSize bounds one InsertBulk call.
const importBatchSize = 1000

// ImportTrades reads trades as a JSON array or JSON lines and inserts them
// in batches. Wallet addresses must decode as Solana public keys.
func ImportTrades(ctx context.Context, store storage.TradeStore, r io.Reader) (int, error) {
	trades, err := decodeRecords[domain.Trade](r)
	if err != nil {
		return 0, err
	}
	for i, t := range trades {
		if err := pubkey.Validate(t.WalletID); err != nil {
			return 0, fmt.Errorf("trade %d (%s): %w", i, t.ID, err)
		}
	}
	return insertBatches(ctx, trades, store.InsertBulk)
}

// ImportPrices reads price points as a JSON array or JSON lines.
func ImportPrices(ctx context.Context, store storage.PriceTimeseriesStore, r io.Reader) (int, error) {
	points, err := decodeRecords[domain.PriceTimeseriesPoint](r)
	if err != nil {
		return 0, err
	}
	return insertBatches(ctx, points, store.InsertBulk)
}

func insertBatches[T any](ctx context.Context, records []*T, insert func(context.Context, []*T) error) (int, error) {
	n := 0
	for start := 0; start < len(records); start += importBatchSize {
		end := min(start+importBatchSize, len(records))
		if err := insert(ctx, records[start:end]); err != nil {
			return n, fmt.Errorf("insert records %d-%d: %w", start, end-1, err)
		}
		n += end - start
	}
	return n, nil
}

// decodeRecords accepts `[{...}, ...]` or one object per line.
func decodeRecords[T any](r io.Reader) ([]*T, error) {
	br := bufio.NewReader(r)
	head, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if head == '[' {
		var out []*T
		if err := json.NewDecoder(br).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return out, nil
	}

	var out []*T
	dec := json.NewDecoder(br)
	for line := 1; ; line++ {
		var rec T
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", line, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// Seed imports optional trade and price files into deps. Empty paths are
// skipped.
func Seed(ctx context.Context, deps *Dependencies, tradesFile, pricesFile string, logger *log.Logger) error {
	if tradesFile != "" {
		n, err := importFile(tradesFile, func(r io.Reader) (int, error) {
			return ImportTrades(ctx, deps.Trades, r)
		})
		if err != nil {
			return err
		}
		logger.Printf("Imported %d trades from %s", n, tradesFile)
	}
	if pricesFile != "" {
		if deps.Prices == nil {
			return fmt.Errorf("prices file given but no price store is configured")
		}
		n, err := importFile(pricesFile, func(r io.Reader) (int, error) {
			return ImportPrices(ctx, deps.Prices, r)
		})
		if err != nil {
			return err
		}
		logger.Printf("Imported %d price points from %s", n, pricesFile)
	}
	return nil
}

func importFile(path string, fn func(io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := fn(f)
	if err != nil {
		return n, fmt.Errorf("import %s: %w", path, err)
	}
	return n, nil
}
