package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"solana-wallet-ledger/internal/domain"
)

// archivePrefix is the key prefix for ledger archives.
const archivePrefix = "ledger"

// LedgerArchive is the JSON document stored per committed pass.
type LedgerArchive struct {
	WalletID   string              `json:"walletId"`
	ComputedAt int64               `json:"computedAt"`
	LotCount   int                 `json:"lotCount"`
	ClosedLots []*domain.ClosedLot `json:"closedLots"`
}

// Archiver writes the closed lots of every committed pass to the bucket.
// It implements orchestrator.Archiver.
type Archiver struct {
	client *Client
}

// NewArchiver creates an Archiver on top of c.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{client: c}
}

// ArchiveKey returns the object key for a wallet pass:
// ledger/<wallet>/<computedAt>.json
func ArchiveKey(walletID string, computedAt int64) string {
	return path.Join(archivePrefix, walletID, strconv.FormatInt(computedAt, 10)+".json")
}

// ArchiveLedger uploads lots as a single JSON object.
func (a *Archiver) ArchiveLedger(ctx context.Context, walletID string, computedAt int64, lots []*domain.ClosedLot) error {
	if walletID == "" {
		return fmt.Errorf("s3blob: wallet id is required")
	}
	if lots == nil {
		lots = []*domain.ClosedLot{}
	}

	body, err := json.Marshal(LedgerArchive{
		WalletID:   walletID,
		ComputedAt: computedAt,
		LotCount:   len(lots),
		ClosedLots: lots,
	})
	if err != nil {
		return fmt.Errorf("s3blob: marshal ledger %s: %w", walletID, err)
	}

	key := ArchiveKey(walletID, computedAt)
	_, err = a.client.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.client.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}
