package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-wallet-ledger/internal/domain"
)

// ComputeCorrectionID computes a deterministic correction id using SHA256.
// Formula: SHA256(trade_id|from_side|to_side|applied_at)
// Returns hex-encoded hash (64 characters).
func ComputeCorrectionID(
	tradeID string,
	fromSide domain.Side,
	toSide domain.Side,
	appliedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		tradeID,
		string(fromSide),
		string(toSide),
		appliedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
