package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeClosedLotID computes a deterministic closed lot id using SHA256.
// Formula: SHA256(wallet_id|asset_id|sequence)
// Returns hex-encoded hash (64 characters).
func ComputeClosedLotID(
	walletID string,
	assetID string,
	sequence int64,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		walletID,
		assetID,
		sequence,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
