package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic trade-event ID using SHA256.
// Formula: SHA256(token_id|user_id|amount|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(tokenID, userID string, amount float64, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%.12f|%d", tokenID, userID, amount, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
