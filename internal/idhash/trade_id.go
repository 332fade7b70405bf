// Package idhash derives deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputeTradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(bot_id|tx_hash), with the hash upper-cased first since the
// ledger treats transaction hashes case-insensitively.
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(botID, txHash string) string {
	data := botID + "|" + strings.ToUpper(txHash)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
