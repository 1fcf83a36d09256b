package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// refreshHashPrefix marks digests produced for refresh token storage,
// keeping them distinguishable from other sha256 uses in the database.
const refreshHashPrefix = "rt1_"

// HashRefreshToken produces the stored form of a raw refresh token.
func HashRefreshToken(raw string) string {
	return refreshHashPrefix + digest(raw)
}

// HashResetToken produces the stored digest of a raw password reset
// token. The raw value itself is never persisted.
func HashResetToken(raw string) string {
	return digest(raw)
}

func digest(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
