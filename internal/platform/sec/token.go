// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns byteLength random bytes, hex encoded.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the SHA-256 hex digest of a bearer secret.
// Only digests of refresh, reset and verification tokens are persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
