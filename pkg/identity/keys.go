package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// keyPrefix marks gateway-issued API keys.
const keyPrefix = "mg-"

// NewAPIKey generates a new API key: the "mg-" prefix followed by 48 hex
// characters from 24 cryptographically random bytes.
func NewAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return keyPrefix + hex.EncodeToString(b), nil
}
