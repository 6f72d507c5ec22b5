// Package auth provides authentication primitives for the platform, including API key generation and JWT creation/verification.
// Two authentication methods are supported: JWTs (issued on login, stateless verification) and API keys (long-lived tokens matched exactly against the key store).
// See internal/middleware/auth.go for the request-time authentication logic that uses these primitives.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultAPIKeyLength is the random-part size in bytes used when the
	// configured length is missing or invalid
	DefaultAPIKeyLength = 32

	// maskVisibleChars is how many trailing characters a masked key reveals
	maskVisibleChars = 4
)

// GenerateAPIKey creates a new random API key with the given prefix and
// length random bytes (auth.api_keys.length in the configuration).
// The full key is shown to the caller exactly once; afterwards only the
// masked form from MaskAPIKey appears in API responses.
func GenerateAPIKey(prefix string, length int) (string, error) {
	if length < 1 {
		length = DefaultAPIKeyLength
	}
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Encode to base64 (URL-safe), prepend the recognisable prefix
	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)
	return prefix + randomPart, nil
}

// MaskAPIKey returns a display form of a key that keeps the prefix and the
// last few characters visible (e.g. "cdp_****wxyz"). Keys too short to mask
// meaningfully are fully redacted.
func MaskAPIKey(key, prefix string) string {
	if !strings.HasPrefix(key, prefix) || len(key) < len(prefix)+maskVisibleChars*2 {
		return "****"
	}
	return prefix + "****" + key[len(key)-maskVisibleChars:]
}

// ExtractAPIKeyFromHeader extracts the API key from an Authorization header
// Expected format: "Bearer cdp_abc123xyz..."
func ExtractAPIKeyFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	// Check if it starts with "Bearer "
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	// Extract the key (remove "Bearer " prefix)
	key := strings.TrimPrefix(header, "Bearer ")
	key = strings.TrimSpace(key)

	if key == "" {
		return "", errors.New("API key is empty after Bearer prefix")
	}

	return key, nil
}
