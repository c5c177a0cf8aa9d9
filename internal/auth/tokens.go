package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// TokenPrefix marks every bearer token ring issues, so a leaked token is
// recognizable in logs and secret scanners.
const TokenPrefix = "ring_"

// tokenEntropyBytes is the random payload behind the prefix.
const tokenEntropyBytes = 32

// GenerateToken mints a bearer token. The plaintext is returned exactly
// once, at login; everything else in the system (store, middleware lookup)
// only ever sees the SHA-256 digest.
func GenerateToken() (plaintext string, hash string, err error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plaintext = TokenPrefix + base64.RawURLEncoding.EncodeToString(raw)
	return plaintext, HashToken(plaintext), nil
}

// HashToken digests a plaintext token into the hex form the store indexes.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ExtractBearerToken pulls the token out of an Authorization header value,
// or returns "" when the header is missing the Bearer scheme.
func ExtractBearerToken(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
