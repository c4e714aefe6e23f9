package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// CodeDigits is the length of a one-time code.
	CodeDigits = 6

	// DefaultTokenBytes is the entropy of approval and verification tokens.
	DefaultTokenBytes = 24
)

var codeSpace = big.NewInt(1_000_000)

// GenerateNumericCode returns a uniformly random 6-digit code.
// Leading zeros are preserved.
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}

// GenerateOpaqueToken returns byteLength random bytes, hex encoded.
func GenerateOpaqueToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenBytes
	}
	b := make([]byte, byteLength)
	if _, err := randomBytes(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken digests a high-entropy token for storage.
// Tokens are never persisted in plaintext.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawStdEncoding.EncodeToString(sum[:])
}

// TokenMatches reports whether token digests to the stored value.
func TokenMatches(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	return constantTimeCompare([]byte(HashToken(token)), []byte(digest))
}

func randomBytes(b []byte) (int, error) {
	return rand.Read(b)
}

func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
