package platform

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const (
	apiKeyPrefix       = "sl_"
	apiKeySecretLength = 40
	// APIKeyDisplayLength is how many leading characters of a key are stored
	// in clear text so operators can recognise it.
	APIKeyDisplayLength = 11
)

// NewID returns a random UUID string.
func NewID() string {
	return uuid.New().String()
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]%byte(len(tokenAlphabet))]
	}
	return string(b)
}

// NewAPIKey generates a plaintext API key. Only its hash is ever stored.
func NewAPIKey() string {
	return apiKeyPrefix + randomToken(apiKeySecretLength)
}

// HashAPIKey returns the hex sha256 of a plaintext key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyPrefix returns the displayable head of a key.
func APIKeyPrefix(key string) string {
	if len(key) <= APIKeyDisplayLength {
		return key
	}
	return key[:APIKeyDisplayLength]
}
