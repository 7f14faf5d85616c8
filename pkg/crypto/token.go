package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

const (
	DefaultTokenLength = 32 // 256 bits
)

type TokenPair struct {
	Token string // value returned to client
	Hash  string // value in storage
}

// NewSessionToken returns a random session token and its storage hash.
// The token carries no information about the identity it is bound to.
func NewSessionToken() (*TokenPair, error) {
	return NewTokenPair(DefaultTokenLength)
}

// NewTokenPair generates byteLength random bytes, encodes them URL-safe and
// pairs the result with its sha256 hash. Non-positive lengths use the default.
func NewTokenPair(byteLength int) (*TokenPair, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	token := base64.RawURLEncoding.EncodeToString(raw)

	return &TokenPair{
		Token: token,
		Hash:  HashToken(token),
	}, nil
}

// VerifyToken reports whether token hashes to storedHash
func VerifyToken(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
