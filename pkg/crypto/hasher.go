package crypto

import (
	"errors"
)

// ErrMalformedDigest is returned by Verify when the stored digest was not
// produced by the hasher asked to check it.
var ErrMalformedDigest = errors.New("malformed password digest")

type PasswordHandler interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// DigestMatcher is implemented by hashers that can recognise their own digests
type DigestMatcher interface {
	PasswordHandler
	Handles(hash string) bool
}

var _ PasswordHandler = (*Multi)(nil)

// Multi hashes with Primary and verifies with whichever hasher recognises
// the digest. Legacy hashers are only ever used for verification.
type Multi struct {
	Primary DigestMatcher
	Legacy  []DigestMatcher
}

func NewMulti(primary DigestMatcher, legacy ...DigestMatcher) *Multi {
	return &Multi{Primary: primary, Legacy: legacy}
}

func (m *Multi) Hash(password string) (string, error) {
	return m.Primary.Hash(password)
}

func (m *Multi) Verify(password, hash string) (bool, error) {
	if m.Primary.Handles(hash) {
		return m.Primary.Verify(password, hash)
	}
	for _, h := range m.Legacy {
		if h.Handles(hash) {
			return h.Verify(password, hash)
		}
	}
	return false, ErrMalformedDigest
}
