package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Requirement: bcrypt digests from the previous deployment keep verifying.
func TestBcrypt_Verify(t *testing.T) {
	// Arrange
	b := NewBcrypt(bcrypt.MinCost)
	hash, err := b.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name    string
		attempt string
		hash    string
		wantOk  bool
		wantErr error
	}{
		{name: "match", attempt: "pw1", hash: hash, wantOk: true},
		{name: "mismatch", attempt: "pw1x", hash: hash, wantOk: false},
		{name: "malformed", attempt: "pw1", hash: "$2a$short", wantErr: ErrMalformedDigest},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			ok, err := b.Verify(test.attempt, test.hash)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != test.wantOk {
				t.Errorf("Verify() = %v, want %v", ok, test.wantOk)
			}
		})
	}
}

func TestNewBcrypt_CostOutOfRange(t *testing.T) {
	if got := NewBcrypt(99).Cost; got != bcrypt.DefaultCost {
		t.Errorf("NewBcrypt(99).Cost = %d, want %d", got, bcrypt.DefaultCost)
	}
}

// Requirement: Multi hashes with the primary hasher and verifies by digest prefix.
func TestMulti_HashAndVerify(t *testing.T) {
	// Arrange
	legacy := NewBcrypt(bcrypt.MinCost)
	multi := NewMulti(testArgon2(), legacy)

	legacyHash, err := legacy.Hash("old-secret")
	if err != nil {
		t.Fatalf("legacy Hash() error = %v", err)
	}

	// Act
	newHash, err := multi.Hash("new-secret")

	// Assert
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(newHash, argon2idPrefix) {
		t.Errorf("Hash() = %q, want argon2id digest", newHash)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		wantOk   bool
		wantErr  bool
	}{
		{name: "primary match", password: "new-secret", hash: newHash, wantOk: true},
		{name: "primary mismatch", password: "nope", hash: newHash, wantOk: false},
		{name: "legacy match", password: "old-secret", hash: legacyHash, wantOk: true},
		{name: "legacy mismatch", password: "nope", hash: legacyHash, wantOk: false},
		{name: "unknown scheme", password: "x", hash: "plain-text", wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			ok, err := multi.Verify(test.password, test.hash)
			if test.wantErr {
				if !errors.Is(err, ErrMalformedDigest) {
					t.Fatalf("Verify() error = %v, want ErrMalformedDigest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != test.wantOk {
				t.Errorf("Verify() = %v, want %v", ok, test.wantOk)
			}
		})
	}
}
