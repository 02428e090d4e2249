package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. The iteration count is sized so that an
// attacker holding a stolen bundle pays roughly a tenth of a second per
// guess against the 10^6 PIN space.
const (
	// DefaultKDFIterations is the PBKDF2-HMAC-SHA256 iteration count.
	DefaultKDFIterations = 262144

	// DefaultPINLength is the required number of PIN digits.
	DefaultPINLength = 6

	// DefaultBundleKey is the storage record the bundle persists under.
	DefaultBundleKey = "everkeep/vault/bundle"

	// wrappingKeyLen is the derived key size: a 32-byte AES-256 key
	// followed by a 32-byte HMAC key.
	wrappingKeyLen = 64

	saltLen = 16
)

// deriveWrappingKey derives a wrapping key from a PIN and salt using
// PBKDF2-HMAC-SHA256. Deterministic: the same inputs always yield the same
// key, which is what makes unlock possible.
func deriveWrappingKey(pin, salt []byte, iterations, keyLen int) ([]byte, error) {
	if len(pin) == 0 {
		return nil, fmt.Errorf("pin must not be empty")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive")
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("key length must be positive")
	}

	return pbkdf2.Key(pin, salt, iterations, keyLen, sha256.New), nil
}

// validatePIN enforces the PIN format policy: exactly length ASCII digits.
// A product policy, not a cryptographic requirement.
func validatePIN(pin []byte, length int) error {
	if len(pin) != length {
		return ErrInvalidPIN
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// randomBytes returns n cryptographically random bytes
func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// zeroBytes overwrites a buffer holding sensitive material.
// SECURITY: call via defer on every path that handled key or PIN bytes.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
