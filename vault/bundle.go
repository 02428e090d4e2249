package vault

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BundleVersion is the current bundle format. Version 1 was the retired
// unauthenticated format; bundles carrying it (or anything else unknown)
// are rejected at decode time rather than silently coerced.
const BundleVersion = 2

// EncryptedKeyBundle is the only artifact the vault persists: the wrapped
// signing key plus everything needed to unwrap it again, and the derived
// address in the clear as an integrity check. The PIN and the wrapping key
// are never part of it.
type EncryptedKeyBundle struct {
	Version    int    `cbor:"version"`
	Salt       []byte `cbor:"salt"`
	IV         []byte `cbor:"iv"`
	Ciphertext []byte `cbor:"ciphertext"`
	Tag        []byte `cbor:"tag"`
	Address    string `cbor:"address"`
}

// encodeBundle serializes a bundle to its CBOR storage form
func encodeBundle(b *EncryptedKeyBundle) ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle: %w", err)
	}
	return data, nil
}

// decodeBundle parses and validates a stored bundle blob
func decodeBundle(data []byte) (*EncryptedKeyBundle, error) {
	var b EncryptedKeyBundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: undecodable bundle: %v", ErrDataCorruption, err)
	}

	if b.Version != BundleVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, b.Version)
	}

	if len(b.Salt) == 0 || len(b.IV) != ivLen || len(b.Ciphertext) == 0 ||
		len(b.Tag) != tagLen || b.Address == "" {
		return nil, fmt.Errorf("%w: incomplete bundle", ErrDataCorruption)
	}

	return &b, nil
}
