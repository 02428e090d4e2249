package vault

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// signingKeyLen is the raw secp256k1 private key size
const signingKeyLen = 32

// deriveAddress computes the Ethereum-style address for a signing key:
// the last 20 bytes of Keccak-256 over the uncompressed public key,
// EIP-55 checksummed.
func deriveAddress(priv *secp256k1.PrivateKey) string {
	pub := priv.PubKey().SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)

	return checksumAddress(sum[12:])
}

// checksumAddress renders a 20-byte address as 0x-prefixed hex with EIP-55
// mixed-case checksumming.
func checksumAddress(addr []byte) string {
	hexAddr := hex.EncodeToString(addr)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexAddr))
	hash := h.Sum(nil)

	out := make([]byte, len(hexAddr))
	for i := 0; i < len(hexAddr); i++ {
		c := hexAddr[i]
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			} else {
				nibble &= 0x0f
			}
			if nibble >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}

	return "0x" + string(out)
}

// parseSigningKey validates raw private key material and returns the key.
// Rejects wrong lengths, zero, and scalars outside the curve order.
func parseSigningKey(raw []byte) (*secp256k1.PrivateKey, error) {
	if len(raw) != signingKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, signingKeyLen, len(raw))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow {
		return nil, fmt.Errorf("%w: scalar exceeds curve order", ErrInvalidKey)
	}
	if scalar.IsZero() {
		scalar.Zero()
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidKey)
	}

	priv := secp256k1.NewPrivateKey(&scalar)
	scalar.Zero()
	return priv, nil
}
