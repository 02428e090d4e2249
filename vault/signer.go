package vault

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signer is the handle Unlock hands to the transaction layer. It signs one
// digest at a time with the in-memory signing key and stops working the
// moment the vault locks - callers never see raw key bytes and cannot
// retain signing ability past the session.
type Signer struct {
	svc     *Service
	address string
	epoch   uint64
}

// Address returns the checksummed address of the signing key
func (s *Signer) Address() string {
	return s.address
}

// SignDigest signs a 32-byte digest and returns a 65-byte [R || S || V]
// recoverable signature. Fails with ErrVaultLocked once the vault has
// locked or re-unlocked since this handle was issued.
func (s *Signer) SignDigest(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	s.svc.mu.Lock()
	defer s.svc.mu.Unlock()

	if s.svc.state != StateUnlocked || s.svc.unlockEpoch != s.epoch {
		return nil, ErrVaultLocked
	}

	// SignCompact yields [header || R || S]; rearrange to the
	// Ethereum-style [R || S || V] layout with V in {0, 1}.
	compact := ecdsa.SignCompact(s.svc.signingKey, digest, false)
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27

	return sig, nil
}
