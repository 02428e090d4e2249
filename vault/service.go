// Package vault implements the local key vault: it derives a wrapping key
// from the user's PIN, wraps and unwraps the device signing key with it,
// persists the encrypted bundle through a secure-storage adapter, and holds
// the unwrapped key in memory only while the vault is unlocked.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/rs/zerolog/log"

	"github.com/everkeep/keyvault/storage"
)

// State is the vault session state. It lives only in memory.
type State int

const (
	// StateNoVault means no bundle is persisted (fresh install or after reset)
	StateNoVault State = iota
	// StateLocked means a bundle exists but the signing key is not in memory
	StateLocked
	// StateUnlocked means the signing key is held in memory
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateNoVault:
		return "no_vault"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Service orchestrates key derivation, the authenticated codec, and secure
// storage behind the create / import / unlock / lock / change-PIN / reset
// operations.
//
// All operations are serialized on an internal mutex: there is never more
// than one sensitive operation in flight per Service, so an unlock can
// never interleave with a reset. The mutex also guarantees that a lock
// delivered by the session manager has zeroed the key before the dispatch
// call returns.
type Service struct {
	cfg   *Config
	store storage.Store

	mu          sync.Mutex
	state       State
	signingKey  *secp256k1.PrivateKey
	address     string
	unlockEpoch uint64
}

// NewService creates a vault service over the given store. The initial
// state is read from storage: Locked when a bundle exists, NoVault when not.
func NewService(store storage.Store, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:   cfg,
		store: store,
		state: StateNoVault,
	}

	if _, err := store.Get(cfg.BundleKey); err == nil {
		s.state = StateLocked
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	log.Info().Stringer("state", s.state).Msg("Vault service initialized")
	return s, nil
}

// State returns the current session state
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CreateVault generates a fresh random signing key, wraps it under the PIN,
// persists the bundle (replacing any prior one), and leaves the vault
// unlocked. Returns the derived address.
func (s *Service) CreateVault(ctx context.Context, pin []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validatePIN(pin, s.cfg.PINLength); err != nil {
		return "", err
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate signing key: %w", err)
	}

	addr, err := s.sealLocked(priv, pin)
	if err != nil {
		priv.Zero()
		return "", err
	}

	log.Info().Str("address", addr).Msg("Vault created")
	return addr, nil
}

// ImportVault wraps a caller-supplied signing key instead of generating one.
// Fails with ErrInvalidKey when the key material is malformed.
func (s *Service) ImportVault(ctx context.Context, privateKey, pin []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validatePIN(pin, s.cfg.PINLength); err != nil {
		return "", err
	}

	priv, err := parseSigningKey(privateKey)
	if err != nil {
		return "", err
	}

	addr, err := s.sealLocked(priv, pin)
	if err != nil {
		priv.Zero()
		return "", err
	}

	log.Info().Str("address", addr).Msg("Vault imported")
	return addr, nil
}

// Unlock loads the bundle, derives the wrapping key from the supplied PIN,
// authenticates and decrypts the signing key, and verifies the recovered
// address against the bundle before going Unlocked. Both a tag mismatch and
// a decryption failure surface as ErrIncorrectPIN; an address mismatch after
// a successful decrypt is ErrDataCorruption.
//
// The deliberate slowness of key derivation is the security margin; it is
// not cancellable mid-flight and must not be shortened.
func (s *Service) Unlock(ctx context.Context, pin []byte) (*Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePIN(pin, s.cfg.PINLength); err != nil {
		return nil, err
	}

	priv, addr, err := s.unsealLocked(pin)
	if err != nil {
		return nil, err
	}

	signer := s.installUnlocked(priv, addr)
	log.Info().Str("address", addr).Msg("Vault unlocked")
	return signer, nil
}

// Signer returns a signing handle while the vault is unlocked, and
// ErrVaultLocked otherwise.
func (s *Service) Signer() (*Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnlocked {
		return nil, ErrVaultLocked
	}
	return &Signer{svc: s, address: s.address, epoch: s.unlockEpoch}, nil
}

// Lock zeroes the in-memory signing key and transitions to Locked.
// Idempotent: locking an already-locked or empty vault is a no-op.
func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnlocked {
		return
	}

	s.clearKeyLocked()
	s.state = StateLocked
	log.Info().Msg("Vault locked")
}

// ChangePIN re-wraps the signing key under a new PIN. It fails exactly as
// Unlock would when currentPIN is wrong, and the stored bundle is replaced
// only once the new one has been fully constructed. The vault is left
// unlocked on success.
func (s *Service) ChangePIN(ctx context.Context, currentPIN, newPIN []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePIN(currentPIN, s.cfg.PINLength); err != nil {
		return err
	}
	if err := validatePIN(newPIN, s.cfg.PINLength); err != nil {
		return err
	}

	priv, _, err := s.unsealLocked(currentPIN)
	if err != nil {
		return err
	}

	addr, err := s.sealLocked(priv, newPIN)
	if err != nil {
		priv.Zero()
		return err
	}

	log.Info().Str("address", addr).Msg("Vault PIN changed")
	return nil
}

// Reset deletes the persisted bundle and clears in-memory state
// unconditionally, transitioning to NoVault. Resetting an empty vault is
// not an error.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearKeyLocked()
	s.state = StateNoVault

	if err := s.store.Delete(s.cfg.BundleKey); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	log.Info().Msg("Vault reset")
	return nil
}

// HasVault reports whether a bundle is persisted. Never requires a PIN.
func (s *Service) HasVault() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Get(s.cfg.BundleKey)
	return err == nil
}

// Address returns the address stored in the bundle's cleartext metadata,
// or ErrNoVault when nothing is persisted. Never touches the wrapping key.
func (s *Service) Address() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, err := s.loadBundleLocked()
	if err != nil {
		return "", err
	}
	return bundle.Address, nil
}

// --- internal, caller must hold s.mu ---

// sealLocked wraps priv under pin with a fresh salt and IV, persists the
// resulting bundle in a single write, and installs the key as unlocked.
// Ownership of priv passes to the service on success.
func (s *Service) sealLocked(priv *secp256k1.PrivateKey, pin []byte) (string, error) {
	salt, err := randomBytes(saltLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	wrappingKey, err := deriveWrappingKey(pin, salt, s.cfg.KDFIterations, wrappingKeyLen)
	if err != nil {
		return "", err
	}
	defer zeroBytes(wrappingKey)

	keyBytes := priv.Serialize()
	defer zeroBytes(keyBytes)

	iv, ciphertext, tag, err := wrapKey(keyBytes, wrappingKey)
	if err != nil {
		return "", fmt.Errorf("failed to wrap signing key: %w", err)
	}

	addr := deriveAddress(priv)
	blob, err := encodeBundle(&EncryptedKeyBundle{
		Version:    BundleVersion,
		Salt:       salt,
		IV:         iv,
		Ciphertext: ciphertext,
		Tag:        tag,
		Address:    addr,
	})
	if err != nil {
		return "", err
	}

	if err := s.store.Put(s.cfg.BundleKey, blob); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.installUnlocked(priv, addr)
	return addr, nil
}

// unsealLocked performs the read + derive + authenticate-then-decrypt +
// address verification sequence and returns the recovered key.
func (s *Service) unsealLocked(pin []byte) (*secp256k1.PrivateKey, string, error) {
	bundle, err := s.loadBundleLocked()
	if err != nil {
		return nil, "", err
	}

	wrappingKey, err := deriveWrappingKey(pin, bundle.Salt, s.cfg.KDFIterations, wrappingKeyLen)
	if err != nil {
		return nil, "", err
	}
	defer zeroBytes(wrappingKey)

	keyBytes, err := unwrapKey(bundle.Ciphertext, wrappingKey, bundle.IV, bundle.Tag)
	if err != nil {
		// Tag mismatch and decryption failure are indistinguishable out here.
		log.Warn().Msg("Unlock rejected")
		return nil, "", ErrIncorrectPIN
	}
	defer zeroBytes(keyBytes)

	priv, err := parseSigningKey(keyBytes)
	if err != nil {
		return nil, "", fmt.Errorf("%w: recovered key is invalid", ErrDataCorruption)
	}

	addr := deriveAddress(priv)
	if addr != bundle.Address {
		priv.Zero()
		log.Error().Msg("Recovered key does not match stored address")
		return nil, "", ErrDataCorruption
	}

	return priv, addr, nil
}

func (s *Service) loadBundleLocked() (*EncryptedKeyBundle, error) {
	blob, err := s.store.Get(s.cfg.BundleKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrNoVault
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return decodeBundle(blob)
}

// installUnlocked replaces any previously held key and transitions to
// Unlocked. Signers issued before this call stop working.
func (s *Service) installUnlocked(priv *secp256k1.PrivateKey, addr string) *Signer {
	s.clearKeyLocked()
	s.signingKey = priv
	s.address = addr
	s.unlockEpoch++
	s.state = StateUnlocked
	return &Signer{svc: s, address: addr, epoch: s.unlockEpoch}
}

func (s *Service) clearKeyLocked() {
	if s.signingKey != nil {
		s.signingKey.Zero()
		s.signingKey = nil
	}
	s.address = ""
}
