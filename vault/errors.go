package vault

// Error is a vault failure with a stable code. Public operations return
// these sentinels (optionally wrapped with a cause) so callers can branch
// with errors.Is and map codes onto user-facing screens.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Common errors
var (
	// ErrInvalidPIN means the PIN failed format validation. Checked before
	// any cryptographic work.
	ErrInvalidPIN = &Error{Code: "INVALID_PIN", Message: "PIN does not match the required format"}

	// ErrNoVault means an operation needed a persisted bundle and none exists.
	ErrNoVault = &Error{Code: "NO_VAULT", Message: "no vault exists on this device"}

	// ErrIncorrectPIN is the unified rejection for a failed unlock. Tag
	// mismatch and decryption failure are deliberately not distinguished
	// here so the error surface leaks nothing about which check failed.
	ErrIncorrectPIN = &Error{Code: "INCORRECT_PIN", Message: "incorrect PIN"}

	// ErrDataCorruption means decryption succeeded but the recovered key
	// does not reproduce the stored address. Remediation is reset and
	// re-import, not another PIN attempt.
	ErrDataCorruption = &Error{Code: "DATA_CORRUPTION", Message: "stored bundle failed the integrity check"}

	// ErrStorageFailure means the secure-storage adapter could not read or
	// write the bundle.
	ErrStorageFailure = &Error{Code: "STORAGE_FAILURE", Message: "secure storage operation failed"}

	// ErrInvalidKey means imported private key material is malformed.
	ErrInvalidKey = &Error{Code: "INVALID_KEY", Message: "private key material is malformed"}

	// ErrUnsupportedVersion means the persisted bundle uses a format version
	// this build does not decode.
	ErrUnsupportedVersion = &Error{Code: "UNSUPPORTED_VERSION", Message: "bundle format version is not supported"}

	// ErrVaultLocked means a signer was used after the vault locked.
	ErrVaultLocked = &Error{Code: "VAULT_LOCKED", Message: "vault is locked"}
)
