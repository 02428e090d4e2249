// Package storage defines the secure-storage contract the vault persists its
// encrypted key bundle through, plus the implementations shipped with the
// module. On device builds the platform keychain is wired in behind the Store
// interface by the host application; the SQLite store covers hosts without a
// native keychain and the in-memory store covers tests.
package storage

// Store is at-rest storage for opaque blobs keyed by a record identifier.
// Implementations must guarantee at-rest confidentiality gated by device
// unlock state and must return blobs byte-for-byte as written - silent
// truncation or corruption is not tolerated by the vault on top.
type Store interface {
	// Put stores value under key, overwriting any previous value.
	Put(key string, value []byte) error

	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Delete removes the value stored under key. Deleting an absent key is
	// not an error.
	Delete(key string) error
}

// Errors
var (
	ErrKeyNotFound = &StorageError{Message: "key not found"}
)

// StorageError represents a storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}
