package storage

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	_ "modernc.org/sqlite"
)

// SQLiteStore provides encrypted SQLite-backed storage for vault blobs.
// Every value is sealed with XChaCha20-Poly1305 under a 32-byte storage key
// before it reaches disk, so the database file alone never exposes the
// bundle. The storage key is supplied by the platform layer and is expected
// to be released to the process only while the device is unlocked.
type SQLiteStore struct {
	db         *sql.DB
	storageKey []byte

	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) an encrypted store at path. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(path string, storageKey []byte) (*SQLiteStore, error) {
	if len(storageKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("storage key must be %d bytes", chacha20poly1305.KeySize)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// Set pragmas for security and performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	store := &SQLiteStore{
		db:         db,
		storageKey: storageKey,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS secure_blobs (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Put encrypts and stores value under key, overwriting any previous value
func (s *SQLiteStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt value: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO secure_blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, sealed, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}

	return nil
}

// Get retrieves and decrypts the value stored under key
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sealed []byte
	err := s.db.QueryRow(`
		SELECT value FROM secure_blobs WHERE key = ?
	`, key).Scan(&sealed)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	value, err := s.decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt blob: %w", err)
	}

	return value, nil
}

// Delete removes the value stored under key. Absent keys are a no-op.
func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM secure_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// encrypt encrypts data using XChaCha20-Poly1305 with the storage key
func (s *SQLiteStore) encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.storageKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

// decrypt decrypts data using XChaCha20-Poly1305 with the storage key
func (s *SQLiteStore) decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.storageKey)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce := ciphertext[:nonceSize]
	ciphertext = ciphertext[nonceSize:]

	return aead.Open(nil, nonce, ciphertext, nil)
}
