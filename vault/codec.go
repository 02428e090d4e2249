package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Authenticated encryption codec for the signing key. AES-256-CBC paired
// with an explicit HMAC-SHA256 tag over iv||ciphertext, always verified
// before any decryption is attempted (authenticate-then-decrypt).

const (
	ivLen  = aes.BlockSize
	tagLen = sha256.Size
)

// Internal codec failures. The service folds both into ErrIncorrectPIN so
// the public surface never reveals which stage rejected the attempt.
var (
	errAuthenticationFailed = fmt.Errorf("authentication tag mismatch")
	errDecryptionFailed     = fmt.Errorf("decryption failed")
)

// wrapKey encrypts a signing key under a derived wrapping key. A fresh IV
// is generated per call; salt and IV are never shared between operations.
func wrapKey(signingKey, wrappingKey []byte) (iv, ciphertext, tag []byte, err error) {
	if len(wrappingKey) != wrappingKeyLen {
		return nil, nil, nil, fmt.Errorf("wrapping key must be %d bytes", wrappingKeyLen)
	}
	encKey, macKey := wrappingKey[:32], wrappingKey[32:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, nil, err
	}

	iv = make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, err
	}

	padded := pkcs7Pad(signingKey, aes.BlockSize)
	defer zeroBytes(padded)

	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	tag = mac.Sum(nil)

	return iv, ciphertext, tag, nil
}

// unwrapKey authenticates and then decrypts a wrapped signing key.
//
// The ordering is non-negotiable: the tag is recomputed and compared in
// constant time first, and the ciphertext only reaches the cipher when the
// tag matches. Corrupted or attacker-controlled ciphertext is never decrypted.
func unwrapKey(ciphertext, wrappingKey, iv, tag []byte) ([]byte, error) {
	if len(wrappingKey) != wrappingKeyLen {
		return nil, fmt.Errorf("wrapping key must be %d bytes", wrappingKeyLen)
	}
	encKey, macKey := wrappingKey[:32], wrappingKey[32:]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, tag) {
		return nil, errAuthenticationFailed
	}

	if len(iv) != ivLen || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errDecryptionFailed
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		zeroBytes(padded)
		return nil, errDecryptionFailed
	}

	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	zeroBytes(padded)
	return out, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
