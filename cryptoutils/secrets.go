package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	sealSaltLen  = 16
	sealNonceLen = 12

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// SealWithPassphrase encrypts data under a passphrase using Argon2id key
// derivation and AES-GCM authenticated encryption. Used to protect software
// key material at rest.
//
// Format: [salt (16 bytes)][nonce (12 bytes)][ciphertext].
func SealWithPassphrase(passphrase, data []byte) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, sealNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, data, nil)

	result := make([]byte, 0, sealSaltLen+sealNonceLen+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// OpenWithPassphrase decrypts data sealed by SealWithPassphrase.
func OpenWithPassphrase(passphrase, sealed []byte) ([]byte, error) {
	if len(sealed) < sealSaltLen+sealNonceLen {
		return nil, errors.New("sealed data too short")
	}

	salt := sealed[:sealSaltLen]
	nonce := sealed[sealSaltLen : sealSaltLen+sealNonceLen]
	ciphertext := sealed[sealSaltLen+sealNonceLen:]

	key := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
