// Package cryptox seals vault values at rest. The backing store is a plain
// SQLite file on disk, so tokens and caches are encrypted with a key derived
// from per-device key material rather than stored in the clear.
package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealContext binds derived keys to this use so the same device key material
// can never be reused for another purpose with the same output.
const sealContext = "reelpitch/vault/v1"

// ErrSealedDataCorrupt is returned when a sealed value fails authentication
// or is too short to contain a nonce. Callers should treat the value as gone.
var ErrSealedDataCorrupt = errors.New("cryptox: sealed data corrupt")

// Sealer encrypts and decrypts vault values with ChaCha20-Poly1305.
// Output format is [24-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the sealing key from the device key file at keyPath,
// generating the file on first use.
func NewSealer(keyPath string) (*Sealer, error) {
	material, err := loadOrGenerateDeviceKey(keyPath)
	if err != nil {
		return nil, err
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, material, nil, []byte(sealContext))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrSealedDataCorrupt
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedDataCorrupt
	}
	return plaintext, nil
}
