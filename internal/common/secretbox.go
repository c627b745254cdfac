package common

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// SecretBox seals and opens stored secrets with AES-GCM. It is injected
// into components that need credentials; there is no global crypto state.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox creates a SecretBox from a hex-encoded 32-byte key
func NewSecretBox(hexKey string) (*SecretBox, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secrets key must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("secrets key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecretBox{aead: aead}, nil
}

// Seal encrypts a plaintext secret for storage
func (b *SecretBox) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed secret
func (b *SecretBox) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("sealed secret is not valid base64: %w", err)
	}
	if len(raw) < b.aead.NonceSize() {
		return "", fmt.Errorf("sealed secret too short")
	}
	nonce, sealed := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed secret: %w", err)
	}
	return string(plaintext), nil
}

// PlainSecretBox is a pass-through used when no secrets key is configured
type PlainSecretBox struct{}

func (PlainSecretBox) Seal(plaintext string) (string, error)  { return plaintext, nil }
func (PlainSecretBox) Open(ciphertext string) (string, error) { return ciphertext, nil }
