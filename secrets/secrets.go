package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
)

// Cipher encrypts and decrypts opaque secret strings (account passwords, seed
// phrases) with AES-256-GCM. The rest of the system treats ciphertexts as
// opaque values and never inspects plaintext beyond passing it through.
type Cipher struct {
	aead cipher.AEAD
}

var ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")

// NewCipher builds a Cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromEnv reads a base64-encoded 32-byte key from APP_KEY.
func NewCipherFromEnv() (*Cipher, error) {
	raw := os.Getenv("APP_KEY")
	if raw == "" {
		return nil, errors.New("secrets: APP_KEY environment variable not set")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("secrets: APP_KEY is not valid base64: %w", err)
	}
	return NewCipher(key)
}

// Encrypt returns a base64 string of nonce||ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated input fails with
// ErrInvalidCiphertext.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, data := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
