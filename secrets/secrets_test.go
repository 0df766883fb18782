package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func newCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newCipher(t)

	for _, plaintext := range []string{"", "hunter2", "seed phrase with spaces and ünïcode"} {
		enc, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if enc == plaintext {
			t.Fatalf("ciphertext equals plaintext for %q", plaintext)
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if dec != plaintext {
			t.Fatalf("round trip mismatch: got %q, want %q", dec, plaintext)
		}
	}
}

func TestEncryptIsNondeterministic(t *testing.T) {
	c := newCipher(t)
	a, _ := c.Encrypt("same input")
	b, _ := c.Encrypt("same input")
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced the same ciphertext")
	}
}

func TestDecryptRejectsTamperedInput(t *testing.T) {
	c := newCipher(t)
	enc, err := c.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	sealed, _ := base64.StdEncoding.DecodeString(enc)
	sealed[len(sealed)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(sealed)

	for name, input := range map[string]string{
		"tampered":   tampered,
		"not base64": "%%%not-base64%%%",
		"truncated":  base64.StdEncoding.EncodeToString(sealed[:4]),
		"empty":      "",
	} {
		if _, err := c.Decrypt(input); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("%s: expected ErrInvalidCiphertext, got %v", name, err)
		}
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	c := newCipher(t)
	enc, err := c.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	other, err := NewCipher(bytes.Repeat([]byte{0x24}, 32))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	if _, err := other.Decrypt(enc); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext with wrong key, got %v", err)
	}
}

func TestNewCipherKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		if _, err := NewCipher(make([]byte, n)); err == nil {
			t.Errorf("expected error for %d-byte key", n)
		}
	}
}

func TestNewCipherFromEnv(t *testing.T) {
	t.Setenv("APP_KEY", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32)))
	if _, err := NewCipherFromEnv(); err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}

	t.Setenv("APP_KEY", "not base64!!!")
	if _, err := NewCipherFromEnv(); err == nil {
		t.Fatal("expected error for malformed APP_KEY")
	}

	t.Setenv("APP_KEY", "")
	if _, err := NewCipherFromEnv(); err == nil {
		t.Fatal("expected error for missing APP_KEY")
	}
}
