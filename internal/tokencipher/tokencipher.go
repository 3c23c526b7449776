// Package tokencipher encrypts and decrypts refresh tokens at rest.
//
// It uses NaCl secretbox with a random nonce prepended to each ciphertext.
package tokencipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var ErrDecrypt = errors.New("decryption failed")

// Cipher encrypts and decrypts secrets with a symmetric key.
// A Cipher is safe for concurrent use.
type Cipher struct {
	key [keySize]byte
}

// New returns a new cipher for a key.
func New(key *[keySize]byte) *Cipher {
	c := &Cipher{key: *key}
	return c
}

// NewRandom returns a new cipher with a random key.
func NewRandom() (*Cipher, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, err
	}
	return New(&key), nil
}

// LoadOrCreateKey returns a cipher with the key stored at path.
// When no key file exists a new random key is created and stored.
func LoadOrCreateKey(path string) (*Cipher, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c, err := NewRandom()
		if err != nil {
			return nil, fmt.Errorf("create key: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create key: %w", err)
		}
		if err := os.WriteFile(path, c.key[:], 0o600); err != nil {
			return nil, fmt.Errorf("create key: %w", err)
		}
		return c, nil
	} else if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	if len(data) != keySize {
		return nil, fmt.Errorf("load key %s: invalid size %d", path, len(data))
	}
	var key [keySize]byte
	copy(key[:], data)
	return New(&key), nil
}

// Encrypt returns the ciphertext for a plaintext.
func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key), nil
}

// Decrypt returns the plaintext for a ciphertext.
// It returns an error wrapping [ErrDecrypt] when the ciphertext is invalid,
// e.g. because it was tampered with or encrypted with another key.
func (c *Cipher) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("ciphertext too short: %w", ErrDecrypt)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
