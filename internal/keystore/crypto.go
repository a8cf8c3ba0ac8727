package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the AES-256 key from the configured secret.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	keyLength    = 32
	minSecretLen = 16
)

var keySalt = []byte("onecall/keystore/v1")

var ErrCiphertext = errors.New("ciphertext is malformed or was encrypted with another secret")

// Cipher seals stored API secrets with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the key from secret. Derivation is deliberately slow, so
// build one Cipher per process.
func NewCipher(secret string) (*Cipher, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("encryption secret must be at least %d characters", minSecretLen)
	}
	key, err := scrypt.Key([]byte(secret), keySalt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
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

// Encrypt returns base64(nonce | ciphertext). The additional data ad is
// authenticated but not stored, and Decrypt must be given the same value.
// Empty input stays empty.
func (c *Cipher) Encrypt(plaintext, ad string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(ad))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(encoded, ad string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCiphertext
	}
	ns := c.aead.NonceSize()
	if len(data) < ns+c.aead.Overhead() {
		return "", ErrCiphertext
	}
	plain, err := c.aead.Open(nil, data[:ns], data[ns:], []byte(ad))
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
