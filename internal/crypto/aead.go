// Package crypto wraps the single AEAD construction used for sealing auth
// cookies: AES-256-GCM for confidentiality and integrity, plus an HMAC-SHA256
// detached signature over the transported blob. There is no algorithm
// negotiation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// KeySize is the required key length for the AEAD cipher (AES-256)
const KeySize = 32

var (
	// ErrKeyLength is returned when the cipher is constructed with a wrong-length key
	ErrKeyLength = errors.New("encryption key must be exactly 32 bytes")
	// ErrMalformed is returned when a blob cannot be parsed at all
	ErrMalformed = errors.New("malformed ciphertext blob")
	// ErrIntegrity is returned when the authentication tag does not verify
	ErrIntegrity = errors.New("ciphertext integrity check failed")
)

// Cipher seals and opens blobs under a fixed 32-byte key
type Cipher struct {
	aead cipher.AEAD
	key  []byte
}

// NewCipher creates a Cipher from a 32-byte key. Wrong-length keys fail fast.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead, key: key}, nil
}

// Encrypt seals plaintext into a transportable base64url blob of
// nonce || ciphertext || tag.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. It returns ErrMalformed for
// blobs that cannot be parsed and ErrIntegrity when authentication fails.
func (c *Cipher) Decrypt(blob string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrMalformed
	}

	if len(sealed) < c.aead.NonceSize() {
		return nil, ErrMalformed
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrIntegrity
	}

	return plaintext, nil
}

// Sign returns the hex HMAC-SHA256 of data under the cipher key
func (c *Cipher) Sign(data []byte) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex signature in constant time
func (c *Cipher) VerifySignature(data []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), expected)
}
