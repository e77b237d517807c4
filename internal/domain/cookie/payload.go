package cookie

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Lernia/authgate/internal/crypto"
)

// Payload is the typed record embedded in the encrypted cookie value. It
// is never persisted as its own row; the raw token secret inside it only
// ever travels encrypted.
type Payload struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	Fingerprint string `json:"fingerprint"`
	IssuedAt    int64  `json:"issued_at"`
	ExpiresAt   int64  `json:"expires_at"`
	IPHash      string `json:"ip_hash"`
	CSRF        string `json:"csrf"`
}

// Seal encodes a payload into its wire form:
// base64url(AEAD(payload_json)) + "." + hex(HMAC-SHA256(encrypted_part)).
func Seal(cipher *crypto.Cipher, p *Payload) (string, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	encrypted, err := cipher.Encrypt(plaintext)
	if err != nil {
		return "", err
	}

	return encrypted + "." + cipher.Sign([]byte(encrypted)), nil
}

// Open verifies and decodes a wire-form cookie value. The signature is
// checked before any decryption is attempted so a tampered blob never
// reaches the cipher.
func Open(cipher *crypto.Cipher, raw string) (*Payload, error) {
	encrypted, signature, ok := strings.Cut(raw, ".")
	if !ok || encrypted == "" || signature == "" {
		return nil, ErrMalformedCookie
	}

	if !cipher.VerifySignature([]byte(encrypted), signature) {
		return nil, ErrSignatureTamper
	}

	plaintext, err := cipher.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, crypto.ErrMalformed) {
			return nil, ErrMalformedCookie
		}
		return nil, ErrDecryptFailed
	}

	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, ErrMalformedCookie
	}

	return &p, nil
}
