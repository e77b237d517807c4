package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, KeySize)
}

func TestNewCipher_KeyLength(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr error
	}{
		{name: "exact key length", keyLen: 32, wantErr: nil},
		{name: "too short", keyLen: 16, wantErr: ErrKeyLength},
		{name: "too long", keyLen: 48, wantErr: ErrKeyLength},
		{name: "empty", keyLen: 0, wantErr: ErrKeyLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipher(bytes.Repeat([]byte{0x01}, tt.keyLen))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewCipher() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher() unexpected error: %v", err)
	}

	plaintext := []byte(`{"uid":"abc","token":"deadbeef"}`)

	blob, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() unexpected error: %v", err)
	}

	got, err := c.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt() unexpected error: %v", err)
	}

	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestCipher_Decrypt_Tampered(t *testing.T) {
	c, _ := NewCipher(testKey())

	blob, err := c.Encrypt([]byte("sensitive payload"))
	if err != nil {
		t.Fatalf("Encrypt() unexpected error: %v", err)
	}

	sealed, _ := base64.RawURLEncoding.DecodeString(blob)
	for i := range sealed {
		flipped := make([]byte, len(sealed))
		copy(flipped, sealed)
		flipped[i] ^= 0x01

		_, err := c.Decrypt(base64.RawURLEncoding.EncodeToString(flipped))
		if !errors.Is(err, ErrIntegrity) {
			t.Fatalf("Decrypt() with byte %d flipped: error = %v, want %v", i, err, ErrIntegrity)
		}
	}
}

func TestCipher_Decrypt_Malformed(t *testing.T) {
	c, _ := NewCipher(testKey())

	tests := []struct {
		name string
		blob string
	}{
		{name: "not base64", blob: "!!!not-base64!!!"},
		{name: "too short", blob: base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x02})},
		{name: "empty", blob: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.blob)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decrypt() error = %v, want %v", err, ErrMalformed)
			}
		})
	}
}

func TestCipher_Decrypt_WrongKey(t *testing.T) {
	c1, _ := NewCipher(testKey())
	c2, _ := NewCipher(bytes.Repeat([]byte{0x43}, KeySize))

	blob, err := c1.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() unexpected error: %v", err)
	}

	if _, err := c2.Decrypt(blob); !errors.Is(err, ErrIntegrity) {
		t.Errorf("Decrypt() with wrong key: error = %v, want %v", err, ErrIntegrity)
	}
}

func TestCipher_Encrypt_UniqueNonce(t *testing.T) {
	c, _ := NewCipher(testKey())

	a, err := c.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt() unexpected error: %v", err)
	}
	b, err := c.Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt() unexpected error: %v", err)
	}

	if a == b {
		t.Errorf("Encrypt() produced identical blobs for two calls")
	}
}

func TestCipher_SignVerify(t *testing.T) {
	c, _ := NewCipher(testKey())

	data := []byte("encrypted-segment")
	sig := c.Sign(data)

	if !c.VerifySignature(data, sig) {
		t.Errorf("VerifySignature() rejected a valid signature")
	}

	if c.VerifySignature([]byte("different data"), sig) {
		t.Errorf("VerifySignature() accepted a signature over different data")
	}

	if c.VerifySignature(data, "zz-not-hex") {
		t.Errorf("VerifySignature() accepted a non-hex signature")
	}

	other, _ := NewCipher(bytes.Repeat([]byte{0x44}, KeySize))
	if other.VerifySignature(data, sig) {
		t.Errorf("VerifySignature() accepted a signature made under a different key")
	}
}
