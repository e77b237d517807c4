package user

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("HashPassword() hash = %q, want argon2id encoding", hash)
	}

	// Salting makes every hash unique
	other, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if hash == other {
		t.Errorf("HashPassword() should produce distinct hashes for the same password")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "correct password", password: "s3cret-passw0rd", hash: hash, want: true},
		{name: "wrong password", password: "wrong", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "malformed hash", password: "s3cret-passw0rd", hash: "not-a-hash", want: false},
		{name: "wrong algorithm", password: "s3cret-passw0rd", hash: "$argon2i$v=19$m=65536,t=2,p=2$c2FsdA$aGFzaA", want: false},
		{name: "empty hash", password: "s3cret-passw0rd", hash: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
