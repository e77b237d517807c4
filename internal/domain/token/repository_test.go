package token

import (
	"errors"
	"testing"
	"time"

	"github.com/Lernia/authgate/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db := utils.SetupTestDB(t, &AuthToken{})
	db.Exec("DELETE FROM auth_tokens")
	return db
}

func createTestToken(t *testing.T, repo Repository, userID, hash string, ttl time.Duration) *AuthToken {
	t.Helper()
	now := time.Now().UTC()
	tok := &AuthToken{
		UserID:     userID,
		TokenHash:  hash,
		DeviceHash: "device-hash",
		IPHash:     "ip-hash",
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
	}
	if err := repo.Create(tok); err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}
	return tok
}

func TestRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New().String()
	tok := createTestToken(t, repo, userID, "hash-create", time.Hour)

	if tok.ID == uuid.Nil {
		t.Errorf("Create() should assign an ID")
	}

	found, err := repo.FindActiveByHash("hash-create")
	if err != nil {
		t.Fatalf("FindActiveByHash() unexpected error: %v", err)
	}
	if found.UserID != userID {
		t.Errorf("FindActiveByHash() userID = %v, want %v", found.UserID, userID)
	}
	if found.Revoked {
		t.Errorf("Create() revoked should be false")
	}
}

func TestRepository_FindActiveByHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New().String()
	createTestToken(t, repo, userID, "hash-active", time.Hour)
	createTestToken(t, repo, userID, "hash-expired", -time.Hour)

	revoked := createTestToken(t, repo, userID, "hash-revoked", time.Hour)
	if _, err := repo.RevokeActiveByHash(revoked.TokenHash); err != nil {
		t.Fatalf("Failed to revoke token: %v", err)
	}

	tests := []struct {
		name    string
		hash    string
		wantErr bool
	}{
		{name: "active token", hash: "hash-active", wantErr: false},
		{name: "expired token", hash: "hash-expired", wantErr: true},
		{name: "revoked token", hash: "hash-revoked", wantErr: true},
		{name: "unknown hash", hash: "hash-missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindActiveByHash(tt.hash)

			if tt.wantErr {
				if err == nil {
					t.Errorf("FindActiveByHash() expected error but got none")
					return
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					t.Errorf("FindActiveByHash() error = %v, want %v", err, gorm.ErrRecordNotFound)
				}
				return
			}

			if err != nil {
				t.Errorf("FindActiveByHash() unexpected error: %v", err)
				return
			}
			if found.TokenHash != tt.hash {
				t.Errorf("FindActiveByHash() hash = %v, want %v", found.TokenHash, tt.hash)
			}
		})
	}
}

func TestRepository_RevokeActiveByHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New().String()
	createTestToken(t, repo, userID, "hash-revoke", time.Hour)

	won, err := repo.RevokeActiveByHash("hash-revoke")
	if err != nil {
		t.Fatalf("RevokeActiveByHash() unexpected error: %v", err)
	}
	if !won {
		t.Errorf("RevokeActiveByHash() first caller should win")
	}

	// The second revocation of the same hash loses: the row is already
	// revoked, so the conditional update matches nothing
	won, err = repo.RevokeActiveByHash("hash-revoke")
	if err != nil {
		t.Fatalf("RevokeActiveByHash() unexpected error: %v", err)
	}
	if won {
		t.Errorf("RevokeActiveByHash() second caller should lose")
	}

	if _, err := repo.FindActiveByHash("hash-revoke"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("FindActiveByHash() after revoke: error = %v, want %v", err, gorm.ErrRecordNotFound)
	}
}

func TestRepository_RevokeActiveByHash_UnknownHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	won, err := repo.RevokeActiveByHash("hash-missing")
	if err != nil {
		t.Errorf("RevokeActiveByHash() should not error for unknown hash: %v", err)
	}
	if won {
		t.Errorf("RevokeActiveByHash() should not report a win for unknown hash")
	}
}

func TestRepository_RevokeAllForUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New().String()
	otherID := uuid.New().String()
	createTestToken(t, repo, userID, "hash-one", time.Hour)
	createTestToken(t, repo, userID, "hash-two", time.Hour)
	createTestToken(t, repo, otherID, "hash-other", time.Hour)

	if err := repo.RevokeAllForUser(userID); err != nil {
		t.Fatalf("RevokeAllForUser() unexpected error: %v", err)
	}

	for _, hash := range []string{"hash-one", "hash-two"} {
		if _, err := repo.FindActiveByHash(hash); !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("FindActiveByHash(%q) after revoke all: error = %v, want %v", hash, err, gorm.ErrRecordNotFound)
		}
	}

	// Other users are untouched
	if _, err := repo.FindActiveByHash("hash-other"); err != nil {
		t.Errorf("FindActiveByHash() for other user: unexpected error: %v", err)
	}
}

func TestRepository_UpdateLastUsed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New().String()
	createTestToken(t, repo, userID, "hash-touch", time.Hour)

	stamp := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Millisecond)
	if err := repo.UpdateLastUsed("hash-touch", stamp); err != nil {
		t.Fatalf("UpdateLastUsed() unexpected error: %v", err)
	}

	found, err := repo.FindActiveByHash("hash-touch")
	if err != nil {
		t.Fatalf("FindActiveByHash() unexpected error: %v", err)
	}
	if !found.LastUsedAt.Equal(stamp) {
		t.Errorf("UpdateLastUsed() lastUsedAt = %v, want %v", found.LastUsedAt, stamp)
	}
}

func TestRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New().String()
	createTestToken(t, repo, userID, "hash-old", -2*time.Hour)
	createTestToken(t, repo, userID, "hash-fresh", time.Hour)

	deleted, err := repo.DeleteExpired(time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired() unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteExpired() deleted = %d, want 1", deleted)
	}

	var count int64
	db.Model(&AuthToken{}).Count(&count)
	if count != 1 {
		t.Errorf("DeleteExpired() remaining rows = %d, want 1", count)
	}
}
