package token

import (
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(tok *AuthToken) error
	FindActiveByHash(hash string) (*AuthToken, error)
	RevokeActiveByHash(hash string) (bool, error)
	RevokeAllForUser(userID string) error
	UpdateLastUsed(hash string, t time.Time) error
	DeleteExpired(before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Create inserts the row inside a transaction so a partially applied
// insert can never back an already-issued cookie.
func (r *repository) Create(tok *AuthToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(tok).Error
	})
}

// FindActiveByHash returns the non-revoked, non-expired row for hash
func (r *repository) FindActiveByHash(hash string) (*AuthToken, error) {
	var tok AuthToken
	err := r.db.
		Where("token_hash = ? AND revoked = false AND expires_at > ?", hash, time.Now().UTC()).
		First(&tok).Error
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// RevokeActiveByHash conditionally revokes the active row for hash. The
// returned bool reports whether this caller performed the revocation;
// concurrent rotations race on it and exactly one wins.
func (r *repository) RevokeActiveByHash(hash string) (bool, error) {
	res := r.db.Model(&AuthToken{}).
		Where("token_hash = ? AND revoked = false", hash).
		Update("revoked", true)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevokeAllForUser revokes every active token owned by userID
func (r *repository) RevokeAllForUser(userID string) error {
	return r.db.Model(&AuthToken{}).
		Where("user_id = ? AND revoked = false", userID).
		Update("revoked", true).Error
}

// UpdateLastUsed stamps the row's last validation time
func (r *repository) UpdateLastUsed(hash string, t time.Time) error {
	return r.db.Model(&AuthToken{}).
		Where("token_hash = ?", hash).
		Update("last_used_at", t).Error
}

// DeleteExpired removes rows whose expiry passed before the given time
func (r *repository) DeleteExpired(before time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", before).Delete(&AuthToken{})
	return res.RowsAffected, res.Error
}
