package token

import (
	"time"

	"github.com/Lernia/authgate/internal/database"
)

// AuthToken is the persisted side of an issued auth cookie. Only the
// one-way hash of the cookie's random secret is stored; the raw secret
// never persists anywhere at rest.
type AuthToken struct {
	database.BaseModel

	UserID     string    `gorm:"column:user_id;type:uuid;not null;index"`
	TokenHash  string    `gorm:"column:token_hash;uniqueIndex;not null"`
	DeviceHash string    `gorm:"column:device_hash;not null"`
	IPHash     string    `gorm:"column:ip_hash;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`
	// LastUsedAt is stamped on validations that reach the database.
	// Cache-hit validations skip the write, so it can lag real usage by
	// up to the token cache TTL.
	LastUsedAt time.Time `gorm:"column:last_used_at"`
	Revoked    bool      `gorm:"column:revoked;default:false"`
}

func (AuthToken) TableName() string {
	return "auth_tokens"
}
