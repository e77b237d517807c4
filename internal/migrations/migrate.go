package migrations

import (
	"fmt"

	"github.com/Lernia/authgate/internal/domain/token"
	"github.com/Lernia/authgate/internal/domain/user"
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&user.User{}, &token.AuthToken{}); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}
	return nil
}
