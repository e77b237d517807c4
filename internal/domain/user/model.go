package user

import "github.com/Lernia/authgate/internal/database"

type User struct {
	database.BaseModel
	Email       string `gorm:"column:email;unique;not null" json:"email"`
	DisplayName string `gorm:"column:display_name;not null" json:"display_name"`
	Password    string `gorm:"column:password;not null" json:"-"`
	IsActive    bool   `gorm:"column:is_active;default:true" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}

// LoginRequest is the login endpoint body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the registration endpoint body
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}
