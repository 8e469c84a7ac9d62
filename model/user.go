package model

import "time"

// User model
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	// PasswordHash is a base64 encoded bcrypt hash, see util.HashPassword.
	PasswordHash string    `json:"password_hash"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserPublic is the user representation returned to clients
type UserPublic struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Public strips the password hash from a user
func (u User) Public() UserPublic {
	return UserPublic{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

// UserType is the label reported with an access token
func (u User) UserType() string {
	if u.IsSuperuser {
		return UserTypeSuperuser
	}
	return UserTypeNormal
}

const (
	UserTypeSuperuser = "superuser"
	UserTypeNormal    = "normal"
)
