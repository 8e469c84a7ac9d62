package model

import "time"

// Token is the response of a successful login
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserType    string `json:"user_type"`
}

// LoginForm is the OAuth2 password form posted to the login endpoint
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// NewPassword is the body of a password reset
type NewPassword struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=40"`
}

// PasswordResetToken is the persisted record behind a reset token.
// A token can be used once, UsedAt is set when it is consumed.
type PasswordResetToken struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// Expired reports whether the token is past its expiry at now
func (t PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
