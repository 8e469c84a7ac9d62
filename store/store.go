package store

import (
	"errors"
	"time"

	"github.com/cogniloop/cogniloop-auth/model"
)

var (
	// ErrNotFound is returned when a user or reset token does not exist
	ErrNotFound = errors.New("record not found")
	// ErrTokenUsed is returned when a reset token was already consumed
	ErrTokenUsed = errors.New("reset token already used")
)

type IStore interface {
	Init() error
	GetUserByID(id string) (model.User, error)
	GetUserByEmail(email string) (model.User, error)
	SaveUser(user model.User) error
	SaveResetToken(token model.PasswordResetToken) error
	GetResetToken(id string) (model.PasswordResetToken, error)
	// ConsumeResetToken marks the token used at the given time. It fails with
	// ErrTokenUsed when another caller consumed it first.
	ConsumeResetToken(id string, usedAt time.Time) error
}
