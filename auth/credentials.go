package auth

import (
	"errors"
	"fmt"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/util"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInactiveUser       = errors.New("inactive user")
)

// Authenticate looks the user up by email and checks the password.
// Unknown users and wrong passwords both yield ErrInvalidCredentials; a
// valid password on a disabled account yields ErrInactiveUser.
func Authenticate(db store.IStore, email, password string) (model.User, error) {
	user, err := db.GetUserByEmail(email)
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("cannot look up user: %w", err)
	}

	match, err := util.VerifyHash(user.PasswordHash, password)
	if err != nil {
		return model.User{}, err
	}
	if !match {
		return model.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return model.User{}, ErrInactiveUser
	}
	return user, nil
}
