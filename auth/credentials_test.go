package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store/memdb"
	"github.com/cogniloop/cogniloop-auth/util"
)

func newUser(t *testing.T, db *memdb.MemDB, id, email, password string, active bool) model.User {
	t.Helper()
	hash, err := util.HashPassword(password)
	require.NoError(t, err)
	user := model.User{ID: id, Email: email, PasswordHash: hash, IsActive: active}
	require.NoError(t, db.SaveUser(user))
	return user
}

func TestAuthenticate(t *testing.T) {
	db := memdb.New(false)
	newUser(t, db, "u1", "alice@example.com", "correct horse", true)
	newUser(t, db, "u2", "bob@example.com", "battery staple", false)

	user, err := Authenticate(db, "Alice@Example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = Authenticate(db, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(db, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(db, "bob@example.com", "battery staple")
	assert.ErrorIs(t, err, ErrInactiveUser)

	// the inactive state is only revealed with the right password
	_, err = Authenticate(db, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
