package store

import (
	"time"

	"github.com/rs/xid"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/util"
)

// FirstSuperuser builds the account created on an empty database from
// FIRST_SUPERUSER and FIRST_SUPERUSER_PASSWORD
func FirstSuperuser() (model.User, error) {
	user := model.User{
		ID:          xid.New().String(),
		Email:       util.NormalizeEmail(util.LookupEnvOrString(util.FirstSuperuserEnvVar, util.DefaultFirstSuperuser)),
		IsActive:    true,
		IsSuperuser: true,
		CreatedAt:   time.Now().UTC(),
	}
	plaintext := util.LookupEnvOrString(util.FirstSuperuserPasswordEnvVar, util.DefaultFirstSuperuserPassword)
	hash, err := util.HashPassword(plaintext)
	if err != nil {
		return user, err
	}
	user.PasswordHash = hash
	return user, nil
}
