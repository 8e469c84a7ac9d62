// Package memdb is a process local store, used for tests and throwaway
// instances started with DATABASE=memory.
package memdb

import (
	"sync"
	"time"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/util"
)

type MemDB struct {
	mutex       sync.RWMutex
	users       map[string]model.User
	resetTokens map[string]model.PasswordResetToken
	seed        bool
}

// New returns an empty store. With seed set, Init creates the first superuser.
func New(seed bool) *MemDB {
	return &MemDB{
		users:       make(map[string]model.User),
		resetTokens: make(map[string]model.PasswordResetToken),
		seed:        seed,
	}
}

func (o *MemDB) Init() error {
	if !o.seed {
		return nil
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if len(o.users) > 0 {
		return nil
	}
	user, err := store.FirstSuperuser()
	if err != nil {
		return err
	}
	o.users[user.ID] = user
	return nil
}

func (o *MemDB) GetUserByID(id string) (model.User, error) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	user, ok := o.users[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return user, nil
}

func (o *MemDB) GetUserByEmail(email string) (model.User, error) {
	email = util.NormalizeEmail(email)
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	for _, user := range o.users {
		if util.NormalizeEmail(user.Email) == email {
			return user, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (o *MemDB) SaveUser(user model.User) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.users[user.ID] = user
	return nil
}

func (o *MemDB) SaveResetToken(token model.PasswordResetToken) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.resetTokens[token.ID] = token
	return nil
}

func (o *MemDB) GetResetToken(id string) (model.PasswordResetToken, error) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	token, ok := o.resetTokens[id]
	if !ok {
		return model.PasswordResetToken{}, store.ErrNotFound
	}
	return token, nil
}

func (o *MemDB) ConsumeResetToken(id string, usedAt time.Time) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	token, ok := o.resetTokens[id]
	if !ok {
		return store.ErrNotFound
	}
	if token.UsedAt != nil {
		return store.ErrTokenUsed
	}
	usedAt = usedAt.UTC()
	token.UsedAt = &usedAt
	o.resetTokens[id] = token
	return nil
}
