package jsondb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/sdomino/scribble"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/util"
)

const (
	usersCollection       = "users"
	resetTokensCollection = "reset_tokens"
)

type JsonDB struct {
	conn   *scribble.Driver
	dbPath string
	// guards read-modify-write sequences, scribble only locks single writes
	mu sync.Mutex
}

// New returns a new pointer JsonDB
func New(dbPath string) (*JsonDB, error) {
	conn, err := scribble.New(dbPath, nil)
	if err != nil {
		return nil, err
	}
	ans := JsonDB{
		conn:   conn,
		dbPath: dbPath,
	}
	return &ans, nil
}

func (o *JsonDB) Init() error {
	var usersPath string = path.Join(o.dbPath, usersCollection)
	var resetTokensPath string = path.Join(o.dbPath, resetTokensCollection)

	// create directories if they do not exist
	for _, p := range []string{usersPath, resetTokensPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			if err := os.MkdirAll(p, os.ModePerm); err != nil {
				return err
			}
		}
	}

	// first superuser
	results, err := o.conn.ReadAll(usersCollection)
	if err != nil || len(results) < 1 {
		user, err := store.FirstSuperuser()
		if err != nil {
			return err
		}
		if err := o.conn.Write(usersCollection, user.ID, user); err != nil {
			return err
		}
		log.Infof("Created first superuser %s", user.Email)
	}

	return nil
}

// GetUserByID func to get a single user from the database
func (o *JsonDB) GetUserByID(id string) (model.User, error) {
	user := model.User{}
	if id == "" {
		return user, store.ErrNotFound
	}
	if err := o.conn.Read(usersCollection, id, &user); err != nil {
		return user, notFound(err)
	}
	return user, nil
}

// GetUserByEmail func to find a user by email, case-insensitive
func (o *JsonDB) GetUserByEmail(email string) (model.User, error) {
	email = util.NormalizeEmail(email)
	results, err := o.conn.ReadAll(usersCollection)
	if err != nil {
		return model.User{}, notFound(err)
	}
	for _, i := range results {
		user := model.User{}
		if err := json.Unmarshal([]byte(i), &user); err != nil {
			return model.User{}, fmt.Errorf("cannot decode user json structure: %w", err)
		}
		if util.NormalizeEmail(user.Email) == email {
			return user, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

// SaveUser func to save user in the database
func (o *JsonDB) SaveUser(user model.User) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.Write(usersCollection, user.ID, user)
}

func (o *JsonDB) SaveResetToken(token model.PasswordResetToken) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.Write(resetTokensCollection, token.ID, token)
}

func (o *JsonDB) GetResetToken(id string) (model.PasswordResetToken, error) {
	token := model.PasswordResetToken{}
	if id == "" {
		return token, store.ErrNotFound
	}
	if err := o.conn.Read(resetTokensCollection, id, &token); err != nil {
		return token, notFound(err)
	}
	return token, nil
}

func (o *JsonDB) ConsumeResetToken(id string, usedAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	token, err := o.GetResetToken(id)
	if err != nil {
		return err
	}
	if token.UsedAt != nil {
		return store.ErrTokenUsed
	}
	usedAt = usedAt.UTC()
	token.UsedAt = &usedAt
	return o.conn.Write(resetTokensCollection, token.ID, token)
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return store.ErrNotFound
	}
	return err
}
