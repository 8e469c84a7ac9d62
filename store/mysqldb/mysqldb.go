// Package mysqldb provides a MySQL storage backend for the auth service
package mysqldb

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/gommon/log"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/util"
)

//go:embed schema.sql
var schema string

// MySQLDB - Representation of MySQL database backend
type MySQLDB struct {
	conn *sql.DB
}

// New returns pointer to MySQL database
func New(uname string, pwd string, host string, port int, database string, tls string) (*MySQLDB, error) {
	// Set connection config
	config := mysql.NewConfig()
	config.User = uname
	config.Passwd = pwd
	config.Net = "tcp"
	config.Addr = fmt.Sprintf("%s:%d", host, port)
	config.DBName = database
	config.MultiStatements = true
	config.ParseTime = true
	config.TLSConfig = tls

	// Open connection pool
	conn, err := sql.Open("mysql", config.FormatDSN())
	if err != nil {
		return nil, err
	}
	conn.SetConnMaxLifetime(time.Minute * 3)
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)

	// Test the connection
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return NewWithConn(conn), nil
}

// NewWithConn wraps an already opened connection pool
func NewWithConn(conn *sql.DB) *MySQLDB {
	return &MySQLDB{conn: conn}
}

// Init creates the schema and seeds the first superuser on an empty users table
func (o *MySQLDB) Init() error {
	if _, err := o.conn.Exec(schema); err != nil {
		return err
	}

	var users int
	if err := o.conn.QueryRow("SELECT COUNT(*) FROM users;").Scan(&users); err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	// Tell the user what we're doing as hashing could take a while
	fmt.Println("Initializing database")
	user, err := store.FirstSuperuser()
	if err != nil {
		return err
	}
	if err := o.SaveUser(user); err != nil {
		return err
	}
	log.Infof("Created first superuser %s", user.Email)
	return nil
}

const userColumns = "id, email, full_name, password_hash, is_active, is_superuser, created_at"

func scanUser(row *sql.Row) (model.User, error) {
	user := model.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return user, store.ErrNotFound
	}
	return user, err
}

// GetUserByID func to query a user by id
func (o *MySQLDB) GetUserByID(id string) (model.User, error) {
	return scanUser(o.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?;", id))
}

// GetUserByEmail func to query a user by email
func (o *MySQLDB) GetUserByEmail(email string) (model.User, error) {
	return scanUser(o.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?;", util.NormalizeEmail(email)))
}

// SaveUser inserts the user or updates the existing row with the same id
func (o *MySQLDB) SaveUser(user model.User) error {
	_, err := o.conn.Exec(
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?) "+
			"ON DUPLICATE KEY UPDATE email = VALUES(email), full_name = VALUES(full_name), "+
			"password_hash = VALUES(password_hash), is_active = VALUES(is_active), is_superuser = VALUES(is_superuser);",
		user.ID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.IsActive,
		user.IsSuperuser,
		user.CreatedAt.UTC(),
	)
	return err
}

func (o *MySQLDB) SaveResetToken(token model.PasswordResetToken) error {
	_, err := o.conn.Exec(
		"INSERT INTO password_reset_tokens (id, email, expires_at, used_at) VALUES (?, ?, ?, ?);",
		token.ID,
		token.Email,
		token.ExpiresAt.UTC(),
		token.UsedAt,
	)
	return err
}

func (o *MySQLDB) GetResetToken(id string) (model.PasswordResetToken, error) {
	token := model.PasswordResetToken{}
	var usedAt sql.NullTime
	err := o.conn.QueryRow("SELECT id, email, expires_at, used_at FROM password_reset_tokens WHERE id = ?;", id).Scan(
		&token.ID,
		&token.Email,
		&token.ExpiresAt,
		&usedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return token, store.ErrNotFound
	}
	if err != nil {
		return token, err
	}
	if usedAt.Valid {
		token.UsedAt = &usedAt.Time
	}
	return token, nil
}

// ConsumeResetToken relies on the conditional update, so only one caller can win
func (o *MySQLDB) ConsumeResetToken(id string, usedAt time.Time) error {
	res, err := o.conn.Exec("UPDATE password_reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL;", usedAt.UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// tell a missing token apart from a consumed one
	if _, err := o.GetResetToken(id); err != nil {
		return err
	}
	return store.ErrTokenUsed
}
