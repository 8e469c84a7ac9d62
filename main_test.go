package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cogniloop/cogniloop-auth/auth"
	"github.com/cogniloop/cogniloop-auth/emailer"
	"github.com/cogniloop/cogniloop-auth/limiter"
	"github.com/cogniloop/cogniloop-auth/router"
	"github.com/cogniloop/cogniloop-auth/store/jsondb"
	"github.com/cogniloop/cogniloop-auth/store/memdb"
	"github.com/cogniloop/cogniloop-auth/util"
)

func TestMain(m *testing.M) {
	util.HashCost = bcrypt.MinCost
	m.Run()
}

func TestRegisterRoutes(t *testing.T) {
	t.Setenv(util.FirstSuperuserEnvVar, "root@example.com")
	t.Setenv(util.FirstSuperuserPasswordEnvVar, "root-password")

	db := memdb.New(true)
	require.NoError(t, db.Init())

	tokens, err := auth.NewTokenIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)
	resets, err := auth.NewResetTokens(db, []byte("secret"), time.Hour)
	require.NoError(t, err)
	tmpl, err := emailer.NewResetPasswordTemplate("Cogniloop", "http://localhost:5173", resets.Expiry())
	require.NoError(t, err)
	rule, err := limiter.ParseRule(util.DefaultLoginRateLimit)
	require.NoError(t, err)

	app := router.New(router.Config{LogLevel: log.OFF})
	registerRoutes(app, routeDeps{
		db:           db,
		tokens:       tokens,
		resets:       resets,
		tmpl:         tmpl,
		mailer:       emailer.NewDisabledMail(),
		loginLimiter: limiter.New(limiter.NewMemoryStorage(), rule, "login:"),
		serviceName:  "cogniloop-api",
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"cogniloop-api"}`, rec.Body.String())

	// the seeded superuser can log in and preview the recovery email
	form := url.Values{"username": {"root@example.com"}, "password": {"root-password"}}
	req := httptest.NewRequest(http.MethodPost, "/login/access-token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"user_type":"superuser"`)

	user, err := db.GetUserByEmail("root@example.com")
	require.NoError(t, err)
	token, err := tokens.CreateAccessToken(user.ID)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/password-recovery-html-content/root@example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// recovery answers 200 even though mail is disabled
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/password-recovery/root@example.com", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/reset-password/", strings.NewReader(`{"token":"bad","new_password":"long enough"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewStore(t *testing.T) {
	db, err := newStore(config{database: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memdb.MemDB{}, db)

	db, err = newStore(config{database: "jsondb", dbPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &jsondb.JsonDB{}, db)

	_, err = newStore(config{database: "postgres"})
	assert.Error(t, err)
}

func TestNewMailer(t *testing.T) {
	assert.IsType(t, &emailer.SendgridApiMail{}, newMailer(config{sendgridApiKey: "key", smtpHost: "smtp.example.com"}))
	assert.IsType(t, &emailer.SmtpMail{}, newMailer(config{smtpHost: "smtp.example.com"}))
	assert.IsType(t, &emailer.DisabledMail{}, newMailer(config{}))
}
