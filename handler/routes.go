package handler

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/cogniloop/cogniloop-auth/auth"
	"github.com/cogniloop/cogniloop-auth/emailer"
	"github.com/cogniloop/cogniloop-auth/limiter"
	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/util"
)

const (
	recoveryMessage = "If that email exists, a recovery link has been sent"
	tokenType       = "bearer"
)

type jsonHTTPResponse struct {
	Detail string `json:"detail"`
}

func jsonError(c echo.Context, status int, detail string) error {
	return c.JSON(status, jsonHTTPResponse{detail})
}

func createError(c echo.Context, err error, msg string) error {
	log.Error(msg, ": ", err)
	return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{msg})
}

// LoginAccessToken handler, OAuth2 compatible token login
func LoginAccessToken(db store.IStore, tokens *auth.TokenIssuer, loginLimiter *limiter.Limiter) echo.HandlerFunc {
	return func(c echo.Context) error {
		form := new(model.LoginForm)
		if err := c.Bind(form); err != nil {
			return jsonError(c, http.StatusUnprocessableEntity, "Cannot parse login form")
		}
		if err := c.Validate(form); err != nil {
			return jsonError(c, http.StatusUnprocessableEntity, "username and password are required")
		}

		// the attempt counts before credentials are looked at
		res, err := loginLimiter.Hit(c.Request().Context(), util.NormalizeEmail(form.Username))
		if err != nil {
			return createError(c, err, "Cannot check login rate limit")
		}
		if !res.Allowed {
			log.Warnf("Too many login attempts for %s", form.Username)
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.ResetAfter.Seconds()))))
			return jsonError(c, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		}

		user, err := auth.Authenticate(db, form.Username, form.Password)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			log.Warnf("Invalid credentials for %s", form.Username)
			return jsonError(c, http.StatusBadRequest, "Incorrect email or password")
		case errors.Is(err, auth.ErrInactiveUser):
			return jsonError(c, http.StatusBadRequest, "Inactive user")
		case err != nil:
			return createError(c, err, "Cannot verify credentials")
		}

		accessToken, err := tokens.CreateAccessToken(user.ID)
		if err != nil {
			return createError(c, err, "Cannot issue access token")
		}
		saveSessionToken(c, accessToken, tokens.Expiry())

		log.Infof("Logged in successfully: %s", user.Email)
		return c.JSON(http.StatusOK, model.Token{
			AccessToken: accessToken,
			TokenType:   tokenType,
			UserType:    user.UserType(),
		})
	}
}

// TestToken handler returns the user the access token belongs to
func TestToken() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, currentUser(c).Public())
	}
}

// RecoverPassword handler. The response never tells whether the account exists.
func RecoverPassword(db store.IStore, resets *auth.ResetTokens, tmpl *emailer.ResetPasswordTemplate, mailer emailer.Emailer) echo.HandlerFunc {
	return func(c echo.Context) error {
		email := emailParam(c)

		user, err := db.GetUserByEmail(email)
		switch {
		case err == nil:
			// response time must not depend on whether the account exists
			go sendResetEmail(user, resets, tmpl, mailer)
		case !errors.Is(err, store.ErrNotFound):
			return createError(c, err, "Cannot look up user")
		}

		return c.JSON(http.StatusOK, model.Message{Message: recoveryMessage})
	}
}

// sendResetEmail failures are logged only, reporting them would reveal that
// the account exists
func sendResetEmail(user model.User, resets *auth.ResetTokens, tmpl *emailer.ResetPasswordTemplate, mailer emailer.Emailer) {
	token, err := resets.Generate(user.Email)
	if err != nil {
		log.Error("Cannot generate password reset token: ", err)
		return
	}
	email, err := tmpl.Render(user.Email, token)
	if err != nil {
		log.Error("Cannot render password reset email: ", err)
		return
	}
	if err := mailer.Send(user.FullName, user.Email, email.Subject, email.HTMLContent, nil); err != nil {
		log.Errorf("Cannot send password reset email to %s: %v", user.Email, err)
		return
	}
	log.Infof("Sent password reset email to %s", user.Email)
}

// ResetPassword handler sets a new password from a reset token
func ResetPassword(db store.IStore, resets *auth.ResetTokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := new(model.NewPassword)
		if err := c.Bind(body); err != nil {
			return jsonError(c, http.StatusUnprocessableEntity, "Cannot parse request body")
		}
		if err := c.Validate(body); err != nil {
			return jsonError(c, http.StatusUnprocessableEntity, "token is required and new_password must be 8 to 40 characters")
		}

		record, err := resets.Verify(body.Token)
		if errors.Is(err, auth.ErrInvalidToken) {
			return jsonError(c, http.StatusBadRequest, "Invalid token")
		}
		if err != nil {
			return createError(c, err, "Cannot verify reset token")
		}

		user, err := db.GetUserByEmail(record.Email)
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "The user with this email does not exist in the system.")
		}
		if err != nil {
			return createError(c, err, "Cannot look up user")
		}
		if !user.IsActive {
			return jsonError(c, http.StatusBadRequest, "Inactive user")
		}

		hash, err := util.HashPassword(body.NewPassword)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return jsonError(c, http.StatusUnprocessableEntity, "new_password is too long")
		}
		if err != nil {
			return createError(c, err, "Cannot hash password")
		}

		if err := resets.Consume(record); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				return jsonError(c, http.StatusBadRequest, "Invalid token")
			}
			return createError(c, err, "Cannot consume reset token")
		}

		user.PasswordHash = hash
		if err := db.SaveUser(user); err != nil {
			return createError(c, err, "Cannot save user")
		}

		log.Infof("Password updated for %s", user.Email)
		return c.JSON(http.StatusOK, model.Message{Message: "Password updated successfully"})
	}
}

// RecoverPasswordHTMLContent handler renders the recovery email for a superuser
func RecoverPasswordHTMLContent(db store.IStore, resets *auth.ResetTokens, tmpl *emailer.ResetPasswordTemplate) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := db.GetUserByEmail(emailParam(c))
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "The user with this username does not exist in the system.")
		}
		if err != nil {
			return createError(c, err, "Cannot look up user")
		}

		token, err := resets.Generate(user.Email)
		if err != nil {
			return createError(c, err, "Cannot generate password reset token")
		}
		email, err := tmpl.Render(user.Email, token)
		if err != nil {
			return createError(c, err, "Cannot render password reset email")
		}

		c.Response().Header().Set("Subject", email.Subject)
		return c.HTML(http.StatusOK, email.HTMLContent)
	}
}

// Health handler
func Health(serviceName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, model.HealthResponse{Status: "healthy", Service: serviceName})
	}
}

func emailParam(c echo.Context) string {
	email := c.Param("email")
	if unescaped, err := url.PathUnescape(email); err == nil {
		email = unescaped
	}
	return email
}
