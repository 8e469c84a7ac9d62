package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/cogniloop/cogniloop-auth/auth"
	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
)

const (
	sessionName      = "session"
	sessionTokenKey  = "access_token"
	contextUserKey   = "current_user"
	bearerAuthScheme = "bearer"
)

// CurrentUser resolves the user of the request from a bearer token, or from
// the session cookie set at login when there is no Authorization header
func CurrentUser(db store.IStore, tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if tokenString == "" {
				tokenString = sessionToken(c)
			}
			if tokenString == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return jsonError(c, http.StatusUnauthorized, "Not authenticated")
			}

			userID, err := tokens.ParseAccessToken(tokenString)
			if err != nil {
				log.Debugf("Rejected access token: %v", err)
				return jsonError(c, http.StatusForbidden, "Could not validate credentials")
			}

			user, err := db.GetUserByID(userID)
			if errors.Is(err, store.ErrNotFound) {
				return jsonError(c, http.StatusNotFound, "User not found")
			}
			if err != nil {
				return createError(c, err, "Cannot look up user")
			}
			if !user.IsActive {
				return jsonError(c, http.StatusBadRequest, "Inactive user")
			}

			c.Set(contextUserKey, user)
			return next(c)
		}
	}
}

// RequireSuperuser must run after CurrentUser
func RequireSuperuser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !currentUser(c).IsSuperuser {
			return jsonError(c, http.StatusForbidden, "The user doesn't have enough privileges")
		}
		return next(c)
	}
}

// currentUser returns the user stored by CurrentUser
func currentUser(c echo.Context) model.User {
	user, _ := c.Get(contextUserKey).(model.User)
	return user
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != bearerAuthScheme {
		return ""
	}
	return parts[1]
}

// sessionToken is empty when cookie sessions are not enabled
func sessionToken(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[sessionTokenKey].(string)
	return token
}

func saveSessionToken(c echo.Context, token string, maxAge time.Duration) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[sessionTokenKey] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		log.Error("Cannot save session: ", err)
	}
}
