package router

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

// Config for the echo instance
type Config struct {
	// SessionSecret enables cookie sessions when set
	SessionSecret []byte
	// RateLimitPerSecond throttles each client ip, 0 disables it
	RateLimitPerSecond float64
	RateLimitBurst     int
	LogLevel           log.Lvl
}

// New function
func New(cfg Config) *echo.Echo {
	e := echo.New()

	lvl := cfg.LogLevel
	logConfig := middleware.DefaultLoggerConfig
	logConfig.Skipper = func(c echo.Context) bool {
		resp := c.Response()
		if resp.Status >= 500 && lvl > log.ERROR { // do not log if response is 5XX but log level is higher than ERROR
			return true
		} else if resp.Status >= 400 && resp.Status < 500 && lvl > log.WARN { // do not log if response is 4XX but log level is higher than WARN
			return true
		} else if resp.Status < 400 && lvl > log.INFO { // do not log successful requests above INFO
			return true
		}
		return false
	}

	log.SetLevel(lvl)
	e.Logger.SetLevel(lvl)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.LoggerWithConfig(logConfig))
	e.Use(middleware.Recover())
	if len(cfg.SessionSecret) > 0 {
		e.Use(session.Middleware(sessions.NewCookieStore(cfg.SessionSecret)))
	}
	if cfg.RateLimitPerSecond > 0 {
		e.Use(clientRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}
	e.HideBanner = true
	e.HidePort = lvl > log.INFO // hide the port output if the log level is higher than INFO
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler

	return e
}

// clientRateLimiter throttles requests per client ip, health checks excluded
func clientRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	if burst < 1 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"detail": "Cannot identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			log.Warnf("Rate limit exceeded for %s", identifier)
			return c.JSON(http.StatusTooManyRequests, map[string]string{"detail": "Rate limit exceeded"})
		},
	})
}

// httpErrorHandler renders echo errors with the same {"detail": ...} body as the handlers
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = fmt.Sprint(he.Message)
	} else {
		log.Error("Unhandled error: ", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"detail": detail})
	}
	if err != nil {
		log.Error("Cannot write error response: ", err)
	}
}
