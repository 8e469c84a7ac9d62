package handler

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContentTypeJson checks that the requests have the Content-Type header set to "application/json".
// This helps against CSRF attacks now that the access token can ride in a cookie.
func ContentTypeJson(next echo.HandlerFunc) echo.HandlerFunc {
	return requireContentType(echo.MIMEApplicationJSON)(next)
}

// ContentTypeForm is ContentTypeJson for url encoded and multipart forms
func ContentTypeForm(next echo.HandlerFunc) echo.HandlerFunc {
	return requireContentType(echo.MIMEApplicationForm, echo.MIMEMultipartForm)(next)
}

func requireContentType(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			mediaType, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
			if err == nil {
				for _, t := range allowed {
					if mediaType == t {
						return next(c)
					}
				}
			}
			return jsonError(c, http.StatusUnsupportedMediaType, "Unsupported content type")
		}
	}
}
