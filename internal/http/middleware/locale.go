package middleware

import (
	"net/http"
	"strings"

	"holding-admin/internal/config"

	"github.com/labstack/echo/v4"
)

// Locale redirects requests whose :locale segment is not configured to the
// same path under the default locale.
func Locale(app config.AppConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			locale := c.Param("locale")
			if app.HasLocale(locale) {
				return next(c)
			}

			path := c.Request().URL.Path
			rest := strings.TrimPrefix(path, "/"+locale)
			target := "/" + app.DefaultLocale + rest
			if q := c.Request().URL.RawQuery; q != "" {
				target += "?" + q
			}
			return c.Redirect(http.StatusFound, target)
		}
	}
}
