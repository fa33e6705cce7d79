package handler

import (
	"net/http"
	"net/url"

	"holding-admin/internal/auth"
	transportecho "holding-admin/internal/transport/echo"
	apperrors "holding-admin/pkg/errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const msgBackendRejectedToken = "backend responded 401 Unauthorized"

// NewAPIProxy forwards gated section API calls to the CRUD backend with
// the session's bearer token. A 401 from the backend signs the session out.
func NewAPIProxy(backend *url.URL) echo.MiddlewareFunc {
	balancer := echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{{URL: backend}})

	proxy := echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Balancer: balancer,
		Rewrite: map[string]string{
			"/*/admin/api/*": "/$2",
		},
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode != http.StatusUnauthorized || resp.Request == nil {
				return nil
			}
			ctx := resp.Request.Context()
			if m, ok := auth.FromContext(ctx); ok {
				if err := m.RejectToken(ctx, msgBackendRejectedToken); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Msg("proxy: clearing rejected session failed")
				}
			}
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		forward := proxy(next)
		return func(c echo.Context) error {
			m, ok := transportecho.GetManager(c)
			if !ok {
				return apperrors.InternalServer("auth manager missing", nil)
			}
			token, ok := m.Token()
			if !ok {
				return apperrors.Unauthenticated("")
			}

			h := c.Request().Header
			h.Set(echo.HeaderAuthorization, "Bearer "+token)
			// The console's own cookies and CSRF token stay on this side.
			h.Del("Cookie")
			h.Del("X-CSRF-Token")

			return forward(c)
		}
	}
}

// BackendUnavailable answers API calls when no backend is configured.
func BackendUnavailable(c echo.Context) error {
	return apperrors.Unavailable("backend API is not configured", nil)
}
