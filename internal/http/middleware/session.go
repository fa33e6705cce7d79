package middleware

import (
	"net/http"
	"time"

	"holding-admin/internal/audit"
	"holding-admin/internal/auth"
	"holding-admin/internal/metrics"
	"holding-admin/internal/rbac"
	"holding-admin/internal/session"
	transportecho "holding-admin/internal/transport/echo"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// SessionConfig wires the per-request auth manager.
type SessionConfig struct {
	CookieName    string
	CookieSecure  bool
	TTL           time.Duration
	KV            session.KV
	Evaluator     *rbac.Evaluator
	Authenticator auth.Authenticator
	Audit         *audit.Logger
}

// Session resolves the browser's session scope from its cookie, builds an
// auth.Manager over that scope and hydrates it before the handler runs.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope := resolveScope(c, cfg)
			c.Set(transportecho.ContextKeyScope, scope)

			ctx := c.Request().Context()
			logger := *zerolog.Ctx(ctx)

			store := session.NewStore(cfg.KV, scope,
				session.WithValidator(cfg.Evaluator),
				session.WithLogger(logger),
				session.WithCorruptHook(metrics.CorruptSessions.Inc),
			)
			m := auth.NewManager(store, cfg.Evaluator, cfg.Authenticator,
				auth.WithLogger(logger),
				auth.WithListener(func(change auth.Change) {
					metrics.SessionTransitions.WithLabelValues(string(change.Cause)).Inc()
				}),
			)
			if cfg.Audit != nil {
				m.OnChange(cfg.Audit.Listener(c, scope))
			}

			if err := m.Hydrate(ctx); err != nil {
				return err
			}
			transportecho.SetManager(c, m)

			return next(c)
		}
	}
}

// resolveScope returns the cookie's scope, minting a new one when the
// cookie is absent or not a UUID.
func resolveScope(c echo.Context, cfg SessionConfig) string {
	if cookie, err := c.Cookie(cfg.CookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	scope := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    scope,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return scope
}
