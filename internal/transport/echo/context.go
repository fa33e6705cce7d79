package echo

import (
	"holding-admin/internal/auth"

	"github.com/labstack/echo/v4"
)

const (
	ContextKeyManager  = "auth_manager"
	ContextKeyScope    = "session_scope"
	ContextKeyResource = "gated_resource"
)

// SetManager attaches m to both the echo context and the request context.
func SetManager(c echo.Context, m *auth.Manager) {
	if m == nil {
		return
	}
	c.Set(ContextKeyManager, m)
	req := c.Request()
	c.SetRequest(req.WithContext(auth.WithManager(req.Context(), m)))
}

// GetManager returns the request's auth manager.
func GetManager(c echo.Context) (*auth.Manager, bool) {
	if m, ok := c.Get(ContextKeyManager).(*auth.Manager); ok && m != nil {
		return m, true
	}
	return auth.FromContext(c.Request().Context())
}

// GetScope returns the session scope resolved for this request.
func GetScope(c echo.Context) string {
	if scope, ok := c.Get(ContextKeyScope).(string); ok {
		return scope
	}
	return ""
}
