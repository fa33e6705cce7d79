package handler

import (
	"errors"
	"net/http"
	"strings"

	"holding-admin/internal/audit"
	"holding-admin/internal/auth"
	"holding-admin/internal/guard"
	"holding-admin/internal/metrics"
	transportecho "holding-admin/internal/transport/echo"
	apperrors "holding-admin/pkg/errors"
	"holding-admin/pkg/validator"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// LoginForm is the posted login form.
type LoginForm struct {
	Identifier string `form:"identifier" validate:"required,max=254"`
	Password   string `form:"password" validate:"required,max=1024"`
	Next       string `form:"next"`
}

type AuthHandler struct {
	views *Views
	audit *audit.Logger
}

func NewAuthHandler(views *Views, auditLogger *audit.Logger) *AuthHandler {
	return &AuthHandler{views: views, audit: auditLogger}
}

func dashboardPath(locale string) string {
	return "/" + locale + "/admin"
}

// LoginPage renders the form, or sends an already signed-in actor on.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	locale := c.Param("locale")
	next := guard.SafeNext(c.QueryParam("next"), locale, dashboardPath(locale))

	m, ok := transportecho.GetManager(c)
	if !ok {
		return apperrors.InternalServer("auth manager missing", nil)
	}
	if m.Snapshot().IsAuthenticated {
		return c.Redirect(http.StatusSeeOther, next)
	}

	data := h.views.Page(c, "Sign in")
	data.Next = next
	return c.Render(http.StatusOK, "login", data)
}

// Login submits credentials to the identity service via the manager.
func (h *AuthHandler) Login(c echo.Context) error {
	locale := c.Param("locale")
	m, ok := transportecho.GetManager(c)
	if !ok {
		return apperrors.InternalServer("auth manager missing", nil)
	}

	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return apperrors.BadRequest("invalid login form")
	}
	form.Identifier = strings.TrimSpace(form.Identifier)
	next := guard.SafeNext(form.Next, locale, dashboardPath(locale))

	if err := validator.Struct(form); err != nil {
		return h.renderLoginError(c, http.StatusBadRequest, form, next, err)
	}

	err := m.Login(c.Request().Context(), auth.Credentials{
		Identifier: form.Identifier,
		Password:   form.Password,
	})
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(loginOutcome(err)).Inc()
		if h.audit != nil {
			h.audit.LoginFailed(c, transportecho.GetScope(c), form.Identifier, err)
		}
		return h.renderLoginError(c, loginStatus(err), form, next, err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return c.Redirect(http.StatusSeeOther, next)
}

// Logout ends the session and returns to the login page.
func (h *AuthHandler) Logout(c echo.Context) error {
	m, ok := transportecho.GetManager(c)
	if !ok {
		return apperrors.InternalServer("auth manager missing", nil)
	}
	if err := m.Logout(c.Request().Context()); err != nil {
		// The in-memory session is already gone; the stale persisted copy
		// is reported but does not block the redirect.
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("logout: clearing session store failed")
	}
	return c.Redirect(http.StatusSeeOther, guard.DefaultLoginPath(c.Param("locale")))
}

func (h *AuthHandler) renderLoginError(c echo.Context, status int, form LoginForm, next string, err error) error {
	data := h.views.Page(c, "Sign in")
	data.Next = next
	data.Identifier = form.Identifier
	data.Error = publicMessage(err)
	return c.Render(status, "login", data)
}

// publicMessage shows client-facing AppError messages verbatim and hides the rest.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && !errors.Is(err, apperrors.ErrInternalServer) {
		return appErr.Error()
	}
	return "Something went wrong. Please try again."
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials), errors.Is(err, apperrors.ErrBadRequest):
		return "invalid_credentials"
	case errors.Is(err, apperrors.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
