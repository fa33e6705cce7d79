package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "holding-admin/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "slow down"},
		{"not found", apperrors.NotFound("unknown section"), http.StatusNotFound, "unknown section"},
		{"unauthenticated", apperrors.Unauthenticated(""), http.StatusUnauthorized, "Authentication required"},
		{"invalid credentials", apperrors.InvalidCredentials("Wrong password"), http.StatusUnauthorized, "Wrong password"},
		{"forbidden", apperrors.Forbidden("no"), http.StatusForbidden, "no"},
		{"bad request", apperrors.BadRequest("identifier is required"), http.StatusBadRequest, "identifier is required"},
		{"unavailable keeps message", apperrors.Unavailable("identity service is down", nil), http.StatusServiceUnavailable, "identity service is down"},
		{"internal hides message", apperrors.InternalServer("db exploded", errors.New("boom")), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := statusFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestHTTPErrorHandler_JSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/en/admin/api/news", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(nil)(apperrors.InternalServer("secret detail", nil), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error","request_id":"unknown"}`, rec.Body.String())
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodHead, "/en/admin", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(nil)(apperrors.NotFound("gone"), c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
