package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"holding-admin/internal/http/handler"
	"holding-admin/internal/http/middleware"
	apperrors "holding-admin/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// NewHTTPErrorHandler maps errors to status codes, hides internal detail,
// logs with request context and answers in HTML or JSON depending on the
// client.
func NewHTTPErrorHandler(views *handler.Views) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := statusFor(err)

		requestID := middleware.GetRequestID(c)
		if requestID == "" {
			requestID = "unknown"
		}

		logger := zerolog.Ctx(c.Request().Context())
		if code >= 500 {
			logger.Error().Err(err).Int("status", code).Msg("internal_server_error")
			if code != http.StatusServiceUnavailable {
				message = "Internal server error"
			}
		} else {
			logger.Warn().Err(err).Int("status", code).Msg("client_error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else if views != nil && wantsHTML(c) {
			data := views.Page(c, http.StatusText(code))
			data.Status = code
			data.Error = message
			data.RequestID = requestID
			err = c.Render(code, "error", data)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"error":      message,
				"request_id": requestID,
			})
		}
		if err != nil {
			logger.Error().Err(err).Msg("error response failed")
		}
	}
}

func statusFor(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrUnauthenticated):
		code, message = http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrBadRequest):
		code, message = http.StatusBadRequest, "Bad request"
	case errors.Is(err, apperrors.ErrUnavailable):
		code, message = http.StatusServiceUnavailable, "Service unavailable"
	}

	// Client errors and outages carry a message meant for the user.
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" && (code < 500 || code == http.StatusServiceUnavailable) {
		message = appErr.Message
	}
	return code, message
}

func wantsHTML(c echo.Context) bool {
	if strings.Contains(c.Path(), "/admin/api/") {
		return false
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
