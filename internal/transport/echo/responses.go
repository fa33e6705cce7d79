package echo

import (
	"net/http"

	"holding-admin/internal/guard"
	"holding-admin/internal/rbac"

	"github.com/labstack/echo/v4"
)

const (
	statusFailure = "Failure"

	msgSessionLoading     = "session is still loading"
	msgAuthRequired       = "authentication required"
	msgRoleInsufficient   = "your role does not grant access to this area"
	msgResourceDenied     = "insufficient permission for this resource"
	msgManagerUnavailable = "auth manager missing from request context"
)

type FailureResponse struct {
	Status       string `json:"status"`
	ResponseCode int    `json:"response_code"`
	ErrorMessage string `json:"error_message"`
	LoginURL     string `json:"login_url,omitempty"`
	Role         string `json:"role,omitempty"`
	Resource     string `json:"resource,omitempty"`
	Required     string `json:"required,omitempty"`
	Actual       string `json:"actual,omitempty"`
}

func getFailureResponse(code int, message string) FailureResponse {
	return FailureResponse{
		Status:       statusFailure,
		ResponseCode: code,
		ErrorMessage: message,
	}
}

// Responder renders the non-allow outcomes of guards and gates.
type Responder interface {
	Loading(c echo.Context) error
	Unauthenticated(c echo.Context, loginURL string) error
	RoleDenied(c echo.Context, role rbac.Role) error
	ResourceDenied(c echo.Context, result guard.GateResult) error
}

// JSONResponder answers API clients.
type JSONResponder struct{}

func (JSONResponder) Loading(c echo.Context) error {
	c.Response().Header().Set("Retry-After", "1")
	return c.JSON(http.StatusServiceUnavailable, getFailureResponse(http.StatusServiceUnavailable, msgSessionLoading))
}

func (JSONResponder) Unauthenticated(c echo.Context, loginURL string) error {
	resp := getFailureResponse(http.StatusUnauthorized, msgAuthRequired)
	resp.LoginURL = loginURL
	return c.JSON(http.StatusUnauthorized, resp)
}

func (JSONResponder) RoleDenied(c echo.Context, role rbac.Role) error {
	resp := getFailureResponse(http.StatusForbidden, msgRoleInsufficient)
	resp.Role = string(role)
	return c.JSON(http.StatusForbidden, resp)
}

func (JSONResponder) ResourceDenied(c echo.Context, result guard.GateResult) error {
	resp := getFailureResponse(http.StatusForbidden, msgResourceDenied)
	resp.Resource = string(result.Resource)
	resp.Required = result.Required.String()
	resp.Actual = result.Actual.String()
	return c.JSON(http.StatusForbidden, resp)
}
