package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/broken", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, errors.New("short and stout"))
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200"))
	assert.Equal(t, before+1, after)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/broken", "418")))
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPActiveRequests))
}
