// Package metrics exposes Prometheus collectors for the admin console.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holding_admin_http_requests_total",
			Help: "HTTP requests handled, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holding_admin_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "holding_admin_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	// Authorization
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holding_admin_login_attempts_total",
			Help: "Login attempts by outcome (success, invalid_credentials, unavailable, error)",
		},
		[]string{"outcome"},
	)

	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holding_admin_guard_decisions_total",
			Help: "Route guard decisions by outcome (loading, redirect, denied, allow)",
		},
		[]string{"decision"},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holding_admin_gate_decisions_total",
			Help: "Resource gate checks by resource, required level and result",
		},
		[]string{"resource", "required", "result"},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holding_admin_session_transitions_total",
			Help: "Auth session manager transitions by cause",
		},
		[]string{"cause"},
	)

	CorruptSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holding_admin_corrupt_sessions_total",
			Help: "Persisted sessions discarded because they could not be decoded",
		},
	)

	// Identity service circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "holding_admin_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holding_admin_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)
)

// Middleware records request count, latency and in-flight requests.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			HTTPActiveRequests.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response before reading the status.
				c.Error(err)
			}

			HTTPActiveRequests.Dec()

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
			HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}
