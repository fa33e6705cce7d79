package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting per client IP
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// NewLoginRateLimiter is strict enough to slow down credential stuffing.
func NewLoginRateLimiter() *RateLimiter {
	return NewRateLimiter(0.5, 5)
}

// NewGlobalRateLimiter is lenient and applies to every request.
func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(50, 100)
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware limits by client IP. Only methods in methods are limited;
// an empty list limits everything.
func (rl *RateLimiter) Middleware(methods ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(methods) > 0 && !contains(methods, c.Request().Method) {
				return next(c)
			}

			limiter := rl.getLimiter("ip:" + c.RealIP())
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))

			if !limiter.Allow() {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			h.Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			return next(c)
		}
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
