package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	transportecho "holding-admin/internal/transport/echo"

	"github.com/labstack/echo/v4"
)

const (
	csrfTokenLength = 32
	csrfTokenTTL    = 24 * time.Hour
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	cleanupInterval = 1 * time.Hour

	// CSRFContextKey holds the token forms must echo back.
	CSRFContextKey = "csrf_token"
)

// CSRFToken represents a CSRF token with expiry
type CSRFToken struct {
	Token     string
	ExpiresAt time.Time
}

// CSRFMiddleware issues one synchronizer token per session scope and
// checks it on unsafe methods.
type CSRFMiddleware struct {
	tokens  sync.Map // scope -> *CSRFToken
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewCSRFMiddleware creates a new CSRF middleware with background cleanup
func NewCSRFMiddleware(ctx context.Context) *CSRFMiddleware {
	cleanupCtx, cancel := context.WithCancel(ctx)
	m := &CSRFMiddleware{
		ctx:     cleanupCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Stop gracefully stops the cleanup goroutine
func (m *CSRFMiddleware) Stop() {
	m.cancel()
	<-m.stopped
}

func (m *CSRFMiddleware) cleanupLoop() {
	defer close(m.stopped)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpiredTokens()
		}
	}
}

func generateToken() (string, error) {
	bytes := make([]byte, csrfTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GetOrCreateToken gets or creates the CSRF token of a session scope
func (m *CSRFMiddleware) GetOrCreateToken(scope string) (string, error) {
	if tokenRaw, exists := m.tokens.Load(scope); exists {
		if csrfToken, ok := tokenRaw.(*CSRFToken); ok && time.Now().Before(csrfToken.ExpiresAt) {
			return csrfToken.Token, nil
		}
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	m.tokens.Store(scope, &CSRFToken{
		Token:     token,
		ExpiresAt: time.Now().Add(csrfTokenTTL),
	})
	return token, nil
}

// Middleware must run after the session middleware has resolved the scope.
func (m *CSRFMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope := transportecho.GetScope(c)
			if scope == "" {
				return echo.NewHTTPError(http.StatusForbidden, "missing session")
			}

			method := c.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				token, err := m.GetOrCreateToken(scope)
				if err != nil {
					return err
				}
				c.Set(CSRFContextKey, token)
				return next(c)
			}

			tokenRaw, exists := m.tokens.Load(scope)
			if !exists {
				return echo.NewHTTPError(http.StatusForbidden, "CSRF token not found")
			}
			csrfToken, ok := tokenRaw.(*CSRFToken)
			if !ok || time.Now().After(csrfToken.ExpiresAt) {
				return echo.NewHTTPError(http.StatusForbidden, "CSRF token expired")
			}

			provided := c.Request().Header.Get(csrfHeaderName)
			if provided == "" {
				provided = c.FormValue(csrfFormField)
			}
			if provided == "" {
				return echo.NewHTTPError(http.StatusForbidden, "CSRF token required")
			}

			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(provided), []byte(csrfToken.Token)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}

			c.Set(CSRFContextKey, csrfToken.Token)
			return next(c)
		}
	}
}

// CleanupExpiredTokens removes expired tokens (called by background goroutine)
func (m *CSRFMiddleware) CleanupExpiredTokens() {
	now := time.Now()
	m.tokens.Range(func(key, value any) bool {
		if csrfToken, ok := value.(*CSRFToken); ok && now.After(csrfToken.ExpiresAt) {
			m.tokens.Delete(key)
		}
		return true
	})
}

// GetCSRFToken returns the token to embed in forms for this request.
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(CSRFContextKey).(string)
	return token
}
