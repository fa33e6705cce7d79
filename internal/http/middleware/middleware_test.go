package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"holding-admin/internal/auth"
	"holding-admin/internal/config"
	"holding-admin/internal/rbac"
	"holding-admin/internal/rbac/presets"
	"holding-admin/internal/session"
	transportecho "holding-admin/internal/transport/echo"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "cms_sid"

func sessionConfig(kv session.KV) SessionConfig {
	return SessionConfig{
		CookieName: testCookie,
		TTL:        time.Hour,
		KV:         kv,
		Evaluator:  rbac.MustNew(presets.HoldingCMS()),
	}
}

// ==================== Session ====================

func TestSessionMintsScopeCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/en/admin", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var snap auth.Snapshot
	err := Session(sessionConfig(session.NewMemoryKV(0)))(func(c echo.Context) error {
		m, ok := transportecho.GetManager(c)
		require.True(t, ok)
		snap = m.Snapshot()
		return nil
	})(c)
	require.NoError(t, err)

	assert.Equal(t, auth.StateAnonymous, snap.State)
	cookie := rec.Result().Cookies()
	require.Len(t, cookie, 1)
	assert.Equal(t, testCookie, cookie[0].Name)
	assert.True(t, cookie[0].HttpOnly)
	assert.Equal(t, cookie[0].Value, transportecho.GetScope(c))
}

func TestSessionHydratesExistingScope(t *testing.T) {
	kv := session.NewMemoryKV(0)
	scope := "0b8f7a3c-1d2e-4f50-8a6b-7c8d9e0f1a2b"
	cfg := sessionConfig(kv)
	store := session.NewStore(kv, scope, session.WithValidator(cfg.Evaluator))
	require.NoError(t, store.Save(context.Background(), "tok", &rbac.Actor{ID: "a", Role: presets.RoleAdmin}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/en/admin", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: scope})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var snap auth.Snapshot
	require.NoError(t, Session(cfg)(func(c echo.Context) error {
		m, _ := transportecho.GetManager(c)
		snap = m.Snapshot()
		return nil
	})(c))

	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsAdmin)
	assert.Empty(t, rec.Result().Cookies(), "valid cookie is not reissued")
}

func TestSessionReplacesForgedCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/en/admin", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "../../etc/passwd"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Session(sessionConfig(session.NewMemoryKV(0)))(func(c echo.Context) error { return nil })(c))

	assert.NotEqual(t, "../../etc/passwd", transportecho.GetScope(c))
	require.Len(t, rec.Result().Cookies(), 1)
}

// ==================== CSRF ====================

func TestCSRFMiddleware(t *testing.T) {
	csrf := NewCSRFMiddleware(context.Background())
	defer csrf.Stop()
	e := echo.New()

	run := func(req *http.Request) (echo.Context, error) {
		c := e.NewContext(req, httptest.NewRecorder())
		c.Set(transportecho.ContextKeyScope, "scope-1")
		return c, csrf.Middleware()(func(c echo.Context) error { return nil })(c)
	}

	c, err := run(httptest.NewRequest(http.MethodGet, "/en/login", nil))
	require.NoError(t, err)
	token := GetCSRFToken(c)
	require.NotEmpty(t, token)

	_, err = run(httptest.NewRequest(http.MethodPost, "/en/login", nil))
	assert.Error(t, err, "missing token")

	bad := httptest.NewRequest(http.MethodPost, "/en/login", nil)
	bad.Header.Set("X-CSRF-Token", "forged")
	_, err = run(bad)
	assert.Error(t, err)

	form := url.Values{"csrf_token": {token}}
	good := httptest.NewRequest(http.MethodPost, "/en/login", strings.NewReader(form.Encode()))
	good.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	_, err = run(good)
	assert.NoError(t, err)

	viaHeader := httptest.NewRequest(http.MethodDelete, "/en/admin/api/news/1", nil)
	viaHeader.Header.Set("X-CSRF-Token", token)
	_, err = run(viaHeader)
	assert.NoError(t, err)
}

func TestCSRFCleanupExpiredTokens(t *testing.T) {
	csrf := NewCSRFMiddleware(context.Background())
	defer csrf.Stop()

	csrf.tokens.Store("old", &CSRFToken{Token: "x", ExpiresAt: time.Now().Add(-time.Minute)})
	csrf.tokens.Store("fresh", &CSRFToken{Token: "y", ExpiresAt: time.Now().Add(time.Minute)})

	csrf.CleanupExpiredTokens()

	_, oldExists := csrf.tokens.Load("old")
	_, freshExists := csrf.tokens.Load("fresh")
	assert.False(t, oldExists)
	assert.True(t, freshExists)
}

// ==================== RequestID / SecurityHeaders ====================

func TestRequestID(t *testing.T) {
	e := echo.New()
	mw := RequestID(zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(func(c echo.Context) error { return nil })(c))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, GetRequestID(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	require.NoError(t, mw(func(c echo.Context) error { return nil })(c))
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, SecurityHeaders(false)(func(c echo.Context) error { return nil })(c))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, SecurityHeaders(true)(func(c echo.Context) error { return nil })(c))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

// ==================== Locale ====================

func TestLocaleRedirectsUnknown(t *testing.T) {
	app := config.AppConfig{Locales: []string{"en", "ru", "uz"}, DefaultLocale: "en"}
	e := echo.New()

	tests := []struct {
		locale   string
		path     string
		status   int
		location string
	}{
		{"ru", "/ru/admin", http.StatusOK, ""},
		{"de", "/de/admin/news", http.StatusFound, "/en/admin/news"},
		{"xx", "/xx/login?next=%2Fxx%2Fadmin", http.StatusFound, "/en/login?next=%2Fxx%2Fadmin"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, tt.path, nil), rec)
			c.SetParamNames("locale")
			c.SetParamValues(tt.locale)

			require.NoError(t, Locale(app)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get(echo.HeaderLocation))
		})
	}
}
