package echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"holding-admin/internal/auth"
	"holding-admin/internal/guard"
	"holding-admin/internal/rbac"
	"holding-admin/internal/rbac/presets"
	"holding-admin/internal/session"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuthenticator struct {
	actor *rbac.Actor
}

func (s staticAuthenticator) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.LoginResult, error) {
	return &auth.LoginResult{Token: "tok", Actor: s.actor}, nil
}

func newGuards() *Guards {
	ev := rbac.MustNew(presets.HoldingCMS())
	return &Guards{
		Route:     guard.NewRouteGuard(ev, presets.RoleModerator),
		Evaluator: ev,
	}
}

// managerFor returns a hydrated manager, logged in as actor when actor is non-nil.
func managerFor(t *testing.T, actor *rbac.Actor, hydrate bool) *auth.Manager {
	t.Helper()
	ev := rbac.MustNew(presets.HoldingCMS())
	m := auth.NewManager(session.NewStore(session.NewMemoryKV(0), "tab"), ev, staticAuthenticator{actor: actor})
	if !hydrate {
		return m
	}
	require.NoError(t, m.Hydrate(context.Background()))
	if actor != nil {
		require.NoError(t, m.Login(context.Background(), auth.Credentials{Identifier: "x", Password: "y"}))
	}
	return m
}

func serve(t *testing.T, m *auth.Manager, method, target string, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("locale", "section")
	c.SetParamValues("en", "news")
	if m != nil {
		SetManager(c, m)
	}

	h := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "protected")
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) FailureResponse {
	t.Helper()
	var resp FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func moderatorActor() *rbac.Actor {
	return &rbac.Actor{
		ID:   "m",
		Role: presets.RoleModerator,
		Permissions: rbac.Permissions{
			presets.ResourceNews:    rbac.LevelRead,
			presets.ResourceRecipes: rbac.LevelWrite,
		},
	}
}

// ==================== RequireRoute ====================

func TestRequireRoute(t *testing.T) {
	g := newGuards()

	t.Run("loading", func(t *testing.T) {
		rec := serve(t, managerFor(t, nil, false), http.MethodGet, "/en/admin", g.RequireRoute(JSONResponder{}))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := serve(t, managerFor(t, nil, true), http.MethodGet, "/en/admin/news", g.RequireRoute(JSONResponder{}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/en/login?next=%2Fen%2Fadmin%2Fnews", decode(t, rec).LoginURL)
	})

	t.Run("standard role", func(t *testing.T) {
		standard := &rbac.Actor{ID: "s", Role: presets.RoleStandard}
		rec := serve(t, managerFor(t, standard, true), http.MethodGet, "/en/admin", g.RequireRoute(JSONResponder{}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "standard", decode(t, rec).Role)
	})

	t.Run("moderator", func(t *testing.T) {
		rec := serve(t, managerFor(t, moderatorActor(), true), http.MethodGet, "/en/admin", g.RequireRoute(JSONResponder{}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "protected", rec.Body.String())
	})

	t.Run("no manager", func(t *testing.T) {
		rec := serve(t, nil, http.MethodGet, "/en/admin", g.RequireRoute(JSONResponder{}))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// ==================== RequireResource / RequireSection ====================

func TestRequireResource(t *testing.T) {
	g := newGuards()
	m := managerFor(t, moderatorActor(), true)

	rec := serve(t, m, http.MethodGet, "/en/admin/recipes", g.RequireResource(presets.ResourceRecipes, rbac.LevelWrite, JSONResponder{}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, m, http.MethodGet, "/en/admin/news", g.RequireResource(presets.ResourceNews, rbac.LevelWrite, JSONResponder{}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "news", resp.Resource)
	assert.Equal(t, "write", resp.Required)
	assert.Equal(t, "read", resp.Actual)
}

func TestRequireResourceAnonymousRedirects(t *testing.T) {
	g := newGuards()

	rec := serve(t, managerFor(t, nil, true), http.MethodGet, "/en/admin/news?tab=drafts", g.RequireResource(presets.ResourceNews, rbac.LevelRead, JSONResponder{}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/en/login?next=%2Fen%2Fadmin%2Fnews%3Ftab%3Ddrafts", decode(t, rec).LoginURL)
}

func TestRequireResourceUsesRouteLoginPath(t *testing.T) {
	g := newGuards()
	g.Route.LoginPath = func(locale string) string { return "/" + locale + "/sign-in" }

	rec := serve(t, managerFor(t, nil, true), http.MethodGet, "/en/admin/news", g.RequireResource(presets.ResourceNews, rbac.LevelRead, JSONResponder{}))
	assert.Equal(t, "/en/sign-in?next=%2Fen%2Fadmin%2Fnews", decode(t, rec).LoginURL)
}

func TestGateWaitsForHydration(t *testing.T) {
	g := newGuards()

	tests := []struct {
		name string
		mw   echo.MiddlewareFunc
	}{
		{"resource", g.RequireResource(presets.ResourceNews, rbac.LevelRead, JSONResponder{})},
		{"section", g.RequireSection("section", JSONResponder{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, managerFor(t, nil, false), http.MethodGet, "/en/admin/api/news", tt.mw)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			assert.Empty(t, decode(t, rec).LoginURL)
		})
	}
}

func TestRequireSectionUsesMethodLevel(t *testing.T) {
	g := newGuards()
	m := managerFor(t, moderatorActor(), true)

	tests := []struct {
		method   string
		expected int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodPost, http.StatusForbidden},
		{http.MethodPut, http.StatusForbidden},
		{http.MethodDelete, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := serve(t, m, tt.method, "/en/admin/api/news", g.RequireSection("section", JSONResponder{}))
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestRequireSectionUnknownResource(t *testing.T) {
	g := newGuards()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/en/admin/api/payroll", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("locale", "section")
	c.SetParamValues("en", "payroll")
	SetManager(c, managerFor(t, &rbac.Actor{ID: "a", Role: presets.RoleAdmin}, true))

	err := g.RequireSection("section", JSONResponder{})(func(c echo.Context) error { return nil })(c)
	require.Error(t, err)
}

func TestGetManagerFromRequestContext(t *testing.T) {
	m := managerFor(t, nil, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithManager(req.Context(), m))
	c := echo.New().NewContext(req, httptest.NewRecorder())

	got, ok := GetManager(c)
	require.True(t, ok)
	assert.Same(t, m, got)
}
