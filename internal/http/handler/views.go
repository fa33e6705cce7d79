package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"holding-admin/internal/guard"
	"holding-admin/internal/http/middleware"
	"holding-admin/internal/rbac"
	transportecho "holding-admin/internal/transport/echo"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData is the single view model shared by all templates.
type PageData struct {
	Locale    string
	Locales   []string
	Title     string
	Refresh   int
	Actor     *rbac.Actor
	CSRFToken string

	// login
	Error      string
	Next       string
	Identifier string

	// denials
	Role rbac.Role
	Gate guard.GateResult

	// admin
	Sections []guard.SectionAccess
	Section  guard.SectionAccess

	// errors
	Status    int
	RequestID string
}

// Views renders the embedded templates. It implements echo.Renderer.
type Views struct {
	templates *template.Template
	locales   []string
}

func NewViews(locales []string) (*Views, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Views{templates: t, locales: locales}, nil
}

func (v *Views) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	// Render into a buffer so a failing template never leaves a half-written page.
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Page fills the fields every page needs.
func (v *Views) Page(c echo.Context, title string) PageData {
	data := PageData{
		Locale:    c.Param("locale"),
		Locales:   v.locales,
		Title:     title,
		CSRFToken: middleware.GetCSRFToken(c),
	}
	if m, ok := transportecho.GetManager(c); ok {
		data.Actor = m.Snapshot().Actor
	}
	return data
}

// HTMLResponder renders guard outcomes as pages.
type HTMLResponder struct {
	Views *Views
}

var _ transportecho.Responder = HTMLResponder{}

func (r HTMLResponder) Loading(c echo.Context) error {
	data := r.Views.Page(c, "Loading")
	data.Refresh = 1
	return c.Render(http.StatusOK, "loading", data)
}

func (r HTMLResponder) Unauthenticated(c echo.Context, loginURL string) error {
	return c.Redirect(http.StatusSeeOther, loginURL)
}

func (r HTMLResponder) RoleDenied(c echo.Context, role rbac.Role) error {
	data := r.Views.Page(c, "Access denied")
	data.Role = role
	return c.Render(http.StatusForbidden, "denied_role", data)
}

func (r HTMLResponder) ResourceDenied(c echo.Context, result guard.GateResult) error {
	data := r.Views.Page(c, "Access denied")
	data.Gate = result
	return c.Render(http.StatusForbidden, "denied_resource", data)
}
