package handler

import (
	"net/http"

	"holding-admin/internal/guard"
	"holding-admin/internal/rbac"
	transportecho "holding-admin/internal/transport/echo"
	apperrors "holding-admin/pkg/errors"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	views     *Views
	evaluator *rbac.Evaluator
}

func NewAdminHandler(views *Views, evaluator *rbac.Evaluator) *AdminHandler {
	return &AdminHandler{views: views, evaluator: evaluator}
}

// Dashboard lists the sections the actor may read.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	m, ok := transportecho.GetManager(c)
	if !ok {
		return apperrors.InternalServer("auth manager missing", nil)
	}

	data := h.views.Page(c, "Dashboard")
	for _, s := range guard.Sections(h.evaluator, m) {
		if s.CanRead {
			data.Sections = append(data.Sections, s)
		}
	}
	return c.Render(http.StatusOK, "dashboard", data)
}

// Section renders the shell of one resource section. The route is gated
// by RequireSection, so read access is already established.
func (h *AdminHandler) Section(c echo.Context) error {
	m, ok := transportecho.GetManager(c)
	if !ok {
		return apperrors.InternalServer("auth manager missing", nil)
	}
	resource, ok := c.Get(transportecho.ContextKeyResource).(rbac.Resource)
	if !ok {
		return apperrors.NotFound("unknown section")
	}

	data := h.views.Page(c, string(resource))
	data.Section = guard.SectionAccess{
		Resource: resource,
		Level:    m.EffectiveLevel(resource),
		CanRead:  m.HasPermission(resource, rbac.LevelRead),
		CanWrite: m.HasPermission(resource, rbac.LevelWrite),
	}
	return c.Render(http.StatusOK, "section", data)
}
