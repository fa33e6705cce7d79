package echo

import (
	"net/http"

	"holding-admin/internal/audit"
	"holding-admin/internal/guard"
	"holding-admin/internal/metrics"
	"holding-admin/internal/rbac"
	apperrors "holding-admin/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const paramLocale = "locale"

// Guards bundles what the guard middlewares need.
type Guards struct {
	Route     *guard.RouteGuard
	Evaluator *rbac.Evaluator
	Audit     *audit.Logger
}

// RequireRoute applies the route guard to every request of a group.
func (g *Guards) RequireRoute(responder Responder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m, ok := GetManager(c)
			if !ok {
				return apperrors.InternalServer(msgManagerUnavailable, nil)
			}

			snap := m.Snapshot()
			decision := g.Route.Decide(snap, guard.Target{
				Locale: c.Param(paramLocale),
				Path:   c.Request().URL.RequestURI(),
			})
			metrics.GuardDecisions.WithLabelValues(decision.Outcome.String()).Inc()

			switch decision.Outcome {
			case guard.DecisionLoading:
				return responder.Loading(c)
			case guard.DecisionRedirect:
				return responder.Unauthenticated(c, decision.RedirectTo)
			case guard.DecisionDenied:
				zerolog.Ctx(c.Request().Context()).Info().
					Str("role", string(decision.Role)).
					Str("min_role", string(g.Route.MinRole)).
					Msg("rbac: role check denied")
				if g.Audit != nil {
					g.Audit.LogFromContext(c, &audit.Event{
						Action:    audit.ActionAccessRoute,
						Status:    audit.StatusDenied,
						ActorID:   snap.Actor.ID,
						ActorRole: decision.Role,
						Scope:     GetScope(c),
					})
				}
				return responder.RoleDenied(c, decision.Role)
			}

			return next(c)
		}
	}
}

// RequireResource gates a route on a fixed (resource, level) requirement.
func (g *Guards) RequireResource(resource rbac.Resource, level rbac.Level, responder Responder) echo.MiddlewareFunc {
	gate := guard.NewResourceGate(resource, level)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return g.check(c, gate, responder, next)
		}
	}
}

// RequireSection gates on the resource named by the :param path segment.
// Safe methods need read access, everything else needs write.
func (g *Guards) RequireSection(param string, responder Responder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			resource, err := g.Evaluator.ParseResource(c.Param(param))
			if err != nil {
				return apperrors.NotFound("unknown section")
			}
			return g.check(c, guard.NewResourceGate(resource, LevelForMethod(c.Request().Method)), responder, next)
		}
	}
}

// LevelForMethod maps an HTTP method to the access level it needs.
func LevelForMethod(method string) rbac.Level {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return rbac.LevelRead
	default:
		return rbac.LevelWrite
	}
}

func (g *Guards) check(c echo.Context, gate guard.ResourceGate, responder Responder, next echo.HandlerFunc) error {
	m, ok := GetManager(c)
	if !ok {
		return apperrors.InternalServer(msgManagerUnavailable, nil)
	}

	result := gate.Check(m)
	c.Set(ContextKeyResource, result.Resource)
	if result.Loading {
		metrics.GateDecisions.WithLabelValues(string(result.Resource), result.Required.String(), "loading").Inc()
		return responder.Loading(c)
	}

	outcome := "allowed"
	if !result.Allowed {
		outcome = "denied"
	}
	metrics.GateDecisions.WithLabelValues(string(result.Resource), result.Required.String(), outcome).Inc()

	if !result.Allowed {
		snap := m.Snapshot()
		if !snap.IsAuthenticated || snap.Actor == nil {
			return responder.Unauthenticated(c, g.Route.LoginURL(guard.Target{
				Locale: c.Param(paramLocale),
				Path:   c.Request().URL.RequestURI(),
			}))
		}
		if g.Audit != nil {
			g.Audit.LogFromContext(c, &audit.Event{
				Action:    audit.ActionAccessResource,
				Status:    audit.StatusDenied,
				ActorID:   snap.Actor.ID,
				ActorRole: snap.Actor.Role,
				Resource:  result.Resource,
				Required:  result.Required,
				Actual:    result.Actual,
				Scope:     GetScope(c),
			})
		}
		return responder.ResourceDenied(c, result)
	}

	return next(c)
}
