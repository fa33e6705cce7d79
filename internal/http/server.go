package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/url"

	"holding-admin/internal/audit"
	"holding-admin/internal/auth"
	"holding-admin/internal/config"
	"holding-admin/internal/guard"
	"holding-admin/internal/http/handler"
	"holding-admin/internal/http/middleware"
	"holding-admin/internal/metrics"
	"holding-admin/internal/rbac"
	"holding-admin/internal/session"
	transportecho "holding-admin/internal/transport/echo"
	"holding-admin/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	requestBodyLimit = "1M"
)

type ServerDependencies struct {
	Config        *config.Config
	SessionKV     session.KV
	Evaluator     *rbac.Evaluator
	Authenticator auth.Authenticator
	AuditLogger   *audit.Logger
	Logger        zerolog.Logger
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
	csrf *middleware.CSRFMiddleware
}

func NewServer(ctx context.Context, deps *ServerDependencies) (*Server, error) {
	cfg := deps.Config

	views, err := handler.NewViews(cfg.App.Locales)
	if err != nil {
		return nil, err
	}

	minRole, err := deps.Evaluator.ValidateRole(cfg.App.AdminMinRole)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_MIN_ROLE: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = views
	e.HTTPErrorHandler = NewHTTPErrorHandler(views)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// Request ID first, so every log line carries it
	e.Use(middleware.RequestID(deps.Logger))
	e.Use(middleware.RequestLogger())
	e.Use(metrics.Middleware())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.SecurityHeaders(cfg.Session.CookieSecure))
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(middleware.NewGlobalRateLimiter().Middleware())

	csrf := middleware.NewCSRFMiddleware(ctx)
	loginLimiter := middleware.NewLoginRateLimiter()

	guards := &transportecho.Guards{
		Route:     guard.NewRouteGuard(deps.Evaluator, minRole),
		Evaluator: deps.Evaluator,
		Audit:     deps.AuditLogger,
	}
	html := handler.HTMLResponder{Views: views}
	api := transportecho.JSONResponder{}

	authHandler := handler.NewAuthHandler(views, deps.AuditLogger)
	adminHandler := handler.NewAdminHandler(views, deps.Evaluator)

	e.GET("/health", healthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.Server.Profiling {
		profiling.Register(e)
	}
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(stdhttp.StatusFound, "/"+cfg.App.DefaultLocale+"/admin")
	})

	localized := e.Group("/:locale",
		middleware.Locale(cfg.App),
		middleware.Session(middleware.SessionConfig{
			CookieName:    cfg.Session.CookieName,
			CookieSecure:  cfg.Session.CookieSecure,
			TTL:           cfg.Session.TTL,
			KV:            deps.SessionKV,
			Evaluator:     deps.Evaluator,
			Authenticator: deps.Authenticator,
			Audit:         deps.AuditLogger,
		}),
		csrf.Middleware(),
	)

	localized.GET("/login", authHandler.LoginPage)
	localized.POST("/login", authHandler.Login, loginLimiter.Middleware())
	localized.POST("/logout", authHandler.Logout)

	admin := localized.Group("/admin", guards.RequireRoute(html))
	admin.GET("", adminHandler.Dashboard)
	admin.GET("/:section", adminHandler.Section, guards.RequireSection("section", html))

	backend := handler.BackendUnavailable
	apiMiddleware := []echo.MiddlewareFunc{
		guards.RequireRoute(api),
		guards.RequireSection("section", api),
	}
	if cfg.Backend.APIURL != "" {
		target, err := url.Parse(cfg.Backend.APIURL)
		if err != nil {
			return nil, fmt.Errorf("BACKEND_API_URL: %w", err)
		}
		apiMiddleware = append(apiMiddleware, handler.NewAPIProxy(target))
	}
	sectionAPI := localized.Group("/admin/api/:section", apiMiddleware...)
	sectionAPI.Any("", backend)
	sectionAPI.Any("/*", backend)

	return &Server{
		echo: e,
		deps: deps,
		csrf: csrf,
	}, nil
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start(address string) error {
	if err := s.echo.Start(address); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.csrf.Stop()
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}
