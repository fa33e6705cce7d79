// Package audit records security-relevant events as structured log lines.
package audit

import (
	"context"
	"time"

	"holding-admin/internal/auth"
	"holding-admin/internal/rbac"
	"holding-admin/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Action represents the action being audited
type Action string

const (
	ActionLogin          Action = "login"
	ActionLogout         Action = "logout"
	ActionTokenRejected  Action = "token_rejected"
	ActionAccessRoute    Action = "access_route"
	ActionAccessResource Action = "access_resource"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// Event represents an audit event
type Event struct {
	ID        uuid.UUID
	Action    Action
	Status    Status
	ActorID   string
	ActorRole rbac.Role
	Resource  rbac.Resource
	Required  rbac.Level
	Actual    rbac.Level
	Path      string
	Scope     string
	IPAddress string
	UserAgent string
	RequestID string
	Reason    string
	CreatedAt time.Time
}

// Logger writes audit events to a dedicated zerolog logger.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(l zerolog.Logger) *Logger {
	return &Logger{logger: l.With().Str("component", "audit").Logger()}
}

// Log records an audit event
func (l *Logger) Log(ctx context.Context, event *Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var e *zerolog.Event
	switch event.Status {
	case StatusSuccess:
		e = l.logger.Info()
	default:
		e = l.logger.Warn()
	}

	e = e.Str("event_id", event.ID.String()).
		Str("action", string(event.Action)).
		Str("status", string(event.Status)).
		Time("at", event.CreatedAt)

	if event.ActorID != "" {
		e = e.Str("actor_id", event.ActorID)
	}
	if event.ActorRole != "" {
		e = e.Str("actor_role", string(event.ActorRole))
	}
	if event.Resource != "" {
		e = e.Str("resource", string(event.Resource)).
			Stringer("required", event.Required).
			Stringer("actual", event.Actual)
	}
	if event.Path != "" {
		e = e.Str("path", event.Path)
	}
	if event.Scope != "" {
		e = e.Str("scope", event.Scope)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.Reason != "" {
		e = e.Str("reason", logger.SanitizeLogMessage(event.Reason))
	}
	e.Msg("audit")
}

// LogFromContext fills request metadata from c and records the event.
func (l *Logger) LogFromContext(c echo.Context, event *Event) {
	event.IPAddress = c.RealIP()
	event.UserAgent = c.Request().UserAgent()
	event.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	if event.Path == "" {
		event.Path = c.Request().URL.Path
	}
	l.Log(c.Request().Context(), event)
}

// Listener turns auth session transitions into audit events for the request in c.
func (l *Logger) Listener(c echo.Context, scope string) auth.Listener {
	return func(change auth.Change) {
		event := &Event{Scope: scope, Reason: change.Reason}
		switch change.Cause {
		case auth.CauseLogin:
			event.Action = ActionLogin
			event.Status = StatusSuccess
		case auth.CauseLogout:
			event.Action = ActionLogout
			event.Status = StatusSuccess
		case auth.CauseTokenRejected:
			event.Action = ActionTokenRejected
			event.Status = StatusDenied
		default:
			return
		}
		if change.Actor != nil {
			event.ActorID = change.Actor.ID
			event.ActorRole = change.Actor.Role
		}
		l.LogFromContext(c, event)
	}
}

// LoginFailed records a rejected login attempt with a masked identifier.
func (l *Logger) LoginFailed(c echo.Context, scope, identifier string, err error) {
	l.LogFromContext(c, &Event{
		Action:  ActionLogin,
		Status:  StatusFailure,
		ActorID: logger.MaskIdentifier(identifier),
		Scope:   scope,
		Reason:  err.Error(),
	})
}
