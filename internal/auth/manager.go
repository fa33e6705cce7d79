// Package auth owns the session state of one browser context.
//
// A Manager hydrates from a session.Store, performs login and logout
// against an external Authenticator, and exposes permission checks and
// derived role flags. It is created per scope and passed explicitly or
// through a context; there is no package-level session state.
package auth

import (
	"context"
	"sync"
	"time"

	"holding-admin/internal/rbac"
	"holding-admin/internal/rbac/presets"
	"holding-admin/internal/session"
	apperrors "holding-admin/pkg/errors"

	"github.com/rs/zerolog"
)

// State is the lifecycle position of a Manager.
type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Cause identifies what triggered a state change.
type Cause string

const (
	CauseHydrating     Cause = "hydrating"
	CauseHydrated      Cause = "hydrated"
	CauseLogin         Cause = "login"
	CauseLogout        Cause = "logout"
	CauseTokenRejected Cause = "token_rejected"
)

// Credentials are what the actor types into the login form.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResult is a successful answer from the identity service.
type LoginResult struct {
	Token string
	Actor *rbac.Actor
}

// Authenticator exchanges credentials for a token and actor profile.
// Its errors are returned to Login callers unchanged.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*LoginResult, error)
}

// Snapshot is a point-in-time projection of the Manager state.
type Snapshot struct {
	State              State
	Actor              *rbac.Actor
	Loading            bool
	IsAuthenticated    bool
	IsAdmin            bool
	IsModerator        bool
	IsAdminOrModerator bool
}

// Change is delivered to listeners after every transition.
type Change struct {
	Cause    Cause
	From     State
	Snapshot Snapshot
	// Actor is the actor that logged in, or the one that was signed out.
	Actor  *rbac.Actor
	Reason string
}

type Listener func(Change)

// Manager is safe for concurrent use. Concurrent logins are not
// deduplicated; the last one to finish wins.
type Manager struct {
	mu    sync.RWMutex
	state State
	token string
	actor *rbac.Actor

	store         *session.Store
	evaluator     *rbac.Evaluator
	authenticator Authenticator
	moderatorRole rbac.Role
	listeners     []Listener
	logger        zerolog.Logger
	now           func() time.Time
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithListener registers a listener at construction time.
func WithListener(fn Listener) Option {
	return func(m *Manager) { m.listeners = append(m.listeners, fn) }
}

// WithModeratorRole overrides the role reported by Snapshot.IsModerator.
func WithModeratorRole(role rbac.Role) Option {
	return func(m *Manager) { m.moderatorRole = role }
}

// WithClock replaces the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *session.Store, evaluator *rbac.Evaluator, authenticator Authenticator, opts ...Option) *Manager {
	m := &Manager{
		state:         StateUninitialized,
		store:         store,
		evaluator:     evaluator,
		authenticator: authenticator,
		moderatorRole: presets.RoleModerator,
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnChange registers a listener. Listeners run synchronously, in
// registration order, after the state lock is released.
func (m *Manager) OnChange(fn Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Hydrate restores the persisted session. Only the first call has any
// effect; later calls return immediately.
func (m *Manager) Hydrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = StateHydrating
	m.mu.Unlock()
	m.notify(CauseHydrating, StateUninitialized, nil, "")

	sess, ok := m.store.Load(ctx)
	if ok && tokenExpired(sess.Token, m.now()) {
		m.logger.Info().Str("scope", m.store.Scope()).Msg(msgStoredTokenExpired)
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn().Err(err).Str("scope", m.store.Scope()).Msg(msgClearExpiredFailed)
		}
		ok = false
	}

	m.mu.Lock()
	if m.state != StateHydrating {
		// A login or logout finished first and owns the state now.
		m.mu.Unlock()
		return nil
	}
	if ok {
		m.state = StateAuthenticated
		m.token = sess.Token
		m.actor = sess.Actor
	} else {
		m.state = StateAnonymous
	}
	m.mu.Unlock()

	m.logger.Debug().Str("scope", m.store.Scope()).Bool("authenticated", ok).Msg(msgHydrated)
	m.notify(CauseHydrated, StateHydrating, nil, "")
	return nil
}

// Login authenticates and persists the new session. On any failure the
// state is left as it was and the error is returned unchanged.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if m.authenticator == nil {
		return apperrors.Unavailable(msgNoAuthenticator, nil)
	}

	res, err := m.authenticator.Authenticate(ctx, creds)
	if err != nil {
		m.logger.Info().Err(err).Str("scope", m.store.Scope()).Msg(msgLoginFailed)
		return err
	}
	if res == nil || res.Token == "" || res.Actor == nil {
		return apperrors.Unavailable(msgIncompleteSession, nil)
	}
	if err := m.evaluator.ValidateActor(res.Actor); err != nil {
		return apperrors.Unavailable(msgUnusableProfile, err)
	}

	actor := res.Actor.Clone()
	if err := m.store.Save(ctx, res.Token, actor); err != nil {
		return apperrors.InternalServer(msgPersistFailed, err)
	}

	m.mu.Lock()
	from := m.state
	m.state = StateAuthenticated
	m.token = res.Token
	m.actor = actor
	m.mu.Unlock()

	m.logger.Info().Str("scope", m.store.Scope()).Str("actor_id", actor.ID).Str("role", string(actor.Role)).Msg(msgLoginSucceeded)
	m.notify(CauseLogin, from, actor, "")
	return nil
}

// Logout clears the persisted and in-memory session. Calling it while
// already anonymous does nothing.
func (m *Manager) Logout(ctx context.Context) error {
	return m.end(ctx, CauseLogout, "")
}

// RejectToken is called when the backend refuses the current token.
// It behaves like Logout and records the reason.
func (m *Manager) RejectToken(ctx context.Context, reason string) error {
	m.mu.RLock()
	authenticated := m.state == StateAuthenticated
	m.mu.RUnlock()
	if authenticated {
		m.logger.Warn().Str("scope", m.store.Scope()).Str("reason", reason).Msg(msgTokenRejected)
	}
	return m.end(ctx, CauseTokenRejected, reason)
}

func (m *Manager) end(ctx context.Context, cause Cause, reason string) error {
	m.mu.Lock()
	from := m.state
	if from == StateAnonymous {
		m.mu.Unlock()
		return nil
	}
	prev := m.actor
	m.state = StateAnonymous
	m.token = ""
	m.actor = nil
	m.mu.Unlock()

	// Memory is already cleared, so a failing store still leaves this
	// context signed out.
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Error().Err(err).Str("scope", m.store.Scope()).Msg(msgLogoutClearFailed)
	}

	m.notify(cause, from, prev, reason)
	return err
}

// HasPermission reports whether the current actor holds at least level on resource.
func (m *Manager) HasPermission(resource rbac.Resource, level rbac.Level) bool {
	m.mu.RLock()
	actor := m.actor
	m.mu.RUnlock()
	return m.evaluator.Evaluate(actor, resource, level)
}

// EffectiveLevel is the level the current actor is treated as holding.
func (m *Manager) EffectiveLevel(resource rbac.Resource) rbac.Level {
	m.mu.RLock()
	actor := m.actor
	m.mu.RUnlock()
	return m.evaluator.EffectiveLevel(actor, resource)
}

// Token returns the bearer token of the current session, if any.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.state == StateAuthenticated && m.token != ""
}

func (m *Manager) Evaluator() *rbac.Evaluator {
	return m.evaluator
}

// Snapshot computes the current projection. Nothing is cached between calls.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   m.state,
		Loading: m.state == StateUninitialized || m.state == StateHydrating,
	}
	if m.state != StateAuthenticated || m.token == "" || m.actor == nil {
		return snap
	}

	snap.IsAuthenticated = true
	snap.Actor = m.actor.Clone()
	snap.IsAdmin = m.evaluator.IsAdmin(m.actor)
	snap.IsModerator = m.evaluator.HasRole(m.actor, m.moderatorRole)
	snap.IsAdminOrModerator = snap.IsAdmin || snap.IsModerator
	return snap
}

func (m *Manager) notify(cause Cause, from State, actor *rbac.Actor, reason string) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	change := Change{Cause: cause, From: from, Snapshot: snap, Actor: actor.Clone(), Reason: reason}
	for _, fn := range listeners {
		fn(change)
	}
}
