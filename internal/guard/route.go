// Package guard decides access to protected routes and sections.
//
// RouteGuard is the coarse, role-level check applied to a whole admin
// area. ResourceGate is the per-section (resource, level) check. Both
// are pure functions of the current auth snapshot and are evaluated on
// every render; neither caches its result.
package guard

import (
	"net/url"
	"strings"

	"holding-admin/internal/auth"
	"holding-admin/internal/rbac"
)

// Outcome is the verdict of a RouteGuard.
type Outcome int

const (
	// DecisionLoading means hydration has not finished; render a
	// placeholder and do not navigate.
	DecisionLoading Outcome = iota
	DecisionRedirect
	DecisionDenied
	DecisionAllow
)

func (o Outcome) String() string {
	switch o {
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionDenied:
		return "denied"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Target is the page being requested.
type Target struct {
	Locale string
	Path   string
}

// Decision is what the page layer acts on.
type Decision struct {
	Outcome Outcome
	// RedirectTo is set for DecisionRedirect.
	RedirectTo string
	// Role is the actor's current role, set for DecisionDenied.
	Role rbac.Role
}

// RouteGuard enforces a minimum role on a protected area.
type RouteGuard struct {
	MinRole   rbac.Role
	Evaluator *rbac.Evaluator
	// LoginPath builds the login entry point for a locale. Defaults to /{locale}/login.
	LoginPath func(locale string) string
}

func NewRouteGuard(evaluator *rbac.Evaluator, minRole rbac.Role) *RouteGuard {
	return &RouteGuard{
		MinRole:   minRole,
		Evaluator: evaluator,
		LoginPath: DefaultLoginPath,
	}
}

// DefaultLoginPath is /{locale}/login.
func DefaultLoginPath(locale string) string {
	return "/" + locale + "/login"
}

// Decide evaluates snap against the guard. It never redirects while loading
// and never redirects an authenticated actor.
func (g *RouteGuard) Decide(snap auth.Snapshot, target Target) Decision {
	if snap.Loading {
		return Decision{Outcome: DecisionLoading}
	}

	if !snap.IsAuthenticated || snap.Actor == nil {
		return Decision{Outcome: DecisionRedirect, RedirectTo: g.LoginURL(target)}
	}

	if g.MinRole != "" && !g.Evaluator.IsRoleElevated(snap.Actor.Role, g.MinRole) {
		return Decision{Outcome: DecisionDenied, Role: snap.Actor.Role}
	}

	return Decision{Outcome: DecisionAllow}
}

// LoginURL is the login entry point for target with target.Path as ?next=.
// A nil guard uses DefaultLoginPath.
func (g *RouteGuard) LoginURL(target Target) string {
	var loginPath func(string) string
	if g != nil {
		loginPath = g.LoginPath
	}
	if loginPath == nil {
		loginPath = DefaultLoginPath
	}
	dest := loginPath(target.Locale)
	if target.Path == "" {
		return dest
	}
	return dest + "?next=" + url.QueryEscape(target.Path)
}

// SafeNext returns next if it is a local path under /{locale}/, otherwise fallback.
// It keeps post-login redirects on this site.
func SafeNext(next, locale, fallback string) string {
	if next == "" || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	prefix := "/" + locale + "/"
	if !strings.HasPrefix(u.Path, prefix) || strings.Contains(u.Path, "/../") || strings.HasSuffix(u.Path, "/..") {
		return fallback
	}
	return u.RequestURI()
}
