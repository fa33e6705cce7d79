package rbac

import (
	"fmt"
	"strings"
)

// Role represents an actor's role in the admin console (hierarchical)
type Role string

// Resource represents a protected content category
type Resource string

// Level represents the strength of a permission grant on a resource.
// Levels are totally ordered: LevelNone < LevelRead < LevelWrite.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
)

var levelNames = map[Level]string{
	LevelNone:  "none",
	LevelRead:  "read",
	LevelWrite: "write",
}

// ParseLevel parses the text form of a level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return LevelNone, nil
	case "read":
		return LevelRead, nil
	case "write":
		return LevelWrite, nil
	}
	return LevelNone, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Rank returns the numeric rank used for comparisons
func (l Level) Rank() int {
	return int(l)
}

// Satisfies reports whether l grants at least the required level
func (l Level) Satisfies(required Level) bool {
	return l.Rank() >= required.Rank()
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unrecognised values degrade to LevelNone.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		*l = LevelNone
		return nil
	}
	*l = parsed
	return nil
}

// Permissions maps a resource to the level granted on it
type Permissions map[Resource]Level

// Actor is an authenticated user profile as returned by the identity service
type Actor struct {
	ID          string      `json:"id"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	Name        string      `json:"name,omitempty"`
	Email       string      `json:"email,omitempty"`
}

// Stored returns the level recorded in the permissions map, LevelNone if absent
func (a *Actor) Stored(resource Resource) Level {
	if a == nil || a.Permissions == nil {
		return LevelNone
	}
	return a.Permissions[resource]
}

// Clone returns a deep copy of the actor
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	cloned := *a
	if a.Permissions != nil {
		cloned.Permissions = make(Permissions, len(a.Permissions))
		for res, lvl := range a.Permissions {
			cloned.Permissions[res] = lvl
		}
	}
	return &cloned
}

// RoleDefinition defines a role and its privilege level
type RoleDefinition struct {
	Name  Role
	Level int
}
