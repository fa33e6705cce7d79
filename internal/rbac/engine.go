package rbac

import (
	"fmt"
	"strings"
)

// Evaluator decides resource-level access for actors based on a validated Config.
// It is safe for concurrent use: all internal state is read-only after New.
type Evaluator struct {
	config    Config
	roleIndex map[Role]int
	resources map[Resource]bool
}

// New creates an Evaluator from a validated Config
func New(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ev := &Evaluator{config: cfg}
	ev.buildLookups()
	return ev, nil
}

// MustNew creates an Evaluator and panics on invalid config
func MustNew(cfg Config) *Evaluator {
	ev, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return ev
}

func (ev *Evaluator) buildLookups() {
	cfg := ev.config

	ev.roleIndex = make(map[Role]int, len(cfg.Roles))
	for _, rd := range cfg.Roles {
		ev.roleIndex[rd.Name] = rd.Level
	}

	ev.resources = make(map[Resource]bool, len(cfg.Resources))
	for _, res := range cfg.Resources {
		ev.resources[res] = true
	}
}

// Evaluate reports whether actor holds at least the required level on resource.
// A nil actor fails every check, the admin role passes every check, and a
// resource outside the vocabulary or missing from the actor's permissions
// counts as LevelNone.
func (ev *Evaluator) Evaluate(actor *Actor, resource Resource, required Level) bool {
	if actor == nil {
		return false
	}
	if ev.IsAdmin(actor) {
		return true
	}
	if !ev.resources[resource] {
		return LevelNone.Satisfies(required)
	}
	return actor.Stored(resource).Satisfies(required)
}

// EffectiveLevel returns the level the actor is treated as holding on resource
func (ev *Evaluator) EffectiveLevel(actor *Actor, resource Resource) Level {
	if actor == nil {
		return LevelNone
	}
	if ev.IsAdmin(actor) {
		return LevelWrite
	}
	if !ev.resources[resource] {
		return LevelNone
	}
	return actor.Stored(resource)
}

// IsAdmin reports whether the actor carries the overriding admin role
func (ev *Evaluator) IsAdmin(actor *Actor) bool {
	return actor != nil && actor.Role == ev.config.AdminRole
}

// HasRole reports whether the actor carries exactly role
func (ev *Evaluator) HasRole(actor *Actor, role Role) bool {
	return actor != nil && actor.Role == role
}

// IsRoleElevated checks if role1 has equal or higher privilege than role2
func (ev *Evaluator) IsRoleElevated(role1, role2 Role) bool {
	level1, exists1 := ev.roleIndex[role1]
	level2, exists2 := ev.roleIndex[role2]
	if !exists1 || !exists2 {
		return false
	}
	return level1 >= level2
}

// ValidateRole validates a role string against configured roles
func (ev *Evaluator) ValidateRole(role string) (Role, error) {
	r := Role(role)
	if _, ok := ev.roleIndex[r]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
}

// ParseResource validates a resource name against the configured vocabulary
func (ev *Evaluator) ParseResource(name string) (Resource, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(name)))
	if ev.resources[r] {
		return r, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownResource, name)
}

// Resources returns the resource vocabulary in declaration order
func (ev *Evaluator) Resources() []Resource {
	out := make([]Resource, len(ev.config.Resources))
	copy(out, ev.config.Resources)
	return out
}

// ValidateActor checks that a decoded actor profile is usable.
// Only the role is mandatory; permission entries already degrade to LevelNone.
func (ev *Evaluator) ValidateActor(actor *Actor) error {
	if actor == nil {
		return fmt.Errorf("%w: %s", ErrInvalidActor, errActorNil)
	}
	if actor.Role == "" {
		return fmt.Errorf("%w: %s", ErrInvalidActor, errActorRoleEmpty)
	}
	if _, err := ev.ValidateRole(string(actor.Role)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidActor, err)
	}
	return nil
}
