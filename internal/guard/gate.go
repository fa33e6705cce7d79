package guard

import (
	"holding-admin/internal/auth"
	"holding-admin/internal/rbac"
)

// Requirement is a (resource, level) pair attached to a section.
type Requirement struct {
	Resource rbac.Resource
	Level    rbac.Level
}

// GateResult carries the diagnostic a denial view shows.
type GateResult struct {
	Allowed  bool
	Resource rbac.Resource
	Required rbac.Level
	Actual   rbac.Level
	// Loading is set while the session is still hydrating. Allowed is then
	// false but the result is not a denial.
	Loading bool
}

// PermissionSource is what a gate reads the current actor's access from.
// *auth.Manager satisfies it.
type PermissionSource interface {
	Snapshot() auth.Snapshot
	HasPermission(resource rbac.Resource, level rbac.Level) bool
	EffectiveLevel(resource rbac.Resource) rbac.Level
}

var _ PermissionSource = (*auth.Manager)(nil)

// ResourceGate checks one Requirement.
type ResourceGate struct {
	Requirement Requirement
}

func NewResourceGate(resource rbac.Resource, level rbac.Level) ResourceGate {
	return ResourceGate{Requirement: Requirement{Resource: resource, Level: level}}
}

// Check evaluates the requirement against the current state of src.
func (g ResourceGate) Check(src PermissionSource) GateResult {
	res := GateResult{
		Resource: g.Requirement.Resource,
		Required: g.Requirement.Level,
	}
	if src == nil {
		return res
	}
	if src.Snapshot().Loading {
		res.Loading = true
		return res
	}
	res.Allowed = src.HasPermission(g.Requirement.Resource, g.Requirement.Level)
	res.Actual = src.EffectiveLevel(g.Requirement.Resource)
	return res
}

// SectionAccess is one row of the dashboard.
type SectionAccess struct {
	Resource rbac.Resource
	Level    rbac.Level
	CanRead  bool
	CanWrite bool
}

// Sections lists every resource with the access src grants on it.
func Sections(evaluator *rbac.Evaluator, src PermissionSource) []SectionAccess {
	resources := evaluator.Resources()
	out := make([]SectionAccess, 0, len(resources))
	for _, res := range resources {
		read := NewResourceGate(res, rbac.LevelRead).Check(src)
		out = append(out, SectionAccess{
			Resource: res,
			Level:    read.Actual,
			CanRead:  read.Allowed,
			CanWrite: NewResourceGate(res, rbac.LevelWrite).Check(src).Allowed,
		})
	}
	return out
}
