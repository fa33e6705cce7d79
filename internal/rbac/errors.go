package rbac

import "errors"

var (
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidLevel    = errors.New("invalid permission level")
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidActor    = errors.New("invalid actor")
)

const (
	errConfigRolesEmpty            = "rbac config: roles must not be empty"
	errConfigResourcesEmpty        = "rbac config: resources must not be empty"
	errConfigRoleNameEmpty         = "rbac config: role name must not be empty"
	errConfigDuplicateRoleNameFmt  = "rbac config: duplicate role name: %s"
	errConfigDuplicateRoleLevelFmt = "rbac config: duplicate role level %d (roles %s and %s)"
	errConfigResourceEmpty         = "rbac config: resource must not be empty"
	errConfigDuplicateResourceFmt  = "rbac config: duplicate resource: %s"
	errConfigAdminRoleEmpty        = "rbac config: admin role must not be empty"
	errConfigAdminRoleUnknownFmt   = "rbac config: admin role %s is not a declared role"
	errConfigAdminRoleNotTopFmt    = "rbac config: admin role %s must have the highest level"
	errMustNewPanicFmt             = "rbac.MustNew: %v"
	errActorNil                    = "actor is nil"
	errActorRoleEmpty              = "actor role is empty"
)
