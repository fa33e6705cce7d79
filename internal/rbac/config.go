package rbac

import "fmt"

// Config holds the authorization policy: the role hierarchy, the closed
// resource vocabulary, and the role that overrides every permission check.
type Config struct {
	Roles     []RoleDefinition
	Resources []Resource
	AdminRole Role
}

// Validate checks internal consistency of the Config
func (c *Config) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf(errConfigRolesEmpty)
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf(errConfigResourcesEmpty)
	}
	if c.AdminRole == "" {
		return fmt.Errorf(errConfigAdminRoleEmpty)
	}

	roleNames := make(map[Role]int, len(c.Roles))
	roleLevels := make(map[int]Role, len(c.Roles))
	topLevel := 0
	for i, rd := range c.Roles {
		if rd.Name == "" {
			return fmt.Errorf(errConfigRoleNameEmpty)
		}
		if _, dup := roleNames[rd.Name]; dup {
			return fmt.Errorf(errConfigDuplicateRoleNameFmt, rd.Name)
		}
		if existing, dup := roleLevels[rd.Level]; dup {
			return fmt.Errorf(errConfigDuplicateRoleLevelFmt, rd.Level, existing, rd.Name)
		}
		roleNames[rd.Name] = rd.Level
		roleLevels[rd.Level] = rd.Name
		if i == 0 || rd.Level > topLevel {
			topLevel = rd.Level
		}
	}

	adminLevel, ok := roleNames[c.AdminRole]
	if !ok {
		return fmt.Errorf(errConfigAdminRoleUnknownFmt, c.AdminRole)
	}
	if adminLevel != topLevel {
		return fmt.Errorf(errConfigAdminRoleNotTopFmt, c.AdminRole)
	}

	resSet := make(map[Resource]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r == "" {
			return fmt.Errorf(errConfigResourceEmpty)
		}
		if resSet[r] {
			return fmt.Errorf(errConfigDuplicateResourceFmt, r)
		}
		resSet[r] = true
	}

	return nil
}
