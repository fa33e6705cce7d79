package presets

import "holding-admin/internal/rbac"

const (
	RoleAdmin     rbac.Role = "admin"
	RoleModerator rbac.Role = "moderator"
	RoleStandard  rbac.Role = "standard"

	ResourceNews     rbac.Resource = "news"
	ResourceRecipes  rbac.Resource = "recipes"
	ResourceProducts rbac.Resource = "products"
	ResourceHero     rbac.Resource = "hero"
	ResourceBooks    rbac.Resource = "books"
	ResourceUsers    rbac.Resource = "users"
	ResourceMedia    rbac.Resource = "media"
)

// HoldingCMS returns the policy for the holding group's content console.
//
// Role hierarchy:
//
//	admin     (3): every resource at write, regardless of stored permissions
//	moderator (2): per-resource permissions, may enter the admin area
//	standard  (1): per-resource permissions only
func HoldingCMS() rbac.Config {
	return rbac.Config{
		Roles: []rbac.RoleDefinition{
			{Name: RoleAdmin, Level: 3},
			{Name: RoleModerator, Level: 2},
			{Name: RoleStandard, Level: 1},
		},
		Resources: []rbac.Resource{
			ResourceNews,
			ResourceRecipes,
			ResourceProducts,
			ResourceHero,
			ResourceBooks,
			ResourceUsers,
			ResourceMedia,
		},
		AdminRole: RoleAdmin,
	}
}
