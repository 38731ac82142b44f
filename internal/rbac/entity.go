// AngelaMos | 2026
// entity.go

package rbac

import (
	"slices"
	"time"
)

const (
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
	RoleOpsManager = "ops_manager"
	RoleOpsAgent   = "ops_agent"
	RoleSupport    = "support"
	RoleUser       = "user"
)

// AllRoles mirrors the CHECK constraint on user_roles.role.
var AllRoles = []string{
	RoleAdmin,
	RoleModerator,
	RoleOpsManager,
	RoleOpsAgent,
	RoleSupport,
	RoleUser,
}

// StaffRoles may use the back office.
var StaffRoles = []string{
	RoleAdmin,
	RoleModerator,
	RoleOpsManager,
	RoleOpsAgent,
	RoleSupport,
}

func IsValidRole(role string) bool {
	return slices.Contains(AllRoles, role)
}

type UserRole struct {
	UserID    string    `db:"user_id"    json:"user_id"`
	Role      string    `db:"role"       json:"role"`
	GrantedBy *string   `db:"granted_by" json:"granted_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
