// AngelaMos | 2026
// dto.go

package rbac

type AddRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin moderator ops_manager ops_agent support user"`
}

type ReplaceRolesRequest struct {
	Roles []string `json:"roles" validate:"required,dive,oneof=admin moderator ops_manager ops_agent support user"`
}

type HasRoleResponse struct {
	Role    string `json:"role"`
	HasRole bool   `json:"has_role"`
}

type RolesResponse struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}
