// AngelaMos | 2026
// dto.go

package rbac

import (
	"time"
)

type CreateRoleRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Level       int    `json:"level"       validate:"gte=0,lte=99"`
}

type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Level       *int    `json:"level,omitempty"       validate:"omitempty,gte=0,lte=99"`
}

type CreatePermissionRequest struct {
	Resource    string `json:"resource"    validate:"required,min=1,max=100"`
	Action      string `json:"action"      validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type AttachPermissionRequest struct {
	PermissionID string `json:"permission_id" validate:"required,uuid"`
	Granted      *bool  `json:"granted,omitempty"`
}

type UpdateGrantRequest struct {
	Granted bool `json:"granted"`
}

type AssignRoleRequest struct {
	RoleID    string     `json:"role_id"              validate:"required,uuid"`
	FarmID    *string    `json:"farm_id,omitempty"    validate:"omitempty,uuid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type UpdateUserRoleRequest struct {
	FarmID    *string    `json:"farm_id,omitempty"    validate:"omitempty,uuid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

type CheckPermissionRequest struct {
	Resource string `json:"resource" validate:"required,min=1,max=100"`
	Action   string `json:"action"   validate:"required,min=1,max=100"`
}

type CheckPermissionsRequest struct {
	Permissions []CheckPermissionRequest `json:"permissions" validate:"required,min=1,max=50,dive"`
}

type CheckPermissionResponse struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Allowed  bool   `json:"allowed"`
}

type CheckPermissionsResponse struct {
	Results []CheckPermissionResponse `json:"results"`
}

type UserPermissionsResponse struct {
	UserID      string   `json:"user_id"`
	PlanTier    string   `json:"plan_tier"`
	Permissions []string `json:"permissions"`
	Features    []string `json:"features"`
	Modules     []string `json:"modules"`
	Roles       []string `json:"roles"`
}

type ApplyTemplateRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type RoleResponse struct {
	ID              string    `json:"id"`
	OrganizationID  *string   `json:"organization_id,omitempty"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Level           int       `json:"level"`
	IsPlatformAdmin bool      `json:"is_platform_admin"`
	IsSystem        bool      `json:"is_system"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type PermissionResponse struct {
	ID          string `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type RolePermissionResponse struct {
	Permission PermissionResponse `json:"permission"`
	Granted    bool               `json:"granted"`
}

type UserRoleResponse struct {
	ID        string     `json:"id"`
	RoleID    string     `json:"role_id"`
	RoleName  string     `json:"role_name"`
	Level     int        `json:"level"`
	FarmID    *string    `json:"farm_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type TemplateResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
}

// Bulk operation payloads. Items are processed independently; one bad
// item never rolls back its siblings.

type BulkAssignRolesRequest struct {
	Assignments []BulkAssignment `json:"assignments" validate:"required,min=1,max=100,dive"`
}

type BulkAssignment struct {
	UserID    string     `json:"user_id"              validate:"required,uuid"`
	RoleID    string     `json:"role_id"              validate:"required,uuid"`
	FarmID    *string    `json:"farm_id,omitempty"    validate:"omitempty,uuid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type BulkRemoveRolesRequest struct {
	Removals []BulkRemoval `json:"removals" validate:"required,min=1,max=100,dive"`
}

type BulkRemoval struct {
	UserID string  `json:"user_id"           validate:"required,uuid"`
	RoleID string  `json:"role_id"           validate:"required,uuid"`
	FarmID *string `json:"farm_id,omitempty" validate:"omitempty,uuid"`
}

type BulkUpdatePermissionsRequest struct {
	Updates []BulkGrantUpdate `json:"updates" validate:"required,min=1,max=100,dive"`
}

type BulkGrantUpdate struct {
	RoleID       string `json:"role_id"       validate:"required,uuid"`
	PermissionID string `json:"permission_id" validate:"required,uuid"`
	Granted      bool   `json:"granted"`
}

type BulkResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}

type BulkItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func ToRoleResponse(r *Role) RoleResponse {
	return RoleResponse{
		ID:              r.ID,
		OrganizationID:  r.OrganizationID,
		Name:            r.Name,
		Description:     r.Description,
		Level:           r.Level,
		IsPlatformAdmin: r.IsPlatformAdmin,
		IsSystem:        r.IsSystem(),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func ToRoleResponseList(roles []Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, ToRoleResponse(&roles[i]))
	}
	return out
}

func ToPermissionResponse(p *Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
	}
}

func ToPermissionResponseList(perms []Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(perms))
	for i := range perms {
		out = append(out, ToPermissionResponse(&perms[i]))
	}
	return out
}
