// AngelaMos | 2026
// entity.go

package rbac

import (
	"time"
)

// Role is either organization-scoped (OrganizationID set) or a system
// role shared across tenants (OrganizationID nil). Only system roles
// may carry the platform-admin flag.
type Role struct {
	ID              string     `db:"id"`
	OrganizationID  *string    `db:"organization_id"`
	Name            string     `db:"name"`
	Description     string     `db:"description"`
	Level           int        `db:"level"`
	IsPlatformAdmin bool       `db:"is_platform_admin"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r *Role) IsSystem() bool {
	return r.OrganizationID == nil
}

// Permission is a (resource, action) pair. The action may be "*" to
// cover every action on the resource.
type Permission struct {
	ID          string    `db:"id"`
	Resource    string    `db:"resource"`
	Action      string    `db:"action"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (p *Permission) String() string {
	return p.Resource + ":" + p.Action
}

// RolePermission links a role to a permission. Granted false is an
// explicit deny that overrides any grant resolved from the plan tier
// or another role.
type RolePermission struct {
	RoleID       string    `db:"role_id"`
	PermissionID string    `db:"permission_id"`
	Granted      bool      `db:"granted"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserRole is an assignment of a role to a user, optionally narrowed to
// one farm and optionally expiring. At most one active link per
// (user, role, farm) triple.
type UserRole struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	RoleID    string     `db:"role_id"`
	FarmID    *string    `db:"farm_id"`
	IsActive  bool       `db:"is_active"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (ur *UserRole) IsExpired(now time.Time) bool {
	return ur.ExpiresAt != nil && !ur.ExpiresAt.After(now)
}
