// AngelaMos | 2026
// repository.go

package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrimesh/platform-api/internal/core"
)

// UserGrants is the raw persisted state the resolver turns into a
// Context: the user row joined with its organization and subscription,
// plus the currently-active role links and their permission rows.
type UserGrants struct {
	User        UserRecord
	Roles       []RoleGrant
	Permissions []PermissionGrant
}

type UserRecord struct {
	ID               string         `db:"id"`
	OrganizationID   sql.NullString `db:"organization_id"`
	OrganizationType sql.NullString `db:"organization_type"`
	OrgActive        sql.NullBool   `db:"org_active"`
	OrgSuspendedAt   sql.NullTime   `db:"org_suspended_at"`
	PlanTier         sql.NullString `db:"plan_tier"`
}

type RoleGrant struct {
	RoleID          string         `db:"role_id"`
	Name            string         `db:"name"`
	Level           int            `db:"level"`
	IsPlatformAdmin bool           `db:"is_platform_admin"`
	FarmID          sql.NullString `db:"farm_id"`
}

type PermissionGrant struct {
	Resource string `db:"resource"`
	Action   string `db:"action"`
	Granted  bool   `db:"granted"`
}

// Store loads the persisted authorization facts for one user.
type Store interface {
	GetUserGrants(ctx context.Context, userID string) (*UserGrants, error)
}

type store struct {
	db core.DBTX
}

func NewStore(db core.DBTX) Store {
	return &store{db: db}
}

func (s *store) GetUserGrants(
	ctx context.Context,
	userID string,
) (*UserGrants, error) {
	userQuery := `
		SELECT u.id,
		       u.organization_id,
		       o.org_type AS organization_type,
		       o.is_active AS org_active,
		       o.suspended_at AS org_suspended_at,
		       sub.plan_tier
		FROM users u
		LEFT JOIN organizations o ON o.id = u.organization_id
		LEFT JOIN subscriptions sub
		       ON sub.organization_id = o.id AND sub.status = 'active'
		WHERE u.id = $1 AND u.deleted_at IS NULL`

	var user UserRecord
	err := s.db.GetContext(ctx, &user, userQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user grants: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user grants: %w", err)
	}

	rolesQuery := `
		SELECT r.id AS role_id, r.name, r.level, r.is_platform_admin,
		       ur.farm_id
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		  AND ur.is_active
		  AND (ur.expires_at IS NULL OR ur.expires_at > NOW())`

	var roles []RoleGrant
	if err := s.db.SelectContext(ctx, &roles, rolesQuery, userID); err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}

	permsQuery := `
		SELECT DISTINCT p.resource, p.action, rp.granted
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		  AND ur.is_active
		  AND (ur.expires_at IS NULL OR ur.expires_at > NOW())`

	var perms []PermissionGrant
	if err := s.db.SelectContext(ctx, &perms, permsQuery, userID); err != nil {
		return nil, fmt.Errorf("get role permissions: %w", err)
	}

	return &UserGrants{User: user, Roles: roles, Permissions: perms}, nil
}
