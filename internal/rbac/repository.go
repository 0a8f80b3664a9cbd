// AngelaMos | 2026
// repository.go

package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/agrimesh/platform-api/internal/core"
)

// RolePermissionRow is a role-permission link joined with its
// permission row.
type RolePermissionRow struct {
	PermissionID string `db:"permission_id"`
	Resource     string `db:"resource"`
	Action       string `db:"action"`
	Description  string `db:"description"`
	Granted      bool   `db:"granted"`
}

// UserRoleRow is a user-role link joined with the role it points at.
type UserRoleRow struct {
	ID        string     `db:"id"`
	RoleID    string     `db:"role_id"`
	RoleName  string     `db:"role_name"`
	Level     int        `db:"level"`
	FarmID    *string    `db:"farm_id"`
	IsActive  bool       `db:"is_active"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
}

type Repository interface {
	CreateRole(ctx context.Context, role *Role) error
	GetRoleInScope(ctx context.Context, orgID, roleID string) (*Role, error)
	ListRoles(ctx context.Context, orgID string) ([]Role, error)
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, orgID, roleID string) error
	RoleNameExists(
		ctx context.Context,
		orgID, name, excludeRoleID string,
	) (bool, error)
	CreateRoleWithPermissions(
		ctx context.Context,
		role *Role,
		permissions []TemplatePermission,
	) error

	CreatePermission(ctx context.Context, perm *Permission) error
	GetPermission(ctx context.Context, id string) (*Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListPermissionResources(ctx context.Context) ([]string, error)

	ListRolePermissions(
		ctx context.Context,
		roleID string,
	) ([]RolePermissionRow, error)
	AttachPermission(
		ctx context.Context,
		roleID, permissionID string,
		granted bool,
	) error
	UpdateGrant(
		ctx context.Context,
		roleID, permissionID string,
		granted bool,
	) error
	DetachPermission(ctx context.Context, roleID, permissionID string) error

	ListUserRoles(ctx context.Context, userID string) ([]UserRoleRow, error)
	AssignRole(ctx context.Context, link *UserRole) error
	UpdateUserRole(ctx context.Context, link *UserRole) error
	RemoveRole(ctx context.Context, userID, roleID string, farmID *string) error
	UserInOrganization(ctx context.Context, orgID, userID string) (bool, error)
	ListUserIDsWithRole(ctx context.Context, roleID string) ([]string, error)
	DeactivateExpiredUserRoles(ctx context.Context) ([]string, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRole(ctx context.Context, role *Role) error {
	query := `
		INSERT INTO roles (
			id, organization_id, name, description, level, is_platform_admin
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, role, query,
		role.ID,
		role.OrganizationID,
		role.Name,
		role.Description,
		role.Level,
		role.IsPlatformAdmin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create role: %w", core.ErrConflict)
		}
		return fmt.Errorf("create role: %w", err)
	}

	return nil
}

// GetRoleInScope returns the role if it belongs to the organization or
// is a shared system role. Roles owned by other tenants read as not
// found.
func (r *repository) GetRoleInScope(
	ctx context.Context,
	orgID, roleID string,
) (*Role, error) {
	query := `
		SELECT id, organization_id, name, description, level,
		       is_platform_admin, created_at, updated_at
		FROM roles
		WHERE id = $1
		  AND (organization_id = $2 OR organization_id IS NULL)`

	var role Role
	err := r.db.GetContext(ctx, &role, query, roleID, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get role: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}

	return &role, nil
}

func (r *repository) ListRoles(
	ctx context.Context,
	orgID string,
) ([]Role, error) {
	query := `
		SELECT id, organization_id, name, description, level,
		       is_platform_admin, created_at, updated_at
		FROM roles
		WHERE organization_id = $1 OR organization_id IS NULL
		ORDER BY organization_id NULLS FIRST, level DESC, name`

	var roles []Role
	if err := r.db.SelectContext(ctx, &roles, query, orgID); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	return roles, nil
}

func (r *repository) UpdateRole(ctx context.Context, role *Role) error {
	query := `
		UPDATE roles
		SET name = $2, description = $3, level = $4, updated_at = NOW()
		WHERE id = $1 AND organization_id IS NOT NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &role.UpdatedAt, query,
		role.ID,
		role.Name,
		role.Description,
		role.Level,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update role: %w", core.ErrConflict)
		}
		return fmt.Errorf("update role: %w", err)
	}

	return nil
}

func (r *repository) DeleteRole(
	ctx context.Context,
	orgID, roleID string,
) error {
	// Organization-scoped roles only. System roles are immutable from
	// the tenant API, and role links cascade via foreign keys.
	query := `
		DELETE FROM roles
		WHERE id = $1 AND organization_id = $2`

	result, err := r.db.ExecContext(ctx, query, roleID, orgID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete role: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RoleNameExists(
	ctx context.Context,
	orgID, name, excludeRoleID string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM roles
			WHERE organization_id = $1
			  AND lower(name) = lower($2)
			  AND ($3 = '' OR id <> $3)
		)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, orgID, name, excludeRoleID)
	if err != nil {
		return false, fmt.Errorf("check role name: %w", err)
	}

	return exists, nil
}

// CreateRoleWithPermissions creates the role and its grants in one
// transaction. Permissions named by the template are created on first
// use.
func (r *repository) CreateRoleWithPermissions(
	ctx context.Context,
	role *Role,
	permissions []TemplatePermission,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, role, `
			INSERT INTO roles (
				id, organization_id, name, description, level, is_platform_admin
			) VALUES ($1, $2, $3, $4, $5, false)
			RETURNING created_at, updated_at`,
			role.ID,
			role.OrganizationID,
			role.Name,
			role.Description,
			role.Level,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create role: %w", core.ErrConflict)
			}
			return fmt.Errorf("create role: %w", err)
		}

		for _, tp := range permissions {
			var permID string
			err := tx.GetContext(ctx, &permID, `
				INSERT INTO permissions (id, resource, action, description)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (resource, action)
				DO UPDATE SET resource = EXCLUDED.resource
				RETURNING id`,
				uuid.New().String(), tp.Resource, tp.Action, tp.Description,
			)
			if err != nil {
				return fmt.Errorf("upsert permission %s:%s: %w",
					tp.Resource, tp.Action, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO role_permissions (role_id, permission_id, granted)
				VALUES ($1, $2, true)`,
				role.ID, permID,
			)
			if err != nil {
				return fmt.Errorf("grant permission %s:%s: %w",
					tp.Resource, tp.Action, err)
			}
		}

		return nil
	})
}

func (r *repository) CreatePermission(
	ctx context.Context,
	perm *Permission,
) error {
	query := `
		INSERT INTO permissions (id, resource, action, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &perm.CreatedAt, query,
		perm.ID,
		perm.Resource,
		perm.Action,
		perm.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create permission: %w", core.ErrConflict)
		}
		return fmt.Errorf("create permission: %w", err)
	}

	return nil
}

func (r *repository) GetPermission(
	ctx context.Context,
	id string,
) (*Permission, error) {
	query := `
		SELECT id, resource, action, description, created_at
		FROM permissions
		WHERE id = $1`

	var perm Permission
	err := r.db.GetContext(ctx, &perm, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get permission: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}

	return &perm, nil
}

func (r *repository) ListPermissions(
	ctx context.Context,
) ([]Permission, error) {
	query := `
		SELECT id, resource, action, description, created_at
		FROM permissions
		ORDER BY resource, action`

	var perms []Permission
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}

	return perms, nil
}

func (r *repository) ListPermissionResources(
	ctx context.Context,
) ([]string, error) {
	query := `SELECT DISTINCT resource FROM permissions ORDER BY resource`

	var resources []string
	if err := r.db.SelectContext(ctx, &resources, query); err != nil {
		return nil, fmt.Errorf("list permission resources: %w", err)
	}

	return resources, nil
}

func (r *repository) ListRolePermissions(
	ctx context.Context,
	roleID string,
) ([]RolePermissionRow, error) {
	query := `
		SELECT p.id AS permission_id, p.resource, p.action, p.description,
		       rp.granted
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action`

	var rows []RolePermissionRow
	if err := r.db.SelectContext(ctx, &rows, query, roleID); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}

	return rows, nil
}

func (r *repository) AttachPermission(
	ctx context.Context,
	roleID, permissionID string,
	granted bool,
) error {
	query := `
		INSERT INTO role_permissions (role_id, permission_id, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, permission_id)
		DO UPDATE SET granted = EXCLUDED.granted`

	_, err := r.db.ExecContext(ctx, query, roleID, permissionID, granted)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("attach permission: %w", core.ErrNotFound)
		}
		return fmt.Errorf("attach permission: %w", err)
	}

	return nil
}

func (r *repository) UpdateGrant(
	ctx context.Context,
	roleID, permissionID string,
	granted bool,
) error {
	query := `
		UPDATE role_permissions
		SET granted = $3
		WHERE role_id = $1 AND permission_id = $2`

	result, err := r.db.ExecContext(ctx, query, roleID, permissionID, granted)
	if err != nil {
		return fmt.Errorf("update grant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grant: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update grant: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) DetachPermission(
	ctx context.Context,
	roleID, permissionID string,
) error {
	query := `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = $2`

	result, err := r.db.ExecContext(ctx, query, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("detach permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("detach permission: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("detach permission: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListUserRoles(
	ctx context.Context,
	userID string,
) ([]UserRoleRow, error) {
	query := `
		SELECT ur.id, ur.role_id, r.name AS role_name, r.level,
		       ur.farm_id, ur.is_active, ur.expires_at, ur.created_at
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.created_at DESC`

	var rows []UserRoleRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}

	return rows, nil
}

func (r *repository) AssignRole(ctx context.Context, link *UserRole) error {
	query := `
		INSERT INTO user_roles (id, user_id, role_id, farm_id, is_active, expires_at)
		VALUES ($1, $2, $3, $4, true, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &link.CreatedAt, query,
		link.ID,
		link.UserID,
		link.RoleID,
		link.FarmID,
		link.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("assign role: %w", core.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("assign role: %w", core.ErrNotFound)
		}
		return fmt.Errorf("assign role: %w", err)
	}

	link.IsActive = true
	return nil
}

// UpdateUserRole rewrites a single link addressed by its id. A user may
// hold the same role under several farm scopes, so keying on
// (user, role) would rewrite sibling links.
func (r *repository) UpdateUserRole(
	ctx context.Context,
	link *UserRole,
) error {
	query := `
		UPDATE user_roles
		SET farm_id = $2, expires_at = $3, is_active = $4
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		link.ID,
		link.FarmID,
		link.ExpiresAt,
		link.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user role: %w", core.ErrConflict)
		}
		return fmt.Errorf("update user role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update user role: %w", core.ErrNotFound)
	}

	return nil
}

// RemoveRole deletes the user's links for the role. With a farm id the
// delete is narrowed to that one scope; without it every link for the
// role goes, which is the "take this role away entirely" contract.
func (r *repository) RemoveRole(
	ctx context.Context,
	userID, roleID string,
	farmID *string,
) error {
	query := `
		DELETE FROM user_roles
		WHERE user_id = $1 AND role_id = $2
		  AND ($3::text IS NULL OR farm_id::text = $3)`

	result, err := r.db.ExecContext(ctx, query, userID, roleID, farmID)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove role: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UserInOrganization(
	ctx context.Context,
	orgID, userID string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, orgID); err != nil {
		return false, fmt.Errorf("check user organization: %w", err)
	}

	return exists, nil
}

func (r *repository) ListUserIDsWithRole(
	ctx context.Context,
	roleID string,
) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM user_roles
		WHERE role_id = $1 AND is_active`

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, roleID); err != nil {
		return nil, fmt.Errorf("list users with role: %w", err)
	}

	return userIDs, nil
}

// DeactivateExpiredUserRoles flips expired active links off and returns
// the affected user ids so their cached contexts can be dropped.
func (r *repository) DeactivateExpiredUserRoles(
	ctx context.Context,
) ([]string, error) {
	query := `
		UPDATE user_roles
		SET is_active = false
		WHERE is_active
		  AND expires_at IS NOT NULL
		  AND expires_at <= NOW()
		RETURNING user_id`

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query); err != nil {
		return nil, fmt.Errorf("deactivate expired roles: %w", err)
	}

	return userIDs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
