// AngelaMos | 2026
// service.go

package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

// Service owns role and permission mutations. Every write that changes
// what some user is allowed to do invalidates the affected cached
// authorization contexts before it returns, so the next request
// observes the new state.
type Service struct {
	repo   Repository
	cache  authz.ContextCache
	logger *slog.Logger
}

func NewService(
	repo Repository,
	cache authz.ContextCache,
	logger *slog.Logger,
) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

func (s *Service) CreateRole(
	ctx context.Context,
	orgID string,
	req CreateRoleRequest,
) (*Role, error) {
	exists, err := s.repo.RoleNameExists(ctx, orgID, req.Name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("role %q: %w", req.Name, core.ErrConflict)
	}

	role := &Role{
		ID:             uuid.New().String(),
		OrganizationID: &orgID,
		Name:           req.Name,
		Description:    req.Description,
		Level:          req.Level,
	}

	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	return role, nil
}

func (s *Service) GetRole(
	ctx context.Context,
	orgID, roleID string,
) (*Role, error) {
	return s.repo.GetRoleInScope(ctx, orgID, roleID)
}

func (s *Service) ListRoles(ctx context.Context, orgID string) ([]Role, error) {
	return s.repo.ListRoles(ctx, orgID)
}

func (s *Service) UpdateRole(
	ctx context.Context,
	orgID, roleID string,
	req UpdateRoleRequest,
) (*Role, error) {
	role, err := s.repo.GetRoleInScope(ctx, orgID, roleID)
	if err != nil {
		return nil, err
	}

	if role.IsSystem() {
		return nil, fmt.Errorf(
			"system roles are immutable: %w", core.ErrForbidden,
		)
	}

	if req.Name != nil && *req.Name != role.Name {
		exists, err := s.repo.RoleNameExists(ctx, orgID, *req.Name, roleID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("role %q: %w", *req.Name, core.ErrConflict)
		}
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Level != nil {
		role.Level = *req.Level
	}

	if err := s.repo.UpdateRole(ctx, role); err != nil {
		return nil, err
	}

	if err := s.invalidateRole(ctx, role); err != nil {
		return nil, err
	}

	return role, nil
}

func (s *Service) DeleteRole(ctx context.Context, orgID, roleID string) error {
	role, err := s.repo.GetRoleInScope(ctx, orgID, roleID)
	if err != nil {
		return err
	}

	if role.IsSystem() {
		return fmt.Errorf("system roles are immutable: %w", core.ErrForbidden)
	}

	if err := s.repo.DeleteRole(ctx, orgID, roleID); err != nil {
		return err
	}

	return s.invalidateRole(ctx, role)
}

func (s *Service) CreatePermission(
	ctx context.Context,
	req CreatePermissionRequest,
) (*Permission, error) {
	perm := &Permission{
		ID:          uuid.New().String(),
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	}

	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}

	return perm, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *Service) ListPermissionResources(
	ctx context.Context,
) ([]string, error) {
	return s.repo.ListPermissionResources(ctx)
}

func (s *Service) ListRolePermissions(
	ctx context.Context,
	orgID, roleID string,
) ([]RolePermissionRow, error) {
	if _, err := s.repo.GetRoleInScope(ctx, orgID, roleID); err != nil {
		return nil, err
	}

	return s.repo.ListRolePermissions(ctx, roleID)
}

func (s *Service) AttachPermission(
	ctx context.Context,
	orgID, roleID string,
	req AttachPermissionRequest,
) error {
	role, err := s.repo.GetRoleInScope(ctx, orgID, roleID)
	if err != nil {
		return err
	}

	if role.IsSystem() {
		return fmt.Errorf("system roles are immutable: %w", core.ErrForbidden)
	}

	if _, err := s.repo.GetPermission(ctx, req.PermissionID); err != nil {
		return err
	}

	granted := true
	if req.Granted != nil {
		granted = *req.Granted
	}

	err = s.repo.AttachPermission(ctx, roleID, req.PermissionID, granted)
	if err != nil {
		return err
	}

	return s.invalidateRole(ctx, role)
}

func (s *Service) UpdateGrant(
	ctx context.Context,
	orgID, roleID, permissionID string,
	granted bool,
) error {
	role, err := s.repo.GetRoleInScope(ctx, orgID, roleID)
	if err != nil {
		return err
	}

	if role.IsSystem() {
		return fmt.Errorf("system roles are immutable: %w", core.ErrForbidden)
	}

	if err := s.repo.UpdateGrant(ctx, roleID, permissionID, granted); err != nil {
		return err
	}

	return s.invalidateRole(ctx, role)
}

func (s *Service) DetachPermission(
	ctx context.Context,
	orgID, roleID, permissionID string,
) error {
	role, err := s.repo.GetRoleInScope(ctx, orgID, roleID)
	if err != nil {
		return err
	}

	if role.IsSystem() {
		return fmt.Errorf("system roles are immutable: %w", core.ErrForbidden)
	}

	err = s.repo.DetachPermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}

	return s.invalidateRole(ctx, role)
}

func (s *Service) ListUserRoles(
	ctx context.Context,
	orgID, userID string,
) ([]UserRoleRow, error) {
	if err := s.requireUserInOrg(ctx, orgID, userID); err != nil {
		return nil, err
	}

	return s.repo.ListUserRoles(ctx, userID)
}

func (s *Service) AssignRole(
	ctx context.Context,
	orgID, userID string,
	req AssignRoleRequest,
) (*UserRole, error) {
	if err := s.requireUserInOrg(ctx, orgID, userID); err != nil {
		return nil, err
	}

	role, err := s.repo.GetRoleInScope(ctx, orgID, req.RoleID)
	if err != nil {
		return nil, err
	}

	if role.IsPlatformAdmin {
		return nil, fmt.Errorf(
			"platform admin roles cannot be assigned through this API: %w",
			core.ErrForbidden,
		)
	}

	link := &UserRole{
		ID:        uuid.New().String(),
		UserID:    userID,
		RoleID:    req.RoleID,
		FarmID:    req.FarmID,
		ExpiresAt: req.ExpiresAt,
	}

	if err := s.repo.AssignRole(ctx, link); err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return nil, fmt.Errorf("invalidate authorization context: %w", err)
	}

	return link, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	orgID, userID, roleID string,
	req UpdateUserRoleRequest,
) error {
	if err := s.requireUserInOrg(ctx, orgID, userID); err != nil {
		return err
	}

	if _, err := s.repo.GetRoleInScope(ctx, orgID, roleID); err != nil {
		return err
	}

	rows, err := s.repo.ListUserRoles(ctx, userID)
	if err != nil {
		return err
	}

	var matches []*UserRoleRow
	for i := range rows {
		if rows[i].RoleID == roleID {
			matches = append(matches, &rows[i])
		}
	}
	if len(matches) == 0 {
		return fmt.Errorf("update user role: %w", core.ErrNotFound)
	}

	// The same role may be held under several farm scopes. A single
	// link is unambiguous; with several, the request's farm_id must
	// identify which link to rewrite.
	current := matches[0]
	if len(matches) > 1 {
		current = nil
		if req.FarmID != nil {
			for _, m := range matches {
				if m.FarmID != nil && *m.FarmID == *req.FarmID {
					current = m
					break
				}
			}
		}
		if current == nil {
			return fmt.Errorf(
				"role is held under multiple farm scopes, farm_id must identify the link: %w",
				core.ErrConflict,
			)
		}
	}

	link := &UserRole{
		ID:        current.ID,
		UserID:    userID,
		RoleID:    roleID,
		FarmID:    current.FarmID,
		ExpiresAt: current.ExpiresAt,
		IsActive:  current.IsActive,
	}
	if req.FarmID != nil {
		link.FarmID = req.FarmID
	}
	if req.ExpiresAt != nil {
		link.ExpiresAt = req.ExpiresAt
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateUserRole(ctx, link); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate authorization context: %w", err)
	}

	return nil
}

// RemoveRole takes the role away from the user. A farm id narrows the
// removal to that one scoped link; nil removes every link for the role.
func (s *Service) RemoveRole(
	ctx context.Context,
	orgID, userID, roleID string,
	farmID *string,
) error {
	if err := s.requireUserInOrg(ctx, orgID, userID); err != nil {
		return err
	}

	if err := s.repo.RemoveRole(ctx, userID, roleID, farmID); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate authorization context: %w", err)
	}

	return nil
}

// GetUserPermissions resolves the target's effective authorization
// snapshot through the cache. The target must belong to the effective
// organization; otherwise it reads as not found.
func (s *Service) GetUserPermissions(
	ctx context.Context,
	orgID, userID string,
) (*UserPermissionsResponse, error) {
	if err := s.requireUserInOrg(ctx, orgID, userID); err != nil {
		return nil, err
	}

	actx, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserPermissionsResponse{
		UserID:      actx.UserID,
		PlanTier:    string(actx.PlanTier),
		Permissions: actx.Permissions,
		Features:    actx.Features,
		Modules:     actx.Modules,
		Roles:       actx.RoleNames,
	}, nil
}

// ApplyTemplate instantiates a shipped role template as an
// organization-owned role with its permission grants, atomically.
func (s *Service) ApplyTemplate(
	ctx context.Context,
	orgID, templateID string,
	req ApplyTemplateRequest,
) (*Role, error) {
	tpl, ok := TemplateByID(templateID)
	if !ok {
		return nil, fmt.Errorf("template %q: %w", templateID, core.ErrNotFound)
	}

	name := tpl.Name
	if req.Name != nil {
		name = *req.Name
	}

	exists, err := s.repo.RoleNameExists(ctx, orgID, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("role %q: %w", name, core.ErrConflict)
	}

	role := &Role{
		ID:             uuid.New().String(),
		OrganizationID: &orgID,
		Name:           name,
		Description:    tpl.Description,
		Level:          tpl.Level,
	}

	err = s.repo.CreateRoleWithPermissions(ctx, role, tpl.Permissions)
	if err != nil {
		return nil, err
	}

	return role, nil
}

// Bulk operations. Each item succeeds or fails on its own; the caller
// gets per-item errors and an aggregate count. Affected users are
// invalidated as items land so a partially-applied batch is still
// immediately visible.

func (s *Service) BulkAssignRoles(
	ctx context.Context,
	orgID string,
	req BulkAssignRolesRequest,
) BulkResult {
	var result BulkResult

	for i, item := range req.Assignments {
		_, err := s.AssignRole(ctx, orgID, item.UserID, AssignRoleRequest{
			RoleID:    item.RoleID,
			FarmID:    item.FarmID,
			ExpiresAt: item.ExpiresAt,
		})
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{
				Index:   i,
				Message: core.FromError(err).Message,
			})
			continue
		}
		result.Succeeded++
	}

	s.logger.Info("bulk role assignment completed",
		"org_id", orgID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	return result
}

func (s *Service) BulkRemoveRoles(
	ctx context.Context,
	orgID string,
	req BulkRemoveRolesRequest,
) BulkResult {
	var result BulkResult

	for i, item := range req.Removals {
		err := s.RemoveRole(ctx, orgID, item.UserID, item.RoleID, item.FarmID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{
				Index:   i,
				Message: core.FromError(err).Message,
			})
			continue
		}
		result.Succeeded++
	}

	s.logger.Info("bulk role removal completed",
		"org_id", orgID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	return result
}

func (s *Service) BulkUpdatePermissions(
	ctx context.Context,
	orgID string,
	req BulkUpdatePermissionsRequest,
) BulkResult {
	var result BulkResult

	for i, item := range req.Updates {
		err := s.UpdateGrant(
			ctx,
			orgID,
			item.RoleID,
			item.PermissionID,
			item.Granted,
		)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{
				Index:   i,
				Message: core.FromError(err).Message,
			})
			continue
		}
		result.Succeeded++
	}

	s.logger.Info("bulk permission update completed",
		"org_id", orgID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	return result
}

// DeactivateExpiredRoles is the janitor entry point: expired links are
// flipped inactive and each affected user's cached context is dropped.
func (s *Service) DeactivateExpiredRoles(ctx context.Context) (int, error) {
	userIDs, err := s.repo.DeactivateExpiredUserRoles(ctx)
	if err != nil {
		return 0, err
	}

	for _, userID := range userIDs {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Error("failed to invalidate expired-role user",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return len(userIDs), nil
}

func (s *Service) requireUserInOrg(
	ctx context.Context,
	orgID, userID string,
) error {
	ok, err := s.repo.UserInOrganization(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	return nil
}

// invalidateRole drops cached contexts for everyone the role touches.
// Organization roles invalidate the whole tenant; system roles
// invalidate exactly the users holding them.
func (s *Service) invalidateRole(ctx context.Context, role *Role) error {
	if role.OrganizationID != nil {
		err := s.cache.InvalidateOrganization(ctx, *role.OrganizationID)
		if err != nil {
			return fmt.Errorf("invalidate organization contexts: %w", err)
		}
		return nil
	}

	userIDs, err := s.repo.ListUserIDsWithRole(ctx, role.ID)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			return fmt.Errorf("invalidate authorization context: %w", err)
		}
	}

	return nil
}
