// AngelaMos | 2026
// service_test.go

package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

// fakeRepo is an in-memory Repository sufficient for service behavior
// tests. Scoping rules mirror the SQL implementation: an organization
// sees its own roles plus system roles.
type fakeRepo struct {
	roles       map[string]*Role
	permissions map[string]*Permission
	grants      map[string]map[string]bool // roleID -> permissionID -> granted
	userRoles   []UserRole
	orgMembers  map[string]string // userID -> orgID
	expired     []string          // user ids returned by DeactivateExpiredUserRoles
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		roles:       make(map[string]*Role),
		permissions: make(map[string]*Permission),
		grants:      make(map[string]map[string]bool),
		orgMembers:  make(map[string]string),
	}
}

func (r *fakeRepo) addRole(role *Role) *Role {
	r.roles[role.ID] = role
	return role
}

func (r *fakeRepo) CreateRole(_ context.Context, role *Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRepo) GetRoleInScope(
	_ context.Context,
	orgID, roleID string,
) (*Role, error) {
	role, ok := r.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role: %w", core.ErrNotFound)
	}
	if role.OrganizationID != nil && *role.OrganizationID != orgID {
		return nil, fmt.Errorf("role: %w", core.ErrNotFound)
	}
	return role, nil
}

func (r *fakeRepo) ListRoles(_ context.Context, orgID string) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		if role.OrganizationID == nil || *role.OrganizationID == orgID {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateRole(_ context.Context, role *Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRepo) DeleteRole(_ context.Context, _, roleID string) error {
	delete(r.roles, roleID)
	return nil
}

func (r *fakeRepo) RoleNameExists(
	_ context.Context,
	orgID, name, excludeRoleID string,
) (bool, error) {
	for _, role := range r.roles {
		if role.ID == excludeRoleID {
			continue
		}
		if role.OrganizationID != nil && *role.OrganizationID == orgID &&
			role.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateRoleWithPermissions(
	_ context.Context,
	role *Role,
	permissions []TemplatePermission,
) error {
	r.roles[role.ID] = role
	r.grants[role.ID] = make(map[string]bool)
	for _, p := range permissions {
		r.grants[role.ID][p.Resource+":"+p.Action] = true
	}
	return nil
}

func (r *fakeRepo) CreatePermission(_ context.Context, perm *Permission) error {
	r.permissions[perm.ID] = perm
	return nil
}

func (r *fakeRepo) GetPermission(
	_ context.Context,
	id string,
) (*Permission, error) {
	perm, ok := r.permissions[id]
	if !ok {
		return nil, fmt.Errorf("permission: %w", core.ErrNotFound)
	}
	return perm, nil
}

func (r *fakeRepo) ListPermissions(_ context.Context) ([]Permission, error) {
	var out []Permission
	for _, p := range r.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRepo) ListPermissionResources(_ context.Context) ([]string, error) {
	return nil, nil
}

func (r *fakeRepo) ListRolePermissions(
	_ context.Context,
	roleID string,
) ([]RolePermissionRow, error) {
	var out []RolePermissionRow
	for permID, granted := range r.grants[roleID] {
		out = append(out, RolePermissionRow{PermissionID: permID, Granted: granted})
	}
	return out, nil
}

func (r *fakeRepo) AttachPermission(
	_ context.Context,
	roleID, permissionID string,
	granted bool,
) error {
	if r.grants[roleID] == nil {
		r.grants[roleID] = make(map[string]bool)
	}
	r.grants[roleID][permissionID] = granted
	return nil
}

func (r *fakeRepo) UpdateGrant(
	_ context.Context,
	roleID, permissionID string,
	granted bool,
) error {
	links, ok := r.grants[roleID]
	if !ok {
		return fmt.Errorf("grant: %w", core.ErrNotFound)
	}
	if _, ok := links[permissionID]; !ok {
		return fmt.Errorf("grant: %w", core.ErrNotFound)
	}
	links[permissionID] = granted
	return nil
}

func (r *fakeRepo) DetachPermission(
	_ context.Context,
	roleID, permissionID string,
) error {
	delete(r.grants[roleID], permissionID)
	return nil
}

func (r *fakeRepo) ListUserRoles(
	_ context.Context,
	userID string,
) ([]UserRoleRow, error) {
	var out []UserRoleRow
	for _, link := range r.userRoles {
		if link.UserID != userID {
			continue
		}
		row := UserRoleRow{
			ID:        link.ID,
			RoleID:    link.RoleID,
			FarmID:    link.FarmID,
			IsActive:  link.IsActive,
			ExpiresAt: link.ExpiresAt,
		}
		if role, ok := r.roles[link.RoleID]; ok {
			row.RoleName = role.Name
			row.Level = role.Level
		}
		out = append(out, row)
	}
	return out, nil
}

func sameFarm(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *fakeRepo) AssignRole(_ context.Context, link *UserRole) error {
	for _, existing := range r.userRoles {
		if existing.UserID == link.UserID && existing.RoleID == link.RoleID &&
			sameFarm(existing.FarmID, link.FarmID) {
			return fmt.Errorf("user role: %w", core.ErrConflict)
		}
	}
	link.IsActive = true
	r.userRoles = append(r.userRoles, *link)
	return nil
}

func (r *fakeRepo) UpdateUserRole(_ context.Context, link *UserRole) error {
	for i, existing := range r.userRoles {
		if existing.ID == link.ID {
			r.userRoles[i].FarmID = link.FarmID
			r.userRoles[i].ExpiresAt = link.ExpiresAt
			r.userRoles[i].IsActive = link.IsActive
			return nil
		}
	}
	return fmt.Errorf("user role: %w", core.ErrNotFound)
}

func (r *fakeRepo) RemoveRole(
	_ context.Context,
	userID, roleID string,
	farmID *string,
) error {
	kept := r.userRoles[:0]
	removed := 0
	for _, existing := range r.userRoles {
		if existing.UserID == userID && existing.RoleID == roleID &&
			(farmID == nil || sameFarm(existing.FarmID, farmID)) {
			removed++
			continue
		}
		kept = append(kept, existing)
	}
	r.userRoles = kept
	if removed == 0 {
		return fmt.Errorf("user role: %w", core.ErrNotFound)
	}
	return nil
}

func (r *fakeRepo) UserInOrganization(
	_ context.Context,
	orgID, userID string,
) (bool, error) {
	return r.orgMembers[userID] == orgID, nil
}

func (r *fakeRepo) ListUserIDsWithRole(
	_ context.Context,
	roleID string,
) ([]string, error) {
	var out []string
	for _, link := range r.userRoles {
		if link.RoleID == roleID && link.IsActive {
			out = append(out, link.UserID)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeactivateExpiredUserRoles(
	_ context.Context,
) ([]string, error) {
	return r.expired, nil
}

// recordingCache tracks which users and organizations were invalidated.
type recordingCache struct {
	contexts         map[string]*authz.Context
	invalidatedUsers []string
	invalidatedOrgs  []string
}

func (c *recordingCache) Get(
	_ context.Context,
	userID string,
) (*authz.Context, error) {
	if actx, ok := c.contexts[userID]; ok {
		return actx, nil
	}
	return nil, fmt.Errorf("context: %w", core.ErrNotFound)
}

func (c *recordingCache) Invalidate(_ context.Context, userID string) error {
	c.invalidatedUsers = append(c.invalidatedUsers, userID)
	return nil
}

func (c *recordingCache) InvalidateOrganization(
	_ context.Context,
	orgID string,
) error {
	c.invalidatedOrgs = append(c.invalidatedOrgs, orgID)
	return nil
}

func (c *recordingCache) Sweep(_ context.Context) (int, error) { return 0, nil }

func newTestService() (*Service, *fakeRepo, *recordingCache) {
	repo := newFakeRepo()
	cache := &recordingCache{contexts: make(map[string]*authz.Context)}
	svc := NewService(repo, cache, slog.New(slog.DiscardHandler))
	return svc, repo, cache
}

func strPtr(s string) *string { return &s }

func orgRole(id, orgID, name string, level int) *Role {
	return &Role{
		ID:             id,
		OrganizationID: &orgID,
		Name:           name,
		Level:          level,
	}
}

func TestCreateRoleDuplicateName(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))

	_, err := svc.CreateRole(context.Background(), "org-1", CreateRoleRequest{
		Name:  "finance",
		Level: 40,
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	// Same name in another organization is fine.
	role, err := svc.CreateRole(context.Background(), "org-2", CreateRoleRequest{
		Name:  "finance",
		Level: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, "org-2", *role.OrganizationID)
}

func TestUpdateRoleSystemImmutable(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(&Role{ID: "sys-1", Name: "platform_admin", Level: 100})

	name := "renamed"
	_, err := svc.UpdateRole(
		context.Background(),
		"org-1",
		"sys-1",
		UpdateRoleRequest{Name: &name},
	)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestUpdateRoleInvalidatesOrganization(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))

	level := 55
	_, err := svc.UpdateRole(
		context.Background(),
		"org-1",
		"role-1",
		UpdateRoleRequest{Level: &level},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"org-1"}, cache.invalidatedOrgs)
}

func TestDeleteRoleCrossTenantReadsAsNotFound(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))

	err := svc.DeleteRole(context.Background(), "org-2", "role-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAssignRoleInvalidatesUser(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-1"

	link, err := svc.AssignRole(
		context.Background(),
		"org-1",
		"user-1",
		AssignRoleRequest{RoleID: "role-1"},
	)
	require.NoError(t, err)
	assert.Equal(t, "user-1", link.UserID)
	assert.Equal(t, []string{"user-1"}, cache.invalidatedUsers)
}

func TestAssignRoleUserOutsideOrganization(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-2"

	_, err := svc.AssignRole(
		context.Background(),
		"org-1",
		"user-1",
		AssignRoleRequest{RoleID: "role-1"},
	)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, cache.invalidatedUsers)
}

func TestAssignRolePlatformAdminBlocked(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(&Role{ID: "sys-1", Name: "platform_admin", Level: 100, IsPlatformAdmin: true})
	repo.orgMembers["user-1"] = "org-1"

	_, err := svc.AssignRole(
		context.Background(),
		"org-1",
		"user-1",
		AssignRoleRequest{RoleID: "sys-1"},
	)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestUpdateUserRoleMergesExistingLink(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-1"

	farmID := strPtr("farm-1")
	repo.userRoles = append(repo.userRoles, UserRole{
		ID:       "link-1",
		UserID:   "user-1",
		RoleID:   "role-1",
		FarmID:   farmID,
		IsActive: true,
	})

	inactive := false
	err := svc.UpdateUserRole(
		context.Background(),
		"org-1",
		"user-1",
		"role-1",
		UpdateUserRoleRequest{IsActive: &inactive},
	)
	require.NoError(t, err)

	assert.False(t, repo.userRoles[0].IsActive)
	// Fields the request did not set are kept.
	assert.Equal(t, farmID, repo.userRoles[0].FarmID)
	assert.Equal(t, []string{"user-1"}, cache.invalidatedUsers)
}

func TestUpdateUserRoleTouchesOnlyAddressedFarmLink(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-1"

	repo.userRoles = append(repo.userRoles,
		UserRole{
			ID: "link-north", UserID: "user-1", RoleID: "role-1",
			FarmID: strPtr("farm-north"), IsActive: true,
		},
		UserRole{
			ID: "link-south", UserID: "user-1", RoleID: "role-1",
			FarmID: strPtr("farm-south"), IsActive: true,
		},
	)

	inactive := false
	err := svc.UpdateUserRole(
		context.Background(),
		"org-1",
		"user-1",
		"role-1",
		UpdateUserRoleRequest{
			FarmID:   strPtr("farm-south"),
			IsActive: &inactive,
		},
	)
	require.NoError(t, err)

	// The north link is untouched; only the addressed south link
	// changed.
	assert.True(t, repo.userRoles[0].IsActive)
	assert.Equal(t, "farm-north", *repo.userRoles[0].FarmID)
	assert.False(t, repo.userRoles[1].IsActive)
	assert.Equal(t, "farm-south", *repo.userRoles[1].FarmID)
}

func TestUpdateUserRoleAmbiguousFarmScopeConflicts(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-1"

	repo.userRoles = append(repo.userRoles,
		UserRole{
			ID: "link-north", UserID: "user-1", RoleID: "role-1",
			FarmID: strPtr("farm-north"), IsActive: true,
		},
		UserRole{
			ID: "link-south", UserID: "user-1", RoleID: "role-1",
			FarmID: strPtr("farm-south"), IsActive: true,
		},
	)

	inactive := false
	err := svc.UpdateUserRole(
		context.Background(),
		"org-1",
		"user-1",
		"role-1",
		UpdateUserRoleRequest{IsActive: &inactive},
	)
	assert.ErrorIs(t, err, core.ErrConflict)

	// Nothing changed.
	assert.True(t, repo.userRoles[0].IsActive)
	assert.True(t, repo.userRoles[1].IsActive)
}

func TestRemoveRoleFarmScopeNarrowsDeletion(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-1"

	repo.userRoles = append(repo.userRoles,
		UserRole{
			ID: "link-north", UserID: "user-1", RoleID: "role-1",
			FarmID: strPtr("farm-north"), IsActive: true,
		},
		UserRole{
			ID: "link-south", UserID: "user-1", RoleID: "role-1",
			FarmID: strPtr("farm-south"), IsActive: true,
		},
	)

	err := svc.RemoveRole(
		context.Background(),
		"org-1", "user-1", "role-1",
		strPtr("farm-north"),
	)
	require.NoError(t, err)

	require.Len(t, repo.userRoles, 1)
	assert.Equal(t, "link-south", repo.userRoles[0].ID)
	assert.Equal(t, []string{"user-1"}, cache.invalidatedUsers)

	// Without a farm id the remaining links for the role all go.
	err = svc.RemoveRole(context.Background(), "org-1", "user-1", "role-1", nil)
	require.NoError(t, err)
	assert.Empty(t, repo.userRoles)
}

func TestGetUserPermissionsSnapshot(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.orgMembers["user-1"] = "org-1"
	cache.contexts["user-1"] = &authz.Context{
		UserID:      "user-1",
		PlanTier:    authz.TierPro,
		Permissions: []string{"farms:*"},
		RoleNames:   []string{"farm_manager"},
	}

	resp, err := svc.GetUserPermissions(context.Background(), "org-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "pro", resp.PlanTier)
	assert.Equal(t, []string{"farms:*"}, resp.Permissions)
	assert.Equal(t, []string{"farm_manager"}, resp.Roles)

	repo.orgMembers["user-2"] = "org-2"
	_, err = svc.GetUserPermissions(context.Background(), "org-1", "user-2")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestApplyTemplate(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.ApplyTemplate(
		context.Background(),
		"org-1",
		"no-such-template",
		ApplyTemplateRequest{},
	)
	assert.ErrorIs(t, err, core.ErrNotFound)

	role, err := svc.ApplyTemplate(
		context.Background(),
		"org-1",
		"farm-manager",
		ApplyTemplateRequest{},
	)
	require.NoError(t, err)
	assert.Equal(t, "farm_manager", role.Name)
	assert.NotEmpty(t, repo.grants[role.ID])

	// Applying the same template again collides on the role name.
	_, err = svc.ApplyTemplate(
		context.Background(),
		"org-1",
		"farm-manager",
		ApplyTemplateRequest{},
	)
	assert.ErrorIs(t, err, core.ErrConflict)

	// A name override sidesteps the collision.
	renamed, err := svc.ApplyTemplate(
		context.Background(),
		"org-1",
		"farm-manager",
		ApplyTemplateRequest{Name: strPtr("north_managers")},
	)
	require.NoError(t, err)
	assert.Equal(t, "north_managers", renamed.Name)
}

func TestBulkAssignRolesPartialFailure(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))

	var assignments []BulkAssignment
	for i := 0; i < 10; i++ {
		userID := fmt.Sprintf("user-%d", i)
		assignments = append(assignments, BulkAssignment{
			UserID: userID,
			RoleID: "role-1",
		})
		// Items 2, 5, and 8 belong to another tenant and must fail.
		if i == 2 || i == 5 || i == 8 {
			repo.orgMembers[userID] = "org-2"
		} else {
			repo.orgMembers[userID] = "org-1"
		}
	}

	result := svc.BulkAssignRoles(
		context.Background(),
		"org-1",
		BulkAssignRolesRequest{Assignments: assignments},
	)

	assert.Equal(t, 7, result.Succeeded)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Index)
	assert.Equal(t, 5, result.Errors[1].Index)
	assert.Equal(t, 8, result.Errors[2].Index)

	// Successful items persisted and invalidated their users.
	assert.Len(t, repo.userRoles, 7)
	assert.Len(t, cache.invalidatedUsers, 7)
}

func TestBulkRemoveRoles(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.orgMembers["user-1"] = "org-1"
	repo.orgMembers["user-2"] = "org-1"
	repo.userRoles = append(repo.userRoles, UserRole{
		ID: "link-1", UserID: "user-1", RoleID: "role-1", IsActive: true,
	})

	result := svc.BulkRemoveRoles(
		context.Background(),
		"org-1",
		BulkRemoveRolesRequest{Removals: []BulkRemoval{
			{UserID: "user-1", RoleID: "role-1"},
			{UserID: "user-2", RoleID: "role-1"}, // no such link
		}},
	)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Empty(t, repo.userRoles)
}

func TestBulkUpdatePermissions(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.addRole(orgRole("role-1", "org-1", "finance", 50))
	repo.grants["role-1"] = map[string]bool{"perm-1": true}

	result := svc.BulkUpdatePermissions(
		context.Background(),
		"org-1",
		BulkUpdatePermissionsRequest{Updates: []BulkGrantUpdate{
			{RoleID: "role-1", PermissionID: "perm-1", Granted: false},
			{RoleID: "role-1", PermissionID: "perm-missing", Granted: true},
		}},
	)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, repo.grants["role-1"]["perm-1"])
	assert.Equal(t, []string{"org-1"}, cache.invalidatedOrgs)
}

func TestDeactivateExpiredRoles(t *testing.T) {
	svc, repo, cache := newTestService()
	repo.expired = []string{"user-1", "user-2"}

	count, err := svc.DeactivateExpiredRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"user-1", "user-2"}, cache.invalidatedUsers)
}

func TestTemplateCatalog(t *testing.T) {
	templates := Templates()
	require.NotEmpty(t, templates)

	tpl, ok := TemplateByID("viewer")
	require.True(t, ok)
	assert.Equal(t, "viewer", tpl.Name)
	for _, p := range tpl.Permissions {
		assert.Equal(t, "read", p.Action)
	}

	_, ok = TemplateByID("bogus")
	assert.False(t, ok)
}
